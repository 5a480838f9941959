package cli

import (
	"context"
	"fmt"

	"github.com/juju/errors"
	"github.com/spf13/pflag"
	"github.com/voxhall/voxhall/server/auth"
	"github.com/voxhall/voxhall/server/command"
	"github.com/voxhall/voxhall/server/identifiers"
)

// tokenHandler mints session tokens with the configured secret, for use
// while no login service is around.
type tokenHandler struct {
	args struct {
		config   string
		userID   int64
		username string
	}

	props Props
}

func (h *tokenHandler) RegisterFlags(c *command.Command, flags *pflag.FlagSet) {
	flags.StringVarP(&h.args.config, "config", "c", "", "config file to use")
	flags.Int64Var(&h.args.userID, "user-id", 0, "user id to put in the token")
	flags.StringVar(&h.args.username, "username", "", "username to put in the token")
}

func (h *tokenHandler) Handle(ctx context.Context, args []string) error {
	if h.args.userID <= 0 || h.args.username == "" {
		return errors.New("--user-id and --username are required")
	}

	c, err := readConfig(h.args.config)
	if err != nil {
		return errors.Trace(err)
	}

	gate, err := auth.New(auth.Params{
		Log:        h.props.Log,
		Secret:     c.Auth.Secret,
		CookieName: c.Auth.CookieName,
		MaxAge:     c.Auth.MaxAge,
	})
	if err != nil {
		return errors.Annotate(err, "configure auth")
	}

	token, err := gate.Issue(identifiers.UserID(h.args.userID), h.args.username)
	if err != nil {
		return errors.Trace(err)
	}

	_, err = fmt.Fprintln(h.props.Stdout, token)

	return errors.Trace(err)
}

func newTokenCmd(props Props) *command.Command {
	h := &tokenHandler{props: props}

	return command.New(command.Params{
		Name:         "token",
		Desc:         "Prints a signed session token",
		FlagRegistry: h,
		Handler:      h,
	})
}
