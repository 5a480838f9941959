package cli

import (
	"context"
	"fmt"

	"github.com/juju/errors"
	"github.com/voxhall/voxhall/server/command"
)

type versionHandler struct {
	props Props
}

func (v *versionHandler) Handle(ctx context.Context, args []string) error {
	_, err := fmt.Fprintln(v.props.Stdout, "voxhall", v.props.Version)

	return errors.Trace(err)
}

func newVersionCmd(props Props) *command.Command {
	v := &versionHandler{props}

	return command.New(command.Params{
		Name:    "version",
		Desc:    "Show version information",
		Handler: v,
	})
}
