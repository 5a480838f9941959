package cli

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/juju/errors"
	"github.com/spf13/pflag"
	"github.com/voxhall/voxhall/server"
	"github.com/voxhall/voxhall/server/command"
	"github.com/voxhall/voxhall/server/logger"
)

type serverHandler struct {
	args struct {
		config string
	}

	log    logger.Logger
	config server.Config
	props  Props
	app    *server.App
}

func (h *serverHandler) RegisterFlags(c *command.Command, flags *pflag.FlagSet) {
	flags.StringVarP(&h.args.config, "config", "c", "", "config file to use")
}

func (h *serverHandler) Handle(ctx context.Context, args []string) error {
	if err := h.configure(); err != nil {
		return errors.Trace(err)
	}

	defer h.app.Close()

	listener, err := net.Listen("tcp", net.JoinHostPort(
		h.config.BindHost,
		strconv.Itoa(h.config.BindPort),
	))
	if err != nil {
		return errors.Annotate(err, "listen")
	}

	srv := server.New(server.Params{
		TLSCertFile:       h.config.TLS.Cert,
		TLSKeyFile:        h.config.TLS.Key,
		ReadHeaderTimeout: h.config.Limits.HandshakeTimeout,
	}, h.app.Mux)

	defer listener.Close()

	addr, _ := listener.Addr().(*net.TCPAddr)
	h.log.Info("Listen", logger.Ctx{
		"local_addr": addr,
	})

	err = srv.Start(ctx, listener)

	return errors.Trace(err)
}

func newServerCmd(props Props) *command.Command {
	h := &serverHandler{
		log:   props.Log,
		props: props,
	}

	return command.New(command.Params{
		Name:         "server",
		Desc:         "Starts the voxhall server (default)",
		FlagRegistry: h,
		Handler:      h,
		SubCommands:  nil,
	})
}

func readConfig(filename string) (server.Config, error) {
	configFiles := []string{}
	if filename != "" {
		configFiles = append(configFiles, filename)
	}

	c, err := server.ReadConfig(configFiles)

	return c, errors.Annotate(err, "read config")
}

func (h *serverHandler) configure() (err error) {
	h.config, err = readConfig(h.args.config)
	if err != nil {
		return errors.Trace(err)
	}

	c := h.config

	h.log.Info(fmt.Sprintf("Using store: %s, bind: %s:%d", c.Store.Type, c.BindHost, c.BindPort), nil)

	h.app, err = server.NewApp(h.log, c)

	return errors.Trace(err)
}
