// Package command is a small tree of pflag based commands. Each command
// parses its own flags and passes what is left to a subcommand.
package command

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/juju/errors"
	"github.com/spf13/pflag"
)

var ErrCommandNotFound = errors.New("command not found")

// Handler runs a command with the arguments left over after flag parsing.
type Handler interface {
	Handle(ctx context.Context, args []string) error
}

type HandlerFunc func(ctx context.Context, args []string) error

func (h HandlerFunc) Handle(ctx context.Context, args []string) error {
	return h(ctx, args)
}

// FlagRegistry registers the flags of a command.
type FlagRegistry interface {
	RegisterFlags(cmd *Command, flags *pflag.FlagSet)
}

type FlagRegistryFunc func(cmd *Command, flags *pflag.FlagSet)

func (f FlagRegistryFunc) RegisterFlags(cmd *Command, flags *pflag.FlagSet) {
	f(cmd, flags)
}

// ArgsProcessor rewrites arguments before or after flag parsing.
type ArgsProcessor interface {
	ProcessArgs(c *Command, args []string) []string
}

type ArgsProcessorFunc func(cmd *Command, args []string) []string

func (f ArgsProcessorFunc) ProcessArgs(cmd *Command, args []string) []string {
	return f(cmd, args)
}

// DefaultSubCommand returns an ArgsProcessor which runs the subcommand name
// when args do not start with one, unless help was requested.
func DefaultSubCommand(name string) ArgsProcessor {
	return ArgsProcessorFunc(func(c *Command, args []string) []string {
		for _, arg := range args {
			if len(arg) > 0 && arg[0] != '-' {
				break
			}

			if arg == "-h" || arg == "--help" {
				return args
			}
		}

		if len(args) == 0 {
			return []string{name}
		}

		if first := args[0]; len(first) > 0 && first[0] == '-' {
			return append([]string{name}, args...)
		}

		return args
	})
}

type Command struct {
	params      Params
	subCommands map[string]*Command
	writer      io.Writer
}

type Params struct {
	Name              string
	Desc              string
	ArgsPreProcessor  ArgsProcessor
	ArgsPostProcessor ArgsProcessor
	FlagRegistry      FlagRegistry
	Handler           Handler
	SubCommands       []*Command
}

func New(params Params) *Command {
	subCommands := make(map[string]*Command, len(params.SubCommands))

	for _, cmd := range params.SubCommands {
		subCommands[cmd.Name()] = cmd
	}

	c := &Command{
		params:      params,
		subCommands: subCommands,
	}

	c.SetWriter(os.Stderr)

	return c
}

// SetWriter sets where usage and parse errors of c and its subcommands are
// written.
func (c *Command) SetWriter(w io.Writer) {
	c.writer = w

	for _, s := range c.params.SubCommands {
		s.SetWriter(w)
	}
}

func (c *Command) Name() string {
	return c.params.Name
}

func (c *Command) Desc() string {
	return c.params.Desc
}

// SubCommand returns the direct subcommand called name.
func (c *Command) SubCommand(name string) (*Command, bool) {
	s, ok := c.subCommands[name]

	return s, ok
}

func (c *Command) Usage(flags *pflag.FlagSet) {
	var b bytes.Buffer

	flagUsages := flags.FlagUsages()

	hasOptions := flagUsages != ""
	hasSubCommands := len(c.params.SubCommands) > 0

	fmt.Fprintf(&b, "Usage: %s", c.params.Name)

	if hasOptions {
		b.WriteString(" [OPTIONS]")
	}

	if hasSubCommands {
		b.WriteString(" [COMMAND] [ARG...]")
	}

	fmt.Fprintf(&b, "\n%s\n", c.params.Desc)

	if hasOptions {
		fmt.Fprintf(&b, "\nOptions:\n%s\n", flagUsages)
	}

	if hasSubCommands {
		b.WriteString("\nCommands:\n")

		width := 12
		for _, s := range c.params.SubCommands {
			if l := len(s.Name()); l > width {
				width = l
			}
		}

		for _, s := range c.params.SubCommands {
			fmt.Fprintf(&b, "  %-*s %s\n", width, s.Name(), s.Desc())
		}

		b.WriteString("\n")
	}

	_, _ = b.WriteTo(c.writer)
}

// Exec runs c until SIGINT or SIGTERM is received or ctx is done.
func (c *Command) Exec(ctx context.Context, args []string) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return c.exec(ctx, args)
}

func (c *Command) parse(args []string) ([]string, error) {
	flags := pflag.NewFlagSet(c.Name(), pflag.ContinueOnError)

	flags.SetOutput(c.writer)

	flags.Usage = func() {
		c.Usage(flags)
	}

	// Stop at the first positional argument, it names the subcommand.
	flags.SetInterspersed(false)

	if c.params.FlagRegistry != nil {
		c.params.FlagRegistry.RegisterFlags(c, flags)
	}

	if err := flags.Parse(args); err != nil {
		return nil, errors.Annotatef(err, "parse args for command: %s", c.params.Name)
	}

	return flags.Args(), nil
}

func (c *Command) exec(ctx context.Context, args []string) error {
	if c.params.ArgsPreProcessor != nil {
		args = c.params.ArgsPreProcessor.ProcessArgs(c, args)
	}

	args, err := c.parse(args)
	if err != nil {
		return errors.Trace(err)
	}

	if c.params.Handler != nil {
		if err := c.params.Handler.Handle(ctx, args); err != nil {
			return errors.Trace(err)
		}
	}

	if c.params.ArgsPostProcessor != nil {
		args = c.params.ArgsPostProcessor.ProcessArgs(c, args)
	}

	if len(args) > 0 && args[0] == "--" {
		args = args[1:]
	}

	if len(args) == 0 || len(c.subCommands) == 0 {
		return nil
	}

	sub, ok := c.SubCommand(args[0])
	if !ok {
		return errors.Annotatef(ErrCommandNotFound, "command: %s", args[0])
	}

	return errors.Trace(sub.exec(ctx, args[1:]))
}
