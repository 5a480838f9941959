package cli

import (
	"github.com/voxhall/voxhall/server/command"
)

func NewRootCommand(props Props) *command.Command {
	return command.New(command.Params{
		Name:             "voxhall",
		Desc:             "Voxhall dispatches chat messages, voice presence and call signaling.",
		ArgsPreProcessor: command.DefaultSubCommand("server"),
		SubCommands: []*command.Command{
			newServerCmd(props),
			newTokenCmd(props),
			newVersionCmd(props),
		},
	})
}
