package dispatch

import (
	"context"
	"fmt"

	"github.com/oklahomer/go-sarah/v4"

	"github.com/serverbot-dev/serverbot/discord"
)

// CommandIdentifier identifies the dispatcher's go-sarah command.
const CommandIdentifier = "serverbot"

// CommandProps builds the go-sarah command that hands every Discord message
// to the dispatcher. The dispatcher answers through its Client, so the
// command never returns a response of its own.
func (d *Dispatcher) CommandProps() (*sarah.CommandProps, error) {
	return sarah.NewCommandPropsBuilder().
		BotType(discord.DISCORD).
		Identifier(CommandIdentifier).
		MatchFunc(func(input sarah.Input) bool {
			_, ok := input.(*discord.Input)
			return ok
		}).
		Func(d.respond).
		Instruction("Runs the server commands. Send the help command with the configured prefix for the list.").
		Build()
}

func (d *Dispatcher) respond(ctx context.Context, input sarah.Input) (*sarah.CommandResponse, error) {
	in, ok := input.(*discord.Input)
	if !ok {
		return nil, fmt.Errorf("%T is not a *discord.Input", input)
	}

	return nil, d.Dispatch(ctx, MessageFromInput(in))
}

// MessageFromInput converts a received Discord input to a Message.
func MessageFromInput(in *discord.Input) Message {
	msg := Message{
		ChannelName: in.ChannelName(),
		AuthorName:  in.AuthorName(),
		Text:        in.Message(),
		Roles:       in.RoleNames(),
		FromSelf:    in.FromSelf(),
	}
	if id, ok := in.ReplyTo().(discord.ChannelID); ok {
		msg.ChannelID = string(id)
	}
	if in.Event != nil && in.Event.Message != nil {
		msg.ID = in.Event.ID
	}
	return msg
}
