package dispatch

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-kasumi/logger"
)

const (
	helpColor = 0x4287f5

	// acceptAll is the set-channel argument that lifts the channel restriction.
	acceptAll = "~"
)

func (d *Dispatcher) help(_ context.Context, _ Message, _ Invocation) (interface{}, error) {
	fields := make([]*discordgo.MessageEmbedField, 0, len(d.commands))
	for _, c := range d.commands {
		name := c.Name
		if c.Usage != "" {
			name += " " + c.Usage
		}
		value := c.Help
		if c.Manager {
			value = "* " + value
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: name, Value: value, Inline: false})
	}

	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{
			{
				Title: "Help",
				Description: fmt.Sprintf(`All commands marked with "*" require the "%s" role. `+
					`If you do not have that role and try to use one of the *'d commands, the bot will not recognize it.`, d.managerRole),
				Color:  helpColor,
				Fields: fields,
			},
		},
	}, nil
}

func (d *Dispatcher) motm(_ context.Context, _ Message, _ Invocation) (interface{}, error) {
	motm := d.store.MOTM()
	if motm == "" {
		return ":x: MOTM not set.", nil
	}
	return motm, nil
}

func (d *Dispatcher) setMOTM(_ context.Context, _ Message, inv Invocation) (interface{}, error) {
	if err := d.store.SetMOTM(inv.Rest); err != nil {
		return nil, err
	}
	return fmt.Sprintf(":white_check_mark: MOTM set to: %s", d.store.MOTM()), nil
}

func (d *Dispatcher) setPrefix(_ context.Context, _ Message, inv Invocation) (interface{}, error) {
	if err := d.store.SetPrefix(inv.Args[0]); err != nil {
		return nil, err
	}
	return fmt.Sprintf("Prefix set to \"%s\"", d.store.Prefix()), nil
}

func (d *Dispatcher) setChannel(ctx context.Context, _ Message, inv Invocation) (interface{}, error) {
	channel := inv.Args[0]
	if channel == acceptAll {
		if err := d.store.SetChannel(""); err != nil {
			return nil, err
		}
		return ":white_check_mark: Set to accept all channels.", nil
	}

	_, ok, err := d.client.LookupChannel(ctx, channel)
	if err != nil {
		return nil, fmt.Errorf("failed to look up channel %s: %w", channel, err)
	}
	if !ok {
		return ":x: Invalid channel.", nil
	}

	if err := d.store.SetChannel(channel); err != nil {
		return nil, err
	}
	return fmt.Sprintf(":white_check_mark: Channel set to #%s.", channel), nil
}

func (d *Dispatcher) getRemovalFilter(_ context.Context, _ Message, _ Invocation) (interface{}, error) {
	terms := d.store.RemovalFilter()
	if len(terms) == 0 {
		return ":x: Nothing on removal filter.", nil
	}

	var b strings.Builder
	for _, term := range terms {
		b.WriteString("<" + term + ">\n")
	}
	return fmt.Sprintf(":no_entry: Removal list:\n```%s```", b.String()), nil
}

func (d *Dispatcher) addFilter(_ context.Context, _ Message, inv Invocation) (interface{}, error) {
	added, err := d.store.AddFilter(inv.Rest)
	if err != nil {
		return nil, err
	}
	if !added {
		return ":x: Filter already exists.", nil
	}
	return ":white_check_mark: Filter added.", nil
}

func (d *Dispatcher) removeFilter(_ context.Context, _ Message, inv Invocation) (interface{}, error) {
	removed, err := d.store.RemoveFilter(inv.Rest)
	if err != nil {
		return nil, err
	}
	if !removed {
		return ":x: Filter does not exist.", nil
	}
	return ":white_check_mark: Filter removed.", nil
}

func (d *Dispatcher) lockResponses(_ context.Context, _ Message, inv Invocation) (interface{}, error) {
	if len(inv.Args) == 0 {
		return fmt.Sprintf(":question: `lock-responses` set to `%s`.", displayBool(d.store.LockChannelResponses())), nil
	}

	if err := d.store.SetLockChannelResponses(strings.ToLower(inv.Args[0]) == "true"); err != nil {
		return nil, err
	}
	return fmt.Sprintf(":white_check_mark: Set `lock-responses` to `%s`.", displayBool(d.store.LockChannelResponses())), nil
}

func (d *Dispatcher) customResponses(_ context.Context, _ Message, _ Invocation) (interface{}, error) {
	responses := d.store.CustomResponses()
	if len(responses) == 0 {
		return ":x: No custom responses set.", nil
	}

	keys := make([]string, 0, len(responses))
	for k := range responses {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "\"%s\" -> \"%s\"\n", k, responses[k])
	}
	return fmt.Sprintf(":loudspeaker: Custom responses:\n```%s```", b.String()), nil
}

func (d *Dispatcher) addResponse(_ context.Context, _ Message, inv Invocation) (interface{}, error) {
	key, text, err := ParseResponse(inv.Rest)
	if err != nil {
		return `:x: Malformed quotes. Use add-response "<key>" "<response>".`, nil
	}

	if err := d.store.AddResponse(key, text); err != nil {
		return nil, err
	}
	return ":white_check_mark: Response set.", nil
}

func (d *Dispatcher) removeResponse(_ context.Context, _ Message, inv Invocation) (interface{}, error) {
	removed, err := d.store.RemoveResponse(inv.Rest)
	if err != nil {
		return nil, err
	}
	if !removed {
		return ":x: Response does not exist.", nil
	}
	return ":white_check_mark: Response removed.", nil
}

// exit answers, disconnects and hands over to the shutdown hook. It replies
// on its own because nothing can be sent once the session is closed.
func (d *Dispatcher) exit(ctx context.Context, msg Message, _ Invocation) (interface{}, error) {
	if err := d.client.Send(ctx, msg.ChannelID, ":stop_button: Exiting..."); err != nil {
		logger.Errorf("Failed to send exit confirmation: %+v", err)
	}

	logger.Infof("Exit requested by %s", msg.AuthorName)
	if err := d.client.Disconnect(); err != nil {
		logger.Errorf("Failed to disconnect: %+v", err)
	}

	if d.shutdown != nil {
		d.shutdown()
	}
	return nil, nil
}

// displayBool formats b the way settings files have always spelled it.
func displayBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
