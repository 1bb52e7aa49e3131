package dispatch

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/oklahomer/go-kasumi/logger"

	"github.com/serverbot-dev/serverbot/metrics"
	"github.com/serverbot-dev/serverbot/settings"
)

// DefaultManagerRole is the role name that grants access to manager commands.
const DefaultManagerRole = "Bot Manager"

const (
	replyUnrecognized = ":question: Command not recognized or insufficient permissions."
	replyBadArgs      = ":x: Incorrect number of arguments."
	replyPersistError = ":warning: Could not save settings."
	replyFailed       = ":warning: Command failed."
	replyInitialized  = ":white_check_mark: Initialization successful."

	// responseGuard keeps the command that deletes custom responses from triggering them.
	responseGuard = "remove-response"
)

// Client is the messaging platform as seen by the dispatcher.
type Client interface {
	// Send posts content, a string or a *discordgo.MessageSend, to the channel.
	Send(ctx context.Context, channelID string, content interface{}) error

	// Delete removes a message from the channel.
	Delete(ctx context.Context, channelID string, messageID string) error

	// LookupChannel returns the ID of a visible channel with the given name.
	LookupChannel(ctx context.Context, name string) (id string, ok bool, err error)

	// Disconnect closes the connection to the platform.
	Disconnect() error
}

// Message is a received chat message.
type Message struct {
	ID          string
	ChannelID   string
	ChannelName string
	AuthorName  string
	Text        string

	// Roles holds the author's role names.
	Roles []string

	// FromSelf is true for messages the bot wrote.
	FromSelf bool
}

// Option defines a function signature for Dispatcher's functional options.
type Option func(*Dispatcher)

// WithManagerRole sets the role name required by manager commands.
func WithManagerRole(role string) Option {
	return func(d *Dispatcher) {
		d.managerRole = role
	}
}

// WithShutdown sets the function the exit command calls after disconnecting.
func WithShutdown(fnc func()) Option {
	return func(d *Dispatcher) {
		d.shutdown = fnc
	}
}

// WithMetrics makes the dispatcher count its work in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// Dispatcher routes messages through the filter, custom responses and the
// command table.
type Dispatcher struct {
	store       *settings.Store
	client      Client
	managerRole string
	shutdown    func()
	metrics     *metrics.Metrics

	commands []Command
	byName   map[string]Command

	// mu makes Dispatch handle one message at a time.
	mu sync.Mutex
}

// New creates a Dispatcher working on store and answering through client.
func New(store *settings.Store, client Client, options ...Option) *Dispatcher {
	d := &Dispatcher{
		store:       store,
		client:      client,
		managerRole: DefaultManagerRole,
		commands:    Commands(),
	}

	for _, opt := range options {
		opt(d)
	}

	d.byName = make(map[string]Command, len(d.commands))
	for _, c := range d.commands {
		d.byName[c.Name] = c
	}

	return d
}

// Dispatch runs msg through every stage. Failures to reach the messaging
// platform are returned; everything else is answered in chat.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.metrics.ObserveMessage()
	manager := d.isManager(msg)

	if !msg.FromSelf && !manager {
		if term, ok := d.filtered(msg.Text); ok {
			logger.Infof("Deleting message %s from %s: matched filter term %q", msg.ID, msg.AuthorName, term)
			d.metrics.ObserveDeleted()
			return d.client.Delete(ctx, msg.ChannelID, msg.ID)
		}
	}

	var errs []error
	if !msg.FromSelf && !strings.Contains(msg.Text, responseGuard) && !d.store.LockChannelResponses() {
		if reply, ok := d.customResponse(msg.Text); ok {
			d.metrics.ObserveCustomResponse()
			if err := d.client.Send(ctx, msg.ChannelID, reply); err != nil {
				errs = append(errs, err)
			}
		}
	}

	// The bot never runs commands it wrote itself, so replies and custom
	// responses cannot trigger each other.
	if msg.FromSelf {
		return errors.Join(errs...)
	}

	inv, ok := Tokenize(d.store.Prefix(), msg.Text)
	if !ok {
		return errors.Join(errs...)
	}
	if channel := d.store.Channel(); channel != "" && msg.ChannelName != channel {
		return errors.Join(errs...)
	}

	logger.Infof("Message from %s: %s", msg.AuthorName, msg.Text)

	reply := d.execute(ctx, msg, inv, manager)
	if reply != nil {
		if err := d.client.Send(ctx, msg.ChannelID, reply); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// execute looks the command up, checks permission and arity, and runs it.
func (d *Dispatcher) execute(ctx context.Context, msg Message, inv Invocation, manager bool) interface{} {
	cmd, ok := d.byName[inv.Name]
	if !ok || (cmd.Manager && !manager) {
		d.metrics.ObserveCommand("unrecognized")
		return replyUnrecognized
	}
	d.metrics.ObserveCommand(cmd.Name)

	if !cmd.Arity.allows(len(inv.Args)) {
		return replyBadArgs
	}

	reply, err := cmd.Run(d, ctx, msg, inv)
	if err != nil {
		logger.Errorf("Command %s failed: %+v", cmd.Name, err)
		if errors.Is(err, settings.ErrPersist) {
			d.metrics.ObservePersistError()
			return replyPersistError
		}
		return replyFailed
	}
	return reply
}

// Ready announces the bot in the restriction channel, if one is set and visible.
func (d *Dispatcher) Ready(ctx context.Context) {
	logger.Infof("Using prefix: %q", d.store.Prefix())

	channel := d.store.Channel()
	if channel == "" {
		return
	}

	id, ok, err := d.client.LookupChannel(ctx, channel)
	if err != nil {
		logger.Errorf("Failed to look up channel %s: %+v", channel, err)
		return
	}
	if !ok {
		logger.Warnf("Configured channel %s is not visible", channel)
		return
	}

	if err := d.client.Send(ctx, id, replyInitialized); err != nil {
		logger.Errorf("Failed to announce in %s: %+v", channel, err)
	}
}

func (d *Dispatcher) isManager(msg Message) bool {
	return slices.Contains(msg.Roles, d.managerRole)
}

// filtered returns the first removal filter term found anywhere in text.
func (d *Dispatcher) filtered(text string) (string, bool) {
	for _, term := range d.store.RemovalFilter() {
		if term != "" && strings.Contains(text, term) {
			return term, true
		}
	}
	return "", false
}

// customResponse returns the reply for the first token of text that is a
// trigger key.
func (d *Dispatcher) customResponse(text string) (string, bool) {
	responses := d.store.CustomResponses()
	if len(responses) == 0 {
		return "", false
	}

	for _, token := range strings.Fields(text) {
		if reply, ok := responses[token]; ok {
			return reply, true
		}
	}
	return "", false
}
