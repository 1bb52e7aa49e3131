package discord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah/v4"
)

const (
	// DISCORD is a designated sarah.BotType for Discord integration.
	DISCORD sarah.BotType = "discord"
)

// session is an internal interface that abstracts the discordgo.Session methods
// used by the Adapter. This allows mocking the session in tests.
// *discordgo.Session satisfies this interface.
type session interface {
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID string, messageID string, options ...discordgo.RequestOption) error
}

// ChannelID represents a Discord channel as sarah.OutputDestination.
type ChannelID string

var _ sarah.OutputDestination = ChannelID("")

// AdapterOption defines a function signature for Adapter's functional options.
type AdapterOption func(adapter *Adapter)

// WithSession creates an AdapterOption with the given *discordgo.Session.
// Use this to inject a pre-configured session.
// If this option is not given, NewAdapter creates a new session from Config.Token.
func WithSession(session *discordgo.Session) AdapterOption {
	return func(adapter *Adapter) {
		adapter.session = session
		adapter.state = session.State
	}
}

// WithReadyFunc registers fnc to be called each time the gateway reports the
// connection as ready. The context is the one given to Run.
func WithReadyFunc(fnc func(context.Context)) AdapterOption {
	return func(adapter *Adapter) {
		adapter.onReady = fnc
	}
}

// Adapter is a sarah.Adapter implementation for Discord.
type Adapter struct {
	config  *Config
	session session
	state   *discordgo.State
	onReady func(context.Context)

	closeOnce sync.Once
	closeErr  error
}

var _ sarah.Adapter = (*Adapter)(nil)

// NewAdapter creates a new Adapter with the given Config and options.
func NewAdapter(config *Config, options ...AdapterOption) (*Adapter, error) {
	adapter := &Adapter{
		config: config,
	}

	for _, opt := range options {
		opt(adapter)
	}

	if adapter.session == nil {
		if config.Token == "" {
			return nil, ErrEmptyToken
		}

		s, err := discordgo.New("Bot " + config.Token)
		if err != nil {
			return nil, fmt.Errorf("failed to create Discord session: %w", err)
		}
		s.Identify.Intents = config.Intents
		adapter.session = s
		adapter.state = s.State
	}

	return adapter, nil
}

// BotType returns a designated BotType for Discord integration.
func (a *Adapter) BotType() sarah.BotType {
	return DISCORD
}

// Run establishes a connection with Discord and blocks until the context is canceled.
func (a *Adapter) Run(ctx context.Context, enqueueInput func(sarah.Input) error, notifyErr func(error)) {
	a.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		a.handleMessage(m, enqueueInput)
	})
	a.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		a.handleReady(ctx, r)
	})

	err := a.session.Open()
	if err != nil {
		notifyErr(sarah.NewBotNonContinuableError(fmt.Sprintf("failed to open Discord session: %s", err.Error())))
		return
	}

	// Block until the context is canceled.
	<-ctx.Done()

	if closeErr := a.Disconnect(); closeErr != nil {
		logger.Errorf("Failed to close Discord session: %+v", closeErr)
	}
}

func (a *Adapter) handleReady(ctx context.Context, r *discordgo.Ready) {
	if r.User != nil {
		logger.Infof("Logged on as %s", r.User.Username)
	}

	if a.onReady != nil {
		a.onReady(ctx)
	}
}

// handleMessage converts an incoming Discord message and routes it to enqueueInput.
// Messages written by the bot itself are forwarded too, flagged by Input.FromSelf.
func (a *Adapter) handleMessage(m *discordgo.MessageCreate, enqueueInput func(sarah.Input) error) {
	input, err := MessageToInput(m, a.state)
	if err != nil {
		// MessageToInput returns ErrNoAuthor for system messages with no author.
		logger.Debugf("Skipping message: %+v", err)
		return
	}

	if err := enqueueInput(input); err != nil {
		logger.Errorf("Failed to enqueue input: %+v", err)
	}
}

// SendMessage sends the given message to Discord.
func (a *Adapter) SendMessage(ctx context.Context, output sarah.Output) {
	destination, ok := output.Destination().(ChannelID)
	if !ok {
		logger.Errorf("Destination is not instance of ChannelID. %#v.", output.Destination())
		return
	}

	if err := a.Send(ctx, string(destination), output.Content()); err != nil {
		logger.Errorf("Failed to send message to %s: %+v", destination, err)
	}
}

// Send posts content to the channel. content must be a string or a
// *discordgo.MessageSend such as a rich embed.
func (a *Adapter) Send(ctx context.Context, channelID string, content interface{}) error {
	switch c := content.(type) {
	case string:
		_, err := a.session.ChannelMessageSend(channelID, c, discordgo.WithContext(ctx))
		return err

	case *discordgo.MessageSend:
		_, err := a.session.ChannelMessageSendComplex(channelID, c, discordgo.WithContext(ctx))
		return err

	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedContent, content)
	}
}

// Delete removes a message from its channel.
func (a *Adapter) Delete(ctx context.Context, channelID string, messageID string) error {
	return a.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}

// LookupChannel searches every channel the bot can see for one with the given
// name and returns its ID. The first match wins when several guilds share a name.
func (a *Adapter) LookupChannel(_ context.Context, name string) (string, bool, error) {
	if a.state == nil {
		return "", false, ErrNoState
	}

	a.state.RLock()
	defer a.state.RUnlock()
	for _, guild := range a.state.Guilds {
		for _, ch := range guild.Channels {
			if ch.Name == name {
				return ch.ID, true, nil
			}
		}
	}
	return "", false, nil
}

// Disconnect closes the Discord session. Calls after the first are no-ops
// and return the first call's result.
func (a *Adapter) Disconnect() error {
	a.closeOnce.Do(func() {
		a.closeErr = a.session.Close()
	})
	return a.closeErr
}

// Input is a sarah.Input implementation that represents a received Discord message.
type Input struct {
	Event       *discordgo.MessageCreate
	senderKey   string
	text        string
	sentAt      time.Time
	channelID   ChannelID
	channelName string
	authorName  string
	roleNames   []string
	fromSelf    bool
}

var _ sarah.Input = (*Input)(nil)

// SenderKey returns a unique key representing the sender in the channel.
func (i *Input) SenderKey() string {
	return i.senderKey
}

// Message returns the received text.
func (i *Input) Message() string {
	return i.text
}

// SentAt returns when the message was sent.
func (i *Input) SentAt() time.Time {
	return i.sentAt
}

// ReplyTo returns the Discord channel where the message was received.
func (i *Input) ReplyTo() sarah.OutputDestination {
	return i.channelID
}

// ChannelName returns the name of the channel the message was posted in,
// or an empty string when the channel is not in the session state.
func (i *Input) ChannelName() string {
	return i.channelName
}

// AuthorName returns the author's username.
func (i *Input) AuthorName() string {
	return i.authorName
}

// RoleNames returns the names of the author's guild roles.
func (i *Input) RoleNames() []string {
	return i.roleNames
}

// FromSelf reports whether the bot wrote the message.
func (i *Input) FromSelf() bool {
	return i.fromSelf
}

// MessageToInput converts a *discordgo.MessageCreate event to *Input.
// Channel and role names are resolved from state, which may be nil.
func MessageToInput(m *discordgo.MessageCreate, state *discordgo.State) (*Input, error) {
	if m.Author == nil {
		return nil, ErrNoAuthor
	}

	input := &Input{
		Event:      m,
		senderKey:  fmt.Sprintf("%s_%s", m.ChannelID, m.Author.ID),
		text:       m.Content,
		sentAt:     m.Timestamp,
		channelID:  ChannelID(m.ChannelID),
		authorName: m.Author.Username,
	}

	if state == nil {
		return input, nil
	}

	if state.User != nil && m.Author.ID == state.User.ID {
		input.fromSelf = true
	}

	if ch, err := state.Channel(m.ChannelID); err == nil {
		input.channelName = ch.Name
	}

	if m.Member != nil && m.GuildID != "" {
		for _, roleID := range m.Member.Roles {
			role, err := state.Role(m.GuildID, roleID)
			if err != nil {
				logger.Debugf("Unknown role %s in guild %s: %+v", roleID, m.GuildID, err)
				continue
			}
			input.roleNames = append(input.roleNames, role.Name)
		}
	}

	return input, nil
}
