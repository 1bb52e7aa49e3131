package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"
	"github.com/oklahomer/go-sarah/v4"
)

// mockSession implements the session interface for testing.
type mockSession struct {
	addHandlerFunc                func(handler interface{}) func()
	openFunc                      func() error
	closeFunc                     func() error
	channelMessageSendFunc        func(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	channelMessageSendComplexFunc func(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	channelMessageDeleteFunc      func(channelID string, messageID string, options ...discordgo.RequestOption) error
}

func (m *mockSession) AddHandler(handler interface{}) func() {
	if m.addHandlerFunc != nil {
		return m.addHandlerFunc(handler)
	}
	return func() {}
}

func (m *mockSession) Open() error {
	if m.openFunc != nil {
		return m.openFunc()
	}
	return nil
}

func (m *mockSession) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

func (m *mockSession) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if m.channelMessageSendFunc != nil {
		return m.channelMessageSendFunc(channelID, content, options...)
	}
	return &discordgo.Message{}, nil
}

func (m *mockSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if m.channelMessageSendComplexFunc != nil {
		return m.channelMessageSendComplexFunc(channelID, data, options...)
	}
	return &discordgo.Message{}, nil
}

func (m *mockSession) ChannelMessageDelete(channelID string, messageID string, options ...discordgo.RequestOption) error {
	if m.channelMessageDeleteFunc != nil {
		return m.channelMessageDeleteFunc(channelID, messageID, options...)
	}
	return nil
}

const (
	botUserID = "bot-user-123"
	guildID   = "guild-1"
)

// newTestState returns a state with one guild holding a "general" and a
// "random" channel and a "Bot Manager" and a "Member" role.
func newTestState(t *testing.T) *discordgo.State {
	t.Helper()

	state := discordgo.NewState()
	state.User = &discordgo.User{ID: botUserID, Username: "serverbot"}
	err := state.GuildAdd(&discordgo.Guild{
		ID: guildID,
		Channels: []*discordgo.Channel{
			{ID: "ch-1", GuildID: guildID, Name: "general"},
			{ID: "ch-2", GuildID: guildID, Name: "random"},
		},
		Roles: []*discordgo.Role{
			{ID: "role-1", Name: "Bot Manager"},
			{ID: "role-2", Name: "Member"},
		},
	})
	if err != nil {
		t.Fatalf("Failed to set up state: %+v", err)
	}
	return state
}

func TestBotTypeValue(t *testing.T) {
	if DISCORD != sarah.BotType("discord") {
		t.Errorf("Expected DISCORD to be %q, got %q", "discord", DISCORD)
	}
}

func TestNewAdapter(t *testing.T) {
	t.Run("with token", func(t *testing.T) {
		config := NewConfig()
		config.Token = "test-token"

		adapter, err := NewAdapter(config)
		if err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}

		if adapter.session == nil {
			t.Error("Expected session to be created")
		}

		if adapter.state == nil {
			t.Error("Expected state to be taken from the new session")
		}
	})

	t.Run("without token and without session", func(t *testing.T) {
		_, err := NewAdapter(NewConfig())
		if !errors.Is(err, ErrEmptyToken) {
			t.Errorf("Expected ErrEmptyToken, got %+v", err)
		}
	})

	t.Run("with injected session", func(t *testing.T) {
		session := &discordgo.Session{State: discordgo.NewState()}

		adapter, err := NewAdapter(NewConfig(), WithSession(session))
		if err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}

		if adapter.session != session {
			t.Error("Expected injected session to be used")
		}

		if adapter.state != session.State {
			t.Error("Expected injected session's state to be used")
		}
	})

	t.Run("with ready func", func(t *testing.T) {
		called := false
		adapter, err := NewAdapter(NewConfig(), WithSession(&discordgo.Session{}), WithReadyFunc(func(context.Context) {
			called = true
		}))
		if err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}

		adapter.handleReady(context.Background(), &discordgo.Ready{User: &discordgo.User{Username: "serverbot"}})
		if !called {
			t.Error("Expected ready func to be called")
		}
	})
}

func TestAdapter_Run(t *testing.T) {
	t.Run("Open fails", func(t *testing.T) {
		mock := &mockSession{
			openFunc: func() error {
				return fmt.Errorf("connection refused")
			},
		}
		adapter := &Adapter{config: NewConfig(), session: mock}

		var notifiedErr error
		adapter.Run(context.Background(), func(input sarah.Input) error { return nil }, func(err error) {
			notifiedErr = err
		})

		if notifiedErr == nil {
			t.Fatal("Expected notifyErr to be called when Open fails")
		}

		if !strings.Contains(notifiedErr.Error(), "connection refused") {
			t.Errorf("Expected error to contain 'connection refused', got %q", notifiedErr.Error())
		}
	})

	t.Run("context canceled calls Close", func(t *testing.T) {
		closeCalls := 0
		mock := &mockSession{
			closeFunc: func() error {
				closeCalls++
				return nil
			},
		}
		adapter := &Adapter{config: NewConfig(), session: mock}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			adapter.Run(ctx, func(input sarah.Input) error { return nil }, func(err error) {})
			close(done)
		}()

		cancel()
		<-done

		if closeCalls != 1 {
			t.Errorf("Expected Close to be called once, got %d", closeCalls)
		}

		// A later Disconnect must not close the session again.
		_ = adapter.Disconnect()
		if closeCalls != 1 {
			t.Errorf("Expected Close to stay at one call, got %d", closeCalls)
		}
	})

	t.Run("message and ready handlers are registered", func(t *testing.T) {
		var handlers []interface{}
		mock := &mockSession{
			addHandlerFunc: func(handler interface{}) func() {
				handlers = append(handlers, handler)
				return func() {}
			},
			openFunc: func() error {
				return fmt.Errorf("stop here")
			},
		}
		adapter := &Adapter{config: NewConfig(), session: mock}

		adapter.Run(context.Background(), func(input sarah.Input) error { return nil }, func(err error) {})

		if len(handlers) != 2 {
			t.Fatalf("Expected 2 handlers, got %d", len(handlers))
		}
		if _, ok := handlers[0].(func(*discordgo.Session, *discordgo.MessageCreate)); !ok {
			t.Errorf("Expected a MessageCreate handler, got %T", handlers[0])
		}
		if _, ok := handlers[1].(func(*discordgo.Session, *discordgo.Ready)); !ok {
			t.Errorf("Expected a Ready handler, got %T", handlers[1])
		}
	})
}

func TestAdapter_handleMessage(t *testing.T) {
	state := newTestState(t)

	t.Run("regular message is enqueued as Input", func(t *testing.T) {
		adapter := &Adapter{config: NewConfig(), state: state}

		var received sarah.Input
		enqueue := func(input sarah.Input) error {
			received = input
			return nil
		}

		m := &discordgo.MessageCreate{
			Message: &discordgo.Message{
				ChannelID: "ch-1",
				Content:   "hello",
				Timestamp: time.Now(),
				Author:    &discordgo.User{ID: "user-1"},
			},
		}

		adapter.handleMessage(m, enqueue)

		input, ok := received.(*Input)
		if !ok {
			t.Fatalf("Expected *Input, got %T", received)
		}

		if input.Message() != "hello" {
			t.Errorf("Expected message %q, got %q", "hello", input.Message())
		}

		if input.FromSelf() {
			t.Error("Expected message not to be flagged as the bot's own")
		}
	})

	t.Run("bot's own message is flagged", func(t *testing.T) {
		adapter := &Adapter{config: NewConfig(), state: state}

		var received sarah.Input
		enqueue := func(input sarah.Input) error {
			received = input
			return nil
		}

		m := &discordgo.MessageCreate{
			Message: &discordgo.Message{
				ChannelID: "ch-1",
				Content:   "hello from bot",
				Timestamp: time.Now(),
				Author:    &discordgo.User{ID: botUserID},
			},
		}

		adapter.handleMessage(m, enqueue)

		input, ok := received.(*Input)
		if !ok {
			t.Fatalf("Expected *Input, got %T", received)
		}

		if !input.FromSelf() {
			t.Error("Expected bot's own message to be flagged")
		}
	})

	t.Run("nil author is ignored", func(t *testing.T) {
		adapter := &Adapter{config: NewConfig(), state: state}

		var received sarah.Input
		enqueue := func(input sarah.Input) error {
			received = input
			return nil
		}

		m := &discordgo.MessageCreate{
			Message: &discordgo.Message{
				ChannelID: "ch-1",
				Content:   "hello",
				Author:    nil,
			},
		}

		adapter.handleMessage(m, enqueue)

		if received != nil {
			t.Error("Message with nil Author should be ignored")
		}
	})

	t.Run("enqueue error is handled gracefully", func(t *testing.T) {
		adapter := &Adapter{config: NewConfig(), state: state}

		m := &discordgo.MessageCreate{
			Message: &discordgo.Message{
				ChannelID: "ch-1",
				Content:   "hello",
				Author:    &discordgo.User{ID: "user-1"},
			},
		}

		// Should not panic when enqueue returns an error
		adapter.handleMessage(m, func(input sarah.Input) error {
			return fmt.Errorf("queue full")
		})
	})
}

func TestAdapter_Send(t *testing.T) {
	t.Run("string content", func(t *testing.T) {
		var gotChannelID, gotContent string
		mock := &mockSession{
			channelMessageSendFunc: func(channelID, content string, opts ...discordgo.RequestOption) (*discordgo.Message, error) {
				gotChannelID = channelID
				gotContent = content
				return &discordgo.Message{}, nil
			},
		}
		adapter := &Adapter{config: NewConfig(), session: mock}

		if err := adapter.Send(context.Background(), "ch-1", "hello world"); err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}

		if gotChannelID != "ch-1" {
			t.Errorf("Expected channelID %q, got %q", "ch-1", gotChannelID)
		}
		if gotContent != "hello world" {
			t.Errorf("Expected content %q, got %q", "hello world", gotContent)
		}
	})

	t.Run("MessageSend content", func(t *testing.T) {
		var gotData *discordgo.MessageSend
		mock := &mockSession{
			channelMessageSendComplexFunc: func(channelID string, data *discordgo.MessageSend, opts ...discordgo.RequestOption) (*discordgo.Message, error) {
				gotData = data
				return &discordgo.Message{}, nil
			},
		}
		adapter := &Adapter{config: NewConfig(), session: mock}

		msg := &discordgo.MessageSend{Content: "complex msg"}
		if err := adapter.Send(context.Background(), "ch-2", msg); err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}

		if gotData != msg {
			t.Error("Expected MessageSend to be passed through")
		}
	})

	t.Run("send error is returned", func(t *testing.T) {
		mock := &mockSession{
			channelMessageSendFunc: func(channelID, content string, opts ...discordgo.RequestOption) (*discordgo.Message, error) {
				return nil, fmt.Errorf("send failed")
			},
		}
		adapter := &Adapter{config: NewConfig(), session: mock}

		if err := adapter.Send(context.Background(), "ch-1", "hello"); err == nil {
			t.Error("Expected send error to be returned")
		}
	})

	t.Run("unsupported content", func(t *testing.T) {
		adapter := &Adapter{config: NewConfig(), session: &mockSession{}}

		err := adapter.Send(context.Background(), "ch-1", 12345)
		if !errors.Is(err, ErrUnsupportedContent) {
			t.Errorf("Expected ErrUnsupportedContent, got %+v", err)
		}
	})
}

func TestAdapter_SendMessage(t *testing.T) {
	t.Run("string content", func(t *testing.T) {
		var gotContent string
		mock := &mockSession{
			channelMessageSendFunc: func(channelID, content string, opts ...discordgo.RequestOption) (*discordgo.Message, error) {
				gotContent = content
				return &discordgo.Message{}, nil
			},
		}
		adapter := &Adapter{config: NewConfig(), session: mock}

		adapter.SendMessage(context.Background(), sarah.NewOutputMessage(ChannelID("ch-1"), "hello"))

		if gotContent != "hello" {
			t.Errorf("Expected content %q, got %q", "hello", gotContent)
		}
	})

	t.Run("send error is logged", func(t *testing.T) {
		mock := &mockSession{
			channelMessageSendFunc: func(channelID, content string, opts ...discordgo.RequestOption) (*discordgo.Message, error) {
				return nil, fmt.Errorf("send failed")
			},
		}
		adapter := &Adapter{config: NewConfig(), session: mock}

		// Should not panic, just log the error
		adapter.SendMessage(context.Background(), sarah.NewOutputMessage(ChannelID("ch-1"), "hello"))
	})

	t.Run("invalid destination type", func(t *testing.T) {
		mock := &mockSession{
			channelMessageSendFunc: func(channelID, content string, opts ...discordgo.RequestOption) (*discordgo.Message, error) {
				t.Error("ChannelMessageSend should not be called for invalid destination")
				return nil, nil
			},
		}
		adapter := &Adapter{config: NewConfig(), session: mock}

		adapter.SendMessage(context.Background(), sarah.NewOutputMessage("not-a-channel-id", "hello"))
	})
}

func TestAdapter_Delete(t *testing.T) {
	var gotChannelID, gotMessageID string
	mock := &mockSession{
		channelMessageDeleteFunc: func(channelID string, messageID string, opts ...discordgo.RequestOption) error {
			gotChannelID = channelID
			gotMessageID = messageID
			return nil
		},
	}
	adapter := &Adapter{config: NewConfig(), session: mock}

	if err := adapter.Delete(context.Background(), "ch-1", "msg-1"); err != nil {
		t.Fatalf("Unexpected error: %+v", err)
	}

	if gotChannelID != "ch-1" || gotMessageID != "msg-1" {
		t.Errorf("Expected ch-1/msg-1, got %s/%s", gotChannelID, gotMessageID)
	}
}

func TestAdapter_LookupChannel(t *testing.T) {
	t.Run("known channel", func(t *testing.T) {
		adapter := &Adapter{config: NewConfig(), state: newTestState(t)}

		id, ok, err := adapter.LookupChannel(context.Background(), "random")
		if err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}
		if !ok || id != "ch-2" {
			t.Errorf("Expected ch-2, got %q (found: %t)", id, ok)
		}
	})

	t.Run("unknown channel", func(t *testing.T) {
		adapter := &Adapter{config: NewConfig(), state: newTestState(t)}

		_, ok, err := adapter.LookupChannel(context.Background(), "nowhere")
		if err != nil {
			t.Fatalf("Unexpected error: %+v", err)
		}
		if ok {
			t.Error("Expected unknown channel not to be found")
		}
	})

	t.Run("no state", func(t *testing.T) {
		adapter := &Adapter{config: NewConfig()}

		_, _, err := adapter.LookupChannel(context.Background(), "general")
		if !errors.Is(err, ErrNoState) {
			t.Errorf("Expected ErrNoState, got %+v", err)
		}
	})
}

func TestMessageToInput(t *testing.T) {
	now := time.Now()
	m := &discordgo.MessageCreate{
		Message: &discordgo.Message{
			ID:        "msg-1",
			ChannelID: "ch-1",
			GuildID:   guildID,
			Content:   "hello world",
			Timestamp: now,
			Author: &discordgo.User{
				ID:       "user-456",
				Username: "testuser",
			},
			Member: &discordgo.Member{
				Roles: []string{"role-1", "role-2", "role-gone"},
			},
		},
	}

	input, err := MessageToInput(m, newTestState(t))
	if err != nil {
		t.Fatalf("Unexpected error: %+v", err)
	}

	t.Run("SenderKey", func(t *testing.T) {
		expected := "ch-1_user-456"
		if input.SenderKey() != expected {
			t.Errorf("Expected SenderKey %q, got %q", expected, input.SenderKey())
		}
	})

	t.Run("Message", func(t *testing.T) {
		if input.Message() != "hello world" {
			t.Errorf("Expected Message %q, got %q", "hello world", input.Message())
		}
	})

	t.Run("SentAt", func(t *testing.T) {
		if !input.SentAt().Equal(now) {
			t.Errorf("Expected SentAt %v, got %v", now, input.SentAt())
		}
	})

	t.Run("ReplyTo", func(t *testing.T) {
		dest, ok := input.ReplyTo().(ChannelID)
		if !ok {
			t.Fatal("ReplyTo should return ChannelID")
		}
		if string(dest) != "ch-1" {
			t.Errorf("Expected ReplyTo %q, got %q", "ch-1", string(dest))
		}
	})

	t.Run("ChannelName", func(t *testing.T) {
		if input.ChannelName() != "general" {
			t.Errorf("Expected ChannelName %q, got %q", "general", input.ChannelName())
		}
	})

	t.Run("AuthorName", func(t *testing.T) {
		if input.AuthorName() != "testuser" {
			t.Errorf("Expected AuthorName %q, got %q", "testuser", input.AuthorName())
		}
	})

	t.Run("RoleNames skip unknown roles", func(t *testing.T) {
		if diff := cmp.Diff([]string{"Bot Manager", "Member"}, input.RoleNames()); diff != "" {
			t.Errorf("Unexpected role names (-want +got):\n%s", diff)
		}
	})

	t.Run("Event preserved", func(t *testing.T) {
		if input.Event != m {
			t.Error("Event should be preserved in Input")
		}
	})
}

func TestMessageToInput_NilAuthor(t *testing.T) {
	m := &discordgo.MessageCreate{
		Message: &discordgo.Message{
			ChannelID: "ch-1",
			Content:   "hello",
			Author:    nil,
		},
	}

	_, err := MessageToInput(m, nil)
	if !errors.Is(err, ErrNoAuthor) {
		t.Errorf("Expected ErrNoAuthor, got %+v", err)
	}
}

func TestMessageToInput_NilState(t *testing.T) {
	m := &discordgo.MessageCreate{
		Message: &discordgo.Message{
			ChannelID: "ch-1",
			Content:   "hello",
			Author:    &discordgo.User{ID: botUserID},
		},
	}

	input, err := MessageToInput(m, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %+v", err)
	}

	if input.FromSelf() || input.ChannelName() != "" || len(input.RoleNames()) != 0 {
		t.Error("Expected nothing to be resolved without state")
	}
}
