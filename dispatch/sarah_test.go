package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"

	"github.com/serverbot-dev/serverbot/discord"
)

func newDiscordInput(t *testing.T, content string) *discord.Input {
	t.Helper()

	state := discordgo.NewState()
	err := state.GuildAdd(&discordgo.Guild{
		ID:       "guild-1",
		Channels: []*discordgo.Channel{{ID: "ch-1", GuildID: "guild-1", Name: "general"}},
		Roles:    []*discordgo.Role{{ID: "role-1", Name: DefaultManagerRole}},
	})
	if err != nil {
		t.Fatalf("Failed to set up state: %+v", err)
	}

	m := &discordgo.MessageCreate{
		Message: &discordgo.Message{
			ID:        "msg-1",
			ChannelID: "ch-1",
			GuildID:   "guild-1",
			Content:   content,
			Timestamp: time.Now(),
			Author:    &discordgo.User{ID: "user-1", Username: "alice"},
			Member:    &discordgo.Member{Roles: []string{"role-1"}},
		},
	}

	input, err := discord.MessageToInput(m, state)
	if err != nil {
		t.Fatalf("Unexpected error: %+v", err)
	}
	return input
}

func TestMessageFromInput(t *testing.T) {
	got := MessageFromInput(newDiscordInput(t, "sb!help"))

	want := Message{
		ID:          "msg-1",
		ChannelID:   "ch-1",
		ChannelName: "general",
		AuthorName:  "alice",
		Text:        "sb!help",
		Roles:       []string{DefaultManagerRole},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Unexpected message (-want +got):\n%s", diff)
	}
}

func TestDispatcher_CommandProps(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	props, err := d.CommandProps()
	if err != nil {
		t.Fatalf("Unexpected error: %+v", err)
	}
	if props == nil {
		t.Fatal("Expected non-nil props")
	}
}

func TestDispatcher_respond(t *testing.T) {
	d, client, store := newTestDispatcher(t)

	res, err := d.respond(context.Background(), newDiscordInput(t, "sb!smotm from discord"))
	if err != nil {
		t.Fatalf("Unexpected error: %+v", err)
	}
	if res != nil {
		t.Errorf("Expected no go-sarah response, got %+v", res)
	}

	if store.MOTM() != "from discord" {
		t.Errorf("Expected MOTM to be set, got %q", store.MOTM())
	}
	if len(client.sent) != 1 || client.sent[0].channelID != "ch-1" {
		t.Errorf("Expected a reply in ch-1, got %v", client.sent)
	}
}
