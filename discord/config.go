package discord

import "github.com/bwmarrin/discordgo"

// Config contains configuration variables for the Discord Adapter.
type Config struct {
	// Token is the Discord bot token used for authentication.
	Token string `json:"token" yaml:"token"`

	// Intents declares the Gateway Intents the bot requires.
	// Guild events are needed to keep channel and role names in the session state.
	Intents discordgo.Intent `json:"intents" yaml:"intents"`
}

// NewConfig creates and returns a new Config instance with default settings.
// Token is empty and must be set before use.
func NewConfig() *Config {
	return &Config{
		Token:   "",
		Intents: discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent,
	}
}
