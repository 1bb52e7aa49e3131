package settings

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultPrefix is the command prefix used while no prefix is stored.
const DefaultPrefix = "sb!"

// Config is the flat record persisted to the settings file.
type Config struct {
	// Token is the Discord bot token.
	Token string `json:"token"`

	// Prefix is the command prefix. Empty means DefaultPrefix.
	Prefix string `json:"prefix"`

	// MOTM is the message of the month. Empty means unset.
	MOTM string `json:"motm"`

	// Channel is the only channel the bot answers commands in.
	// Empty means every channel.
	Channel string `json:"channel"`

	// CustomResponses maps a trigger word to the text sent when it appears.
	CustomResponses map[string]string `json:"custom-responses"`

	// RemovalFilter holds substrings that get a message deleted.
	// It is kept free of duplicates.
	RemovalFilter []string `json:"removal-filter"`

	// LockChannelResponses disables custom responses while true.
	LockChannelResponses Flag `json:"lock-channel-custom-resp"`
}

// NewConfig returns a Config with every field at its default.
func NewConfig() *Config {
	return &Config{
		CustomResponses:      map[string]string{},
		RemovalFilter:        []string{},
		LockChannelResponses: true,
	}
}

func (c *Config) clone() Config {
	out := *c
	out.CustomResponses = make(map[string]string, len(c.CustomResponses))
	for k, v := range c.CustomResponses {
		out.CustomResponses[k] = v
	}
	out.RemovalFilter = append([]string{}, c.RemovalFilter...)
	return out
}

// normalize replaces nil collections left by a sparse file with empty ones.
func (c *Config) normalize() {
	if c.CustomResponses == nil {
		c.CustomResponses = map[string]string{}
	}
	if c.RemovalFilter == nil {
		c.RemovalFilter = []string{}
	}
}

// Flag is a bool that also decodes from the "True"/"False" strings older
// settings files were written with.
type Flag bool

// UnmarshalJSON accepts a JSON bool or a case-insensitive "true"/"false" string.
// A JSON null leaves the flag unchanged.
func (f *Flag) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = Flag(b)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("lock flag must be a bool or a string: %w", err)
	}
	switch strings.ToLower(s) {
	case "true":
		*f = true
	case "false", "":
		*f = false
	default:
		return fmt.Errorf("invalid lock flag %q", s)
	}
	return nil
}
