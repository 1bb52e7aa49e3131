package discord

import "errors"

// ErrEmptyToken indicates that no token was provided and no session was injected via WithSession.
var ErrEmptyToken = errors.New("token must be set or a session must be provided via WithSession")

// ErrNoAuthor indicates that the given message has no author.
var ErrNoAuthor = errors.New("message has no author")

// ErrUnsupportedContent indicates that the content given to Send is neither a string nor a *discordgo.MessageSend.
var ErrUnsupportedContent = errors.New("unsupported message content")

// ErrNoState indicates that the session keeps no gateway state to look channels up in.
var ErrNoState = errors.New("session state is not available")
