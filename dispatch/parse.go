package dispatch

import (
	"strings"
	"unicode"
)

// Invocation is a command line split into its parts.
type Invocation struct {
	// Name is the first token after the prefix.
	Name string

	// Args holds the whitespace-separated tokens after Name.
	Args []string

	// Rest is everything after Name with surrounding whitespace removed.
	// Commands taking free text use it instead of re-joining Args.
	Rest string
}

// Tokenize strips prefix from text and splits the remainder into an Invocation.
// It reports false when text does not start with prefix.
func Tokenize(prefix, text string) (Invocation, bool) {
	if !strings.HasPrefix(text, prefix) {
		return Invocation{}, false
	}

	line := strings.TrimLeftFunc(text[len(prefix):], unicode.IsSpace)
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Invocation{}, true
	}

	return Invocation{
		Name: fields[0],
		Args: fields[1:],
		Rest: strings.TrimSpace(line[len(fields[0]):]),
	}, true
}

// ParseResponse splits add-response arguments into a trigger key and its
// response text.
//
// With fewer than four double quotes, the first token is the key and the rest
// of the line is the response. Otherwise the first two quoted segments are the
// key and the response, whatever text surrounds them. The key must not be
// empty; the response may be.
func ParseResponse(rest string) (key string, text string, err error) {
	if strings.Count(rest, `"`) < 4 {
		fields := strings.Fields(rest)
		if len(fields) < 2 {
			return "", "", ErrBadQuoting
		}
		text = strings.TrimSpace(rest[strings.Index(rest, fields[0])+len(fields[0]):])
		return fields[0], text, nil
	}

	// parts[1] and parts[3] are the first two quoted segments.
	parts := strings.SplitN(rest, `"`, 5)
	key, text = parts[1], parts[3]
	if key == "" {
		return "", "", ErrBadQuoting
	}
	return key, text, nil
}
