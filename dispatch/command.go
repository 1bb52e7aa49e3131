package dispatch

import "context"

// Arity bounds the number of whitespace-separated arguments a command accepts.
// Max < 0 means no upper bound.
type Arity struct {
	Min int
	Max int
}

func (a Arity) allows(n int) bool {
	return n >= a.Min && (a.Max < 0 || n <= a.Max)
}

// Handler runs a command and returns the reply content: a string, a
// *discordgo.MessageSend, or nil when the handler already answered itself.
type Handler func(d *Dispatcher, ctx context.Context, msg Message, inv Invocation) (interface{}, error)

// Command is one row of the command table.
type Command struct {
	Name string

	// Usage is the argument synopsis shown by help, e.g. "<prefix>".
	Usage string

	// Help is the one-line description shown by help.
	Help string

	// Manager marks commands that require the manager role.
	Manager bool

	Arity Arity
	Run   Handler
}

// Commands returns the command table in the order help lists it.
func Commands() []Command {
	return []Command{
		{
			Name:  "motm",
			Help:  "Prints Message of the Month.",
			Arity: Arity{Min: 0, Max: 0},
			Run:   (*Dispatcher).motm,
		},
		{
			Name:    "smotm",
			Usage:   "<message>",
			Help:    "Sets Message of the Month.",
			Manager: true,
			Arity:   Arity{Min: 1, Max: -1},
			Run:     (*Dispatcher).setMOTM,
		},
		{
			Name:    "set-prefix",
			Usage:   "<prefix>",
			Help:    "Sets prefix that the bot responds to.",
			Manager: true,
			Arity:   Arity{Min: 1, Max: 1},
			Run:     (*Dispatcher).setPrefix,
		},
		{
			Name:    "set-channel",
			Usage:   "<channel>",
			Help:    "Sets sole response channel. Pass '~' to respond to all channels.",
			Manager: true,
			Arity:   Arity{Min: 1, Max: 1},
			Run:     (*Dispatcher).setChannel,
		},
		{
			Name:    "get-removal-filter",
			Help:    "Prints terms that are set to be automatically deleted.",
			Manager: true,
			Arity:   Arity{Min: 0, Max: 0},
			Run:     (*Dispatcher).getRemovalFilter,
		},
		{
			Name:    "add-filter",
			Usage:   "<filter-item>",
			Help:    "Adds a term to be filtered.",
			Manager: true,
			Arity:   Arity{Min: 1, Max: -1},
			Run:     (*Dispatcher).addFilter,
		},
		{
			Name:    "remove-filter",
			Usage:   "<filter-item>",
			Help:    "Removes a term from the filter list.",
			Manager: true,
			Arity:   Arity{Min: 1, Max: -1},
			Run:     (*Dispatcher).removeFilter,
		},
		{
			Name:    "lock-responses",
			Usage:   "[boolean]",
			Help:    "Locks custom responses to selected channel if any channel is set. Leaving out a boolean argument will print the current setting.",
			Manager: true,
			Arity:   Arity{Min: 0, Max: 1},
			Run:     (*Dispatcher).lockResponses,
		},
		{
			Name:    "custom-responses",
			Help:    "Prints custom responses.",
			Manager: true,
			Arity:   Arity{Min: 0, Max: 0},
			Run:     (*Dispatcher).customResponses,
		},
		{
			Name:    "add-response",
			Usage:   `<key> <response> | "<key>" "<response>"`,
			Help:    "Adds a custom response.",
			Manager: true,
			Arity:   Arity{Min: 2, Max: -1},
			Run:     (*Dispatcher).addResponse,
		},
		{
			Name:    "remove-response",
			Usage:   "<key>",
			Help:    "Removes a custom response.",
			Manager: true,
			Arity:   Arity{Min: 1, Max: -1},
			Run:     (*Dispatcher).removeResponse,
		},
		{
			Name:    "exit",
			Help:    "Exits bot.",
			Manager: true,
			Arity:   Arity{Min: 0, Max: 0},
			Run:     (*Dispatcher).exit,
		},
		{
			Name:  "help",
			Help:  "Prints help document.",
			Arity: Arity{Min: 0, Max: 0},
			Run:   (*Dispatcher).help,
		},
	}
}
