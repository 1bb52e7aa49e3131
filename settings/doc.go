// Package settings stores the bot's persistent configuration.
//
// A Store holds exactly one Config for the lifetime of the process and writes
// the whole record back to its JSON file on every mutation. Writes go through a
// temporary file and a rename so a crash never leaves a half-written file.
package settings
