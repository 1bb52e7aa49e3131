// Package dispatch decides what the bot does with each incoming message.
//
// Every message passes through the same stages in order: the removal filter,
// custom responses, the prefix and channel gate, and finally the command
// table. Commands read and change the bot's settings.Store and answer through
// a Client. Dispatch handles one message at a time.
package dispatch
