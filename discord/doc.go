// Package discord provides a sarah.Adapter implementation for Discord.
//
// The adapter converts Discord message events into *Input values carrying
// everything the dispatcher needs to decide on a message: the author's role
// names, the channel name, and whether the bot itself wrote it. It also
// exposes the few Discord operations the dispatcher performs directly:
// sending, deleting, looking up channels by name, and disconnecting.
package discord
