// Package hub fans classified events out to connected dashboard clients
// over WebSockets and forwards their commands to the device.
//
// A single Run goroutine owns the client registry. Register, Unregister
// and Broadcast are requests to that goroutine, so registry state is never
// shared. Each client has a bounded send buffer drained by its own write
// pump; a client whose buffer is full is evicted rather than slowing the
// others down.
//
// Inbound text frames are parsed as commands ({"command": ..., "value": ...})
// and handed to the command publisher. Nothing is sent back to the client
// that issued a command; the device's ack arrives as a normal broadcast.
package hub
