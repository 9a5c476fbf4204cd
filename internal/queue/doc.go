// Package queue owns single-flight command dispatch.
//
// Ownership boundary:
// - FIFO ordering of submitted commands
// - inter-command delay before every physical write
// - reply attribution by order (the wire has no request ids)
// - write, read and reply-timeout rejection
//
// Exactly one command is written and awaiting a reply at any instant. A
// settled command, whatever its outcome, advances the queue to the next one.
package queue
