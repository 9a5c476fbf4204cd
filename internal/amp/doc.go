// Package amp is the typed control surface of the amplifier.
//
// Ownership boundary:
// - encode, submit, await and decode for each zone operation
// - wiring transport.Channel and queue.Queue into one Amplifier
// - zone and source switching policy over a config.Layout
//
// amp never writes to the port directly; every command goes through the queue.
package amp
