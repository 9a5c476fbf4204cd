// Package protocol owns the amplifier's ASCII wire contract.
//
// Ownership boundary:
// - command string builders
// - status/settings reply decoders
// - line framing (see package line)
//
// The wire carries no correlation identifiers. Callers pair replies with
// commands by order alone (see package queue).
package protocol
