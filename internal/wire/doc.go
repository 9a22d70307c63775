// Package wire implements the framed TCP primitive that PubConnection and
// SubConnection are built on: the four-byte magic handshake, an IDENTIFY
// exchange, newline-terminated commands (PUB, MPUB, SUB, RDY, FIN, REQ,
// TOUCH, CLS, NOP) with length-prefixed bodies for IDENTIFY, PUB and MPUB,
// and length-prefixed response/error/message frames.
//
// This package owns exactly one concern: getting bytes on and off the wire
// in the broker's framing. It knows nothing about topics, subscriptions, or
// balancing.
package wire
