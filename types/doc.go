// Package types holds the shared vocabulary of the nsq-j client: addressing,
// message envelopes, handler contracts, and the Logger/MetricsCollector
// interfaces that every other package depends on without depending on each
// other. Nothing in this package imports another nsq-j package.
package types
