// Package testbroker provides in-process test doubles -- a fake broker
// node and a fake discovery service -- used by this package's own
// PubConnection/SubConnection tests and by the subscription and root
// package tests.
// Nothing here is part of the client library's public surface.
package testbroker
