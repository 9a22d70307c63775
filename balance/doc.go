// Package balance selects a broker node for a publish call.
//
// A Strategy owns a set of Instance records, one per configured node, and
// is responsible for skipping nodes that recently failed while still
// returning a usable instance when every node is unhealthy -- the publish
// attempt itself is what re-marks failure, so the strategy never blocks or
// returns an error for a non-empty node set.
package balance
