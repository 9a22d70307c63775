package balance

import "errors"

// ErrNoNodesAvailable is returned when a strategy was constructed with an
// empty node set. It is the only error GetInstance returns; an all-unhealthy
// non-empty node set still yields an instance (the least-recently-failed).
var ErrNoNodesAvailable = errors.New("balance: no nodes available")
