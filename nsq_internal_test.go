package nsq_test

import "time"

// Shared timing constants for require.Eventually polls across the root
// package's test files.
const (
	oneSecond = time.Second
	tick      = 10 * time.Millisecond
)
