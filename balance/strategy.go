package balance

// Strategy maps a publish call to an Instance. Implementations must be
// safe for concurrent use; selection is expected to run over at most a few
// dozen nodes per call.
type Strategy interface {
	// GetInstance returns a non-nil Instance. It does not dial: the
	// Instance's Connection method opens a PubConnection on demand. It fails
	// with ErrNoNodesAvailable only if the configured node set is empty.
	GetInstance() (*Instance, error)

	// Instances returns every node the strategy is configured with,
	// regardless of health, for diagnostics and testing.
	Instances() []*Instance
}
