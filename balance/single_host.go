package balance

// SingleHost is the trivial strategy for a single configured broker node.
type SingleHost struct {
	instance *Instance
}

var _ Strategy = (*SingleHost)(nil)

// NewSingleHost builds a SingleHost strategy around instance.
func NewSingleHost(instance *Instance) *SingleHost {
	return &SingleHost{instance: instance}
}

// GetInstance always returns the one configured instance.
func (s *SingleHost) GetInstance() (*Instance, error) {
	return s.instance, nil
}

// Instances returns the single configured node.
func (s *SingleHost) Instances() []*Instance {
	return []*Instance{s.instance}
}
