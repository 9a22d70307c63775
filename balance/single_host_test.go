package balance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleHost_GetInstance(t *testing.T) {
	inst := newTestInstance("nsqd-0")
	strategy := NewSingleHost(inst)

	got, err := strategy.GetInstance()
	require.NoError(t, err)
	assert.Same(t, inst, got)
	assert.Equal(t, []*Instance{inst}, strategy.Instances())
}
