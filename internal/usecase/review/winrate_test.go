package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransformShape(t *testing.T) {
	t.Parallel()

	tr := NewTransformer(1.0)

	assert.InDelta(t, 0.5, tr.Apply(0.5), 1e-9)
	assert.InDelta(t, 1-tr.Apply(0.3), tr.Apply(0.7), 1e-9)
	assert.Less(t, tr.Apply(0.6), tr.Apply(0.7))

	assert.Greater(t, tr.Apply(0), 0.0)
	assert.Less(t, tr.Apply(1), 1.0)
}

func TestTransformStdev(t *testing.T) {
	t.Parallel()

	narrow := NewTransformer(0.5)
	wide := NewTransformer(2.0)
	assert.Greater(t, narrow.Apply(0.7), wide.Apply(0.7))

	assert.Equal(t, NewTransformer(1).Apply(0.8), NewTransformer(0).Apply(0.8))
}

func TestThreshold(t *testing.T) {
	t.Parallel()

	tr := NewTransformer(1.0)
	assert.InDelta(t, 0.0797, tr.Threshold(0.05), 1e-3)
	assert.InDelta(t, 0, tr.Threshold(0), 1e-12)
	assert.Less(t, tr.Threshold(0.05), tr.Threshold(0.1))
}
