package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepBudget_NeverExceedsMax(t *testing.T) {
	b := NewStepBudget(3)

	for want := 1; want <= 3; want++ {
		step, err := b.Next()
		require.NoError(t, err)
		assert.Equal(t, want, step)
	}

	_, err := b.Next()
	assert.True(t, errors.Is(err, ErrBudgetExhausted))
	assert.Equal(t, 3, b.Count())
	assert.Equal(t, 0, b.Remaining())
}

func TestStepBudget_MinimumOne(t *testing.T) {
	b := NewStepBudget(0)
	assert.Equal(t, 1, b.Max())

	_, err := b.Next()
	assert.NoError(t, err)

	_, err = b.Next()
	assert.Error(t, err)
}
