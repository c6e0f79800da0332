package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKpReading_Validate(t *testing.T) {
	for _, v := range []float64{0, 0.33, 5, 8.67, 9} {
		require.NoError(t, KpReading{Value: v}.Validate(), "value %v", v)
	}
	for _, v := range []float64{math.NaN(), math.Inf(1), -0.1, 9.01, 42} {
		err := KpReading{Value: v}.Validate()
		require.Error(t, err, "value %v", v)
		assert.ErrorIs(t, err, ErrInvalidReading)
	}
}
