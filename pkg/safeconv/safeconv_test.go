package safeconv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMustIntToUint32(t *testing.T) {
	t.Parallel()

	t.Run("normal_value", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, uint32(42), MustIntToUint32(42))
	})

	t.Run("max", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, MaxUint32, MustIntToUint32(int(MaxUint32)))
	})

	t.Run("negative_panics", func(t *testing.T) {
		t.Parallel()

		assert.PanicsWithValue(t, "safeconv: int to uint32 out of bounds", func() {
			MustIntToUint32(-1)
		})
	})

	t.Run("overflow_panics", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() {
			MustIntToUint32(int(MaxUint32) + 1)
		})
	})
}

func TestMustUint32ToUint8(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint8(math.MaxUint8), MustUint32ToUint8(math.MaxUint8))
	assert.PanicsWithValue(t, "safeconv: uint32 to uint8 overflow", func() {
		MustUint32ToUint8(math.MaxUint8 + 1)
	})
}

func TestMustIntToUint64(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(7), MustIntToUint64(7))
	assert.PanicsWithValue(t, "safeconv: negative int to uint64 conversion", func() {
		MustIntToUint64(-7)
	})
}
