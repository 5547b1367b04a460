package colpack_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rbmap/internal/colpack"
)

const (
	columnSize = 1000
	sortStep   = 3
)

func TestPackUnpack_Constant(t *testing.T) {
	t.Parallel()

	column := make([]uint32, columnSize)
	for idx := range column {
		column[idx] = 7
	}

	packed, err := colpack.Pack(column)
	require.NoError(t, err)
	assert.NotEmpty(t, packed)
	assert.Less(t, len(packed), columnSize*4, "constant column should compress")

	restored := make([]uint32, columnSize)
	require.NoError(t, colpack.Unpack(packed, restored))
	assert.Equal(t, column, restored)
}

func TestPackUnpack_Random(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))

	column := make([]uint32, columnSize)
	for idx := range column {
		column[idx] = rng.Uint32()
	}

	packed, err := colpack.Pack(column)
	require.NoError(t, err)

	restored := make([]uint32, columnSize)
	require.NoError(t, colpack.Unpack(packed, restored))
	assert.Equal(t, column, restored)
}

func TestPackUnpack_Empty(t *testing.T) {
	t.Parallel()

	packed, err := colpack.Pack(nil)
	require.NoError(t, err)
	assert.Nil(t, packed)
	require.NoError(t, colpack.Unpack(packed, nil))
}

func TestUnpack_Short(t *testing.T) {
	t.Parallel()

	packed, err := colpack.Pack([]uint32{1, 2})
	require.NoError(t, err)

	err = colpack.Unpack(packed, make([]uint32, 1000))
	require.Error(t, err)

	err = colpack.Unpack(nil, make([]uint32, 1))
	require.ErrorIs(t, err, colpack.ErrShortColumn)
}

func TestDelta_RoundTrip(t *testing.T) {
	t.Parallel()

	original := make([]uint32, columnSize)
	for i := range original {
		original[i] = uint32(i * sortStep)
	}

	column := append([]uint32(nil), original...)
	colpack.DeltaEncode(column)

	assert.Equal(t, original[0], column[0])

	for i := 1; i < len(column); i++ {
		assert.Equal(t, uint32(sortStep), column[i], "delta at index %d", i)
	}

	colpack.DeltaDecode(column)
	assert.Equal(t, original, column)
}

func TestDelta_Descending(t *testing.T) {
	t.Parallel()

	original := []uint32{30, 20, 10, 0}
	column := append([]uint32(nil), original...)

	colpack.DeltaEncode(column)
	colpack.DeltaDecode(column)

	assert.Equal(t, original, column)
}
