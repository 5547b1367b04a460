// Package colpack packs uint32 columns into LZ4 blocks. The arena uses it to
// keep the topology of idle trees compressed.
package colpack

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// uint32ByteSize is the number of bytes in a uint32.
const uint32ByteSize = 4

// ErrShortColumn is returned when a packed column decodes to fewer values than requested.
var ErrShortColumn = errors.New("packed column is shorter than expected")

// Pack compresses a column of uint32-s with LZ4. An empty column packs to nil.
func Pack(column []uint32) ([]byte, error) {
	if len(column) == 0 {
		return nil, nil
	}

	raw := make([]byte, len(column)*uint32ByteSize)
	for idx, value := range column {
		binary.LittleEndian.PutUint32(raw[idx*uint32ByteSize:], value)
	}

	packed := make([]byte, lz4.CompressBlockBound(len(raw)))

	written, err := lz4.CompressBlock(raw, packed, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}

	if written == 0 {
		// Incompressible input: lz4 leaves the block empty, store it verbatim.
		return append([]byte{0}, raw...), nil
	}

	return append([]byte{1}, packed[:written]...), nil
}

// Unpack restores a column produced by Pack into result, which must have the
// original length.
func Unpack(packed []byte, result []uint32) error {
	if len(result) == 0 {
		return nil
	}

	if len(packed) == 0 {
		return fmt.Errorf("%w: want %d values, got none", ErrShortColumn, len(result))
	}

	raw := packed[1:]

	if packed[0] == 1 {
		raw = make([]byte, len(result)*uint32ByteSize)

		read, err := lz4.UncompressBlock(packed[1:], raw)
		if err != nil {
			return fmt.Errorf("lz4 uncompress: %w", err)
		}

		raw = raw[:read]
	}

	if len(raw) < len(result)*uint32ByteSize {
		return fmt.Errorf("%w: want %d values, got %d", ErrShortColumn, len(result), len(raw)/uint32ByteSize)
	}

	for idx := range result {
		result[idx] = binary.LittleEndian.Uint32(raw[idx*uint32ByteSize:])
	}

	return nil
}

// DeltaEncode replaces each element with the difference from its predecessor,
// in place. Sorted columns turn into small repetitive values.
func DeltaEncode(column []uint32) {
	for i := len(column) - 1; i > 0; i-- {
		column[i] -= column[i-1]
	}
}

// DeltaDecode reverses DeltaEncode in place.
func DeltaDecode(column []uint32) {
	for i := 1; i < len(column); i++ {
		column[i] += column[i-1]
	}
}
