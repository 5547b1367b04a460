package workload

import (
	"fmt"
	"strconv"

	"github.com/Sumatoshi-tech/rbmap/pkg/rbtree"
)

// DumpValue is the value stored for key by the inspection helpers.
func DumpValue(key int64) string {
	return "v" + strconv.FormatInt(key, 10)
}

// Dump inserts keys in order, then removes the given keys, and returns the
// level-order dump of the resulting tree.
func Dump(inserts, removes []int64) (string, error) {
	tree := rbtree.New[int64, string]()

	for _, key := range inserts {
		tree.Insert(key, DumpValue(key))
	}

	for _, key := range removes {
		tree.Remove(key)
	}

	err := tree.Validate()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCheck, err)
	}

	return tree.String(), nil
}

// CloneResult holds the dumps of an original map and its mutated clone.
type CloneResult struct {
	Original string
	Clone    string
	Diff     string
}

// CloneAndMutate builds a map from keys, deep-clones it, inserts extra into
// the clone and drops its smallest key. The original must come out
// untouched.
func CloneAndMutate(keys, extra []int64) (*CloneResult, error) {
	original := rbtree.New[int64, string]()
	for _, key := range keys {
		original.Insert(key, DumpValue(key))
	}

	before := original.String()
	clone := original.Clone()

	for _, key := range extra {
		clone.Insert(key, DumpValue(key))
	}

	clone.PopFirst()

	for _, tree := range []*rbtree.Map[int64, string]{original, clone} {
		err := tree.Validate()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCheck, err)
		}
	}

	after := original.String()
	if after != before {
		return nil, fmt.Errorf("%w: original changed through its clone:\n%s", ErrMismatch, LineDiff(before, after))
	}

	cloned := clone.String()

	return &CloneResult{Original: after, Clone: cloned, Diff: LineDiff(after, cloned)}, nil
}
