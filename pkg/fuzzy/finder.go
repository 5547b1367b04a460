// Package fuzzy implements a case-insensitive word finder with tolerant
// prefix search. It is a trie whose child tables are rbtree maps sharing a
// single node arena.
package fuzzy

import (
	"iter"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/rbmap/pkg/rbtree"
)

// DefaultMissBudget is the number of consecutive trie levels a prefix search
// may skip without matching a character.
const DefaultMissBudget = 3

type node[V any] struct {
	children *rbtree.Map[rune, *node[V]]
	values   []V
}

// Finder maps words to values.
type Finder[V any] struct {
	arena *rbtree.Arena[rune, *node[V]]
	root  *node[V]
	words int

	// MissBudget bounds how many trie levels SearchPrefix may skip in a row.
	MissBudget int
}

// New creates an empty finder.
func New[V any]() *Finder[V] {
	finder := &Finder[V]{
		arena:      rbtree.NewArena[rune, *node[V]](),
		MissBudget: DefaultMissBudget,
	}
	finder.root = finder.newNode()

	return finder
}

func (f *Finder[V]) newNode() *node[V] {
	return &node[V]{children: rbtree.NewIn[rune, *node[V]](f.arena)}
}

// Arena exposes the arena shared by all child tables.
func (f *Finder[V]) Arena() *rbtree.Arena[rune, *node[V]] {
	return f.arena
}

// Len returns the number of inserted (word, value) pairs.
func (f *Finder[V]) Len() int {
	return f.words
}

// Insert adds value under word. A word may carry several values.
func (f *Finder[V]) Insert(word string, value V) {
	nd := f.root

	for _, r := range strings.ToLower(word) {
		nd = *nd.children.Entry(r).OrInsertWith(f.newNode)
	}

	nd.values = append(nd.values, value)
	f.words++
}

// Extend inserts every pair yielded by seq.
func (f *Finder[V]) Extend(seq iter.Seq2[string, V]) {
	for word, value := range seq {
		f.Insert(word, value)
	}
}

// Search returns the values stored under exactly word, or nil.
func (f *Finder[V]) Search(word string) []V {
	nd := f.root

	for _, r := range strings.ToLower(word) {
		next, ok := nd.children.Get(r)
		if !ok {
			return nil
		}

		nd = next
	}

	if len(nd.values) == 0 {
		return nil
	}

	return slices.Clone(nd.values)
}

type probe[V any] struct {
	nd     *node[V]
	rest   []rune
	misses int
}

// SearchPrefix returns the values of every word that contains the
// characters of prefix in order, allowing up to MissBudget unmatched trie
// levels between consecutive matches. Values of words that extend a matched
// position are included. It returns nil when nothing matches.
func (f *Finder[V]) SearchPrefix(prefix string) []V {
	matched := f.match([]rune(strings.ToLower(prefix)))

	// Collect every node with values below the matched positions.
	seen := make(map[*node[V]]struct{})

	var found []*node[V]

	for len(matched) > 0 {
		nd := matched[len(matched)-1]
		matched = matched[:len(matched)-1]

		if _, dup := seen[nd]; !dup && len(nd.values) > 0 {
			seen[nd] = struct{}{}
			found = append(found, nd)
		}

		for _, child := range nd.children.All() {
			matched = append(matched, child)
		}
	}

	if len(found) == 0 {
		return nil
	}

	var values []V

	for _, nd := range slices.Backward(found) {
		values = append(values, nd.values...)
	}

	return values
}

// match walks the trie depth-first and returns the distinct nodes where the
// whole query has been consumed.
func (f *Finder[V]) match(query []rune) []*node[V] {
	seen := make(map[*node[V]]struct{})

	var matched []*node[V]

	stack := []probe[V]{{nd: f.root, rest: query}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if len(top.rest) == 0 {
			if _, dup := seen[top.nd]; !dup {
				seen[top.nd] = struct{}{}
				matched = append(matched, top.nd)
			}

			continue
		}

		want := top.rest[0]

		for r, child := range top.nd.children.Backward() {
			if r == want {
				stack = append(stack, probe[V]{nd: child, rest: top.rest[1:]})
			}

			if top.misses < f.MissBudget {
				stack = append(stack, probe[V]{nd: child, rest: top.rest, misses: top.misses + 1})
			}
		}
	}

	return matched
}
