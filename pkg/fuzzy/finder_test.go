package fuzzy_test

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rbmap/pkg/fuzzy"
)

func TestSearch(t *testing.T) {
	t.Parallel()

	finder := fuzzy.New[int]()
	finder.Insert("hello", 1)

	assert.Equal(t, []int{1}, finder.Search("hello"))
	assert.Nil(t, finder.Search("world"))
	assert.Nil(t, finder.Search("hell"), "prefixes of words are not words")
	assert.Equal(t, 1, finder.Len())
}

func TestSearchIgnoresCase(t *testing.T) {
	t.Parallel()

	finder := fuzzy.New[string]()
	finder.Insert("GoLang", "a")
	finder.Insert("golang", "b")

	assert.Equal(t, []string{"a", "b"}, finder.Search("GOLANG"))
}

func TestSearchPrefix(t *testing.T) {
	t.Parallel()

	finder := fuzzy.New[int]()
	finder.Insert("hello", 1)
	finder.Insert("ello", 2)

	assert.Equal(t, []int{1}, finder.SearchPrefix("he"))
	assert.Equal(t, []int{2, 1}, finder.SearchPrefix("e"))
	assert.Nil(t, finder.SearchPrefix("w"))
}

func TestSearchPrefixMissBudget(t *testing.T) {
	t.Parallel()

	finder := fuzzy.New[string]()
	finder.Insert("abcdefg", "long")

	// Skipping b, c and d is within the budget.
	assert.Equal(t, []string{"long"}, finder.SearchPrefix("ae"))

	// Skipping four levels in a row is not.
	assert.Nil(t, finder.SearchPrefix("af"))

	// Each match resets the budget.
	assert.Equal(t, []string{"long"}, finder.SearchPrefix("aeg"))

	// Leading levels count as misses too.
	assert.Equal(t, []string{"long"}, finder.SearchPrefix("d"))
	assert.Nil(t, finder.SearchPrefix("e"))

	finder.MissBudget = 0
	assert.Nil(t, finder.SearchPrefix("ae"))
	assert.Equal(t, []string{"long"}, finder.SearchPrefix("abc"))
}

func TestSearchPrefixDeduplicates(t *testing.T) {
	t.Parallel()

	finder := fuzzy.New[int]()
	finder.Insert("aaa", 1)

	// "a" matches at three depths; the word is reported once.
	assert.Equal(t, []int{1}, finder.SearchPrefix("a"))
}

func TestSearchPrefixEmpty(t *testing.T) {
	t.Parallel()

	finder := fuzzy.New[int]()
	assert.Nil(t, finder.SearchPrefix(""))

	finder.Insert("b", 2)
	finder.Insert("a", 1)
	finder.Insert("ab", 3)

	got := finder.SearchPrefix("")
	assert.ElementsMatch(t, []int{1, 2, 3}, got)
}

func TestExtendSharesArena(t *testing.T) {
	t.Parallel()

	finder := fuzzy.New[int]()
	finder.Extend(maps.All(map[string]int{"tea": 1, "ten": 2, "to": 3}))

	require.Equal(t, 3, finder.Len())
	assert.Equal(t, []int{2}, finder.Search("ten"))

	// t, e, a, n, o: one arena slot per trie edge.
	assert.Equal(t, 5, finder.Arena().Used())
}
