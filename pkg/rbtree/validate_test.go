package rbtree //nolint:testpackage // tests corrupt nodes on purpose.

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func linkOf(tb testing.TB, m *Map[int, string], key int) Link {
	tb.Helper()

	link, _, found := m.search(key)
	require.True(tb, found)

	return link
}

func TestValidateDetectsCorruption(t *testing.T) {
	t.Parallel()

	// The scenario tree is 20B(10B(5R,15R),30B(25R,-)).
	tests := []struct {
		name    string
		corrupt func(tb testing.TB, m *Map[int, string])
		want    error
	}{
		{
			name: "red root",
			corrupt: func(_ testing.TB, m *Map[int, string]) {
				m.node(m.root).flag.setColor(red)
			},
			want: ErrRootColor,
		},
		{
			name: "red under red",
			corrupt: func(tb testing.TB, m *Map[int, string]) {
				m.node(linkOf(tb, m, 10)).flag.setColor(red)
			},
			want: ErrRedRed,
		},
		{
			name: "black height",
			corrupt: func(tb testing.TB, m *Map[int, string]) {
				m.node(linkOf(tb, m, 25)).flag.setColor(black)
			},
			want: ErrBlackHeight,
		},
		{
			name: "parent link",
			corrupt: func(tb testing.TB, m *Map[int, string]) {
				m.node(linkOf(tb, m, 5)).parent = m.root
			},
			want: ErrParentLink,
		},
		{
			name: "relation",
			corrupt: func(tb testing.TB, m *Map[int, string]) {
				m.node(linkOf(tb, m, 15)).flag.setRela(left)
			},
			want: ErrRelation,
		},
		{
			name: "order",
			corrupt: func(tb testing.TB, m *Map[int, string]) {
				low, high := m.node(linkOf(tb, m, 5)), m.node(linkOf(tb, m, 15))
				low.key, high.key = high.key, low.key
			},
			want: ErrOrder,
		},
		{
			name: "length too large",
			corrupt: func(_ testing.TB, m *Map[int, string]) {
				m.length++
			},
			want: ErrLength,
		},
		{
			name: "length too small",
			corrupt: func(_ testing.TB, m *Map[int, string]) {
				m.length--
			},
			want: ErrLength,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := scenarioMap(t)
			tt.corrupt(t, m)
			require.ErrorIs(t, m.Validate(), tt.want)
		})
	}
}

func TestValidateEmptyWithLength(t *testing.T) {
	t.Parallel()

	m := New[int, int]()
	m.length = 1
	require.ErrorIs(t, m.Validate(), ErrLength)
}
