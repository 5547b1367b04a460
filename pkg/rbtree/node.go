package rbtree

// Link addresses a node slot inside an Allocator. The zero Link is null.
type Link uint32

// IsNull reports whether the link points nowhere.
func (link Link) IsNull() bool {
	return link == 0
}

// Node is the slot record managed by an Allocator. Its layout is private to
// the tree; allocators only hand out zeroed Nodes and recycle them.
type Node[K, V any] struct {
	key    K
	value  V
	child  [2]Link
	parent Link
	flag   flag
}

func (nd *Node[K, V]) left() Link  { return nd.child[left] }
func (nd *Node[K, V]) right() Link { return nd.child[right] }
