package rbtree

// rotate promotes child over its parent. Drawn for a left child:
//
//	       G                G
//	       |                |
//	       P                C
//	      / \              / \
//	     C   x     =>     a   P
//	    / \                  / \
//	   a   b                b   x
//
// The opposite-side child of C (b) moves under P on the side C had, P hangs
// on that opposite side of C, and C takes the slot P had under G. Colors are
// untouched.
func (m *Map[K, V]) rotate(child Link) {
	childNode := m.node(child)
	side := childNode.flag.rela()
	doAssert(side != root)

	parent := childNode.parent
	parentNode := m.node(parent)
	grand := parentNode.parent
	parentSide := parentNode.flag.rela()
	other := side.toggle()

	inner := childNode.child[other]
	parentNode.child[side] = inner

	if inner != 0 {
		innerNode := m.node(inner)
		innerNode.parent = parent
		innerNode.flag.setRela(side)
	}

	childNode.child[other] = parent
	parentNode.parent = child
	parentNode.flag.setRela(other)

	childNode.parent = grand
	childNode.flag.setRela(parentSide)

	if grand == 0 {
		m.root = child
	} else {
		m.node(grand).child[parentSide] = child
	}
}

// fixInsert resolves a red node under a red parent, walking up at most to the root.
func (m *Map[K, V]) fixInsert(link Link) {
	for {
		nd := m.node(link)

		parent := nd.parent
		if parent == 0 {
			nd.flag.setColor(black)

			return
		}

		parentNode := m.node(parent)
		if parentNode.flag.isBlack() {
			return
		}

		// A red parent is never the root, so the grandparent exists.
		grand := parentNode.parent
		grandNode := m.node(grand)
		uncle := grandNode.child[parentNode.flag.rela().toggle()]

		if uncle != 0 && m.node(uncle).flag.isRed() {
			parentNode.flag.setColor(black)
			m.node(uncle).flag.setColor(black)
			grandNode.flag.setColor(red)

			link = grand

			continue
		}

		if nd.flag.rela() != parentNode.flag.rela() {
			// Zig-zag: straighten the chain, the roles of node and parent swap.
			m.rotate(link)
			link, parent = parent, link
			parentNode = m.node(parent)
		}

		m.rotate(parent)
		parentNode.flag.setColor(black)
		grandNode.flag.setColor(red)

		return
	}
}

// fixRemove restores the black height after a black node was unlinked from
// the given side of parent. The side is now one black short.
func (m *Map[K, V]) fixRemove(parent Link, side relation) {
	for {
		parentNode := m.node(parent)

		sibling := parentNode.child[side.toggle()]
		doAssert(sibling != 0)

		siblingNode := m.node(sibling)

		// Case 1: red sibling. Rotate it up and retry with a black sibling.
		if siblingNode.flag.isRed() {
			m.rotate(sibling)
			siblingNode.flag.setColor(black)
			parentNode.flag.setColor(red)

			continue
		}

		far := siblingNode.child[side.toggle()]
		near := siblingNode.child[side]

		// Case 2: far nephew red.
		if far != 0 && m.node(far).flag.isRed() {
			m.rotate(sibling)
			siblingNode.flag.setColor(parentNode.flag.color())
			parentNode.flag.setColor(black)
			m.node(far).flag.setColor(black)

			return
		}

		// Case 3: near nephew red, far black.
		if near != 0 && m.node(near).flag.isRed() {
			m.rotate(near)
			m.rotate(near)

			nearNode := m.node(near)
			nearNode.flag.setColor(parentNode.flag.color())
			parentNode.flag.setColor(black)

			return
		}

		// Case 4: both nephews black.
		siblingNode.flag.setColor(red)

		if parentNode.flag.isRed() {
			parentNode.flag.setColor(black)

			return
		}

		if parentNode.flag.isRoot() {
			return
		}

		side = parentNode.flag.rela()
		parent = parentNode.parent
	}
}
