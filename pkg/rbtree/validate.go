package rbtree

import (
	"errors"
	"fmt"
	"strings"
)

// Invariant violations reported by Validate.
var (
	ErrRootColor   = errors.New("root is red")
	ErrRedRed      = errors.New("red node has a red child")
	ErrBlackHeight = errors.New("black height differs between paths")
	ErrOrder       = errors.New("keys are out of order")
	ErrParentLink  = errors.New("parent link does not match")
	ErrRelation    = errors.New("relation flag does not match the slot")
	ErrLength      = errors.New("length does not match the node count")
)

// Validate walks the whole tree and checks the search-tree order, the
// red-black rules, the parent links and the length. It costs O(n) and is
// meant for tests and diagnostics.
func (m *Map[K, V]) Validate() error {
	if m.root == 0 {
		if m.length != 0 {
			return fmt.Errorf("%w: empty tree with length %d", ErrLength, m.length)
		}

		return nil
	}

	rootNode := m.node(m.root)

	switch {
	case rootNode.flag.isRed():
		return ErrRootColor
	case !rootNode.flag.isRoot():
		return fmt.Errorf("%w: root is marked %v", ErrRelation, rootNode.flag.rela())
	case rootNode.parent != 0:
		return fmt.Errorf("%w: root has parent #%d", ErrParentLink, rootNode.parent)
	}

	// Every frame carries the nearest ancestors bounding the subtree from
	// below and above, and the black count of the path above the node.
	type frame struct {
		link       Link
		low, high  Link
		blackAbove int
	}

	stack := []frame{{link: m.root}}
	blackHeight := -1
	count := 0

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		count++
		if count > m.length {
			return fmt.Errorf("%w: more than %d nodes reachable", ErrLength, m.length)
		}

		nd := m.node(top.link)

		if top.low != 0 && m.cmp(m.node(top.low).key, nd.key) >= 0 {
			return fmt.Errorf("%w: node #%d is not above #%d", ErrOrder, top.link, top.low)
		}

		if top.high != 0 && m.cmp(nd.key, m.node(top.high).key) >= 0 {
			return fmt.Errorf("%w: node #%d is not below #%d", ErrOrder, top.link, top.high)
		}

		blacks := top.blackAbove
		if nd.flag.isBlack() {
			blacks++
		}

		for _, side := range [2]relation{left, right} {
			child := nd.child[side]
			if child == 0 {
				if blackHeight < 0 {
					blackHeight = blacks
				} else if blackHeight != blacks {
					return fmt.Errorf("%w: %d and %d below #%d", ErrBlackHeight, blackHeight, blacks, top.link)
				}

				continue
			}

			childNode := m.node(child)

			if childNode.parent != top.link {
				return fmt.Errorf("%w: #%d points to #%d instead of #%d",
					ErrParentLink, child, childNode.parent, top.link)
			}

			if childNode.flag.rela() != side {
				return fmt.Errorf("%w: #%d is marked %v", ErrRelation, child, childNode.flag.rela())
			}

			if nd.flag.isRed() && childNode.flag.isRed() {
				return fmt.Errorf("%w: #%d under #%d", ErrRedRed, child, top.link)
			}

			next := frame{link: child, low: top.low, high: top.high, blackAbove: blacks}
			if side == left {
				next.high = top.link
			} else {
				next.low = top.link
			}

			stack = append(stack, next)
		}
	}

	if count != m.length {
		return fmt.Errorf("%w: %d nodes reachable, length %d", ErrLength, count, m.length)
	}

	return nil
}

// String dumps the tree level by level, one line per level, each node as
// [color,relation,key,value].
func (m *Map[K, V]) String() string {
	var sb strings.Builder

	level := []Link{}
	if m.root != 0 {
		level = append(level, m.root)
	}

	for len(level) > 0 {
		var next []Link

		for idx, link := range level {
			nd := m.node(link)

			if idx > 0 {
				sb.WriteByte(' ')
			}

			fmt.Fprintf(&sb, "[%v,%v,%v,%v]", nd.flag.color(), nd.flag.rela(), nd.key, nd.value)

			for _, child := range nd.child {
				if child != 0 {
					next = append(next, child)
				}
			}
		}

		sb.WriteByte('\n')

		level = next
	}

	return sb.String()
}
