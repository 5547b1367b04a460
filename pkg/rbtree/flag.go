package rbtree

// relation is the child slot a node occupies under its parent.
type relation uint8

const (
	left relation = iota
	right
	root
)

// toggle addresses the other child slot. The root relation is unchanged.
func (rela relation) toggle() relation {
	if rela == root {
		return root
	}

	return rela ^ 1
}

func (rela relation) String() string {
	switch rela {
	case left:
		return "L"
	case right:
		return "R"
	default:
		return "T"
	}
}

// color of a node. The zero value is black so that a zeroed slot is a valid
// black left child before initialization.
type color uint8

const (
	black color = iota
	red
)

func (c color) String() string {
	if c == red {
		return "R"
	}

	return "B"
}

// flag packs the relation into bits 0-1 and the color into bit 2.
type flag uint8

const (
	relationMask flag = 0b011
	colorShift        = 2
	colorMask    flag = 1 << colorShift
)

func (f flag) rela() relation { return relation(f & relationMask) }
func (f flag) color() color   { return color((f & colorMask) >> colorShift) }
func (f flag) isRed() bool    { return f&colorMask != 0 }
func (f flag) isBlack() bool  { return f&colorMask == 0 }
func (f flag) isRoot() bool   { return f.rela() == root }

func (f *flag) setRela(rela relation) { *f = (*f &^ relationMask) | flag(rela) }

func (f *flag) setColor(c color) { *f = (*f &^ colorMask) | flag(c)<<colorShift }
