package theme

import "fmt"

//Anchor is the point of an item placed at its position
type Anchor int

const (
	AnchorNW Anchor = iota
	AnchorN
	AnchorNE
	AnchorW
	AnchorCenter
	AnchorE
	AnchorSW
	AnchorS
	AnchorSE
)

var anchorNames = map[string]Anchor{
	"nw":     AnchorNW,
	"n":      AnchorN,
	"ne":     AnchorNE,
	"w":      AnchorW,
	"c":      AnchorCenter,
	"center": AnchorCenter,
	"e":      AnchorE,
	"sw":     AnchorSW,
	"s":      AnchorS,
	"se":     AnchorSE,
}

//ParseAnchor accepts nw n ne w c center e sw s se
func ParseAnchor(s string) (Anchor, error) {
	if a, ok := anchorNames[s]; ok {
		return a, nil
	}
	return AnchorNW, fmt.Errorf("unknown anchor type %s", s)
}

func (a Anchor) String() string {
	switch a {
	case AnchorNW:
		return "nw"
	case AnchorN:
		return "n"
	case AnchorNE:
		return "ne"
	case AnchorW:
		return "w"
	case AnchorCenter:
		return "center"
	case AnchorE:
		return "e"
	case AnchorSW:
		return "sw"
	case AnchorS:
		return "s"
	case AnchorSE:
		return "se"
	}
	return fmt.Sprintf("anchor(%d)", int(a))
}

func (a Anchor) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

//Fixup moves r so that its anchor point lands on r's origin
func (a Anchor) Fixup(r Rect) Rect {
	switch a {
	case AnchorN, AnchorCenter, AnchorS:
		r.X -= r.Width / 2
	case AnchorNE, AnchorE, AnchorSE:
		r.X -= r.Width
	}
	switch a {
	case AnchorW, AnchorCenter, AnchorE:
		r.Y -= r.Height / 2
	case AnchorSW, AnchorS, AnchorSE:
		r.Y -= r.Height
	}
	return r
}
