package theme

import "fmt"

//ItemType is the kind of a theme item
type ItemType int

const (
	TypeRect ItemType = iota
	TypeSVG
	TypePixmap
	TypeLabel
	TypeEntry
	TypeList
)

var itemTypes = map[string]ItemType{
	"rect":   TypeRect,
	"svg":    TypeSVG,
	"pixmap": TypePixmap,
	"label":  TypeLabel,
	"entry":  TypeEntry,
	"list":   TypeList,
}

func (t ItemType) String() string {
	for name, v := range itemTypes {
		if v == t {
			return name
		}
	}
	return fmt.Sprintf("type(%d)", int(t))
}

func (t ItemType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

//State is the pointer state of an item
type State int

const (
	Normal State = iota
	Prelight
	Active
	numStates
)

var stateNames = [numStates]string{"normal", "prelight", "active"}

func (s State) String() string {
	if s >= 0 && s < numStates {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

//SizeType says how a width or height is computed
type SizeType int

const (
	SizeUnset SizeType = iota
	//SizeAbsolute is in pixels, non positive values are taken from the parent size
	SizeAbsolute
	//SizeRelative is a percentage of the parent size
	SizeRelative
	//SizeBox is the requisition of the item's box children
	SizeBox
)

//PosType says how an x or y offset is computed
type PosType int

const (
	PosUnset PosType = iota
	PosAbsolute
	PosRelative
)

//Orientation is the major axis of a box
type Orientation int

const (
	Vertical Orientation = iota
	Horizontal
)

//ShowModes is a set of displays an item appears on
type ShowModes uint16

const (
	ShowNowhere      ShowModes = 0
	ShowConsoleFixed ShowModes = 1 << 0
	ShowConsoleFlexi ShowModes = 1 << 1
	ShowRemoteFlexi  ShowModes = 1 << 2
	ShowRemote       ShowModes = 1 << 3
	ShowConsole                = ShowConsoleFixed | ShowConsoleFlexi
	ShowFlexi                  = ShowConsoleFlexi | ShowRemoteFlexi
	ShowEverywhere   ShowModes = 0xffff
)

var showModeNames = map[string]ShowModes{
	"console":       ShowConsole,
	"console-fixed": ShowConsoleFixed,
	"console-flexi": ShowConsoleFlexi,
	"remote-flexi":  ShowRemoteFlexi,
	"flexi":         ShowFlexi,
	"remote":        ShowRemote,
}

//Style holds the per state attributes of an item
type Style struct {
	File     string `json:"file,omitempty"`
	Color    uint32 `json:"color,omitempty"`
	HasColor bool   `json:"-"`
	Tint     uint32 `json:"tint,omitempty"`
	HasTint  bool   `json:"-"`
	Alpha    uint8  `json:"alpha"`
	Font     string `json:"font,omitempty"`
	set      bool
}

//Box packs children along one axis
type Box struct {
	Orientation Orientation `json:"orientation"`
	Homogeneous bool        `json:"homogeneous,omitempty"`
	XPadding    float64     `json:"xpadding,omitempty"`
	YPadding    float64     `json:"ypadding,omitempty"`
	MinWidth    float64     `json:"min_width,omitempty"`
	MinHeight   float64     `json:"min_height,omitempty"`
	Spacing     float64     `json:"spacing,omitempty"`
	Children    []*Item     `json:"children,omitempty"`
}

//ListItem is a fixed entry of a list item
type ListItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

//Rect is a pixel rectangle
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

//Size is a pixel requisition
type Size struct {
	Width  int
	Height int
}

//Item is a node of the theme tree
type Item struct {
	ID     string   `json:"id,omitempty"`
	Type   ItemType `json:"type"`
	Parent *Item    `json:"-"`
	Button bool     `json:"button,omitempty"`
	//position
	Anchor    Anchor  `json:"anchor"`
	XType     PosType `json:"-"`
	YType     PosType `json:"-"`
	X         float64 `json:"-"`
	Y         float64 `json:"-"`
	XNegative bool    `json:"-"`
	YNegative bool    `json:"-"`
	//size
	WidthType  SizeType `json:"-"`
	HeightType SizeType `json:"-"`
	Width      float64  `json:"-"`
	Height     float64  `json:"-"`
	Expand     bool     `json:"expand,omitempty"`
	//labels only
	MaxWidth              float64 `json:"-"`
	MaxScreenPercentWidth float64 `json:"-"`
	//visibility
	ShowModes ShowModes `json:"-"`
	ShowType  string    `json:"show_type,omitempty"`
	//content
	Styles    [numStates]Style `json:"-"`
	Text      string           `json:"text,omitempty"`
	ListItems []ListItem       `json:"list_items,omitempty"`
	//containers
	Fixed []*Item `json:"fixed,omitempty"`
	Box   *Box    `json:"box,omitempty"`
	//runtime
	State      State `json:"state"`
	BaseState  State `json:"-"`
	MouseOver  bool  `json:"-"`
	MouseDown  bool  `json:"-"`
	Allocation Rect  `json:"allocation"`
	Visible    bool  `json:"visible"`
	//geometry cache
	requisition    Size
	hasRequisition bool
	//intrinsic pixmap size
	image Size
}

func newItem(parent *Item, t ItemType) *Item {
	it := &Item{
		Type:      t,
		Parent:    parent,
		Anchor:    AnchorNW,
		ShowModes: ShowEverywhere,
	}
	for i := range it.Styles {
		it.Styles[i].Alpha = 0xff
	}
	return it
}

//Children lists fixed children followed by box children
func (it *Item) Children() []*Item {
	if it.Box == nil {
		return it.Fixed
	}
	out := make([]*Item, 0, len(it.Fixed)+len(it.Box.Children))
	out = append(out, it.Fixed...)
	return append(out, it.Box.Children...)
}

//FindButton returns the nearest button at or above it
func (it *Item) FindButton() *Item {
	for curr := it; curr != nil; curr = curr.Parent {
		if curr.Button {
			return curr
		}
	}
	return nil
}

//Walk visits it and every descendant, depth first
func (it *Item) Walk(fn func(*Item)) {
	fn(it)
	for _, c := range it.Children() {
		c.Walk(fn)
	}
}
