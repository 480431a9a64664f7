package theme

import (
	"encoding/xml"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

//Options control parsing and layout of a theme
type Options struct {
	//Width and Height are the screen size
	Width  int
	Height int
	//Dir resolves relative pixmap files, ParseFile defaults it to the
	//directory of the theme file
	Dir string
	//Languages are the preferred text languages, best first
	Languages []string
	//Welcome replaces the welcome-label stock text
	Welcome string
	//Text fills in the escapes of label text
	Text TextContext
	//Metrics measures labels and images, nil uses the built in font
	Metrics Metrics
}

//Theme is a parsed greeter theme
type Theme struct {
	//Root is a fixed container of the screen size holding the top level items
	Root *Item
	Text TextContext

	opts    Options
	metrics Metrics
	ids     map[string]*Item
	custom  []*Item
	actions map[string]Action
	hook    StateHook
	display Display
}

//xml node with every attribute and child element kept in order
type node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Content string     `xml:",chardata"`
	Nodes   []node     `xml:",any"`
}

func (n *node) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name && a.Name.Space == "" {
			return a.Value, true
		}
	}
	return "", false
}

func (n *node) lang() (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == "lang" && (a.Name.Space == "xml" || strings.HasSuffix(a.Name.Space, "/XML/1998/namespace")) {
			return a.Value, true
		}
	}
	return "", false
}

//ParseFile parses the theme at path
func ParseFile(path string, opts Options) (*Theme, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &ParseError{Kind: NoFile, Msg: "can't open file " + path, Err: err}
	} else if err != nil {
		return nil, &ParseError{Kind: NoFile, Msg: "can't read file " + path, Err: err}
	}
	defer f.Close()
	if opts.Dir == "" {
		opts.Dir = filepath.Dir(path)
	}
	return Parse(f, opts)
}

//Parse reads a <greeter> document
func Parse(r io.Reader, opts Options) (*Theme, error) {
	doc := node{}
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, &ParseError{Kind: BadXML, Msg: "can't find the xml root node"}
		}
		return nil, &ParseError{Kind: BadXML, Msg: "xml parse error", Err: err}
	}
	if doc.XMLName.Local != "greeter" {
		return nil, &ParseError{Kind: WrongType, Msg: "wrong xml type " + doc.XMLName.Local}
	}
	if opts.Metrics == nil {
		opts.Metrics = DefaultMetrics()
	}
	t := &Theme{
		Text:    opts.Text,
		opts:    opts,
		metrics: opts.Metrics,
		ids:     map[string]*Item{},
		actions: map[string]Action{},
	}
	root := newItem(nil, TypeRect)
	root.XType, root.YType = PosAbsolute, PosAbsolute
	root.WidthType, root.HeightType = SizeAbsolute, SizeAbsolute
	root.Width, root.Height = float64(opts.Width), float64(opts.Height)
	items, err := t.parseItems(&doc, root)
	if err != nil {
		return nil, err
	}
	root.Fixed = items
	t.Root = root
	return t, nil
}

//Lookup finds an item by id
func (t *Theme) Lookup(id string) *Item {
	return t.ids[id]
}

//CustomLists are the list items with theme supplied entries
func (t *Theme) CustomLists() []*Item {
	return t.custom
}

func (t *Theme) parseItems(n *node, parent *Item) ([]*Item, error) {
	items := []*Item{}
	for i := range n.Nodes {
		c := &n.Nodes[i]
		if c.XMLName.Local != "item" {
			return nil, badSpec("found tag %s when looking for item", c.XMLName.Local)
		}
		typ, ok := c.attr("type")
		if !ok {
			return nil, badSpec("items must specify their type")
		}
		it, ok := itemTypes[typ]
		if !ok {
			return nil, badSpec("unknown item type %s", typ)
		}
		item := newItem(parent, it)
		if id, ok := c.attr("id"); ok {
			item.ID = id
			t.ids[id] = item
		}
		if b, ok := c.attr("button"); ok {
			if item.Button, ok = parseBool(b); !ok {
				return nil, badSpec("bad button spec %s", b)
			}
		}
		if err := t.parseItem(c, item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

type translation struct {
	text  *string
	score int
}

func (t *Theme) parseItem(n *node, it *Item) error {
	text := translation{score: 1000}
	leaf := it.Type == TypeLabel || it.Type == TypeEntry || it.Type == TypeList
	for i := range n.Nodes {
		c := &n.Nodes[i]
		switch name := c.XMLName.Local; name {
		case "normal", "prelight", "active":
			s := stateByName(name)
			if it.Type == TypeList || (it.Type == TypeEntry && s != Normal) {
				continue
			}
			if err := t.parseStyle(c, it, s); err != nil {
				return err
			}
		case "pos":
			if err := parsePos(c, it); err != nil {
				return err
			}
			if it.Type == TypeLabel {
				if err := parseLabelExtents(c, it); err != nil {
					return err
				}
			}
		case "show":
			parseShow(c, it)
		case "fixed", "box":
			if leaf {
				return badSpec("%s items cannot have children", it.Type)
			}
			if name == "box" {
				if err := t.parseBox(c, it); err != nil {
					return err
				}
				continue
			}
			items, err := t.parseItems(c, it)
			if err != nil {
				return err
			}
			it.Fixed = items
		case "text":
			if it.Type == TypeLabel {
				t.translate(c, &text)
			}
		case "stock":
			if it.Type == TypeLabel {
				if err := t.stock(c, &text); err != nil {
					return err
				}
			}
		case "listitem":
			if it.Type == TypeList {
				if err := t.parseListItem(c, it); err != nil {
					return err
				}
			}
		}
	}
	switch it.Type {
	case TypePixmap, TypeSVG:
		return t.finishPixmap(it)
	case TypeRect:
		it.applyAlpha()
	case TypeLabel:
		if text.text == nil {
			return badSpec("a label must specify the text attribute")
		}
		it.Text = *text.text
		it.applyAlpha()
		if it.Styles[Normal].Font == "" {
			it.Styles[Normal].Font = "Sans"
		}
	case TypeList:
		if len(it.ListItems) > 0 {
			if it.ID == "userlist" {
				return badSpec("list of id userlist cannot have custom list items")
			}
			t.custom = append(t.custom, it)
		}
	}
	return nil
}

func stateByName(name string) State {
	for i, s := range stateNames {
		if s == name {
			return State(i)
		}
	}
	return Normal
}

//parsePos only touches the attributes present
func parsePos(n *node, it *Item) error {
	if v, ok := n.attr("anchor"); ok {
		a, err := ParseAnchor(v)
		if err != nil {
			return badSpec("%s", err)
		}
		it.Anchor = a
	}
	if v, ok := n.attr("x"); ok {
		x, ok := parseNumber(v)
		if !ok {
			return badSpec("bad position specifier %s", v)
		}
		it.X, it.XNegative, it.XType = x, isNegative(v, x), posType(v)
	}
	if v, ok := n.attr("y"); ok {
		y, ok := parseNumber(v)
		if !ok {
			return badSpec("bad position specifier %s", v)
		}
		it.Y, it.YNegative, it.YType = y, isNegative(v, y), posType(v)
	}
	if v, ok := n.attr("width"); ok {
		w, typ, err := parseSize(v)
		if err != nil {
			return err
		}
		it.Width, it.WidthType = w, typ
	}
	if v, ok := n.attr("height"); ok {
		h, typ, err := parseSize(v)
		if err != nil {
			return err
		}
		it.Height, it.HeightType = h, typ
	}
	if v, ok := n.attr("expand"); ok {
		if it.Expand, ok = parseBool(v); !ok {
			return badSpec("bad expand spec %s", v)
		}
	}
	return nil
}

func isNegative(raw string, v float64) bool {
	return strings.HasPrefix(strings.TrimSpace(raw), "-") || v < 0
}

func posType(raw string) PosType {
	if strings.Contains(raw, "%") {
		return PosRelative
	}
	return PosAbsolute
}

func parseSize(raw string) (float64, SizeType, error) {
	if raw == "box" {
		return 0, SizeBox, nil
	}
	v, ok := parseNumber(raw)
	if !ok {
		return 0, SizeUnset, badSpec("bad size specifier %s", raw)
	}
	if strings.Contains(raw, "%") {
		return v, SizeRelative, nil
	}
	return v, SizeAbsolute, nil
}

func parseLabelExtents(n *node, it *Item) error {
	if v, ok := n.attr("max-width"); ok {
		w, ok := parseNumber(v)
		if !ok {
			return badSpec("bad max-width specification %s", v)
		}
		it.MaxWidth = w
	}
	if v, ok := n.attr("max-screen-percent-width"); ok {
		w, ok := parseNumber(v)
		if !ok {
			return badSpec("bad max-screen-percent-width specification %s", v)
		}
		it.MaxScreenPercentWidth = w
	}
	return nil
}

func parseShow(n *node, it *Item) {
	if v, ok := n.attr("type"); ok {
		it.ShowType = v
	}
	//subtype is only honoured where no specific type was given
	if v, ok := n.attr("subtype"); ok && (it.ShowType == "" || it.ShowType == "system") {
		it.ShowType = v
	}
	v, ok := n.attr("modes")
	if !ok {
		it.ShowModes = ShowEverywhere
		return
	}
	switch v {
	case "everywhere":
		it.ShowModes = ShowEverywhere
		return
	case "nowhere":
		it.ShowModes = ShowNowhere
		return
	}
	it.ShowModes = ShowNowhere
	for _, m := range strings.Split(v, ",") {
		it.ShowModes |= showModeNames[m]
	}
}

func (t *Theme) parseBox(n *node, it *Item) error {
	b := &Box{}
	if v, ok := n.attr("orientation"); ok {
		switch v {
		case "horizontal":
			b.Orientation = Horizontal
		case "vertical":
			b.Orientation = Vertical
		default:
			return badSpec("bad orientation %s", v)
		}
	}
	if v, ok := n.attr("homogeneous"); ok {
		if b.Homogeneous, ok = parseBool(v); !ok {
			return badSpec("bad homogenous spec %s", v)
		}
	}
	for _, f := range []struct {
		attr string
		dst  *float64
	}{
		{"xpadding", &b.XPadding},
		{"ypadding", &b.YPadding},
		{"min-width", &b.MinWidth},
		{"min-height", &b.MinHeight},
		{"spacing", &b.Spacing},
	} {
		v, ok := n.attr(f.attr)
		if !ok {
			continue
		}
		if *f.dst, ok = parseNumber(v); !ok {
			return badSpec("bad %s specification %s", f.attr, v)
		}
	}
	items, err := t.parseItems(n, it)
	if err != nil {
		return err
	}
	b.Children = items
	it.Box = b
	return nil
}

func (t *Theme) parseStyle(n *node, it *Item, s State) error {
	st := &it.Styles[s]
	st.set = true
	switch it.Type {
	case TypePixmap, TypeSVG:
		if v, ok := n.attr("file"); ok {
			if !filepath.IsAbs(v) {
				v = filepath.Join(t.opts.Dir, v)
			}
			st.File = v
		}
		if v, ok := n.attr("tint"); ok {
			c, err := parseColor(v)
			if err != nil {
				return err
			}
			st.Tint, st.HasTint = c, true
		}
	case TypeRect:
		if err := parseStyleColor(n, st); err != nil {
			return err
		}
	case TypeLabel, TypeEntry:
		if v, ok := n.attr("font"); ok {
			if strings.TrimSpace(v) == "" {
				return badSpec("bad font specification %s", v)
			}
			st.Font = v
		}
		if err := parseStyleColor(n, st); err != nil {
			return err
		}
	}
	if v, ok := n.attr("alpha"); ok {
		a, ok := parseNumber(v)
		if !ok {
			return badSpec("bad alpha specifier format %s", v)
		}
		switch {
		case a >= 1:
			st.Alpha = 0xff
		case a < 0:
			st.Alpha = 0
		default:
			st.Alpha = uint8(math.Floor(a * 0xff))
		}
	}
	return nil
}

func parseStyleColor(n *node, st *Style) error {
	v, ok := n.attr("color")
	if !ok {
		return nil
	}
	c, err := parseColor(v)
	if err != nil {
		return err
	}
	st.Color, st.HasColor = c, true
	return nil
}

//applyAlpha turns #rrggbb colors into rrggbbaa
func (it *Item) applyAlpha() {
	for i := range it.Styles {
		st := &it.Styles[i]
		if st.HasColor {
			st.Color = st.Color<<8 | uint32(st.Alpha)
		}
	}
}

//parseColor accepts #rrggbb
func parseColor(s string) (uint32, error) {
	if !strings.HasPrefix(s, "#") {
		return 0, badSpec("colors must start with #, %s is an invalid color", s)
	}
	if len(s) != 7 {
		return 0, badSpec("colors must be on the format #xxxxxx, %s is an invalid color", s)
	}
	c, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return 0, badSpec("%s is an invalid color", s)
	}
	return uint32(c), nil
}

func (t *Theme) finishPixmap(it *Item) error {
	if it.Styles[Normal].File == "" {
		return badSpec("no filename specified for normal state")
	}
	if it.Type == TypeSVG {
		return nil
	}
	for s := range it.Styles {
		file := it.Styles[s].File
		if file == "" {
			continue
		}
		w, h, err := t.metrics.ImageSize(file)
		if err != nil {
			return &ParseError{Kind: BadSpec, Msg: "could not load " + file, Err: err}
		}
		if State(s) == Normal {
			it.image = Size{Width: w, Height: h}
		}
	}
	return nil
}

//translate keeps the text whose language ranks best
func (t *Theme) translate(n *node, tr *translation) {
	score := 999
	if lang, ok := n.lang(); ok {
		score = t.languageScore(lang)
	}
	if score >= tr.score {
		return
	}
	text := n.Content
	tr.text, tr.score = &text, score
}

func (t *Theme) languageScore(lang string) int {
	for i, l := range t.opts.Languages {
		if l == lang {
			return i
		}
	}
	return 1000
}

var stockLabels = map[string]string{
	"language":          "_Language",
	"session":           "_Session",
	"system":            "_Actions",
	"disconnect":        "D_isconnect",
	"quit":              "_Quit",
	"halt":              "Shut _Down",
	"suspend":           "Sus_pend",
	"reboot":            "_Reboot",
	"chooser":           "_XDMCP Chooser",
	"config":            "_Configure",
	"caps-lock-warning": "You've got capslock on!",
	"timed-label":       "User %s will login in %d seconds",
	"username-label":    "Username:",
	"ok":                "_OK",
	"cancel":            "_Cancel",
}

//stock labels beat any translation
func (t *Theme) stock(n *node, tr *translation) error {
	typ, ok := n.attr("type")
	if !ok {
		return badSpec("stock type not specified")
	}
	typ = strings.ToLower(typ)
	text, ok := stockLabels[typ]
	if typ == "welcome-label" {
		text, ok = t.opts.Welcome, true
		if text == "" {
			text = "Welcome"
		}
	}
	if !ok {
		return badSpec("bad stock label type %s", typ)
	}
	tr.text, tr.score = &text, -1
	return nil
}

func (t *Theme) parseListItem(n *node, it *Item) error {
	id, ok := n.attr("id")
	if !ok {
		return badSpec("listitem id not specified")
	}
	tr := translation{score: 1000}
	for i := range n.Nodes {
		if c := &n.Nodes[i]; c.XMLName.Local == "text" {
			t.translate(c, &tr)
		}
	}
	if tr.text == nil {
		return badSpec("a list item must specify the text attribute")
	}
	it.ListItems = append(it.ListItems, ListItem{ID: id, Text: *tr.text})
	return nil
}

func parseBool(s string) (bool, bool) {
	switch s {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

//parseNumber reads the leading decimal number of s, ignoring
//any suffix such as %
func parseNumber(s string) (float64, bool) {
	s = strings.TrimLeft(s, " \t\r\n")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := 0
	for end < len(s) && isDigit(s[end]) {
		end++
		digits++
	}
	if end < len(s) && s[end] == '.' {
		end++
		for end < len(s) && isDigit(s[end]) {
			end++
			digits++
		}
	}
	if digits == 0 {
		return 0, false
	}
	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		j := end + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			end = k
		}
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	return v, err == nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
