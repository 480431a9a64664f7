package theme

//Layout computes the allocation of every item visible on d. Items
//that are not visible keep a zero allocation, as do their subtrees.
func (t *Theme) Layout(d Display) {
	t.display = d
	t.Root.Walk(func(it *Item) {
		it.hasRequisition = false
		it.Allocation = Rect{}
		it.Visible = false
	})
	t.Root.Visible = true
	t.Root.Allocation = Rect{Width: t.opts.Width, Height: t.opts.Height}
	t.allocateFixed(t.Root)
}

//Display is the display of the last Layout
func (t *Theme) Display() Display {
	return t.display
}

func (t *Theme) allocate(it *Item, a Rect) {
	it.Allocation = a
	it.Visible = true
	if len(it.Fixed) > 0 {
		t.allocateFixed(it)
	}
	if it.Box != nil && len(it.Box.Children) > 0 {
		t.allocateBox(it, a)
	}
}

//offset of a child position inside a parent extent
func offset(typ PosType, v float64, negative bool, extent int) float64 {
	switch typ {
	case PosAbsolute:
		if v < 0 || negative {
			return float64(extent) + v
		}
		return v
	case PosRelative:
		return float64(extent) * v / 100
	}
	return 0
}

func (t *Theme) allocateFixed(fixed *Item) {
	pa := fixed.Allocation
	for _, c := range fixed.Fixed {
		if !t.display.Visible(c) {
			continue
		}
		req := t.sizeRequest(c, pa.Width, pa.Height)
		a := Rect{
			X:      int(float64(pa.X) + offset(c.XType, c.X, c.XNegative, pa.Width)),
			Y:      int(float64(pa.Y) + offset(c.YType, c.Y, c.YNegative, pa.Height)),
			Width:  req.Width,
			Height: req.Height,
		}
		if c.Type != TypeLabel {
			a = c.Anchor.Fixup(a)
		}
		t.allocate(c, a)
	}
}

func (t *Theme) allocateBox(box *Item, a Rect) {
	b := box.Box
	horizontal := b.Orientation == Horizontal
	nvis, nexpand := 0, 0
	for _, c := range b.Children {
		if t.display.Visible(c) {
			nvis++
			if c.Expand {
				nexpand++
			}
		}
	}
	if nvis == 0 {
		return
	}
	//surplus over the packed size of the children goes to expanding ones
	natural := t.boxRequest(box)
	extent, padding, requested := a.Height, b.YPadding, natural.Height
	if horizontal {
		extent, padding, requested = a.Width, b.XPadding, natural.Width
	}
	var majorSize, extra int
	switch {
	case b.Homogeneous:
		majorSize = int(float64(extent) - padding*2 - float64(nvis-1)*b.Spacing)
		extra = majorSize / nvis
	case nexpand > 0:
		majorSize = extent - requested
		extra = majorSize / nexpand
	}
	major := int(float64(a.Y) + b.YPadding)
	if horizontal {
		major = int(float64(a.X) + b.XPadding)
	}
	for _, c := range b.Children {
		if !t.display.Visible(c) {
			continue
		}
		var childMajor int
		if b.Homogeneous {
			childMajor = extra
			if nvis == 1 {
				childMajor = majorSize
			}
			majorSize -= extra
			nvis--
		} else {
			req := t.sizeRequest(c, 0, 0)
			childMajor = req.Height
			if horizontal {
				childMajor = req.Width
			}
			if c.Expand {
				if nexpand == 1 {
					childMajor += majorSize
				} else {
					childMajor += extra
				}
				nexpand--
				majorSize -= extra
			}
		}
		//measure again now the slot is known
		c.hasRequisition = false
		var w, h int
		if horizontal {
			w, h = childMajor, int(float64(a.Height)-2*b.YPadding)
		} else {
			w, h = int(float64(a.Width)-2*b.XPadding), childMajor
		}
		req := t.sizeRequest(c, w, h)
		ca := Rect{Width: req.Width, Height: req.Height}
		if horizontal {
			ca.X, ca.Y = major, int(float64(a.Y)+b.YPadding)
		} else {
			ca.X, ca.Y = int(float64(a.X)+b.XPadding), major
		}
		ca.X = int(float64(ca.X) + offset(c.XType, c.X, c.XNegative, w))
		ca.Y = int(float64(ca.Y) + offset(c.YType, c.Y, c.YNegative, h))
		if c.Type != TypeLabel {
			ca = c.Anchor.Fixup(ca)
		}
		t.allocate(c, ca)
		major = int(float64(major+childMajor) + b.Spacing)
	}
}

//sizeRequest is the size it asks for inside a parent of the given
//size. The result is cached until the item is laid out again.
func (t *Theme) sizeRequest(it *Item, parentWidth, parentHeight int) Size {
	if it.hasRequisition {
		return it.requisition
	}
	req := Size{}
	switch it.Type {
	case TypeLabel:
		req = t.labelSize(it)
	case TypePixmap:
		req = it.image
	}
	var box Size
	if it.WidthType == SizeBox || it.HeightType == SizeBox {
		box = t.boxRequest(it)
	}
	req.Width = dimension(it.WidthType, it.Width, parentWidth, box.Width, req.Width)
	req.Height = dimension(it.HeightType, it.Height, parentHeight, box.Height, req.Height)
	it.requisition = req
	it.hasRequisition = true
	return req
}

func dimension(typ SizeType, v float64, parent, box, intrinsic int) int {
	switch typ {
	case SizeAbsolute:
		if v > 0 {
			return int(v)
		}
		return int(float64(parent) + v)
	case SizeRelative:
		return int(v * float64(parent) / 100)
	case SizeBox:
		return box
	}
	return intrinsic
}

func (t *Theme) labelSize(it *Item) Size {
	text := ExpandText(it.Text, t.textContext())
	s := t.metrics.TextSize(text, it.Styles[Normal].Font)
	scale := fontScale(t.opts.Width)
	s.Width = int(float64(s.Width) * scale)
	s.Height = int(float64(s.Height) * scale)
	if it.MaxWidth > 0 && float64(s.Width) > it.MaxWidth {
		s.Width = int(it.MaxWidth)
	}
	if it.MaxScreenPercentWidth > 0 {
		if limit := float64(t.opts.Width) * it.MaxScreenPercentWidth / 100; float64(s.Width) > limit {
			s.Width = int(limit)
		}
	}
	return s
}

func (t *Theme) textContext() TextContext {
	tc := t.Text
	if tc.TimedLogin == "" {
		tc.TimedLogin = t.display.TimedLogin
	}
	return tc
}

func (t *Theme) boxRequest(it *Item) Size {
	req := Size{}
	b := it.Box
	if b == nil {
		return req
	}
	horizontal := b.Orientation == Horizontal
	nvis := 0
	for _, c := range b.Children {
		if !t.display.Visible(c) {
			continue
		}
		cr := t.sizeRequest(c, 0, 0)
		if horizontal {
			if b.Homogeneous {
				req.Width = max(req.Width, cr.Width)
			} else {
				req.Width += cr.Width
			}
			req.Height = max(req.Height, cr.Height)
		} else {
			if b.Homogeneous {
				req.Height = max(req.Height, cr.Height)
			} else {
				req.Height += cr.Height
			}
			req.Width = max(req.Width, cr.Width)
		}
		nvis++
	}
	if nvis > 0 {
		gaps := float64(nvis-1) * b.Spacing
		if horizontal {
			if b.Homogeneous {
				req.Width *= nvis
			}
			req.Width = int(float64(req.Width) + gaps)
		} else {
			if b.Homogeneous {
				req.Height *= nvis
			}
			req.Height = int(float64(req.Height) + gaps)
		}
	}
	req.Width = int(float64(req.Width) + b.XPadding*2)
	req.Height = int(float64(req.Height) + b.YPadding*2)
	req.Width = int(maxf(float64(req.Width), b.MinWidth))
	req.Height = int(maxf(float64(req.Height), b.MinHeight))
	return req
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
