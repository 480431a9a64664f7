package theme

//Event is a pointer event delivered to an item
type Event int

const (
	Enter Event = iota
	Leave
	Press
	Release
)

func (e Event) String() string {
	switch e {
	case Enter:
		return "enter"
	case Leave:
		return "leave"
	case Press:
		return "press"
	case Release:
		return "release"
	}
	return "unknown"
}

//Action runs when an item with an id is clicked
type Action func(it *Item)

//StateHook observes every state change, e.g. to swap the drawn style
type StateHook func(it *Item, old State)

//RegisterAction binds fn to clicks on the item with the given id
func (t *Theme) RegisterAction(id string, fn Action) {
	t.actions[id] = fn
}

//OnStateChange installs the state hook
func (t *Theme) OnStateChange(fn StateHook) {
	t.hook = fn
}

//RunAction runs the action registered for id, if any
func (t *Theme) RunAction(id string) {
	it := t.Lookup(id)
	if it == nil {
		return
	}
	if fn, ok := t.actions[it.ID]; ok {
		fn(it)
	}
}

//HandleEvent updates the pointer state of it. Events on the
//contents of a button are handled by the button.
func (t *Theme) HandleEvent(it *Item, ev Event) {
	if b := it.FindButton(); b != nil && b != it {
		t.HandleEvent(b, ev)
		return
	}
	old := it.State
	switch ev {
	case Enter:
		it.MouseOver = true
	case Leave:
		it.MouseOver = false
	case Press:
		it.MouseDown = true
	case Release:
		it.MouseDown = false
		if it.MouseOver && it.ID != "" {
			t.RunAction(it.ID)
		}
	}
	t.settle(it, old)
}

//FocusLost forgets the pointer, e.g. when the greeter loses its grab
func (t *Theme) FocusLost(it *Item) {
	if b := it.FindButton(); b != nil && b != it {
		t.FocusLost(b)
		return
	}
	old := it.State
	it.MouseOver = false
	it.MouseDown = false
	t.settle(it, old)
}

func (t *Theme) settle(it *Item, old State) {
	switch {
	case it.MouseOver && it.MouseDown:
		it.State = Active
	case it.MouseOver:
		it.State = Prelight
	default:
		it.State = Normal
	}
	it.BaseState = it.State
	if it.State == old {
		return
	}
	switch {
	case !it.Button:
		t.stateRun(it, old)
	case it.State == Normal:
		t.propagateReset(it, old)
	default:
		t.propagate(it, old)
	}
}

func (t *Theme) stateRun(it *Item, old State) {
	if it.State != old && t.hook != nil {
		t.hook(it, old)
	}
}

//propagate pushes the state of it down to every descendant
func (t *Theme) propagate(it *Item, old State) {
	t.stateRun(it, old)
	for _, c := range it.Children() {
		prev := c.State
		c.State = it.State
		t.propagate(c, prev)
	}
}

//propagateReset returns the children to their own base state
func (t *Theme) propagateReset(it *Item, old State) {
	t.stateRun(it, old)
	for _, c := range it.Children() {
		prev := c.State
		c.State = c.BaseState
		t.propagate(c, prev)
	}
}
