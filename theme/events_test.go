package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const buttonTheme = `<greeter>
  <item type="rect" id="ok" button="true">
    <pos x="0" y="0" width="box" height="box"/>
    <box>
      <item type="label" id="ok-label"><text>OK</text></item>
      <item type="rect" id="ok-icon"><pos width="10" height="10"/></item>
    </box>
  </item>
  <item type="rect" id="plain"><pos width="10" height="10"/></item>
</greeter>`

type stateChange struct {
	id       string
	old, new State
}

func recordStates(th *Theme) *[]stateChange {
	changes := []stateChange{}
	th.OnStateChange(func(it *Item, old State) {
		changes = append(changes, stateChange{it.ID, old, it.State})
	})
	return &changes
}

func TestButtonStates(t *testing.T) {
	th := parseTheme(t, buttonTheme, 1024, 768)
	changes := recordStates(th)
	clicks := 0
	th.RegisterAction("ok", func(it *Item) {
		assert.Equal(t, "ok", it.ID)
		clicks++
	})
	ok, label, icon := th.Lookup("ok"), th.Lookup("ok-label"), th.Lookup("ok-icon")
	require.NotNil(t, label)

	//the label forwards to its button
	th.HandleEvent(label, Enter)
	assert.Equal(t, Prelight, ok.State)
	assert.Equal(t, Prelight, label.State)
	assert.Equal(t, Prelight, icon.State)
	assert.False(t, label.MouseOver)
	assert.Equal(t, []stateChange{
		{"ok", Normal, Prelight},
		{"ok-label", Normal, Prelight},
		{"ok-icon", Normal, Prelight},
	}, *changes)

	th.HandleEvent(icon, Press)
	assert.Equal(t, Active, ok.State)
	assert.Equal(t, Active, icon.State)
	assert.Equal(t, 0, clicks)

	th.HandleEvent(ok, Release)
	assert.Equal(t, 1, clicks)
	assert.Equal(t, Prelight, ok.State)
	assert.Equal(t, Prelight, label.State)

	*changes = nil
	th.HandleEvent(ok, Leave)
	assert.Equal(t, Normal, ok.State)
	assert.Equal(t, Normal, label.State)
	assert.Equal(t, Normal, icon.State)
	assert.Len(t, *changes, 3)

	//release outside does not click
	th.HandleEvent(ok, Press)
	th.HandleEvent(ok, Release)
	assert.Equal(t, 1, clicks)
	assert.Equal(t, Normal, ok.State)
}

func TestFocusLost(t *testing.T) {
	th := parseTheme(t, buttonTheme, 1024, 768)
	ok, label := th.Lookup("ok"), th.Lookup("ok-label")
	th.HandleEvent(ok, Enter)
	th.HandleEvent(ok, Press)
	require.Equal(t, Active, label.State)
	th.FocusLost(label)
	assert.False(t, ok.MouseOver)
	assert.False(t, ok.MouseDown)
	assert.Equal(t, Normal, ok.State)
	assert.Equal(t, Normal, label.State)
}

func TestPlainItemState(t *testing.T) {
	th := parseTheme(t, buttonTheme, 1024, 768)
	changes := recordStates(th)
	clicked := false
	th.RegisterAction("plain", func(*Item) { clicked = true })
	plain := th.Lookup("plain")

	th.HandleEvent(plain, Enter)
	th.HandleEvent(plain, Press)
	assert.Equal(t, Active, plain.State)
	assert.Equal(t, Active, plain.BaseState)
	th.HandleEvent(plain, Release)
	assert.True(t, clicked)
	th.HandleEvent(plain, Leave)
	assert.Equal(t, []stateChange{
		{"plain", Normal, Prelight},
		{"plain", Prelight, Active},
		{"plain", Active, Prelight},
		{"plain", Prelight, Normal},
	}, *changes)
	assert.Equal(t, Normal, th.Lookup("ok").State)
}

func TestRunActionUnknown(t *testing.T) {
	th := parseTheme(t, buttonTheme, 1024, 768)
	assert.NotPanics(t, func() {
		th.RunAction("missing")
		th.RunAction("plain")
	})
}
