package main

import (
	"context"
	"io"
	"net"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jpillora/xdmcpscan"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModel(t *testing.T) model {
	log, _ := test.NewNullLogger()
	c, err := xdmcpscan.NewChooser(context.Background(), xdmcpscan.Spec{
		Hosts:  []string{"127.0.0.1"},
		Port:   9,
		Log:    log,
		Output: io.Discard,
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return newModel(context.Background(), c, false)
}

func keyPress(s string) tea.KeyMsg {
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelChoose(t *testing.T) {
	m := testModel(t)
	m.hosts = xdmcpscan.Hosts{
		{Name: "alpha", IP: net.IPv4(10, 0, 0, 1), Status: "busy"},
		{Name: "beta", IP: net.IPv4(10, 0, 0, 2), Willing: true},
	}

	next, _ := m.Update(keyPress("enter"))
	m = next.(model)
	assert.Nil(t, m.chosen)
	assert.Equal(t, "alpha is not willing", m.status)

	next, _ = m.Update(keyPress("j"))
	m = next.(model)
	assert.Equal(t, 1, m.cursor)
	next, cmd := m.Update(keyPress("enter"))
	m = next.(model)
	require.NotNil(t, m.chosen)
	assert.Equal(t, "beta", m.chosen.Name)
	assert.NotNil(t, cmd)

	assert.Contains(t, m.View(), "beta")
}

func TestModelEvents(t *testing.T) {
	m := testModel(t)
	next, _ := m.Update(eventMsg{Type: xdmcpscan.ScanDone})
	m = next.(model)
	assert.False(t, m.scanning)
	assert.Equal(t, "no willing hosts found", m.status)

	next, _ = m.Update(eventMsg{Type: xdmcpscan.AddTimeout, Query: "gamma"})
	m = next.(model)
	assert.Equal(t, "gamma did not reply", m.status)

	next, _ = m.Update(eventMsg{Type: xdmcpscan.ScanStarted})
	m = next.(model)
	assert.True(t, m.scanning)
	assert.Empty(t, m.status)

	h := &xdmcpscan.Host{Name: "delta", Willing: true}
	next, _ = m.Update(eventMsg{Type: xdmcpscan.HostSelected, Host: h})
	m = next.(model)
	require.NotNil(t, m.chosen)
	assert.Equal(t, "delta", m.chosen.Name)
}

func TestModelAddDisabled(t *testing.T) {
	m := testModel(t)
	next, _ := m.Update(keyPress("a"))
	m = next.(model)
	assert.False(t, m.adding)
	assert.Equal(t, "adding hosts is disabled", m.status)

	m.allowAdd = true
	next, _ = m.Update(keyPress("a"))
	m = next.(model)
	assert.True(t, m.adding)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(model)
	assert.False(t, m.adding)
}
