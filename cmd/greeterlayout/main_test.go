package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/jpillora/xdmcpscan/theme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = `<greeter>
  <item type="rect" id="panel">
    <pos x="10" y="10" width="200" height="100"/>
    <fixed>
      <item type="rect" id="inner"><pos x="5" y="5" width="20" height="20"/></item>
    </fixed>
  </item>
  <item type="rect" id="remote-only"><show modes="remote"/><pos width="5" height="5"/></item>
</greeter>`

func parse(t *testing.T) *theme.Theme {
	th, err := theme.Parse(strings.NewReader(doc), theme.Options{Width: 1024, Height: 768})
	require.NoError(t, err)
	return th
}

func TestRender(t *testing.T) {
	buf := bytes.Buffer{}
	render(&buf, parse(t), theme.Display{Local: true}, config{})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "panel")
	assert.Contains(t, lines[0], "200x100")
	assert.True(t, strings.HasPrefix(lines[1], "  inner"))
	assert.Contains(t, lines[1], "15,15")
}

func TestRenderJSON(t *testing.T) {
	buf := bytes.Buffer{}
	render(&buf, parse(t), theme.Display{}, config{JSON: true})
	rows := []allocation{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "inner", rows[1].ID)
	assert.Equal(t, 1, rows[1].Depth)
	assert.True(t, rows[2].Visible)
	assert.Equal(t, theme.Rect{Width: 5, Height: 5}, rows[2].Rect)
}

func TestEnvLanguages(t *testing.T) {
	for _, k := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		t.Setenv(k, "")
	}
	assert.Nil(t, envLanguages())
	t.Setenv("LANG", "de_DE.UTF-8")
	assert.Equal(t, []string{"de_DE.UTF-8", "de_DE", "de"}, envLanguages())
	t.Setenv("LANGUAGE", "fr:C")
	assert.Equal(t, []string{"fr"}, envLanguages())
}
