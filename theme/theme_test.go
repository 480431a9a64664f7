package theme

import (
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

//fakeMetrics makes every character 10x20 pixels
type fakeMetrics struct{}

func (fakeMetrics) TextSize(markup, font string) Size {
	return Size{Width: 10 * utf8.RuneCountInString(markup), Height: 20}
}

func (fakeMetrics) ImageSize(path string) (int, int, error) {
	return 0, 0, os.ErrNotExist
}

var everywhere = Display{Local: true, ConfigAvailable: true, SystemMenu: true, Halt: true, Reboot: true, Suspend: true}

func parseTheme(t *testing.T, doc string, width, height int) *Theme {
	t.Helper()
	th, err := Parse(strings.NewReader(doc), Options{
		Width:   width,
		Height:  height,
		Metrics: fakeMetrics{},
	})
	require.NoError(t, err)
	return th
}
