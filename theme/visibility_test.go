package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayMode(t *testing.T) {
	assert.Equal(t, ShowConsoleFixed, Display{Local: true}.Mode())
	assert.Equal(t, ShowConsoleFlexi, Display{Local: true, Flexi: true}.Mode())
	assert.Equal(t, ShowRemoteFlexi, Display{Flexi: true}.Mode())
	assert.Equal(t, ShowRemote, Display{}.Mode())
}

func TestVisible(t *testing.T) {
	for _, tt := range []struct {
		name     string
		modes    ShowModes
		showType string
		display  Display
		want     bool
	}{
		{"everywhere", ShowEverywhere, "", Display{}, true},
		{"nowhere", ShowNowhere, "", Display{Local: true}, false},
		{"console on console", ShowConsole, "", Display{Local: true}, true},
		{"console on flexi console", ShowConsole, "", Display{Local: true, Flexi: true}, true},
		{"console on remote", ShowConsole, "", Display{}, false},
		{"flexi on remote flexi", ShowFlexi, "", Display{Flexi: true}, true},
		{"flexi on fixed console", ShowFlexi, "", Display{Local: true}, false},
		{"remote", ShowRemote, "", Display{}, true},
		{"config unavailable", ShowEverywhere, "config", Display{Local: true}, false},
		{"config available", ShowEverywhere, "config", Display{Local: true, ConfigAvailable: true}, true},
		{"system menu", ShowEverywhere, "system", Display{SystemMenu: true}, true},
		{"halt", ShowEverywhere, "halt", Display{Reboot: true}, false},
		{"reboot", ShowEverywhere, "reboot", Display{Reboot: true}, true},
		{"suspend", ShowEverywhere, "suspend", Display{Suspend: true}, true},
		{"timed pending", ShowEverywhere, "timed", Display{TimedLogin: "guest"}, true},
		{"timed idle", ShowEverywhere, "timed", Display{}, false},
		{"mode wins over type", ShowRemote, "timed", Display{Local: true, TimedLogin: "guest"}, false},
		{"unknown type", ShowEverywhere, "fancy", Display{}, true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			it := &Item{ShowModes: tt.modes, ShowType: tt.showType}
			assert.Equal(t, tt.want, tt.display.Visible(it))
		})
	}
}
