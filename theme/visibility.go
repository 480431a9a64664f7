package theme

//Display describes the screen a greeter runs on
type Display struct {
	//Local is a console display, otherwise remote
	Local bool
	//Flexi is an on demand server
	Flexi bool
	//capabilities gating items by show type
	ConfigAvailable bool
	SystemMenu      bool
	Halt            bool
	Reboot          bool
	Suspend         bool
	//TimedLogin is the user of a pending timed login
	TimedLogin string
}

//Mode is the single show mode bit matching d
func (d Display) Mode() ShowModes {
	switch {
	case d.Local && !d.Flexi:
		return ShowConsoleFixed
	case d.Local && d.Flexi:
		return ShowConsoleFlexi
	case d.Flexi:
		return ShowRemoteFlexi
	}
	return ShowRemote
}

//Visible reports whether it is shown on d. Ancestors are not consulted.
func (d Display) Visible(it *Item) bool {
	if it.ShowModes&d.Mode() == 0 {
		return false
	}
	switch it.ShowType {
	case "config":
		return d.ConfigAvailable
	case "system":
		return d.SystemMenu
	case "halt":
		return d.Halt
	case "reboot":
		return d.Reboot
	case "suspend":
		return d.Suspend
	case "timed":
		return d.TimedLogin != ""
	}
	return true
}
