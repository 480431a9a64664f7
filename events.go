package xdmcpscan

import "fmt"

//EventType identifies what changed in a Chooser
type EventType int

const (
	//ScanStarted is sent when the host list was cleared for a new scan
	ScanStarted EventType = iota
	//HostUpdated is sent for every WILLING or UNWILLING reply
	HostUpdated
	//ScanDone is sent once the scan time has elapsed
	ScanDone
	//HostSelected is sent when a host given to AddHost is willing
	HostSelected
	//AddUnwilling is sent when a host given to AddHost declined
	AddUnwilling
	//AddTimeout is sent when a host given to AddHost never replied
	AddTimeout
)

func (t EventType) String() string {
	switch t {
	case ScanStarted:
		return "scan-started"
	case HostUpdated:
		return "host-updated"
	case ScanDone:
		return "scan-done"
	case HostSelected:
		return "host-selected"
	case AddUnwilling:
		return "add-unwilling"
	case AddTimeout:
		return "add-timeout"
	}
	return fmt.Sprintf("event(%d)", int(t))
}

//Event reports a change in a Chooser
type Event struct {
	Type EventType
	//Host is set for HostUpdated, HostSelected and AddUnwilling
	Host *Host
	//Willing counts willing hosts when a scan is done
	Willing int
	//Query is the host spec given to AddHost
	Query string
}
