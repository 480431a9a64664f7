//Package xdmcpscan discovers XDMCP display managers on the local
//network and hands the chosen one back to xdm.
package xdmcpscan

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/jpillora/xdmcpscan/xdmcp"
	"github.com/sirupsen/logrus"
)

//Spec defines a chooser
type Spec struct {
	//Hosts are probe targets, see ParseTargets
	Hosts []string
	//Port is the XDMCP port probed on every target
	Port int
	//ScanTime is how long a scan runs before it is reported done
	ScanTime time.Duration
	//PingInterval separates probe rounds
	PingInterval time.Duration
	//PingTries is the number of probe rounds per scan, including the first
	PingTries int
	//AddTimeout is how long a host added with AddHost may stay silent
	AddTimeout time.Duration
	//RescanInterval restarts the scan periodically, zero disables
	RescanInterval time.Duration
	//DNSServer is used for reverse lookups, empty uses resolv.conf
	DNSServer string
	//StatusCharset decodes status messages that are not UTF-8
	StatusCharset string
	//XDMAddress, ClientAddress and ConnectionType come from xdm
	//and enable the rendezvous reply in Choose
	XDMAddress     string
	ClientAddress  string
	ConnectionType int
	//Output receives the chosen host name
	Output io.Writer
	Log    logrus.FieldLogger
	//Resolver overrides reverse name lookups
	Resolver Resolver
}

const (
	defaultScanTime     = 4 * time.Second
	defaultPingInterval = 2 * time.Second
	defaultPingTries    = 3
	defaultAddTimeout   = 3 * time.Second
)

func (s Spec) withDefaults() Spec {
	if s.Port == 0 {
		s.Port = xdmcp.Port
	}
	if s.ScanTime == 0 {
		s.ScanTime = defaultScanTime
	}
	if s.PingInterval == 0 {
		s.PingInterval = defaultPingInterval
	}
	if s.PingTries == 0 {
		s.PingTries = defaultPingTries
	}
	if s.AddTimeout == 0 {
		s.AddTimeout = defaultAddTimeout
	}
	if s.Output == nil {
		s.Output = os.Stdout
	}
	if s.Log == nil {
		s.Log = logrus.StandardLogger()
	}
	if s.Resolver == nil {
		s.Resolver = NewResolver(s.DNSServer)
	}
	return s
}

//Run performs a single scan with the given spec and returns
//every responder once the scan time has elapsed
func Run(ctx context.Context, s Spec) (Hosts, error) {
	c, err := NewChooser(ctx, s)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	runErr := make(chan error, 1)
	go func() {
		runErr <- c.Run(ctx)
	}()
	select {
	case err := <-runErr:
		return c.Hosts(), err
	case <-time.After(c.spec.ScanTime):
	case <-ctx.Done():
	}
	cancel()
	if err := <-runErr; err != nil {
		return c.Hosts(), err
	}
	return c.Hosts(), nil
}
