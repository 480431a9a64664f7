package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpillora/opts"
	"github.com/jpillora/xdmcpscan"
	"github.com/sirupsen/logrus"
)

func main() {
	c := struct {
		Config         string        `help:"YAML config file"`
		Hosts          []string      `type:"args" help:"<hosts> is a list of names, addresses, 8 digit hex addresses, subnets or BROADCAST (defaults to the config)"`
		Timeout        time.Duration `help:"Scan time" default:"from config"`
		Port           int           `help:"XDMCP port" default:"from config"`
		JSON           bool          `help:"Output results in JSON"`
		Interactive    bool          `help:"Pick a host in a terminal UI"`
		Choose         string        `help:"Report this host as the choice once the scan is done"`
		Xdmaddress     string        `help:"Hex address of the xdm that started the chooser"`
		Clientaddress  string        `help:"Hex address of the display being served"`
		Connectiontype int           `help:"XDMCP connection type of the client address"`
		Verbose        bool          `help:"Log dropped packets and lookups"`
	}{}

	opts.New(&c).Name("xdmcpscan").Parse()

	if c.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	conf, err := xdmcpscan.LoadConfig(c.Config)
	if err != nil {
		logrus.WithError(err).Fatal("could not load config")
	}
	if len(c.Hosts) > 0 {
		conf.Hosts = c.Hosts
		conf.Broadcast = false
	}
	if c.Timeout > 0 {
		conf.ScanTime = c.Timeout
	}
	if c.Port > 0 {
		conf.Port = c.Port
	}
	if err := conf.Validate(); err != nil {
		logrus.WithError(err).Fatal("invalid settings")
	}
	spec := conf.Spec()
	spec.XDMAddress = c.Xdmaddress
	spec.ClientAddress = c.Clientaddress
	spec.ConnectionType = c.Connectiontype

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.Interactive {
		if err := runInteractive(ctx, spec, conf.AllowAdd); err != nil {
			logrus.WithError(err).Fatal("chooser failed")
		}
		return
	}

	hosts, err := xdmcpscan.Run(ctx, spec)
	if err != nil {
		logrus.WithError(err).Fatal("scan failed")
	}

	if c.Choose != "" {
		h, ok := hosts.Find(c.Choose)
		if !ok {
			logrus.WithField("host", c.Choose).Fatal("host did not reply")
		}
		if !h.Willing {
			logrus.WithFields(logrus.Fields{
				"host":   h.Name,
				"status": h.Status,
			}).Fatal("host is unwilling")
		}
		if err := xdmcpscan.Choose(ctx, spec, h); err != nil {
			logrus.WithError(err).Fatal("could not report choice")
		}
		return
	}

	if c.JSON {
		e := json.NewEncoder(os.Stdout)
		e.SetIndent("", "  ")
		e.Encode(hosts)
		return
	}

	for i, host := range hosts {
		status := host.Status
		if !host.Willing {
			status = "unwilling: " + status
		}
		fmt.Printf("[%03d] %s (%s) %s\n", i+1, host.Name, host.IP, status)
	}
}
