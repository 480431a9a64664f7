package xdmcpscan

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jpillora/xdmcpscan/xdmcp"
	"gopkg.in/yaml.v3"
)

//Config is the chooser section of a config file
type Config struct {
	Hosts          []string      `yaml:"hosts"`
	Broadcast      bool          `yaml:"broadcast"`
	ScanTime       time.Duration `yaml:"scan_time"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	PingTries      int           `yaml:"ping_tries"`
	AddTimeout     time.Duration `yaml:"add_timeout"`
	RescanInterval time.Duration `yaml:"rescan_interval"`
	Port           int           `yaml:"port"`
	DNSServer      string        `yaml:"dns_server"`
	StatusCharset  string        `yaml:"status_charset"`
	AllowAdd       bool          `yaml:"allow_add"`
}

//DefaultConfig matches the stock display manager settings
func DefaultConfig() Config {
	return Config{
		Broadcast:     true,
		ScanTime:      defaultScanTime,
		PingInterval:  defaultPingInterval,
		PingTries:     defaultPingTries,
		AddTimeout:    defaultAddTimeout,
		Port:          xdmcp.Port,
		StatusCharset: "ISO-8859-1",
		AllowAdd:      true,
	}
}

//LoadConfig reads path over the defaults. A missing file
//yields the defaults.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	} else if err != nil {
		return c, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

//Validate rejects values the chooser cannot run with
func (c Config) Validate() error {
	switch {
	case c.ScanTime <= 0:
		return errors.New("scan_time must be positive")
	case c.PingInterval <= 0:
		return errors.New("ping_interval must be positive")
	case c.PingTries < 1:
		return errors.New("ping_tries must be at least 1")
	case c.AddTimeout <= 0:
		return errors.New("add_timeout must be positive")
	case c.RescanInterval < 0:
		return errors.New("rescan_interval cannot be negative")
	case c.Port < 1 || c.Port > 65535:
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

//Spec converts the config into a chooser spec
func (c Config) Spec() Spec {
	hosts := append([]string{}, c.Hosts...)
	if c.Broadcast {
		hosts = append(hosts, BroadcastKeyword)
	}
	return Spec{
		Hosts:          hosts,
		Port:           c.Port,
		ScanTime:       c.ScanTime,
		PingInterval:   c.PingInterval,
		PingTries:      c.PingTries,
		AddTimeout:     c.AddTimeout,
		RescanInterval: c.RescanInterval,
		DNSServer:      c.DNSServer,
		StatusCharset:  c.StatusCharset,
	}
}
