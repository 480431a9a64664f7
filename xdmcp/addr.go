package xdmcp

import (
	"encoding/hex"
	"net"
	"strconv"

	"golang.org/x/xerrors"
)

//address families as xdm encodes them (Linux values)
const (
	FamilyInet  = 2
	FamilyInet6 = 10
)

//maxHexAddress bounds the hex-encoded addresses xdm passes on the command line
const maxHexAddress = 64

//DecodeHex decodes pairs of hex digits. xdm and the chooser
//exchange addresses in this form ("c0a80001" is 192.168.0.1).
func DecodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, xerrors.Errorf("xdmcp: hex address %q: %w", s, err)
	}
	return b, nil
}

//DecodeHexIPv4 decodes exactly eight hex digits into an IPv4 address
func DecodeHexIPv4(s string) (net.IP, error) {
	if len(s) != 8 {
		return nil, xerrors.Errorf("xdmcp: %q is not 8 hex digits", s)
	}
	b, err := DecodeHex(s)
	if err != nil {
		return nil, err
	}
	return net.IPv4(b[0], b[1], b[2], b[3]).To4(), nil
}

//XDMAddress is the rendezvous socket of the xdm that started the chooser
type XDMAddress struct {
	Family uint16
	Port   uint16
	IP     net.IP
}

func (a XDMAddress) String() string {
	return net.JoinHostPort(a.IP.String(), strconv.Itoa(int(a.Port)))
}

//ParseXDMAddress decodes the --xdmaddress argument: family (2 bytes),
//port (2 bytes) then a 4 or 16 byte address, all hex encoded
func ParseXDMAddress(s string) (XDMAddress, error) {
	a := XDMAddress{}
	if len(s) > maxHexAddress {
		return a, xerrors.Errorf("xdmcp: xdm address %q longer than %d digits", s, maxHexAddress)
	}
	b, err := DecodeHex(s)
	if err != nil {
		return a, xerrors.Errorf("invalid xdm address: %w", err)
	}
	r := NewReader(b)
	if a.Family, err = r.ReadCARD16(); err != nil {
		return a, xerrors.Errorf("xdm address family: %w", err)
	}
	if a.Port, err = r.ReadCARD16(); err != nil {
		return a, xerrors.Errorf("xdm address port: %w", err)
	}
	var n int
	switch a.Family {
	case FamilyInet:
		n = net.IPv4len
	case FamilyInet6:
		n = net.IPv6len
	default:
		return a, xerrors.Errorf("xdmcp: unsupported xdm address family %d", a.Family)
	}
	ip, err := r.next(n)
	if err != nil {
		return a, xerrors.Errorf("xdm address: %w", err)
	}
	a.IP = make(net.IP, n)
	copy(a.IP, ip)
	return a, nil
}

//ParseClientAddress decodes the --clientaddress argument
func ParseClientAddress(s string) ([]byte, error) {
	if len(s) > maxHexAddress {
		return nil, xerrors.Errorf("xdmcp: client address %q longer than %d digits", s, maxHexAddress)
	}
	b, err := DecodeHex(s)
	if err != nil {
		return nil, xerrors.Errorf("invalid client address: %w", err)
	}
	return b, nil
}

//ChooserReply is what the chooser writes back to xdm once a host is chosen
type ChooserReply struct {
	ClientAddress  []byte
	ConnectionType uint16
	Host           []byte
}

func (c *ChooserReply) MarshalBinary() ([]byte, error) {
	w := &Writer{}
	if err := w.WriteARRAY8(c.ClientAddress); err != nil {
		return nil, err
	}
	w.WriteCARD16(c.ConnectionType)
	if err := w.WriteARRAY8(c.Host); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func (c *ChooserReply) UnmarshalBinary(b []byte) error {
	r := NewReader(b)
	var err error
	if c.ClientAddress, err = r.ReadARRAY8(); err != nil {
		return xerrors.Errorf("chooser reply client address: %w", err)
	}
	if c.ConnectionType, err = r.ReadCARD16(); err != nil {
		return xerrors.Errorf("chooser reply connection type: %w", err)
	}
	if c.Host, err = r.ReadARRAY8(); err != nil {
		return xerrors.Errorf("chooser reply host: %w", err)
	}
	return nil
}
