package xdmcpscan

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jpillora/ipmath"
	"github.com/jpillora/xdmcpscan/xdmcp"
	"github.com/sirupsen/logrus"
)

//BroadcastKeyword in a host list expands to every interface broadcast address
const BroadcastKeyword = "BROADCAST"

//maxSweep caps how many addresses a CIDR host spec may expand to
const maxSweep = 4096

//ErrUnknownHost is returned when a host spec cannot be turned into an address
var ErrUnknownHost = errors.New("unknown host")

//Targets are the addresses probed during a scan
type Targets struct {
	Broadcast []net.IP
	Query     []net.IP
	seen      map[ipKey]bool
}

func (t *Targets) addBroadcast(ip net.IP) {
	for _, b := range t.Broadcast {
		if b.Equal(ip) {
			return
		}
	}
	t.Broadcast = append(t.Broadcast, ip.To4())
}

//addQuery appends ip unless it is already a query target
func (t *Targets) addQuery(ip net.IP) bool {
	if t.seen == nil {
		t.seen = map[ipKey]bool{}
	}
	k := keyOf(ip)
	if t.seen[k] {
		return false
	}
	t.seen[k] = true
	t.Query = append(t.Query, ip.To4())
	return true
}

//Empty is true when nothing would be probed
func (t *Targets) Empty() bool {
	return len(t.Broadcast) == 0 && len(t.Query) == 0
}

//ParseTargets turns host specs into probe targets. A spec is BROADCAST,
//8 hex digits, a dotted quad, a CIDR subnet or a hostname. Specs that
//cannot be resolved are logged and skipped. With no usable spec at all,
//the interface broadcast addresses are used.
func ParseTargets(ctx context.Context, specs []string, log logrus.FieldLogger) (*Targets, error) {
	t := &Targets{}
	for _, spec := range specs {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		if spec == BroadcastKeyword {
			if err := t.findBroadcast(); err != nil {
				return nil, err
			}
			continue
		}
		if strings.Contains(spec, "/") {
			ips, err := sweep(spec)
			if err != nil {
				return nil, err
			}
			for _, ip := range ips {
				t.addQuery(ip)
			}
			continue
		}
		ip, err := resolveHost(ctx, spec)
		if err != nil {
			log.WithError(err).WithField("host", spec).Warn("skipping host")
			continue
		}
		t.addQuery(ip)
	}
	if t.Empty() {
		if err := t.findBroadcast(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

//resolveHost turns a single host spec into an IPv4 address
func resolveHost(ctx context.Context, spec string) (net.IP, error) {
	if len(spec) == 8 {
		if ip, err := xdmcp.DecodeHexIPv4(spec); err == nil {
			return ip, nil
		}
	}
	if ip := net.ParseIP(spec); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			return ip4, nil
		}
		return nil, fmt.Errorf("%w: only ipv4 addresses supported (%s)", ErrUnknownHost, spec)
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnknownHost, spec, err)
	}
	for _, a := range addrs {
		if ip4 := a.IP.To4(); ip4 != nil {
			return ip4, nil
		}
	}
	return nil, fmt.Errorf("%w: %s has no ipv4 address", ErrUnknownHost, spec)
}

//sweep lists every unicast address of an ipv4 subnet
func sweep(cidr string) ([]net.IP, error) {
	ip, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, err
	}
	if ip.To4() == nil {
		return nil, fmt.Errorf("only ipv4 networks supported (%s)", cidr)
	}
	ones, bits := network.Mask.Size()
	if bits-ones > 12 {
		return nil, fmt.Errorf("network %s is larger than %d addresses", cidr, maxSweep)
	}
	ips := []net.IP{}
	for curr := network.IP; network.Contains(curr); curr = ipmath.NextIP(curr) {
		//point-to-point and host routes have no network/broadcast address
		if ones < 31 &&
			(ipmath.IsNetworkAddress(curr, network) ||
				ipmath.IsBroadcastAddress(curr, network)) {
			continue
		}
		ip := make(net.IP, net.IPv4len)
		copy(ip, curr.To4())
		ips = append(ips, ip)
	}
	return ips, nil
}

//findBroadcast adds the broadcast address of every up,
//broadcast-capable ipv4 interface address
func (t *Targets) findBroadcast() error {
	intfs, err := net.Interfaces()
	if err != nil {
		return fmt.Errorf("could not get local addresses: %w", err)
	}
	for _, intf := range intfs {
		if intf.Flags&net.FlagUp == 0 || intf.Flags&net.FlagBroadcast == 0 {
			continue
		}
		addrs, err := intf.Addrs()
		if err != nil {
			return err
		}
		for _, addr := range addrs {
			network, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if bc := broadcastAddr(network); bc != nil {
				t.addBroadcast(bc)
			}
		}
	}
	return nil
}

//broadcastAddr is the all-ones host address of an ipv4 network
func broadcastAddr(network *net.IPNet) net.IP {
	ip4 := network.IP.To4()
	if ip4 == nil {
		return nil
	}
	mask := network.Mask
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	if len(mask) != net.IPv4len {
		return nil
	}
	if ones, _ := mask.Size(); ones >= 31 {
		return nil
	}
	bc := make(net.IP, net.IPv4len)
	for i := range bc {
		bc[i] = ip4[i] | ^mask[i]
	}
	n := &net.IPNet{IP: ip4.Mask(mask), Mask: mask}
	if !ipmath.IsBroadcastAddress(bc, n) {
		return nil
	}
	return bc
}
