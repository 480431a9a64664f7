package xdmcpscan

import (
	"encoding/binary"
	"net"
	"sort"
)

//Host is an XDMCP responder
type Host struct {
	Name      string `json:"name"`
	Status    string `json:"status,omitempty"`
	IP        net.IP `json:"ip"`
	Willing   bool   `json:"willing"`
	MAC       string `json:"mac,omitempty"`
	Interface string `json:"interface,omitempty"`
}

//Addr is the dotted quad form of the host address
func (h *Host) Addr() string {
	return h.IP.String()
}

//Hosts is a slice of Host
type Hosts []Host

//Sort by name, then by IP
func (h Hosts) Len() int      { return len(h) }
func (h Hosts) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h Hosts) Less(i, j int) bool {
	if h[i].Name != h[j].Name {
		return h[i].Name < h[j].Name
	}
	return ipToUint32(h[i].IP) < ipToUint32(h[j].IP)
}

//Willing returns only the hosts that offered to manage a session
func (h Hosts) Willing() Hosts {
	out := Hosts{}
	for _, host := range h {
		if host.Willing {
			out = append(out, host)
		}
	}
	return out
}

//Find returns the host with the given name or address
func (h Hosts) Find(nameOrAddr string) (Host, bool) {
	for _, host := range h {
		if host.Name == nameOrAddr || host.Addr() == nameOrAddr {
			return host, true
		}
	}
	return Host{}, false
}

func ipToUint32(ip net.IP) uint32 {
	ip4 := ip.To4()
	if ip4 == nil {
		return 0
	}
	return binary.BigEndian.Uint32([]byte(ip4))
}

type ipKey [4]byte

func keyOf(ip net.IP) ipKey {
	k := ipKey{}
	copy(k[:], ip.To4())
	return k
}

//hostSet holds one record per address
type hostSet map[ipKey]*Host

//upsert replaces any record for the same address
func (s hostSet) upsert(h *Host) {
	s[keyOf(h.IP)] = h
}

func (s hostSet) get(ip net.IP) (*Host, bool) {
	h, ok := s[keyOf(ip)]
	return h, ok
}

func (s hostSet) willing() int {
	n := 0
	for _, h := range s {
		if h.Willing {
			n++
		}
	}
	return n
}

func (s hostSet) snapshot() Hosts {
	out := make(Hosts, 0, len(s))
	for _, h := range s {
		out = append(out, *h)
	}
	if len(out) >= 2 {
		sort.Sort(out)
	}
	return out
}
