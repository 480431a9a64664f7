package xdmcpscan

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/sync/singleflight"
)

//Resolver maps a responder address to a display name
type Resolver interface {
	LookupAddr(ctx context.Context, ip net.IP) (string, error)
}

var errNoName = errors.New("no name found")

const lookupTimeout = 2 * time.Second

//dnsResolver races PTR lookups against the configured DNS servers,
//the host itself over mDNS and the host's NetBIOS name service
type dnsResolver struct {
	dns     *dns.Client
	servers []string
	flight  singleflight.Group
	mut     sync.Mutex
	cache   map[string]string
}

//NewResolver creates a Resolver. server may be empty, in which case the
//nameservers from /etc/resolv.conf are used, and failing that the first
//address of the responder's /24 is guessed.
func NewResolver(server string) Resolver {
	r := &dnsResolver{
		dns:   &dns.Client{Timeout: lookupTimeout},
		cache: map[string]string{},
	}
	if server != "" {
		if _, _, err := net.SplitHostPort(server); err != nil {
			server = net.JoinHostPort(server, "53")
		}
		r.servers = []string{server}
	} else if conf, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil {
		for _, s := range conf.Servers {
			r.servers = append(r.servers, net.JoinHostPort(s, conf.Port))
		}
	}
	return r
}

func (r *dnsResolver) LookupAddr(ctx context.Context, ip net.IP) (string, error) {
	key := ip.String()
	r.mut.Lock()
	name, ok := r.cache[key]
	r.mut.Unlock()
	if ok {
		return name, nil
	}
	v, err, _ := r.flight.Do(key, func() (interface{}, error) {
		name := r.lookupHostname(ctx, ip)
		if name == "" {
			return "", errNoName
		}
		r.mut.Lock()
		r.cache[key] = name
		r.mut.Unlock()
		return name, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *dnsResolver) lookupHostname(ctx context.Context, ip net.IP) string {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()
	//prepare query
	target, err := dns.ReverseAddr(ip.String())
	if err != nil {
		return ""
	}
	m := &dns.Msg{}
	m.SetQuestion(target, dns.TypePTR)
	servers := r.servers
	if len(servers) == 0 {
		//guess the router
		b := make([]byte, 4)
		copy(b, []byte(ip.To4()))
		b[3] = 1
		servers = []string{net.IP(b).String() + ":53"}
	}
	wg := sync.WaitGroup{}
	result := make(chan string, 2+len(servers))
	//send to host (mdns)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if name := r.exchangePTR(m.Copy(), ip.String()+":5353"); name != "" {
			result <- strings.TrimSuffix(name, ".local")
		}
	}()
	//send to dns servers
	for _, server := range servers {
		wg.Add(1)
		go func(server string) {
			defer wg.Done()
			//give the host a slight headstart
			time.Sleep(5 * time.Millisecond)
			if name := r.exchangePTR(m.Copy(), server); name != "" {
				result <- name
			}
		}(server)
	}
	//send to host (netbios name service)
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(5 * time.Millisecond)
		if name, err := lookupNetBIOSName(ctx, ip); err == nil && name != "" {
			result <- name
		}
	}()
	//close after all have returned
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	//use first result
	select {
	case name := <-result:
		return name
	case <-done:
		select {
		case name := <-result:
			return name
		default:
			return ""
		}
	case <-ctx.Done():
		return ""
	}
}

func (r *dnsResolver) exchangePTR(m *dns.Msg, server string) string {
	resp, _, err := r.dns.Exchange(m, server)
	if err != nil || resp == nil {
		return ""
	}
	for _, rr := range resp.Answer {
		if p, ok := rr.(*dns.PTR); ok {
			return strings.TrimSuffix(p.Ptr, ".")
		}
	}
	return ""
}

func lookupNetBIOSName(ctx context.Context, ip net.IP) (string, error) {
	m := dns.Msg{}
	m.SetQuestion("CKAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA.", 33)
	b, err := m.Pack()
	if err != nil {
		return "", err
	}
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "udp", ip.String()+":137")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(lookupTimeout)
	}
	conn.SetDeadline(deadline)
	if _, err := conn.Write(b); err != nil {
		return "", err
	}
	buff := make([]byte, 512)
	n, err := conn.Read(buff)
	if err != nil {
		return "", err
	}
	return parseNetBIOSStatus(m.Id, buff[:n])
}

//parseNetBIOSStatus extracts the first name of a node status response
func parseNetBIOSStatus(id uint16, b []byte) (string, error) {
	if len(b) < 12 {
		return "", fmt.Errorf("no header")
	}
	if id != binary.BigEndian.Uint16(b[0:2]) {
		return "", fmt.Errorf("id mismatch")
	}
	//==== headers
	answers := binary.BigEndian.Uint16(b[6:8])
	if answers == 0 {
		return "", fmt.Errorf("no answers")
	}
	//==== answers
	b = b[12:]
	offset := 0
	for offset < len(b) && b[offset] != 0 {
		offset++
	}
	if offset == len(b) {
		return "", fmt.Errorf("too short")
	}
	b = b[offset+1:]
	//rtype, rclass, ttl, rdlength then the name count
	if len(b) < 11 {
		return "", fmt.Errorf("no answer")
	}
	names := b[10]
	if names == 0 {
		return "", fmt.Errorf("no names")
	}
	b = b[11:]
	offset = 0
	for offset < len(b) && offset < 15 && b[offset] != 0 {
		offset++
	}
	netbiosName := strings.TrimSpace(string(b[:offset]))
	if netbiosName == "" {
		return "", fmt.Errorf("empty name")
	}
	return netbiosName, nil
}
