package xdmcpscan

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jpillora/arp"
	"github.com/jpillora/xdmcpscan/xdmcp"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/ipv4"
	"golang.org/x/sync/errgroup"
)

//ErrClosed is returned by commands sent to a chooser that stopped running
var ErrClosed = errors.New("chooser closed")

const (
	//largest datagram libXdmcp accepts
	maxPacket = 8192
	//names are piped to the display manager in one write
	pipeBuf = 4096
	//concurrent reverse lookups
	maxLookups = 16
)

//Chooser probes targets for XDMCP display managers and tracks
//every responder. All state is owned by the goroutine in Run.
type Chooser struct {
	spec    Spec
	log     logrus.FieldLogger
	conn    net.PacketConn
	pconn   *ipv4.PacketConn
	status  *statusDecoder
	running atomic.Bool
	//pre-assembled probes
	broadcastQuery []byte
	query          []byte
	//communication with the loop
	cmds      chan func()
	responses chan reply
	events    chan Event
	done      chan struct{}
	//arrival order of replies and the scan they belong to
	seq uint64
	gen atomic.Uint64
	//host set, written by the loop
	mut   sync.Mutex
	hosts hostSet
	//loop state
	targets *Targets
	latest  map[ipKey]uint64
	tries   int
	ping    *time.Ticker
	pingC   <-chan time.Time
	scan    *time.Timer
	scanC   <-chan time.Time
	added   *pendingAdd
	addT    *time.Timer
	addC    <-chan time.Time
}

//reply is a resolved host record stamped when its datagram was read
type reply struct {
	host *Host
	seq  uint64
	gen  uint64
}

type pendingAdd struct {
	query string
	ip    net.IP
}

//NewChooser opens the probe socket and resolves the targets. It
//fails if the socket cannot be created or allowed to broadcast.
func NewChooser(ctx context.Context, s Spec) (*Chooser, error) {
	s = s.withDefaults()
	c := &Chooser{
		spec:      s,
		log:       s.Log,
		status:    newStatusDecoder(s.StatusCharset),
		cmds:      make(chan func(), 8),
		responses: make(chan reply),
		events:    make(chan Event, 256),
		done:      make(chan struct{}),
		hosts:     hostSet{},
		latest:    map[ipKey]uint64{},
	}
	var err error
	if c.broadcastQuery, err = xdmcp.MarshalQuery(xdmcp.BroadcastQuery, nil); err != nil {
		return nil, err
	}
	if c.query, err = xdmcp.MarshalQuery(xdmcp.Query, nil); err != nil {
		return nil, err
	}
	if c.targets, err = ParseTargets(ctx, s.Hosts, c.log); err != nil {
		return nil, err
	}
	c.conn, err = listenBroadcast(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not create socket: %w", err)
	}
	c.pconn = ipv4.NewPacketConn(c.conn)
	if err := c.pconn.SetControlMessage(ipv4.FlagInterface, true); err != nil {
		c.log.WithError(err).Debug("no interface control messages")
	}
	c.log.WithFields(logrus.Fields{
		"broadcast": len(c.targets.Broadcast),
		"query":     len(c.targets.Query),
		"local":     c.conn.LocalAddr(),
	}).Debug("chooser ready")
	return c, nil
}

//Events delivers changes to the host set. Events are dropped
//when the channel is full.
func (c *Chooser) Events() <-chan Event {
	return c.events
}

//Hosts returns the current host set sorted by name
func (c *Chooser) Hosts() Hosts {
	c.mut.Lock()
	defer c.mut.Unlock()
	return c.hosts.snapshot()
}

//Targets returns a copy of the probe targets
func (c *Chooser) Targets() Targets {
	c.mut.Lock()
	defer c.mut.Unlock()
	t := Targets{}
	t.Broadcast = append(t.Broadcast, c.targets.Broadcast...)
	t.Query = append(t.Query, c.targets.Query...)
	return t
}

//LocalAddr is the address probes are sent from
func (c *Chooser) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

//Close releases the socket of a chooser that was never run
func (c *Chooser) Close() error {
	return c.conn.Close()
}

//Run scans immediately and then serves commands, replies and
//timers until ctx is done
func (c *Chooser) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New("chooser already running")
	}
	defer c.conn.Close()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return c.conn.Close()
	})
	g.Go(func() error {
		return c.read(ctx)
	})
	g.Go(func() error {
		defer close(c.done)
		return c.loop(ctx)
	})
	err := g.Wait()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

//Rescan clears the host set and starts a new scan
func (c *Chooser) Rescan(ctx context.Context) error {
	return c.do(ctx, c.startScan)
}

//AddHost queries a single typed-in host. The outcome arrives as a
//HostSelected, AddUnwilling or AddTimeout event.
func (c *Chooser) AddHost(ctx context.Context, name string) error {
	ip, err := resolveHost(ctx, name)
	if err != nil {
		return err
	}
	return c.do(ctx, func() {
		c.addHost(name, ip)
	})
}

func (c *Chooser) do(ctx context.Context, fn func()) error {
	select {
	case c.cmds <- fn:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Chooser) loop(ctx context.Context) error {
	defer c.stopTimers()
	c.startScan()
	var rescanC <-chan time.Time
	if c.spec.RescanInterval > 0 {
		t := time.NewTicker(c.spec.RescanInterval)
		defer t.Stop()
		rescanC = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-c.cmds:
			fn()
		case r := <-c.responses:
			c.handleResponse(r)
		case <-c.pingC:
			c.pingTry()
		case <-c.scanC:
			c.scanDone()
		case <-c.addC:
			c.addCheck()
		case <-rescanC:
			c.startScan()
		}
	}
}

func (c *Chooser) emit(e Event) {
	select {
	case c.events <- e:
	default:
		c.log.WithField("event", e.Type).Debug("event dropped")
	}
}

//startScan clears the host set, probes every target and arms the
//retry and scan-time timers
func (c *Chooser) startScan() {
	c.mut.Lock()
	c.hosts = hostSet{}
	c.mut.Unlock()
	c.latest = map[ipKey]uint64{}
	//replies read before this point belong to the previous scan
	c.gen.Add(1)
	c.clearAdded()
	c.emit(Event{Type: ScanStarted})

	c.sendProbes(true)

	//the first round used up one try
	c.tries = c.spec.PingTries - 1
	if c.ping != nil {
		c.ping.Stop()
		c.ping, c.pingC = nil, nil
	}
	if c.tries > 0 {
		c.ping = time.NewTicker(c.spec.PingInterval)
		c.pingC = c.ping.C
	}
	if c.scan != nil {
		c.scan.Stop()
	}
	c.scan = time.NewTimer(c.spec.ScanTime)
	c.scanC = c.scan.C
}

func (c *Chooser) pingTry() {
	c.sendProbes(false)
	c.tries--
	if c.tries <= 0 {
		c.ping.Stop()
		c.ping, c.pingC = nil, nil
		c.log.Debug("probe retries exhausted")
	}
}

//sendProbes broadcasts to every network and queries unicast targets.
//Unless full, targets that already replied are skipped.
func (c *Chooser) sendProbes(full bool) {
	for _, ip := range c.targets.Broadcast {
		c.send(c.broadcastQuery, ip)
	}
	//only the loop writes hosts and targets, no lock needed to read
	for _, ip := range c.targets.Query {
		if _, ok := c.hosts.get(ip); ok && !full {
			continue
		}
		c.send(c.query, ip)
	}
}

func (c *Chooser) send(b []byte, ip net.IP) {
	a := &net.UDPAddr{IP: ip, Port: c.spec.Port}
	if _, err := c.conn.WriteTo(b, a); err != nil {
		c.log.WithError(err).WithField("to", a).Debug("send failed")
	}
}

func (c *Chooser) scanDone() {
	c.scan, c.scanC = nil, nil
	n := c.hosts.willing()
	c.log.WithField("willing", n).Debug("scan done")
	c.emit(Event{Type: ScanDone, Willing: n})
}

//handleResponse applies replies in the order they were read.
//Lookups finish out of order, so a reply older than the stored
//record, or from an earlier scan, is dropped.
func (c *Chooser) handleResponse(r reply) {
	h := r.host
	if r.gen != c.gen.Load() {
		c.log.WithField("from", h.IP).Debug("reply from previous scan")
		return
	}
	k := keyOf(h.IP)
	if last, ok := c.latest[k]; ok && last > r.seq {
		c.log.WithField("from", h.IP).Debug("stale reply")
		return
	}
	c.latest[k] = r.seq
	c.mut.Lock()
	c.hosts.upsert(h)
	c.mut.Unlock()
	copied := *h
	c.emit(Event{Type: HostUpdated, Host: &copied})
	if c.added == nil || !c.added.ip.Equal(h.IP) {
		return
	}
	query := c.added.query
	c.clearAdded()
	if h.Willing {
		c.emit(Event{Type: HostSelected, Host: &copied, Query: query})
	} else {
		c.emit(Event{Type: AddUnwilling, Host: &copied, Query: query})
	}
}

func (c *Chooser) addHost(query string, ip net.IP) {
	c.mut.Lock()
	added := c.targets.addQuery(ip)
	c.mut.Unlock()
	if added {
		c.log.WithField("host", query).Debug("added query target")
	}
	if h, known := c.hosts.get(ip); known && h.Willing {
		copied := *h
		c.emit(Event{Type: HostSelected, Host: &copied, Query: query})
		return
	}
	//unknown or not willing, ask again
	c.send(c.query, ip)
	c.clearAdded()
	c.added = &pendingAdd{query: query, ip: ip}
	c.addT = time.NewTimer(c.spec.AddTimeout)
	c.addC = c.addT.C
}

func (c *Chooser) addCheck() {
	c.addT, c.addC = nil, nil
	if c.added == nil {
		return
	}
	c.emit(Event{Type: AddTimeout, Query: c.added.query})
	c.added = nil
}

func (c *Chooser) clearAdded() {
	c.added = nil
	if c.addT != nil {
		c.addT.Stop()
		c.addT, c.addC = nil, nil
	}
}

func (c *Chooser) stopTimers() {
	if c.ping != nil {
		c.ping.Stop()
	}
	if c.scan != nil {
		c.scan.Stop()
	}
	c.clearAdded()
}

//read decodes replies and resolves their names before handing
//them to the loop
func (c *Chooser) read(ctx context.Context) error {
	lookups := errgroup.Group{}
	lookups.SetLimit(maxLookups)
	defer lookups.Wait()
	buff := make([]byte, maxPacket)
	for {
		n, cm, src, err := c.pconn.ReadFrom(buff)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		h, ok := c.decode(buff[:n], src, cm)
		if !ok {
			continue
		}
		c.seq++
		r := reply{host: h, seq: c.seq, gen: c.gen.Load()}
		lookups.Go(func() error {
			if !c.resolve(ctx, h) {
				return nil
			}
			select {
			case c.responses <- r:
			case <-ctx.Done():
			}
			return nil
		})
	}
}

//decode turns a datagram into a host record. Anything that is not a
//well formed WILLING or UNWILLING is dropped.
func (c *Chooser) decode(b []byte, src net.Addr, cm *ipv4.ControlMessage) (*Host, bool) {
	log := c.log.WithField("from", src)
	udp, ok := src.(*net.UDPAddr)
	if !ok || udp.IP.To4() == nil {
		log.Debug("source address err")
		return nil, false
	}
	_, p, err := xdmcp.Parse(b)
	if err != nil {
		log.WithError(err).Debug("dropping packet")
		return nil, false
	}
	h := &Host{IP: udp.IP.To4()}
	switch p := p.(type) {
	case *xdmcp.WillingPacket:
		h.Willing = true
		h.Status = c.status.decode(p.Status)
	case *xdmcp.UnwillingPacket:
		//status is immaterial, it is never shown
	default:
		log.WithField("opcode", p.Opcode()).Debug("ignoring packet")
		return nil, false
	}
	if cm != nil && cm.IfIndex > 0 {
		if intf, err := net.InterfaceByIndex(cm.IfIndex); err == nil {
			h.Interface = intf.Name
		}
	}
	return h, true
}

//resolve fills in the display name and hardware address
func (c *Chooser) resolve(ctx context.Context, h *Host) bool {
	if h.IP.IsLoopback() {
		name, err := os.Hostname()
		if err != nil {
			c.log.WithError(err).Debug("no local hostname")
			return false
		}
		h.Name = name
	} else {
		name, err := c.spec.Resolver.LookupAddr(ctx, h.IP)
		if err != nil || name == "" {
			name = h.IP.String()
		}
		h.Name = name
	}
	if len(h.Name)+1 > pipeBuf {
		c.log.WithField("from", h.IP).Debug("hostname too long")
		return false
	}
	h.MAC = arp.Table()[h.IP.String()]
	return true
}
