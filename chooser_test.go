package xdmcpscan

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jpillora/xdmcpscan/xdmcp"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver map[string]string

//slowResolver holds up its first lookup
type slowResolver struct {
	calls int32
	delay time.Duration
}

func (r *slowResolver) LookupAddr(ctx context.Context, ip net.IP) (string, error) {
	if atomic.AddInt32(&r.calls, 1) == 1 {
		time.Sleep(r.delay)
	}
	return "slowhost", nil
}

//localIPv4 is an address of this machine other than loopback
func localIPv4(t *testing.T) net.IP {
	addrs, err := net.InterfaceAddrs()
	require.NoError(t, err)
	for _, a := range addrs {
		if n, ok := a.(*net.IPNet); ok && n.IP.To4() != nil && !n.IP.IsLoopback() {
			return n.IP.To4()
		}
	}
	t.Skip("no non-loopback ipv4 address")
	return nil
}

func (f fakeResolver) LookupAddr(ctx context.Context, ip net.IP) (string, error) {
	if name, ok := f[ip.String()]; ok {
		return name, nil
	}
	return "", errNoName
}

//fakeServer answers every query with the current reply
type fakeServer struct {
	conn    net.PacketConn
	reply   atomic.Value
	queries int32
}

func newFakeServer(t *testing.T, reply []byte) *fakeServer {
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	s := &fakeServer{conn: conn}
	s.setReply(reply)
	t.Cleanup(func() { conn.Close() })
	go s.serve()
	return s
}

func (s *fakeServer) setReply(b []byte) {
	s.reply.Store(b)
}

func (s *fakeServer) port() int {
	return s.conn.LocalAddr().(*net.UDPAddr).Port
}

func (s *fakeServer) serve() {
	buff := make([]byte, maxPacket)
	for {
		n, src, err := s.conn.ReadFrom(buff)
		if err != nil {
			return
		}
		_, p, err := xdmcp.Parse(buff[:n])
		if err != nil || p.Opcode() != xdmcp.Query {
			continue
		}
		atomic.AddInt32(&s.queries, 1)
		if b := s.reply.Load().([]byte); len(b) > 0 {
			s.conn.WriteTo(b, src)
		}
	}
}

func willing(t *testing.T, status string) []byte {
	b, err := xdmcp.MarshalWilling(&xdmcp.WillingPacket{
		Hostname: []byte("ignored"),
		Status:   []byte(status),
	})
	require.NoError(t, err)
	return b
}

func unwilling(t *testing.T) []byte {
	b, err := xdmcp.MarshalUnwilling(&xdmcp.UnwillingPacket{Hostname: []byte("ignored")})
	require.NoError(t, err)
	return b
}

func testSpec(port int) Spec {
	log, _ := test.NewNullLogger()
	return Spec{
		Hosts:        []string{"127.0.0.1"},
		Port:         port,
		ScanTime:     300 * time.Millisecond,
		PingInterval: 80 * time.Millisecond,
		PingTries:    3,
		AddTimeout:   150 * time.Millisecond,
		Log:          log,
		Resolver:     fakeResolver{},
		Output:       io.Discard,
	}
}

func startChooser(t *testing.T, s Spec) *Chooser {
	ctx, cancel := context.WithCancel(context.Background())
	c, err := NewChooser(ctx, s)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	return c
}

func waitEvent(t *testing.T, c *Chooser, want EventType) Event {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case e := <-c.Events():
			if e.Type == want {
				return e
			}
		case <-timeout:
			t.Fatalf("no %s event", want)
		}
	}
}

func TestChooserWilling(t *testing.T) {
	srv := newFakeServer(t, willing(t, "Linux, load 0.2"))
	c := startChooser(t, testSpec(srv.port()))

	waitEvent(t, c, ScanStarted)
	e := waitEvent(t, c, HostUpdated)
	require.NotNil(t, e.Host)
	hostname, err := os.Hostname()
	require.NoError(t, err)
	assert.Equal(t, hostname, e.Host.Name)
	assert.True(t, e.Host.Willing)
	assert.Equal(t, "Linux, load 0.2", e.Host.Status)

	done := waitEvent(t, c, ScanDone)
	assert.Equal(t, 1, done.Willing)
	hosts := c.Hosts()
	require.Len(t, hosts, 1)
	assert.Equal(t, "127.0.0.1", hosts[0].Addr())
	//known hosts are not queried again in retry rounds
	assert.Equal(t, int32(1), atomic.LoadInt32(&srv.queries))
}

func TestChooserRetriesSilentHost(t *testing.T) {
	srv := newFakeServer(t, nil)
	c := startChooser(t, testSpec(srv.port()))
	done := waitEvent(t, c, ScanDone)
	assert.Equal(t, 0, done.Willing)
	assert.Empty(t, c.Hosts())
	assert.Equal(t, int32(3), atomic.LoadInt32(&srv.queries))
}

func TestChooserUnwillingReplaces(t *testing.T) {
	srv := newFakeServer(t, willing(t, "up"))
	c := startChooser(t, testSpec(srv.port()))
	waitEvent(t, c, ScanDone)
	require.True(t, c.Hosts()[0].Willing)

	srv.setReply(unwilling(t))
	require.NoError(t, c.Rescan(context.Background()))
	waitEvent(t, c, ScanStarted)
	e := waitEvent(t, c, HostUpdated)
	assert.False(t, e.Host.Willing)
	assert.Empty(t, e.Host.Status)
	hosts := c.Hosts()
	require.Len(t, hosts, 1)
	assert.False(t, hosts[0].Willing)
}

func TestChooserAddHost(t *testing.T) {
	srv := newFakeServer(t, unwilling(t))
	c := startChooser(t, testSpec(srv.port()))
	waitEvent(t, c, ScanDone)

	//known but unwilling, asked again
	require.NoError(t, c.AddHost(context.Background(), "127.0.0.1"))
	e := waitEvent(t, c, AddUnwilling)
	assert.Equal(t, "127.0.0.1", e.Query)

	srv.setReply(willing(t, "ok"))
	require.NoError(t, c.AddHost(context.Background(), "7f000001"))
	e = waitEvent(t, c, HostSelected)
	assert.Equal(t, "7f000001", e.Query)
	assert.True(t, e.Host.Willing)

	//already willing, selected without a round trip
	before := atomic.LoadInt32(&srv.queries)
	require.NoError(t, c.AddHost(context.Background(), "127.0.0.1"))
	waitEvent(t, c, HostSelected)
	assert.Equal(t, before, atomic.LoadInt32(&srv.queries))

	err := c.AddHost(context.Background(), "nowhere.invalid")
	assert.ErrorIs(t, err, ErrUnknownHost)
}

func TestChooserAddTimeout(t *testing.T) {
	srv := newFakeServer(t, nil)
	c := startChooser(t, testSpec(srv.port()))
	require.NoError(t, c.AddHost(context.Background(), "127.0.0.1"))
	e := waitEvent(t, c, AddTimeout)
	assert.Equal(t, "127.0.0.1", e.Query)
	assert.Nil(t, e.Host)
}

func TestChooserDropsMalformed(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	c := &Chooser{log: log, status: newStatusDecoder("")}
	src := &net.UDPAddr{IP: net.IPv4(10, 0, 0, 7), Port: xdmcp.Port}

	b := willing(t, "up")
	b[1] = 2
	_, ok := c.decode(b, src, nil)
	assert.False(t, ok)

	_, ok = c.decode(willing(t, "up")[:9], src, nil)
	assert.False(t, ok)

	q, err := xdmcp.MarshalQuery(xdmcp.Query, nil)
	require.NoError(t, err)
	_, ok = c.decode(q, src, nil)
	assert.False(t, ok)
	assert.Len(t, hook.Entries, 3)

	h, ok := c.decode(willing(t, "up"), src, nil)
	require.True(t, ok)
	assert.Equal(t, "up", h.Status)
	assert.Equal(t, "10.0.0.7", h.Addr())
}

func TestChooserResolveNames(t *testing.T) {
	log, _ := test.NewNullLogger()
	c := &Chooser{log: log, spec: Spec{Resolver: fakeResolver{"10.0.0.7": "tessa"}}}
	h := &Host{IP: net.IPv4(10, 0, 0, 7).To4()}
	require.True(t, c.resolve(context.Background(), h))
	assert.Equal(t, "tessa", h.Name)

	h = &Host{IP: net.IPv4(10, 0, 0, 8).To4()}
	require.True(t, c.resolve(context.Background(), h))
	assert.Equal(t, "10.0.0.8", h.Name)

	c.spec.Resolver = fakeResolver{"10.0.0.9": string(bytes.Repeat([]byte("x"), pipeBuf))}
	h = &Host{IP: net.IPv4(10, 0, 0, 9).To4()}
	assert.False(t, c.resolve(context.Background(), h))
}

func TestRunOnce(t *testing.T) {
	srv := newFakeServer(t, willing(t, "up"))
	hosts, err := Run(context.Background(), testSpec(srv.port()))
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.True(t, hosts[0].Willing)
}

func TestChoose(t *testing.T) {
	l, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	got := make(chan []byte, 1)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		b, _ := io.ReadAll(conn)
		got <- b
	}()

	out := &bytes.Buffer{}
	s := testSpec(xdmcp.Port)
	s.Output = out
	s.XDMAddress = fmt.Sprintf("0002%04x7f000001", l.Addr().(*net.TCPAddr).Port)
	s.ClientAddress = "0a000009"
	s.ConnectionType = 0
	c, err := NewChooser(context.Background(), s)
	require.NoError(t, err)
	defer c.Close()

	h := Host{Name: "tessa", IP: net.IPv4(10, 0, 0, 1), Willing: true}
	require.NoError(t, c.Choose(context.Background(), h))
	assert.Equal(t, "\ntessa\n", out.String())

	select {
	case b := <-got:
		assert.Equal(t, []byte{0, 4, 10, 0, 0, 9, 0, 0, 0, 4, 10, 0, 0, 1}, b)
	case <-time.After(3 * time.Second):
		t.Fatal("xdm never received the choice")
	}
}

func TestChooseBadAddress(t *testing.T) {
	s := testSpec(xdmcp.Port)
	s.XDMAddress = "0002zz"
	c, err := NewChooser(context.Background(), s)
	require.NoError(t, err)
	defer c.Close()
	assert.Error(t, c.Choose(context.Background(), Host{Name: "tessa", IP: net.IPv4(10, 0, 0, 1)}))
}

func TestChooseAfterRun(t *testing.T) {
	out := &bytes.Buffer{}
	s := testSpec(xdmcp.Port)
	s.Output = out
	require.NoError(t, Choose(context.Background(), s, Host{Name: "tessa", IP: net.IPv4(10, 0, 0, 1)}))
	assert.Equal(t, "\ntessa\n", out.String())
}

func TestChooserKeepsArrivalOrder(t *testing.T) {
	ip := localIPv4(t)
	srv := newFakeServer(t, nil)
	s := testSpec(srv.port())
	s.ScanTime = 5 * time.Second
	s.Resolver = &slowResolver{delay: 200 * time.Millisecond}
	c := startChooser(t, s)
	waitEvent(t, c, ScanStarted)

	from, err := net.ListenPacket("udp4", net.JoinHostPort(ip.String(), "0"))
	require.NoError(t, err)
	defer from.Close()
	to := &net.UDPAddr{IP: ip, Port: c.LocalAddr().(*net.UDPAddr).Port}
	_, err = from.WriteTo(willing(t, "up"), to)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = from.WriteTo(unwilling(t), to)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(c.Hosts()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	//the willing reply resolves last and must not win
	time.Sleep(400 * time.Millisecond)
	hosts := c.Hosts()
	require.Len(t, hosts, 1)
	assert.False(t, hosts[0].Willing)
	assert.Equal(t, "slowhost", hosts[0].Name)
}

func TestChooserDropsStaleReplies(t *testing.T) {
	log, _ := test.NewNullLogger()
	c := &Chooser{
		log:    log,
		hosts:  hostSet{},
		latest: map[ipKey]uint64{},
		events: make(chan Event, 8),
	}
	c.gen.Store(2)
	ip := net.IPv4(10, 0, 0, 7).To4()

	c.handleResponse(reply{host: &Host{IP: ip}, seq: 5, gen: 2})
	c.handleResponse(reply{host: &Host{IP: ip, Willing: true}, seq: 4, gen: 2})
	hosts := c.Hosts()
	require.Len(t, hosts, 1)
	assert.False(t, hosts[0].Willing)

	//previous scan
	c.handleResponse(reply{host: &Host{IP: net.IPv4(10, 0, 0, 8).To4(), Willing: true}, seq: 9, gen: 1})
	assert.Len(t, c.Hosts(), 1)

	c.handleResponse(reply{host: &Host{IP: ip, Willing: true}, seq: 6, gen: 2})
	hosts = c.Hosts()
	require.Len(t, hosts, 1)
	assert.True(t, hosts[0].Willing)
	assert.Len(t, c.events, 2)
}

func TestChooserPeriodicRescan(t *testing.T) {
	srv := newFakeServer(t, willing(t, "up"))
	s := testSpec(srv.port())
	s.RescanInterval = 150 * time.Millisecond
	c := startChooser(t, s)

	waitEvent(t, c, ScanStarted)
	waitEvent(t, c, HostUpdated)
	require.Len(t, c.Hosts(), 1)
	first := atomic.LoadInt32(&srv.queries)

	waitEvent(t, c, ScanStarted)
	e := waitEvent(t, c, HostUpdated)
	assert.True(t, e.Host.Willing)
	assert.Len(t, c.Hosts(), 1)
	//the cleared set makes the new scan query the host again
	assert.Greater(t, atomic.LoadInt32(&srv.queries), first)
}
