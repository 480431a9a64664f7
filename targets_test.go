package xdmcpscan

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveHost(t *testing.T) {
	ctx := context.Background()
	ip, err := resolveHost(ctx, "c0a80105")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.5", ip.String())

	ip, err = resolveHost(ctx, "10.1.2.3")
	require.NoError(t, err)
	assert.Equal(t, net.IPv4len, len(ip))

	_, err = resolveHost(ctx, "::1")
	assert.True(t, errors.Is(err, ErrUnknownHost))

	_, err = resolveHost(ctx, "no-such-host.invalid")
	assert.True(t, errors.Is(err, ErrUnknownHost))
}

func TestSweep(t *testing.T) {
	ips, err := sweep("192.168.7.0/30")
	require.NoError(t, err)
	require.Len(t, ips, 2)
	assert.Equal(t, "192.168.7.1", ips[0].String())
	assert.Equal(t, "192.168.7.2", ips[1].String())

	//point-to-point links keep both addresses
	ips, err = sweep("10.0.0.0/31")
	require.NoError(t, err)
	assert.Len(t, ips, 2)

	_, err = sweep("10.0.0.0/8")
	assert.Error(t, err)
	_, err = sweep("fe80::/120")
	assert.Error(t, err)
}

func TestBroadcastAddr(t *testing.T) {
	_, n, err := net.ParseCIDR("192.168.1.77/24")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.255", broadcastAddr(n).String())

	_, n, err = net.ParseCIDR("10.20.0.1/20")
	require.NoError(t, err)
	assert.Equal(t, "10.20.15.255", broadcastAddr(n).String())

	_, n, err = net.ParseCIDR("10.0.0.1/32")
	require.NoError(t, err)
	assert.Nil(t, broadcastAddr(n))
}

func TestParseTargets(t *testing.T) {
	log, hook := test.NewNullLogger()
	targets, err := ParseTargets(context.Background(), []string{
		"10.0.0.1",
		"0a000001",
		"bogus.invalid",
		"10.0.1.0/30",
		" ",
	}, log)
	require.NoError(t, err)
	assert.Empty(t, targets.Broadcast)
	require.Len(t, targets.Query, 3)
	assert.Equal(t, "10.0.0.1", targets.Query[0].String())
	assert.Equal(t, "10.0.1.1", targets.Query[1].String())
	//the unresolvable host is skipped with a warning
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "bogus.invalid", hook.LastEntry().Data["host"])
}

func TestTargetsAddQuery(t *testing.T) {
	targets := &Targets{}
	assert.True(t, targets.Empty())
	assert.True(t, targets.addQuery(net.IPv4(10, 0, 0, 1)))
	assert.False(t, targets.addQuery(net.IPv4(10, 0, 0, 1).To4()))
	assert.False(t, targets.Empty())
}
