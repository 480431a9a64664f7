//go:build !unix

package xdmcpscan

import (
	"context"
	"net"
)

//listenBroadcast relies on the runtime enabling SO_BROADCAST
//for datagram sockets
func listenBroadcast(ctx context.Context) (net.PacketConn, error) {
	lc := net.ListenConfig{}
	return lc.ListenPacket(ctx, "udp4", ":0")
}
