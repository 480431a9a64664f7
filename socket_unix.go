//go:build unix

package xdmcpscan

import (
	"context"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

//listenBroadcast opens an ipv4 datagram socket allowed to send to
//broadcast addresses
func listenBroadcast(ctx context.Context) (net.PacketConn, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, rc syscall.RawConn) error {
			var serr error
			err := rc.Control(func(fd uintptr) {
				serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
			})
			if err != nil {
				return err
			}
			return serr
		},
	}
	return lc.ListenPacket(ctx, "udp4", ":0")
}
