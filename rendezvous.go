package xdmcpscan

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/jpillora/xdmcpscan/xdmcp"
	"github.com/sirupsen/logrus"
)

const rendezvousTimeout = 5 * time.Second

//Choose reports h as the selection. The name is always written to
//Output. When the chooser was started by xdm, the choice is also
//sent back over TCP to the xdm address.
func (c *Chooser) Choose(ctx context.Context, h Host) error {
	return choose(ctx, c.spec, h, c.log)
}

//Choose reports h as the selection without a running Chooser,
//e.g. after Run
func Choose(ctx context.Context, s Spec, h Host) error {
	s = s.withDefaults()
	return choose(ctx, s, h, s.Log)
}

func choose(ctx context.Context, s Spec, h Host, log logrus.FieldLogger) error {
	if _, err := fmt.Fprintf(s.Output, "\n%s\n", h.Name); err != nil {
		return err
	}
	if s.XDMAddress == "" {
		return nil
	}
	return rendezvous(ctx, s, h, log)
}

func rendezvous(ctx context.Context, s Spec, h Host, log logrus.FieldLogger) error {
	xa, err := xdmcp.ParseXDMAddress(s.XDMAddress)
	if err != nil {
		return err
	}
	client, err := xdmcp.ParseClientAddress(s.ClientAddress)
	if err != nil {
		return err
	}
	host := h.IP.To4()
	if host == nil {
		return fmt.Errorf("host %s has no ipv4 address", h.Name)
	}
	reply := xdmcp.ChooserReply{
		ClientAddress:  client,
		ConnectionType: uint16(s.ConnectionType),
		Host:           host,
	}
	b, err := reply.MarshalBinary()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, rendezvousTimeout)
	defer cancel()
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", xa.String())
	if err != nil {
		return fmt.Errorf("could not reach xdm: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	if _, err := conn.Write(b); err != nil {
		return fmt.Errorf("could not send choice: %w", err)
	}
	log.WithFields(logrus.Fields{
		"host": h.Name,
		"xdm":  xa.String(),
	}).Debug("choice sent")
	return nil
}
