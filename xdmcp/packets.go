package xdmcp

import (
	"math"

	"golang.org/x/xerrors"
)

//Packet is a decoded XDMCP packet body
type Packet interface {
	Opcode() Opcode
}

//QueryPacket is a QUERY, BROADCAST_QUERY or INDIRECT_QUERY
type QueryPacket struct {
	Op                  Opcode
	AuthenticationNames [][]byte
}

func (q *QueryPacket) Opcode() Opcode { return q.Op }

//WillingPacket is a display manager offering to manage a session
type WillingPacket struct {
	AuthenticationName []byte
	Hostname           []byte
	Status             []byte
}

func (*WillingPacket) Opcode() Opcode { return Willing }

//UnwillingPacket is a display manager declining to manage a session
type UnwillingPacket struct {
	Hostname []byte
	Status   []byte
}

func (*UnwillingPacket) Opcode() Opcode { return Unwilling }

//UnknownPacket carries the raw body of any opcode this package does not decode
type UnknownPacket struct {
	Op   Opcode
	Body []byte
}

func (u *UnknownPacket) Opcode() Opcode { return u.Op }

//ReadHeader splits b into its header and body. The body is
//truncated to the length the header announces.
func ReadHeader(b []byte) (Header, []byte, error) {
	r := NewReader(b)
	h := Header{}
	var err error
	if h.Version, err = r.ReadCARD16(); err != nil {
		return h, nil, xerrors.Errorf("header: %w", err)
	}
	op, err := r.ReadCARD16()
	if err != nil {
		return h, nil, xerrors.Errorf("header: %w", err)
	}
	h.Opcode = Opcode(op)
	if h.Length, err = r.ReadCARD16(); err != nil {
		return h, nil, xerrors.Errorf("header: %w", err)
	}
	if int(h.Length) > r.Remaining() {
		return h, nil, xerrors.Errorf("header announces %d bytes, %d present: %w", h.Length, r.Remaining(), ErrShort)
	}
	return h, b[HeaderSize : HeaderSize+int(h.Length)], nil
}

//Parse decodes one datagram
func Parse(b []byte) (Header, Packet, error) {
	h, body, err := ReadHeader(b)
	if err != nil {
		return h, nil, err
	}
	if h.Version != ProtocolVersion {
		return h, nil, xerrors.Errorf("version %d: %w", h.Version, ErrVersion)
	}
	r := NewReader(body)
	switch h.Opcode {
	case Willing:
		p := &WillingPacket{}
		if p.AuthenticationName, err = r.ReadARRAY8(); err != nil {
			return h, nil, xerrors.Errorf("willing authentication: %w", err)
		}
		if p.Hostname, err = r.ReadARRAY8(); err != nil {
			return h, nil, xerrors.Errorf("willing hostname: %w", err)
		}
		if p.Status, err = r.ReadARRAY8(); err != nil {
			return h, nil, xerrors.Errorf("willing status: %w", err)
		}
		return h, p, nil
	case Unwilling:
		p := &UnwillingPacket{}
		if p.Hostname, err = r.ReadARRAY8(); err != nil {
			return h, nil, xerrors.Errorf("unwilling hostname: %w", err)
		}
		if p.Status, err = r.ReadARRAY8(); err != nil {
			return h, nil, xerrors.Errorf("unwilling status: %w", err)
		}
		return h, p, nil
	case Query, BroadcastQuery, IndirectQuery:
		p := &QueryPacket{Op: h.Opcode}
		if p.AuthenticationNames, err = r.ReadARRAYofARRAY8(); err != nil {
			return h, nil, xerrors.Errorf("query authentication names: %w", err)
		}
		return h, p, nil
	}
	return h, &UnknownPacket{Op: h.Opcode, Body: body}, nil
}

func marshal(op Opcode, body *Writer) ([]byte, error) {
	if body.Len() > math.MaxUint16 {
		return nil, xerrors.Errorf("%s body of %d bytes: %w", op, body.Len(), ErrTooLong)
	}
	w := &Writer{b: make([]byte, 0, HeaderSize+body.Len())}
	w.WriteCARD16(ProtocolVersion)
	w.WriteCARD16(uint16(op))
	w.WriteCARD16(uint16(body.Len()))
	w.b = append(w.b, body.Bytes()...)
	return w.Bytes(), nil
}

//MarshalQuery assembles a QUERY, BROADCAST_QUERY or INDIRECT_QUERY
func MarshalQuery(op Opcode, authNames [][]byte) ([]byte, error) {
	switch op {
	case Query, BroadcastQuery, IndirectQuery:
	default:
		return nil, xerrors.Errorf("xdmcp: %s is not a query opcode", op)
	}
	body := &Writer{}
	if err := body.WriteARRAYofARRAY8(authNames); err != nil {
		return nil, err
	}
	return marshal(op, body)
}

//MarshalWilling assembles the reply a willing display manager sends
func MarshalWilling(p *WillingPacket) ([]byte, error) {
	body := &Writer{}
	for _, a := range [][]byte{p.AuthenticationName, p.Hostname, p.Status} {
		if err := body.WriteARRAY8(a); err != nil {
			return nil, err
		}
	}
	return marshal(Willing, body)
}

//MarshalUnwilling assembles the reply an unwilling display manager sends
func MarshalUnwilling(p *UnwillingPacket) ([]byte, error) {
	body := &Writer{}
	for _, a := range [][]byte{p.Hostname, p.Status} {
		if err := body.WriteARRAY8(a); err != nil {
			return nil, err
		}
	}
	return marshal(Unwilling, body)
}
