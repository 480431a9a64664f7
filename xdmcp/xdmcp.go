//Package xdmcp implements the subset of the X Display Manager Control
//Protocol wire format used by a host chooser: query packets, the
//WILLING/UNWILLING replies and the chooser's rendezvous reply to xdm.
package xdmcp

import (
	"golang.org/x/xerrors"
)

//ProtocolVersion is the only XDMCP version in existence
const ProtocolVersion = 1

//Port is the well-known XDMCP UDP port
const Port = 177

//HeaderSize is the encoded size of a Header
const HeaderSize = 6

//Opcode identifies an XDMCP packet type
type Opcode uint16

const (
	BroadcastQuery Opcode = iota + 1
	Query
	IndirectQuery
	ForwardQuery
	Willing
	Unwilling
	Request
	Accept
	Decline
	Manage
	Refuse
	Failed
	KeepAlive
	Alive
)

var opcodeNames = map[Opcode]string{
	BroadcastQuery: "BROADCAST_QUERY",
	Query:          "QUERY",
	IndirectQuery:  "INDIRECT_QUERY",
	ForwardQuery:   "FORWARD_QUERY",
	Willing:        "WILLING",
	Unwilling:      "UNWILLING",
	Request:        "REQUEST",
	Accept:         "ACCEPT",
	Decline:        "DECLINE",
	Manage:         "MANAGE",
	Refuse:         "REFUSE",
	Failed:         "FAILED",
	KeepAlive:      "KEEPALIVE",
	Alive:          "ALIVE",
}

func (o Opcode) String() string {
	if s, ok := opcodeNames[o]; ok {
		return s
	}
	return "UNKNOWN"
}

var (
	//ErrShort is returned when a packet ends before a field is complete
	ErrShort = xerrors.New("xdmcp: short packet")
	//ErrVersion is returned for packets of another protocol version
	ErrVersion = xerrors.New("xdmcp: protocol version mismatch")
	//ErrTooLong is returned when a field does not fit its length prefix
	ErrTooLong = xerrors.New("xdmcp: field too long")
)

//Header precedes every XDMCP packet
type Header struct {
	Version uint16
	Opcode  Opcode
	Length  uint16
}
