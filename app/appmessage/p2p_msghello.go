package appmessage

// ProtocolVersion is the version of the p2p protocol this node speaks.
const ProtocolVersion = 2

// MsgHello is the first message sent on an outbound connection. It announces
// the dialer's protocol version and its own peer record, on which the
// receiving side bases its admission decision.
type MsgHello struct {
	Version uint32      `json:"version"`
	Peer    *PeerRecord `json:"peer"`
}

// Command returns the protocol command string for the message
func (msg *MsgHello) Command() MessageCommand {
	return CmdHello
}

// NewMsgHello returns a new hello message
func NewMsgHello(version uint32, peer *PeerRecord) *MsgHello {
	return &MsgHello{Version: version, Peer: peer}
}
