package appmessage

// MsgRequestPeers requests the remote node's known peer list.
type MsgRequestPeers struct{}

// Command returns the protocol command string for the message
func (msg *MsgRequestPeers) Command() MessageCommand {
	return CmdRequestPeers
}

// NewMsgRequestPeers returns a new get_peers message
func NewMsgRequestPeers() *MsgRequestPeers {
	return &MsgRequestPeers{}
}
