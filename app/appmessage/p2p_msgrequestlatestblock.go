package appmessage

// MsgRequestLatestBlock requests the remote node's latest block.
type MsgRequestLatestBlock struct{}

// Command returns the protocol command string for the message
func (msg *MsgRequestLatestBlock) Command() MessageCommand {
	return CmdRequestLatestBlock
}

// NewMsgRequestLatestBlock returns a new get_latest_block message
func NewMsgRequestLatestBlock() *MsgRequestLatestBlock {
	return &MsgRequestLatestBlock{}
}
