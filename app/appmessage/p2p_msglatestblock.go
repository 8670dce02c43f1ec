package appmessage

import "github.com/stratanet/stratad/domain"

// MsgLatestBlock announces the sender's chain tip.
type MsgLatestBlock struct {
	Block *domain.Block `json:"block"`
}

// Command returns the protocol command string for the message
func (msg *MsgLatestBlock) Command() MessageCommand {
	return CmdLatestBlock
}

// NewMsgLatestBlock returns a new latest_block message
func NewMsgLatestBlock(block *domain.Block) *MsgLatestBlock {
	return &MsgLatestBlock{Block: block}
}
