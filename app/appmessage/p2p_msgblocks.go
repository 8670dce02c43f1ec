package appmessage

import "github.com/stratanet/stratad/domain"

// MsgBlocks carries a contiguous batch of blocks in response to a
// get_blocks request.
type MsgBlocks struct {
	Blocks []*domain.Block `json:"blocks"`
}

// Command returns the protocol command string for the message
func (msg *MsgBlocks) Command() MessageCommand {
	return CmdBlocks
}

// NewMsgBlocks returns a new blocks message
func NewMsgBlocks(blocks []*domain.Block) *MsgBlocks {
	return &MsgBlocks{Blocks: blocks}
}
