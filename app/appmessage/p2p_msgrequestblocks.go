package appmessage

// MsgRequestBlocks requests the blocks in [StartIndex, EndIndex).
type MsgRequestBlocks struct {
	StartIndex uint64 `json:"start_index"`
	EndIndex   uint64 `json:"end_index"`
}

// Command returns the protocol command string for the message
func (msg *MsgRequestBlocks) Command() MessageCommand {
	return CmdRequestBlocks
}

// NewMsgRequestBlocks returns a new get_blocks message
func NewMsgRequestBlocks(startIndex, endIndex uint64) *MsgRequestBlocks {
	return &MsgRequestBlocks{StartIndex: startIndex, EndIndex: endIndex}
}
