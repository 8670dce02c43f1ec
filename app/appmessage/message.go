package appmessage

import "github.com/pkg/errors"

// MessageCommand is the wire name of a protocol message. Commands double as
// the event names of the JSON envelope on the wire.
type MessageCommand string

// Commands for all protocol messages.
const (
	CmdHello              MessageCommand = "hello"
	CmdRequestPeers       MessageCommand = "get_peers"
	CmdPeers              MessageCommand = "peers"
	CmdRequestLatestBlock MessageCommand = "get_latest_block"
	CmdLatestBlock        MessageCommand = "latest_block"
	CmdRequestBlocks      MessageCommand = "get_blocks"
	CmdBlocks             MessageCommand = "blocks"
)

// Message is an interface that describes a protocol message.
type Message interface {
	Command() MessageCommand
}

// MessageForCommand returns a fresh message value for the given command, to
// be filled in by the wire decoder.
func MessageForCommand(command MessageCommand) (Message, error) {
	switch command {
	case CmdHello:
		return &MsgHello{}, nil
	case CmdRequestPeers:
		return &MsgRequestPeers{}, nil
	case CmdPeers:
		return &MsgPeers{}, nil
	case CmdRequestLatestBlock:
		return &MsgRequestLatestBlock{}, nil
	case CmdLatestBlock:
		return &MsgLatestBlock{}, nil
	case CmdRequestBlocks:
		return &MsgRequestBlocks{}, nil
	case CmdBlocks:
		return &MsgBlocks{}, nil
	}
	return nil, errors.Errorf("unknown message command '%s'", command)
}
