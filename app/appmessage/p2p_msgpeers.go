package appmessage

import "github.com/stratanet/stratad/util/identity"

// MaxPeersPerMsg is the maximum number of peer records allowed in a single
// peers message.
const MaxPeersPerMsg = 1000

// PeerRecord is the external representation of a known peer.
type PeerRecord struct {
	Host        string            `json:"host"`
	Port        uint16            `json:"port"`
	Identity    identity.Identity `json:"identity"`
	Role        string            `json:"role"`
	RID         string            `json:"rid,omitempty"`
	Seed        string            `json:"seed,omitempty"`
	SeedGateway string            `json:"seed_gateway,omitempty"`
	Address     string            `json:"address,omitempty"`
}

// MsgPeers carries the sender's known peer list.
type MsgPeers struct {
	Peers []*PeerRecord `json:"peers"`
}

// Command returns the protocol command string for the message
func (msg *MsgPeers) Command() MessageCommand {
	return CmdPeers
}

// NewMsgPeers returns a new peers message
func NewMsgPeers(peers []*PeerRecord) *MsgPeers {
	return &MsgPeers{Peers: peers}
}
