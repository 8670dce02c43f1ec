package peerdirectory

import (
	"fmt"
	"net"
	"strconv"

	"github.com/stratanet/stratad/app/appmessage"
	"github.com/stratanet/stratad/util/identity"
)

// Peer is a known network participant. Host and port may change over a
// peer's lifetime; its identifying key (see Key) does not.
type Peer struct {
	Host     string
	Port     uint16
	Identity identity.Identity
	Role     Role

	// Seed is the username signature of a gateway's designated seed;
	// SeedGateway is the reverse backreference on a seed record.
	Seed        string
	SeedGateway string

	// Address identifies miner peers, which have no pairwise RID.
	Address string
}

// Key returns the identifying key of the peer from the perspective of the
// node owning ownSignature. Two records with equal keys are the same
// participant regardless of host/port.
func (p *Peer) Key(ownSignature string) string {
	if p.Role == RoleMiner {
		return p.Address
	}
	return p.Identity.RID(ownSignature)
}

// TCPAddress returns the host:port dial string for the peer.
func (p *Peer) TCPAddress() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(int(p.Port)))
}

// String returns a human-readable description of the peer.
func (p *Peer) String() string {
	return fmt.Sprintf("%s(%s@%s)", p.Role, p.Identity.Username, p.TCPAddress())
}

// ToRecord converts the peer to its external representation. The RID field
// is filled relative to ownSignature; with an empty ownSignature the RID is
// left out, which is how a node describes itself (the receiving side computes
// the pairwise RID on its own).
func (p *Peer) ToRecord(ownSignature string) *appmessage.PeerRecord {
	record := &appmessage.PeerRecord{
		Host:        p.Host,
		Port:        p.Port,
		Identity:    p.Identity,
		Role:        p.Role.String(),
		Seed:        p.Seed,
		SeedGateway: p.SeedGateway,
		Address:     p.Address,
	}
	if p.Role != RoleMiner && ownSignature != "" {
		record.RID = p.Identity.RID(ownSignature)
	}
	return record
}

// FromRecord converts an external peer record to a Peer.
func FromRecord(record *appmessage.PeerRecord) (*Peer, error) {
	role, err := ParseRole(record.Role)
	if err != nil {
		return nil, err
	}
	return &Peer{
		Host:        record.Host,
		Port:        record.Port,
		Identity:    record.Identity,
		Role:        role,
		Seed:        record.Seed,
		SeedGateway: record.SeedGateway,
		Address:     record.Address,
	}, nil
}
