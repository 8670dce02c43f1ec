package peer

import (
	"sync"
	"time"

	"github.com/stratanet/stratad/infrastructure/network/netadapter"
	"github.com/stratanet/stratad/infrastructure/network/peerdirectory"
)

// Peer holds the protocol-level session state of a single connected peer.
// The directory peer and key are set once the handshake established who the
// counterpart is.
type Peer struct {
	connection *netadapter.NetConnection

	mutex         sync.RWMutex
	directoryPeer *peerdirectory.Peer
	key           string

	timeConnected time.Time
}

// New returns a new Peer for the given connection.
func New(connection *netadapter.NetConnection) *Peer {
	return &Peer{
		connection:    connection,
		timeConnected: time.Now(),
	}
}

// Connection returns the peer's connection.
func (p *Peer) Connection() *netadapter.NetConnection {
	return p.connection
}

// SetDirectoryPeer records which directory peer this session belongs to.
func (p *Peer) SetDirectoryPeer(directoryPeer *peerdirectory.Peer, key string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.directoryPeer = directoryPeer
	p.key = key
}

// DirectoryPeer returns the directory peer behind this session, or nil while
// the handshake has not completed.
func (p *Peer) DirectoryPeer() *peerdirectory.Peer {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.directoryPeer
}

// Key returns the peer's identifying key, or the empty string while the
// handshake has not completed.
func (p *Peer) Key() string {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.key
}

// TimeConnected returns the time the session was established.
func (p *Peer) TimeConnected() time.Time {
	return p.timeConnected
}

func (p *Peer) String() string {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	if p.directoryPeer != nil {
		return p.directoryPeer.String()
	}
	return p.connection.String()
}
