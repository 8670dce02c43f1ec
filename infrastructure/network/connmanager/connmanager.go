package connmanager

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/stratanet/stratad/infrastructure/config"
	"github.com/stratanet/stratad/infrastructure/network/netadapter"
	"github.com/stratanet/stratad/infrastructure/network/peerdirectory"
)

// ConnectionManager keeps the node's stream table in line with its role's
// topology rules: it tops up outbound streams toward the role's upstream on
// every tick and admits inbound streams only while the per-role limits allow.
type ConnectionManager struct {
	cfg        *config.Config
	netAdapter *netadapter.NetAdapter
	directory  *peerdirectory.Directory

	mutex   sync.Mutex
	streams map[string]*stream

	// ignoredOutgoing holds keys of upstream peers that misbehaved. They
	// are skipped by gateway selection until the whole candidate set is
	// exhausted, at which point the set is reset.
	ignoredOutgoing map[string]struct{}

	stop          chan struct{}
	loopWaitGroup sync.WaitGroup
}

// stream is a single live or pending connection toward a counterpart peer.
// A pending stream occupies its slot in the limit accounting so that two
// ticks never dial the same target twice.
type stream struct {
	peer       *peerdirectory.Peer
	connection *netadapter.NetConnection
	outbound   bool
	confirmed  bool
}

// New instantiates a new instance of a ConnectionManager
func New(cfg *config.Config, netAdapter *netadapter.NetAdapter, directory *peerdirectory.Directory) *ConnectionManager {
	return &ConnectionManager{
		cfg:             cfg,
		netAdapter:      netAdapter,
		directory:       directory,
		streams:         make(map[string]*stream),
		ignoredOutgoing: make(map[string]struct{}),
		stop:            make(chan struct{}),
	}
}

// Start begins the operation of the ConnectionManager
func (c *ConnectionManager) Start() {
	c.loopWaitGroup.Add(1)
	spawn("ConnectionManager.connectionLoop", c.connectionLoop)
}

// Stop halts the operation of the ConnectionManager
func (c *ConnectionManager) Stop() {
	close(c.stop)
	c.loopWaitGroup.Wait()

	for _, connection := range c.netAdapter.Connections() {
		connection.Disconnect()
	}
}

func (c *ConnectionManager) connectionLoop() {
	defer c.loopWaitGroup.Done()

	ticker := time.NewTicker(c.cfg.ConnectInterval)
	defer ticker.Stop()

	for {
		c.ensurePeersConnected(time.Now())

		select {
		case <-ticker.C:
		case <-c.stop:
			return
		}
	}
}

// countByRole returns the number of streams, pending included, held toward
// peers of the given role class. Callers must hold the mutex.
func (c *ConnectionManager) countByRole(role peerdirectory.Role) int {
	count := 0
	for _, stream := range c.streams {
		if stream.peer.Role.InboundClass() == role.InboundClass() {
			count++
		}
	}
	return count
}

func (c *ConnectionManager) removeStream(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.streams, key)
}

// ConfirmOutgoing marks the outbound stream carried by the given connection
// as confirmed. It returns the directory peer the stream was dialed for, or
// false if the connection holds no pending outbound stream.
func (c *ConnectionManager) ConfirmOutgoing(connection *netadapter.NetConnection) (*peerdirectory.Peer, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for _, stream := range c.streams {
		if stream.connection == connection && stream.outbound {
			stream.confirmed = true
			return stream.peer, true
		}
	}
	return nil, false
}

// OutgoingPeer returns the directory peer an outbound connection was dialed
// for.
func (c *ConnectionManager) OutgoingPeer(connection *netadapter.NetConnection) (*peerdirectory.Peer, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for _, stream := range c.streams {
		if stream.connection == connection && stream.outbound {
			return stream.peer, true
		}
	}
	return nil, false
}

// IgnoreOutgoing excludes the peer behind the given outbound connection from
// future upstream selection. The caller is expected to disconnect the
// connection afterwards; the disconnect handler frees the stream slot.
func (c *ConnectionManager) IgnoreOutgoing(connection *netadapter.NetConnection) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for key, stream := range c.streams {
		if stream.connection == connection && stream.outbound {
			c.ignoredOutgoing[key] = struct{}{}
			log.Infof("Ignoring upstream peer %s for future selection", stream.peer)
			return
		}
	}
}

// TryAddIncoming admits an inbound stream from the given peer. It fails when
// the peer's role is not one this node accepts, or when the role's stream
// limit is already reached.
func (c *ConnectionManager) TryAddIncoming(peer *peerdirectory.Peer, connection *netadapter.NetConnection) error {
	ownRole := c.cfg.OwnPeer.Role
	peerClass := peer.Role.InboundClass()
	if !ownRole.IsCompatibleWith(peerClass) {
		return errors.Errorf("role %s does not accept connections from role %s", ownRole, peer.Role)
	}

	key := c.directory.Key(peer)
	if key == "" {
		return errors.Errorf("peer %s has an empty identifying key", peer)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if existing, ok := c.streams[key]; ok {
		return errors.Errorf("a stream toward %s already exists (outbound: %t)", peer, existing.outbound)
	}

	limit := ownRole.Limit(peerClass)
	if c.countByRole(peerClass) >= limit {
		return errors.Errorf("role %s is at its limit of %d streams toward role %s", ownRole, limit, peer.Role)
	}

	c.streams[key] = &stream{peer: peer, connection: connection, confirmed: true}
	connection.AddOnDisconnectedHandler(func() {
		c.removeStream(key)
	})
	return nil
}

// Connection returns the live connection toward the peer registered under the
// given key, if one exists.
func (c *ConnectionManager) Connection(key string) (*netadapter.NetConnection, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	stream, ok := c.streams[key]
	if !ok || stream.connection == nil {
		return nil, false
	}
	return stream.connection, true
}

// ConnectionCount returns the number of streams currently held, pending
// included.
func (c *ConnectionManager) ConnectionCount() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return len(c.streams)
}
