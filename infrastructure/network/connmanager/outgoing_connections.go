package connmanager

import (
	"time"

	"github.com/pkg/errors"

	"github.com/stratanet/stratad/infrastructure/network/gatewayselector"
	"github.com/stratanet/stratad/infrastructure/network/netadapter"
	"github.com/stratanet/stratad/infrastructure/network/peerdirectory"
)

// ensurePeersConnected tops up outbound streams toward this role's upstream
// until the role's limit is reached or the candidate set runs dry. Candidates
// already connected, pending, or ignored are skipped and retried on a later
// tick once a slot frees up.
func (c *ConnectionManager) ensurePeersConnected(now time.Time) {
	ownRole := c.cfg.OwnPeer.Role
	targetRole := ownRole.OutboundRole()
	limit := ownRole.Limit(targetRole)

	candidates, err := c.outgoingCandidates(now)
	if err != nil {
		log.Warnf("Could not determine upstream candidates: %s", err)
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	for _, candidate := range candidates {
		if c.countByRole(targetRole) >= limit {
			return
		}
		if candidate.Identity.UsernameSignature == c.directory.OwnSignature() {
			continue
		}
		key := c.directory.Key(candidate)
		if _, ok := c.streams[key]; ok {
			continue
		}
		if _, ignored := c.ignoredOutgoing[key]; ignored {
			continue
		}

		// The pending entry occupies the slot before the dial starts.
		c.streams[key] = &stream{peer: candidate, outbound: true}
		key, candidate := key, candidate
		spawn("ConnectionManager.initiateConnection", func() {
			c.initiateConnection(key, candidate)
		})
	}
}

// outgoingCandidates returns this role's upstream candidate peers in the
// order they should be dialed.
func (c *ConnectionManager) outgoingCandidates(now time.Time) ([]*peerdirectory.Peer, error) {
	switch c.cfg.OwnPeer.Role {
	case peerdirectory.RoleSeed:
		return c.directory.PeersByRole(peerdirectory.RoleSeed), nil

	case peerdirectory.RoleSeedGateway:
		seed, ok := c.directory.GetBySignature(c.cfg.OwnPeer.Seed)
		if !ok {
			return nil, errors.Errorf("designated seed with signature %s is not a known peer",
				c.cfg.OwnPeer.Seed)
		}
		return []*peerdirectory.Peer{seed}, nil

	case peerdirectory.RoleServiceProvider:
		gateways := c.directory.PeersByRole(peerdirectory.RoleSeedGateway)
		gateway, err := gatewayselector.Select(
			gatewayselector.Config{Epoch: c.cfg.Epoch, RotationInterval: c.cfg.RotationInterval},
			c.directory.OwnSignature(), gateways, c.ignoredOutgoingSnapshot(), now)
		if errors.Is(err, gatewayselector.ErrNoGatewayAvailable) && len(gateways) > 0 {
			// Every gateway has been ignored. Reset and start over
			// rather than staying disconnected forever.
			c.resetIgnoredOutgoing()
			gateway, err = gatewayselector.Select(
				gatewayselector.Config{Epoch: c.cfg.Epoch, RotationInterval: c.cfg.RotationInterval},
				c.directory.OwnSignature(), gateways, nil, now)
		}
		if err != nil {
			return nil, err
		}
		return []*peerdirectory.Peer{gateway}, nil

	case peerdirectory.RoleUser, peerdirectory.RoleMiner:
		return c.directory.PeersByRole(peerdirectory.RoleServiceProvider), nil
	}
	return nil, errors.Errorf("role %s has no upstream", c.cfg.OwnPeer.Role)
}

func (c *ConnectionManager) ignoredOutgoingSnapshot() map[string]struct{} {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	snapshot := make(map[string]struct{}, len(c.ignoredOutgoing))
	for key := range c.ignoredOutgoing {
		snapshot[key] = struct{}{}
	}
	return snapshot
}

func (c *ConnectionManager) resetIgnoredOutgoing() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	log.Infof("All upstream candidates were ignored, resetting the ignore list")
	c.ignoredOutgoing = make(map[string]struct{})
}

// initiateConnection dials the pending stream's peer. A dial failure frees
// the slot so the peer is retried on a later tick; it does not land the peer
// on the ignore list since nothing about the peer itself is known yet.
func (c *ConnectionManager) initiateConnection(key string, peer *peerdirectory.Peer) {
	address := peer.TCPAddress()
	log.Debugf("Connecting to %s (%s)", peer, address)

	// The binder runs before any flows are attached to the connection:
	// the handshake confirms the stream via ConfirmOutgoing, which must
	// already find the connection in the stream table.
	connection, err := c.netAdapter.Connect(address, func(connection *netadapter.NetConnection) {
		c.bindOutgoing(key, connection)
	})
	if err != nil {
		log.Infof("Couldn't connect to %s: %s", address, err)
		c.removeStream(key)
		return
	}

	c.mutex.Lock()
	stream, ok := c.streams[key]
	bound := ok && stream.connection == connection
	c.mutex.Unlock()
	if !bound {
		// The manager was stopped while the dial was in flight.
		connection.Disconnect()
		return
	}

	connection.AddOnDisconnectedHandler(func() {
		c.removeStream(key)
	})
}

// bindOutgoing attaches a freshly dialed connection to its pending stream.
// It returns false if the stream was removed while the dial was in flight.
func (c *ConnectionManager) bindOutgoing(key string, connection *netadapter.NetConnection) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	stream, ok := c.streams[key]
	if !ok {
		return false
	}
	stream.connection = connection
	return true
}
