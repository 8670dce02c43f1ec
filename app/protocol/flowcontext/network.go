package flowcontext

import (
	"github.com/pkg/errors"

	"github.com/stratanet/stratad/app/appmessage"
	"github.com/stratanet/stratad/app/protocol/common"
	"github.com/stratanet/stratad/infrastructure/network/connmanager"
	"github.com/stratanet/stratad/infrastructure/network/netadapter"

	peerpkg "github.com/stratanet/stratad/app/protocol/peer"
)

// NetAdapter returns the net adapter that is associated to the flow context.
func (f *FlowContext) NetAdapter() *netadapter.NetAdapter {
	return f.netAdapter
}

// ConnectionManager returns the connection manager that is associated to the flow context.
func (f *FlowContext) ConnectionManager() *connmanager.ConnectionManager {
	return f.connectionManager
}

// AddToPeers marks this peer as ready and adds it to the ready peers list.
func (f *FlowContext) AddToPeers(peer *peerpkg.Peer) error {
	f.peersMutex.Lock()
	defer f.peersMutex.Unlock()

	if _, ok := f.peers[peer.Key()]; ok {
		return errors.Wrapf(common.ErrPeerWithSameKeyExists, "peer with key %s already exists", peer.Key())
	}
	f.peers[peer.Key()] = peer
	return nil
}

// RemoveFromPeers remove this peer from the peers list.
func (f *FlowContext) RemoveFromPeers(peer *peerpkg.Peer) {
	f.peersMutex.Lock()
	defer f.peersMutex.Unlock()

	delete(f.peers, peer.Key())
}

// readyPeerConnections returns the NetConnections of all the ready peers,
// except the excluded connection if it is not nil.
func (f *FlowContext) readyPeerConnections(exclude *netadapter.NetConnection) []*netadapter.NetConnection {
	f.peersMutex.RLock()
	defer f.peersMutex.RUnlock()

	peerConnections := make([]*netadapter.NetConnection, 0, len(f.peers))
	for _, peer := range f.peers {
		if peer.Connection() == exclude {
			continue
		}
		peerConnections = append(peerConnections, peer.Connection())
	}
	return peerConnections
}

// Broadcast broadcasts the given message to all the ready peers except the
// excluded connection, which is the one the message originally arrived on.
func (f *FlowContext) Broadcast(message appmessage.Message, exclude *netadapter.NetConnection) error {
	return f.netAdapter.Broadcast(f.readyPeerConnections(exclude), message)
}

// Peers returns the currently active peers
func (f *FlowContext) Peers() []*peerpkg.Peer {
	f.peersMutex.RLock()
	defer f.peersMutex.RUnlock()

	peers := make([]*peerpkg.Peer, 0, len(f.peers))
	for _, peer := range f.peers {
		peers = append(peers, peer)
	}
	return peers
}

// HasPeers returns whether there are currently active peers
func (f *FlowContext) HasPeers() bool {
	f.peersMutex.RLock()
	defer f.peersMutex.RUnlock()
	return len(f.peers) > 0
}
