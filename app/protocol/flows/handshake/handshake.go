package handshake

import (
	"github.com/pkg/errors"

	"github.com/stratanet/stratad/app/appmessage"
	"github.com/stratanet/stratad/app/protocol/common"
	"github.com/stratanet/stratad/app/protocol/protocolerrors"
	"github.com/stratanet/stratad/infrastructure/config"
	"github.com/stratanet/stratad/infrastructure/network/connmanager"
	"github.com/stratanet/stratad/infrastructure/network/netadapter"
	"github.com/stratanet/stratad/infrastructure/network/peerdirectory"

	peerpkg "github.com/stratanet/stratad/app/protocol/peer"
	routerpkg "github.com/stratanet/stratad/infrastructure/network/netadapter/router"
)

// HandleHandshakeContext is the interface for the context needed for the HandleHandshake flow.
type HandleHandshakeContext interface {
	Config() *config.Config
	Directory() *peerdirectory.Directory
	ConnectionManager() *connmanager.ConnectionManager
	AddToPeers(peer *peerpkg.Peer) error
}

// HandleHandshake performs the session handshake. On an outbound connection
// it announces this node and waits for the remote peer list; on an inbound
// connection it waits for the remote's hello and decides admission. Either
// way, a returned peer is registered in the ready-peers list and its
// directory identity is known.
func HandleHandshake(context HandleHandshakeContext, netConnection *netadapter.NetConnection,
	helloRoute *routerpkg.Route, peersRoute *routerpkg.Route, outgoingRoute *routerpkg.Route,
) (*peerpkg.Peer, error) {

	peer := peerpkg.New(netConnection)

	var err error
	if netConnection.IsOutbound() {
		err = handleOutbound(context, peer, peersRoute, outgoingRoute)
	} else {
		err = handleInbound(context, peer, helloRoute)
	}
	if err != nil {
		return nil, err
	}

	err = context.AddToPeers(peer)
	if err != nil {
		if errors.Is(err, common.ErrPeerWithSameKeyExists) {
			return nil, protocolerrors.Wrap(false, err, "peer already exists")
		}
		return nil, err
	}

	if netConnection.IsOutbound() {
		// The remote is confirmed reachable, ask for its chain tip.
		err = outgoingRoute.Enqueue(appmessage.NewMsgRequestLatestBlock())
		if err != nil {
			return nil, err
		}
	}
	return peer, nil
}
