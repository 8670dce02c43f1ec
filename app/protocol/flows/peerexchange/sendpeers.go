package peerexchange

import (
	"github.com/stratanet/stratad/app/appmessage"
	"github.com/stratanet/stratad/infrastructure/network/peerdirectory"

	routerpkg "github.com/stratanet/stratad/infrastructure/network/netadapter/router"
)

// SendPeersContext is the interface for the context needed for the SendPeers flow.
type SendPeersContext interface {
	Directory() *peerdirectory.Directory
}

// SendPeers serves the directory's peer list on every get_peers request.
func SendPeers(context SendPeersContext, incomingRoute *routerpkg.Route, outgoingRoute *routerpkg.Route) error {
	for {
		_, err := incomingRoute.Dequeue()
		if err != nil {
			return err
		}

		directory := context.Directory()
		peers := directory.Peers()
		if len(peers) > appmessage.MaxPeersPerMsg {
			peers = peers[:appmessage.MaxPeersPerMsg]
		}
		records := make([]*appmessage.PeerRecord, 0, len(peers))
		for _, peer := range peers {
			records = append(records, peer.ToRecord(directory.OwnSignature()))
		}

		err = outgoingRoute.Enqueue(appmessage.NewMsgPeers(records))
		if err != nil {
			return err
		}
	}
}
