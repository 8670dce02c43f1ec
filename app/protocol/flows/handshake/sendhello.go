package handshake

import (
	"github.com/pkg/errors"

	"github.com/stratanet/stratad/app/appmessage"
	"github.com/stratanet/stratad/app/protocol/flows/peerexchange"
	"github.com/stratanet/stratad/app/protocol/protocolerrors"

	peerpkg "github.com/stratanet/stratad/app/protocol/peer"
	routerpkg "github.com/stratanet/stratad/infrastructure/network/netadapter/router"
)

// handleOutbound announces this node to the remote side and waits for the
// remote peer list. A remote that does not answer with its peer list within
// the handshake window is treated as unresponsive and the session is torn
// down without confirming the stream.
func handleOutbound(context HandleHandshakeContext, peer *peerpkg.Peer,
	peersRoute *routerpkg.Route, outgoingRoute *routerpkg.Route) error {

	ownRecord := context.Config().OwnPeer.ToRecord("")
	err := outgoingRoute.Enqueue(appmessage.NewMsgHello(appmessage.ProtocolVersion, ownRecord))
	if err != nil {
		return err
	}
	err = outgoingRoute.Enqueue(appmessage.NewMsgRequestPeers())
	if err != nil {
		return err
	}

	message, err := peersRoute.DequeueWithTimeout(context.Config().HandshakeTimeout)
	if err != nil {
		if errors.Is(err, routerpkg.ErrTimeout) {
			return protocolerrors.Wrap(false, err, "timed out waiting for the remote peer list")
		}
		return err
	}
	msgPeers := message.(*appmessage.MsgPeers)
	if len(msgPeers.Peers) > appmessage.MaxPeersPerMsg {
		return protocolerrors.Errorf(true, "got %d peers in one message, above the limit of %d",
			len(msgPeers.Peers), appmessage.MaxPeersPerMsg)
	}
	peerexchange.MergePeers(context.Directory(), msgPeers.Peers)

	directoryPeer, ok := context.ConnectionManager().ConfirmOutgoing(peer.Connection())
	if !ok {
		return protocolerrors.New(false, "connection is not a tracked outbound stream")
	}
	peer.SetDirectoryPeer(directoryPeer, context.Directory().Key(directoryPeer))
	log.Debugf("Confirmed upstream %s", directoryPeer)
	return nil
}
