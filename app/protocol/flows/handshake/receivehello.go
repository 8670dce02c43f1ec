package handshake

import (
	"github.com/pkg/errors"

	"github.com/stratanet/stratad/app/appmessage"
	"github.com/stratanet/stratad/app/protocol/protocolerrors"
	"github.com/stratanet/stratad/infrastructure/network/peerdirectory"

	peerpkg "github.com/stratanet/stratad/app/protocol/peer"
	routerpkg "github.com/stratanet/stratad/infrastructure/network/netadapter/router"
)

// handleInbound waits for the remote's hello announcement and decides
// admission: the announced role must be one this node accepts and its stream
// limit must not be exhausted.
func handleInbound(context HandleHandshakeContext, peer *peerpkg.Peer,
	helloRoute *routerpkg.Route) error {

	message, err := helloRoute.DequeueWithTimeout(context.Config().HandshakeTimeout)
	if err != nil {
		if errors.Is(err, routerpkg.ErrTimeout) {
			return protocolerrors.Wrap(false, err, "timed out waiting for hello")
		}
		return err
	}
	hello := message.(*appmessage.MsgHello)

	if hello.Version != appmessage.ProtocolVersion {
		return protocolerrors.Errorf(false, "remote speaks protocol version %d, expected %d",
			hello.Version, appmessage.ProtocolVersion)
	}
	if hello.Peer == nil {
		return protocolerrors.New(false, "hello carries no peer record")
	}

	announced, err := peerdirectory.FromRecord(hello.Peer)
	if err != nil {
		return protocolerrors.Wrap(false, err, "malformed peer record in hello")
	}
	if announced.Host == "" {
		return protocolerrors.New(false, "hello announces no reachable host")
	}

	_, err = context.Directory().Upsert(announced)
	if err != nil {
		if errors.Is(err, peerdirectory.ErrIdentityMismatch) {
			return protocolerrors.Wrap(false, err, "announced identity conflicts with a known peer")
		}
		return protocolerrors.Wrap(false, err, "could not register the announced peer")
	}

	key := context.Directory().Key(announced)
	directoryPeer, _ := context.Directory().Get(key)

	err = context.ConnectionManager().TryAddIncoming(directoryPeer, peer.Connection())
	if err != nil {
		return protocolerrors.Wrap(false, err, "inbound stream not admitted")
	}

	peer.SetDirectoryPeer(directoryPeer, key)
	log.Infof("Admitted inbound %s", directoryPeer)
	return nil
}
