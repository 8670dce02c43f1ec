package peerexchange

import (
	"github.com/pkg/errors"

	"github.com/stratanet/stratad/app/appmessage"
	"github.com/stratanet/stratad/app/protocol/protocolerrors"
	"github.com/stratanet/stratad/infrastructure/network/peerdirectory"

	routerpkg "github.com/stratanet/stratad/infrastructure/network/netadapter/router"
)

// ReceivePeersContext is the interface for the context needed for the ReceivePeers flow.
type ReceivePeersContext interface {
	Directory() *peerdirectory.Directory
}

// ReceivePeers merges every peer list the remote sends into the directory.
// The first list of an outbound session is consumed by the handshake; this
// flow keeps the directory current for the rest of the session.
func ReceivePeers(context ReceivePeersContext, incomingRoute *routerpkg.Route) error {
	for {
		message, err := incomingRoute.Dequeue()
		if err != nil {
			return err
		}
		msgPeers := message.(*appmessage.MsgPeers)
		if len(msgPeers.Peers) > appmessage.MaxPeersPerMsg {
			return protocolerrors.Errorf(true, "got %d peers in one message, above the limit of %d",
				len(msgPeers.Peers), appmessage.MaxPeersPerMsg)
		}
		MergePeers(context.Directory(), msgPeers.Peers)
	}
}

// MergePeers upserts the given records into the directory. Records that
// cannot be parsed or conflict with a known identity are skipped; a bad entry
// in a gossiped list does not invalidate the rest.
func MergePeers(directory *peerdirectory.Directory, records []*appmessage.PeerRecord) {
	for _, record := range records {
		if record == nil {
			continue
		}
		peer, err := peerdirectory.FromRecord(record)
		if err != nil {
			log.Warnf("Skipping gossiped peer %s:%d: %s", record.Host, record.Port, err)
			continue
		}
		if peer.Identity.UsernameSignature == directory.OwnSignature() {
			continue
		}
		added, err := directory.Upsert(peer)
		if err != nil {
			if errors.Is(err, peerdirectory.ErrIdentityMismatch) {
				log.Warnf("Skipping gossiped peer %s: %s", peer, err)
				continue
			}
			log.Warnf("Could not merge gossiped peer %s: %s", peer, err)
			continue
		}
		if added {
			log.Debugf("Learned about peer %s", peer)
		}
	}
}
