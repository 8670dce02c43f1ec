package blocksync

import (
	"github.com/stratanet/stratad/app/appmessage"
	"github.com/stratanet/stratad/domain"

	routerpkg "github.com/stratanet/stratad/infrastructure/network/netadapter/router"
)

// RequestLatestBlockContext is the interface for the context needed for the HandleRequestLatestBlock flow.
type RequestLatestBlockContext interface {
	Domain() domain.Domain
}

// HandleRequestLatestBlock announces the local chain tip on every
// get_latest_block request.
func HandleRequestLatestBlock(context RequestLatestBlockContext, incomingRoute *routerpkg.Route,
	outgoingRoute *routerpkg.Route) error {

	for {
		_, err := incomingRoute.Dequeue()
		if err != nil {
			return err
		}

		head, err := context.Domain().ChainReader().Head()
		if err != nil {
			return err
		}
		err = outgoingRoute.Enqueue(appmessage.NewMsgLatestBlock(head))
		if err != nil {
			return err
		}
	}
}
