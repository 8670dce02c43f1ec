package blocksync

import (
	"github.com/stratanet/stratad/app/appmessage"
	"github.com/stratanet/stratad/app/protocol/protocolerrors"
	"github.com/stratanet/stratad/domain"
	"github.com/stratanet/stratad/infrastructure/config"

	routerpkg "github.com/stratanet/stratad/infrastructure/network/netadapter/router"
)

// RequestBlocksContext is the interface for the context needed for the HandleRequestBlocks flow.
type RequestBlocksContext interface {
	Config() *config.Config
	Domain() domain.Domain
}

// HandleRequestBlocks serves bounded block batches on get_blocks requests.
// The requested range is clamped to the batch cap; the reply holds whatever
// part of the range the local chain has, possibly nothing.
func HandleRequestBlocks(context RequestBlocksContext, incomingRoute *routerpkg.Route,
	outgoingRoute *routerpkg.Route) error {

	for {
		message, err := incomingRoute.Dequeue()
		if err != nil {
			return err
		}
		request := message.(*appmessage.MsgRequestBlocks)

		if request.EndIndex <= request.StartIndex {
			return protocolerrors.Errorf(false, "requested block range [%d, %d) is empty",
				request.StartIndex, request.EndIndex)
		}
		end := request.EndIndex
		if end-request.StartIndex > context.Config().MaxBlocksPerMsg {
			end = request.StartIndex + context.Config().MaxBlocksPerMsg
		}

		blocks, err := context.Domain().ChainReader().Blocks(request.StartIndex, end)
		if err != nil {
			return err
		}
		err = outgoingRoute.Enqueue(appmessage.NewMsgBlocks(blocks))
		if err != nil {
			return err
		}
	}
}
