package flowcontext

import (
	"github.com/stratanet/stratad/app/appmessage"
	"github.com/stratanet/stratad/domain"
	"github.com/stratanet/stratad/infrastructure/network/netadapter"
)

// OnBlockInserted gossips a freshly imported block to all ready peers, except
// the connection that delivered it.
func (f *FlowContext) OnBlockInserted(block *domain.Block, source *netadapter.NetConnection) error {
	log.Debugf("Gossiping block %d (%s)", block.Index, block.Hash)
	return f.Broadcast(appmessage.NewMsgLatestBlock(block), source)
}
