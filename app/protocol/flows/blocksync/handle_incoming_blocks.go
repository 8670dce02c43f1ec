package blocksync

import (
	"github.com/pkg/errors"

	"github.com/stratanet/stratad/app/appmessage"
	"github.com/stratanet/stratad/app/protocol/protocolerrors"
	"github.com/stratanet/stratad/domain"
	"github.com/stratanet/stratad/infrastructure/config"
	"github.com/stratanet/stratad/infrastructure/network/netadapter"

	peerpkg "github.com/stratanet/stratad/app/protocol/peer"
	routerpkg "github.com/stratanet/stratad/infrastructure/network/netadapter/router"
)

// IncomingBlocksContext is the interface for the context needed for the HandleIncomingBlocks flow.
type IncomingBlocksContext interface {
	Config() *config.Config
	Domain() domain.Domain
	LockSync()
	UnlockSync()
	IsSyncing() bool
	OnBlockInserted(block *domain.Block, source *netadapter.NetConnection) error
}

// HandleIncomingBlocks processes the remote's chain-tip announcements and
// block batches. A tip exactly one past the local head is imported directly;
// a farther tip opens a batch request loop that runs until the gap closes.
func HandleIncomingBlocks(context IncomingBlocksContext, incomingRoute *routerpkg.Route,
	outgoingRoute *routerpkg.Route, peer *peerpkg.Peer) error {

	for {
		message, err := incomingRoute.Dequeue()
		if err != nil {
			return err
		}

		switch message := message.(type) {
		case *appmessage.MsgLatestBlock:
			err = handleLatestBlock(context, outgoingRoute, peer, message.Block)
		case *appmessage.MsgBlocks:
			err = handleBlocks(context, outgoingRoute, peer, message.Blocks)
		default:
			err = protocolerrors.Errorf(false, "unexpected message %s", message.Command())
		}
		if err != nil {
			return err
		}
	}
}

func handleLatestBlock(context IncomingBlocksContext, outgoingRoute *routerpkg.Route,
	peer *peerpkg.Peer, block *domain.Block) error {

	if block == nil {
		return protocolerrors.New(false, "latest_block carries no block")
	}

	if context.IsSyncing() {
		// A batch is being applied; the announced block will be covered
		// by it or by a later announcement.
		return nil
	}

	head, err := context.Domain().ChainReader().Head()
	if err != nil {
		return err
	}

	switch {
	case block.Index <= head.Index:
		// Stale announcement.
		return nil

	case block.Index == head.Index+1:
		imported, err := importBlock(context, peer.Key(), block)
		if err != nil {
			return err
		}
		if imported {
			return context.OnBlockInserted(block, peer.Connection())
		}
		return nil

	default:
		// The remote is ahead by more than one block, fill the gap in
		// bounded batches.
		log.Debugf("Peer %s announced block %d while our head is %d, requesting a batch",
			peer, block.Index, head.Index)
		return outgoingRoute.Enqueue(appmessage.NewMsgRequestBlocks(
			head.Index+1, head.Index+1+context.Config().MaxBlocksPerMsg))
	}
}

func handleBlocks(context IncomingBlocksContext, outgoingRoute *routerpkg.Route,
	peer *peerpkg.Peer, blocks []*domain.Block) error {

	if len(blocks) == 0 {
		return nil
	}
	if uint64(len(blocks)) > context.Config().MaxBlocksPerMsg {
		return protocolerrors.Errorf(false, "got %d blocks in one message, above the limit of %d",
			len(blocks), context.Config().MaxBlocksPerMsg)
	}

	context.LockSync()
	defer context.UnlockSync()

	// Re-read the head after acquiring the sync flag: another session may
	// have advanced it while we waited.
	head, err := context.Domain().ChainReader().Head()
	if err != nil {
		return err
	}
	if blocks[0].Index != head.Index+1 {
		log.Debugf("Discarding batch from %s starting at %d, head is %d",
			peer, blocks[0].Index, head.Index)
		return nil
	}

	var lastInserted *domain.Block
	nextIndex := head.Index + 1
	for _, block := range blocks {
		if block.Index != nextIndex {
			// Non-contiguous batch, stop at the break.
			break
		}
		imported, err := importBlock(context, peer.Key(), block)
		if err != nil {
			return err
		}
		if !imported {
			// Abort on first failure; never skip ahead within a batch.
			break
		}
		lastInserted = block
		nextIndex++
	}

	if lastInserted == nil {
		return nil
	}

	err = context.OnBlockInserted(lastInserted, peer.Connection())
	if err != nil {
		return err
	}
	// Keep the pipeline going from wherever the batch left off.
	return outgoingRoute.Enqueue(appmessage.NewMsgRequestBlocks(
		nextIndex, nextIndex+context.Config().MaxBlocksPerMsg))
}

// importBlock runs the insert+import path for a single block. A consensus
// rejection is not an error for the session: the block is dropped and the
// caller stops its current batch at that point.
func importBlock(context IncomingBlocksContext, sourcePeer string, block *domain.Block) (bool, error) {
	consensus := context.Domain().Consensus()

	err := consensus.InsertConsensusBlock(block, sourcePeer)
	if err != nil {
		if errors.Is(err, domain.ErrConsensusRejected) {
			log.Infof("Block %d (%s) from %s rejected by consensus: %s", block.Index, block.Hash, sourcePeer, err)
			return false, nil
		}
		return false, err
	}

	imported, err := consensus.ImportBlock(sourcePeer, block)
	if err != nil {
		if errors.Is(err, domain.ErrConsensusRejected) {
			log.Infof("Block %d (%s) from %s rejected on import: %s", block.Index, block.Hash, sourcePeer, err)
			return false, nil
		}
		return false, err
	}
	return imported, nil
}
