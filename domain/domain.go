package domain

import "github.com/pkg/errors"

// ErrConsensusRejected is returned by Consensus implementations when a block
// fails validation. The sync layer treats it as "drop and abort the current
// batch at this point"; it never crosses a session boundary.
var ErrConsensusRejected = errors.New("block rejected by consensus")

// Block is the external representation of a chain block as exchanged with
// peers. Transaction payloads are opaque to the sync layer.
type Block struct {
	Index        uint64 `json:"index"`
	Hash         string `json:"hash"`
	PrevHash     string `json:"prevHash"`
	Time         int64  `json:"time"`
	Transactions []byte `json:"transactions,omitempty"`
}

// Consensus validates and persists blocks. Implementations own all
// validation internals; the sync layer only distinguishes success from
// ErrConsensusRejected.
type Consensus interface {
	// InsertConsensusBlock registers a candidate block from the given
	// source peer prior to import.
	InsertConsensusBlock(block *Block, sourcePeer string) error

	// ImportBlock applies a block to local chain state. It returns false
	// (with a nil error) when the block was not imported but the failure
	// is not an error condition for the session.
	ImportBlock(sourcePeer string, block *Block) (bool, error)
}

// ChainReader provides read access to local chain state.
type ChainReader interface {
	// Head returns the current chain tip.
	Head() (*Block, error)

	// Blocks returns the blocks in [start, end), bounded by what the
	// chain currently holds.
	Blocks(start, end uint64) ([]*Block, error)
}

// Domain bundles the chain collaborators handed to the protocol layer.
type Domain interface {
	Consensus() Consensus
	ChainReader() ChainReader
}

type domain struct {
	consensus   Consensus
	chainReader ChainReader
}

func (d *domain) Consensus() Consensus     { return d.consensus }
func (d *domain) ChainReader() ChainReader { return d.chainReader }

// New bundles a Consensus and a ChainReader into a Domain.
func New(consensus Consensus, chainReader ChainReader) Domain {
	return &domain{consensus: consensus, chainReader: chainReader}
}
