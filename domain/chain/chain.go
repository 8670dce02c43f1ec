package chain

import (
	"encoding/binary"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	ldbutil "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/stratanet/stratad/domain"
)

var blockBucket = []byte("block/")

var headKey = []byte("head")

// Chain is a leveldb-backed block store implementing the ChainReader and
// Consensus boundaries with structural validation only: blocks must extend
// the head by exactly one index and link to its hash. Full transaction and
// proof validation belongs to a consensus engine behind the same interfaces.
type Chain struct {
	mutex sync.RWMutex
	db    *leveldb.DB
	head  *domain.Block
}

// Genesis returns the fixed first block of the chain.
func Genesis() *domain.Block {
	return &domain.Block{
		Index:    0,
		Hash:     "9719ba2466b2a79c1396f1d07bd2a0e6dbf9f9cbe3b1dd62404f3f5b1fa48a86",
		PrevHash: "",
		Time:     1640995200,
	}
}

// Open opens (or initializes) a chain store at the given path.
func Open(path string) (*Chain, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open chain store at %s", path)
	}

	c := &Chain{db: db}
	head, err := c.loadHead()
	if err != nil {
		db.Close()
		return nil, err
	}
	if head == nil {
		head = Genesis()
		err := c.persistBlock(head)
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	c.head = head
	return c, nil
}

// Close closes the underlying store.
func (c *Chain) Close() error {
	return errors.WithStack(c.db.Close())
}

// Head returns the current chain tip.
//
// This is part of the domain.ChainReader interface.
func (c *Chain) Head() (*domain.Block, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	headCopy := *c.head
	return &headCopy, nil
}

// Blocks returns the blocks in [start, end), bounded by the current head.
//
// This is part of the domain.ChainReader interface.
func (c *Chain) Blocks(start, end uint64) ([]*domain.Block, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if end > c.head.Index+1 {
		end = c.head.Index + 1
	}
	if start >= end {
		return nil, nil
	}

	blocks := make([]*domain.Block, 0, end-start)
	iter := c.db.NewIterator(&ldbutil.Range{
		Start: blockKey(start),
		Limit: blockKey(end),
	}, nil)
	defer iter.Release()
	for iter.Next() {
		block := &domain.Block{}
		err := json.Unmarshal(iter.Value(), block)
		if err != nil {
			return nil, errors.Wrap(err, "corrupt block record in chain store")
		}
		blocks = append(blocks, block)
	}
	return blocks, errors.WithStack(iter.Error())
}

// InsertConsensusBlock validates that a candidate block received from
// sourcePeer is well-formed. Linkage is checked on import.
//
// This is part of the domain.Consensus interface.
func (c *Chain) InsertConsensusBlock(block *domain.Block, sourcePeer string) error {
	if block == nil || block.Hash == "" {
		return errors.Wrapf(domain.ErrConsensusRejected, "malformed block from %s", sourcePeer)
	}
	return nil
}

// ImportBlock applies a block to the chain if it extends the head by exactly
// one index and links to the head's hash.
//
// This is part of the domain.Consensus interface.
func (c *Chain) ImportBlock(sourcePeer string, block *domain.Block) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if block.Index != c.head.Index+1 {
		return false, nil
	}
	if block.PrevHash != c.head.Hash {
		return false, errors.Wrapf(domain.ErrConsensusRejected,
			"block %d from %s does not link to head %s", block.Index, sourcePeer, c.head.Hash)
	}

	err := c.persistBlock(block)
	if err != nil {
		return false, err
	}
	c.head = block
	return true, nil
}

func (c *Chain) persistBlock(block *domain.Block) error {
	serialized, err := json.Marshal(block)
	if err != nil {
		return errors.WithStack(err)
	}
	batch := new(leveldb.Batch)
	batch.Put(blockKey(block.Index), serialized)
	batch.Put(headKey, serialized)
	return errors.WithStack(c.db.Write(batch, nil))
}

func (c *Chain) loadHead() (*domain.Block, error) {
	serialized, err := c.db.Get(headKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	head := &domain.Block{}
	err = json.Unmarshal(serialized, head)
	if err != nil {
		return nil, errors.Wrap(err, "corrupt head record in chain store")
	}
	return head, nil
}

func blockKey(index uint64) []byte {
	key := make([]byte, len(blockBucket)+8)
	copy(key, blockBucket)
	binary.BigEndian.PutUint64(key[len(blockBucket):], index)
	return key
}
