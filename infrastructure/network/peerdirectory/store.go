package peerdirectory

import (
	"encoding/binary"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	ldbutil "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/stratanet/stratad/util/identity"
)

var (
	peerBucket     = []byte("peer/")
	sequenceBucket = []byte("peerseq/")
	sequenceKey    = []byte("peerseq-next")
)

// storedPeer is the serialized form of a directory entry.
type storedPeer struct {
	Host        string            `json:"host"`
	Port        uint16            `json:"port"`
	Identity    identity.Identity `json:"identity"`
	Role        string            `json:"role"`
	Seed        string            `json:"seed,omitempty"`
	SeedGateway string            `json:"seed_gateway,omitempty"`
	Address     string            `json:"address,omitempty"`
	Sequence    uint64            `json:"sequence"`
}

// Store persists directory entries to leveldb so that known peers survive
// restarts. Entries carry a monotonic sequence number preserving the
// directory's insertion order across a restore.
type Store struct {
	db *leveldb.DB
}

// NewStore returns a store over the given database handle.
func NewStore(db *leveldb.DB) *Store {
	return &Store{db: db}
}

func (s *Store) put(key string, peer *Peer) error {
	sequence, isNew, err := s.sequenceFor(key)
	if err != nil {
		return err
	}

	serialized, err := json.Marshal(&storedPeer{
		Host:        peer.Host,
		Port:        peer.Port,
		Identity:    peer.Identity,
		Role:        peer.Role.String(),
		Seed:        peer.Seed,
		SeedGateway: peer.SeedGateway,
		Address:     peer.Address,
		Sequence:    sequence,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	batch := new(leveldb.Batch)
	batch.Put(append(peerBucket, key...), serialized)
	if isNew {
		batch.Put(append(sequenceBucket, key...), encodeSequence(sequence))
		batch.Put(sequenceKey, encodeSequence(sequence+1))
	}
	return errors.WithStack(s.db.Write(batch, nil))
}

func (s *Store) sequenceFor(key string) (sequence uint64, isNew bool, err error) {
	existing, err := s.db.Get(append(sequenceBucket, key...), nil)
	if err == nil {
		return binary.BigEndian.Uint64(existing), false, nil
	}
	if !errors.Is(err, leveldb.ErrNotFound) {
		return 0, false, errors.WithStack(err)
	}

	next, err := s.db.Get(sequenceKey, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, true, nil
	}
	if err != nil {
		return 0, false, errors.WithStack(err)
	}
	return binary.BigEndian.Uint64(next), true, nil
}

func (s *Store) restore() ([]*Peer, error) {
	iter := s.db.NewIterator(ldbutil.BytesPrefix(peerBucket), nil)
	defer iter.Release()

	var stored []*storedPeer
	for iter.Next() {
		entry := &storedPeer{}
		err := json.Unmarshal(iter.Value(), entry)
		if err != nil {
			return nil, errors.Wrap(err, "corrupt peer record in store")
		}
		stored = append(stored, entry)
	}
	err := iter.Error()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// Insertion-order restore.
	sortStoredBySequence(stored)

	peers := make([]*Peer, 0, len(stored))
	for _, entry := range stored {
		role, err := ParseRole(entry.Role)
		if err != nil {
			log.Warnf("Skipping stored peer with unknown role '%s'", entry.Role)
			continue
		}
		peers = append(peers, &Peer{
			Host:        entry.Host,
			Port:        entry.Port,
			Identity:    entry.Identity,
			Role:        role,
			Seed:        entry.Seed,
			SeedGateway: entry.SeedGateway,
			Address:     entry.Address,
		})
	}
	return peers, nil
}

func sortStoredBySequence(stored []*storedPeer) {
	// Insertion sort; restored peer sets are small.
	for i := 1; i < len(stored); i++ {
		for j := i; j > 0 && stored[j].Sequence < stored[j-1].Sequence; j-- {
			stored[j], stored[j-1] = stored[j-1], stored[j]
		}
	}
}

func encodeSequence(sequence uint64) []byte {
	encoded := make([]byte, 8)
	binary.BigEndian.PutUint64(encoded, sequence)
	return encoded
}
