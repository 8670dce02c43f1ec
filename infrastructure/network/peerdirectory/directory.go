package peerdirectory

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrIdentityMismatch is returned when a merged record carries a different
// identity than the one already registered under the same key.
var ErrIdentityMismatch = errors.New("peer identity does not match the registered identity")

// Directory is a dedup-by-key registry of known peers. Insertion order is
// preserved: gateway selection enumerates peers in the order they were first
// registered. Peers are never deleted, only refreshed.
type Directory struct {
	mutex        sync.RWMutex
	ownSignature string
	peers        map[string]*Peer
	order        []string
	store        *Store
}

// New returns an empty directory keyed relative to ownSignature. store may
// be nil, in which case the directory is purely in-memory.
func New(ownSignature string, store *Store) *Directory {
	return &Directory{
		ownSignature: ownSignature,
		peers:        make(map[string]*Peer),
		store:        store,
	}
}

// Restore loads all previously persisted peers into the directory, in the
// order they were first persisted.
func (d *Directory) Restore() error {
	if d.store == nil {
		return nil
	}
	peers, err := d.store.restore()
	if err != nil {
		return err
	}
	for _, peer := range peers {
		_, err := d.Upsert(peer)
		if err != nil {
			log.Warnf("Skipping persisted peer %s: %s", peer, err)
		}
	}
	return nil
}

// Upsert registers a peer or refreshes an existing record's host and port.
// It is idempotent: merging a peer already present with identical identity
// is a no-op apart from the host/port refresh. It returns true if the peer
// was not previously known.
func (d *Directory) Upsert(peer *Peer) (added bool, err error) {
	key := peer.Key(d.ownSignature)
	if key == "" {
		return false, errors.Errorf("peer %s has an empty identifying key", peer)
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	existing, ok := d.peers[key]
	if ok {
		if existing.Identity.UsernameSignature != peer.Identity.UsernameSignature {
			return false, errors.Wrapf(ErrIdentityMismatch, "key %s", key)
		}
		// Latest host/port wins.
		existing.Host = peer.Host
		existing.Port = peer.Port
		d.persist(key, existing)
		return false, nil
	}

	stored := *peer
	d.peers[key] = &stored
	d.order = append(d.order, key)
	d.persist(key, &stored)
	return true, nil
}

func (d *Directory) persist(key string, peer *Peer) {
	if d.store == nil {
		return
	}
	err := d.store.put(key, peer)
	if err != nil {
		log.Warnf("Could not persist peer %s: %s", peer, err)
	}
}

// clone returns a snapshot of a registered record. Accessors hand out
// snapshots only: Upsert refreshes host/port on the registered record in
// place, so sharing it would race with readers holding no lock.
func clone(peer *Peer) *Peer {
	snapshot := *peer
	return &snapshot
}

// Get returns a snapshot of the peer registered under the given key.
func (d *Directory) Get(key string) (*Peer, bool) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	peer, ok := d.peers[key]
	if !ok {
		return nil, false
	}
	return clone(peer), true
}

// GetBySignature returns a snapshot of the peer whose identity carries the
// given username signature.
func (d *Directory) GetBySignature(usernameSignature string) (*Peer, bool) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	for _, key := range d.order {
		if d.peers[key].Identity.UsernameSignature == usernameSignature {
			return clone(d.peers[key]), true
		}
	}
	return nil, false
}

// PeersByRole returns snapshots of all known peers of the given role in
// insertion order.
func (d *Directory) PeersByRole(role Role) []*Peer {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	var peers []*Peer
	for _, key := range d.order {
		if d.peers[key].Role == role {
			peers = append(peers, clone(d.peers[key]))
		}
	}
	return peers
}

// Peers returns snapshots of all known peers in insertion order.
func (d *Directory) Peers() []*Peer {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	peers := make([]*Peer, 0, len(d.order))
	for _, key := range d.order {
		peers = append(peers, clone(d.peers[key]))
	}
	return peers
}

// Key returns the identifying key of the given peer from this directory's
// perspective.
func (d *Directory) Key(peer *Peer) string {
	return peer.Key(d.ownSignature)
}

// OwnSignature returns the username signature the directory keys against.
func (d *Directory) OwnSignature() string {
	return d.ownSignature
}

// Len returns the number of known peers.
func (d *Directory) Len() int {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	return len(d.order)
}
