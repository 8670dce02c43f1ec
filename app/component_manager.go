package app

import (
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/stratanet/stratad/app/protocol"
	"github.com/stratanet/stratad/domain"
	"github.com/stratanet/stratad/domain/chain"
	"github.com/stratanet/stratad/infrastructure/config"
	"github.com/stratanet/stratad/infrastructure/network/connmanager"
	"github.com/stratanet/stratad/infrastructure/network/netadapter"
	"github.com/stratanet/stratad/infrastructure/network/peerdirectory"
	"github.com/stratanet/stratad/util/panics"
)

// ComponentManager is a wrapper for all the stratad services
type ComponentManager struct {
	cfg               *config.Config
	directory         *peerdirectory.Directory
	protocolManager   *protocol.Manager
	connectionManager *connmanager.ConnectionManager
	netAdapter        *netadapter.NetAdapter

	chain  *chain.Chain
	peerDB *leveldb.DB

	started, shutdown int32
}

// Start launches all the stratad services.
func (a *ComponentManager) Start() {
	// Already started?
	if atomic.AddInt32(&a.started, 1) != 1 {
		return
	}

	log.Trace("Starting stratad")

	err := a.netAdapter.Start()
	if err != nil {
		panics.Exit(log, fmt.Sprintf("Error starting the net adapter: %+v", err))
	}

	a.connectionManager.Start()
}

// Stop gracefully shuts down all the stratad services.
func (a *ComponentManager) Stop() {
	// Make sure this only happens once.
	if atomic.AddInt32(&a.shutdown, 1) != 1 {
		log.Infof("Stratad is already in the process of shutting down")
		return
	}

	log.Warnf("Stratad shutting down")

	a.connectionManager.Stop()

	err := a.netAdapter.Stop()
	if err != nil {
		log.Errorf("Error stopping the net adapter: %+v", err)
	}

	a.protocolManager.Close()

	err = a.chain.Close()
	if err != nil {
		log.Errorf("Error closing the chain store: %+v", err)
	}
	err = a.peerDB.Close()
	if err != nil {
		log.Errorf("Error closing the peer store: %+v", err)
	}
}

// NewComponentManager returns a new ComponentManager instance.
// Use Start() to begin all services within this ComponentManager
func NewComponentManager(cfg *config.Config) (*ComponentManager, error) {
	chainStore, err := chain.Open(filepath.Join(cfg.DataDir(), "chain"))
	if err != nil {
		return nil, err
	}
	dom := domain.New(chainStore, chainStore)

	peerDB, err := leveldb.OpenFile(filepath.Join(cfg.DataDir(), "peers"), nil)
	if err != nil {
		return nil, err
	}

	directory := peerdirectory.New(cfg.OwnPeer.Identity.UsernameSignature, peerdirectory.NewStore(peerDB))
	err = directory.Restore()
	if err != nil {
		return nil, err
	}
	for _, peer := range config.BootstrapPeers() {
		if peer.Identity.UsernameSignature == cfg.OwnPeer.Identity.UsernameSignature {
			continue
		}
		_, err := directory.Upsert(peer)
		if err != nil {
			return nil, err
		}
	}
	log.Infof("Peer directory holds %d peers", directory.Len())

	netAdapter := netadapter.NewNetAdapter(cfg.Listen)
	connectionManager := connmanager.New(cfg, netAdapter, directory)
	protocolManager, err := protocol.NewManager(cfg, dom, directory, netAdapter, connectionManager)
	if err != nil {
		return nil, err
	}

	return &ComponentManager{
		cfg:               cfg,
		directory:         directory,
		protocolManager:   protocolManager,
		connectionManager: connectionManager,
		netAdapter:        netAdapter,
		chain:             chainStore,
		peerDB:            peerDB,
	}, nil
}
