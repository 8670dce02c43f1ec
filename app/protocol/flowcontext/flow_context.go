package flowcontext

import (
	"sync"

	"github.com/stratanet/stratad/domain"
	"github.com/stratanet/stratad/infrastructure/config"
	"github.com/stratanet/stratad/infrastructure/network/connmanager"
	"github.com/stratanet/stratad/infrastructure/network/netadapter"
	"github.com/stratanet/stratad/infrastructure/network/peerdirectory"

	peerpkg "github.com/stratanet/stratad/app/protocol/peer"
)

// FlowContext holds state that is relevant to more than one flow or one peer,
// and allows communication between different flows that can be associated to
// different peers.
type FlowContext struct {
	cfg               *config.Config
	netAdapter        *netadapter.NetAdapter
	domain            domain.Domain
	directory         *peerdirectory.Directory
	connectionManager *connmanager.ConnectionManager

	// syncMutex serializes batch application process-wide; syncing mirrors
	// its held state so other sessions can observe it without blocking.
	syncMutex sync.Mutex
	syncing   uint32

	peers      map[string]*peerpkg.Peer
	peersMutex sync.RWMutex
}

// New returns a new instance of FlowContext.
func New(cfg *config.Config, domain domain.Domain, directory *peerdirectory.Directory,
	netAdapter *netadapter.NetAdapter, connectionManager *connmanager.ConnectionManager) *FlowContext {

	return &FlowContext{
		cfg:               cfg,
		netAdapter:        netAdapter,
		domain:            domain,
		directory:         directory,
		connectionManager: connectionManager,
		peers:             make(map[string]*peerpkg.Peer),
	}
}

// Close signals the flow context to finish.
func (f *FlowContext) Close() {
}

// Config returns the configuration associated to the flow context.
func (f *FlowContext) Config() *config.Config {
	return f.cfg
}

// Domain returns the domain associated to the flow context.
func (f *FlowContext) Domain() domain.Domain {
	return f.domain
}

// Directory returns the peer directory associated to the flow context.
func (f *FlowContext) Directory() *peerdirectory.Directory {
	return f.directory
}
