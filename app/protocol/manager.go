package protocol

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/stratanet/stratad/app/protocol/common"
	"github.com/stratanet/stratad/app/protocol/flowcontext"
	"github.com/stratanet/stratad/domain"
	"github.com/stratanet/stratad/infrastructure/config"
	"github.com/stratanet/stratad/infrastructure/network/connmanager"
	"github.com/stratanet/stratad/infrastructure/network/netadapter"
	"github.com/stratanet/stratad/infrastructure/network/peerdirectory"

	peerpkg "github.com/stratanet/stratad/app/protocol/peer"
)

// Manager manages the p2p protocol
type Manager struct {
	context          *flowcontext.FlowContext
	routersWaitGroup sync.WaitGroup
	isClosed         uint32
}

// NewManager creates a new instance of the p2p protocol manager
func NewManager(cfg *config.Config, domain domain.Domain, directory *peerdirectory.Directory,
	netAdapter *netadapter.NetAdapter, connectionManager *connmanager.ConnectionManager) (*Manager, error) {

	manager := Manager{
		context: flowcontext.New(cfg, domain, directory, netAdapter, connectionManager),
	}

	netAdapter.SetRouterInitializer(manager.routerInitializer)
	return &manager, nil
}

// Close closes the protocol manager and waits until all p2p flows
// finish.
func (m *Manager) Close() {
	if !atomic.CompareAndSwapUint32(&m.isClosed, 0, 1) {
		panic(errors.New("The protocol manager was already closed"))
	}

	m.context.Close()
	m.routersWaitGroup.Wait()
}

// Peers returns the currently active peers
func (m *Manager) Peers() []*peerpkg.Peer {
	return m.context.Peers()
}

// IsSyncing returns whether a sync batch is currently being applied
func (m *Manager) IsSyncing() bool {
	return m.context.IsSyncing()
}

// Context returns the manager's flow context
func (m *Manager) Context() *flowcontext.FlowContext {
	return m.context
}

func (m *Manager) runFlows(flows []*common.Flow, peer *peerpkg.Peer, errChan <-chan error,
	flowsWaitGroup *sync.WaitGroup) error {

	flowsWaitGroup.Add(len(flows))
	for _, flow := range flows {
		executeFunc := flow.ExecuteFunc // extract to new variable so that it's not overwritten
		spawn(fmt.Sprintf("flow-%s", flow.Name), func() {
			executeFunc(peer)
			flowsWaitGroup.Done()
		})
	}

	return <-errChan
}
