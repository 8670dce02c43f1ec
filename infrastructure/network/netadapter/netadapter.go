package netadapter

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/stratanet/stratad/app/appmessage"
	routerpkg "github.com/stratanet/stratad/infrastructure/network/netadapter/router"
	"github.com/stratanet/stratad/infrastructure/network/netadapter/server"
	"github.com/stratanet/stratad/infrastructure/network/netadapter/server/wsserver"
)

// RouterInitializer is a function that initializes a new
// router to be used with a new connection
type RouterInitializer func(*routerpkg.Router, *NetConnection)

// NetAdapter is an abstraction layer over networking. It expects a
// RouterInitializer that weaves together the various routes (messages and
// message handlers) without exposing anything related to networking
// internals.
type NetAdapter struct {
	server            server.Server
	routerInitializer RouterInitializer
	stop              uint32

	connections     map[*NetConnection]struct{}
	connectionsLock sync.RWMutex
}

// NewNetAdapter creates a new NetAdapter listening on the given address.
func NewNetAdapter(listenAddress string) *NetAdapter {
	adapter := &NetAdapter{
		server:      wsserver.NewServer(listenAddress),
		connections: make(map[*NetConnection]struct{}),
	}
	adapter.server.SetOnConnectedHandler(adapter.onConnectedHandler)
	return adapter
}

// SetRouterInitializer sets the routerInitializer function
func (na *NetAdapter) SetRouterInitializer(routerInitializer RouterInitializer) {
	na.routerInitializer = routerInitializer
}

// Start begins the operation of the NetAdapter
func (na *NetAdapter) Start() error {
	if na.routerInitializer == nil {
		return errors.New("routerInitializer was not set")
	}
	return na.server.Start()
}

// Stop safely closes the NetAdapter
func (na *NetAdapter) Stop() error {
	if atomic.AddUint32(&na.stop, 1) != 1 {
		return errors.New("net adapter stopped more than once")
	}
	err := na.server.Stop()

	for _, connection := range na.Connections() {
		connection.Disconnect()
	}
	return err
}

// Connect dials the given address and registers the resulting connection.
// onConnected, if non-nil, runs with the new connection before any flows are
// attached to it, so the caller can index the connection before the first
// message arrives.
func (na *NetAdapter) Connect(address string, onConnected func(*NetConnection)) (*NetConnection, error) {
	connection, err := na.server.Connect(address)
	if err != nil {
		return nil, err
	}
	return na.registerConnection(connection, onConnected), nil
}

func (na *NetAdapter) onConnectedHandler(connection server.Connection) {
	na.registerConnection(connection, nil)
}

func (na *NetAdapter) registerConnection(connection server.Connection, onConnected func(*NetConnection)) *NetConnection {
	netConnection := newNetConnection(connection)

	na.connectionsLock.Lock()
	na.connections[netConnection] = struct{}{}
	na.connectionsLock.Unlock()

	netConnection.AddOnDisconnectedHandler(func() {
		na.connectionsLock.Lock()
		delete(na.connections, netConnection)
		na.connectionsLock.Unlock()
	})

	if onConnected != nil {
		onConnected(netConnection)
	}
	netConnection.start(na.routerInitializer)
	return netConnection
}

// Connections returns the currently registered connections.
func (na *NetAdapter) Connections() []*NetConnection {
	na.connectionsLock.RLock()
	defer na.connectionsLock.RUnlock()

	connections := make([]*NetConnection, 0, len(na.connections))
	for connection := range na.connections {
		connections = append(connections, connection)
	}
	return connections
}

// Broadcast enqueues the given message on every given connection. Closed
// routes are skipped: a peer disconnecting mid-broadcast is not an error.
func (na *NetAdapter) Broadcast(netConnections []*NetConnection, message appmessage.Message) error {
	for _, connection := range netConnections {
		err := connection.EnqueueOutgoingMessage(message)
		if err != nil {
			if errors.Is(err, routerpkg.ErrRouteClosed) {
				continue
			}
			return err
		}
	}
	return nil
}
