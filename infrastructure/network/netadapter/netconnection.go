package netadapter

import (
	"fmt"
	"sync"

	"github.com/stratanet/stratad/app/appmessage"
	routerpkg "github.com/stratanet/stratad/infrastructure/network/netadapter/router"
	"github.com/stratanet/stratad/infrastructure/network/netadapter/server"
)

// NetConnection is a wrapper to a server connection for use by services
// other than the NetAdapter. It wraps the connection's router so that
// messages can be enqueued without exposing networking internals.
type NetConnection struct {
	connection server.Connection
	router     *routerpkg.Router

	onDisconnectedHandlers     []server.OnDisconnectedHandler
	onDisconnectedHandlersLock sync.Mutex
	disconnected               bool
}

func newNetConnection(connection server.Connection) *NetConnection {
	return &NetConnection{connection: connection}
}

func (c *NetConnection) start(routerInitializer RouterInitializer) {
	c.router = routerpkg.NewRouter()

	c.connection.SetOnDisconnectedHandler(func() {
		c.router.Close()

		c.onDisconnectedHandlersLock.Lock()
		c.disconnected = true
		handlers := c.onDisconnectedHandlers
		c.onDisconnectedHandlersLock.Unlock()
		for _, onDisconnectedHandler := range handlers {
			onDisconnectedHandler()
		}
	})
	c.connection.SetOnInvalidMessageHandler(func(err error) {
		log.Debugf("Dropping invalid message from %s: %s", c, err)
	})

	routerInitializer(c.router, c)
	c.connection.Start(c.router)
}

func (c *NetConnection) String() string {
	return fmt.Sprintf("<%s>", c.connection)
}

// Address returns the remote host:port of the connection.
func (c *NetConnection) Address() string {
	return c.connection.Address()
}

// IsOutbound returns whether this node initiated the connection.
func (c *NetConnection) IsOutbound() bool {
	return c.connection.IsOutbound()
}

// IsConnected returns whether the connection is still live.
func (c *NetConnection) IsConnected() bool {
	return c.connection.IsConnected()
}

// Disconnect closes the connection.
func (c *NetConnection) Disconnect() {
	c.connection.Disconnect()
}

// AddOnDisconnectedHandler registers a handler invoked after the
// connection's router has been closed on disconnect. Handlers run in
// registration order. A handler registered after the disconnect already
// happened is invoked immediately.
func (c *NetConnection) AddOnDisconnectedHandler(onDisconnectedHandler server.OnDisconnectedHandler) {
	c.onDisconnectedHandlersLock.Lock()
	alreadyDisconnected := c.disconnected
	if !alreadyDisconnected {
		c.onDisconnectedHandlers = append(c.onDisconnectedHandlers, onDisconnectedHandler)
	}
	c.onDisconnectedHandlersLock.Unlock()

	if alreadyDisconnected {
		onDisconnectedHandler()
	}
}

// EnqueueOutgoingMessage enqueues a message for sending on this connection.
func (c *NetConnection) EnqueueOutgoingMessage(message appmessage.Message) error {
	return c.router.OutgoingRoute().Enqueue(message)
}
