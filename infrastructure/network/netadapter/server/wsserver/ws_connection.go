package wsserver

import (
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	routerpkg "github.com/stratanet/stratad/infrastructure/network/netadapter/router"
	"github.com/stratanet/stratad/infrastructure/network/netadapter/server"
)

type wsConnection struct {
	conn       *websocket.Conn
	address    string
	isOutbound bool
	router     *routerpkg.Router

	stopChan                chan struct{}
	onDisconnectedHandler   server.OnDisconnectedHandler
	onInvalidMessageHandler server.OnInvalidMessageHandler

	isConnected    uint32
	isDisconnected uint32
}

func newConnection(conn *websocket.Conn, address string, isOutbound bool) *wsConnection {
	return &wsConnection{
		conn:        conn,
		address:     address,
		isOutbound:  isOutbound,
		stopChan:    make(chan struct{}),
		isConnected: 1,
	}
}

// Start begins the send/receive loops against the given router.
//
// This is part of the server.Connection interface.
func (c *wsConnection) Start(router *routerpkg.Router) {
	if c.onDisconnectedHandler == nil {
		panic(errors.New("onDisconnectedHandler is nil"))
	}

	c.router = router

	spawn("wsConnection.receiveLoop", func() {
		err := c.receiveLoop()
		if err != nil && c.IsConnected() {
			log.Debugf("receive loop for %s ended: %s", c.address, err)
		}
		c.Disconnect()
	})

	spawn("wsConnection.sendLoop", func() {
		err := c.sendLoop()
		if err != nil && c.IsConnected() {
			log.Debugf("send loop for %s ended: %s", c.address, err)
		}
		c.Disconnect()
	})
}

func (c *wsConnection) String() string {
	return c.address
}

// IsConnected returns whether the connection is still live.
//
// This is part of the server.Connection interface.
func (c *wsConnection) IsConnected() bool {
	return atomic.LoadUint32(&c.isConnected) != 0
}

// IsOutbound returns whether this node initiated the connection.
//
// This is part of the server.Connection interface.
func (c *wsConnection) IsOutbound() bool {
	return c.isOutbound
}

// SetOnDisconnectedHandler sets the handler invoked on disconnect.
//
// This is part of the server.Connection interface.
func (c *wsConnection) SetOnDisconnectedHandler(onDisconnectedHandler server.OnDisconnectedHandler) {
	c.onDisconnectedHandler = onDisconnectedHandler
}

// SetOnInvalidMessageHandler sets the handler invoked on undecodable or
// unroutable messages.
//
// This is part of the server.Connection interface.
func (c *wsConnection) SetOnInvalidMessageHandler(onInvalidMessageHandler server.OnInvalidMessageHandler) {
	c.onInvalidMessageHandler = onInvalidMessageHandler
}

// Address returns the remote host:port of the connection.
//
// This is part of the server.Connection interface.
func (c *wsConnection) Address() string {
	return c.address
}

// Disconnect disconnects the connection. Calling this function a second
// time doesn't do anything.
//
// This is part of the server.Connection interface.
func (c *wsConnection) Disconnect() {
	if !atomic.CompareAndSwapUint32(&c.isDisconnected, 0, 1) {
		return
	}
	atomic.StoreUint32(&c.isConnected, 0)

	close(c.stopChan)
	_ = c.conn.Close()
	log.Debugf("Disconnected from %s", c.address)

	if c.onDisconnectedHandler != nil {
		c.onDisconnectedHandler()
	}
}

func (c *wsConnection) receiveLoop() error {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return errors.WithStack(err)
		}

		message, err := decodeMessage(raw)
		if err != nil {
			// Malformed payloads are dropped; the session continues.
			c.handleInvalidMessage(err)
			continue
		}
		err = c.router.EnqueueIncomingMessage(message)
		if err != nil {
			if errors.Is(err, routerpkg.ErrRouteClosed) {
				return err
			}
			c.handleInvalidMessage(err)
		}
	}
}

func (c *wsConnection) sendLoop() error {
	outgoingRoute := c.router.OutgoingRoute()
	for {
		message, err := outgoingRoute.Dequeue()
		if err != nil {
			return err
		}

		raw, err := encodeMessage(message)
		if err != nil {
			return err
		}
		err = c.conn.WriteMessage(websocket.TextMessage, raw)
		if err != nil {
			return errors.WithStack(err)
		}
	}
}

func (c *wsConnection) handleInvalidMessage(err error) {
	log.Debugf("Invalid message from %s: %s", c.address, err)
	if c.onInvalidMessageHandler != nil {
		c.onInvalidMessageHandler(err)
	}
}
