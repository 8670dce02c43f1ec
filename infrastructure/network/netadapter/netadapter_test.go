package netadapter

import (
	"testing"

	routerpkg "github.com/stratanet/stratad/infrastructure/network/netadapter/router"
	"github.com/stratanet/stratad/infrastructure/network/netadapter/server"
)

type fakeConnection struct {
	started bool
}

func (c *fakeConnection) String() string                                            { return "fake" }
func (c *fakeConnection) Start(router *routerpkg.Router)                            { c.started = true }
func (c *fakeConnection) Disconnect()                                               {}
func (c *fakeConnection) IsConnected() bool                                         { return true }
func (c *fakeConnection) IsOutbound() bool                                          { return true }
func (c *fakeConnection) SetOnDisconnectedHandler(server.OnDisconnectedHandler)     {}
func (c *fakeConnection) SetOnInvalidMessageHandler(server.OnInvalidMessageHandler) {}
func (c *fakeConnection) Address() string                                           { return "203.0.113.10:8613" }

type fakeServer struct {
	connection server.Connection
}

func (s *fakeServer) Connect(address string) (server.Connection, error) { return s.connection, nil }
func (s *fakeServer) Start() error                                      { return nil }
func (s *fakeServer) Stop() error                                       { return nil }
func (s *fakeServer) SetOnConnectedHandler(server.OnConnectedHandler)   {}

// The dialer's callback must run before any flows are attached: a flow's
// first action may be to look the connection up wherever the callback
// indexes it.
func TestConnectRunsCallbackBeforeFlows(t *testing.T) {
	fake := &fakeConnection{}
	adapter := &NetAdapter{
		server:      &fakeServer{connection: fake},
		connections: make(map[*NetConnection]struct{}),
	}

	var order []string
	adapter.SetRouterInitializer(func(router *routerpkg.Router, connection *NetConnection) {
		order = append(order, "flows")
	})

	connection, err := adapter.Connect("203.0.113.10:8613", func(connection *NetConnection) {
		order = append(order, "callback")
	})
	if err != nil {
		t.Fatalf("Connect failed: %s", err)
	}
	if connection == nil {
		t.Fatal("Connect returned no connection")
	}

	if len(order) != 2 || order[0] != "callback" || order[1] != "flows" {
		t.Fatalf("got order %v, want the callback before the flows", order)
	}
	if !fake.started {
		t.Fatal("the underlying connection was never started")
	}
}
