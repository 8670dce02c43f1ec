package protocol

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/stratanet/stratad/app/appmessage"
	"github.com/stratanet/stratad/app/protocol/common"
	"github.com/stratanet/stratad/app/protocol/flows/blocksync"
	"github.com/stratanet/stratad/app/protocol/flows/handshake"
	"github.com/stratanet/stratad/app/protocol/flows/peerexchange"
	"github.com/stratanet/stratad/app/protocol/protocolerrors"
	"github.com/stratanet/stratad/infrastructure/network/netadapter"

	peerpkg "github.com/stratanet/stratad/app/protocol/peer"
	routerpkg "github.com/stratanet/stratad/infrastructure/network/netadapter/router"
)

// sessionRoutes holds the per-connection routes. They are all registered
// before the connection starts reading, so that no message arrives without a
// route; flows attach to them after the handshake.
type sessionRoutes struct {
	hello              *routerpkg.Route
	peers              *routerpkg.Route
	requestPeers       *routerpkg.Route
	requestLatestBlock *routerpkg.Route
	requestBlocks      *routerpkg.Route
	blocks             *routerpkg.Route
}

func registerSessionRoutes(router *routerpkg.Router) (*sessionRoutes, error) {
	routes := &sessionRoutes{}
	for _, registration := range []struct {
		name     string
		commands []appmessage.MessageCommand
		route    **routerpkg.Route
	}{
		{"hello", []appmessage.MessageCommand{appmessage.CmdHello}, &routes.hello},
		{"peers", []appmessage.MessageCommand{appmessage.CmdPeers}, &routes.peers},
		{"requestPeers", []appmessage.MessageCommand{appmessage.CmdRequestPeers}, &routes.requestPeers},
		{"requestLatestBlock", []appmessage.MessageCommand{appmessage.CmdRequestLatestBlock}, &routes.requestLatestBlock},
		{"requestBlocks", []appmessage.MessageCommand{appmessage.CmdRequestBlocks}, &routes.requestBlocks},
		{"blocks", []appmessage.MessageCommand{appmessage.CmdLatestBlock, appmessage.CmdBlocks}, &routes.blocks},
	} {
		route, err := router.AddIncomingRoute(registration.name, registration.commands)
		if err != nil {
			return nil, err
		}
		*registration.route = route
	}
	return routes, nil
}

func (m *Manager) routerInitializer(router *routerpkg.Router, netConnection *netadapter.NetConnection) {
	routes, err := registerSessionRoutes(router)
	if err != nil {
		panic(err)
	}

	m.routersWaitGroup.Add(1)
	spawn("routerInitializer-handleEverything", func() {
		defer m.routersWaitGroup.Done()
		m.handleEverything(router, netConnection, routes)
	})
}

func (m *Manager) handleEverything(router *routerpkg.Router, netConnection *netadapter.NetConnection,
	routes *sessionRoutes) {

	defer netConnection.Disconnect()

	peer, err := handshake.HandleHandshake(m.context, netConnection,
		routes.hello, routes.peers, router.OutgoingRoute())
	if err != nil {
		log.Infof("Handshake with %s failed: %s", netConnection, err)
		m.handleProtocolError(netConnection, err)
		return
	}
	defer m.context.RemoveFromPeers(peer)
	log.Infof("Session with %s established", peer)

	isStopping := uint32(0)
	errChan := make(chan error)
	var flowsWaitGroup sync.WaitGroup

	outgoingRoute := router.OutgoingRoute()
	flows := []*common.Flow{
		m.registerFlow("SendPeers", routes.requestPeers, &isStopping, errChan,
			func(route *routerpkg.Route, peer *peerpkg.Peer) error {
				return peerexchange.SendPeers(m.context, route, outgoingRoute)
			}),
		m.registerFlow("ReceivePeers", routes.peers, &isStopping, errChan,
			func(route *routerpkg.Route, peer *peerpkg.Peer) error {
				return peerexchange.ReceivePeers(m.context, route)
			}),
		m.registerFlow("HandleRequestLatestBlock", routes.requestLatestBlock, &isStopping, errChan,
			func(route *routerpkg.Route, peer *peerpkg.Peer) error {
				return blocksync.HandleRequestLatestBlock(m.context, route, outgoingRoute)
			}),
		m.registerFlow("HandleRequestBlocks", routes.requestBlocks, &isStopping, errChan,
			func(route *routerpkg.Route, peer *peerpkg.Peer) error {
				return blocksync.HandleRequestBlocks(m.context, route, outgoingRoute)
			}),
		m.registerFlow("HandleIncomingBlocks", routes.blocks, &isStopping, errChan,
			func(route *routerpkg.Route, peer *peerpkg.Peer) error {
				return blocksync.HandleIncomingBlocks(m.context, route, outgoingRoute, peer)
			}),
	}

	err = m.runFlows(flows, peer, errChan, &flowsWaitGroup)
	if err != nil {
		log.Infof("Session with %s ended: %s", peer, err)
		m.handleProtocolError(netConnection, err)
	}
	netConnection.Disconnect()
	flowsWaitGroup.Wait()
}

func (m *Manager) registerFlow(name string, route *routerpkg.Route, isStopping *uint32,
	errChan chan error, initializeFunc common.FlowInitializeFunc) *common.Flow {

	return &common.Flow{
		Name: name,
		ExecuteFunc: func(peer *peerpkg.Peer) {
			err := initializeFunc(route, peer)
			if err != nil {
				m.context.HandleError(err, name, isStopping, errChan)
				return
			}
		},
	}
}

// handleProtocolError applies the error's verdict on the connection: a
// structural violation on an outbound stream lands the peer on the ignore
// list so the next selection round avoids it.
func (m *Manager) handleProtocolError(netConnection *netadapter.NetConnection, err error) {
	protocolErr := protocolerrors.ProtocolError{}
	if errors.As(err, &protocolErr) && protocolErr.ShouldIgnore && netConnection.IsOutbound() {
		m.context.ConnectionManager().IgnoreOutgoing(netConnection)
	}
}
