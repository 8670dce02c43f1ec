package wsserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/stratanet/stratad/infrastructure/network/netadapter/server"
)

const (
	// wsPath is the endpoint peers dial on each other.
	wsPath = "/p2p"

	dialTimeout     = 30 * time.Second
	shutdownTimeout = 5 * time.Second
)

type wsServer struct {
	listenAddress      string
	httpServer         *http.Server
	listener           net.Listener
	upgrader           websocket.Upgrader
	onConnectedHandler server.OnConnectedHandler
}

// NewServer creates a websocket p2p server listening on the given address.
func NewServer(listenAddress string) server.Server {
	s := &wsServer{
		listenAddress: listenAddress,
		upgrader:      websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
	}
	mux := http.NewServeMux()
	mux.HandleFunc(wsPath, s.handleUpgrade)
	s.httpServer = &http.Server{Handler: mux}
	return s
}

// SetOnConnectedHandler sets the handler invoked for every accepted inbound
// connection.
//
// This is part of the server.Server interface.
func (s *wsServer) SetOnConnectedHandler(onConnectedHandler server.OnConnectedHandler) {
	s.onConnectedHandler = onConnectedHandler
}

// Start starts listening for inbound connections.
//
// This is part of the server.Server interface.
func (s *wsServer) Start() error {
	if s.onConnectedHandler == nil {
		return errors.New("onConnectedHandler was not set")
	}

	listener, err := net.Listen("tcp", s.listenAddress)
	if err != nil {
		return errors.Wrapf(err, "could not listen on %s", s.listenAddress)
	}
	s.listener = listener
	log.Infof("P2P server listening on %s", s.listenAddress)

	spawn("wsServer.Serve", func() {
		err := s.httpServer.Serve(listener)
		if !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("P2P server stopped serving: %s", err)
		}
	})
	return nil
}

// Stop shuts the listener down. Established connections are disconnected
// individually by their owners.
//
// This is part of the server.Server interface.
func (s *wsServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.WithStack(s.httpServer.Shutdown(ctx))
}

// Connect dials the given host:port address and returns the established
// connection.
//
// This is part of the server.Server interface.
func (s *wsServer) Connect(address string) (server.Connection, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	url := fmt.Sprintf("ws://%s%s", address, wsPath)

	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "could not connect to %s", address)
	}

	log.Debugf("Connected to %s", address)
	return newConnection(conn, address, true), nil
}

func (s *wsServer) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debugf("Could not upgrade connection from %s: %s", r.RemoteAddr, err)
		return
	}

	log.Debugf("Accepted connection from %s", r.RemoteAddr)
	s.onConnectedHandler(newConnection(conn, r.RemoteAddr, false))
}
