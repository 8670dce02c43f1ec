package common

import (
	"time"

	"github.com/pkg/errors"

	peerpkg "github.com/stratanet/stratad/app/protocol/peer"
	routerpkg "github.com/stratanet/stratad/infrastructure/network/netadapter/router"
)

// DefaultTimeout is the default duration to wait for enqueuing/dequeuing
// to/from routes.
const DefaultTimeout = 120 * time.Second

// ErrPeerWithSameKeyExists signifies that a ready peer with the same
// identifying key already exists.
var ErrPeerWithSameKeyExists = errors.New("ready peer with the same key already exists")

type flowExecuteFunc func(peer *peerpkg.Peer)

// Flow is a a data structure that is used in order to associate a p2p flow to some route in a router.
type Flow struct {
	Name        string
	ExecuteFunc flowExecuteFunc
}

// FlowInitializeFunc is a function that is used in order to initialize a flow
type FlowInitializeFunc func(route *routerpkg.Route, peer *peerpkg.Peer) error
