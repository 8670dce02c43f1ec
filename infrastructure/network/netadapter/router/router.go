package router

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/stratanet/stratad/app/appmessage"
)

const outgoingRouteMaxMessages = appmessage.MaxPeersPerMsg + DefaultMaxMessages

// Router routes messages by command to their respective
// input channels
type Router struct {
	incomingRoutes     map[appmessage.MessageCommand]*Route
	incomingRoutesLock sync.RWMutex

	outgoingRoute *Route
}

// NewRouter creates a new empty router
func NewRouter() *Router {
	router := Router{
		incomingRoutes: make(map[appmessage.MessageCommand]*Route),
		outgoingRoute:  newRouteWithCapacity("outgoing", outgoingRouteMaxMessages),
	}
	return &router
}

// AddIncomingRoute registers the messages of commands `messageCommands` to
// be routed to the returned route
func (r *Router) AddIncomingRoute(name string, messageCommands []appmessage.MessageCommand) (*Route, error) {
	route := NewRoute(name)
	err := r.initializeIncomingRoute(route, messageCommands)
	if err != nil {
		return nil, err
	}
	return route, nil
}

// AddIncomingRouteWithCapacity registers the messages of commands
// `messageCommands` to be routed to the returned route with a capacity of
// `capacity`
func (r *Router) AddIncomingRouteWithCapacity(name string, capacity int,
	messageCommands []appmessage.MessageCommand) (*Route, error) {

	route := newRouteWithCapacity(name, capacity)
	err := r.initializeIncomingRoute(route, messageCommands)
	if err != nil {
		return nil, err
	}
	return route, nil
}

func (r *Router) initializeIncomingRoute(route *Route, messageCommands []appmessage.MessageCommand) error {
	for _, command := range messageCommands {
		if r.doesIncomingRouteExist(command) {
			return errors.Errorf("a route for '%s' already exists", command)
		}
		r.setIncomingRoute(command, route)
	}
	return nil
}

// RemoveRoute unregisters the messages of commands `messageCommands` from
// the router
func (r *Router) RemoveRoute(messageCommands []appmessage.MessageCommand) error {
	for _, command := range messageCommands {
		if !r.doesIncomingRouteExist(command) {
			return errors.Errorf("a route for '%s' does not exist", command)
		}
		r.deleteIncomingRoute(command)
	}
	return nil
}

// EnqueueIncomingMessage enqueues the given message to the
// appropriate route
func (r *Router) EnqueueIncomingMessage(message appmessage.Message) error {
	route, ok := r.incomingRoute(message.Command())
	if !ok {
		return errors.Errorf("a route for '%s' does not exist", message.Command())
	}
	return route.Enqueue(message)
}

// OutgoingRoute returns the outgoing route
func (r *Router) OutgoingRoute() *Route {
	return r.outgoingRoute
}

// Close shuts down the router by closing all registered
// incoming routes and the outgoing route
func (r *Router) Close() {
	r.incomingRoutesLock.Lock()
	defer r.incomingRoutesLock.Unlock()

	incomingRoutes := make(map[*Route]struct{})
	for _, route := range r.incomingRoutes {
		incomingRoutes[route] = struct{}{}
	}
	for route := range incomingRoutes {
		route.Close()
	}
	r.outgoingRoute.Close()
}

func (r *Router) incomingRoute(command appmessage.MessageCommand) (*Route, bool) {
	r.incomingRoutesLock.RLock()
	defer r.incomingRoutesLock.RUnlock()

	route, ok := r.incomingRoutes[command]
	return route, ok
}

func (r *Router) doesIncomingRouteExist(command appmessage.MessageCommand) bool {
	r.incomingRoutesLock.RLock()
	defer r.incomingRoutesLock.RUnlock()

	_, ok := r.incomingRoutes[command]
	return ok
}

func (r *Router) setIncomingRoute(command appmessage.MessageCommand, route *Route) {
	r.incomingRoutesLock.Lock()
	defer r.incomingRoutesLock.Unlock()

	r.incomingRoutes[command] = route
}

func (r *Router) deleteIncomingRoute(command appmessage.MessageCommand) {
	r.incomingRoutesLock.Lock()
	defer r.incomingRoutesLock.Unlock()

	delete(r.incomingRoutes, command)
}
