package peerexchange_test

import (
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/stratanet/stratad/app/appmessage"
	"github.com/stratanet/stratad/app/protocol/flows/peerexchange"
	"github.com/stratanet/stratad/app/protocol/protocolerrors"
	"github.com/stratanet/stratad/infrastructure/network/netadapter/router"
	"github.com/stratanet/stratad/infrastructure/network/peerdirectory"
	"github.com/stratanet/stratad/util/identity"
)

type fakePeerExchangeContext struct {
	directory *peerdirectory.Directory
}

func (f *fakePeerExchangeContext) Directory() *peerdirectory.Directory {
	return f.directory
}

func testRecord(name, role string) *appmessage.PeerRecord {
	return &appmessage.PeerRecord{
		Host: "203.0.113.20",
		Port: 8613,
		Role: role,
		Identity: identity.Identity{
			Username:          name,
			UsernameSignature: name + "Signature",
			PublicKey:         "02" + name,
		},
	}
}

func TestReceivePeersMergesIntoDirectory(t *testing.T) {
	context := &fakePeerExchangeContext{directory: peerdirectory.New("ownSignature", nil)}
	incomingRoute := router.NewRoute("incoming")
	errChan := make(chan error, 1)
	go func() {
		errChan <- peerexchange.ReceivePeers(context, incomingRoute)
	}()

	records := []*appmessage.PeerRecord{
		testRecord("seedA", "seed"),
		testRecord("gatewayA", "seed_gateway"),
		{Host: "203.0.113.21", Port: 8613, Role: "no_such_role"}, // skipped, not fatal
		testRecord("seedA", "seed"),                              // duplicate, idempotent
	}
	err := incomingRoute.Enqueue(appmessage.NewMsgPeers(records))
	if err != nil {
		t.Fatalf("Enqueue: %s", err)
	}

	deadline := time.Now().Add(time.Second)
	for context.directory.Len() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if context.directory.Len() != 2 {
		t.Errorf("expected 2 directory entries, got %d", context.directory.Len())
	}

	incomingRoute.Close()
	if err := <-errChan; !errors.Is(err, router.ErrRouteClosed) {
		t.Errorf("flow exited with unexpected error: %+v", err)
	}
}

func TestReceivePeersRejectsOversizedList(t *testing.T) {
	context := &fakePeerExchangeContext{directory: peerdirectory.New("ownSignature", nil)}
	incomingRoute := router.NewRoute("incoming")
	errChan := make(chan error, 1)
	go func() {
		errChan <- peerexchange.ReceivePeers(context, incomingRoute)
	}()
	defer incomingRoute.Close()

	err := incomingRoute.Enqueue(appmessage.NewMsgPeers(
		make([]*appmessage.PeerRecord, appmessage.MaxPeersPerMsg+1)))
	if err != nil {
		t.Fatalf("Enqueue: %s", err)
	}

	select {
	case err := <-errChan:
		pErr := protocolerrors.ProtocolError{}
		if !errors.As(err, &pErr) {
			t.Fatalf("expected a protocol error, got %+v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the oversized list to be rejected")
	}
}

func TestSendPeersServesDirectory(t *testing.T) {
	directory := peerdirectory.New("ownSignature", nil)
	for _, record := range []*appmessage.PeerRecord{
		testRecord("seedA", "seed"),
		testRecord("providerA", "service_provider"),
	} {
		peer, err := peerdirectory.FromRecord(record)
		if err != nil {
			t.Fatalf("FromRecord: %s", err)
		}
		_, err = directory.Upsert(peer)
		if err != nil {
			t.Fatalf("Upsert: %s", err)
		}
	}

	context := &fakePeerExchangeContext{directory: directory}
	incomingRoute := router.NewRoute("incoming")
	outgoingRoute := router.NewRoute("outgoing")
	errChan := make(chan error, 1)
	go func() {
		errChan <- peerexchange.SendPeers(context, incomingRoute, outgoingRoute)
	}()

	err := incomingRoute.Enqueue(appmessage.NewMsgRequestPeers())
	if err != nil {
		t.Fatalf("Enqueue: %s", err)
	}

	message, err := outgoingRoute.DequeueWithTimeout(time.Second)
	if err != nil {
		t.Fatalf("DequeueWithTimeout: %s", err)
	}
	peers := message.(*appmessage.MsgPeers).Peers
	if len(peers) != 2 {
		t.Fatalf("expected 2 peer records, got %d", len(peers))
	}
	if peers[0].RID == "" {
		t.Error("expected served records to carry pairwise RIDs")
	}

	incomingRoute.Close()
	if err := <-errChan; !errors.Is(err, router.ErrRouteClosed) {
		t.Errorf("flow exited with unexpected error: %+v", err)
	}
}
