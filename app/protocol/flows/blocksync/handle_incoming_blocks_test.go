package blocksync_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/stratanet/stratad/app/appmessage"
	"github.com/stratanet/stratad/app/protocol/flows/blocksync"
	"github.com/stratanet/stratad/domain"
	"github.com/stratanet/stratad/domain/chain"
	"github.com/stratanet/stratad/infrastructure/config"
	"github.com/stratanet/stratad/infrastructure/network/netadapter"
	"github.com/stratanet/stratad/infrastructure/network/netadapter/router"

	peerpkg "github.com/stratanet/stratad/app/protocol/peer"
)

type fakeSyncContext struct {
	cfg    *config.Config
	domain domain.Domain

	syncMutex sync.Mutex
	syncing   uint32

	gossipMutex sync.Mutex
	gossiped    []*domain.Block
}

func (f *fakeSyncContext) Config() *config.Config { return f.cfg }
func (f *fakeSyncContext) Domain() domain.Domain  { return f.domain }

func (f *fakeSyncContext) LockSync() {
	f.syncMutex.Lock()
	atomic.StoreUint32(&f.syncing, 1)
}

func (f *fakeSyncContext) UnlockSync() {
	atomic.StoreUint32(&f.syncing, 0)
	f.syncMutex.Unlock()
}

func (f *fakeSyncContext) IsSyncing() bool {
	return atomic.LoadUint32(&f.syncing) != 0
}

func (f *fakeSyncContext) OnBlockInserted(block *domain.Block, source *netadapter.NetConnection) error {
	f.gossipMutex.Lock()
	defer f.gossipMutex.Unlock()
	f.gossiped = append(f.gossiped, block)
	return nil
}

func (f *fakeSyncContext) gossipedBlocks() []*domain.Block {
	f.gossipMutex.Lock()
	defer f.gossipMutex.Unlock()
	return append([]*domain.Block(nil), f.gossiped...)
}

// buildBlocks returns count blocks extending parent as a valid hash chain.
func buildBlocks(parent *domain.Block, count int) []*domain.Block {
	blocks := make([]*domain.Block, 0, count)
	prev := parent
	for i := 0; i < count; i++ {
		block := &domain.Block{
			Index:    prev.Index + 1,
			Hash:     fmt.Sprintf("hash-%d", prev.Index+1),
			PrevHash: prev.Hash,
			Time:     prev.Time + 60,
		}
		blocks = append(blocks, block)
		prev = block
	}
	return blocks
}

func setupSyncTest(t *testing.T) (*fakeSyncContext, *chain.Chain, *router.Route, *router.Route, chan error) {
	chainStore, err := chain.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %s", err)
	}
	t.Cleanup(func() { chainStore.Close() })

	context := &fakeSyncContext{
		cfg:    config.DefaultConfig(),
		domain: domain.New(chainStore, chainStore),
	}

	incomingRoute := router.NewRoute("incoming")
	outgoingRoute := router.NewRoute("outgoing")
	errChan := make(chan error, 1)
	go func() {
		errChan <- blocksync.HandleIncomingBlocks(context, incomingRoute, outgoingRoute, peerpkg.New(nil))
	}()
	t.Cleanup(func() {
		incomingRoute.Close()
		select {
		case err := <-errChan:
			if !errors.Is(err, router.ErrRouteClosed) {
				t.Errorf("flow exited with unexpected error: %+v", err)
			}
		case <-time.After(time.Second):
			t.Error("flow did not exit after the route was closed")
		}
	})
	return context, chainStore, incomingRoute, outgoingRoute, errChan
}

func expectNoOutgoingMessage(t *testing.T, outgoingRoute *router.Route) {
	t.Helper()
	message, err := outgoingRoute.DequeueWithTimeout(100 * time.Millisecond)
	if !errors.Is(err, router.ErrTimeout) {
		t.Fatalf("expected no outgoing message, got %v (err: %v)", message, err)
	}
}

func expectHead(t *testing.T, chainStore *chain.Chain, index uint64) {
	t.Helper()
	head, err := chainStore.Head()
	if err != nil {
		t.Fatalf("Head: %s", err)
	}
	if head.Index != index {
		t.Fatalf("expected head %d, got %d", index, head.Index)
	}
}

// awaitGossip waits for the fake context to record exactly want gossiped
// blocks, since the flow runs in its own goroutine.
func awaitGossip(t *testing.T, context *fakeSyncContext, want int) []*domain.Block {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		gossiped := context.gossipedBlocks()
		if len(gossiped) >= want {
			return gossiped
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d gossiped blocks, got %d", want, len(context.gossipedBlocks()))
	return nil
}

func TestDirectImportOnNextBlockAnnouncement(t *testing.T) {
	context, chainStore, incomingRoute, outgoingRoute, _ := setupSyncTest(t)
	next := buildBlocks(chain.Genesis(), 1)[0]

	err := incomingRoute.Enqueue(appmessage.NewMsgLatestBlock(next))
	if err != nil {
		t.Fatalf("Enqueue: %s", err)
	}

	gossiped := awaitGossip(t, context, 1)
	if gossiped[0].Hash != next.Hash {
		t.Errorf("expected block %s to be gossiped, got %s", next.Hash, gossiped[0].Hash)
	}
	expectHead(t, chainStore, 1)
	// A direct import must not open a batch request.
	expectNoOutgoingMessage(t, outgoingRoute)
}

func TestGapAnnouncementRequestsBatch(t *testing.T) {
	context, chainStore, incomingRoute, outgoingRoute, _ := setupSyncTest(t)
	far := buildBlocks(chain.Genesis(), 5)[4]

	err := incomingRoute.Enqueue(appmessage.NewMsgLatestBlock(far))
	if err != nil {
		t.Fatalf("Enqueue: %s", err)
	}

	message, err := outgoingRoute.DequeueWithTimeout(time.Second)
	if err != nil {
		t.Fatalf("DequeueWithTimeout: %s", err)
	}
	request, ok := message.(*appmessage.MsgRequestBlocks)
	if !ok {
		t.Fatalf("expected a get_blocks request, got %s", message.Command())
	}
	if request.StartIndex != 1 {
		t.Errorf("expected the batch to start at 1, got %d", request.StartIndex)
	}
	if request.EndIndex != 1+context.cfg.MaxBlocksPerMsg {
		t.Errorf("expected the batch to end at %d, got %d", 1+context.cfg.MaxBlocksPerMsg, request.EndIndex)
	}
	expectHead(t, chainStore, 0)
}

func TestStaleAnnouncementIsIgnored(t *testing.T) {
	_, chainStore, incomingRoute, outgoingRoute, _ := setupSyncTest(t)

	err := incomingRoute.Enqueue(appmessage.NewMsgLatestBlock(chain.Genesis()))
	if err != nil {
		t.Fatalf("Enqueue: %s", err)
	}

	expectNoOutgoingMessage(t, outgoingRoute)
	expectHead(t, chainStore, 0)
}

func TestAnnouncementSkippedWhileSyncing(t *testing.T) {
	context, chainStore, incomingRoute, outgoingRoute, _ := setupSyncTest(t)
	atomic.StoreUint32(&context.syncing, 1)
	defer atomic.StoreUint32(&context.syncing, 0)

	next := buildBlocks(chain.Genesis(), 1)[0]
	err := incomingRoute.Enqueue(appmessage.NewMsgLatestBlock(next))
	if err != nil {
		t.Fatalf("Enqueue: %s", err)
	}

	expectNoOutgoingMessage(t, outgoingRoute)
	expectHead(t, chainStore, 0)
	if len(context.gossipedBlocks()) != 0 {
		t.Error("expected no gossip while a sync batch is in flight")
	}
}

func TestBatchAbortsOnFirstFailureAndContinuesPipeline(t *testing.T) {
	context, chainStore, incomingRoute, outgoingRoute, _ := setupSyncTest(t)

	blocks := buildBlocks(chain.Genesis(), 3)
	blocks[2].PrevHash = "unrelated" // fails linkage, blocks 1 and 2 land

	err := incomingRoute.Enqueue(appmessage.NewMsgBlocks(blocks))
	if err != nil {
		t.Fatalf("Enqueue: %s", err)
	}

	message, err := outgoingRoute.DequeueWithTimeout(time.Second)
	if err != nil {
		t.Fatalf("DequeueWithTimeout: %s", err)
	}
	request, ok := message.(*appmessage.MsgRequestBlocks)
	if !ok {
		t.Fatalf("expected a get_blocks request, got %s", message.Command())
	}
	if request.StartIndex != 3 {
		t.Errorf("expected the next batch to start at 3, got %d", request.StartIndex)
	}

	expectHead(t, chainStore, 2)
	gossiped := awaitGossip(t, context, 1)
	last := gossiped[len(gossiped)-1]
	if last.Index != 2 {
		t.Errorf("expected the last inserted block (index 2) to be gossiped, got %d", last.Index)
	}
	if context.IsSyncing() {
		t.Error("expected the sync flag to be released after the batch")
	}
}

func TestEmptyAndMisalignedBatchesAreDiscarded(t *testing.T) {
	context, chainStore, incomingRoute, outgoingRoute, _ := setupSyncTest(t)

	err := incomingRoute.Enqueue(appmessage.NewMsgBlocks(nil))
	if err != nil {
		t.Fatalf("Enqueue: %s", err)
	}
	expectNoOutgoingMessage(t, outgoingRoute)

	// A batch that does not start at head+1 is discarded whole.
	blocks := buildBlocks(chain.Genesis(), 3)[1:]
	err = incomingRoute.Enqueue(appmessage.NewMsgBlocks(blocks))
	if err != nil {
		t.Fatalf("Enqueue: %s", err)
	}
	expectNoOutgoingMessage(t, outgoingRoute)

	expectHead(t, chainStore, 0)
	if len(context.gossipedBlocks()) != 0 {
		t.Error("expected no gossip for discarded batches")
	}
	if context.IsSyncing() {
		t.Error("expected the sync flag to be released")
	}
}

func TestFullBatchImportAdvancesHeadAndRequestsNext(t *testing.T) {
	context, chainStore, incomingRoute, outgoingRoute, _ := setupSyncTest(t)

	blocks := buildBlocks(chain.Genesis(), 4)
	err := incomingRoute.Enqueue(appmessage.NewMsgBlocks(blocks))
	if err != nil {
		t.Fatalf("Enqueue: %s", err)
	}

	message, err := outgoingRoute.DequeueWithTimeout(time.Second)
	if err != nil {
		t.Fatalf("DequeueWithTimeout: %s", err)
	}
	request := message.(*appmessage.MsgRequestBlocks)
	if request.StartIndex != 5 {
		t.Errorf("expected the next batch to start at 5, got %d", request.StartIndex)
	}

	expectHead(t, chainStore, 4)
	gossiped := awaitGossip(t, context, 1)
	if gossiped[len(gossiped)-1].Index != 4 {
		t.Errorf("expected the last inserted block (index 4) to be gossiped, got %d",
			gossiped[len(gossiped)-1].Index)
	}
}
