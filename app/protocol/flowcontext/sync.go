package flowcontext

import "sync/atomic"

// LockSync acquires the global sync flag, blocking until any in-flight batch
// application finishes. At most one session applies a batch of blocks at any
// time; a session that waited here must re-read the chain head afterwards,
// since the previous holder may have advanced it.
func (f *FlowContext) LockSync() {
	f.syncMutex.Lock()
	atomic.StoreUint32(&f.syncing, 1)
	log.Debugf("Sync flag raised")
}

// UnlockSync releases the global sync flag.
func (f *FlowContext) UnlockSync() {
	atomic.StoreUint32(&f.syncing, 0)
	f.syncMutex.Unlock()
	log.Debugf("Sync flag lowered")
}

// IsSyncing returns whether a sync batch is currently being applied.
func (f *FlowContext) IsSyncing() bool {
	return atomic.LoadUint32(&f.syncing) != 0
}
