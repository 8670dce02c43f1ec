package flowcontext

import (
	"sync"
	"testing"
)

func TestSyncFlagSerializesBatchApplication(t *testing.T) {
	context := New(nil, nil, nil, nil, nil)

	const workers = 8
	var waitGroup sync.WaitGroup
	waitGroup.Add(workers)

	var inCriticalSection int
	var observedOverlap bool
	var observationMutex sync.Mutex

	for i := 0; i < workers; i++ {
		go func() {
			defer waitGroup.Done()
			context.LockSync()
			defer context.UnlockSync()

			observationMutex.Lock()
			inCriticalSection++
			if inCriticalSection > 1 {
				observedOverlap = true
			}
			observationMutex.Unlock()

			if !context.IsSyncing() {
				t.Error("expected IsSyncing to be true while the flag is held")
			}

			observationMutex.Lock()
			inCriticalSection--
			observationMutex.Unlock()
		}()
	}
	waitGroup.Wait()

	if observedOverlap {
		t.Error("two batch applications overlapped despite the sync flag")
	}
	if context.IsSyncing() {
		t.Error("expected IsSyncing to be false after all holders released")
	}
}
