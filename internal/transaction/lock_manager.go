// Package transaction provides transactions, the two-phase row lock
// manager, and the transaction manager that issues IDs and drives commit.
package transaction

import (
	"fmt"
	"sync"

	"tupledb/internal/page"
	"tupledb/internal/types"
)

// LockMode is the strength of a row lock.
type LockMode int

const (
	// SharedLock is held for reads; any number of transactions may share it.
	SharedLock LockMode = iota
	// ExclusiveLock is held for writes; it excludes every other holder.
	ExclusiveLock
)

func (m LockMode) String() string {
	if m == ExclusiveLock {
		return "X"
	}
	return "S"
}

// lockEntry tracks the holders of one row's lock.
type lockEntry struct {
	holders map[uint64]LockMode
}

// LockManager grants per-row shared/exclusive locks. Incompatible requests
// fail immediately with ErrConflict rather than queueing; the wait-for graph
// is kept so that a blocking caller can still detect cycles.
type LockManager struct {
	mu       sync.Mutex
	rowLocks map[page.RowPosition]*lockEntry
	waits    *WaitForGraph
}

// NewLockManager returns an empty lock manager.
func NewLockManager() *LockManager {
	return &LockManager{
		rowLocks: make(map[page.RowPosition]*lockEntry),
		waits:    NewWaitForGraph(),
	}
}

// Acquire takes a row lock for txnID. A shared request succeeds alongside
// other shared holders. An exclusive request succeeds when the row is free,
// when txnID already holds it exclusively, or as an upgrade when txnID is
// the sole shared holder.
func (lm *LockManager) Acquire(txnID uint64, rp page.RowPosition, mode LockMode) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	entry, ok := lm.rowLocks[rp]
	if !ok {
		lm.rowLocks[rp] = &lockEntry{holders: map[uint64]LockMode{txnID: mode}}
		return nil
	}
	if held, mine := entry.holders[txnID]; mine {
		if held >= mode {
			return nil
		}
		// upgrade S -> X only as the sole holder
		if len(entry.holders) == 1 {
			entry.holders[txnID] = ExclusiveLock
			return nil
		}
		lm.recordWaits(txnID, entry)
		return types.ErrConflict.New(fmt.Sprintf("lock upgrade on row %s blocked by %d other holders", rp, len(entry.holders)-1))
	}
	if mode == SharedLock {
		for _, held := range entry.holders {
			if held == ExclusiveLock {
				lm.recordWaits(txnID, entry)
				return types.ErrConflict.New(fmt.Sprintf("row %s is exclusively locked", rp))
			}
		}
		entry.holders[txnID] = SharedLock
		return nil
	}
	lm.recordWaits(txnID, entry)
	return types.ErrConflict.New(fmt.Sprintf("row %s is locked by another transaction", rp))
}

func (lm *LockManager) recordWaits(txnID uint64, entry *lockEntry) {
	for holder := range entry.holders {
		if holder != txnID {
			lm.waits.AddEdge(txnID, holder)
		}
	}
}

// Release drops txnID's lock on one row.
func (lm *LockManager) Release(txnID uint64, rp page.RowPosition) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if entry, ok := lm.rowLocks[rp]; ok {
		delete(entry.holders, txnID)
		if len(entry.holders) == 0 {
			delete(lm.rowLocks, rp)
		}
	}
}

// ReleaseAll drops every lock held by txnID; called at commit and abort.
func (lm *LockManager) ReleaseAll(txnID uint64) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	for rp, entry := range lm.rowLocks {
		delete(entry.holders, txnID)
		if len(entry.holders) == 0 {
			delete(lm.rowLocks, rp)
		}
	}
	lm.waits.RemoveTransaction(txnID)
}

// Holds reports the mode txnID holds on a row, if any.
func (lm *LockManager) Holds(txnID uint64, rp page.RowPosition) (LockMode, bool) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if entry, ok := lm.rowLocks[rp]; ok {
		mode, mine := entry.holders[txnID]
		return mode, mine
	}
	return SharedLock, false
}

// DetectDeadlock reports whether the wait-for graph contains a cycle and the
// transactions on it.
func (lm *LockManager) DetectDeadlock() (bool, []uint64) {
	return lm.waits.DetectCycle()
}

// WaitForGraph tracks which transactions wait on which; a cycle is a
// deadlock.
type WaitForGraph struct {
	mu    sync.RWMutex
	edges map[uint64][]uint64
}

// NewWaitForGraph returns an empty graph.
func NewWaitForGraph() *WaitForGraph {
	return &WaitForGraph{edges: make(map[uint64][]uint64)}
}

// AddEdge records that from waits on to.
func (g *WaitForGraph) AddEdge(from, to uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, d := range g.edges[from] {
		if d == to {
			return
		}
	}
	g.edges[from] = append(g.edges[from], to)
}

// RemoveTransaction drops a transaction as source and destination.
func (g *WaitForGraph) RemoveTransaction(txnID uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.edges, txnID)
	for from, dests := range g.edges {
		kept := dests[:0]
		for _, d := range dests {
			if d != txnID {
				kept = append(kept, d)
			}
		}
		g.edges[from] = kept
	}
}

// DetectCycle runs a DFS over the graph and returns the first cycle found.
func (g *WaitForGraph) DetectCycle() (bool, []uint64) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	visited := make(map[uint64]bool)
	onStack := make(map[uint64]bool)
	var path []uint64
	var walk func(uint64) bool
	walk = func(id uint64) bool {
		visited[id] = true
		onStack[id] = true
		path = append(path, id)
		for _, next := range g.edges[id] {
			if !visited[next] {
				if walk(next) {
					return true
				}
			} else if onStack[next] {
				path = append(path, next)
				return true
			}
		}
		onStack[id] = false
		path = path[:len(path)-1]
		return false
	}
	for id := range g.edges {
		if !visited[id] {
			if walk(id) {
				return true, path
			}
		}
	}
	return false, nil
}
