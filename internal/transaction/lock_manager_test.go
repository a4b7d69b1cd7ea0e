package transaction

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tupledb/internal/page"
	"tupledb/internal/types"
)

func rp(p uint64, s uint16) page.RowPosition {
	return page.RowPosition{Page: page.ID(p), Slot: s}
}

func TestSharedLocksCoexist(t *testing.T) {
	lm := NewLockManager()
	require.NoError(t, lm.Acquire(1, rp(0, 0), SharedLock))
	require.NoError(t, lm.Acquire(2, rp(0, 0), SharedLock))

	mode, held := lm.Holds(1, rp(0, 0))
	require.True(t, held)
	require.Equal(t, SharedLock, mode)
}

func TestExclusiveExcludes(t *testing.T) {
	lm := NewLockManager()
	require.NoError(t, lm.Acquire(1, rp(0, 0), ExclusiveLock))

	err := lm.Acquire(2, rp(0, 0), SharedLock)
	require.True(t, types.ErrConflict.Is(err))
	err = lm.Acquire(2, rp(0, 0), ExclusiveLock)
	require.True(t, types.ErrConflict.Is(err))

	// a different row is unaffected
	require.NoError(t, lm.Acquire(2, rp(0, 1), ExclusiveLock))
}

func TestUpgradeOnlyForSoleHolder(t *testing.T) {
	lm := NewLockManager()
	require.NoError(t, lm.Acquire(1, rp(0, 0), SharedLock))
	require.NoError(t, lm.Acquire(1, rp(0, 0), ExclusiveLock))
	mode, held := lm.Holds(1, rp(0, 0))
	require.True(t, held)
	require.Equal(t, ExclusiveLock, mode)

	require.NoError(t, lm.Acquire(2, rp(1, 0), SharedLock))
	require.NoError(t, lm.Acquire(3, rp(1, 0), SharedLock))
	err := lm.Acquire(2, rp(1, 0), ExclusiveLock)
	require.True(t, types.ErrConflict.Is(err))
}

func TestReacquireHeldLock(t *testing.T) {
	lm := NewLockManager()
	require.NoError(t, lm.Acquire(1, rp(0, 0), ExclusiveLock))
	// downgrade requests on a held exclusive lock are no-ops
	require.NoError(t, lm.Acquire(1, rp(0, 0), SharedLock))
	require.NoError(t, lm.Acquire(1, rp(0, 0), ExclusiveLock))
}

func TestReleaseAll(t *testing.T) {
	lm := NewLockManager()
	require.NoError(t, lm.Acquire(1, rp(0, 0), ExclusiveLock))
	require.NoError(t, lm.Acquire(1, rp(0, 1), SharedLock))
	lm.ReleaseAll(1)

	require.NoError(t, lm.Acquire(2, rp(0, 0), ExclusiveLock))
	require.NoError(t, lm.Acquire(2, rp(0, 1), ExclusiveLock))
}

func TestDeadlockDetection(t *testing.T) {
	g := NewWaitForGraph()
	g.AddEdge(1, 2)
	g.AddEdge(2, 3)
	found, _ := g.DetectCycle()
	require.False(t, found)

	g.AddEdge(3, 1)
	found, cycle := g.DetectCycle()
	require.True(t, found)
	require.NotEmpty(t, cycle)

	g.RemoveTransaction(3)
	found, _ = g.DetectCycle()
	require.False(t, found)
}

func TestTransactionLifecycle(t *testing.T) {
	tm := NewManager(NewLockManager(), nil)
	txn1 := tm.Begin()
	txn2 := tm.Begin()
	require.Greater(t, txn2.ID(), txn1.ID())

	require.NoError(t, txn1.AcquireWrite(rp(0, 0)))
	err := txn2.AcquireRead(rp(0, 0))
	require.True(t, types.ErrConflict.Is(err))

	require.NoError(t, txn1.PreCommit())
	txn1.Commit()
	require.Equal(t, StatusCommitted, txn1.Status())

	// released locks are free again
	require.NoError(t, txn2.AcquireRead(rp(0, 0)))
	require.NoError(t, txn2.Abort())
	require.Equal(t, StatusAborted, txn2.Status())
}
