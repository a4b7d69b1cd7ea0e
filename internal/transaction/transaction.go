package transaction

import (
	"sync"
	"sync/atomic"

	"tupledb/internal/page"
	"tupledb/internal/types"
)

// Status is a transaction's lifecycle state.
type Status uint8

const (
	StatusRunning Status = iota
	StatusCommitted
	StatusAborted
)

// Transaction carries a transaction's identity, its read and write sets, and
// handles to the lock manager and WAL. Tables acquire locks and emit log
// records through it.
type Transaction struct {
	id     uint64
	status Status

	mu       sync.Mutex
	readSet  map[page.RowPosition]struct{}
	writeSet map[page.RowPosition]struct{}

	locks *LockManager
	wal   *page.WAL
}

// ID returns the transaction identifier.
func (t *Transaction) ID() uint64 { return t.id }

// Status returns the lifecycle state.
func (t *Transaction) Status() Status { return t.status }

// AcquireRead takes a shared lock and records the row in the read set.
func (t *Transaction) AcquireRead(rp page.RowPosition) error {
	if t.status != StatusRunning {
		return types.ErrInternal.New("read on a finished transaction")
	}
	if err := t.locks.Acquire(t.id, rp, SharedLock); err != nil {
		return err
	}
	t.mu.Lock()
	t.readSet[rp] = struct{}{}
	t.mu.Unlock()
	return nil
}

// AcquireWrite takes an exclusive lock (upgrading a shared one when this
// transaction is the sole holder) and records the row in the write set.
func (t *Transaction) AcquireWrite(rp page.RowPosition) error {
	if t.status != StatusRunning {
		return types.ErrInternal.New("write on a finished transaction")
	}
	if err := t.locks.Acquire(t.id, rp, ExclusiveLock); err != nil {
		return err
	}
	t.mu.Lock()
	t.writeSet[rp] = struct{}{}
	t.mu.Unlock()
	return nil
}

// Log appends a redo record for a page mutation made by this transaction.
func (t *Transaction) Log(op page.WALOp, rp page.RowPosition, payload []byte) error {
	if t.wal == nil {
		return nil
	}
	_, err := t.wal.Append(page.WALRecord{
		TxnID:   t.id,
		Op:      op,
		Page:    rp.Page,
		Slot:    rp.Slot,
		Payload: payload,
	})
	return err
}

// PreCommit writes the commit record. Locks stay held until Commit so that
// two-phase locking is preserved.
func (t *Transaction) PreCommit() error {
	if t.status != StatusRunning {
		return types.ErrInternal.New("precommit on a finished transaction")
	}
	if t.wal != nil {
		if _, err := t.wal.Append(page.WALRecord{TxnID: t.id, Op: page.WALCommit}); err != nil {
			return err
		}
	}
	t.status = StatusCommitted
	return nil
}

// Commit releases every lock. Call after PreCommit.
func (t *Transaction) Commit() {
	t.locks.ReleaseAll(t.id)
}

// Abort marks the transaction aborted and releases its locks. The redo-only
// WAL never replays records of an uncommitted transaction, so no undo pass
// is needed.
func (t *Transaction) Abort() error {
	if t.status == StatusRunning {
		if t.wal != nil {
			if _, err := t.wal.Append(page.WALRecord{TxnID: t.id, Op: page.WALAbort}); err != nil {
				return err
			}
		}
		t.status = StatusAborted
	}
	t.locks.ReleaseAll(t.id)
	return nil
}

// Manager issues transactions with monotonically increasing IDs over one
// shared lock manager and WAL.
type Manager struct {
	nextID uint64
	locks  *LockManager
	wal    *page.WAL
}

// NewManager returns a transaction manager. wal may be nil.
func NewManager(locks *LockManager, wal *page.WAL) *Manager {
	if locks == nil {
		locks = NewLockManager()
	}
	return &Manager{locks: locks, wal: wal}
}

// Begin starts a transaction.
func (m *Manager) Begin() *Transaction {
	return &Transaction{
		id:       atomic.AddUint64(&m.nextID, 1),
		status:   StatusRunning,
		readSet:  make(map[page.RowPosition]struct{}),
		writeSet: make(map[page.RowPosition]struct{}),
		locks:    m.locks,
		wal:      m.wal,
	}
}

// Locks exposes the shared lock manager.
func (m *Manager) Locks() *LockManager { return m.locks }
