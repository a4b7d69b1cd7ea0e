package page

import (
	"encoding/binary"
	"io"
	"os"
	"sync"

	"github.com/golang/snappy"
	"go.uber.org/zap"

	"tupledb/internal/encoding"
)

// WALOp enumerates logged page mutations.
type WALOp uint8

const (
	WALInsert WALOp = iota
	WALUpdate
	WALDelete
	WALCommit
	WALAbort
)

// WALRecord is one redo entry. Payload is the after-image for inserts and
// updates and empty otherwise.
type WALRecord struct {
	LSN     uint64
	TxnID   uint64
	Op      WALOp
	Page    ID
	Slot    uint16
	Payload []byte
}

// WAL is an append-only redo log. Each record is framed as a uvarint length
// followed by a snappy-compressed body; replay stops at the first torn
// frame.
type WAL struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	nextLSN uint64
	logger  *zap.Logger
}

// OpenWAL opens or creates the log file.
func OpenWAL(path string, logger *zap.Logger) (*WAL, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	return &WAL{file: f, path: path, nextLSN: 1, logger: logger}, nil
}

// Append writes one record and syncs it. The assigned LSN is returned.
func (w *WAL) Append(rec WALRecord) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rec.LSN = w.nextLSN
	w.nextLSN++

	e := encoding.NewEncoder()
	e.Uint64(rec.LSN)
	e.Uint64(rec.TxnID)
	e.Uint64(uint64(rec.Op))
	e.Uint64(uint64(rec.Page))
	e.Uint64(uint64(rec.Slot))
	e.Bytes2(rec.Payload)
	body := snappy.Encode(nil, e.Bytes())

	frame := binary.AppendUvarint(nil, uint64(len(body)))
	frame = append(frame, body...)
	if _, err := w.file.Write(frame); err != nil {
		return 0, err
	}
	if err := w.file.Sync(); err != nil {
		return 0, err
	}
	return rec.LSN, nil
}

// Replay applies every committed record's redo to the manager. Records of
// transactions without a commit mark are skipped.
func (w *WAL) Replay(m *Manager) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	raw, err := io.ReadAll(w.file)
	if err != nil {
		return err
	}
	records, err := decodeFrames(raw)
	if err != nil {
		return err
	}
	committed := make(map[uint64]bool)
	for _, rec := range records {
		if rec.Op == WALCommit {
			committed[rec.TxnID] = true
		}
	}
	applied := 0
	for _, rec := range records {
		if !committed[rec.TxnID] {
			continue
		}
		switch rec.Op {
		case WALInsert:
			p := m.getOrCreate(rec.Page)
			// holes left by skipped uncommitted inserts stay tombstoned
			for p.SlotCount() < int(rec.Slot) {
				p.Insert(nil)
			}
			if p.SlotCount() == int(rec.Slot) {
				p.Insert(rec.Payload)
			} else {
				p.Update(rec.Slot, rec.Payload)
			}
			applied++
		case WALUpdate:
			p := m.getOrCreate(rec.Page)
			p.Update(rec.Slot, rec.Payload)
			applied++
		case WALDelete:
			p := m.getOrCreate(rec.Page)
			p.Delete(rec.Slot)
			applied++
		}
		if rec.LSN >= w.nextLSN {
			w.nextLSN = rec.LSN + 1
		}
	}
	if applied > 0 {
		w.logger.Info("wal replay applied records", zap.Int("records", applied))
	}
	return nil
}

func decodeFrames(raw []byte) ([]WALRecord, error) {
	var out []WALRecord
	for len(raw) > 0 {
		size, n := binary.Uvarint(raw)
		if n <= 0 || uint64(len(raw)-n) < size {
			// torn tail; everything before it is intact
			break
		}
		body, err := snappy.Decode(nil, raw[n:n+int(size)])
		if err != nil {
			break
		}
		raw = raw[n+int(size):]
		d := encoding.NewDecoder(body)
		var rec WALRecord
		if rec.LSN, err = d.Uint64(); err != nil {
			return out, err
		}
		if rec.TxnID, err = d.Uint64(); err != nil {
			return out, err
		}
		op, err := d.Uint64()
		if err != nil {
			return out, err
		}
		rec.Op = WALOp(op)
		pg, err := d.Uint64()
		if err != nil {
			return out, err
		}
		rec.Page = ID(pg)
		slot, err := d.Uint64()
		if err != nil {
			return out, err
		}
		rec.Slot = uint16(slot)
		if rec.Payload, err = d.Bytes2(); err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Truncate discards the log after a successful page flush.
func (w *WAL) Truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.file.Truncate(0); err != nil {
		return err
	}
	_, err := w.file.Seek(0, io.SeekStart)
	return err
}

// Close releases the file handle.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
