package page

import (
	"os"
	"sync"

	"go.uber.org/zap"

	"tupledb/internal/encoding"
)

// Manager owns every page of a database. Pages live in memory and are
// written out as a whole on Flush; the WAL covers the window in between.
type Manager struct {
	mu       sync.RWMutex
	pages    map[ID]*Page
	nextPage ID
	pageSize int
	path     string
	wal      *WAL
	logger   *zap.Logger
}

// ManagerOptions configure a page manager.
type ManagerOptions struct {
	// Path of the data file. Empty keeps everything in memory.
	Path string
	// WALPath of the log file. Empty disables logging.
	WALPath string
	// PageSize caps the payload bytes per page before a new page is
	// allocated for inserts.
	PageSize int
	Logger   *zap.Logger
}

// NewManager opens (or creates) a page store, replaying the WAL over the
// last flushed state.
func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = 4096
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	m := &Manager{
		pages:    make(map[ID]*Page),
		pageSize: opts.PageSize,
		path:     opts.Path,
		logger:   opts.Logger,
	}
	if opts.Path != "" {
		if err := m.load(); err != nil {
			return nil, err
		}
	}
	if opts.WALPath != "" {
		wal, err := OpenWAL(opts.WALPath, opts.Logger)
		if err != nil {
			return nil, err
		}
		if err := wal.Replay(m); err != nil {
			return nil, err
		}
		m.wal = wal
	}
	return m, nil
}

// WAL returns the attached log, or nil when logging is disabled.
func (m *Manager) WAL() *WAL { return m.wal }

// PageSize returns the configured payload cap per page.
func (m *Manager) PageSize() int { return m.pageSize }

// Allocate creates a fresh page.
func (m *Manager) Allocate() *Page {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allocateLocked()
}

func (m *Manager) allocateLocked() *Page {
	p := NewPage(m.nextPage)
	m.pages[p.ID] = p
	m.nextPage++
	return p
}

// Get returns the page with the given id, or nil.
func (m *Manager) Get(id ID) *Page {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pages[id]
}

// getOrCreate is used by WAL replay, which may reference pages allocated
// after the last flush.
func (m *Manager) getOrCreate(id ID) *Page {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.pages[id]; ok {
		return p
	}
	p := NewPage(id)
	m.pages[id] = p
	if id >= m.nextPage {
		m.nextPage = id + 1
	}
	return p
}

// InsertWithRoom returns a page from the candidate list with room for a
// payload of the given size, allocating a new one when none fits.
func (m *Manager) InsertWithRoom(candidates []ID, size int) *Page {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range candidates {
		if p, ok := m.pages[id]; ok && p.UsedBytes()+size <= m.pageSize {
			return p
		}
	}
	return m.allocateLocked()
}

// Flush writes all pages to the data file and truncates the WAL. A manager
// without a path only truncates the log.
func (m *Manager) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.path != "" {
		e := encoding.NewEncoder()
		e.Uint64(uint64(m.nextPage))
		e.Uint64(uint64(len(m.pages)))
		for _, p := range m.pages {
			p.serialize(e)
		}
		tmp := m.path + ".tmp"
		if err := os.WriteFile(tmp, e.Bytes(), 0o644); err != nil {
			return err
		}
		if err := os.Rename(tmp, m.path); err != nil {
			return err
		}
		for _, p := range m.pages {
			p.dirty = false
		}
		m.logger.Debug("flushed pages", zap.Int("pages", len(m.pages)))
	}
	if m.wal != nil {
		return m.wal.Truncate()
	}
	return nil
}

// Close flushes and releases the WAL file handle.
func (m *Manager) Close() error {
	if err := m.Flush(); err != nil {
		return err
	}
	if m.wal != nil {
		return m.wal.Close()
	}
	return nil
}

func (m *Manager) load() error {
	raw, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	d := encoding.NewDecoder(raw)
	next, err := d.Uint64()
	if err != nil {
		return err
	}
	count, err := d.Uint64()
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; i++ {
		p, err := deserializePage(d)
		if err != nil {
			return err
		}
		m.pages[p.ID] = p
	}
	m.nextPage = ID(next)
	m.logger.Debug("loaded pages", zap.Uint64("pages", count))
	return nil
}
