// Package database ties storage, transactions, and the catalog together
// and provides the transaction context every plan and operator runs under.
package database

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"tupledb/internal/config"
	"tupledb/internal/encoding"
	"tupledb/internal/index"
	"tupledb/internal/page"
	"tupledb/internal/table"
	"tupledb/internal/transaction"
	"tupledb/internal/types"
)

// Database owns the page store, the transaction manager, and the catalog:
// the name→table, name→index, and name→statistics mappings.
type Database struct {
	pm     *page.Manager
	tm     *transaction.Manager
	logger *zap.Logger

	mu          sync.RWMutex
	tables      map[string]*table.Table
	stats       map[string]*table.TableStatistics
	catalogPath string
}

// Open creates or opens a database according to the configuration.
func Open(cfg *config.Config, logger *zap.Logger) (*Database, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var dataPath, walPath, catalogPath string
	if cfg.Storage.DataDirectory != "" {
		if err := os.MkdirAll(cfg.Storage.DataDirectory, 0o755); err != nil {
			return nil, err
		}
		dataPath = filepath.Join(cfg.Storage.DataDirectory, "pages.db")
		if cfg.Storage.WALEnabled {
			walPath = filepath.Join(cfg.Storage.DataDirectory, "wal.log")
		}
		catalogPath = filepath.Join(cfg.Storage.DataDirectory, "catalog.db")
	}
	pm, err := page.NewManager(page.ManagerOptions{
		Path:     dataPath,
		WALPath:  walPath,
		PageSize: cfg.Storage.PageSize,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	db := &Database{
		pm:          pm,
		tm:          transaction.NewManager(transaction.NewLockManager(), pm.WAL()),
		logger:      logger,
		tables:      make(map[string]*table.Table),
		stats:       make(map[string]*table.TableStatistics),
		catalogPath: catalogPath,
	}
	if catalogPath != "" {
		if err := db.loadCatalog(); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// OpenInMemory opens a database with no files behind it, for tests and
// embedding.
func OpenInMemory(logger *zap.Logger) (*Database, error) {
	cfg := config.Default()
	cfg.Storage.DataDirectory = ""
	return Open(cfg, logger)
}

// PageManager exposes the page store.
func (db *Database) PageManager() *page.Manager { return db.pm }

// BeginContext starts a transaction and wraps it with the handles planning
// and execution read through.
func (db *Database) BeginContext() *TransactionContext {
	return &TransactionContext{
		Txn: db.tm.Begin(),
		DB:  db,
		PM:  db.pm,
	}
}

// CreateTable registers a new empty table for the schema.
func (db *Database) CreateTable(ctx *TransactionContext, sc *types.Schema) (*table.Table, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, exists := db.tables[sc.Name]; exists {
		return nil, types.ErrInvalidQuery.New("table " + sc.Name + " already exists")
	}
	t := table.NewTable(sc, db.pm)
	db.tables[sc.Name] = t
	db.stats[sc.Name] = table.NewTableStatistics(sc)
	db.logger.Info("created table", zap.String("table", sc.Name))
	// Primary-key columns get their index up front.
	for i, col := range sc.Columns {
		if col.Constraint.Type == types.ConstraintPrimary {
			idxSchema := index.Schema{
				Name:   sc.Name + "_pkey",
				Key:    []int{i},
				Unique: true,
			}
			if _, err := t.AttachIndex(ctx.Txn, idxSchema); err != nil {
				return nil, err
			}
			break
		}
	}
	return t, nil
}

// CreateIndex attaches an index to an existing table and backfills it.
func (db *Database) CreateIndex(ctx *TransactionContext, tableName string, sc index.Schema) (*index.Index, error) {
	t, err := db.GetTable(tableName)
	if err != nil {
		return nil, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	idx, err := t.AttachIndex(ctx.Txn, sc)
	if err != nil {
		return nil, err
	}
	db.logger.Info("created index",
		zap.String("table", tableName), zap.String("index", sc.Name))
	return idx, nil
}

// GetTable resolves a table by name.
func (db *Database) GetTable(name string) (*table.Table, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	t, ok := db.tables[name]
	if !ok {
		return nil, types.ErrNameResolution.New("table " + name)
	}
	return t, nil
}

// GetStatistics returns the statistics snapshot for a table.
func (db *Database) GetStatistics(name string) (*table.TableStatistics, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	ts, ok := db.stats[name]
	if !ok {
		return nil, types.ErrNameResolution.New("table " + name)
	}
	return ts, nil
}

// RefreshStatistics rebuilds a table's statistics with a full scan.
func (db *Database) RefreshStatistics(ctx *TransactionContext, name string) error {
	t, err := db.GetTable(name)
	if err != nil {
		return err
	}
	ts := table.NewTableStatistics(t.Schema())
	if err := ts.Update(ctx.Txn, t); err != nil {
		return err
	}
	db.mu.Lock()
	db.stats[name] = ts
	db.mu.Unlock()
	db.logger.Debug("refreshed statistics",
		zap.String("table", name), zap.Int("rows", ts.RowCount))
	return nil
}

// SetStatistics installs a statistics snapshot directly; planner tests use
// this to shape costs without loading rows.
func (db *Database) SetStatistics(name string, ts *table.TableStatistics) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.stats[name] = ts
}

// Close persists the catalog and the pages.
func (db *Database) Close() error {
	if db.catalogPath != "" {
		if err := db.saveCatalog(); err != nil {
			return err
		}
	}
	return db.pm.Close()
}

// TableNames lists the catalog's tables, sorted.
func (db *Database) TableNames() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]string, 0, len(db.tables))
	for name := range db.tables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (db *Database) saveCatalog() error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	e := encoding.NewEncoder()
	names := make([]string, 0, len(db.tables))
	for name := range db.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	e.Uint64(uint64(len(names)))
	for _, name := range names {
		t := db.tables[name]
		encodeSchema(e, t.Schema())
		ids := t.PageIDs()
		e.Uint64(uint64(len(ids)))
		for _, id := range ids {
			e.Uint64(uint64(id))
		}
		idxs := t.Indexes()
		e.Uint64(uint64(len(idxs)))
		for _, idx := range idxs {
			encodeIndexSchema(e, idx.Sc)
		}
		db.stats[name].Encode(e)
	}
	tmp := db.catalogPath + ".tmp"
	if err := os.WriteFile(tmp, e.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, db.catalogPath)
}

func (db *Database) loadCatalog() error {
	raw, err := os.ReadFile(db.catalogPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	d := encoding.NewDecoder(raw)
	n, err := d.Uint64()
	if err != nil {
		return err
	}
	txn := db.tm.Begin()
	defer txn.Commit()
	for i := uint64(0); i < n; i++ {
		sc, err := decodeSchema(d)
		if err != nil {
			return err
		}
		pageCount, err := d.Uint64()
		if err != nil {
			return err
		}
		ids := make([]page.ID, 0, pageCount)
		for j := uint64(0); j < pageCount; j++ {
			id, err := d.Uint64()
			if err != nil {
				return err
			}
			ids = append(ids, page.ID(id))
		}
		t := table.RestoreTable(sc, db.pm, ids)
		idxCount, err := d.Uint64()
		if err != nil {
			return err
		}
		for j := uint64(0); j < idxCount; j++ {
			isc, err := decodeIndexSchema(d)
			if err != nil {
				return err
			}
			if _, err := t.AttachIndex(txn, isc); err != nil {
				return err
			}
		}
		ts, err := table.DecodeStatistics(d)
		if err != nil {
			return err
		}
		db.tables[sc.Name] = t
		db.stats[sc.Name] = ts
	}
	if err := txn.PreCommit(); err != nil {
		return err
	}
	db.logger.Info("loaded catalog", zap.Uint64("tables", n))
	return nil
}

func encodeSchema(e *encoding.Encoder, sc *types.Schema) {
	e.String(sc.Name)
	e.Uint64(uint64(sc.ColumnCount()))
	for _, c := range sc.Columns {
		e.String(c.Name.Qualifier)
		e.String(c.Name.Name)
		e.Uint64(uint64(c.Type))
		e.Uint64(uint64(c.Constraint.Type))
		e.Value(c.Constraint.Value)
	}
}

func decodeSchema(d *encoding.Decoder) (*types.Schema, error) {
	name, err := d.String()
	if err != nil {
		return nil, err
	}
	n, err := d.Uint64()
	if err != nil {
		return nil, err
	}
	cols := make([]types.Column, 0, n)
	for i := uint64(0); i < n; i++ {
		var c types.Column
		if c.Name.Qualifier, err = d.String(); err != nil {
			return nil, err
		}
		if c.Name.Name, err = d.String(); err != nil {
			return nil, err
		}
		t, err := d.Uint64()
		if err != nil {
			return nil, err
		}
		c.Type = types.ValueType(t)
		ct, err := d.Uint64()
		if err != nil {
			return nil, err
		}
		c.Constraint.Type = types.ConstraintType(ct)
		if c.Constraint.Value, err = d.Value(); err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return &types.Schema{Name: name, Columns: cols}, nil
}

func encodeIndexSchema(e *encoding.Encoder, sc index.Schema) {
	e.String(sc.Name)
	e.Uint64(uint64(len(sc.Key)))
	for _, k := range sc.Key {
		e.Uint64(uint64(k))
	}
	e.Uint64(uint64(len(sc.Include)))
	for _, k := range sc.Include {
		e.Uint64(uint64(k))
	}
	if sc.Unique {
		e.Uint64(1)
	} else {
		e.Uint64(0)
	}
}

func decodeIndexSchema(d *encoding.Decoder) (index.Schema, error) {
	var sc index.Schema
	var err error
	if sc.Name, err = d.String(); err != nil {
		return sc, err
	}
	n, err := d.Uint64()
	if err != nil {
		return sc, err
	}
	for i := uint64(0); i < n; i++ {
		k, err := d.Uint64()
		if err != nil {
			return sc, err
		}
		sc.Key = append(sc.Key, int(k))
	}
	if n, err = d.Uint64(); err != nil {
		return sc, err
	}
	for i := uint64(0); i < n; i++ {
		k, err := d.Uint64()
		if err != nil {
			return sc, err
		}
		sc.Include = append(sc.Include, int(k))
	}
	u, err := d.Uint64()
	if err != nil {
		return sc, err
	}
	sc.Unique = u == 1
	return sc, nil
}
