package game

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"tabletalk/backend/internal/models"
	"tabletalk/backend/internal/store"
	"tabletalk/backend/pkg/config"
	apperrors "tabletalk/backend/pkg/errors"
	"tabletalk/backend/pkg/logger"

	"github.com/google/uuid"
)

// Manager owns the set of live tables. Table lookup and creation go through
// it; everything inside a table goes through the table itself.
type Manager struct {
	mu     sync.RWMutex
	tables map[string]*Table

	store *store.Store
	cfg   *config.Config
	log   *logger.Logger
}

// Errors surfaced to the HTTP layer.
var (
	ErrTableNotFound  = apperrors.NewNotFoundError("TABLE_NOT_FOUND", "Table not found")
	ErrTableNameTaken = apperrors.NewConflictError("TABLE_NAME_TAKEN", "A table with that name already exists")
	ErrInvalidName    = apperrors.NewBadRequestError("TABLE_NAME_INVALID", "Name must be between 3 and 50 characters.")
	ErrInvalidImport  = apperrors.NewBadRequestError("IMPORT_INVALID", "Invalid file format")
)

// NewManager builds a manager over the given store.
func NewManager(st *store.Store, cfg *config.Config, log *logger.Logger) *Manager {
	return &Manager{
		tables: make(map[string]*Table),
		store:  st,
		cfg:    cfg,
		log:    log,
	}
}

// LoadAll restores every persisted table into memory.
func (m *Manager) LoadAll() error {
	snaps, err := m.store.LoadAll()
	if err != nil {
		return err
	}
	m.mu.Lock()
	for _, snap := range snaps {
		m.tables[snap.ID] = RestoreTable(snap, m.store, m.log)
	}
	count := len(m.tables)
	m.mu.Unlock()
	m.log.Info("tables loaded", "count", count)
	return nil
}

// Get returns a live table by id.
func (m *Manager) Get(tableID string) (*Table, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[tableID]
	return t, ok
}

// Create makes a new table with the configured defaults. Names are trimmed,
// length-checked and must be unique ignoring case.
func (m *Manager) Create(name string) (*Table, error) {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < m.cfg.Tables.MinNameLength || len(trimmed) > m.cfg.Tables.MaxNameLength {
		return nil, ErrInvalidName
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tables {
		if strings.EqualFold(t.Name(), trimmed) {
			return nil, ErrTableNameTaken
		}
	}

	t := NewTable(
		uuid.NewString(),
		trimmed,
		m.cfg.Tables.DefaultTheme,
		m.cfg.Tables.DefaultLanguage,
		m.cfg.Tables.DefaultLanguages,
		m.store,
		m.log,
	)
	m.tables[t.ID()] = t
	t.persistSync()
	m.log.Info("table created", "name", trimmed, "table_id", t.ID())
	return t, nil
}

// Delete removes a table from memory and from the store.
func (m *Manager) Delete(tableID string) error {
	m.mu.Lock()
	t, ok := m.tables[tableID]
	if ok {
		delete(m.tables, tableID)
	}
	m.mu.Unlock()
	if !ok {
		return ErrTableNotFound
	}

	if err := m.store.Delete(tableID); err != nil {
		return fmt.Errorf("delete table %s: %w", tableID, err)
	}
	m.log.Info("table deleted", "name", t.Name(), "table_id", tableID)
	return nil
}

// List returns lobby entries for every table, most recently active first.
func (m *Manager) List() []models.TableInfo {
	m.mu.RLock()
	tables := make([]*Table, 0, len(m.tables))
	for _, t := range m.tables {
		tables = append(tables, t)
	}
	m.mu.RUnlock()

	infos := make([]models.TableInfo, 0, len(tables))
	for _, t := range tables {
		infos = append(infos, t.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].LastActivity.After(infos[j].LastActivity)
	})
	return infos
}

// Import creates a new table from an exported snapshot file. The snapshot's
// name seeds the new table's name; a fallback is used when absent.
func (m *Manager) Import(fileContent []byte) (*Table, error) {
	var snap models.TableSnapshot
	if err := json.Unmarshal(fileContent, &snap); err != nil {
		return nil, ErrInvalidImport
	}
	if snap.SaveVersion == 0 || snap.Characters == nil {
		return nil, ErrInvalidImport
	}

	name := strings.TrimSpace(snap.Name)
	if name == "" {
		name = "Imported Table"
	}
	t, err := m.Create(name)
	if err != nil {
		return nil, err
	}
	t.ApplyImport(snap)
	m.log.Info("table imported", "name", t.Name(), "table_id", t.ID())
	return t, nil
}

// Export returns the current snapshot of a table for download.
func (m *Manager) Export(tableID string) (models.TableSnapshot, error) {
	t, ok := m.Get(tableID)
	if !ok {
		return models.TableSnapshot{}, ErrTableNotFound
	}
	return t.Snapshot(), nil
}
