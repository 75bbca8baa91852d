package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"tabletalk/backend/internal/models"
	"tabletalk/backend/pkg/logger"

	bbolt "go.etcd.io/bbolt"
)

var bucketTables = []byte("tables")

// Store persists table snapshots in a bbolt database. Writes requested via
// SaveAsync go through one ordered queue per table, so two rapid mutations of
// the same table can never reach disk out of order. A crash can lose the most
// recent enqueued snapshots; that durability gap is accepted.
type Store struct {
	bolt *bbolt.DB
	log  *logger.Logger

	queueDepth int

	mu      sync.Mutex
	queues  map[string]chan models.TableSnapshot
	deleted map[string]bool
	wg      sync.WaitGroup
	closed  bool
}

// Open opens or creates the snapshot database and ensures its bucket exists.
func Open(path string, queueDepth int, log *logger.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create dir for %s: %w", path, err)
	}

	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTables)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create bucket: %w", err)
	}

	if queueDepth <= 0 {
		queueDepth = 64
	}

	return &Store{
		bolt:       db,
		log:        log,
		queueDepth: queueDepth,
		queues:     make(map[string]chan models.TableSnapshot),
		deleted:    make(map[string]bool),
	}, nil
}

// SaveAsync enqueues a snapshot for background persistence. It never blocks
// the caller: when a table's queue is full the snapshot is dropped with a
// warning, since a later snapshot of the same table supersedes it anyway.
func (s *Store) SaveAsync(snap models.TableSnapshot) {
	s.mu.Lock()
	if s.closed || s.deleted[snap.ID] {
		s.mu.Unlock()
		return
	}
	q, ok := s.queues[snap.ID]
	if !ok {
		q = make(chan models.TableSnapshot, s.queueDepth)
		s.queues[snap.ID] = q
		s.wg.Add(1)
		go s.drain(q)
	}
	s.mu.Unlock()

	select {
	case q <- snap:
	default:
		s.log.Warn("persistence queue full, dropping snapshot", "table_id", snap.ID)
	}
}

func (s *Store) drain(q chan models.TableSnapshot) {
	defer s.wg.Done()
	for snap := range q {
		s.mu.Lock()
		gone := s.deleted[snap.ID]
		s.mu.Unlock()
		if gone {
			continue
		}
		if err := s.Save(snap); err != nil {
			s.log.LogError(err, "failed to persist table snapshot", "table_id", snap.ID)
		}
	}
}

// Save writes a snapshot synchronously.
func (s *Store) Save(snap models.TableSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("store: encode table %s: %w", snap.ID, err)
	}
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTables).Put([]byte(snap.ID), data)
	})
}

// Load reads one table snapshot. Returns (zero, false, nil) when absent.
func (s *Store) Load(tableID string) (models.TableSnapshot, bool, error) {
	var snap models.TableSnapshot
	var found bool
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketTables).Get([]byte(tableID))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &snap)
	})
	if err != nil {
		return models.TableSnapshot{}, false, fmt.Errorf("store: load table %s: %w", tableID, err)
	}
	return snap, found, nil
}

// LoadAll reads every stored table snapshot.
func (s *Store) LoadAll() ([]models.TableSnapshot, error) {
	var snaps []models.TableSnapshot
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTables).ForEach(func(k, v []byte) error {
			var snap models.TableSnapshot
			if err := json.Unmarshal(v, &snap); err != nil {
				// Skip corrupt records rather than refusing to start.
				s.log.Warn("skipping unreadable table snapshot", "table_id", string(k), "error", err.Error())
				return nil
			}
			snaps = append(snaps, snap)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("store: load all tables: %w", err)
	}
	return snaps, nil
}

// Delete removes a table's snapshot and shuts down its write queue. Pending
// queued snapshots for that table are discarded.
func (s *Store) Delete(tableID string) error {
	s.mu.Lock()
	if q, ok := s.queues[tableID]; ok {
		delete(s.queues, tableID)
		close(q)
	}
	s.deleted[tableID] = true
	s.mu.Unlock()

	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTables).Delete([]byte(tableID))
	})
}

// Ping verifies the database is still readable.
func (s *Store) Ping() error {
	return s.bolt.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketTables) == nil {
			return fmt.Errorf("store: tables bucket missing")
		}
		return nil
	})
}

// Close flushes all pending writes and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for id, q := range s.queues {
		delete(s.queues, id)
		close(q)
	}
	s.mu.Unlock()

	s.wg.Wait()
	return s.bolt.Close()
}
