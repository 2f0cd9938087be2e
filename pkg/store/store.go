// Package store persists paused VM state as save slots: a CBOR
// encoding of vm.Snapshot in a single-table SQLite database, grounded
// on the teacher's instance-persistence layer (busy-timeout pragma,
// create-if-missing table, insert-or-replace upsert).
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"

	"github.com/chazu/dialogvm/pkg/vm"
)

// ErrSlotNotFound indicates the requested save slot doesn't exist.
var ErrSlotNotFound = errors.New("save slot not found")

// Store wraps a SQLite database holding one row per save slot: a
// CBOR-encoded vm.Snapshot keyed by an arbitrary slot name.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures its saves table exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening save database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS saves (
		slot TEXT PRIMARY KEY,
		snapshot BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating saves table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewSlot generates a fresh, unused-by-convention save slot name for
// hosts that don't track their own slot identifiers.
func NewSlot() string {
	return uuid.NewString()
}

// Save CBOR-encodes snap and upserts it under slot, stamped with
// updatedAt (a Unix timestamp the caller supplies, since this package
// never calls time.Now() itself — callers own their own clock).
func (s *Store) Save(slot string, snap vm.Snapshot, updatedAt int64) error {
	data, err := cbor.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO saves (slot, snapshot, updated_at) VALUES (?, ?, ?)",
		slot, data, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving slot %q: %w", slot, err)
	}
	return nil
}

// Load decodes the snapshot stored under slot.
func (s *Store) Load(slot string) (vm.Snapshot, error) {
	var data []byte
	err := s.db.QueryRow("SELECT snapshot FROM saves WHERE slot = ?", slot).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return vm.Snapshot{}, ErrSlotNotFound
		}
		return vm.Snapshot{}, fmt.Errorf("loading slot %q: %w", slot, err)
	}

	var snap vm.Snapshot
	if err := cbor.Unmarshal(data, &snap); err != nil {
		return vm.Snapshot{}, fmt.Errorf("decoding slot %q: %w", slot, err)
	}
	return snap, nil
}

// Delete removes a save slot. Deleting a slot that does not exist is
// not an error.
func (s *Store) Delete(slot string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM saves WHERE slot = ?", slot)
	if err != nil {
		return fmt.Errorf("deleting slot %q: %w", slot, err)
	}
	return nil
}

// ListSlots returns every save slot name, most recently updated first.
func (s *Store) ListSlots() ([]string, error) {
	rows, err := s.db.Query("SELECT slot FROM saves ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("listing slots: %w", err)
	}
	defer rows.Close()

	var slots []string
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, fmt.Errorf("scanning slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}
