// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package checkpoint persists the in-flight export run so the page walk
// survives process termination between listing pages. The store holds a
// single slot: one export is in flight per installation at a time, and
// starting a new export overwrites whatever was there.
package checkpoint

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/capes-export/pkg/types"
)

const dbFile = "checkpoint.db"

// Store manages the single-slot checkpoint SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the checkpoint database under stateDir,
// creating the schema if it does not exist.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	dbPath := filepath.Join(cfg.StateDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS export_checkpoint (
		slot INTEGER PRIMARY KEY CHECK (slot = 1),
		payload TEXT NOT NULL,
		saved_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("executing schema statement: %w", err)
	}
	return nil
}

// payload is the serialized form of an ExportRun. Field names are part of
// the checkpoint contract; a payload that fails to round-trip is treated as
// absent.
type payload struct {
	Format         string        `json:"format"`
	Records        []types.Record `json:"records"`
	VisitedPages   []int         `json:"visitedPages"`
	EstimatedTotal int           `json:"estimatedTotal"`
	StartedAt      string        `json:"startedAt"`
	ListingURL     string        `json:"listingUrl"`
}

// Save overwrites the checkpoint slot with the run's current state.
func (s *Store) Save(run *types.ExportRun) error {
	p := payload{
		Format:         string(run.Format),
		Records:        run.Records,
		VisitedPages:   run.VisitedPages(),
		EstimatedTotal: run.EstimatedTotal,
		StartedAt:      run.StartedAt.UTC().Format(time.RFC3339),
		ListingURL:     run.ListingURL,
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling checkpoint: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO export_checkpoint (slot, payload, saved_at) VALUES (1, ?, ?)
		 ON CONFLICT(slot) DO UPDATE SET payload=excluded.payload, saved_at=excluded.saved_at`,
		string(data), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	return nil
}

// Load returns the persisted run, or (nil, nil) when no checkpoint exists.
// A checkpoint that fails to deserialize or validate is cleared before
// reporting absent, so a poisoned slot cannot stall future resumes.
func (s *Store) Load() (*types.ExportRun, error) {
	var raw string
	err := s.db.QueryRow(`SELECT payload FROM export_checkpoint WHERE slot = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}

	run, err := decode(raw)
	if err != nil {
		if clearErr := s.Clear(); clearErr != nil {
			return nil, fmt.Errorf("clearing corrupt checkpoint: %w", clearErr)
		}
		return nil, nil
	}
	return run, nil
}

// Clear removes the checkpoint slot. Clearing an empty store is a no-op.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM export_checkpoint WHERE slot = 1`); err != nil {
		return fmt.Errorf("clearing checkpoint: %w", err)
	}
	return nil
}

// decode reconstructs an ExportRun from its serialized payload, rejecting
// payloads with an unknown format, unparseable timestamp, or non-positive
// page indices.
func decode(raw string) (*types.ExportRun, error) {
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("parsing checkpoint payload: %w", err)
	}

	format := types.Format(p.Format)
	if !format.Valid() {
		return nil, fmt.Errorf("unknown checkpoint format %q", p.Format)
	}

	startedAt, err := time.Parse(time.RFC3339, p.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing checkpoint timestamp: %w", err)
	}

	run := &types.ExportRun{
		Format:         format,
		Records:        p.Records,
		Visited:        make(map[int]bool, len(p.VisitedPages)),
		EstimatedTotal: p.EstimatedTotal,
		StartedAt:      startedAt,
		ListingURL:     p.ListingURL,
	}
	for _, page := range p.VisitedPages {
		if page < 1 {
			return nil, fmt.Errorf("invalid visited page index %d", page)
		}
		run.Visited[page] = true
	}
	return run, nil
}
