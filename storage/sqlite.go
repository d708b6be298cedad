package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the ledger in a SQLite database file.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sqlx.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sqlx.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("opening ledger: %w", err)
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("creating ledger tables: %w", err)
	}

	s.db = db
	return nil
}

type runRow struct {
	ID         string `db:"id"`
	Identifier string `db:"identifier"`
	StartedAt  int64  `db:"started_unix"`
	Config     string `db:"config"`
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run Run) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO runs (id, identifier, started_unix, config)
		VALUES (:id, :identifier, :started_unix, :config)`,
		runRow{ID: run.ID, Identifier: run.Identifier, StartedAt: run.StartedAt.Unix(), Config: run.Config})
	return err
}

// GetRun returns the run with the given ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (Run, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Run{}, false, err
	}
	var rows []runRow
	if err := db.SelectContext(ctx, &rows, `SELECT id, identifier, started_unix, config FROM runs WHERE id = ?`, id); err != nil {
		return Run{}, false, err
	}
	if len(rows) == 0 {
		return Run{}, false, nil
	}
	r := rows[0]
	return Run{ID: r.ID, Identifier: r.Identifier, StartedAt: time.Unix(r.StartedAt, 0), Config: r.Config}, true, nil
}

func (s *SQLiteStore) SaveGeneration(ctx context.Context, rec GenerationRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO generations (
			run_id, generation, population, best_fitness, mean_fitness, std_fitness,
			mean_distance, max_distance, mean_expanded_links, stalled
		) VALUES (
			:run_id, :generation, :population, :best_fitness, :mean_fitness, :std_fitness,
			:mean_distance, :max_distance, :mean_expanded_links, :stalled
		)`, rec)
	return err
}

type championRow struct {
	Champion
	Chromosome string `db:"chromosome"`
}

func (s *SQLiteStore) SaveChampion(ctx context.Context, c Champion) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	enc, err := encodeChromosome(c.Chromosome)
	if err != nil {
		return err
	}
	_, err = db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO champions (run_id, generation, individual_id, fitness, distance, chromosome)
		VALUES (:run_id, :generation, :individual_id, :fitness, :distance, :chromosome)`,
		championRow{Champion: c, Chromosome: enc})
	return err
}

func (s *SQLiteStore) ListGenerations(ctx context.Context, runID string) ([]GenerationRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	var out []GenerationRecord
	err = db.SelectContext(ctx, &out, `
		SELECT run_id, generation, population, best_fitness, mean_fitness, std_fitness,
		       mean_distance, max_distance, mean_expanded_links, stalled
		FROM generations WHERE run_id = ? ORDER BY generation`, runID)
	return out, err
}

func (s *SQLiteStore) ListChampions(ctx context.Context, runID string) ([]Champion, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	var rows []championRow
	err = db.SelectContext(ctx, &rows, `
		SELECT run_id, generation, individual_id, fitness, distance, chromosome
		FROM champions WHERE run_id = ? ORDER BY generation`, runID)
	if err != nil {
		return nil, err
	}

	out := make([]Champion, len(rows))
	for i, r := range rows {
		c := r.Champion
		if c.Chromosome, err = decodeChromosome(r.Chromosome); err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sqlx.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			identifier TEXT NOT NULL,
			started_unix INTEGER NOT NULL,
			config TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS generations (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			population INTEGER NOT NULL,
			best_fitness REAL NOT NULL,
			mean_fitness REAL NOT NULL,
			std_fitness REAL NOT NULL,
			mean_distance REAL NOT NULL,
			max_distance REAL NOT NULL,
			mean_expanded_links REAL NOT NULL,
			stalled INTEGER NOT NULL,
			PRIMARY KEY (run_id, generation)
		);
		CREATE TABLE IF NOT EXISTS champions (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			individual_id TEXT NOT NULL,
			fitness REAL NOT NULL,
			distance REAL NOT NULL,
			chromosome TEXT NOT NULL,
			PRIMARY KEY (run_id, generation)
		);
	`)
	return err
}
