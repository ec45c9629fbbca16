package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"pollboard/pkg/types"
)

// SQLiteStore persists poll history in a local SQLite database. All writes
// flow through a single goroutine; SQLite handles concurrent reads but
// serializing writes avoids lock contention entirely.
type SQLiteStore struct {
	db           *sql.DB
	writeChannel chan writeOperation
	shutdown     chan struct{}
	wg           sync.WaitGroup
	closed       bool
	mu           sync.RWMutex
}

type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

// NewSQLiteStore opens (creating if necessary) the history database at
// path and starts the write loop.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &SQLiteStore{
		db:           db,
		writeChannel: make(chan writeOperation, 100),
		shutdown:     make(chan struct{}),
	}

	store.wg.Add(1)
	go store.writeLoop()

	return store, nil
}

func ensureSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS polls (
			id             TEXT PRIMARY KEY,
			question       TEXT NOT NULL,
			options_json   TEXT NOT NULL,
			timer_seconds  INTEGER NOT NULL,
			teacher_handle TEXT NOT NULL,
			created_at     DATETIME NOT NULL,
			results_json   TEXT NOT NULL
		)
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create polls table: %w", err)
	}
	return nil
}

// writeLoop processes all write operations in a single goroutine, with
// one retry after a short backoff on failure.
func (s *SQLiteStore) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case op := <-s.writeChannel:
			err := op.operation(s.db)
			if err != nil {
				log.Warn().Err(err).Msg("history write failed, retrying")
				time.Sleep(time.Second)
				err = op.operation(s.db)
				if err != nil {
					log.Error().Err(err).Msg("history write failed after retry")
				}
			}
			op.result <- err

		case <-s.shutdown:
			return
		}
	}
}

func (s *SQLiteStore) executeWrite(ctx context.Context, operation func(*sql.DB) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("history store is closed")
	}
	s.mu.RUnlock()

	result := make(chan error, 1)

	select {
	case s.writeChannel <- writeOperation{operation: operation, result: result}:
		return <-result
	case <-ctx.Done():
		return ctx.Err()
	case <-s.shutdown:
		return fmt.Errorf("history store is shutting down")
	}
}

// Append persists a completed poll with its final tally.
func (s *SQLiteStore) Append(ctx context.Context, record *types.PollRecord) error {
	return s.executeWrite(ctx, func(db *sql.DB) error {
		optionsJSON, err := json.Marshal(record.Poll.Options)
		if err != nil {
			return fmt.Errorf("failed to marshal poll options: %w", err)
		}
		resultsJSON, err := json.Marshal(record.Results)
		if err != nil {
			return fmt.Errorf("failed to marshal poll results: %w", err)
		}

		query := `
			INSERT INTO polls (id, question, options_json, timer_seconds, teacher_handle, created_at, results_json)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`
		_, err = db.ExecContext(ctx, query,
			record.Poll.ID,
			record.Poll.Question,
			string(optionsJSON),
			record.Poll.TimerSeconds,
			record.Poll.TeacherHandle,
			record.Poll.CreatedAt,
			string(resultsJSON),
		)
		if err != nil {
			return fmt.Errorf("failed to insert poll record: %w", err)
		}
		return nil
	})
}

// List returns every recorded poll in creation order. Poll IDs are ULIDs,
// so lexical order is creation order.
func (s *SQLiteStore) List(ctx context.Context) ([]*types.PollRecord, error) {
	query := `
		SELECT id, question, options_json, timer_seconds, teacher_handle, created_at, results_json
		FROM polls
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query poll history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*types.PollRecord

	for rows.Next() {
		var poll types.Poll
		var optionsJSON, resultsJSON string

		err := rows.Scan(
			&poll.ID,
			&poll.Question,
			&optionsJSON,
			&poll.TimerSeconds,
			&poll.TeacherHandle,
			&poll.CreatedAt,
			&resultsJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan poll row: %w", err)
		}

		if err := json.Unmarshal([]byte(optionsJSON), &poll.Options); err != nil {
			return nil, fmt.Errorf("failed to unmarshal poll options: %w", err)
		}

		var results types.VoteTally
		if err := json.Unmarshal([]byte(resultsJSON), &results); err != nil {
			return nil, fmt.Errorf("failed to unmarshal poll results: %w", err)
		}

		records = append(records, &types.PollRecord{Poll: &poll, Results: results})
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating poll rows: %w", err)
	}

	return records, nil
}

// HealthCheck validates database connectivity.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("history database ping failed: %w", err)
	}
	return nil
}

// Close shuts down the write loop and closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.shutdown)
	s.wg.Wait()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close history database: %w", err)
	}
	return nil
}
