package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/0xPuncker/cron-panel/pkg/identity"
	"github.com/0xPuncker/cron-panel/pkg/types"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// SQLiteStore keeps the pending queue in a single SQLite table so it survives restarts.
type SQLiteStore struct {
	db        *sql.DB
	schedules map[string]types.RecurrenceSchedule
}

func OpenSQLite(path string, schedules []types.RecurrenceSchedule) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate sqlite store: %w", err)
	}

	return &SQLiteStore{db: db, schedules: scheduleIndex(schedules)}, nil
}

func (s *SQLiteStore) Enumerate(ctx context.Context) (types.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, hook, hash, schedule, interval, args FROM events ORDER BY at, hook, hash`)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate events: %w", err)
	}
	defer rows.Close()

	snapshot := make(types.Snapshot)
	for rows.Next() {
		var (
			at       int64
			hook     string
			hash     string
			data     types.OccurrenceData
			argsJSON string
		)
		if err := rows.Scan(&at, &hook, &hash, &data.Schedule, &data.Interval, &argsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(argsJSON), &data.Args); err != nil {
			return nil, fmt.Errorf("failed to decode args for %s@%d: %w", hook, at, err)
		}
		snapshot.Put(at, hook, hash, data)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to enumerate events: %w", err)
	}

	return snapshot, nil
}

func (s *SQLiteStore) Schedules(ctx context.Context) (map[string]types.RecurrenceSchedule, error) {
	return copySchedules(s.schedules), nil
}

func (s *SQLiteStore) Schedule(ctx context.Context, at int64, hook, schedule string, args types.Args) (string, error) {
	if err := validateHook(hook); err != nil {
		return "", err
	}

	interval, err := resolveInterval(s.schedules, schedule)
	if err != nil {
		return "", err
	}

	if args == nil {
		args = types.Args{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to encode args: %w", err)
	}

	hash := identity.Hash(args)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events(at, hook, hash, schedule, interval, args) VALUES(?,?,?,?,?,?)
		 ON CONFLICT(at, hook, hash) DO UPDATE SET schedule=excluded.schedule, interval=excluded.interval, args=excluded.args`,
		at, hook, hash, schedule, interval, string(argsJSON),
	)
	if err != nil {
		return "", fmt.Errorf("failed to schedule %s@%d: %w", hook, at, err)
	}

	return hash, nil
}

func (s *SQLiteStore) Unschedule(ctx context.Context, at int64, hook, hash string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM events WHERE at = ? AND hook = ? AND hash = ?`, at, hook, hash)
	if err != nil {
		return fmt.Errorf("failed to unschedule %s@%d: %w", hook, at, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to unschedule %s@%d: %w", hook, at, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s@%d (%s)", ErrNotFound, hook, at, hash)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
