package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"candidate-interview/internal/common/logger"

	"github.com/lib/pq"
)

const DefaultTable = "interview_session_snapshots"

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// PostgresStore keeps one row per job id with the snapshot as JSONB.
type PostgresStore struct {
	db     *sql.DB
	table  string
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, table string, log logger.Logger) (*PostgresStore, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid snapshot table name %q", table)
	}
	return &PostgresStore{
		db:     db,
		table:  pq.QuoteIdentifier(table),
		logger: logger.OrDefault(log),
	}, nil
}

// EnsureSchema creates the snapshot table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			job_id BIGINT PRIMARY KEY,
			session_id TEXT NOT NULL DEFAULT '',
			current_stage TEXT NOT NULL,
			payload JSONB NOT NULL,
			saved_at TIMESTAMPTZ NOT NULL
		)`, s.table))
	if err != nil {
		return fmt.Errorf("create snapshot table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, snapshot *Snapshot) error {
	if err := validateSnapshot(snapshot); err != nil {
		return err
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (job_id, session_id, current_stage, payload, saved_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (job_id) DO UPDATE SET
			session_id = EXCLUDED.session_id,
			current_stage = EXCLUDED.current_stage,
			payload = EXCLUDED.payload,
			saved_at = EXCLUDED.saved_at`, s.table),
		snapshot.JobID,
		snapshot.Session.SessionID,
		string(snapshot.Session.CurrentStage),
		payload,
		snapshot.SavedAt,
	)
	if err != nil {
		s.logger.Error("Failed to save session snapshot", map[string]interface{}{
			"jobId": snapshot.JobID,
			"error": err.Error(),
		})
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, jobID int64) (*Snapshot, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT payload FROM %s WHERE job_id = $1`, s.table),
		jobID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return decodeSnapshot(payload)
}

func (s *PostgresStore) Delete(ctx context.Context, jobID int64) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE job_id = $1`, s.table), jobID); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
