package review

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"

	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/models"

	"github.com/lib/pq"
)

const DefaultTable = "interview_review_flags"

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// PostgresFlagger appends flags to a journal table.
type PostgresFlagger struct {
	db     *sql.DB
	table  string
	logger logger.Logger
}

func NewPostgresFlagger(db *sql.DB, table string, log logger.Logger) (*PostgresFlagger, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid review table name %q", table)
	}
	return &PostgresFlagger{
		db:     db,
		table:  pq.QuoteIdentifier(table),
		logger: logger.OrDefault(log),
	}, nil
}

func (f *PostgresFlagger) EnsureSchema(ctx context.Context) error {
	_, err := f.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			job_id BIGINT NOT NULL,
			reason TEXT NOT NULL,
			event_kinds TEXT[] NOT NULL,
			events JSONB NOT NULL,
			raised_at TIMESTAMPTZ NOT NULL
		)`, f.table))
	if err != nil {
		return fmt.Errorf("create review table: %w", err)
	}
	return nil
}

func (f *PostgresFlagger) Flag(ctx context.Context, flag models.ReviewFlag) error {
	events, err := json.Marshal(flag.Events)
	if err != nil {
		return fmt.Errorf("marshal review events: %w", err)
	}
	kinds := make([]string, 0, len(flag.Events))
	for _, e := range flag.Events {
		kinds = append(kinds, string(e.Kind))
	}

	_, err = f.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (session_id, job_id, reason, event_kinds, events, raised_at)
		VALUES ($1, $2, $3, $4, $5, $6)`, f.table),
		flag.SessionID,
		flag.JobID,
		flag.Reason,
		pq.Array(kinds),
		events,
		flag.RaisedAt,
	)
	if err != nil {
		f.logger.Error("Failed to store review flag", map[string]interface{}{
			"sessionId": flag.SessionID,
			"error":     err.Error(),
		})
		return fmt.Errorf("insert review flag: %w", err)
	}
	return nil
}
