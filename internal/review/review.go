// Package review raises recruiter review flags for sessions whose
// integrity signals crossed the configured threshold.
package review

import (
	"context"
	"database/sql"
	"fmt"

	"candidate-interview/internal/common/config"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

// Flagger records a review flag somewhere a recruiter will see it.
type Flagger interface {
	Flag(ctx context.Context, flag models.ReviewFlag) error
}

// LogFlagger writes flags to the structured log only.
type LogFlagger struct {
	logger logger.Logger
}

func NewLogFlagger(log logger.Logger) *LogFlagger {
	return &LogFlagger{logger: logger.OrDefault(log)}
}

func (f *LogFlagger) Flag(_ context.Context, flag models.ReviewFlag) error {
	kinds := make([]string, 0, len(flag.Events))
	for _, e := range flag.Events {
		kinds = append(kinds, string(e.Kind))
	}
	f.logger.Warn("Session flagged for review", map[string]interface{}{
		"sessionId": flag.SessionID,
		"jobId":     flag.JobID,
		"reason":    flag.Reason,
		"events":    kinds,
	})
	return nil
}

// Backends carries the connections a review backend may need. Either may
// be nil when the configured backend does not use it.
type Backends struct {
	Elasticsearch *elasticsearch.Client
	Postgres      *sql.DB
}

// NewFromConfig picks the backend named in cfg.
func NewFromConfig(cfg config.ReviewConfig, backends Backends, log logger.Logger) (Flagger, error) {
	switch cfg.Backend {
	case "", "log":
		return NewLogFlagger(log), nil
	case "elasticsearch":
		if backends.Elasticsearch == nil {
			return nil, fmt.Errorf("elasticsearch client is required for the elasticsearch review backend")
		}
		return NewElasticsearchFlagger(backends.Elasticsearch, cfg.Index, log), nil
	case "postgres":
		if backends.Postgres == nil {
			return nil, fmt.Errorf("postgres connection is required for the postgres review backend")
		}
		return NewPostgresFlagger(backends.Postgres, cfg.Table, log)
	default:
		return nil, fmt.Errorf("unknown review backend %q", cfg.Backend)
	}
}
