package database

import (
	"context"
	"fmt"
	"time"

	"candidate-interview/internal/common/config"
)

// Connections opens only the backends the configuration selects.
type Connections struct {
	Redis         *RedisClient
	Postgres      *PostgresClient
	Elasticsearch *ElasticsearchClient
}

func Open(ctx context.Context, cfg *config.Config) (*Connections, error) {
	conns := &Connections{}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if cfg.Credentials.Backend == config.BackendRedis {
		conns.Redis = NewRedis(cfg.Database.Redis)
		if err := conns.Redis.Ping(pingCtx); err != nil {
			conns.Close()
			return nil, err
		}
	}

	if cfg.Session.SnapshotBackend == config.BackendPostgres || cfg.Review.Backend == config.BackendPostgres {
		pg, err := NewPostgres(cfg.Database.Postgres)
		if err != nil {
			conns.Close()
			return nil, err
		}
		conns.Postgres = pg
		if err := pg.Ping(pingCtx); err != nil {
			conns.Close()
			return nil, err
		}
	}

	if cfg.Review.Backend == "elasticsearch" {
		es, err := NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			conns.Close()
			return nil, err
		}
		conns.Elasticsearch = es
		if err := es.Ping(pingCtx); err != nil {
			conns.Close()
			return nil, err
		}
	}

	return conns, nil
}

func (c *Connections) Close() error {
	var firstErr error
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close redis: %w", err)
		}
	}
	if c.Postgres != nil {
		if err := c.Postgres.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close postgres: %w", err)
		}
	}
	return firstErr
}
