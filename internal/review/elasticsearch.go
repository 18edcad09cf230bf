package review

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
)

const DefaultIndex = "interview-review-flags"

// ElasticsearchFlagger indexes one document per flag.
type ElasticsearchFlagger struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewElasticsearchFlagger(client *elasticsearch.Client, index string, log logger.Logger) *ElasticsearchFlagger {
	if index == "" {
		index = DefaultIndex
	}
	return &ElasticsearchFlagger{
		client: client,
		index:  index,
		logger: logger.OrDefault(log),
	}
}

type flagDocument struct {
	SessionID  string                  `json:"sessionId"`
	JobID      int64                   `json:"jobId"`
	Reason     string                  `json:"reason"`
	EventKinds []string                `json:"eventKinds"`
	Events     []models.IntegrityEvent `json:"events"`
	RaisedAt   string                  `json:"raisedAt"`
}

func (f *ElasticsearchFlagger) Flag(ctx context.Context, flag models.ReviewFlag) error {
	doc := flagDocument{
		SessionID: flag.SessionID,
		JobID:     flag.JobID,
		Reason:    flag.Reason,
		Events:    flag.Events,
		RaisedAt:  flag.RaisedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	for _, e := range flag.Events {
		doc.EventKinds = append(doc.EventKinds, string(e.Kind))
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal review flag: %w", err)
	}

	res, err := f.client.Index(
		f.index,
		bytes.NewReader(body),
		f.client.Index.WithContext(ctx),
		f.client.Index.WithDocumentID(uuid.New().String()),
	)
	if err != nil {
		return fmt.Errorf("index review flag: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("index review flag: %s: %s", res.Status(), bytes.TrimSpace(detail))
	}

	f.logger.Info("Review flag indexed", map[string]interface{}{
		"index":     f.index,
		"sessionId": flag.SessionID,
		"reason":    flag.Reason,
	})
	return nil
}
