package linkverification

import (
	"context"

	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/models"
)

type Input struct {
	Link string `json:"link"`
}

type Output struct {
	JobID int64                   `json:"jobId"`
	Job   models.JobConfiguration `json:"job"`
}

// JobFetcher loads the read-only job configuration.
type JobFetcher interface {
	FetchJobConfiguration(ctx context.Context, jobID int64) (*models.JobConfiguration, error)
}

type ServiceDependencies struct {
	Jobs   JobFetcher
	Logger logger.Logger
}
