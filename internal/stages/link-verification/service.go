// Package linkverification resolves an interview link into its job
// configuration. A bad link is permanent; a failed fetch is fatal until the
// candidate explicitly retries the configuration load.
package linkverification

import (
	"context"
	"fmt"

	"candidate-interview/internal/common/errors"
	"candidate-interview/internal/common/logger"
)

type Service struct {
	config *Config
	logger logger.Logger
	jobs   JobFetcher
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		config: config,
		logger: logger.OrDefault(deps.Logger),
		jobs:   deps.Jobs,
	}
}

func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	jobID, err := ParseJobID(input.Link, s.config.LinkParam)
	if err != nil {
		return nil, errors.NewLinkInvalidError(err.Error())
	}

	s.logger.Info("Interview link resolved", map[string]interface{}{
		"jobId": jobID,
	})

	return s.Fetch(ctx, jobID)
}

// Fetch loads the job configuration for an already parsed job id.
func (s *Service) Fetch(ctx context.Context, jobID int64) (*Output, error) {
	if jobID <= 0 {
		return nil, errors.NewLinkInvalidError(fmt.Sprintf("job id %d is not positive", jobID))
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	job, err := s.jobs.FetchJobConfiguration(fetchCtx, jobID)
	if err != nil {
		return nil, errors.NewJobConfigFetchFailedError(jobID, err)
	}
	if job == nil || job.JobID != jobID {
		return nil, errors.NewJobConfigFetchFailedError(jobID, fmt.Errorf("configuration for another job returned"))
	}

	return &Output{JobID: jobID, Job: *job}, nil
}
