// Package codingassessment runs the coding stage. Each solution is sent as
// soon as it is submitted; a resubmission for the same problem replaces the
// earlier one until the stage is completed.
package codingassessment

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"candidate-interview/internal/aggregator"
	"candidate-interview/internal/api"
	"candidate-interview/internal/common/errors"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/models"
)

type Service struct {
	config     *Config
	logger     logger.Logger
	api        CodingAPI
	aggregator *aggregator.Aggregator

	mu       sync.Mutex
	problems []models.CodingProblem
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		config:     config,
		logger:     logger.OrDefault(deps.Logger),
		api:        deps.API,
		aggregator: deps.Aggregator,
	}
}

// Load fetches the problems once.
func (s *Service) Load(ctx context.Context, sessionID string) ([]models.CodingProblem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.problems == nil {
		if sessionID == "" {
			return nil, errors.NewStageContractViolationError(models.StageCoding.String(), "session id missing")
		}
		loadCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()

		problems, err := s.api.FetchCodingProblems(loadCtx, sessionID)
		if err != nil {
			return nil, err
		}
		s.problems = problems
		s.logger.Info("Coding problems loaded", map[string]interface{}{
			"problems": len(problems),
		})
	}
	return append([]models.CodingProblem(nil), s.problems...), nil
}

// Submit sends one solution through the aggregator.
func (s *Service) Submit(ctx context.Context, input *SubmitInput) (models.InterviewResponse, error) {
	s.mu.Lock()
	order, ok := s.order(input.ProblemID)
	s.mu.Unlock()

	if !ok {
		return models.InterviewResponse{}, errors.NewValidationFailedError("That problem is not part of this assessment.", fmt.Sprintf("problemId: %d", input.ProblemID))
	}
	if msg := submissionProblem(input, s.config); msg != "" {
		return models.InterviewResponse{}, errors.NewValidationFailedError(msg, fmt.Sprintf("problemId: %d, language: %s", input.ProblemID, input.Language))
	}

	language := normalizeLanguage(input.Language)
	payload := models.ResponsePayload{Language: language, SourceCode: input.Code}
	send := func(ctx context.Context) (models.ResponsePayload, error) {
		sendCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
		err := s.api.SubmitCodingResponse(sendCtx, api.CodingSubmission{
			ProblemID: input.ProblemID,
			Language:  language,
			Code:      input.Code,
		})
		return payload, err
	}

	return s.aggregator.SubmitResponse(ctx, models.StageCoding, strconv.FormatInt(input.ProblemID, 10), order, payload, send)
}

// Complete seals the stage once in-flight submissions settle.
func (s *Service) Complete(ctx context.Context) (*models.SealedOutcome, error) {
	s.mu.Lock()
	total := len(s.problems)
	loaded := s.problems != nil
	s.mu.Unlock()

	if !loaded {
		return nil, errors.NewStageContractViolationError(models.StageCoding.String(), "problems not loaded")
	}

	count, err := s.aggregator.Seal(ctx, models.StageCoding)
	if err != nil {
		return nil, err
	}
	return &models.SealedOutcome{
		Stage:      models.StageCoding,
		Responses:  count,
		Unanswered: total - count,
	}, nil
}

// order must be called with s.mu held.
func (s *Service) order(problemID int64) (int, bool) {
	for i, p := range s.problems {
		if p.ID == problemID {
			return i + 1, true
		}
	}
	return 0, false
}
