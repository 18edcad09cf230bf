// Package quiz runs the multiple-choice stage. Answers are recorded locally
// and the whole sheet is submitted once when the candidate finishes.
package quiz

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"candidate-interview/internal/aggregator"
	"candidate-interview/internal/api"
	"candidate-interview/internal/common/clock"
	"candidate-interview/internal/common/errors"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/models"
)

type Service struct {
	config     *Config
	logger     logger.Logger
	api        QuizAPI
	aggregator *aggregator.Aggregator
	clock      clock.Clock

	mu        sync.Mutex
	questions []models.QuizQuestion
	startedAt time.Time
	submitted bool
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &Service{
		config:     config,
		logger:     logger.OrDefault(deps.Logger),
		api:        deps.API,
		aggregator: deps.Aggregator,
		clock:      clk,
	}
}

// Load fetches the questions once; later calls return the loaded sheet.
func (s *Service) Load(ctx context.Context, sessionID string) (*Sheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.questions == nil {
		if sessionID == "" {
			return nil, errors.NewStageContractViolationError(models.StageQuiz.String(), "session id missing")
		}
		loadCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()

		questions, err := s.api.FetchQuizQuestions(loadCtx, sessionID)
		if err != nil {
			return nil, err
		}
		s.questions = questions
		s.startedAt = s.clock.Now()
		s.logger.Info("Quiz loaded", map[string]interface{}{
			"questions": len(questions),
		})
	}

	return &Sheet{
		Questions: append([]models.QuizQuestion(nil), s.questions...),
		TimeLimit: s.config.TimeLimit.String(),
	}, nil
}

// Remaining is the time left before answers are no longer accepted.
func (s *Service) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startedAt.IsZero() {
		return s.config.TimeLimit
	}
	left := s.config.TimeLimit - s.clock.Now().Sub(s.startedAt)
	if left < 0 {
		return 0
	}
	return left
}

// Answer records the selection for one question, replacing an earlier one.
func (s *Service) Answer(ctx context.Context, input *AnswerInput) (models.InterviewResponse, error) {
	s.mu.Lock()
	index, question, ok := s.find(input.QuestionID)
	expired := !s.startedAt.IsZero() && s.clock.Now().Sub(s.startedAt) > s.config.TimeLimit
	s.mu.Unlock()

	if !ok {
		return models.InterviewResponse{}, errors.NewValidationFailedError("That question is not part of this quiz.", fmt.Sprintf("questionId: %d", input.QuestionID))
	}
	if expired {
		return models.InterviewResponse{}, errors.NewValidationFailedError("Time is up. Please submit your answers.", "quiz time limit reached")
	}
	if msg := selectionProblem(question, input.OptionIDs); msg != "" {
		return models.InterviewResponse{}, errors.NewValidationFailedError(msg, fmt.Sprintf("questionId: %d, options: %v", question.ID, input.OptionIDs))
	}

	payload := models.ResponsePayload{OptionIDs: append([]int64(nil), input.OptionIDs...)}
	return s.aggregator.SubmitResponse(ctx, models.StageQuiz, strconv.FormatInt(question.ID, 10), index+1, payload, nil)
}

// Complete seals the quiz and submits the answer sheet. A failed submission
// can be retried; the sealed answers are sent as they are.
func (s *Service) Complete(ctx context.Context) (*models.SealedOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.questions == nil {
		return nil, errors.NewStageContractViolationError(models.StageQuiz.String(), "quiz not loaded")
	}

	count, err := s.aggregator.Seal(ctx, models.StageQuiz)
	if err != nil {
		return nil, err
	}
	responses := s.aggregator.Responses(models.StageQuiz)
	unanswered := len(s.questions) - count
	if unanswered > 0 {
		s.logger.Warn("Quiz submitted with unanswered questions", map[string]interface{}{
			"unanswered": unanswered,
		})
	}

	if !s.submitted {
		answers := make([]api.QuizAnswer, 0, len(responses))
		for _, r := range responses {
			questionID, _ := strconv.ParseInt(r.QuestionID, 10, 64)
			for _, optionID := range r.Payload.OptionIDs {
				answers = append(answers, api.QuizAnswer{QuestionID: questionID, OptionID: optionID})
			}
		}

		submitCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
		if err := s.api.SubmitQuizResponses(submitCtx, answers); err != nil {
			return nil, err
		}
		s.submitted = true
	}

	return &models.SealedOutcome{
		Stage:      models.StageQuiz,
		Responses:  count,
		Unanswered: unanswered,
	}, nil
}

// find must be called with s.mu held.
func (s *Service) find(questionID int64) (int, models.QuizQuestion, bool) {
	for i, q := range s.questions {
		if q.ID == questionID {
			return i, q, true
		}
	}
	return 0, models.QuizQuestion{}, false
}
