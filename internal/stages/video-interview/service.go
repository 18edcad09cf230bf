// Package videointerview runs the AI interview. Questions are generated
// once, every answer is sent as it is given and the conversation is kept
// as a transcript for the final feedback.
package videointerview

import (
	"context"
	"fmt"
	"sort"
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
	api        InterviewAPI
	aggregator *aggregator.Aggregator

	mu        sync.Mutex
	questions []models.InterviewQuestion
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		config:     config,
		logger:     logger.OrDefault(deps.Logger),
		api:        deps.API,
		aggregator: deps.Aggregator,
	}
}

// Start generates the questions once and puts them on the transcript.
func (s *Service) Start(ctx context.Context) ([]models.InterviewQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.questions == nil {
		startCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()

		questions, err := s.api.GenerateInterviewQuestions(startCtx)
		if err != nil {
			return nil, err
		}
		if len(questions) == 0 {
			return nil, errors.NewMalformedResponseError(api.OpGenerateQuestions, fmt.Errorf("no questions generated"))
		}
		sort.SliceStable(questions, func(i, j int) bool {
			return questions[i].Order < questions[j].Order
		})
		s.questions = questions
		for _, q := range questions {
			s.aggregator.AppendTranscript(models.SpeakerInterviewer, q.Question)
		}
		s.logger.Info("Interview questions generated", map[string]interface{}{
			"questions": len(questions),
		})
	}
	return append([]models.InterviewQuestion(nil), s.questions...), nil
}

// AnswerText sends a typed answer.
func (s *Service) AnswerText(ctx context.Context, input *TextInput) (models.InterviewResponse, error) {
	question, err := s.question(input.Order)
	if err != nil {
		return models.InterviewResponse{}, err
	}
	if msg := textProblem(input.Answer, s.config); msg != "" {
		return models.InterviewResponse{}, errors.NewValidationFailedError(msg, fmt.Sprintf("order: %d", input.Order))
	}

	payload := models.ResponsePayload{Text: input.Answer}
	send := func(ctx context.Context) (models.ResponsePayload, error) {
		sendCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
		return payload, s.api.SubmitTextResponse(sendCtx, question.Order, input.Answer)
	}

	response, err := s.aggregator.SubmitResponse(ctx, models.StageVideoInterview, questionID(question), question.Order, payload, send)
	if err != nil {
		return models.InterviewResponse{}, err
	}
	s.aggregator.AppendTranscript(models.SpeakerCandidate, input.Answer)
	return response, nil
}

// AnswerAudio uploads a recording. The transcript the service returns is
// kept with the response and added to the conversation.
func (s *Service) AnswerAudio(ctx context.Context, input *AudioInput) (models.InterviewResponse, error) {
	question, err := s.question(input.Order)
	if err != nil {
		return models.InterviewResponse{}, err
	}
	if msg := audioProblem(input.Clip.Data, s.config); msg != "" {
		return models.InterviewResponse{}, errors.NewValidationFailedError(msg, fmt.Sprintf("order: %d, bytes: %d", input.Order, len(input.Clip.Data)))
	}

	send := func(ctx context.Context) (models.ResponsePayload, error) {
		sendCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
		transcript, err := s.api.SubmitAudioResponse(sendCtx, question.Order, input.Clip)
		if err != nil {
			return models.ResponsePayload{}, err
		}
		return models.ResponsePayload{AudioRef: input.Clip.Name, Transcript: transcript}, nil
	}

	response, err := s.aggregator.SubmitResponse(ctx, models.StageVideoInterview, questionID(question), question.Order,
		models.ResponsePayload{AudioRef: input.Clip.Name}, send)
	if err != nil {
		return models.InterviewResponse{}, err
	}
	if response.Payload.Transcript != "" {
		s.aggregator.AppendTranscript(models.SpeakerCandidate, response.Payload.Transcript)
	} else {
		s.logger.Warn("Recording returned no transcript", map[string]interface{}{
			"order": question.Order,
		})
	}
	return response, nil
}

// Complete seals the interview once in-flight answers settle.
func (s *Service) Complete(ctx context.Context) (*models.SealedOutcome, error) {
	s.mu.Lock()
	total := len(s.questions)
	started := s.questions != nil
	s.mu.Unlock()

	if !started {
		return nil, errors.NewStageContractViolationError(models.StageVideoInterview.String(), "interview not started")
	}

	count, err := s.aggregator.Seal(ctx, models.StageVideoInterview)
	if err != nil {
		return nil, err
	}
	return &models.SealedOutcome{
		Stage:      models.StageVideoInterview,
		Responses:  count,
		Unanswered: total - count,
	}, nil
}

func (s *Service) question(order int) (models.InterviewQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.questions == nil {
		return models.InterviewQuestion{}, errors.NewStageContractViolationError(models.StageVideoInterview.String(), "interview not started")
	}
	for _, q := range s.questions {
		if q.Order == order {
			return q, nil
		}
	}
	return models.InterviewQuestion{}, errors.NewValidationFailedError("That question is not part of this interview.", fmt.Sprintf("order: %d", order))
}

func questionID(q models.InterviewQuestion) string {
	if q.ID != "" {
		return q.ID
	}
	return strconv.Itoa(q.Order)
}
