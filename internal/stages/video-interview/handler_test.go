package videointerview

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"candidate-interview/internal/aggregator"
	"candidate-interview/internal/api"
	"candidate-interview/internal/common/config"
	"candidate-interview/internal/common/errors"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Interview API
// ==========================

type MockInterviewAPI struct {
	mock.Mock
}

func (m *MockInterviewAPI) GenerateInterviewQuestions(ctx context.Context) ([]models.InterviewQuestion, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.InterviewQuestion), args.Error(1)
}

func (m *MockInterviewAPI) SubmitTextResponse(ctx context.Context, order int, answer string) error {
	args := m.Called(ctx, order, answer)
	return args.Error(0)
}

func (m *MockInterviewAPI) SubmitAudioResponse(ctx context.Context, order int, clip api.AudioClip) (string, error) {
	args := m.Called(ctx, order, clip)
	return args.String(0), args.Error(1)
}

// ==========================
// Test Helpers
// ==========================

func createQuestions() []models.InterviewQuestion {
	return []models.InterviewQuestion{
		{ID: "q2", Order: 2, Question: "Describe a hard bug you fixed."},
		{ID: "q1", Order: 1, Question: "Tell me about yourself."},
	}
}

func createValidConfig() *Config {
	return &Config{Timeout: 5 * time.Second, MaxAnswerLength: 50, MaxAudioBytes: 1 << 20}
}

type fixture struct {
	handler *Handler
	api     *MockInterviewAPI
	agg     *aggregator.Aggregator
}

func newFixture(t *testing.T, start bool) *fixture {
	t.Helper()
	interviewAPI := &MockInterviewAPI{}
	agg := aggregator.New(aggregator.Options{Logger: logger.NewNoOpLogger()})
	handler, err := NewHandler(HandlerOptions{
		CustomConfig: createValidConfig(),
		API:          interviewAPI,
		Aggregator:   agg,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)

	if start {
		interviewAPI.On("GenerateInterviewQuestions", mock.Anything).Return(createQuestions(), nil).Once()
		require.True(t, handler.Start(context.Background()).OK)
	}
	return &fixture{handler: handler, api: interviewAPI, agg: agg}
}

// ==========================
// Handler Creation Tests
// ==========================

func TestHandler_NewHandler(t *testing.T) {
	agg := aggregator.New(aggregator.Options{})
	tests := []struct {
		name    string
		opts    HandlerOptions
		wantErr bool
		errMsg  string
	}{
		{name: "defaults", opts: HandlerOptions{API: &MockInterviewAPI{}, Aggregator: agg}},
		{name: "bad config", opts: HandlerOptions{CustomConfig: &Config{Timeout: time.Second}, API: &MockInterviewAPI{}, Aggregator: agg}, wantErr: true, errMsg: "max_answer_length"},
		{name: "missing api", opts: HandlerOptions{Aggregator: agg}, wantErr: true, errMsg: "interview api is required"},
		{name: "missing aggregator", opts: HandlerOptions{API: &MockInterviewAPI{}}, wantErr: true, errMsg: "aggregator is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, err := NewHandler(tt.opts)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, handler)
		})
	}
}

func TestHandler_TimeoutFromAppConfig(t *testing.T) {
	handler, err := NewHandler(HandlerOptions{
		AppConfig: &config.Config{Stages: map[string]config.StageConfig{
			"video_interview": {Timeout: 90000},
		}},
		API:        &MockInterviewAPI{},
		Aggregator: aggregator.New(aggregator.Options{}),
	})
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, handler.GetConfig().Timeout)
}

// ==========================
// Start Tests
// ==========================

func TestHandler_Start_GeneratesOnceInOrder(t *testing.T) {
	f := newFixture(t, true)

	result := f.handler.Start(context.Background())

	require.True(t, result.OK)
	questions := result.Payload.([]models.InterviewQuestion)
	require.Len(t, questions, 2)
	assert.Equal(t, 1, questions[0].Order)
	assert.Equal(t, 2, questions[1].Order)
	f.api.AssertNumberOfCalls(t, "GenerateInterviewQuestions", 1)

	transcript := f.agg.Transcript()
	require.Len(t, transcript, 2)
	assert.Equal(t, models.SpeakerInterviewer, transcript[0].Speaker)
	assert.Equal(t, "Tell me about yourself.", transcript[0].Text)
}

func TestHandler_Start_Failures(t *testing.T) {
	tests := []struct {
		name     string
		ret      []models.InterviewQuestion
		err      error
		wantCode errors.ErrorCode
	}{
		{name: "network", err: errors.NewNetworkError(api.OpGenerateQuestions, fmt.Errorf("reset")), wantCode: errors.ErrCodeNetworkError},
		{name: "no questions", ret: []models.InterviewQuestion{}, wantCode: errors.ErrCodeMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			if tt.ret != nil {
				f.api.On("GenerateInterviewQuestions", mock.Anything).Return(tt.ret, nil)
			} else {
				f.api.On("GenerateInterviewQuestions", mock.Anything).Return(nil, tt.err)
			}

			result := f.handler.Start(context.Background())

			assert.False(t, result.OK)
			assert.Equal(t, string(tt.wantCode), result.Code)
			assert.Empty(t, f.agg.Transcript())
		})
	}
}

// ==========================
// Answer Tests
// ==========================

func TestHandler_AnswerText(t *testing.T) {
	f := newFixture(t, true)
	f.api.On("SubmitTextResponse", mock.Anything, 1, "I build backends.").Return(nil)

	result := f.handler.AnswerText(context.Background(), 1, "I build backends.")

	require.True(t, result.OK, result.Message)
	response := result.Payload.(models.InterviewResponse)
	assert.Equal(t, "q1", response.QuestionID)
	assert.Equal(t, "I build backends.", f.agg.CandidateTranscript())
}

func TestHandler_AnswerText_Validation(t *testing.T) {
	tests := []struct {
		name   string
		order  int
		answer string
		errMsg string
	}{
		{name: "unknown order", order: 9, answer: "hi", errMsg: "not part of this interview"},
		{name: "blank", order: 1, answer: "   ", errMsg: "enter an answer"},
		{name: "too long", order: 1, answer: strings.Repeat("a", 51), errMsg: "at most 50 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true)

			result := f.handler.AnswerText(context.Background(), tt.order, tt.answer)

			assert.Equal(t, string(errors.ErrCodeValidationFailed), result.Code)
			assert.Contains(t, result.Message, tt.errMsg)
			f.api.AssertNotCalled(t, "SubmitTextResponse", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestHandler_AnswerBeforeStart(t *testing.T) {
	f := newFixture(t, false)

	result := f.handler.AnswerText(context.Background(), 1, "hello")

	assert.Equal(t, string(errors.ErrCodeStageContractViolation), result.Code)
}

func TestHandler_AnswerAudio_KeepsTranscript(t *testing.T) {
	f := newFixture(t, true)
	clip := api.AudioClip{Name: "answer-2.webm", Data: []byte("RIFF")}
	f.api.On("SubmitAudioResponse", mock.Anything, 2, clip).Return("I traced a race in the cache.", nil)

	result := f.handler.AnswerAudio(context.Background(), 2, clip)

	require.True(t, result.OK, result.Message)
	response := result.Payload.(models.InterviewResponse)
	assert.Equal(t, "answer-2.webm", response.Payload.AudioRef)
	assert.Equal(t, "I traced a race in the cache.", response.Payload.Transcript)
	assert.Equal(t, "I traced a race in the cache.", f.agg.CandidateTranscript())
}

func TestHandler_AnswerAudio_EmptyRecording(t *testing.T) {
	f := newFixture(t, true)

	result := f.handler.AnswerAudio(context.Background(), 1, api.AudioClip{Name: "empty.webm"})

	assert.Equal(t, string(errors.ErrCodeValidationFailed), result.Code)
	f.api.AssertNotCalled(t, "SubmitAudioResponse", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_AnswerAudio_FailureIsNotStored(t *testing.T) {
	f := newFixture(t, true)
	f.api.On("SubmitAudioResponse", mock.Anything, 1, mock.Anything).
		Return("", errors.NewServiceUnavailableError(api.OpSubmitAudio, 502))

	result := f.handler.AnswerAudio(context.Background(), 1, api.AudioClip{Name: "a.webm", Data: []byte{1}})

	assert.False(t, result.OK)
	assert.True(t, result.Retryable)
	assert.Empty(t, f.agg.Responses(models.StageVideoInterview))
	assert.Empty(t, f.agg.CandidateTranscript())
}

// ==========================
// Complete Tests
// ==========================

func TestHandler_Complete(t *testing.T) {
	f := newFixture(t, true)
	f.api.On("SubmitTextResponse", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	require.True(t, f.handler.AnswerText(context.Background(), 1, "first").OK)
	require.True(t, f.handler.AnswerText(context.Background(), 2, "second").OK)

	result := f.handler.Complete(context.Background())

	require.True(t, result.OK)
	assert.Equal(t, models.SealedOutcome{Stage: models.StageVideoInterview, Responses: 2}, result.Payload)
	assert.True(t, f.agg.IsSealed(models.StageVideoInterview))

	late := f.handler.AnswerText(context.Background(), 1, "again")
	assert.Equal(t, string(errors.ErrCodeStageSealed), late.Code)
}
