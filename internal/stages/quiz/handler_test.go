package quiz

import (
	"context"
	"fmt"
	"testing"
	"time"

	"candidate-interview/internal/aggregator"
	"candidate-interview/internal/api"
	"candidate-interview/internal/common/clock"
	"candidate-interview/internal/common/errors"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Quiz API
// ==========================

type MockQuizAPI struct {
	mock.Mock
}

func (m *MockQuizAPI) FetchQuizQuestions(ctx context.Context, sessionID string) ([]models.QuizQuestion, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.QuizQuestion), args.Error(1)
}

func (m *MockQuizAPI) SubmitQuizResponses(ctx context.Context, answers []api.QuizAnswer) error {
	args := m.Called(ctx, answers)
	return args.Error(0)
}

// ==========================
// Test Helpers
// ==========================

func createQuestions() []models.QuizQuestion {
	return []models.QuizQuestion{
		{ID: 1, Description: "Which is a Go keyword?", Type: models.QuizSingleChoice, Options: []models.QuizOption{{ID: 11, Label: "defer"}, {ID: 12, Label: "finally"}}},
		{ID: 2, Description: "Which are reference types?", Type: models.QuizMultipleChoice, Options: []models.QuizOption{{ID: 21, Label: "map"}, {ID: 22, Label: "slice"}, {ID: 23, Label: "array"}}},
		{ID: 3, Description: "Goroutines are OS threads.", Type: models.QuizTrueFalse, Options: []models.QuizOption{{ID: 31, Label: "True"}, {ID: 32, Label: "False"}}},
	}
}

type fixture struct {
	handler *Handler
	api     *MockQuizAPI
	agg     *aggregator.Aggregator
	clock   *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	quizAPI := &MockQuizAPI{}
	clk := clock.Fake(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	agg := aggregator.New(aggregator.Options{Clock: clk, Logger: logger.NewNoOpLogger()})
	handler, err := NewHandler(HandlerOptions{
		CustomConfig: &Config{Timeout: 5 * time.Second, TimeLimit: 10 * time.Minute},
		API:          quizAPI,
		Aggregator:   agg,
		Clock:        clk,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return &fixture{handler: handler, api: quizAPI, agg: agg, clock: clk}
}

func (f *fixture) load(t *testing.T) {
	t.Helper()
	f.api.On("FetchQuizQuestions", mock.Anything, "1001").Return(createQuestions(), nil).Once()
	require.True(t, f.handler.Load(context.Background(), "1001").OK)
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
		{name: "valid configuration", opts: HandlerOptions{API: &MockQuizAPI{}, Aggregator: agg}},
		{name: "zero time limit", opts: HandlerOptions{CustomConfig: &Config{Timeout: time.Second}, API: &MockQuizAPI{}, Aggregator: agg}, wantErr: true, errMsg: "time_limit must be positive"},
		{name: "missing api", opts: HandlerOptions{Aggregator: agg}, wantErr: true, errMsg: "quiz api is required"},
		{name: "missing aggregator", opts: HandlerOptions{API: &MockQuizAPI{}}, wantErr: true, errMsg: "aggregator is required"},
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

// ==========================
// Load Tests
// ==========================

func TestHandler_Load_FetchesOnce(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	again := f.handler.Load(context.Background(), "1001")

	require.True(t, again.OK)
	assert.Len(t, again.Payload.(Sheet).Questions, 3)
	assert.Equal(t, "10m0s", again.Payload.(Sheet).TimeLimit)
	f.api.AssertNumberOfCalls(t, "FetchQuizQuestions", 1)
}

func TestHandler_Load_Failure(t *testing.T) {
	f := newFixture(t)
	f.api.On("FetchQuizQuestions", mock.Anything, "1001").Return(nil, errors.NewAuthorizationFailedError("fetch_quiz_questions"))

	result := f.handler.Load(context.Background(), "1001")

	assert.False(t, result.OK)
	assert.Equal(t, string(errors.ErrCodeAuthorizationFailed), result.Code)
}

// ==========================
// Answer Tests
// ==========================

func TestHandler_Answer(t *testing.T) {
	tests := []struct {
		name       string
		questionID int64
		options    []int64
		errMsg     string
	}{
		{name: "single choice", questionID: 1, options: []int64{11}},
		{name: "multiple choice", questionID: 2, options: []int64{21, 22}},
		{name: "true false", questionID: 3, options: []int64{32}},
		{name: "two options on single", questionID: 1, options: []int64{11, 12}, errMsg: "exactly one"},
		{name: "two options on true false", questionID: 3, options: []int64{31, 32}, errMsg: "exactly one"},
		{name: "no option", questionID: 2, errMsg: "select an answer"},
		{name: "foreign option", questionID: 1, options: []int64{21}, errMsg: "does not belong"},
		{name: "duplicate option", questionID: 2, options: []int64{21, 21}, errMsg: "only once"},
		{name: "unknown question", questionID: 99, options: []int64{11}, errMsg: "not part of this quiz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.load(t)

			result := f.handler.Answer(context.Background(), tt.questionID, tt.options...)

			if tt.errMsg == "" {
				require.True(t, result.OK, result.Message)
				assert.Equal(t, tt.options, result.Payload.(models.InterviewResponse).Payload.OptionIDs)
				return
			}
			assert.False(t, result.OK)
			assert.Equal(t, string(errors.ErrCodeValidationFailed), result.Code)
			assert.Contains(t, result.Message, tt.errMsg)
		})
	}
}

func TestHandler_Answer_ReplacesEarlierSelection(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	require.True(t, f.handler.Answer(context.Background(), 1, 12).OK)
	require.True(t, f.handler.Answer(context.Background(), 1, 11).OK)

	responses := f.agg.Responses(models.StageQuiz)
	require.Len(t, responses, 1)
	assert.Equal(t, []int64{11}, responses[0].Payload.OptionIDs)
	assert.Equal(t, 1, responses[0].Order)
}

func TestHandler_Answer_AfterTimeLimit(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	f.clock.Advance(9 * time.Minute)
	assert.Equal(t, time.Minute, f.handler.Remaining())

	f.clock.Advance(2 * time.Minute)
	result := f.handler.Answer(context.Background(), 1, 11)

	assert.False(t, result.OK)
	assert.Contains(t, result.Message, "Time is up")
	assert.Zero(t, f.handler.Remaining())
}

// ==========================
// Complete Tests
// ==========================

func TestHandler_Complete_SubmitsSheetOnce(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	require.True(t, f.handler.Answer(context.Background(), 1, 11).OK)
	require.True(t, f.handler.Answer(context.Background(), 2, 21, 22).OK)

	expected := []api.QuizAnswer{
		{QuestionID: 1, OptionID: 11},
		{QuestionID: 2, OptionID: 21},
		{QuestionID: 2, OptionID: 22},
	}
	f.api.On("SubmitQuizResponses", mock.Anything, expected).Return(nil).Once()

	result := f.handler.Complete(context.Background())

	require.True(t, result.OK, result.Message)
	assert.Equal(t, models.SealedOutcome{Stage: models.StageQuiz, Responses: 2, Unanswered: 1}, result.Payload)
	assert.True(t, f.agg.IsSettled(models.StageQuiz))

	again := f.handler.Complete(context.Background())
	require.True(t, again.OK)
	f.api.AssertNumberOfCalls(t, "SubmitQuizResponses", 1)

	late := f.handler.Answer(context.Background(), 3, 31)
	assert.Equal(t, string(errors.ErrCodeStageSealed), late.Code)
}

func TestHandler_Complete_RetryAfterSubmitFailure(t *testing.T) {
	f := newFixture(t)
	f.load(t)
	require.True(t, f.handler.Answer(context.Background(), 3, 32).OK)
	f.api.On("SubmitQuizResponses", mock.Anything, mock.Anything).
		Return(errors.NewNetworkError("submit_quiz_responses", fmt.Errorf("reset"))).Once()
	f.api.On("SubmitQuizResponses", mock.Anything, []api.QuizAnswer{{QuestionID: 3, OptionID: 32}}).Return(nil).Once()

	first := f.handler.Complete(context.Background())
	require.False(t, first.OK)
	assert.True(t, first.Retryable)

	second := f.handler.Complete(context.Background())
	require.True(t, second.OK, second.Message)
	assert.Equal(t, 2, second.Payload.(models.SealedOutcome).Unanswered)
}

func TestHandler_Complete_BeforeLoad(t *testing.T) {
	f := newFixture(t)

	result := f.handler.Complete(context.Background())

	assert.Equal(t, string(errors.ErrCodeStageContractViolation), result.Code)
}
