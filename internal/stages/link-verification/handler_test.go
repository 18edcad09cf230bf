package linkverification

import (
	"context"
	"testing"
	"time"

	"candidate-interview/internal/common/config"
	"candidate-interview/internal/common/errors"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Job Fetcher
// ==========================

type MockJobFetcher struct {
	mock.Mock
}

func (m *MockJobFetcher) FetchJobConfiguration(ctx context.Context, jobID int64) (*models.JobConfiguration, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JobConfiguration), args.Error(1)
}

// ==========================
// Test Helpers
// ==========================

func createValidConfig() *Config {
	return &Config{
		Timeout:   5 * time.Second,
		LinkParam: "job_id",
	}
}

func createValidJob(id int64) *models.JobConfiguration {
	return &models.JobConfiguration{
		JobID:         id,
		Title:         "Backend Engineer",
		CompanyName:   "Acme",
		Description:   "Build services",
		Requirements:  "Go",
		HasQuiz:       true,
		HasCodingTest: false,
	}
}

func newTestHandler(t *testing.T, jobs JobFetcher) *Handler {
	t.Helper()
	handler, err := NewHandler(HandlerOptions{
		CustomConfig: createValidConfig(),
		Jobs:         jobs,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return handler
}

// ==========================
// Handler Creation Tests
// ==========================

func TestHandler_NewHandler(t *testing.T) {
	tests := []struct {
		name    string
		opts    HandlerOptions
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid configuration",
			opts: HandlerOptions{
				CustomConfig: createValidConfig(),
				Jobs:         &MockJobFetcher{},
			},
			wantErr: false,
		},
		{
			name: "zero timeout",
			opts: HandlerOptions{
				CustomConfig: &Config{LinkParam: "job_id"},
				Jobs:         &MockJobFetcher{},
			},
			wantErr: true,
			errMsg:  "timeout must be positive",
		},
		{
			name: "missing link parameter",
			opts: HandlerOptions{
				CustomConfig: &Config{Timeout: time.Second},
				Jobs:         &MockJobFetcher{},
			},
			wantErr: true,
			errMsg:  "link_param is required",
		},
		{
			name: "missing job fetcher",
			opts: HandlerOptions{
				CustomConfig: createValidConfig(),
			},
			wantErr: true,
			errMsg:  "job fetcher is required",
		},
		{
			name: "app config stage timeout",
			opts: HandlerOptions{
				AppConfig: &config.Config{
					Stages: map[string]config.StageConfig{
						StageName: {Timeout: 2500},
					},
				},
				Jobs: &MockJobFetcher{},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, err := NewHandler(tt.opts)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.Nil(t, handler)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, handler)
			}
		})
	}
}

func TestHandler_ConfigFromAppConfig(t *testing.T) {
	handler, err := NewHandler(HandlerOptions{
		AppConfig: &config.Config{
			Stages: map[string]config.StageConfig{
				StageName: {Timeout: 2500},
			},
		},
		Jobs: &MockJobFetcher{},
	})
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, handler.GetConfig().Timeout)
	assert.Equal(t, "job_id", handler.GetConfig().LinkParam)
}

// ==========================
// Link Parsing Tests
// ==========================

func TestParseJobID(t *testing.T) {
	tests := []struct {
		name    string
		link    string
		want    int64
		wantErr bool
	}{
		{name: "full link", link: "https://interview.example.com/interview?job_id=42", want: 42},
		{name: "path with query", link: "/interview?job_id=7&src=mail", want: 7},
		{name: "bare query", link: "job_id=13", want: 13},
		{name: "leading question mark", link: "?job_id=99", want: 99},
		{name: "surrounding whitespace", link: "  ?job_id=5  ", want: 5},
		{name: "empty link", link: "", wantErr: true},
		{name: "missing parameter", link: "https://interview.example.com/interview?id=42", wantErr: true},
		{name: "empty parameter", link: "?job_id=", wantErr: true},
		{name: "non numeric", link: "?job_id=abc", wantErr: true},
		{name: "zero", link: "?job_id=0", wantErr: true},
		{name: "negative", link: "?job_id=-3", wantErr: true},
		{name: "fractional", link: "?job_id=4.5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJobID(tt.link, "job_id")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// ==========================
// Verify Tests
// ==========================

func TestHandler_Verify_Success(t *testing.T) {
	jobs := &MockJobFetcher{}
	jobs.On("FetchJobConfiguration", mock.Anything, int64(42)).Return(createValidJob(42), nil)
	handler := newTestHandler(t, jobs)

	result := handler.Verify(context.Background(), "https://interview.example.com/interview?job_id=42")

	require.True(t, result.OK)
	assert.Equal(t, models.StageLinkVerification, result.Stage)
	outcome, ok := result.Payload.(models.LinkOutcome)
	require.True(t, ok)
	assert.Equal(t, "Backend Engineer", outcome.Job.Title)
	assert.True(t, outcome.Job.HasQuiz)
	jobs.AssertExpectations(t)
}

func TestHandler_Verify_InvalidLinkNeverFetches(t *testing.T) {
	jobs := &MockJobFetcher{}
	handler := newTestHandler(t, jobs)

	for _, link := range []string{"", "?job_id=abc", "https://interview.example.com/interview"} {
		result := handler.Verify(context.Background(), link)

		assert.False(t, result.OK, link)
		assert.Equal(t, string(errors.ErrCodeLinkInvalid), result.Code, link)
		assert.False(t, result.Retryable, link)
	}
	jobs.AssertNotCalled(t, "FetchJobConfiguration", mock.Anything, mock.Anything)
}

func TestHandler_Verify_FetchFailure(t *testing.T) {
	jobs := &MockJobFetcher{}
	jobs.On("FetchJobConfiguration", mock.Anything, int64(42)).
		Return(nil, errors.NewServiceUnavailableError("fetch_job_configuration", 503))
	handler := newTestHandler(t, jobs)

	result := handler.Verify(context.Background(), "?job_id=42")

	assert.False(t, result.OK)
	assert.Equal(t, string(errors.ErrCodeJobConfigFetchFailed), result.Code)
	assert.NotEmpty(t, result.Message)
	jobs.AssertExpectations(t)
}

func TestHandler_Verify_MismatchedJob(t *testing.T) {
	jobs := &MockJobFetcher{}
	jobs.On("FetchJobConfiguration", mock.Anything, int64(42)).Return(createValidJob(41), nil)
	handler := newTestHandler(t, jobs)

	result := handler.Verify(context.Background(), "?job_id=42")

	assert.False(t, result.OK)
	assert.Equal(t, string(errors.ErrCodeJobConfigFetchFailed), result.Code)
}

func TestHandler_Verify_UsesTimeout(t *testing.T) {
	jobs := &MockJobFetcher{}
	jobs.On("FetchJobConfiguration", mock.Anything, int64(42)).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
		}).
		Return(createValidJob(42), nil)
	handler := newTestHandler(t, jobs)

	result := handler.Verify(context.Background(), "?job_id=42")
	assert.True(t, result.OK)
}
