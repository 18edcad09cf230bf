package sessioncreation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"candidate-interview/internal/api"
	"candidate-interview/internal/common/clock"
	"candidate-interview/internal/common/errors"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/credentials"
	"candidate-interview/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Session API
// ==========================

type MockSessionAPI struct {
	mock.Mock
}

func (m *MockSessionAPI) CreateSession(ctx context.Context, profile models.CandidateProfile, jobID int64) (*api.SessionGrant, error) {
	args := m.Called(ctx, profile, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.SessionGrant), args.Error(1)
}

func (m *MockSessionAPI) UploadResume(ctx context.Context, file models.ResumeFile) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}

func (m *MockSessionAPI) AnalyzeResume(ctx context.Context) (*models.MatchAnalysis, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MatchAnalysis), args.Error(1)
}

// ==========================
// Test Helpers
// ==========================

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func createValidConfig() *Config {
	return &Config{
		Timeout:         5 * time.Second,
		AnalysisTimeout: 5 * time.Second,
	}
}

func createValidProfile() models.CandidateProfile {
	return models.CandidateProfile{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "a@x.com",
		Phone:     "+44 20 7946 0000",
	}
}

func createValidFile() models.ResumeFile {
	return models.ResumeFile{Name: "ada.pdf", Data: []byte("%PDF")}
}

func createGrant(sessionID, token string) *api.SessionGrant {
	return &api.SessionGrant{
		SessionID:  sessionID,
		Profile:    createValidProfile(),
		Credential: token,
	}
}

type fixture struct {
	handler *Handler
	api     *MockSessionAPI
	store   *credentials.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sessionAPI := &MockSessionAPI{}
	store := credentials.NewMemoryStore(logger.NewNoOpLogger())
	handler, err := NewHandler(HandlerOptions{
		CustomConfig: createValidConfig(),
		API:          sessionAPI,
		Credentials:  store,
		Clock:        clock.Fake(testNow),
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return &fixture{handler: handler, api: sessionAPI, store: store}
}

func (f *fixture) credential(t *testing.T) string {
	t.Helper()
	token, err := f.store.SessionCredential(context.Background())
	require.NoError(t, err)
	return token
}

// ==========================
// Handler Creation Tests
// ==========================

func TestHandler_NewHandler(t *testing.T) {
	store := credentials.NewMemoryStore(nil)
	tests := []struct {
		name    string
		opts    HandlerOptions
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid configuration",
			opts:    HandlerOptions{CustomConfig: createValidConfig(), API: &MockSessionAPI{}, Credentials: store},
			wantErr: false,
		},
		{
			name:    "zero analysis timeout",
			opts:    HandlerOptions{CustomConfig: &Config{Timeout: time.Second}, API: &MockSessionAPI{}, Credentials: store},
			wantErr: true,
			errMsg:  "analysis_timeout must be positive",
		},
		{
			name:    "missing api",
			opts:    HandlerOptions{CustomConfig: createValidConfig(), Credentials: store},
			wantErr: true,
			errMsg:  "session api is required",
		},
		{
			name:    "missing credential store",
			opts:    HandlerOptions{CustomConfig: createValidConfig(), API: &MockSessionAPI{}},
			wantErr: true,
			errMsg:  "credential store is required",
		},
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
// Session Creation Tests
// ==========================

func TestHandler_Create_StoresCredentialAndUploads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.api.On("CreateSession", mock.Anything, createValidProfile(), int64(42)).Return(createGrant("1001", "tok123"), nil)
	f.api.On("UploadResume", mock.Anything, createValidFile()).Return(nil)

	result := f.handler.Create(ctx, createValidProfile(), 42, createValidFile())

	require.True(t, result.OK, result.Message)
	outcome := result.Payload.(models.ResumeIntakeOutcome)
	assert.Equal(t, "1001", outcome.SessionID)
	assert.Equal(t, "ada.pdf", outcome.ResumeReference)
	assert.Equal(t, "a@x.com", outcome.Profile.Email)
	assert.Equal(t, "tok123", f.credential(t))
	assert.Equal(t, "1001", f.handler.SessionID())
	f.api.AssertExpectations(t)
}

func TestHandler_Create_ClearsStaleCredentialFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SetSessionCredential(ctx, "stale-token"))

	f.api.On("CreateSession", mock.Anything, mock.Anything, int64(42)).
		Run(func(args mock.Arguments) {
			assert.False(t, f.store.HasSessionCredential(ctx), "stale credential must be gone before the session is created")
		}).
		Return(nil, errors.NewServiceUnavailableError("create_session", 503))

	result := f.handler.Create(ctx, createValidProfile(), 42, createValidFile())

	assert.False(t, result.OK)
	assert.Equal(t, string(errors.ErrCodeServiceUnavailable), result.Code)
	assert.Empty(t, f.credential(t))
	f.api.AssertNotCalled(t, "UploadResume", mock.Anything, mock.Anything)
}

func TestHandler_Create_AuthExtractionFailure(t *testing.T) {
	f := newFixture(t)
	f.api.On("CreateSession", mock.Anything, mock.Anything, int64(42)).
		Return(nil, errors.NewAuthExtractionFailedError("authorization header absent"))

	result := f.handler.Create(context.Background(), createValidProfile(), 42, createValidFile())

	assert.False(t, result.OK)
	assert.Equal(t, string(errors.ErrCodeAuthExtractionFailed), result.Code)
	assert.Empty(t, f.credential(t))
	f.api.AssertNotCalled(t, "UploadResume", mock.Anything, mock.Anything)
}

func TestHandler_Create_RetryAfterUploadFailureOnlyReuploads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.api.On("CreateSession", mock.Anything, mock.Anything, int64(42)).Return(createGrant("1001", "tok123"), nil).Once()
	f.api.On("UploadResume", mock.Anything, mock.Anything).Return(errors.NewNetworkError("upload_resume", fmt.Errorf("reset"))).Once()
	f.api.On("UploadResume", mock.Anything, mock.Anything).Return(nil).Once()

	first := f.handler.Create(ctx, createValidProfile(), 42, createValidFile())
	require.False(t, first.OK)
	assert.Equal(t, string(errors.ErrCodeNetworkError), first.Code)
	assert.Equal(t, "tok123", f.credential(t))

	second := f.handler.Create(ctx, createValidProfile(), 42, createValidFile())
	require.True(t, second.OK, second.Message)

	f.api.AssertNumberOfCalls(t, "CreateSession", 1)
	f.api.AssertNumberOfCalls(t, "UploadResume", 2)
}

func TestHandler_Create_NeverReusesSessionID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.api.On("CreateSession", mock.Anything, mock.Anything, int64(42)).Return(createGrant("1001", "tok123"), nil)
	f.api.On("UploadResume", mock.Anything, mock.Anything).Return(nil)

	require.True(t, f.handler.Create(ctx, createValidProfile(), 42, createValidFile()).OK)

	// The credential is revoked; a second grant for the same session is refused.
	require.NoError(t, f.store.ClearSessionCredential(ctx))
	result := f.handler.Create(ctx, createValidProfile(), 42, createValidFile())

	assert.False(t, result.OK)
	assert.Equal(t, string(errors.ErrCodeCredentialAlreadyIssued), result.Code)
	assert.Empty(t, f.credential(t))
}

func TestHandler_Create_RejectsIncompleteInput(t *testing.T) {
	f := newFixture(t)

	result := f.handler.Create(context.Background(), createValidProfile(), 42, models.ResumeFile{})

	assert.False(t, result.OK)
	assert.Equal(t, string(errors.ErrCodeValidationFailed), result.Code)
	f.api.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything, mock.Anything)
}

// ==========================
// Upload Tests
// ==========================

func TestHandler_UploadWithoutSessionCredentialNeverUsesRecruiterCredential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.api.On("CreateSession", mock.Anything, mock.Anything, int64(42)).Return(createGrant("1001", "tok123"), nil)
	f.api.On("UploadResume", mock.Anything, mock.Anything).Return(nil)
	require.True(t, f.handler.Create(ctx, createValidProfile(), 42, createValidFile()).OK)

	require.NoError(t, f.store.ClearSessionCredential(ctx))
	require.NoError(t, f.store.SetRecruiterCredential(ctx, "recruiter-token"))

	result := f.handler.UploadResumeFile(ctx, createValidFile())

	assert.False(t, result.OK)
	assert.Equal(t, string(errors.ErrCodeAuthorizationFailed), result.Code)
	f.api.AssertNumberOfCalls(t, "UploadResume", 1)
}

func TestHandler_UploadResumeFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SetSessionCredential(ctx, "tok123"))
	f.handler.Restore("1001", createValidProfile(), "old.pdf")
	f.api.On("UploadResume", mock.Anything, createValidFile()).Return(nil)

	result := f.handler.UploadResumeFile(ctx, createValidFile())

	require.True(t, result.OK)
	assert.Equal(t, "ada.pdf", result.Payload)
}

// ==========================
// Match Analysis Tests
// ==========================

func TestHandler_RequestMatchAnalysis(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SetSessionCredential(ctx, "tok123"))
	f.api.On("AnalyzeResume", mock.Anything).Return(&models.MatchAnalysis{Score: 72, Feedback: "Strong Go"}, nil)

	result := f.handler.RequestMatchAnalysis(ctx)

	require.True(t, result.OK)
	analysis := result.Payload.(models.MatchAnalysis)
	assert.Equal(t, 72.0, analysis.Score)
	assert.True(t, analysis.IsGreatMatch())
	assert.Equal(t, testNow, analysis.AnalyzedAt)
}

func TestHandler_RequestMatchAnalysis_FailureIsNonFatal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SetSessionCredential(ctx, "tok123"))
	f.api.On("AnalyzeResume", mock.Anything).Return(nil, errors.NewServiceUnavailableError("analyze_resume", 500))

	result := f.handler.RequestMatchAnalysis(ctx)

	assert.False(t, result.OK)
	assert.Equal(t, string(errors.ErrCodeAnalysisFailed), result.Code)
	assert.True(t, result.Retryable)
	assert.False(t, errors.IsFatal(errors.ErrorCode(result.Code)))
}

func TestHandler_RequestMatchAnalysis_WithoutCredential(t *testing.T) {
	f := newFixture(t)

	result := f.handler.RequestMatchAnalysis(context.Background())

	assert.False(t, result.OK)
	assert.Equal(t, string(errors.ErrCodeAuthorizationFailed), result.Code)
	f.api.AssertNotCalled(t, "AnalyzeResume", mock.Anything)
}

func TestHandler_RequestMatchAnalysis_ServerRejectsCredential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SetSessionCredential(ctx, "tok123"))
	f.api.On("AnalyzeResume", mock.Anything).Return(nil, errors.NewAuthorizationFailedError("analyze_resume"))

	result := f.handler.RequestMatchAnalysis(ctx)

	assert.Equal(t, string(errors.ErrCodeAuthorizationFailed), result.Code)
}
