package identityverification

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"candidate-interview/internal/api"
	"candidate-interview/internal/apistub"
	"candidate-interview/internal/common/config"
	"candidate-interview/internal/common/errors"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/credentials"
	"candidate-interview/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Verification API
// ==========================

type MockVerificationAPI struct {
	mock.Mock
}

func (m *MockVerificationAPI) SendOTP(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockVerificationAPI) VerifyOTP(ctx context.Context, email, code string) error {
	args := m.Called(ctx, email, code)
	return args.Error(0)
}

// ==========================
// Test Helpers
// ==========================

func createValidConfig() *Config {
	return &Config{Timeout: 5 * time.Second, CodeLength: 6}
}

func newTestHandler(t *testing.T, verificationAPI VerificationAPI, resumeEmail string) *Handler {
	t.Helper()
	handler, err := NewHandler(HandlerOptions{
		CustomConfig: createValidConfig(),
		API:          verificationAPI,
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	handler.Bind(resumeEmail)
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
			name:    "valid configuration",
			opts:    HandlerOptions{CustomConfig: createValidConfig(), API: &MockVerificationAPI{}},
			wantErr: false,
		},
		{
			name:    "code length too short",
			opts:    HandlerOptions{CustomConfig: &Config{Timeout: time.Second, CodeLength: 2}, API: &MockVerificationAPI{}},
			wantErr: true,
			errMsg:  "code_length must be between 4 and 10",
		},
		{
			name:    "missing api",
			opts:    HandlerOptions{CustomConfig: createValidConfig()},
			wantErr: true,
			errMsg:  "verification api is required",
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

func TestHandler_CodeLengthFromAppConfig(t *testing.T) {
	handler, err := NewHandler(HandlerOptions{
		AppConfig: &config.Config{Stages: map[string]config.StageConfig{
			StageName: {CodeLength: 8},
		}},
		API: &MockVerificationAPI{},
	})
	require.NoError(t, err)
	assert.Equal(t, 8, handler.GetConfig().CodeLength)
}

// ==========================
// SendCode Tests
// ==========================

func TestHandler_SendCode_MismatchRejectedLocally(t *testing.T) {
	verificationAPI := &MockVerificationAPI{}
	handler := newTestHandler(t, verificationAPI, "b@y.com")

	result := handler.SendCode(context.Background(), "c@z.com")

	assert.False(t, result.OK)
	assert.Equal(t, string(errors.ErrCodeEmailMismatch), result.Code)
	assert.Contains(t, result.Message, "email address from your resume")
	assert.Equal(t, StateUnverified, handler.State())
	verificationAPI.AssertNotCalled(t, "SendOTP", mock.Anything, mock.Anything)
}

func TestHandler_SendCode_AnyMismatchNeverReachesNetwork(t *testing.T) {
	verificationAPI := &MockVerificationAPI{}
	handler := newTestHandler(t, verificationAPI, "a@x.com")

	for _, email := range []string{"b@x.com", "a@x.co", "a+1@x.com", "ax.com", "", "A@X.COM", "a@X.com", "  a@x.com ", "  A@X.COM "} {
		result := handler.SendCode(context.Background(), email)
		assert.False(t, result.OK, email)
	}
	verificationAPI.AssertNotCalled(t, "SendOTP", mock.Anything, mock.Anything)
}

func TestHandler_SendCode_CaseVariantIsAnotherEmail(t *testing.T) {
	verificationAPI := &MockVerificationAPI{}
	verificationAPI.On("SendOTP", mock.Anything, "Ada@Example.com").Return(nil)
	handler := newTestHandler(t, verificationAPI, "Ada@Example.com")

	variant := handler.SendCode(context.Background(), "ada@example.com")
	assert.False(t, variant.OK)
	assert.Equal(t, string(errors.ErrCodeEmailMismatch), variant.Code)
	assert.Equal(t, StateUnverified, handler.State())
	verificationAPI.AssertNotCalled(t, "SendOTP", mock.Anything, mock.Anything)

	exact := handler.SendCode(context.Background(), "Ada@Example.com")
	require.True(t, exact.OK, exact.Message)
	assert.Equal(t, Progress{State: StateCodeSent, Email: "Ada@Example.com"}, exact.Payload)
}

func TestHandler_SendCode_ServiceFailureKeepsState(t *testing.T) {
	verificationAPI := &MockVerificationAPI{}
	verificationAPI.On("SendOTP", mock.Anything, "a@x.com").Return(errors.NewServiceUnavailableError("send_otp", 503))
	handler := newTestHandler(t, verificationAPI, "a@x.com")

	result := handler.SendCode(context.Background(), "a@x.com")

	assert.False(t, result.OK)
	assert.True(t, result.Retryable)
	assert.Equal(t, StateUnverified, handler.State())
}

func TestHandler_SendCode_WithoutResumeEmail(t *testing.T) {
	verificationAPI := &MockVerificationAPI{}
	handler := newTestHandler(t, verificationAPI, "")

	result := handler.SendCode(context.Background(), "a@x.com")

	assert.Equal(t, string(errors.ErrCodeStageContractViolation), result.Code)
	verificationAPI.AssertNotCalled(t, "SendOTP", mock.Anything, mock.Anything)
}

// ==========================
// VerifyCode Tests
// ==========================

func TestHandler_VerifyCode(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		code      string
		apiErr    error
		wantOK    bool
		wantCode  errors.ErrorCode
		wantState State
		apiCalled bool
	}{
		{name: "correct code", email: "a@x.com", code: "123456", wantOK: true, wantState: StateVerified, apiCalled: true},
		{name: "short code", email: "a@x.com", code: "12345", wantCode: errors.ErrCodeCodeFormatInvalid, wantState: StateCodeSent},
		{name: "letters in code", email: "a@x.com", code: "12a456", wantCode: errors.ErrCodeCodeFormatInvalid, wantState: StateCodeSent},
		{name: "other email", email: "c@z.com", code: "123456", wantCode: errors.ErrCodeEmailMismatch, wantState: StateCodeSent},
		{name: "case variant email", email: "A@x.com", code: "123456", wantCode: errors.ErrCodeEmailMismatch, wantState: StateCodeSent},
		{
			name: "wrong code", email: "a@x.com", code: "654321",
			apiErr:   errors.NewRequestRejectedError("verify_otp", 400, "Invalid OTP"),
			wantCode: errors.ErrCodeVerificationCodeInvalid, wantState: StateCodeSent, apiCalled: true,
		},
		{
			name: "network failure", email: "a@x.com", code: "123456",
			apiErr:   errors.NewNetworkError("verify_otp", assert.AnError),
			wantCode: errors.ErrCodeNetworkError, wantState: StateCodeSent, apiCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verificationAPI := &MockVerificationAPI{}
			verificationAPI.On("SendOTP", mock.Anything, "a@x.com").Return(nil)
			verificationAPI.On("VerifyOTP", mock.Anything, "a@x.com", tt.code).Return(tt.apiErr)
			handler := newTestHandler(t, verificationAPI, "a@x.com")
			require.True(t, handler.SendCode(context.Background(), "a@x.com").OK)

			result := handler.VerifyCode(context.Background(), tt.email, tt.code)

			assert.Equal(t, tt.wantOK, result.OK)
			if tt.wantOK {
				assert.Equal(t, models.IdentityOutcome{VerifiedEmail: "a@x.com"}, result.Payload)
			} else {
				assert.Equal(t, string(tt.wantCode), result.Code)
			}
			assert.Equal(t, tt.wantState, handler.State())
			if tt.apiCalled {
				verificationAPI.AssertCalled(t, "VerifyOTP", mock.Anything, "a@x.com", tt.code)
			} else {
				verificationAPI.AssertNotCalled(t, "VerifyOTP", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestHandler_VerifyCode_RetryWithoutResend(t *testing.T) {
	verificationAPI := &MockVerificationAPI{}
	verificationAPI.On("SendOTP", mock.Anything, "a@x.com").Return(nil).Once()
	verificationAPI.On("VerifyOTP", mock.Anything, "a@x.com", "000000").
		Return(errors.NewRequestRejectedError("verify_otp", 400, "Invalid OTP"))
	verificationAPI.On("VerifyOTP", mock.Anything, "a@x.com", "123456").Return(nil)
	handler := newTestHandler(t, verificationAPI, "a@x.com")

	require.True(t, handler.SendCode(context.Background(), "a@x.com").OK)
	for i := 0; i < 3; i++ {
		assert.False(t, handler.VerifyCode(context.Background(), "a@x.com", "000000").OK)
	}
	assert.True(t, handler.VerifyCode(context.Background(), "a@x.com", "123456").OK)

	verificationAPI.AssertNumberOfCalls(t, "SendOTP", 1)
	assert.Equal(t, StateVerified, handler.State())
}

func TestHandler_VerifyCode_BeforeSendIsInvalidTransition(t *testing.T) {
	verificationAPI := &MockVerificationAPI{}
	handler := newTestHandler(t, verificationAPI, "a@x.com")

	result := handler.VerifyCode(context.Background(), "a@x.com", "123456")

	assert.Equal(t, string(errors.ErrCodeInvalidTransition), result.Code)
	verificationAPI.AssertNotCalled(t, "VerifyOTP", mock.Anything, mock.Anything, mock.Anything)
}

// ==========================
// ChangeEmail Tests
// ==========================

func TestHandler_ChangeEmail(t *testing.T) {
	verificationAPI := &MockVerificationAPI{}
	verificationAPI.On("SendOTP", mock.Anything, "a@x.com").Return(nil)
	verificationAPI.On("VerifyOTP", mock.Anything, "a@x.com", "123456").Return(nil)
	handler := newTestHandler(t, verificationAPI, "a@x.com")

	require.True(t, handler.SendCode(context.Background(), "a@x.com").OK)
	require.True(t, handler.ChangeEmail().OK)
	assert.Equal(t, StateUnverified, handler.State())

	// The abandoned code cannot be verified any more.
	result := handler.VerifyCode(context.Background(), "a@x.com", "123456")
	assert.Equal(t, string(errors.ErrCodeInvalidTransition), result.Code)

	require.True(t, handler.SendCode(context.Background(), "a@x.com").OK)
	require.True(t, handler.VerifyCode(context.Background(), "a@x.com", "123456").OK)

	changed := handler.ChangeEmail()
	assert.False(t, changed.OK)
	assert.Equal(t, string(errors.ErrCodeInvalidTransition), changed.Code)
	assert.Equal(t, StateVerified, handler.State())
}

// ==========================
// Against the local backend
// ==========================

func TestHandler_AgainstLocalBackend(t *testing.T) {
	stub := apistub.New(apistub.Options{Logger: logger.NewNoOpLogger()})
	stub.AddJob(models.JobConfiguration{JobID: 42, Title: "Backend Engineer"})
	server := httptest.NewServer(stub.Handler())
	t.Cleanup(server.Close)

	ctx := context.Background()
	store := credentials.NewMemoryStore(logger.NewNoOpLogger())
	client := api.NewClient(api.Options{BaseURL: server.URL, Timeout: 5 * time.Second}, store)

	profile := apistub.DefaultProfile()
	profile.Email = "b@y.com"
	grant, err := client.CreateSession(ctx, profile, 42)
	require.NoError(t, err)
	require.NoError(t, store.SetSessionCredential(ctx, grant.Credential))

	handler := newTestHandler(t, client, "b@y.com")

	mismatch := handler.SendCode(ctx, "c@z.com")
	assert.Equal(t, string(errors.ErrCodeEmailMismatch), mismatch.Code)
	assert.Equal(t, 0, stub.Calls(api.OpSendOTP))

	require.True(t, handler.SendCode(ctx, "b@y.com").OK)
	code := stub.LastOTP("b@y.com")
	require.Len(t, code, 6)

	wrongCode := "000000"
	if code == wrongCode {
		wrongCode = "111111"
	}
	wrong := handler.VerifyCode(ctx, "b@y.com", wrongCode)
	assert.Equal(t, string(errors.ErrCodeVerificationCodeInvalid), wrong.Code)
	assert.Equal(t, StateCodeSent, handler.State())

	verified := handler.VerifyCode(ctx, "b@y.com", code)
	require.True(t, verified.OK, verified.Message)
	assert.Equal(t, "b@y.com", verified.Payload.(models.IdentityOutcome).VerifiedEmail)
}
