// Package errors provides the error taxonomy shared by every interview stage.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Link and job configuration errors. Fatal to the whole flow.
const (
	ErrCodeLinkInvalid          ErrorCode = "LINK_INVALID"
	ErrCodeJobConfigFetchFailed ErrorCode = "JOB_CONFIG_FETCH_FAILED"
)

// Validation errors. Local to the active stage.
const (
	ErrCodeValidationFailed        ErrorCode = "VALIDATION_FAILED"
	ErrCodeEmailMismatch           ErrorCode = "EMAIL_MISMATCH"
	ErrCodeCodeFormatInvalid       ErrorCode = "CODE_FORMAT_INVALID"
	ErrCodeStageContractViolation  ErrorCode = "STAGE_CONTRACT_VIOLATION"
	ErrCodeStageSealed             ErrorCode = "STAGE_SEALED"
	ErrCodeVerificationCodeInvalid ErrorCode = "VERIFICATION_CODE_INVALID"
)

// Authorization errors. Never retried with another credential.
const (
	ErrCodeAuthorizationFailed     ErrorCode = "AUTHORIZATION_FAILED"
	ErrCodeAuthExtractionFailed    ErrorCode = "AUTH_EXTRACTION_FAILED"
	ErrCodeCredentialAlreadyIssued ErrorCode = "CREDENTIAL_ALREADY_ISSUED"
	ErrCodeCredentialStoreFailed   ErrorCode = "CREDENTIAL_STORE_FAILED"
)

// Network errors.
const (
	ErrCodeNetworkError       ErrorCode = "NETWORK_ERROR"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeRequestRejected    ErrorCode = "REQUEST_REJECTED"
	ErrCodeMalformedResponse  ErrorCode = "MALFORMED_RESPONSE"
)

// Non-fatal analysis errors.
const (
	ErrCodeAnalysisFailed ErrorCode = "ANALYSIS_FAILED"
	ErrCodeFeedbackFailed ErrorCode = "FEEDBACK_FAILED"
)

// Terminal errors.
const (
	ErrCodeSessionTerminated ErrorCode = "SESSION_TERMINATED"
)

// Flow errors raised by the stage controller itself.
const (
	ErrCodeOperationInProgress ErrorCode = "OPERATION_IN_PROGRESS"
	ErrCodeStaleResult         ErrorCode = "STALE_RESULT"
	ErrCodeInvalidTransition   ErrorCode = "INVALID_TRANSITION"
	ErrCodeSubmissionsPending  ErrorCode = "SUBMISSIONS_PENDING"
	ErrCodeInternal            ErrorCode = "INTERNAL_ERROR"
)

// Storage errors from the snapshot, credential and review backends.
const (
	ErrCodeStorageFailed ErrorCode = "STORAGE_FAILED"
)

// StandardError represents a structured application error. Message is safe
// to show to the candidate; Details is for logs only.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a metadata entry and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewLinkInvalidError creates a permanent link error. The candidate needs a new link.
func NewLinkInvalidError(details string) *StandardError {
	return newError(ErrCodeLinkInvalid,
		"This interview link is invalid. Please request a new link from the recruiter.",
		details, false)
}

// NewJobConfigFetchFailedError creates a fatal configuration error. Only the
// configuration fetch may be retried.
func NewJobConfigFetchFailedError(jobID int64, err error) *StandardError {
	return newError(ErrCodeJobConfigFetchFailed,
		"We could not load this interview. Please try again.",
		fmt.Sprintf("jobId: %d, error: %v", jobID, err), false)
}

// NewValidationFailedError creates a stage-local validation error.
func NewValidationFailedError(message, details string) *StandardError {
	return newError(ErrCodeValidationFailed, message, details, false)
}

// NewEmailMismatchError rejects verification of an address other than the resume email.
func NewEmailMismatchError(email string) *StandardError {
	return newError(ErrCodeEmailMismatch,
		"Please use the email address from your resume.",
		fmt.Sprintf("email: %s", email), false)
}

// NewCodeFormatInvalidError rejects a verification code of the wrong shape.
func NewCodeFormatInvalidError(length int) *StandardError {
	return newError(ErrCodeCodeFormatInvalid,
		fmt.Sprintf("The verification code must be %d digits.", length),
		"", false)
}

// NewVerificationCodeInvalidError reports a code the service did not accept.
func NewVerificationCodeInvalidError(details string) *StandardError {
	return newError(ErrCodeVerificationCodeInvalid,
		"That code is not correct. Please check your email and try again.",
		details, false)
}

// NewStageContractViolationError reports a stage result missing its exit data.
func NewStageContractViolationError(stage, details string) *StandardError {
	return newError(ErrCodeStageContractViolation,
		"This step is not complete yet.",
		fmt.Sprintf("stage: %s, %s", stage, details), false)
}

// NewStageSealedError rejects a response submitted after its stage completed.
func NewStageSealedError(stage string) *StandardError {
	return newError(ErrCodeStageSealed,
		"This section has already been submitted.",
		fmt.Sprintf("stage: %s", stage), false)
}

// NewAuthorizationFailedError reports an authenticated call without a session credential.
func NewAuthorizationFailedError(operation string) *StandardError {
	return newError(ErrCodeAuthorizationFailed,
		"Your interview session is not authorized. Please restart from your interview link.",
		fmt.Sprintf("operation: %s", operation), false)
}

// NewAuthExtractionFailedError reports a session response without a usable bearer token.
func NewAuthExtractionFailedError(details string) *StandardError {
	return newError(ErrCodeAuthExtractionFailed,
		"We could not start your interview session. Please try again.",
		details, true)
}

// NewCredentialAlreadyIssuedError rejects a second credential for the same session.
func NewCredentialAlreadyIssuedError(sessionID string) *StandardError {
	return newError(ErrCodeCredentialAlreadyIssued,
		"An interview session is already active for this link.",
		fmt.Sprintf("sessionId: %s", sessionID), false)
}

// NewCredentialStoreFailedError wraps a credential backend failure.
func NewCredentialStoreFailedError(err error) *StandardError {
	return newError(ErrCodeCredentialStoreFailed,
		"We could not save your interview session. Please try again.",
		err.Error(), true)
}

// NewNetworkError wraps a transport failure.
func NewNetworkError(operation string, err error) *StandardError {
	return newError(ErrCodeNetworkError,
		"A network error occurred. Please check your connection and try again.",
		fmt.Sprintf("operation: %s, error: %v", operation, err), true)
}

// NewServiceUnavailableError reports a 5xx answer from the interview service.
func NewServiceUnavailableError(operation string, status int) *StandardError {
	return newError(ErrCodeServiceUnavailable,
		"The interview service is temporarily unavailable. Please try again.",
		fmt.Sprintf("operation: %s, status: %d", operation, status), true)
}

// NewRequestRejectedError reports a 4xx answer. message is the server's own
// explanation when it sent one.
func NewRequestRejectedError(operation string, status int, message string) *StandardError {
	if message == "" {
		message = "The request could not be completed."
	}
	return newError(ErrCodeRequestRejected, message,
		fmt.Sprintf("operation: %s, status: %d", operation, status), false)
}

// NewMalformedResponseError reports a response body that failed decoding or schema checks.
func NewMalformedResponseError(operation string, err error) *StandardError {
	return newError(ErrCodeMalformedResponse,
		"The interview service returned an unexpected response.",
		fmt.Sprintf("operation: %s, error: %v", operation, err), true)
}

// NewAnalysisFailedError wraps a failed match analysis. Non-fatal.
func NewAnalysisFailedError(err error) *StandardError {
	return newError(ErrCodeAnalysisFailed,
		"We could not analyze your resume right now. You can continue with the interview.",
		errDetails(err), true)
}

// NewFeedbackFailedError wraps a failed feedback request. Non-fatal.
func NewFeedbackFailedError(err error) *StandardError {
	return newError(ErrCodeFeedbackFailed,
		"Detailed feedback is not available right now.",
		errDetails(err), true)
}

// NewSessionTerminatedError reports that the session was revoked.
func NewSessionTerminatedError(reason string) *StandardError {
	return newError(ErrCodeSessionTerminated,
		"This interview session has ended. Please restart from your interview link.",
		fmt.Sprintf("reason: %s", reason), false)
}

// NewOperationInProgressError rejects a duplicate submission.
func NewOperationInProgressError(operation string) *StandardError {
	return newError(ErrCodeOperationInProgress,
		"Please wait for the current request to finish.",
		fmt.Sprintf("operation: %s", operation), false)
}

// NewStaleResultError reports a result that arrived after its stage was left.
func NewStaleResultError(stage string) *StandardError {
	return newError(ErrCodeStaleResult,
		"This step is no longer active.",
		fmt.Sprintf("stage: %s", stage), false)
}

// NewInvalidTransitionError reports an action not allowed in the current stage.
func NewInvalidTransitionError(from, to string) *StandardError {
	return newError(ErrCodeInvalidTransition,
		"This action is not available right now.",
		fmt.Sprintf("from: %s, to: %s", from, to), false)
}

// NewSubmissionsPendingError reports stages that are not sealed yet.
func NewSubmissionsPendingError(stages []string) *StandardError {
	return newError(ErrCodeSubmissionsPending,
		"Please finish all interview sections first.",
		fmt.Sprintf("pending: %s", strings.Join(stages, ",")), false)
}

// NewStorageFailedError wraps a persistence backend failure.
func NewStorageFailedError(operation string, err error) *StandardError {
	return newError(ErrCodeStorageFailed,
		"We could not save your progress.",
		fmt.Sprintf("operation: %s, error: %v", operation, err), true)
}

func errDetails(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 3. Classification
// ==========================

// As extracts a StandardError from err's chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	if stdErr, ok := As(err); ok {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Something went wrong. Please try again.",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Code == code
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeNetworkError,
		ErrCodeServiceUnavailable:
		return 3 // transport-level retries

	case ErrCodeMalformedResponse,
		ErrCodeAuthExtractionFailed,
		ErrCodeCredentialStoreFailed,
		ErrCodeStorageFailed:
		return 1

	default:
		return 0 // business errors: no retry
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// Error categories.
const (
	CategoryLink          = "LINK"
	CategoryValidation    = "VALIDATION"
	CategoryAuthorization = "AUTHORIZATION"
	CategoryNetwork       = "NETWORK"
	CategoryNonFatal      = "NON_FATAL"
	CategoryTerminal      = "TERMINAL"
	CategoryFlow          = "FLOW"
	CategoryStorage       = "STORAGE"
	CategoryOther         = "OTHER"
)

func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeLinkInvalid, ErrCodeJobConfigFetchFailed:
		return CategoryLink
	case ErrCodeAnalysisFailed, ErrCodeFeedbackFailed:
		return CategoryNonFatal
	case ErrCodeSessionTerminated:
		return CategoryTerminal
	case ErrCodeOperationInProgress, ErrCodeStaleResult, ErrCodeInvalidTransition, ErrCodeSubmissionsPending:
		return CategoryFlow
	case ErrCodeStorageFailed:
		return CategoryStorage
	}

	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "AUTH") || strings.Contains(codeStr, "CREDENTIAL"):
		return CategoryAuthorization
	case strings.Contains(codeStr, "NETWORK") || strings.Contains(codeStr, "SERVICE") ||
		strings.Contains(codeStr, "REQUEST") || strings.Contains(codeStr, "RESPONSE"):
		return CategoryNetwork
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION") ||
		strings.Contains(codeStr, "MISMATCH") || strings.Contains(codeStr, "STAGE"):
		return CategoryValidation
	default:
		return CategoryOther
	}
}

// IsFatal reports whether a code ends the whole flow rather than the current attempt.
func IsFatal(code ErrorCode) bool {
	switch GetErrorCategory(code) {
	case CategoryLink, CategoryTerminal:
		return true
	}
	return false
}
