package errors

import (
	"candidate-interview/internal/common/metrics"
)

// ErrorHandler classifies stage failures: every error leaving a stage is
// normalized, logged with its details and counted, and only the
// candidate-facing message travels on.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleStageError normalizes err for the given stage and operation.
func (h *ErrorHandler) HandleStageError(stage, operation string, err error) *StandardError {
	if err == nil {
		return nil
	}
	stdErr := Normalize(err)

	metrics.StageFailures.WithLabelValues(stage, string(stdErr.Code)).Inc()
	h.logError(stage, operation, stdErr)

	return stdErr
}

func (h *ErrorHandler) logError(stage, operation string, stdErr *StandardError) {
	if h.logger == nil {
		return
	}
	fields := map[string]interface{}{
		"stage":         stage,
		"operation":     operation,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"retries":       GetRetryCount(stdErr.Code),
		"errorCategory": GetErrorCategory(stdErr.Code),
	}
	for k, v := range stdErr.Metadata {
		fields[k] = v
	}

	// Soft failures and candidate input mistakes are expected traffic.
	switch GetErrorCategory(stdErr.Code) {
	case CategoryNonFatal, CategoryValidation, CategoryFlow:
		h.logger.Warn("Stage operation failed", fields)
	default:
		h.logger.Error("Stage operation failed", fields)
	}
}
