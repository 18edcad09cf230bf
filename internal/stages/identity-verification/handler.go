package identityverification

import (
	"context"
	"fmt"
	"time"

	"candidate-interview/internal/common/config"
	"candidate-interview/internal/common/errors"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/common/metrics"
	"candidate-interview/internal/common/validation"
	"candidate-interview/internal/models"
)

const StageName = "identity-verification"

type Handler struct {
	config  *Config
	logger  logger.Logger
	service *Service
	errors  *errors.ErrorHandler
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	API          VerificationAPI
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	stageConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := stageConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for identity-verification: %w", err)
	}
	if opts.API == nil {
		return nil, fmt.Errorf("invalid configuration for identity-verification: verification api is required")
	}

	var loggerInstance logger.Logger
	if opts.Logger != nil {
		loggerInstance = opts.Logger
	} else {
		loggerInstance = logger.NewStructured("info", "json")
	}
	loggerInstance = loggerInstance.WithFields(map[string]interface{}{"stage": StageName})

	handler := &Handler{
		config: stageConfig,
		logger: loggerInstance,
		errors: errors.NewErrorHandler(loggerInstance),
	}
	handler.service = NewService(ServiceDependencies{
		API:    opts.API,
		Logger: loggerInstance,
	}, stageConfig)

	return handler, nil
}

// Bind attaches the resume email and resets verification progress.
func (h *Handler) Bind(resumeEmail string) {
	h.service.Bind(resumeEmail)
}

// SendCode requests a one-time code. The payload is a Progress.
func (h *Handler) SendCode(ctx context.Context, email string) models.StageResult {
	metrics.OperationsInFlight.WithLabelValues("send_code").Inc()
	defer metrics.OperationsInFlight.WithLabelValues("send_code").Dec()

	if err := h.validateEmail(email); err != nil {
		return h.fail("send_code", err)
	}
	progress, err := h.service.SendCode(ctx, &SendInput{Email: email})
	if err != nil {
		return h.fail("send_code", err)
	}
	return models.Succeeded(models.StageIdentityVerification, *progress)
}

// VerifyCode submits a code. The payload is a models.IdentityOutcome.
func (h *Handler) VerifyCode(ctx context.Context, email, code string) models.StageResult {
	metrics.OperationsInFlight.WithLabelValues("verify_code").Inc()
	defer metrics.OperationsInFlight.WithLabelValues("verify_code").Dec()

	if err := h.validateEmail(email); err != nil {
		return h.fail("verify_code", err)
	}
	verified, err := h.service.VerifyCode(ctx, &VerifyInput{Email: email, Code: code})
	if err != nil {
		return h.fail("verify_code", err)
	}
	return models.Succeeded(models.StageIdentityVerification, models.IdentityOutcome{VerifiedEmail: verified})
}

// ChangeEmail moves back from CodeSent to Unverified.
func (h *Handler) ChangeEmail() models.StageResult {
	progress, err := h.service.ChangeEmail()
	if err != nil {
		return h.fail("change_email", err)
	}
	return models.Succeeded(models.StageIdentityVerification, *progress)
}

func (h *Handler) State() State {
	return h.service.State()
}

func (h *Handler) GetConfig() *Config {
	return h.config
}

func (h *Handler) validateEmail(email string) error {
	result := validation.ValidateInput(map[string]interface{}{"email": email}, GetSendSchema())
	if !result.Valid || !validation.ValidateEmail(email) {
		return errors.NewValidationFailedError("Please enter a valid email address.", fmt.Sprintf("%v", result.GetErrorMessages()))
	}
	return nil
}

func (h *Handler) fail(operation string, err error) models.StageResult {
	stdErr := h.errors.HandleStageError(StageName, operation, err)
	return models.Failed(models.StageIdentityVerification, string(stdErr.Code), stdErr.Message, stdErr.Retryable)
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()
	if appConfig != nil {
		stageCfg := config.GetStageConfig(appConfig, StageName)
		if stageCfg.Timeout > 0 {
			cfg.Timeout = time.Duration(stageCfg.Timeout) * time.Millisecond
		}
		if stageCfg.CodeLength > 0 {
			cfg.CodeLength = stageCfg.CodeLength
		}
	}
	return cfg
}
