package linkverification

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

const StageName = "link-verification"

type Handler struct {
	config  *Config
	logger  logger.Logger
	service *Service
	errors  *errors.ErrorHandler
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Jobs         JobFetcher
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	stageConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := stageConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for link-verification: %w", err)
	}
	if opts.Jobs == nil {
		return nil, fmt.Errorf("invalid configuration for link-verification: job fetcher is required")
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
		Jobs:   opts.Jobs,
		Logger: loggerInstance,
	}, stageConfig)

	return handler, nil
}

// Verify resolves the link and loads its job configuration.
func (h *Handler) Verify(ctx context.Context, link string) models.StageResult {
	metrics.OperationsInFlight.WithLabelValues("verify_link").Inc()
	defer metrics.OperationsInFlight.WithLabelValues("verify_link").Dec()

	input, err := h.parseInput(link)
	if err != nil {
		return h.fail("verify_link", err)
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		return h.fail("verify_link", err)
	}
	return models.Succeeded(models.StageLinkVerification, models.LinkOutcome{Job: output.Job})
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.service.Execute(ctx, input)
}

func (h *Handler) GetConfig() *Config {
	return h.config
}

func (h *Handler) parseInput(link string) (*Input, error) {
	result := validation.ValidateInput(map[string]interface{}{"link": link}, GetInputSchema())
	if !result.Valid {
		return nil, errors.NewLinkInvalidError(fmt.Sprintf("validation errors: %v", result.GetErrorMessages()))
	}
	return &Input{Link: link}, nil
}

func (h *Handler) fail(operation string, err error) models.StageResult {
	stdErr := h.errors.HandleStageError(StageName, operation, err)
	return models.Failed(models.StageLinkVerification, string(stdErr.Code), stdErr.Message, stdErr.Retryable)
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
	}
	return cfg
}
