package codingassessment

import (
	"context"
	"fmt"
	"time"

	"candidate-interview/internal/aggregator"
	"candidate-interview/internal/common/config"
	"candidate-interview/internal/common/errors"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/common/metrics"
	"candidate-interview/internal/models"
)

const StageName = "coding-assessment"

type Handler struct {
	config  *Config
	logger  logger.Logger
	service *Service
	errors  *errors.ErrorHandler
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	API          CodingAPI
	Aggregator   *aggregator.Aggregator
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	stageConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := stageConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for coding-assessment: %w", err)
	}
	if opts.API == nil {
		return nil, fmt.Errorf("invalid configuration for coding-assessment: coding api is required")
	}
	if opts.Aggregator == nil {
		return nil, fmt.Errorf("invalid configuration for coding-assessment: aggregator is required")
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
		API:        opts.API,
		Aggregator: opts.Aggregator,
		Logger:     loggerInstance,
	}, stageConfig)

	return handler, nil
}

// Load returns the []models.CodingProblem as payload.
func (h *Handler) Load(ctx context.Context, sessionID string) models.StageResult {
	metrics.OperationsInFlight.WithLabelValues("load_coding").Inc()
	defer metrics.OperationsInFlight.WithLabelValues("load_coding").Dec()

	problems, err := h.service.Load(ctx, sessionID)
	if err != nil {
		return h.fail("load_coding", err)
	}
	return models.Succeeded(models.StageCoding, problems)
}

// Submit returns the stored models.InterviewResponse as payload.
func (h *Handler) Submit(ctx context.Context, problemID int64, language, code string) models.StageResult {
	metrics.OperationsInFlight.WithLabelValues("submit_coding").Inc()
	defer metrics.OperationsInFlight.WithLabelValues("submit_coding").Dec()

	response, err := h.service.Submit(ctx, &SubmitInput{ProblemID: problemID, Language: language, Code: code})
	if err != nil {
		return h.fail("submit_coding", err)
	}
	return models.Succeeded(models.StageCoding, response)
}

// Complete returns a models.SealedOutcome as payload.
func (h *Handler) Complete(ctx context.Context) models.StageResult {
	outcome, err := h.service.Complete(ctx)
	if err != nil {
		return h.fail("complete_coding", err)
	}
	return models.Succeeded(models.StageCoding, *outcome)
}

func (h *Handler) GetConfig() *Config {
	return h.config
}

func (h *Handler) fail(operation string, err error) models.StageResult {
	stdErr := h.errors.HandleStageError(StageName, operation, err)
	return models.Failed(models.StageCoding, string(stdErr.Code), stdErr.Message, stdErr.Retryable)
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
