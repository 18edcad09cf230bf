package videointerview

import (
	"context"
	"fmt"
	"time"

	"candidate-interview/internal/aggregator"
	"candidate-interview/internal/api"
	"candidate-interview/internal/common/config"
	"candidate-interview/internal/common/errors"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/common/metrics"
	"candidate-interview/internal/models"
)

const StageName = "video-interview"

type Handler struct {
	config  *Config
	logger  logger.Logger
	service *Service
	errors  *errors.ErrorHandler
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	API          InterviewAPI
	Aggregator   *aggregator.Aggregator
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	stageConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := stageConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for video-interview: %w", err)
	}
	if opts.API == nil {
		return nil, fmt.Errorf("invalid configuration for video-interview: interview api is required")
	}
	if opts.Aggregator == nil {
		return nil, fmt.Errorf("invalid configuration for video-interview: aggregator is required")
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

// Start returns the []models.InterviewQuestion as payload.
func (h *Handler) Start(ctx context.Context) models.StageResult {
	metrics.OperationsInFlight.WithLabelValues("generate_questions").Inc()
	defer metrics.OperationsInFlight.WithLabelValues("generate_questions").Dec()

	questions, err := h.service.Start(ctx)
	if err != nil {
		return h.fail("generate_questions", err)
	}
	return models.Succeeded(models.StageVideoInterview, questions)
}

// AnswerText returns the stored models.InterviewResponse as payload.
func (h *Handler) AnswerText(ctx context.Context, order int, answer string) models.StageResult {
	metrics.OperationsInFlight.WithLabelValues("submit_text").Inc()
	defer metrics.OperationsInFlight.WithLabelValues("submit_text").Dec()

	response, err := h.service.AnswerText(ctx, &TextInput{Order: order, Answer: answer})
	if err != nil {
		return h.fail("submit_text", err)
	}
	return models.Succeeded(models.StageVideoInterview, response)
}

// AnswerAudio returns the stored models.InterviewResponse as payload.
func (h *Handler) AnswerAudio(ctx context.Context, order int, clip api.AudioClip) models.StageResult {
	metrics.OperationsInFlight.WithLabelValues("submit_audio").Inc()
	defer metrics.OperationsInFlight.WithLabelValues("submit_audio").Dec()

	response, err := h.service.AnswerAudio(ctx, &AudioInput{Order: order, Clip: clip})
	if err != nil {
		return h.fail("submit_audio", err)
	}
	return models.Succeeded(models.StageVideoInterview, response)
}

// Complete returns a models.SealedOutcome as payload.
func (h *Handler) Complete(ctx context.Context) models.StageResult {
	outcome, err := h.service.Complete(ctx)
	if err != nil {
		return h.fail("complete_interview", err)
	}
	return models.Succeeded(models.StageVideoInterview, *outcome)
}

func (h *Handler) GetConfig() *Config {
	return h.config
}

func (h *Handler) fail(operation string, err error) models.StageResult {
	stdErr := h.errors.HandleStageError(StageName, operation, err)
	return models.Failed(models.StageVideoInterview, string(stdErr.Code), stdErr.Message, stdErr.Retryable)
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
