package quiz

import (
	"context"
	"fmt"
	"time"

	"candidate-interview/internal/aggregator"
	"candidate-interview/internal/common/clock"
	"candidate-interview/internal/common/config"
	"candidate-interview/internal/common/errors"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/common/metrics"
	"candidate-interview/internal/models"
)

const StageName = "quiz"

type Handler struct {
	config  *Config
	logger  logger.Logger
	service *Service
	errors  *errors.ErrorHandler
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	API          QuizAPI
	Aggregator   *aggregator.Aggregator
	Clock        clock.Clock
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	stageConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := stageConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for quiz: %w", err)
	}
	if opts.API == nil {
		return nil, fmt.Errorf("invalid configuration for quiz: quiz api is required")
	}
	if opts.Aggregator == nil {
		return nil, fmt.Errorf("invalid configuration for quiz: aggregator is required")
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
		Clock:      opts.Clock,
		Logger:     loggerInstance,
	}, stageConfig)

	return handler, nil
}

// Load returns the quiz Sheet as payload.
func (h *Handler) Load(ctx context.Context, sessionID string) models.StageResult {
	metrics.OperationsInFlight.WithLabelValues("load_quiz").Inc()
	defer metrics.OperationsInFlight.WithLabelValues("load_quiz").Dec()

	sheet, err := h.service.Load(ctx, sessionID)
	if err != nil {
		return h.fail("load_quiz", err)
	}
	return models.Succeeded(models.StageQuiz, *sheet)
}

// Answer returns the recorded models.InterviewResponse as payload.
func (h *Handler) Answer(ctx context.Context, questionID int64, optionIDs ...int64) models.StageResult {
	response, err := h.service.Answer(ctx, &AnswerInput{QuestionID: questionID, OptionIDs: optionIDs})
	if err != nil {
		return h.fail("answer_quiz", err)
	}
	return models.Succeeded(models.StageQuiz, response)
}

// Complete returns a models.SealedOutcome as payload.
func (h *Handler) Complete(ctx context.Context) models.StageResult {
	metrics.OperationsInFlight.WithLabelValues("complete_quiz").Inc()
	defer metrics.OperationsInFlight.WithLabelValues("complete_quiz").Dec()

	outcome, err := h.service.Complete(ctx)
	if err != nil {
		return h.fail("complete_quiz", err)
	}
	return models.Succeeded(models.StageQuiz, *outcome)
}

func (h *Handler) Remaining() time.Duration {
	return h.service.Remaining()
}

func (h *Handler) GetConfig() *Config {
	return h.config
}

func (h *Handler) fail(operation string, err error) models.StageResult {
	stdErr := h.errors.HandleStageError(StageName, operation, err)
	return models.Failed(models.StageQuiz, string(stdErr.Code), stdErr.Message, stdErr.Retryable)
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
