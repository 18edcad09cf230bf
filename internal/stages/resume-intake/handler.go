package resumeintake

import (
	"context"
	"fmt"
	"time"

	"candidate-interview/internal/common/config"
	"candidate-interview/internal/common/errors"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/common/metrics"
	"candidate-interview/internal/models"
)

const StageName = "resume-intake"

type Handler struct {
	config  *Config
	logger  logger.Logger
	service *Service
	errors  *errors.ErrorHandler
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Extractor    ResumeExtractor
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	stageConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := stageConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for resume-intake: %w", err)
	}
	if opts.Extractor == nil {
		return nil, fmt.Errorf("invalid configuration for resume-intake: resume extractor is required")
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
		Extractor: opts.Extractor,
		Logger:    loggerInstance,
	}, stageConfig)

	return handler, nil
}

// Extract proposes a draft profile. A failed extraction leaves the
// candidate free to fill the profile in by hand.
func (h *Handler) Extract(ctx context.Context, file models.ResumeFile) models.StageResult {
	metrics.OperationsInFlight.WithLabelValues("extract_resume").Inc()
	defer metrics.OperationsInFlight.WithLabelValues("extract_resume").Dec()

	output, err := h.Execute(ctx, &Input{File: file})
	if err != nil {
		return h.fail("extract_resume", err)
	}
	return models.Succeeded(models.StageResumeIntake, output.Draft)
}

// Review accepts the edited profile; the payload is the normalized profile.
func (h *Handler) Review(profile models.CandidateProfile, file models.ResumeFile) models.StageResult {
	reviewed, err := h.service.Review(profile, file)
	if err != nil {
		return h.fail("review_profile", err)
	}
	return models.Succeeded(models.StageResumeIntake, *reviewed)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.service.Execute(ctx, input)
}

func (h *Handler) GetConfig() *Config {
	return h.config
}

func (h *Handler) fail(operation string, err error) models.StageResult {
	stdErr := h.errors.HandleStageError(StageName, operation, err)
	return models.Failed(models.StageResumeIntake, string(stdErr.Code), stdErr.Message, stdErr.Retryable)
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
