package sessioncreation

import (
	"context"
	"fmt"
	"time"

	"candidate-interview/internal/common/clock"
	"candidate-interview/internal/common/config"
	"candidate-interview/internal/common/errors"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/common/metrics"
	"candidate-interview/internal/credentials"
	"candidate-interview/internal/models"
)

const StageName = "session-creation"

type Handler struct {
	config  *Config
	logger  logger.Logger
	service *Service
	errors  *errors.ErrorHandler
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	API          SessionAPI
	Credentials  *credentials.Store
	Clock        clock.Clock
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	stageConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := stageConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for session-creation: %w", err)
	}
	if opts.API == nil {
		return nil, fmt.Errorf("invalid configuration for session-creation: session api is required")
	}
	if opts.Credentials == nil {
		return nil, fmt.Errorf("invalid configuration for session-creation: credential store is required")
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
		API:         opts.API,
		Credentials: opts.Credentials,
		Clock:       opts.Clock,
		Logger:      loggerInstance,
	}, stageConfig)

	return handler, nil
}

// Create creates the session for a reviewed profile and uploads the resume.
// The payload is a models.ResumeIntakeOutcome.
func (h *Handler) Create(ctx context.Context, profile models.CandidateProfile, jobID int64, file models.ResumeFile) models.StageResult {
	metrics.OperationsInFlight.WithLabelValues("create_session").Inc()
	defer metrics.OperationsInFlight.WithLabelValues("create_session").Dec()

	output, err := h.Execute(ctx, &Input{Profile: profile, JobID: jobID, File: file})
	if err != nil {
		return h.fail("create_session", err)
	}
	return models.Succeeded(models.StageResumeIntake, models.ResumeIntakeOutcome{
		SessionID:       output.SessionID,
		ResumeReference: output.ResumeReference,
		Profile:         output.Profile,
	})
}

// UploadResumeFile re-uploads a resume for the current session.
func (h *Handler) UploadResumeFile(ctx context.Context, file models.ResumeFile) models.StageResult {
	metrics.OperationsInFlight.WithLabelValues("upload_resume").Inc()
	defer metrics.OperationsInFlight.WithLabelValues("upload_resume").Dec()

	if err := h.service.UploadResumeFile(ctx, file); err != nil {
		return h.fail("upload_resume", err)
	}
	return models.Succeeded(models.StageResumeIntake, file.Reference())
}

// RequestMatchAnalysis returns a models.MatchAnalysis payload on success.
func (h *Handler) RequestMatchAnalysis(ctx context.Context) models.StageResult {
	metrics.OperationsInFlight.WithLabelValues("analyze_resume").Inc()
	defer metrics.OperationsInFlight.WithLabelValues("analyze_resume").Dec()

	analysis, err := h.service.RequestMatchAnalysis(ctx)
	if err != nil {
		return h.fail("analyze_resume", err)
	}
	h.logger.Info("Resume match analysis completed", map[string]interface{}{
		"score":      analysis.Score,
		"greatMatch": analysis.IsGreatMatch(),
	})
	return models.Succeeded(models.StageResumeIntake, *analysis)
}

func (h *Handler) Restore(sessionID string, profile models.CandidateProfile, resumeRef string) {
	h.service.Restore(sessionID, profile, resumeRef)
}

func (h *Handler) SessionID() string {
	return h.service.SessionID()
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
		if appConfig.API.Timeout > 0 {
			cfg.AnalysisTimeout = 3 * config.GetDuration(appConfig.API.Timeout)
		}
	}
	return cfg
}
