// Package sessioncreation creates the interview session, takes custody of
// the session credential it issues, uploads the resume against it and asks
// for the resume match analysis.
package sessioncreation

import (
	"context"
	"fmt"
	"sync"

	"candidate-interview/internal/common/clock"
	"candidate-interview/internal/common/errors"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/credentials"
	"candidate-interview/internal/models"
)

type Service struct {
	config      *Config
	logger      logger.Logger
	api         SessionAPI
	credentials *credentials.Store
	clock       clock.Clock

	mu        sync.Mutex
	sessionID string
	profile   models.CandidateProfile
	resumeRef string
	issued    map[string]bool
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &Service{
		config:      config,
		logger:      logger.OrDefault(deps.Logger),
		api:         deps.API,
		credentials: deps.Credentials,
		clock:       clk,
		issued:      make(map[string]bool),
	}
}

// Execute creates the session when none is held and uploads the resume.
// Once a session exists a retry only repeats the upload.
func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := validateInput(input); err != nil {
		return nil, errors.NewValidationFailedError("Please upload your resume and complete your details.", err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessionID == "" || !s.credentials.HasSessionCredential(ctx) {
		if err := s.create(ctx, input); err != nil {
			return nil, err
		}
	} else {
		s.logger.Info("Session already created, retrying upload only", map[string]interface{}{
			"sessionId": s.sessionID,
		})
	}

	if err := s.upload(ctx, input.File); err != nil {
		return nil, err
	}
	s.resumeRef = input.File.Reference()

	return &Output{
		SessionID:       s.sessionID,
		ResumeReference: s.resumeRef,
		Profile:         s.profile,
	}, nil
}

func (s *Service) create(ctx context.Context, input *Input) error {
	// A new session never inherits a credential from an older one.
	if err := s.credentials.ClearSessionCredential(ctx); err != nil {
		return err
	}
	s.sessionID = ""
	s.resumeRef = ""

	createCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	grant, err := s.api.CreateSession(createCtx, input.Profile, input.JobID)
	if err != nil {
		return err
	}
	if s.issued[grant.SessionID] {
		return errors.NewCredentialAlreadyIssuedError(grant.SessionID)
	}
	if err := s.credentials.SetSessionCredential(ctx, grant.Credential); err != nil {
		return err
	}

	s.issued[grant.SessionID] = true
	s.sessionID = grant.SessionID
	s.profile = input.Profile
	if grant.Profile.Email != "" && !sameEmail(grant.Profile.Email, input.Profile.Email) {
		s.logger.Warn("Session echoed a different email than submitted", map[string]interface{}{
			"sessionId": grant.SessionID,
		})
	}

	s.logger.Info("Interview session created", map[string]interface{}{
		"sessionId": grant.SessionID,
		"jobId":     input.JobID,
	})
	return nil
}

// UploadResumeFile stores the resume against the current session.
func (s *Service) UploadResumeFile(ctx context.Context, file models.ResumeFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.upload(ctx, file); err != nil {
		return err
	}
	s.resumeRef = file.Reference()
	return nil
}

func (s *Service) upload(ctx context.Context, file models.ResumeFile) error {
	if !s.credentials.HasSessionCredential(ctx) {
		return errors.NewAuthorizationFailedError("upload_resume")
	}

	uploadCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()
	return s.api.UploadResume(uploadCtx, file)
}

// RequestMatchAnalysis asks for the resume match score. Failures other than
// a missing credential are reported as non-fatal analysis failures.
func (s *Service) RequestMatchAnalysis(ctx context.Context) (*models.MatchAnalysis, error) {
	if !s.credentials.HasSessionCredential(ctx) {
		return nil, errors.NewAuthorizationFailedError("analyze_resume")
	}

	analysisCtx, cancel := context.WithTimeout(ctx, s.config.AnalysisTimeout)
	defer cancel()

	analysis, err := s.api.AnalyzeResume(analysisCtx)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeAuthorizationFailed) {
			return nil, err
		}
		return nil, errors.NewAnalysisFailedError(err)
	}
	if analysis == nil {
		return nil, errors.NewAnalysisFailedError(fmt.Errorf("empty analysis"))
	}

	result := *analysis
	result.AnalyzedAt = s.clock.Now().UTC()
	return &result, nil
}

// Restore adopts a session that was created by an earlier mount.
func (s *Service) Restore(sessionID string, profile models.CandidateProfile, resumeRef string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = sessionID
	s.profile = profile
	s.resumeRef = resumeRef
	if sessionID != "" {
		s.issued[sessionID] = true
	}
}

func (s *Service) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}
