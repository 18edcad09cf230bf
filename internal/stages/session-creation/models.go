package sessioncreation

import (
	"context"

	"candidate-interview/internal/api"
	"candidate-interview/internal/common/clock"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/credentials"
	"candidate-interview/internal/models"
)

type Input struct {
	Profile models.CandidateProfile
	JobID   int64
	File    models.ResumeFile
}

type Output struct {
	SessionID       string                  `json:"sessionId"`
	ResumeReference string                  `json:"resumeReference"`
	Profile         models.CandidateProfile `json:"profile"`
}

// SessionAPI is the slice of the interview service this stage talks to.
type SessionAPI interface {
	CreateSession(ctx context.Context, profile models.CandidateProfile, jobID int64) (*api.SessionGrant, error)
	UploadResume(ctx context.Context, file models.ResumeFile) error
	AnalyzeResume(ctx context.Context) (*models.MatchAnalysis, error)
}

type ServiceDependencies struct {
	API         SessionAPI
	Credentials *credentials.Store
	Clock       clock.Clock
	Logger      logger.Logger
}
