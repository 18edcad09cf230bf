package resumeintake

import (
	"context"

	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/models"
)

type Input struct {
	File models.ResumeFile
}

type Output struct {
	Draft models.CandidateProfile `json:"draft"`
}

// ResumeExtractor turns a resume document into a draft profile.
type ResumeExtractor interface {
	ExtractResume(ctx context.Context, file models.ResumeFile) (*models.CandidateProfile, error)
}

type ServiceDependencies struct {
	Extractor ResumeExtractor
	Logger    logger.Logger
}
