// Package resumeintake turns an uploaded resume into a reviewed candidate
// profile. Extraction only proposes a draft; the candidate may edit every
// field before the profile is accepted.
package resumeintake

import (
	"context"
	"fmt"

	"candidate-interview/internal/common/errors"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/models"
)

type Service struct {
	config    *Config
	logger    logger.Logger
	extractor ResumeExtractor
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		config:    config,
		logger:    logger.OrDefault(deps.Logger),
		extractor: deps.Extractor,
	}
}

// Execute extracts a draft profile from the resume file.
func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	if msg := ValidateFile(input.File, s.config); msg != "" {
		return nil, errors.NewValidationFailedError(msg, fmt.Sprintf("file: %s, size: %d", input.File.Name, len(input.File.Data)))
	}

	extractCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	draft, err := s.extractor.ExtractResume(extractCtx, input.File)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, errors.NewMalformedResponseError("extract_resume", fmt.Errorf("empty extraction result"))
	}

	normalized := NormalizeProfile(*draft)
	s.logger.Info("Resume extracted", map[string]interface{}{
		"file":      input.File.Name,
		"hasEmail":  normalized.Email != "",
		"hasPhone":  normalized.Phone != "",
		"skillsLen": len(normalized.Skills),
	})

	return &Output{Draft: normalized}, nil
}

// Review validates the candidate-edited profile.
func (s *Service) Review(profile models.CandidateProfile, file models.ResumeFile) (*models.CandidateProfile, error) {
	if msg := ValidateFile(file, s.config); msg != "" {
		return nil, errors.NewValidationFailedError(msg, fmt.Sprintf("file: %s", file.Name))
	}

	normalized := NormalizeProfile(profile)
	msg, err := ValidateProfile(normalized)
	if err != nil {
		return nil, err
	}
	if msg != "" {
		return nil, errors.NewValidationFailedError(msg, "profile review")
	}
	return &normalized, nil
}
