// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"candidate-interview/internal/models"
)

const defaultVersion = "1.0.0"

// Default returns the built-in stage catalog.
func Default() *StageRegistry {
	return &StageRegistry{
		Version: defaultVersion,
		Stages: []StageInfo{
			{
				ID:          string(models.StageLinkVerification),
				DisplayName: "Interview Link",
				Description: "Checks the interview link and loads the job.",
			},
			{
				ID:               string(models.StageResumeIntake),
				DisplayName:      "Resume Upload",
				Description:      "Upload your resume and review the extracted details.",
				EstimatedMinutes: 5,
			},
			{
				ID:               string(models.StageIdentityVerification),
				DisplayName:      "Email Verification",
				Description:      "Confirm your email address with a one-time code.",
				EstimatedMinutes: 2,
			},
			{
				ID:               string(models.StageQuiz),
				DisplayName:      "Knowledge Quiz",
				Description:      "Multiple choice questions about the role.",
				EstimatedMinutes: 10,
				Tags:             []string{"assessment"},
			},
			{
				ID:               string(models.StageCoding),
				DisplayName:      "Coding Challenge",
				Description:      "Solve programming problems in the language of your choice.",
				EstimatedMinutes: 30,
				Tags:             []string{"assessment"},
			},
			{
				ID:               string(models.StageVideoInterview),
				DisplayName:      "AI Interview",
				Description:      "Answer interview questions by voice or text.",
				EstimatedMinutes: 15,
				Tags:             []string{"assessment"},
			},
			{
				ID:          string(models.StageCompletion),
				DisplayName: "Results",
				Description: "Your match score and interview feedback.",
			},
		},
	}
}

// LoadRegistry reads a catalog override from path and layers it over the
// defaults. An empty path returns the defaults.
func LoadRegistry(path string) (*StageRegistry, error) {
	reg := Default()
	if path == "" {
		return reg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var override StageRegistry
	if err := json.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse stage registry %s: %w", path, err)
	}
	if err := reg.merge(override); err != nil {
		return nil, fmt.Errorf("stage registry %s: %w", path, err)
	}
	return reg, nil
}

func (r *StageRegistry) merge(override StageRegistry) error {
	if override.Version != "" {
		r.Version = override.Version
	}
	if override.LastUpdated != "" {
		r.LastUpdated = override.LastUpdated
	}

	if err := override.Validate(); err != nil {
		return err
	}
	for _, info := range override.Stages {
		for i := range r.Stages {
			if r.Stages[i].ID != info.ID {
				continue
			}
			current := &r.Stages[i]
			if info.DisplayName != "" {
				current.DisplayName = info.DisplayName
			}
			if info.Description != "" {
				current.Description = info.Description
			}
			if info.EstimatedMinutes > 0 {
				current.EstimatedMinutes = info.EstimatedMinutes
			}
			if info.Tags != nil {
				current.Tags = info.Tags
			}
		}
	}
	return nil
}

// Validate checks that every entry names a known stage exactly once.
func (r *StageRegistry) Validate() error {
	seen := make(map[string]bool, len(r.Stages))
	for _, info := range r.Stages {
		if _, ok := models.ParseStage(info.ID); !ok {
			return fmt.Errorf("unknown stage %q", info.ID)
		}
		if seen[info.ID] {
			return fmt.Errorf("duplicate stage %q", info.ID)
		}
		seen[info.ID] = true
		if info.EstimatedMinutes < 0 {
			return fmt.Errorf("stage %q: estimated minutes must not be negative", info.ID)
		}
	}
	return nil
}

// ReadOverride reads an override file as written, without the defaults.
// A missing file is an empty override.
func ReadOverride(path string) (*StageRegistry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &StageRegistry{}, nil
	}
	if err != nil {
		return nil, err
	}
	var reg StageRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse stage registry %s: %w", path, err)
	}
	return &reg, nil
}

// SaveOverride writes reg as indented JSON.
func SaveOverride(reg *StageRegistry, path string) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func (r *StageRegistry) Lookup(stage models.Stage) (StageInfo, bool) {
	for _, info := range r.Stages {
		if info.ID == string(stage) {
			return info, true
		}
	}
	return StageInfo{}, false
}

// Overview lists the assessment stages of plan in order, the steps shown to
// the candidate before the first assessment.
func (r *StageRegistry) Overview(plan []models.Stage) []StageInfo {
	var steps []StageInfo
	for _, stage := range plan {
		if !stage.IsAssessment() {
			continue
		}
		if info, ok := r.Lookup(stage); ok {
			steps = append(steps, info)
		}
	}
	return steps
}

// EstimatedMinutes sums the estimates of the stages in plan.
func (r *StageRegistry) EstimatedMinutes(plan []models.Stage) int {
	total := 0
	for _, stage := range plan {
		if info, ok := r.Lookup(stage); ok {
			total += info.EstimatedMinutes
		}
	}
	return total
}
