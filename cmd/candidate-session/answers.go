package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"candidate-interview/internal/models"

	"gopkg.in/yaml.v3"
)

// Analysis failure handling chosen in the answers file.
const (
	analysisRetry = "retry"
	analysisLater = "later"
)

// Answers scripts one candidate run.
type Answers struct {
	// Profile fields override what was extracted from the resume.
	Profile   *models.CandidateProfile `yaml:"profile"`
	Email     string                   `yaml:"email"`
	Code      string                   `yaml:"code"`
	Quiz      map[int64][]int64        `yaml:"quiz"`
	Coding    []CodingAnswer           `yaml:"coding"`
	Interview []InterviewAnswer        `yaml:"interview"`
	// OnAnalysisFailure is "retry", "later" or empty to continue without it.
	OnAnalysisFailure string `yaml:"on_analysis_failure"`
}

type CodingAnswer struct {
	ProblemID  int64  `yaml:"problem_id"`
	Language   string `yaml:"language"`
	Source     string `yaml:"source"`
	SourceFile string `yaml:"source_file"`
}

// InterviewAnswer is either typed text or a recorded audio file.
type InterviewAnswer struct {
	Text  string `yaml:"text"`
	Audio string `yaml:"audio"`
}

// UnmarshalYAML accepts a bare string as a text answer.
func (a *InterviewAnswer) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		a.Text = node.Value
		return nil
	}
	type plain InterviewAnswer
	return node.Decode((*plain)(a))
}

func LoadAnswers(path string) (*Answers, error) {
	if path == "" {
		return &Answers{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read answers file: %w", err)
	}

	var answers Answers
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&answers); err != nil {
		return nil, fmt.Errorf("parse answers file %s: %w", path, err)
	}
	if err := answers.validate(); err != nil {
		return nil, fmt.Errorf("answers file %s: %w", path, err)
	}
	return &answers, nil
}

func (a *Answers) validate() error {
	switch a.OnAnalysisFailure {
	case "", analysisRetry, analysisLater:
	default:
		return fmt.Errorf("on_analysis_failure must be %q or %q", analysisRetry, analysisLater)
	}
	for i, c := range a.Coding {
		if c.ProblemID <= 0 {
			return fmt.Errorf("coding[%d]: problem_id is required", i)
		}
		if c.Source == "" && c.SourceFile == "" {
			return fmt.Errorf("coding[%d]: source or source_file is required", i)
		}
	}
	return nil
}

// Code returns the inline source or reads it from SourceFile.
func (c CodingAnswer) Code() (string, error) {
	if c.SourceFile == "" {
		return c.Source, nil
	}
	data, err := os.ReadFile(c.SourceFile)
	if err != nil {
		return "", fmt.Errorf("read source for problem %d: %w", c.ProblemID, err)
	}
	return string(data), nil
}

// applyProfile layers the non-empty override fields over draft.
func applyProfile(draft models.CandidateProfile, override *models.CandidateProfile) models.CandidateProfile {
	if override == nil {
		return draft
	}
	set := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	set(&draft.FirstName, override.FirstName)
	set(&draft.LastName, override.LastName)
	set(&draft.Email, override.Email)
	set(&draft.Phone, override.Phone)
	set(&draft.Location, override.Location)
	set(&draft.WorkExperience, override.WorkExperience)
	set(&draft.Education, override.Education)
	set(&draft.LinkedInURL, override.LinkedInURL)
	set(&draft.PortfolioURL, override.PortfolioURL)
	if override.YearsOfExperience > 0 {
		draft.YearsOfExperience = override.YearsOfExperience
	}
	if len(override.Skills) > 0 {
		draft.Skills = override.Skills
	}
	return draft
}
