package models

import "time"

// AnalysisStatus tracks the asynchronous match analysis.
type AnalysisStatus string

const (
	AnalysisNotStarted AnalysisStatus = ""
	AnalysisPending    AnalysisStatus = "pending"
	AnalysisSucceeded  AnalysisStatus = "succeeded"
	AnalysisFailed     AnalysisStatus = "failed"
	AnalysisDeferred   AnalysisStatus = "deferred"
)

// Settled reports whether completion no longer has to wait for the analysis.
func (s AnalysisStatus) Settled() bool {
	switch s {
	case AnalysisSucceeded, AnalysisFailed, AnalysisDeferred:
		return true
	}
	return false
}

// GreatMatchThreshold is the score from which a match is shown as great.
const GreatMatchThreshold = 60

// MatchAnalysis compares the resume against the job. Immutable once produced.
type MatchAnalysis struct {
	Score      float64   `json:"score"`
	Feedback   string    `json:"feedback"`
	AnalyzedAt time.Time `json:"analyzedAt"`
}

func (m MatchAnalysis) IsGreatMatch() bool {
	return m.Score >= GreatMatchThreshold
}

// ScoreBreakdown holds per-dimension scores on a 0-100 scale.
type ScoreBreakdown struct {
	TechnicalSkills float64 `json:"technicalSkills" yaml:"technical_skills"`
	Communication   float64 `json:"communication" yaml:"communication"`
	ProblemSolving  float64 `json:"problemSolving" yaml:"problem_solving"`
	CulturalFit     float64 `json:"culturalFit" yaml:"cultural_fit"`
}

// Feedback is the aggregate interview feedback, produced once.
type Feedback struct {
	Score       float64        `json:"score" yaml:"score"`
	Summary     string         `json:"summary" yaml:"summary"`
	Suggestions []string       `json:"suggestions,omitempty" yaml:"suggestions,omitempty"`
	Breakdown   ScoreBreakdown `json:"breakdown" yaml:"breakdown"`
	Keywords    []string       `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}
