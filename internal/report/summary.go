// Package report builds the completion view of a session and renders or
// exports it.
package report

import (
	"sort"
	"time"

	"candidate-interview/internal/models"
)

// Summary is what the candidate sees after the interview.
type Summary struct {
	JobID       int64      `json:"jobId" yaml:"job_id"`
	JobTitle    string     `json:"jobTitle" yaml:"job_title"`
	CompanyName string     `json:"companyName" yaml:"company_name"`
	Candidate   string     `json:"candidate,omitempty" yaml:"candidate,omitempty"`
	Email       string     `json:"email,omitempty" yaml:"email,omitempty"`
	Stage       string     `json:"stage" yaml:"stage"`
	Completed   bool       `json:"completed" yaml:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty" yaml:"completed_at,omitempty"`
	Terminated  string     `json:"terminated,omitempty" yaml:"terminated,omitempty"`

	Match     *Match           `json:"match,omitempty" yaml:"match,omitempty"`
	Feedback  *models.Feedback `json:"feedback,omitempty" yaml:"feedback,omitempty"`
	Warnings  []string         `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Integrity Integrity        `json:"integrity" yaml:"integrity"`
	Responses ResponseCounts   `json:"responses" yaml:"responses"`
}

type Match struct {
	Score      float64 `json:"score" yaml:"score"`
	GreatMatch bool    `json:"greatMatch" yaml:"great_match"`
	Feedback   string  `json:"feedback,omitempty" yaml:"feedback,omitempty"`
}

type Integrity struct {
	Events int            `json:"events" yaml:"events"`
	ByKind map[string]int `json:"byKind,omitempty" yaml:"by_kind,omitempty"`
}

// Kinds returns the recorded event kinds in a stable order.
func (i Integrity) Kinds() []string {
	kinds := make([]string, 0, len(i.ByKind))
	for kind := range i.ByKind {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

type ResponseCounts struct {
	Quiz      int `json:"quiz" yaml:"quiz"`
	Coding    int `json:"coding" yaml:"coding"`
	Interview int `json:"interview" yaml:"interview"`
}

// Build assembles the summary from a session and its stored responses.
func Build(session *models.CandidateSession, responses []models.InterviewResponse) *Summary {
	if session == nil {
		return &Summary{}
	}

	s := &Summary{
		JobID:       session.JobID,
		JobTitle:    session.JobTitle,
		CompanyName: session.CompanyName,
		Stage:       session.CurrentStage.String(),
		Completed:   session.CompletionEntered,
		CompletedAt: session.CompletedAt,
		Terminated:  session.TerminatedReason,
		Warnings:    append([]string(nil), session.Warnings...),
	}
	if session.Profile != nil {
		s.Candidate = session.Profile.FullName()
		s.Email = session.Profile.Email
	}
	if session.MatchAnalysis != nil {
		s.Match = &Match{
			Score:      session.MatchAnalysis.Score,
			GreatMatch: session.MatchAnalysis.IsGreatMatch(),
			Feedback:   session.MatchAnalysis.Feedback,
		}
	}
	if session.Feedback != nil {
		feedback := *session.Feedback
		s.Feedback = &feedback
	}

	s.Integrity.Events = len(session.IntegrityEvents)
	if len(session.IntegrityEvents) > 0 {
		s.Integrity.ByKind = make(map[string]int)
		for _, event := range session.IntegrityEvents {
			s.Integrity.ByKind[string(event.Kind)]++
		}
	}

	for _, r := range responses {
		switch r.Stage {
		case models.StageQuiz:
			s.Responses.Quiz++
		case models.StageCoding:
			s.Responses.Coding++
		case models.StageVideoInterview:
			s.Responses.Interview++
		}
	}
	return s
}
