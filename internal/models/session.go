package models

import "time"

// CandidateProfile is the single canonical shape of the candidate's data.
// Wire field names are translated at the network edge only.
type CandidateProfile struct {
	FirstName         string   `json:"firstName" yaml:"first_name"`
	LastName          string   `json:"lastName" yaml:"last_name"`
	Email             string   `json:"email" yaml:"email"`
	Phone             string   `json:"phone" yaml:"phone"`
	Location          string   `json:"location,omitempty" yaml:"location,omitempty"`
	ResumeText        string   `json:"resumeText,omitempty" yaml:"resume_text,omitempty"`
	YearsOfExperience float64  `json:"yearsOfExperience,omitempty" yaml:"years_of_experience,omitempty"`
	WorkExperience    string   `json:"workExperience,omitempty" yaml:"work_experience,omitempty"`
	Education         string   `json:"education,omitempty" yaml:"education,omitempty"`
	Skills            []string `json:"skills,omitempty" yaml:"skills,omitempty"`
	LinkedInURL       string   `json:"linkedinUrl,omitempty" yaml:"linkedin_url,omitempty"`
	PortfolioURL      string   `json:"portfolioUrl,omitempty" yaml:"portfolio_url,omitempty"`
}

// FullName joins first and last name.
func (p CandidateProfile) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// ResumeFile is an uploaded resume document.
type ResumeFile struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
	Data        []byte `json:"-"`
}

// Reference identifies the file without its content.
func (f ResumeFile) Reference() string {
	return f.Name
}

// CandidateSession is the central entity for one interview attempt. The
// session credential itself lives only in the credential store.
type CandidateSession struct {
	SessionID         string            `json:"sessionId,omitempty" db:"session_id"`
	JobID             int64             `json:"jobId" db:"job_id"`
	JobTitle          string            `json:"jobTitle,omitempty" db:"job_title"`
	CompanyName       string            `json:"companyName,omitempty" db:"company_name"`
	Profile           *CandidateProfile `json:"profile,omitempty" db:"profile"`
	ResumeReference   string            `json:"resumeReference,omitempty" db:"resume_reference"`
	HasCredential     bool              `json:"hasCredential" db:"has_credential"`
	VerifiedEmail     string            `json:"verifiedEmail,omitempty" db:"verified_email"`
	CurrentStage      Stage             `json:"currentStage" db:"current_stage"`
	Plan              []Stage           `json:"plan,omitempty" db:"plan"`
	IntegrityEvents   []IntegrityEvent  `json:"integrityEvents,omitempty" db:"integrity_events"`
	MatchAnalysis     *MatchAnalysis    `json:"matchAnalysis,omitempty" db:"match_analysis"`
	MatchStatus       AnalysisStatus    `json:"matchStatus,omitempty" db:"match_status"`
	Feedback          *Feedback         `json:"feedback,omitempty" db:"feedback"`
	Warnings          []string          `json:"warnings,omitempty" db:"warnings"`
	StartedAt         time.Time         `json:"startedAt" db:"started_at"`
	StageEnteredAt    time.Time         `json:"stageEnteredAt" db:"stage_entered_at"`
	CompletedAt       *time.Time        `json:"completedAt,omitempty" db:"completed_at"`
	TerminatedReason  string            `json:"terminatedReason,omitempty" db:"terminated_reason"`
	CompletionEntered bool              `json:"completionEntered" db:"completion_entered"`
}

// IsTerminated reports whether the session was revoked before completion.
func (s *CandidateSession) IsTerminated() bool {
	return s.TerminatedReason != ""
}

// Clone returns a deep copy safe to hand to callers.
func (s *CandidateSession) Clone() *CandidateSession {
	if s == nil {
		return nil
	}
	out := *s
	if s.Profile != nil {
		profile := *s.Profile
		profile.Skills = append([]string(nil), s.Profile.Skills...)
		out.Profile = &profile
	}
	out.Plan = append([]Stage(nil), s.Plan...)
	out.IntegrityEvents = append([]IntegrityEvent(nil), s.IntegrityEvents...)
	out.Warnings = append([]string(nil), s.Warnings...)
	if s.MatchAnalysis != nil {
		analysis := *s.MatchAnalysis
		out.MatchAnalysis = &analysis
	}
	if s.Feedback != nil {
		feedback := *s.Feedback
		feedback.Suggestions = append([]string(nil), s.Feedback.Suggestions...)
		feedback.Keywords = append([]string(nil), s.Feedback.Keywords...)
		out.Feedback = &feedback
	}
	if s.CompletedAt != nil {
		completed := *s.CompletedAt
		out.CompletedAt = &completed
	}
	return &out
}

// JobConfiguration is fetched once per mount and never mutated by the candidate flow.
type JobConfiguration struct {
	JobID         int64  `json:"jobId"`
	Title         string `json:"title"`
	CompanyName   string `json:"companyName"`
	Description   string `json:"description,omitempty"`
	Requirements  string `json:"requirements,omitempty"`
	HasQuiz       bool   `json:"hasQuiz"`
	HasCodingTest bool   `json:"hasCodingTest"`
}

// JobContext is the job summary sent along with a feedback request.
type JobContext struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Requirements string `json:"requirements"`
}

func (j JobConfiguration) Context() JobContext {
	return JobContext{
		Title:        j.Title,
		Description:  j.Description,
		Requirements: j.Requirements,
	}
}
