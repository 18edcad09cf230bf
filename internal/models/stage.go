package models

// Stage is one discrete phase of the candidate journey.
type Stage string

const (
	StageLinkVerification     Stage = "link_verification"
	StageResumeIntake         Stage = "resume_intake"
	StageIdentityVerification Stage = "identity_verification"
	StageQuiz                 Stage = "quiz"
	StageCoding               Stage = "coding"
	StageVideoInterview       Stage = "video_interview"
	StageCompletion           Stage = "completion"
)

// AllStages lists every stage in journey order.
var AllStages = []Stage{
	StageLinkVerification,
	StageResumeIntake,
	StageIdentityVerification,
	StageQuiz,
	StageCoding,
	StageVideoInterview,
	StageCompletion,
}

func (s Stage) String() string {
	return string(s)
}

// IsAssessment reports whether responses are collected in this stage.
func (s Stage) IsAssessment() bool {
	switch s {
	case StageQuiz, StageCoding, StageVideoInterview:
		return true
	}
	return false
}

// Ordinal is the position of s in journey order, or -1 for an unknown stage.
func (s Stage) Ordinal() int {
	for i, stage := range AllStages {
		if stage == s {
			return i
		}
	}
	return -1
}

// ParseStage returns the stage with the given name.
func ParseStage(name string) (Stage, bool) {
	for _, stage := range AllStages {
		if string(stage) == name {
			return stage, true
		}
	}
	return "", false
}
