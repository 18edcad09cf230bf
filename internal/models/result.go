package models

// StageResult is the tagged outcome every stage reports to the controller.
// A failed result carries a classified code and a candidate-facing message,
// never a raw error.
type StageResult struct {
	Stage     Stage       `json:"stage"`
	OK        bool        `json:"ok"`
	Code      string      `json:"code,omitempty"`
	Message   string      `json:"message,omitempty"`
	Retryable bool        `json:"retryable,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
}

func Succeeded(stage Stage, payload interface{}) StageResult {
	return StageResult{Stage: stage, OK: true, Payload: payload}
}

func Failed(stage Stage, code, message string, retryable bool) StageResult {
	return StageResult{
		Stage:     stage,
		OK:        false,
		Code:      code,
		Message:   message,
		Retryable: retryable,
	}
}

// LinkOutcome is the exit payload of link verification.
type LinkOutcome struct {
	Job JobConfiguration `json:"job"`
}

// ResumeIntakeOutcome is the exit payload of resume intake, reached once
// the session exists and the file is stored against it.
type ResumeIntakeOutcome struct {
	SessionID       string           `json:"sessionId"`
	ResumeReference string           `json:"resumeReference"`
	Profile         CandidateProfile `json:"profile"`
}

// IdentityOutcome is the exit payload of identity verification.
type IdentityOutcome struct {
	VerifiedEmail string `json:"verifiedEmail"`
}

// SealedOutcome is the exit payload of an assessment stage.
type SealedOutcome struct {
	Stage      Stage `json:"stage"`
	Responses  int   `json:"responses"`
	Unanswered int   `json:"unanswered"`
}
