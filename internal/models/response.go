package models

import "time"

// ResponsePayload is the content of one answer. Exactly one group of fields
// is set, depending on the stage.
type ResponsePayload struct {
	Text       string  `json:"text,omitempty"`
	AudioRef   string  `json:"audioRef,omitempty"`
	Transcript string  `json:"transcript,omitempty"`
	OptionIDs  []int64 `json:"optionIds,omitempty"`
	Language   string  `json:"language,omitempty"`
	SourceCode string  `json:"sourceCode,omitempty"`
}

// IsEmpty reports whether the payload carries no answer at all.
func (p ResponsePayload) IsEmpty() bool {
	return p.Text == "" && p.AudioRef == "" && len(p.OptionIDs) == 0 && p.SourceCode == ""
}

// InterviewResponse is one answer to one question. It may be replaced until
// its stage is sealed.
type InterviewResponse struct {
	Stage       Stage           `json:"stage"`
	QuestionID  string          `json:"questionId"`
	Order       int             `json:"order"`
	Payload     ResponsePayload `json:"payload"`
	SubmittedAt time.Time       `json:"submittedAt"`
}

// QuizOption is one selectable answer.
type QuizOption struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

// Quiz question types.
const (
	QuizSingleChoice   = "single"
	QuizMultipleChoice = "multiple"
	QuizTrueFalse      = "true_false"
)

type QuizQuestion struct {
	ID          int64        `json:"id"`
	Description string       `json:"description"`
	Type        string       `json:"type"`
	Options     []QuizOption `json:"options"`
}

// HasOption reports whether id belongs to the question.
func (q QuizQuestion) HasOption(id int64) bool {
	for _, option := range q.Options {
		if option.ID == id {
			return true
		}
	}
	return false
}

type CodingProblem struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty,omitempty"`
}

type InterviewQuestion struct {
	ID       string `json:"id"`
	Order    int    `json:"order"`
	Question string `json:"question"`
}

// TranscriptEntry is one line of the interview transcript.
type TranscriptEntry struct {
	Speaker string    `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

const (
	SpeakerInterviewer = "Interviewer"
	SpeakerCandidate   = "You"
)
