package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"candidate-interview/internal/models"
)

// Wire types of the interview service. They never leave this package: every
// call site receives models types, so the snake_case names live only here.

// wireID accepts numeric and string identifiers.
type wireID string

func (id *wireID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = wireID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier must be a string or number: %w", err)
	}
	*id = wireID(n.String())
	return nil
}

type jobDTO struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Requirements string `json:"requirements"`
	CompanyName  string `json:"company_name"`
	RequiresQuiz bool   `json:"requires_quiz"`
	RequiresDSA  bool   `json:"requires_dsa"`
}

func (d jobDTO) toModel() models.JobConfiguration {
	return models.JobConfiguration{
		JobID:         d.ID,
		Title:         d.Title,
		CompanyName:   d.CompanyName,
		Description:   d.Description,
		Requirements:  d.Requirements,
		HasQuiz:       d.RequiresQuiz,
		HasCodingTest: d.RequiresDSA,
	}
}

// profileDTO is shared by resume extraction and session creation.
type profileDTO struct {
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone"`
	Location          string     `json:"location,omitempty"`
	ResumeText        string     `json:"resume_text,omitempty"`
	WorkExperience    string     `json:"work_experience,omitempty"`
	YearsOfExperience float64    `json:"years_of_experience,omitempty"`
	Education         string     `json:"education,omitempty"`
	Skills            stringList `json:"skills,omitempty"`
	LinkedInURL       string     `json:"linkedin_url,omitempty"`
	PortfolioURL      string     `json:"portfolio_url,omitempty"`
}

// stringList accepts a JSON array or a comma separated string.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*l = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		var out []string
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*l = out
		return nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*l = out
	return nil
}

func profileToWire(p models.CandidateProfile) profileDTO {
	return profileDTO{
		FirstName:         strings.TrimSpace(p.FirstName),
		LastName:          strings.TrimSpace(p.LastName),
		Email:             strings.TrimSpace(p.Email),
		Phone:             strings.TrimSpace(p.Phone),
		Location:          p.Location,
		ResumeText:        p.ResumeText,
		WorkExperience:    p.WorkExperience,
		YearsOfExperience: p.YearsOfExperience,
		Education:         p.Education,
		Skills:            append(stringList(nil), p.Skills...),
		LinkedInURL:       p.LinkedInURL,
		PortfolioURL:      p.PortfolioURL,
	}
}

func (d profileDTO) toModel() models.CandidateProfile {
	return models.CandidateProfile{
		FirstName:         strings.TrimSpace(d.FirstName),
		LastName:          strings.TrimSpace(d.LastName),
		Email:             strings.TrimSpace(d.Email),
		Phone:             strings.TrimSpace(d.Phone),
		Location:          d.Location,
		ResumeText:        d.ResumeText,
		WorkExperience:    d.WorkExperience,
		YearsOfExperience: d.YearsOfExperience,
		Education:         d.Education,
		Skills:            []string(d.Skills),
		LinkedInURL:       d.LinkedInURL,
		PortfolioURL:      d.PortfolioURL,
	}
}

type createSessionRequest struct {
	profileDTO
	JobID int64 `json:"job_id"`
}

type createSessionResponse struct {
	profileDTO
	ID wireID `json:"id"`
}

type analysisDTO struct {
	Score    float64 `json:"resume_match_score"`
	Feedback string  `json:"resume_match_feedback"`
}

type otpRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp,omitempty"`
}

type quizOptionDTO struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

type quizQuestionDTO struct {
	ID          int64           `json:"id"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
	Options     []quizOptionDTO `json:"options"`
}

func (d quizQuestionDTO) toModel() models.QuizQuestion {
	q := models.QuizQuestion{
		ID:          d.ID,
		Description: d.Description,
		Type:        normalizeQuizType(d.Type),
		Options:     make([]models.QuizOption, 0, len(d.Options)),
	}
	for _, option := range d.Options {
		q.Options = append(q.Options, models.QuizOption{ID: option.ID, Label: option.Label})
	}
	return q
}

func normalizeQuizType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "multiple", "multiple_choice", "multi":
		return models.QuizMultipleChoice
	case "true_false", "truefalse", "boolean":
		return models.QuizTrueFalse
	default:
		return models.QuizSingleChoice
	}
}

type quizAnswerDTO struct {
	QuestionID int64 `json:"question_id"`
	OptionID   int64 `json:"option_id"`
}

type codingProblemDTO struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty"`
}

func (d codingProblemDTO) toModel() models.CodingProblem {
	return models.CodingProblem{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Difficulty:  d.Difficulty,
	}
}

// decodeCodingProblems accepts a single problem object or a list.
func decodeCodingProblems(body []byte) ([]models.CodingProblem, error) {
	body = bytes.TrimSpace(body)
	var dtos []codingProblemDTO
	if len(body) > 0 && body[0] == '{' {
		var single codingProblemDTO
		if err := json.Unmarshal(body, &single); err != nil {
			return nil, err
		}
		dtos = []codingProblemDTO{single}
	} else if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, err
	}

	out := make([]models.CodingProblem, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, dto.toModel())
	}
	return out, nil
}

type codingSubmissionDTO struct {
	QuestionID int64  `json:"question_id"`
	Language   string `json:"language"`
	Code       string `json:"code"`
}

type interviewQuestionDTO struct {
	ID            wireID `json:"id"`
	Question      string `json:"question"`
	QuestionOrder int    `json:"question_order"`
}

func (d interviewQuestionDTO) toModel() models.InterviewQuestion {
	return models.InterviewQuestion{
		ID:       string(d.ID),
		Order:    d.QuestionOrder,
		Question: d.Question,
	}
}

type textResponseDTO struct {
	QuestionOrder int    `json:"question_order"`
	Answer        string `json:"answer"`
}

type audioResponseDTO struct {
	Transcript string `json:"transcript"`
}

type feedbackRequest struct {
	Transcript string        `json:"transcript"`
	JobContext jobContextDTO `json:"jobContext"`
}

type jobContextDTO struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Requirements string `json:"requirements"`
}

type scoreBreakdownDTO struct {
	TechnicalSkills float64 `json:"technicalSkills"`
	Communication   float64 `json:"communication"`
	ProblemSolving  float64 `json:"problemSolving"`
	CulturalFit     float64 `json:"culturalFit"`
}

type feedbackDTO struct {
	Score          float64           `json:"score"`
	Feedback       string            `json:"feedback"`
	Suggestions    []string          `json:"suggestions"`
	Keywords       []string          `json:"keywords"`
	ScoreBreakdown scoreBreakdownDTO `json:"scoreBreakdown"`
}

func (d feedbackDTO) toModel() models.Feedback {
	return models.Feedback{
		Score:       d.Score,
		Summary:     d.Feedback,
		Suggestions: d.Suggestions,
		Keywords:    d.Keywords,
		Breakdown: models.ScoreBreakdown{
			TechnicalSkills: d.ScoreBreakdown.TechnicalSkills,
			Communication:   d.ScoreBreakdown.Communication,
			ProblemSolving:  d.ScoreBreakdown.ProblemSolving,
			CulturalFit:     d.ScoreBreakdown.CulturalFit,
		},
	}
}

// errorDTO covers the error envelopes the service sends on 4xx answers.
type errorDTO struct {
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
}

// serverMessage extracts a human readable message from an error body.
func serverMessage(body []byte) string {
	var dto errorDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return ""
	}
	if dto.Message != "" {
		return dto.Message
	}
	if len(dto.Detail) == 0 {
		return ""
	}
	var detail string
	if err := json.Unmarshal(dto.Detail, &detail); err == nil {
		return detail
	}
	return ""
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
