// Package apistub is an in-memory interview service. It answers every call
// the session engine makes, issues session tokens in the Authorization
// header and can be told to fail or hold individual operations.
package apistub

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"candidate-interview/internal/api"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const maxUploadBytes = 10 << 20

// Failure makes an operation answer with Status. Times <= 0 fails forever.
type Failure struct {
	Status  int
	Message string
	Times   int
}

type Options struct {
	Logger logger.Logger
	// RevealCodes logs every one-time code so a local run can read it.
	RevealCodes bool
}

type Server struct {
	mu     sync.Mutex
	logger logger.Logger
	reveal bool

	jobs      map[int64]models.JobConfiguration
	extracted models.CandidateProfile
	analysis  models.MatchAnalysis
	feedback  models.Feedback
	quiz      []models.QuizQuestion
	coding    []models.CodingProblem
	questions []models.InterviewQuestion

	nextSessionID int
	sessions      map[string]*stubSession // by token
	failures      map[string]*Failure
	holds         map[string]chan struct{}
	calls         map[string]int
	codes         map[string]string // email -> last code
}

type stubSession struct {
	ID             string
	JobID          int64
	Profile        map[string]interface{}
	Email          string
	Verified       bool
	ResumeBytes    int
	QuizAnswers    []map[string]interface{}
	CodingAnswers  []map[string]interface{}
	TextAnswers    map[int]string
	AudioAnswers   map[int]int
	FeedbackAsked  int
	AnalysisAsked  int
	QuestionsAsked int
}

func New(opts Options) *Server {
	return &Server{
		logger:        logger.OrDefault(opts.Logger),
		reveal:        opts.RevealCodes,
		jobs:          make(map[int64]models.JobConfiguration),
		extracted:     DefaultProfile(),
		analysis:      models.MatchAnalysis{Score: 72, Feedback: "Relevant backend experience and most required skills are present."},
		feedback:      DefaultFeedback(),
		quiz:          DefaultQuiz(),
		coding:        DefaultCodingProblems(),
		questions:     DefaultQuestions(),
		nextSessionID: 1000,
		sessions:      make(map[string]*stubSession),
		failures:      make(map[string]*Failure),
		holds:         make(map[string]chan struct{}),
		calls:         make(map[string]int),
		codes:         make(map[string]string),
	}
}

// ==========================
// Fixtures
// ==========================

func DefaultProfile() models.CandidateProfile {
	return models.CandidateProfile{
		FirstName:         "Ada",
		LastName:          "Lovelace",
		Email:             "a@x.com",
		Phone:             "+44 20 7946 0000",
		Location:          "London",
		ResumeText:        "Engineer with eight years of distributed systems work.",
		YearsOfExperience: 8,
		WorkExperience:    "Analytical Engines Ltd, 2016-2024",
		Education:         "Mathematics",
		Skills:            []string{"go", "postgres", "kubernetes"},
	}
}

func DefaultFeedback() models.Feedback {
	return models.Feedback{
		Score:       7.5,
		Summary:     "Clear answers with solid technical depth.",
		Suggestions: []string{"Quantify the impact of past projects", "Give shorter answers to open questions"},
		Breakdown: models.ScoreBreakdown{
			TechnicalSkills: 80,
			Communication:   72,
			ProblemSolving:  76,
			CulturalFit:     70,
		},
	}
}

func DefaultQuiz() []models.QuizQuestion {
	return []models.QuizQuestion{
		{
			ID:          1,
			Description: "Which keyword starts a goroutine?",
			Type:        models.QuizSingleChoice,
			Options:     []models.QuizOption{{ID: 11, Label: "go"}, {ID: 12, Label: "async"}, {ID: 13, Label: "spawn"}},
		},
		{
			ID:          2,
			Description: "Which of these are reference types?",
			Type:        models.QuizMultipleChoice,
			Options:     []models.QuizOption{{ID: 21, Label: "map"}, {ID: 22, Label: "slice"}, {ID: 23, Label: "array"}},
		},
		{
			ID:          3,
			Description: "A nil map can be read from.",
			Type:        models.QuizTrueFalse,
			Options:     []models.QuizOption{{ID: 31, Label: "True"}, {ID: 32, Label: "False"}},
		},
	}
}

func DefaultCodingProblems() []models.CodingProblem {
	return []models.CodingProblem{
		{ID: 7, Title: "Two Sum", Description: "Return the indices of the two numbers that add up to target.", Difficulty: "easy"},
	}
}

func DefaultQuestions() []models.InterviewQuestion {
	return []models.InterviewQuestion{
		{ID: "q1", Order: 1, Question: "Tell me about a system you designed."},
		{ID: "q2", Order: 2, Question: "How do you handle a failing dependency?"},
		{ID: "q3", Order: 3, Question: "Why are you interested in this role?"},
	}
}

// AddJob registers a job the stub will serve.
func (s *Server) AddJob(job models.JobConfiguration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.JobID] = job
}

// SetExtractedProfile sets what resume extraction returns.
func (s *Server) SetExtractedProfile(profile models.CandidateProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extracted = profile
}

func (s *Server) SetAnalysis(analysis models.MatchAnalysis) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analysis = analysis
}

func (s *Server) SetQuiz(questions []models.QuizQuestion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quiz = questions
}

func (s *Server) SetQuestions(questions []models.InterviewQuestion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions = questions
}

// FailOperation makes op (one of the api.Op* names) answer with status.
func (s *Server) FailOperation(op string, status int, message string, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = &Failure{Status: status, Message: message, Times: times}
}

func (s *Server) ClearFailure(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, op)
}

// Hold blocks op until the returned release func is called or the request
// is cancelled.
func (s *Server) Hold(op string) (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{})
	s.holds[op] = ch
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.holds[op] == ch {
				delete(s.holds, op)
			}
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns how many requests reached op.
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// LastOTP returns the last code sent to email.
func (s *Server) LastOTP(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[strings.ToLower(email)]
}

// SessionCount returns how many sessions were created.
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// TextAnswers returns the text answers stored for the session with id.
func (s *Server) TextAnswers(sessionID string) map[int]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.ID == sessionID {
			out := make(map[int]string, len(sess.TextAnswers))
			for k, v := range sess.TextAnswers {
				out[k] = v
			}
			return out
		}
	}
	return nil
}

// ==========================
// Router
// ==========================

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	r.HandleFunc("/job/candidate-view", s.op(api.OpFetchJob, s.handleJob)).Methods(http.MethodGet)
	r.HandleFunc("/resume/parse", s.op(api.OpExtractResume, s.handleParseResume)).Methods(http.MethodPost)
	r.HandleFunc("/interview", s.op(api.OpCreateSession, s.handleCreateSession)).Methods(http.MethodPost)
	r.HandleFunc("/interview/upload-resume", s.op(api.OpUploadResume, s.authed(s.handleUploadResume))).Methods(http.MethodPut)
	r.HandleFunc("/interview/analyze-resume", s.op(api.OpAnalyzeResume, s.authed(s.handleAnalyze))).Methods(http.MethodPost)
	r.HandleFunc("/interview/send-otp", s.op(api.OpSendOTP, s.authed(s.handleSendOTP))).Methods(http.MethodPost)
	r.HandleFunc("/interview/verify-otp", s.op(api.OpVerifyOTP, s.authed(s.handleVerifyOTP))).Methods(http.MethodPost)
	r.HandleFunc("/interview/analyze-transcript", s.op(api.OpAnalyzeTranscript, s.authed(s.handleFeedback))).Methods(http.MethodPost)
	r.HandleFunc("/quiz-question", s.op(api.OpFetchQuiz, s.authed(s.handleQuiz))).Methods(http.MethodGet)
	r.HandleFunc("/quiz-response", s.op(api.OpSubmitQuiz, s.authed(s.handleQuizResponse))).Methods(http.MethodPost)
	r.HandleFunc("/dsa-question", s.op(api.OpFetchCoding, s.authed(s.handleCoding))).Methods(http.MethodGet)
	r.HandleFunc("/dsa-response", s.op(api.OpSubmitCoding, s.authed(s.handleCodingResponse))).Methods(http.MethodPost)

	qr := r.PathPrefix("/interview-question-and-response").Subrouter()
	qr.HandleFunc("/generate-questions", s.op(api.OpGenerateQuestions, s.authed(s.handleGenerateQuestions))).Methods(http.MethodPost)
	qr.HandleFunc("/submit-text-response", s.op(api.OpSubmitText, s.authed(s.handleTextResponse))).Methods(http.MethodPut)
	qr.HandleFunc("/submit-audio-response", s.op(api.OpSubmitAudio, s.authed(s.handleAudioResponse))).Methods(http.MethodPut)

	return r
}

// op counts the call, applies holds and injected failures.
func (s *Server) op(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[name]++
		hold := s.holds[name]
		failure := s.failures[name]
		var status int
		var message string
		if failure != nil {
			status, message = failure.Status, failure.Message
			if failure.Times > 0 {
				failure.Times--
				if failure.Times == 0 {
					delete(s.failures, name)
				}
			}
		}
		s.mu.Unlock()

		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}

		if status != 0 {
			s.logger.Info("Injected failure", map[string]interface{}{
				"operation": name,
				"status":    status,
			})
			writeError(w, status, message)
			return
		}
		next(w, r)
	}
}

type sessionKey struct{}

func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if header == "" || token == "" {
			writeError(w, http.StatusUnauthorized, "Missing interview token")
			return
		}
		s.mu.Lock()
		sess := s.sessions[token]
		s.mu.Unlock()
		if sess == nil {
			writeError(w, http.StatusUnauthorized, "Invalid interview token")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	}
}

func sessionFrom(r *http.Request) *stubSession {
	sess, _ := r.Context().Value(sessionKey{}).(*stubSession)
	return sess
}

// ==========================
// Handlers
// ==========================

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid job id")
		return
	}
	s.mu.Lock()
	job, ok := s.jobs[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":            job.JobID,
		"title":         job.Title,
		"description":   job.Description,
		"requirements":  job.Requirements,
		"company_name":  job.CompanyName,
		"requires_quiz": job.HasQuiz,
		"requires_dsa":  job.HasCodingTest,
	})
}

func (s *Server) handleParseResume(w http.ResponseWriter, r *http.Request) {
	if _, err := readUpload(r, "file"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	p := s.extracted
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, profileWire(p))
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	jobID, _ := body["job_id"].(float64)
	email, _ := body["email"].(string)

	s.mu.Lock()
	_, ok := s.jobs[int64(jobID)]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	s.nextSessionID++
	sess := &stubSession{
		ID:           strconv.Itoa(s.nextSessionID),
		JobID:        int64(jobID),
		Profile:      body,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		TextAnswers:  make(map[int]string),
		AudioAnswers: make(map[int]int),
	}
	token := uuid.NewString()
	s.sessions[token] = sess
	s.mu.Unlock()

	response := make(map[string]interface{}, len(body)+1)
	for k, v := range body {
		if k != "job_id" {
			response[k] = v
		}
	}
	id, _ := strconv.Atoi(sess.ID)
	response["id"] = id

	w.Header().Set("Authorization", "Bearer "+token)
	w.Header().Set("Access-Control-Expose-Headers", "Authorization")
	writeJSON(w, http.StatusCreated, response)
}

func (s *Server) handleUploadResume(w http.ResponseWriter, r *http.Request) {
	data, err := readUpload(r, "file")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess := sessionFrom(r)
	s.mu.Lock()
	sess.ResumeBytes = len(data)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Resume uploaded"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	s.mu.Lock()
	uploaded := sess.ResumeBytes > 0
	sess.AnalysisAsked++
	analysis := s.analysis
	s.mu.Unlock()
	if !uploaded {
		writeError(w, http.StatusBadRequest, "Resume has not been uploaded")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"resume_match_score":    analysis.Score,
		"resume_match_feedback": analysis.Feedback,
	})
}

func (s *Server) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	sess := sessionFrom(r)
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email != sess.Email {
		writeError(w, http.StatusBadRequest, "Email does not match the interview")
		return
	}

	code, err := sixDigits()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not generate code")
		return
	}
	s.mu.Lock()
	s.codes[email] = code
	s.mu.Unlock()

	fields := map[string]interface{}{"sessionId": sess.ID, "email": email}
	if s.reveal {
		fields["oneTimeCode"] = code
	}
	s.logger.Info("One-time code sent", fields)
	writeJSON(w, http.StatusOK, map[string]string{"message": "OTP sent"})
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	sess := sessionFrom(r)
	email := strings.ToLower(strings.TrimSpace(body.Email))

	s.mu.Lock()
	expected, ok := s.codes[email]
	if ok && expected == body.OTP && email == sess.Email {
		sess.Verified = true
		delete(s.codes, email)
	}
	verified := sess.Verified && ok && expected == body.OTP
	s.mu.Unlock()

	if !verified {
		writeError(w, http.StatusBadRequest, "Invalid OTP")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "OTP verified"})
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	if !s.ownsInterview(w, r) {
		return
	}
	s.mu.Lock()
	quiz := s.quiz
	s.mu.Unlock()

	out := make([]map[string]interface{}, 0, len(quiz))
	for _, q := range quiz {
		options := make([]map[string]interface{}, 0, len(q.Options))
		for _, o := range q.Options {
			options = append(options, map[string]interface{}{"id": o.ID, "label": o.Label})
		}
		out = append(out, map[string]interface{}{
			"id":          q.ID,
			"description": q.Description,
			"type":        q.Type,
			"options":     options,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleQuizResponse(w http.ResponseWriter, r *http.Request) {
	var body []map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	sess := sessionFrom(r)
	s.mu.Lock()
	sess.QuizAnswers = append(sess.QuizAnswers, body...)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]int{"saved": len(body)})
}

func (s *Server) handleCoding(w http.ResponseWriter, r *http.Request) {
	if !s.ownsInterview(w, r) {
		return
	}
	s.mu.Lock()
	problems := s.coding
	s.mu.Unlock()

	out := make([]map[string]interface{}, 0, len(problems))
	for _, p := range problems {
		out = append(out, map[string]interface{}{
			"id":          p.ID,
			"title":       p.Title,
			"description": p.Description,
			"difficulty":  p.Difficulty,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCodingResponse(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	if code, _ := body["code"].(string); strings.TrimSpace(code) == "" {
		writeError(w, http.StatusBadRequest, "Code is required")
		return
	}
	sess := sessionFrom(r)
	s.mu.Lock()
	sess.CodingAnswers = append(sess.CodingAnswers, body)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Submitted"})
}

func (s *Server) handleGenerateQuestions(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	s.mu.Lock()
	sess.QuestionsAsked++
	questions := s.questions
	s.mu.Unlock()

	out := make([]map[string]interface{}, 0, len(questions))
	for _, q := range questions {
		out = append(out, map[string]interface{}{
			"id":             q.ID,
			"question":       q.Question,
			"question_order": q.Order,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTextResponse(w http.ResponseWriter, r *http.Request) {
	var body struct {
		QuestionOrder int    `json:"question_order"`
		Answer        string `json:"answer"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	sess := sessionFrom(r)
	s.mu.Lock()
	sess.TextAnswers[body.QuestionOrder] = body.Answer
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Saved"})
}

func (s *Server) handleAudioResponse(w http.ResponseWriter, r *http.Request) {
	data, err := readUpload(r, "audio_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	order, err := strconv.Atoi(r.FormValue("question_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid question id")
		return
	}
	sess := sessionFrom(r)
	s.mu.Lock()
	sess.AudioAnswers[order] = len(data)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{
		"transcript": fmt.Sprintf("Recorded answer to question %d.", order),
	})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Transcript string `json:"transcript"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.Transcript) == "" {
		writeError(w, http.StatusBadRequest, "Transcript is required")
		return
	}
	sess := sessionFrom(r)
	s.mu.Lock()
	sess.FeedbackAsked++
	fb := s.feedback
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"score":       fb.Score,
		"feedback":    fb.Summary,
		"suggestions": fb.Suggestions,
		"scoreBreakdown": map[string]float64{
			"technicalSkills": fb.Breakdown.TechnicalSkills,
			"communication":   fb.Breakdown.Communication,
			"problemSolving":  fb.Breakdown.ProblemSolving,
			"culturalFit":     fb.Breakdown.CulturalFit,
		},
	})
}

func (s *Server) ownsInterview(w http.ResponseWriter, r *http.Request) bool {
	if r.URL.Query().Get("interview_id") != sessionFrom(r).ID {
		writeError(w, http.StatusForbidden, "Interview does not belong to this token")
		return false
	}
	return true
}

// ==========================
// Helpers
// ==========================

func profileWire(p models.CandidateProfile) map[string]interface{} {
	return map[string]interface{}{
		"first_name":          p.FirstName,
		"last_name":           p.LastName,
		"email":               p.Email,
		"phone":               p.Phone,
		"location":            p.Location,
		"resume_text":         p.ResumeText,
		"work_experience":     p.WorkExperience,
		"years_of_experience": p.YearsOfExperience,
		"education":           p.Education,
		"skills":              p.Skills,
		"linkedin_url":        p.LinkedInURL,
		"portfolio_url":       p.PortfolioURL,
	}
}

func readUpload(r *http.Request, field string) ([]byte, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, fmt.Errorf("invalid multipart body")
	}
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%s is required", field)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		return nil, fmt.Errorf("%s is empty", field)
	}
	return data, nil
}

func sixDigits() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"detail": message})
}
