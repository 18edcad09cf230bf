// Package api is the network edge of the session engine. It is the only
// place that knows the interview service's paths and wire field names, and
// every failure leaves it classified as a StandardError.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"candidate-interview/internal/common/config"
	"candidate-interview/internal/common/errors"
	httpclient "candidate-interview/internal/common/http"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/common/metrics"
	"candidate-interview/internal/common/validation"
	"candidate-interview/internal/credentials"
	"candidate-interview/internal/models"

	"github.com/google/uuid"
)

// Operation names used in logs, metrics and error details.
const (
	OpFetchJob          = "fetch_job_configuration"
	OpExtractResume     = "extract_resume"
	OpCreateSession     = "create_session"
	OpUploadResume      = "upload_resume"
	OpAnalyzeResume     = "analyze_resume"
	OpSendOTP           = "send_otp"
	OpVerifyOTP         = "verify_otp"
	OpFetchQuiz         = "fetch_quiz_questions"
	OpSubmitQuiz        = "submit_quiz_responses"
	OpFetchCoding       = "fetch_coding_problems"
	OpSubmitCoding      = "submit_coding_response"
	OpGenerateQuestions = "generate_interview_questions"
	OpSubmitText        = "submit_text_response"
	OpSubmitAudio       = "submit_audio_response"
	OpAnalyzeTranscript = "analyze_transcript"
)

const (
	maxResponseBodyBytes  = 4 << 20
	bearerPrefix          = "Bearer "
	requestIDHeader       = "X-Request-ID"
	authorizationHeader   = "Authorization"
	contentTypeHeader     = "Content-Type"
	jsonContentType       = "application/json"
	defaultRequestTimeout = 30 * time.Second
)

type Client struct {
	baseURL     string
	http        *httpclient.Client
	credentials *credentials.Store
	logger      logger.Logger
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Logger     logger.Logger
	Transport  http.RoundTripper
}

func NewClient(opts Options, store *credentials.Store) *Client {
	log := logger.OrDefault(opts.Logger)
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http: httpclient.NewClientWithOptions(httpclient.Options{
			Timeout:    timeout,
			MaxRetries: opts.MaxRetries,
			RetryDelay: opts.RetryDelay,
			Logger:     log,
			Transport:  opts.Transport,
		}),
		credentials: store,
		logger:      log,
	}
}

// NewClientFromConfig builds a client from the api section of the application config.
func NewClientFromConfig(cfg config.APIConfig, store *credentials.Store, log logger.Logger) *Client {
	return NewClient(Options{
		BaseURL:    cfg.BaseURL,
		Timeout:    config.GetDuration(cfg.Timeout),
		MaxRetries: cfg.MaxRetries,
		RetryDelay: config.GetDuration(cfg.RetryDelay),
		Logger:     log,
	}, store)
}

// SessionGrant is the result of session creation. Credential is the token
// taken from the response's Authorization header; the caller stores it.
type SessionGrant struct {
	SessionID  string
	Profile    models.CandidateProfile
	Credential string
}

// QuizAnswer is one selected option.
type QuizAnswer struct {
	QuestionID int64
	OptionID   int64
}

// CodingSubmission is one solution for one problem.
type CodingSubmission struct {
	ProblemID int64
	Language  string
	Code      string
}

// AudioClip is a recorded answer.
type AudioClip struct {
	Name string
	Data []byte
}

// ==========================
// Unauthenticated calls
// ==========================

func (c *Client) FetchJobConfiguration(ctx context.Context, jobID int64) (*models.JobConfiguration, error) {
	body, _, err := c.send(ctx, request{
		op:     OpFetchJob,
		method: http.MethodGet,
		path:   "/job/candidate-view",
		query:  url.Values{"id": {formatID(jobID)}},
		schema: jobSchema,
	})
	if err != nil {
		return nil, err
	}

	var dto jobDTO
	if err := decode(OpFetchJob, body, &dto); err != nil {
		return nil, err
	}
	job := dto.toModel()
	return &job, nil
}

// ExtractResume sends the file to the resume parser and maps the extracted fields.
func (c *Client) ExtractResume(ctx context.Context, file models.ResumeFile) (*models.CandidateProfile, error) {
	payload, contentType, err := multipartBody(map[string]string{}, "file", file.Name, file.Data)
	if err != nil {
		return nil, errors.NewValidationFailedError("The resume file could not be read.", err.Error())
	}

	body, _, err := c.send(ctx, request{
		op:          OpExtractResume,
		method:      http.MethodPost,
		path:        "/resume/parse",
		body:        payload,
		contentType: contentType,
		schema:      resumeSchema,
	})
	if err != nil {
		return nil, err
	}

	var dto profileDTO
	if err := decode(OpExtractResume, body, &dto); err != nil {
		return nil, err
	}
	profile := dto.toModel()
	return &profile, nil
}

// CreateSession creates the interview record. It sends no credential: the
// response issues one in its Authorization header.
func (c *Client) CreateSession(ctx context.Context, profile models.CandidateProfile, jobID int64) (*SessionGrant, error) {
	payload, err := json.Marshal(createSessionRequest{
		profileDTO: profileToWire(profile),
		JobID:      jobID,
	})
	if err != nil {
		return nil, errors.NewValidationFailedError("The candidate profile could not be sent.", err.Error())
	}

	body, header, err := c.send(ctx, request{
		op:          OpCreateSession,
		method:      http.MethodPost,
		path:        "/interview",
		body:        payload,
		contentType: jsonContentType,
		schema:      sessionSchema,
	})
	if err != nil {
		return nil, err
	}

	token, err := ExtractBearerToken(header)
	if err != nil {
		return nil, err
	}

	var dto createSessionResponse
	if err := decode(OpCreateSession, body, &dto); err != nil {
		return nil, err
	}
	if dto.ID == "" {
		return nil, errors.NewMalformedResponseError(OpCreateSession, fmt.Errorf("session id missing"))
	}

	echoed := dto.profileDTO.toModel()
	return &SessionGrant{
		SessionID:  string(dto.ID),
		Profile:    echoed,
		Credential: token,
	}, nil
}

// ExtractBearerToken reads the session credential from a response header.
func ExtractBearerToken(header http.Header) (string, error) {
	values := header.Values(authorizationHeader)
	if len(values) == 0 {
		return "", errors.NewAuthExtractionFailedError("authorization header absent")
	}
	if len(values) > 1 {
		return "", errors.NewAuthExtractionFailedError("multiple authorization headers")
	}

	value := strings.TrimSpace(values[0])
	if len(value) <= len(bearerPrefix) || !strings.EqualFold(value[:len(bearerPrefix)], bearerPrefix) {
		return "", errors.NewAuthExtractionFailedError("authorization header is not a bearer token")
	}

	token := strings.TrimSpace(value[len(bearerPrefix):])
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", errors.NewAuthExtractionFailedError("bearer token malformed")
	}
	return token, nil
}

// ==========================
// Session calls
// ==========================

func (c *Client) UploadResume(ctx context.Context, file models.ResumeFile) error {
	payload, contentType, err := multipartBody(map[string]string{}, "file", file.Name, file.Data)
	if err != nil {
		return errors.NewValidationFailedError("The resume file could not be read.", err.Error())
	}

	_, _, err = c.send(ctx, request{
		op:            OpUploadResume,
		method:        http.MethodPut,
		path:          "/interview/upload-resume",
		body:          payload,
		contentType:   contentType,
		authenticated: true,
	})
	return err
}

func (c *Client) AnalyzeResume(ctx context.Context) (*models.MatchAnalysis, error) {
	body, _, err := c.send(ctx, request{
		op:            OpAnalyzeResume,
		method:        http.MethodPost,
		path:          "/interview/analyze-resume",
		authenticated: true,
		schema:        analysisSchema,
	})
	if err != nil {
		return nil, err
	}

	var dto analysisDTO
	if err := decode(OpAnalyzeResume, body, &dto); err != nil {
		return nil, err
	}
	return &models.MatchAnalysis{
		Score:    dto.Score,
		Feedback: dto.Feedback,
	}, nil
}

func (c *Client) SendOTP(ctx context.Context, email string) error {
	return c.sendJSON(ctx, OpSendOTP, http.MethodPost, "/interview/send-otp", otpRequest{Email: email})
}

func (c *Client) VerifyOTP(ctx context.Context, email, code string) error {
	return c.sendJSON(ctx, OpVerifyOTP, http.MethodPost, "/interview/verify-otp", otpRequest{Email: email, OTP: code})
}

func (c *Client) FetchQuizQuestions(ctx context.Context, sessionID string) ([]models.QuizQuestion, error) {
	body, _, err := c.send(ctx, request{
		op:            OpFetchQuiz,
		method:        http.MethodGet,
		path:          "/quiz-question",
		query:         url.Values{"interview_id": {sessionID}},
		authenticated: true,
		schema:        quizSchema,
	})
	if err != nil {
		return nil, err
	}

	var dtos []quizQuestionDTO
	if err := decode(OpFetchQuiz, body, &dtos); err != nil {
		return nil, err
	}
	out := make([]models.QuizQuestion, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, dto.toModel())
	}
	return out, nil
}

func (c *Client) SubmitQuizResponses(ctx context.Context, answers []QuizAnswer) error {
	dtos := make([]quizAnswerDTO, 0, len(answers))
	for _, answer := range answers {
		dtos = append(dtos, quizAnswerDTO{QuestionID: answer.QuestionID, OptionID: answer.OptionID})
	}
	return c.sendJSON(ctx, OpSubmitQuiz, http.MethodPost, "/quiz-response", dtos)
}

func (c *Client) FetchCodingProblems(ctx context.Context, sessionID string) ([]models.CodingProblem, error) {
	body, _, err := c.send(ctx, request{
		op:            OpFetchCoding,
		method:        http.MethodGet,
		path:          "/dsa-question",
		query:         url.Values{"interview_id": {sessionID}},
		authenticated: true,
	})
	if err != nil {
		return nil, err
	}

	problems, err := decodeCodingProblems(body)
	if err != nil {
		return nil, errors.NewMalformedResponseError(OpFetchCoding, err)
	}
	return problems, nil
}

func (c *Client) SubmitCodingResponse(ctx context.Context, submission CodingSubmission) error {
	return c.sendJSON(ctx, OpSubmitCoding, http.MethodPost, "/dsa-response", codingSubmissionDTO{
		QuestionID: submission.ProblemID,
		Language:   submission.Language,
		Code:       submission.Code,
	})
}

func (c *Client) GenerateInterviewQuestions(ctx context.Context) ([]models.InterviewQuestion, error) {
	body, _, err := c.send(ctx, request{
		op:            OpGenerateQuestions,
		method:        http.MethodPost,
		path:          "/interview-question-and-response/generate-questions",
		authenticated: true,
		schema:        questionsSchema,
	})
	if err != nil {
		return nil, err
	}

	var dtos []interviewQuestionDTO
	if err := decode(OpGenerateQuestions, body, &dtos); err != nil {
		return nil, err
	}
	out := make([]models.InterviewQuestion, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, dto.toModel())
	}
	return out, nil
}

func (c *Client) SubmitTextResponse(ctx context.Context, order int, answer string) error {
	return c.sendJSON(ctx, OpSubmitText, http.MethodPut,
		"/interview-question-and-response/submit-text-response",
		textResponseDTO{QuestionOrder: order, Answer: answer})
}

// SubmitAudioResponse uploads a recorded answer and returns its transcript.
func (c *Client) SubmitAudioResponse(ctx context.Context, order int, clip AudioClip) (string, error) {
	payload, contentType, err := multipartBody(
		map[string]string{"question_id": fmt.Sprintf("%d", order)},
		"audio_file", clip.Name, clip.Data,
	)
	if err != nil {
		return "", errors.NewValidationFailedError("The recording could not be read.", err.Error())
	}

	body, _, err := c.send(ctx, request{
		op:            OpSubmitAudio,
		method:        http.MethodPut,
		path:          "/interview-question-and-response/submit-audio-response",
		body:          payload,
		contentType:   contentType,
		authenticated: true,
	})
	if err != nil {
		return "", err
	}

	var dto audioResponseDTO
	if len(bytes.TrimSpace(body)) > 0 {
		if err := decode(OpSubmitAudio, body, &dto); err != nil {
			return "", err
		}
	}
	return dto.Transcript, nil
}

// AnalyzeTranscript requests the aggregate interview feedback.
func (c *Client) AnalyzeTranscript(ctx context.Context, transcript string, job models.JobContext) (*models.Feedback, error) {
	payload, err := json.Marshal(feedbackRequest{
		Transcript: transcript,
		JobContext: jobContextDTO{
			Title:        job.Title,
			Description:  job.Description,
			Requirements: job.Requirements,
		},
	})
	if err != nil {
		return nil, errors.NewValidationFailedError("The transcript could not be sent.", err.Error())
	}

	body, _, err := c.send(ctx, request{
		op:            OpAnalyzeTranscript,
		method:        http.MethodPost,
		path:          "/interview/analyze-transcript",
		body:          payload,
		contentType:   jsonContentType,
		authenticated: true,
		schema:        feedbackSchema,
	})
	if err != nil {
		return nil, err
	}

	var dto feedbackDTO
	if err := decode(OpAnalyzeTranscript, body, &dto); err != nil {
		return nil, err
	}
	feedback := dto.toModel()
	return &feedback, nil
}

// ==========================
// Transport
// ==========================

type request struct {
	op            string
	method        string
	path          string
	query         url.Values
	body          []byte
	contentType   string
	authenticated bool
	schema        *validation.DocumentSchema
}

func (c *Client) sendJSON(ctx context.Context, op, method, path string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.NewValidationFailedError("The request could not be encoded.", err.Error())
	}
	_, _, err = c.send(ctx, request{
		op:            op,
		method:        method,
		path:          path,
		body:          payload,
		contentType:   jsonContentType,
		authenticated: true,
	})
	return err
}

// authorize returns the bearer value for an authenticated call. There is no
// fallback: an empty session slot fails before any request is made.
func (c *Client) authorize(ctx context.Context, op string) (string, error) {
	if c.credentials == nil {
		return "", errors.NewAuthorizationFailedError(op)
	}
	token, err := c.credentials.SessionCredential(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", errors.NewAuthorizationFailedError(op)
	}
	return bearerPrefix + token, nil
}

func (c *Client) send(ctx context.Context, r request) ([]byte, http.Header, error) {
	var authValue string
	if r.authenticated {
		value, err := c.authorize(ctx, r.op)
		if err != nil {
			metrics.APIRequests.WithLabelValues(r.op, "unauthorized").Inc()
			return nil, nil, err
		}
		authValue = value
	}

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var bodyReader io.Reader
	if r.body != nil {
		bodyReader = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, bodyReader)
	if err != nil {
		return nil, nil, errors.NewNetworkError(r.op, err)
	}
	if r.contentType != "" {
		req.Header.Set(contentTypeHeader, r.contentType)
	}
	if authValue != "" {
		req.Header.Set(authorizationHeader, authValue)
	}
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)
	req.Header.Set("Accept", jsonContentType)

	start := time.Now()
	resp, err := c.http.DoWithContext(ctx, req)
	metrics.APIRequestDuration.WithLabelValues(r.op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIRequests.WithLabelValues(r.op, "network_error").Inc()
		c.logger.Warn("Interview service request failed", map[string]interface{}{
			"operation": r.op,
			"requestId": requestID,
			"error":     err.Error(),
		})
		return nil, nil, errors.NewNetworkError(r.op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		metrics.APIRequests.WithLabelValues(r.op, "network_error").Inc()
		return nil, nil, errors.NewNetworkError(r.op, fmt.Errorf("read body: %w", err))
	}

	metrics.APIRequests.WithLabelValues(r.op, fmt.Sprintf("%d", resp.StatusCode)).Inc()
	c.logger.Debug("Interview service responded", map[string]interface{}{
		"operation": r.op,
		"requestId": requestID,
		"status":    resp.StatusCode,
		"duration":  time.Since(start).String(),
	})

	if stdErr := classifyStatus(r.op, resp.StatusCode, body); stdErr != nil {
		return nil, nil, stdErr.WithMetadata("requestId", requestID)
	}

	if r.schema != nil {
		if err := r.schema.Validate(body); err != nil {
			return nil, nil, errors.NewMalformedResponseError(r.op, err)
		}
	}

	return body, resp.Header, nil
}

func classifyStatus(op string, status int, body []byte) *errors.StandardError {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errors.NewAuthorizationFailedError(op)
	case status >= 500:
		return errors.NewServiceUnavailableError(op, status)
	default:
		return errors.NewRequestRejectedError(op, status, serverMessage(body))
	}
}

func decode(op string, body []byte, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		return errors.NewMalformedResponseError(op, err)
	}
	return nil
}

func multipartBody(fields map[string]string, fileField, fileName string, data []byte) ([]byte, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%s is empty", fileField)
	}
	if fileName == "" {
		fileName = fileField
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}
	part, err := writer.CreateFormFile(fileField, fileName)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}
