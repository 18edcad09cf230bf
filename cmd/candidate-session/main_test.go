package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"candidate-interview/internal/aggregator"
	"candidate-interview/internal/api"
	"candidate-interview/internal/apistub"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/controller"
	"candidate-interview/internal/credentials"
	"candidate-interview/internal/integrity"
	"candidate-interview/internal/models"
	"candidate-interview/internal/session"
	"candidate-interview/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Answers
// ==========================

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAnswers(t *testing.T) {
	source := writeFile(t, "solution.py", "def solve():\n    return 1\n")
	path := writeFile(t, "answers.yaml", fmt.Sprintf(`
profile:
  phone: "555-0199"
email: a@x.com
code: "123456"
quiz:
  1: [11]
  2: [21, 22]
coding:
  - problem_id: 7
    language: python
    source_file: %s
interview:
  - I build services.
  - text: I enjoy debugging.
  - audio: answer3.webm
on_analysis_failure: later
`, source))

	answers, err := LoadAnswers(path)
	require.NoError(t, err)

	assert.Equal(t, "555-0199", answers.Profile.Phone)
	assert.Equal(t, []int64{21, 22}, answers.Quiz[2])
	require.Len(t, answers.Interview, 3)
	assert.Equal(t, "I build services.", answers.Interview[0].Text)
	assert.Equal(t, "I enjoy debugging.", answers.Interview[1].Text)
	assert.Equal(t, "answer3.webm", answers.Interview[2].Audio)
	assert.Equal(t, analysisLater, answers.OnAnalysisFailure)

	code, err := answers.Coding[0].Code()
	require.NoError(t, err)
	assert.Contains(t, code, "def solve")
}

func TestLoadAnswers_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "unknown field", body: "emial: a@x.com\n", wantErr: "emial"},
		{name: "bad analysis choice", body: "on_analysis_failure: wait\n", wantErr: "on_analysis_failure"},
		{name: "coding without source", body: "coding:\n  - problem_id: 7\n    language: go\n", wantErr: "source or source_file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadAnswers(writeFile(t, "answers.yaml", tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApplyProfile(t *testing.T) {
	draft := apistub.DefaultProfile()
	override := &models.CandidateProfile{Phone: "555-0199", Skills: []string{"Go"}, FirstName: " "}

	merged := applyProfile(draft, override)

	assert.Equal(t, "555-0199", merged.Phone)
	assert.Equal(t, []string{"Go"}, merged.Skills)
	assert.Equal(t, draft.FirstName, merged.FirstName)
	assert.Equal(t, draft, applyProfile(draft, nil))
}

// ==========================
// Terminal Environment
// ==========================

func TestTerminalEnvironment_MarkerMeansReload(t *testing.T) {
	marker := markerPath(t.TempDir(), 42)

	first, err := newTerminalEnvironment(marker, &bytes.Buffer{}, nil, func() {})
	require.NoError(t, err)
	assert.Equal(t, integrity.NavigationNavigate, first.NavigationType())

	second, err := newTerminalEnvironment(marker, &bytes.Buffer{}, nil, func() {})
	require.NoError(t, err)
	assert.Equal(t, integrity.NavigationReload, second.NavigationType())

	require.NoError(t, second.Close())
	require.NoError(t, first.Close())
	_, err = os.Stat(marker)
	assert.True(t, os.IsNotExist(err))

	third, err := newTerminalEnvironment(marker, &bytes.Buffer{}, nil, func() {})
	require.NoError(t, err)
	defer third.Close()
	assert.Equal(t, integrity.NavigationNavigate, third.NavigationType())
}

func TestTerminalEnvironment_InterruptAsksBeforeLeaving(t *testing.T) {
	interrupts := make(chan os.Signal, 1)
	left := make(chan struct{}, 1)
	var out syncBuffer
	env, err := newTerminalEnvironment(markerPath(t.TempDir(), 1), &out, interrupts, func() { left <- struct{}{} })
	require.NoError(t, err)
	defer env.Close()

	unregister := env.OnBeforeUnload(func() bool { return true })
	defer unregister()

	interrupts <- os.Interrupt
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Press Ctrl+C again")
	}, time.Second, 5*time.Millisecond)
	assert.Len(t, left, 0)

	interrupts <- os.Interrupt
	select {
	case <-left:
	case <-time.After(time.Second):
		t.Fatal("second interrupt did not leave")
	}
}

func TestTerminalEnvironment_InterruptWithoutSessionLeaves(t *testing.T) {
	interrupts := make(chan os.Signal, 1)
	left := make(chan struct{}, 1)
	env, err := newTerminalEnvironment(markerPath(t.TempDir(), 1), &bytes.Buffer{}, interrupts, func() { left <- struct{}{} })
	require.NoError(t, err)
	defer env.Close()

	interrupts <- os.Interrupt

	select {
	case <-left:
	case <-time.After(time.Second):
		t.Fatal("interrupt did not leave")
	}
}

// ==========================
// Journey
// ==========================

type journeyFixture struct {
	stub   *apistub.Server
	ctrl   *controller.Controller
	out    *syncBuffer
	resume string
}

func newJourneyFixture(t *testing.T, job models.JobConfiguration) *journeyFixture {
	t.Helper()
	stub := apistub.New(apistub.Options{Logger: logger.NewNoOpLogger()})
	stub.AddJob(job)
	server := httptest.NewServer(stub.Handler())
	t.Cleanup(server.Close)

	store := credentials.NewMemoryStore(logger.NewNoOpLogger())
	client := api.NewClient(api.Options{BaseURL: server.URL, Timeout: 5 * time.Second, Logger: logger.NewNoOpLogger()}, store)
	agg := aggregator.New(aggregator.Options{Logger: logger.NewNoOpLogger()})
	stages, err := controller.NewStages(controller.StageDependencies{
		API:         client,
		Aggregator:  agg,
		Credentials: store,
		Logger:      logger.NewNoOpLogger(),
	})
	require.NoError(t, err)
	ctrl, err := controller.New(controller.Options{
		Stages:      stages,
		Aggregator:  agg,
		Feedback:    client,
		Credentials: store,
		Snapshots:   session.NewMemoryStore(),
		Logger:      logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(ctrl.Unmount)

	return &journeyFixture{
		stub:   stub,
		ctrl:   ctrl,
		out:    &syncBuffer{},
		resume: writeFile(t, "cv.pdf", "%PDF-1.4 resume"),
	}
}

func (f *journeyFixture) journey(answers *Answers, input string) *journey {
	return &journey{
		ctrl:    f.ctrl,
		answers: answers,
		resume:  f.resume,
		catalog: registry.Default(),
		in:      bufio.NewReader(strings.NewReader(input)),
		out:     f.out,
		logger:  logger.NewNoOpLogger(),
	}
}

func TestJourney_FullRun(t *testing.T) {
	f := newJourneyFixture(t, models.JobConfiguration{
		JobID: 43, Title: "Platform Engineer", CompanyName: "Acme",
		HasQuiz: true, HasCodingTest: true,
	})
	answers := &Answers{
		Quiz:      map[int64][]int64{1: {11}, 2: {21, 22}, 3: {32}},
		Coding:    []CodingAnswer{{ProblemID: 7, Language: "python", Source: "print(1)"}},
		Interview: []InterviewAnswer{{Text: "one"}, {Text: "two"}, {Text: "three"}},
	}
	j := f.journey(answers, "")
	// The code is only known once it was sent, so it is read from the stub.
	j.in = bufio.NewReader(&otpReader{stub: f.stub, email: "a@x.com"})

	err := j.run(context.Background(), "https://careers.example.com/interview?job_id=43")
	require.NoError(t, err, f.out.String())

	assert.Equal(t, models.StageCompletion, f.ctrl.CurrentStage())
	assert.Len(t, f.ctrl.Responses(), 7)
	assert.Contains(t, f.out.String(), "Your interview has 3 steps (about 62 minutes)")
	assert.Contains(t, f.out.String(), "Enter the code sent to a@x.com")

	var summary bytes.Buffer
	require.NoError(t, writeOutputs(options{format: "text"}, f.ctrl, &summary))
	assert.Contains(t, summary.String(), "Interview completed!")
	assert.Contains(t, summary.String(), "Responses: quiz 3, coding 1, interview 3")
}

func TestJourney_PromptsForMissingAnswers(t *testing.T) {
	f := newJourneyFixture(t, models.JobConfiguration{JobID: 42, Title: "Backend Engineer", CompanyName: "Acme Robotics"})
	answers := &Answers{Interview: []InterviewAnswer{{Text: "scripted"}}}
	j := f.journey(answers, "")
	j.in = bufio.NewReader(&otpReader{stub: f.stub, email: "a@x.com", after: "typed two\ntyped three\n"})

	err := j.run(context.Background(), "https://careers.example.com/interview?job_id=42")
	require.NoError(t, err, f.out.String())

	answersByOrder := f.stub.TextAnswers(f.ctrl.Session().SessionID)
	assert.Equal(t, map[int]string{1: "scripted", 2: "typed two", 3: "typed three"}, answersByOrder)

	dir := t.TempDir()
	exportPath := filepath.Join(dir, "session.xlsx")
	var out bytes.Buffer
	require.NoError(t, writeOutputs(options{format: "json", transcriptPath: dir, exportPath: exportPath}, f.ctrl, &out))

	transcript, err := os.ReadFile(filepath.Join(dir, "acme-robotics-interview-transcript.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(transcript), "typed three")
	assert.Contains(t, string(transcript), "=== Interview Feedback ===")
	_, err = os.Stat(exportPath)
	assert.NoError(t, err)
}

func TestJourney_ScheduleLaterAfterAnalysisFailure(t *testing.T) {
	f := newJourneyFixture(t, models.JobConfiguration{JobID: 42, Title: "Backend Engineer", CompanyName: "Acme"})
	f.stub.FailOperation(api.OpAnalyzeResume, http.StatusInternalServerError, "busy", 0)
	answers := &Answers{
		Interview:         []InterviewAnswer{{Text: "one"}, {Text: "two"}, {Text: "three"}},
		OnAnalysisFailure: analysisLater,
	}
	j := f.journey(answers, "")
	j.in = bufio.NewReader(&otpReader{stub: f.stub, email: "a@x.com"})

	err := j.run(context.Background(), "https://careers.example.com/interview?job_id=42")
	require.NoError(t, err, f.out.String())

	s := f.ctrl.Session()
	assert.Equal(t, models.AnalysisDeferred, s.MatchStatus)
	assert.Contains(t, s.Warnings, controller.WarningAnalysisDeferred)
}

func TestJourney_MissingResume(t *testing.T) {
	f := newJourneyFixture(t, models.JobConfiguration{JobID: 42, Title: "Backend Engineer", CompanyName: "Acme"})
	j := f.journey(&Answers{}, "")
	j.resume = ""

	err := j.run(context.Background(), "https://careers.example.com/interview?job_id=42")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--resume")
	assert.Equal(t, models.StageResumeIntake, f.ctrl.CurrentStage())
}

// otpReader answers the first prompt with the last code the stub sent to
// email, then serves after.
type otpReader struct {
	stub  *apistub.Server
	email string
	after string
	sent  bool
	rest  *strings.Reader
}

func (r *otpReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		r.rest = strings.NewReader(r.stub.LastOTP(r.email) + "\n" + r.after)
	}
	return r.rest.Read(p)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
