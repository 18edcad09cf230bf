// Package aggregator collects the responses of the assessment stages,
// seals each stage once its submissions settle and requests the final
// interview feedback exactly once.
package aggregator

import (
	"context"
	"sort"
	"strings"
	"sync"

	"candidate-interview/internal/common/clock"
	"candidate-interview/internal/common/errors"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/models"
)

// SendFunc delivers one response and returns the payload to keep, which may
// carry data the service added (an audio transcript, for example). A nil
// SendFunc records the response locally only.
type SendFunc func(ctx context.Context) (models.ResponsePayload, error)

// FeedbackRequester produces feedback from the candidate transcript.
type FeedbackRequester interface {
	AnalyzeTranscript(ctx context.Context, transcript string, job models.JobContext) (*models.Feedback, error)
}

type Options struct {
	Clock  clock.Clock
	Logger logger.Logger
}

type Aggregator struct {
	clock  clock.Clock
	logger logger.Logger

	mu         sync.Mutex
	stages     map[models.Stage]*stageState
	required   []models.Stage
	transcript []models.TranscriptEntry
	seq        uint64

	feedbackMu   sync.Mutex
	feedbackDone bool
	feedback     *models.Feedback
	feedbackErr  error
}

type stageState struct {
	responses map[int]*entry
	pending   int
	sealed    bool
	// settled is closed and replaced whenever pending drops.
	settled chan struct{}
}

type entry struct {
	seq      uint64
	response models.InterviewResponse
}

func New(opts Options) *Aggregator {
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return &Aggregator{
		clock:  clk,
		logger: logger.OrDefault(opts.Logger),
		stages: make(map[models.Stage]*stageState),
	}
}

func (a *Aggregator) stage(stage models.Stage) *stageState {
	st, ok := a.stages[stage]
	if !ok {
		st = &stageState{
			responses: make(map[int]*entry),
			settled:   make(chan struct{}),
		}
		a.stages[stage] = st
	}
	return st
}

// SubmitResponse stores the response for (stage, order), replacing any
// earlier one. When several submissions for the same order overlap, the one
// started last wins regardless of which finishes first.
func (a *Aggregator) SubmitResponse(ctx context.Context, stage models.Stage, questionID string, order int, payload models.ResponsePayload, send SendFunc) (models.InterviewResponse, error) {
	a.mu.Lock()
	st := a.stage(stage)
	if st.sealed {
		a.mu.Unlock()
		return models.InterviewResponse{}, errors.NewStageSealedError(stage.String())
	}
	a.seq++
	seq := a.seq
	st.pending++
	a.mu.Unlock()

	kept := payload
	var sendErr error
	if send != nil {
		kept, sendErr = send(ctx)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	defer a.settle(st)

	if sendErr != nil {
		return models.InterviewResponse{}, sendErr
	}
	if kept.IsEmpty() {
		kept = payload
	}

	response := models.InterviewResponse{
		Stage:       stage,
		QuestionID:  questionID,
		Order:       order,
		Payload:     kept,
		SubmittedAt: a.clock.Now().UTC(),
	}
	if current, ok := st.responses[order]; ok && current.seq > seq {
		a.logger.Debug("Dropped superseded response", map[string]interface{}{
			"stage": stage.String(),
			"order": order,
		})
		return current.response, nil
	}
	st.responses[order] = &entry{seq: seq, response: response}
	return response, nil
}

// settle must be called with a.mu held.
func (a *Aggregator) settle(st *stageState) {
	st.pending--
	close(st.settled)
	st.settled = make(chan struct{})
}

// Seal stops accepting submissions for stage and waits until those already
// in flight have settled. It returns the number of stored responses.
func (a *Aggregator) Seal(ctx context.Context, stage models.Stage) (int, error) {
	for {
		a.mu.Lock()
		st := a.stage(stage)
		st.sealed = true
		if st.pending == 0 {
			count := len(st.responses)
			a.mu.Unlock()
			a.logger.Info("Stage sealed", map[string]interface{}{
				"stage":     stage.String(),
				"responses": count,
			})
			return count, nil
		}
		wait := st.settled
		a.mu.Unlock()

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-wait:
		}
	}
}

// IsSettled reports whether stage is sealed with nothing in flight.
func (a *Aggregator) IsSettled(stage models.Stage) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.stages[stage]
	return ok && st.sealed && st.pending == 0
}

func (a *Aggregator) IsSealed(stage models.Stage) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.stages[stage]
	return ok && st.sealed
}

// Responses returns the stored responses of stage ordered by order index.
func (a *Aggregator) Responses(stage models.Stage) []models.InterviewResponse {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.stages[stage]
	if !ok {
		return nil
	}
	out := make([]models.InterviewResponse, 0, len(st.responses))
	for _, e := range st.responses {
		out = append(out, e.response)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Restore loads responses and transcript saved by an earlier mount. Stages
// listed in sealed no longer accept submissions.
func (a *Aggregator) Restore(responses []models.InterviewResponse, transcript []models.TranscriptEntry, sealed ...models.Stage) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, r := range responses {
		a.seq++
		a.stage(r.Stage).responses[r.Order] = &entry{seq: a.seq, response: r}
	}
	for _, stage := range sealed {
		a.stage(stage).sealed = true
	}
	a.transcript = append(a.transcript, transcript...)
}

// AllResponses returns the stored responses of every stage.
func (a *Aggregator) AllResponses() []models.InterviewResponse {
	var out []models.InterviewResponse
	for _, stage := range models.AllStages {
		out = append(out, a.Responses(stage)...)
	}
	return out
}

// Require declares the stages that must be settled before feedback.
func (a *Aggregator) Require(stages ...models.Stage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.required = append([]models.Stage(nil), stages...)
}

func (a *Aggregator) unsettled() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, stage := range a.required {
		st, ok := a.stages[stage]
		if !ok || !st.sealed || st.pending > 0 {
			out = append(out, stage.String())
		}
	}
	return out
}

// AppendTranscript adds one line of the interview conversation.
func (a *Aggregator) AppendTranscript(speaker, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.transcript = append(a.transcript, models.TranscriptEntry{
		Speaker: speaker,
		Text:    text,
		At:      a.clock.Now(),
	})
}

func (a *Aggregator) Transcript() []models.TranscriptEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.TranscriptEntry(nil), a.transcript...)
}

// TranscriptText is the downloadable conversation.
func (a *Aggregator) TranscriptText() string {
	return FormatTranscript(a.Transcript())
}

// CandidateTranscript joins the candidate's own lines; it is what the
// feedback service scores.
func (a *Aggregator) CandidateTranscript() string {
	var lines []string
	for _, e := range a.Transcript() {
		if e.Speaker == models.SpeakerCandidate {
			lines = append(lines, e.Text)
		}
	}
	return strings.Join(lines, "\n")
}
