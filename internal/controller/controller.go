package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"candidate-interview/internal/aggregator"
	"candidate-interview/internal/common/clock"
	"candidate-interview/internal/common/errors"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/common/metrics"
	"candidate-interview/internal/common/observability"
	"candidate-interview/internal/credentials"
	"candidate-interview/internal/integrity"
	"candidate-interview/internal/models"
	"candidate-interview/internal/session"
	linkverification "candidate-interview/internal/stages/link-verification"
)

const (
	opMount         = "mount"
	opAdvance       = "advance"
	opMatchAnalysis = "match_analysis"

	storageTimeout = 10 * time.Second

	// ReasonLinkInvalidated ends a session whose link can no longer be
	// resolved to its job.
	ReasonLinkInvalidated = "link_invalidated"
)

type Options struct {
	Stages      Stages
	Aggregator  *aggregator.Aggregator
	Feedback    aggregator.FeedbackRequester
	Credentials *credentials.Store
	// Snapshots defaults to an in-memory store.
	Snapshots session.Store
	// Monitor is optional. Without one no integrity events are recorded.
	Monitor       *integrity.Monitor
	Clock         clock.Clock
	Logger        logger.Logger
	Observability *observability.Observability
}

// Controller drives one candidate through the stage plan. It owns the
// CandidateSession and is the only component that changes the current stage.
//
// Stage calls run without the lock. Their results are applied only if the
// controller is still on the same mount and stage as when the call started.
type Controller struct {
	stages      Stages
	agg         *aggregator.Aggregator
	feedback    aggregator.FeedbackRequester
	credentials *credentials.Store
	snapshots   session.Store
	monitor     *integrity.Monitor
	clock       clock.Clock
	logger      logger.Logger
	obs         *observability.Observability
	errors      *errors.ErrorHandler

	mu           sync.Mutex
	epoch        uint64
	mounted      bool
	mountCtx     context.Context
	cancelMount  context.CancelFunc
	link         string
	job          *models.JobConfiguration
	session      models.CandidateSession
	busy         map[string]uint64
	analysisDone chan struct{}
	// after holds storage work queued under the lock and run once it is released.
	after       []func(ctx context.Context)
	snapshotSeq uint64

	// saveMu orders snapshot writes; savedSeq is the newest one applied.
	saveMu   sync.Mutex
	savedSeq uint64
}

func New(opts Options) (*Controller, error) {
	if err := opts.Stages.validate(); err != nil {
		return nil, fmt.Errorf("invalid controller options: %w", err)
	}
	if opts.Aggregator == nil {
		return nil, fmt.Errorf("invalid controller options: aggregator is required")
	}
	if opts.Credentials == nil {
		return nil, fmt.Errorf("invalid controller options: credential store is required")
	}

	log := logger.OrDefault(opts.Logger).WithFields(map[string]interface{}{
		"component": "controller",
	})
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	snapshots := opts.Snapshots
	if snapshots == nil {
		snapshots = session.NewMemoryStore()
	}
	obs := opts.Observability
	if obs == nil {
		obs = observability.Noop()
	}

	mountCtx, cancel := context.WithCancel(context.Background())
	cancel()

	return &Controller{
		stages:      opts.Stages,
		agg:         opts.Aggregator,
		feedback:    opts.Feedback,
		credentials: opts.Credentials,
		snapshots:   snapshots,
		monitor:     opts.Monitor,
		clock:       clk,
		logger:      log,
		obs:         obs,
		errors:      errors.NewErrorHandler(log),
		mountCtx:    mountCtx,
		cancelMount: cancel,
		busy:        make(map[string]uint64),
		session: models.CandidateSession{
			CurrentStage: models.StageLinkVerification,
		},
	}, nil
}

// MountOutcome is the payload of a successful Mount.
type MountOutcome struct {
	Job     models.JobConfiguration `json:"job"`
	Plan    []models.Stage          `json:"plan"`
	Stage   models.Stage            `json:"stage"`
	Resumed bool                    `json:"resumed"`
}

// Mount starts the integrity monitor, verifies link and resumes a stored
// session for the same job when its credential is still held.
func (c *Controller) Mount(ctx context.Context, link string) models.StageResult {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return c.failure(models.StageLinkVerification, opMount, errors.NewOperationInProgressError(opMount))
	}
	if c.session.CompletionEntered {
		c.mu.Unlock()
		return c.failure(models.StageCompletion, opMount,
			errors.NewInvalidTransitionError(models.StageCompletion.String(), models.StageLinkVerification.String()))
	}
	if c.session.IsTerminated() {
		reason := c.session.TerminatedReason
		c.mu.Unlock()
		return c.failure(models.StageLinkVerification, opMount, errors.NewSessionTerminatedError(reason))
	}
	c.epoch++
	epoch := c.epoch
	c.mounted = true
	c.mountCtx, c.cancelMount = context.WithCancel(context.WithoutCancel(ctx))
	mountCtx := c.mountCtx
	c.link = link
	c.busy = make(map[string]uint64)
	if c.session.StartedAt.IsZero() {
		c.session.StartedAt = c.clock.Now()
		c.session.StageEnteredAt = c.session.StartedAt
	}
	c.mu.Unlock()

	c.obs.RecordSessionEvent(ctx, "mounted")

	if c.monitor != nil {
		if err := c.monitor.Mount(mountCtx, c.integrityHooks()); err != nil {
			c.logger.Warn("Integrity monitor not mounted", map[string]interface{}{
				"error": err.Error(),
			})
		}
		if c.monitor.Terminated() {
			c.mu.Lock()
			reason := c.session.TerminatedReason
			c.mu.Unlock()
			return c.failure(models.StageLinkVerification, opMount, errors.NewSessionTerminatedError(reason))
		}
	}

	result := c.stages.Link.Verify(mountCtx, link)
	return c.applyLink(mountCtx, epoch, result)
}

func (c *Controller) parseJobID(link string) (int64, error) {
	jobID, err := linkverification.ParseJobID(link, c.stages.Link.GetConfig().LinkParam)
	if err != nil {
		return 0, errors.NewLinkInvalidError(err.Error())
	}
	return jobID, nil
}

// applyLink advances past link verification and tries to resume.
func (c *Controller) applyLink(ctx context.Context, epoch uint64, result models.StageResult) models.StageResult {
	c.mu.Lock()
	if c.epoch != epoch || !c.mounted {
		c.mu.Unlock()
		return c.stale(models.StageLinkVerification, opMount)
	}
	if !result.OK {
		c.mu.Unlock()
		if fatalLinkCode(result.Code) {
			c.invalidateLink(ctx)
		}
		return result
	}

	if c.session.CurrentStage != models.StageLinkVerification {
		outcome, ok := result.Payload.(models.LinkOutcome)
		if !ok || outcome.Job.JobID != c.session.JobID {
			c.mu.Unlock()
			c.invalidateLink(ctx)
			return c.failure(models.StageLinkVerification, opMount,
				errors.NewStageContractViolationError(models.StageLinkVerification.String(), "link names a different job than the session"))
		}
		job := outcome.Job
		c.job = &job
		if c.session.SessionID != "" && c.session.MatchStatus == models.AnalysisPending {
			c.startAnalysisLocked()
		}
		out := c.mountOutcomeLocked(true)
		c.mu.Unlock()
		return models.Succeeded(models.StageLinkVerification, out)
	}

	advanced := c.advanceLocked(result)
	after := c.drainLocked()
	c.mu.Unlock()
	c.flush(after)
	if !advanced.OK {
		return advanced
	}

	resumed := c.resume(ctx, epoch)

	c.mu.Lock()
	out := c.mountOutcomeLocked(resumed)
	c.mu.Unlock()
	return models.Succeeded(models.StageLinkVerification, out)
}

func fatalLinkCode(code string) bool {
	return code == string(errors.ErrCodeLinkInvalid) || code == string(errors.ErrCodeJobConfigFetchFailed)
}

// invalidateLink revokes the session credential and ends the session. The
// link cannot be retried on this controller.
func (c *Controller) invalidateLink(ctx context.Context) {
	revokeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storageTimeout)
	defer cancel()
	if err := c.credentials.ClearSessionCredential(revokeCtx); err != nil {
		c.logger.Warn("Failed to revoke session credential", map[string]interface{}{
			"error": err.Error(),
		})
	}
	c.terminate(ReasonLinkInvalidated)
}

func (c *Controller) mountOutcomeLocked(resumed bool) MountOutcome {
	out := MountOutcome{
		Plan:    append([]models.Stage(nil), c.session.Plan...),
		Stage:   c.session.CurrentStage,
		Resumed: resumed,
	}
	if c.job != nil {
		out.Job = *c.job
	}
	return out
}

// Unmount invalidates every in-flight operation and stops the monitor. The
// session and its snapshot are kept so a later Mount can resume.
func (c *Controller) Unmount() {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = false
	c.epoch++
	c.cancelMount()
	c.busy = make(map[string]uint64)
	after := c.drainLocked()
	c.mu.Unlock()

	c.flush(after)
	if c.monitor != nil {
		c.monitor.Unmount()
	}
	c.obs.RecordSessionEvent(context.Background(), "unmounted")
}

// Advance checks result against the exit contract of the current stage and
// moves to the next planned stage when it holds.
func (c *Controller) Advance(result models.StageResult) models.StageResult {
	c.mu.Lock()
	if err := c.guardLocked(c.session.CurrentStage); err != nil {
		c.mu.Unlock()
		return c.failure(result.Stage, opAdvance, err)
	}
	out := c.advanceLocked(result)
	after := c.drainLocked()
	c.mu.Unlock()

	c.flush(after)
	return out
}

// run executes one stage operation. op may not overlap with itself, the
// session must be on stage, and the result is dropped if the mount or
// stage changed while call was in flight. apply runs under the lock for
// successful results only.
func (c *Controller) run(ctx context.Context, op string, stage models.Stage,
	call func(ctx context.Context) models.StageResult,
	apply func(result models.StageResult) models.StageResult,
) models.StageResult {
	c.mu.Lock()
	if err := c.guardLocked(stage); err != nil {
		c.mu.Unlock()
		return c.failure(stage, op, err)
	}
	if _, busy := c.busy[op]; busy {
		c.mu.Unlock()
		return c.failure(stage, op, errors.NewOperationInProgressError(op))
	}
	epoch := c.epoch
	c.busy[op] = epoch
	opCtx, cancel := mergeContext(ctx, c.mountCtx)
	c.mu.Unlock()
	defer cancel()

	started := c.clock.Now()
	result := call(opCtx)

	c.mu.Lock()
	if owner, ok := c.busy[op]; ok && owner == epoch {
		delete(c.busy, op)
	}
	if c.session.IsTerminated() {
		reason := c.session.TerminatedReason
		c.mu.Unlock()
		return c.failure(stage, op, errors.NewSessionTerminatedError(reason))
	}
	if c.epoch != epoch || c.session.CurrentStage != stage {
		c.mu.Unlock()
		return c.stale(stage, op)
	}
	if result.OK && apply != nil {
		result = apply(result)
	}
	after := c.drainLocked()
	c.mu.Unlock()

	c.flush(after)
	c.obs.RecordStageDuration(ctx, stage.String(), c.clock.Now().Sub(started), resultStatus(result))
	c.obs.RecordStageResult(ctx, stage.String(), resultStatus(result))
	return result
}

// guardLocked reports why stage cannot run now, if it cannot.
func (c *Controller) guardLocked(stage models.Stage) error {
	switch {
	case c.session.IsTerminated():
		return errors.NewSessionTerminatedError(c.session.TerminatedReason)
	case !c.mounted:
		return errors.NewInvalidTransitionError("unmounted", stage.String())
	case c.session.CompletionEntered:
		return errors.NewInvalidTransitionError(models.StageCompletion.String(), stage.String())
	case c.session.CurrentStage != stage:
		return errors.NewInvalidTransitionError(c.session.CurrentStage.String(), stage.String())
	}
	return nil
}

// advanceLocked applies a stage result to the session.
func (c *Controller) advanceLocked(result models.StageResult) models.StageResult {
	current := c.session.CurrentStage
	if result.Stage != current {
		return c.stale(result.Stage, opAdvance)
	}
	if !result.OK {
		return result
	}
	if err := c.checkExitLocked(result); err != nil {
		return c.failure(current, opAdvance, err)
	}

	switch current {
	case models.StageLinkVerification:
		job := result.Payload.(models.LinkOutcome).Job
		c.job = &job
		c.session.JobID = job.JobID
		c.session.JobTitle = job.Title
		c.session.CompanyName = job.CompanyName
		c.session.Plan = GetPlan(job)
		c.agg.Require(assessments(c.session.Plan)...)
	case models.StageResumeIntake:
		outcome := result.Payload.(models.ResumeIntakeOutcome)
		profile := outcome.Profile
		c.session.SessionID = outcome.SessionID
		c.session.Profile = &profile
		c.session.ResumeReference = outcome.ResumeReference
		c.session.HasCredential = true
		c.stages.Identity.Bind(profile.Email)
	case models.StageIdentityVerification:
		c.session.VerifiedEmail = result.Payload.(models.IdentityOutcome).VerifiedEmail
	}

	next, ok := nextStage(c.session.Plan, current)
	if !ok {
		return c.failure(current, opAdvance, errors.NewInvalidTransitionError(current.String(), "none"))
	}
	c.moveLocked(current, next)
	if next == models.StageCompletion {
		c.enterCompletionLocked()
	} else {
		c.queueSnapshotLocked()
	}
	return result
}

func (c *Controller) moveLocked(from, to models.Stage) {
	now := c.clock.Now()
	elapsed := now.Sub(c.session.StageEnteredAt)
	metrics.StageTransitions.WithLabelValues(from.String(), to.String()).Inc()
	metrics.StageDuration.WithLabelValues(from.String()).Observe(elapsed.Seconds())

	c.session.CurrentStage = to
	c.session.StageEnteredAt = now
	c.logger.Info("Stage transition", map[string]interface{}{
		"from":      from.String(),
		"to":        to.String(),
		"sessionId": c.session.SessionID,
		"elapsed":   elapsed.String(),
	})
}

// enterCompletionLocked runs exactly once per session.
func (c *Controller) enterCompletionLocked() {
	if c.session.CompletionEntered {
		return
	}
	now := c.clock.Now()
	c.session.CompletionEntered = true
	c.session.CompletedAt = &now
	c.session.HasCredential = false

	if feedback, done, err := c.agg.FeedbackOutcome(); done && err == nil && feedback != nil {
		c.session.Feedback = feedback
	} else {
		c.session.Warnings = append(c.session.Warnings, WarningFeedbackUnavailable)
	}
	switch c.session.MatchStatus {
	case models.AnalysisFailed:
		c.session.Warnings = append(c.session.Warnings, WarningAnalysisUnavailable)
	case models.AnalysisDeferred:
		c.session.Warnings = append(c.session.Warnings, WarningAnalysisDeferred)
	}

	jobID, seq := c.session.JobID, c.nextSnapshotSeqLocked()
	c.after = append(c.after, func(ctx context.Context) {
		if err := c.credentials.ClearSessionCredential(ctx); err != nil {
			c.logger.Error("Failed to clear session credential", map[string]interface{}{
				"error": err.Error(),
			})
		}
		c.persist(seq, func() { c.deleteSnapshot(ctx, jobID) })
		c.obs.RecordSessionEvent(ctx, "completed")
	})
}

// Candidate-facing notes attached to the completion summary.
const (
	WarningFeedbackUnavailable = "Interview feedback is not available right now."
	WarningAnalysisUnavailable = "Resume match analysis is not available."
	WarningAnalysisDeferred    = "Resume match analysis was scheduled for later."
)

// integrityHooks connects the monitor to this controller's session.
func (c *Controller) integrityHooks() integrity.Hooks {
	return integrity.Hooks{
		Session: func() (string, int64, models.Stage) {
			c.mu.Lock()
			defer c.mu.Unlock()
			return c.session.SessionID, c.session.JobID, c.session.CurrentStage
		},
		OnEvent: func(event models.IntegrityEvent) {
			c.mu.Lock()
			c.session.IntegrityEvents = append(c.session.IntegrityEvents, event)
			c.mu.Unlock()
		},
		OnTerminate: c.terminate,
	}
}

// terminate ends the session after an integrity violation. The monitor has
// already revoked the credential.
func (c *Controller) terminate(reason string) {
	c.mu.Lock()
	if c.session.IsTerminated() || c.session.CompletionEntered {
		c.mu.Unlock()
		return
	}
	c.session.TerminatedReason = reason
	c.session.HasCredential = false
	jobID, link := c.session.JobID, c.link
	seq := c.nextSnapshotSeqLocked()
	c.busy = make(map[string]uint64)
	c.mu.Unlock()

	if jobID == 0 {
		jobID, _ = c.parseJobID(link)
	}

	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	if jobID > 0 {
		c.persist(seq, func() { c.deleteSnapshot(ctx, jobID) })
	}
	c.obs.RecordSessionEvent(ctx, "terminated")
	c.logger.Warn("Interview session terminated", map[string]interface{}{
		"reason": reason,
		"jobId":  jobID,
	})
}

func (c *Controller) failure(stage models.Stage, op string, err error) models.StageResult {
	stdErr := c.errors.HandleStageError(stage.String(), op, err)
	return models.Failed(stage, string(stdErr.Code), stdErr.Message, stdErr.Retryable)
}

func (c *Controller) stale(stage models.Stage, op string) models.StageResult {
	metrics.StaleResults.WithLabelValues(stage.String()).Inc()
	return c.failure(stage, op, errors.NewStaleResultError(stage.String()))
}

func (c *Controller) drainLocked() []func(ctx context.Context) {
	after := c.after
	c.after = nil
	return after
}

func (c *Controller) flush(after []func(ctx context.Context)) {
	if len(after) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	for _, fn := range after {
		fn(ctx)
	}
}

// mergeContext returns a context cancelled when either parent is.
func mergeContext(ctx, mount context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(mount, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}

func resultStatus(result models.StageResult) string {
	if result.OK {
		return "succeeded"
	}
	return "failed"
}
