package controller

import (
	"context"
	stderrors "errors"
	"strings"

	"candidate-interview/internal/common/errors"
	"candidate-interview/internal/common/metrics"
	"candidate-interview/internal/models"
	"candidate-interview/internal/session"
)

// checkExitLocked verifies the exit contract of result.Stage.
func (c *Controller) checkExitLocked(result models.StageResult) error {
	stage := result.Stage
	violation := func(details string) error {
		return errors.NewStageContractViolationError(stage.String(), details)
	}

	switch stage {
	case models.StageLinkVerification:
		outcome, ok := result.Payload.(models.LinkOutcome)
		if !ok || outcome.Job.JobID <= 0 {
			return violation("job configuration missing")
		}

	case models.StageResumeIntake:
		outcome, ok := result.Payload.(models.ResumeIntakeOutcome)
		if !ok {
			return violation("session outcome missing")
		}
		profile := outcome.Profile
		switch {
		case strings.TrimSpace(outcome.SessionID) == "":
			return violation("session id missing")
		case strings.TrimSpace(outcome.ResumeReference) == "":
			return violation("resume not stored")
		case profile.FullName() == "":
			return violation("candidate name missing")
		case strings.TrimSpace(profile.Email) == "":
			return violation("candidate email missing")
		case strings.TrimSpace(profile.Phone) == "":
			return violation("candidate phone missing")
		}
		if !c.credentials.HasSessionCredential(c.mountCtx) {
			return violation("session credential not stored")
		}

	case models.StageIdentityVerification:
		outcome, ok := result.Payload.(models.IdentityOutcome)
		if !ok || c.session.Profile == nil {
			return violation("verified email missing")
		}
		if !sameEmail(outcome.VerifiedEmail, c.session.Profile.Email) {
			return violation("verified email differs from the resume email")
		}

	case models.StageQuiz, models.StageCoding, models.StageVideoInterview:
		outcome, ok := result.Payload.(models.SealedOutcome)
		if !ok || outcome.Stage != stage {
			return violation("stage not sealed")
		}
		if !c.agg.IsSettled(stage) {
			return errors.NewSubmissionsPendingError([]string{stage.String()})
		}
		next, _ := nextStage(c.session.Plan, stage)
		if next == models.StageCompletion && !c.session.MatchStatus.Settled() {
			return errors.NewOperationInProgressError(opMatchAnalysis)
		}

	case models.StageCompletion:
		return errors.NewInvalidTransitionError(stage.String(), "none")
	}
	return nil
}

func sameEmail(a, b string) bool {
	return a != "" && a == b
}

// queueSnapshotLocked saves the session once the lock is released.
func (c *Controller) queueSnapshotLocked() {
	if c.session.SessionID == "" || c.session.CompletionEntered || c.session.IsTerminated() {
		return
	}
	seq := c.nextSnapshotSeqLocked()
	snapshot := &session.Snapshot{
		JobID:      c.session.JobID,
		Session:    c.session.Clone(),
		Responses:  c.agg.AllResponses(),
		Transcript: c.agg.Transcript(),
		SavedAt:    c.clock.Now(),
	}
	c.after = append(c.after, func(ctx context.Context) {
		c.persist(seq, func() {
			if err := c.snapshots.Save(ctx, snapshot); err != nil {
				c.errors.HandleStageError(snapshot.Session.CurrentStage.String(), "save_snapshot",
					errors.NewStorageFailedError("save_snapshot", err))
			}
		})
	})
}

func (c *Controller) nextSnapshotSeqLocked() uint64 {
	c.snapshotSeq++
	return c.snapshotSeq
}

// persist runs write unless a newer snapshot write already ran.
func (c *Controller) persist(seq uint64, write func()) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	if seq <= c.savedSeq {
		return
	}
	c.savedSeq = seq
	write()
}

func (c *Controller) deleteSnapshot(ctx context.Context, jobID int64) {
	if err := c.snapshots.Delete(ctx, jobID); err != nil {
		c.logger.Warn("Failed to delete session snapshot", map[string]interface{}{
			"jobId": jobID,
			"error": err.Error(),
		})
	}
}

// resume restores a stored session for the verified job. A snapshot whose
// credential is gone can never be resumed and is discarded.
func (c *Controller) resume(ctx context.Context, epoch uint64) bool {
	c.mu.Lock()
	jobID := c.session.JobID
	c.mu.Unlock()

	snapshot, err := c.snapshots.Load(ctx, jobID)
	if err != nil {
		if !stderrors.Is(err, session.ErrNotFound) {
			c.logger.Warn("Failed to load session snapshot", map[string]interface{}{
				"jobId": jobID,
				"error": err.Error(),
			})
		}
		return false
	}

	restored := snapshot.Session
	if restored == nil || restored.SessionID == "" || restored.IsTerminated() ||
		restored.CompletionEntered || !c.credentials.HasSessionCredential(ctx) {
		c.logger.Info("Discarding session snapshot", map[string]interface{}{
			"jobId": jobID,
		})
		c.deleteSnapshot(ctx, jobID)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch || c.session.CurrentStage != models.StageResumeIntake {
		metrics.StaleResults.WithLabelValues(models.StageResumeIntake.String()).Inc()
		return false
	}

	plan := c.session.Plan
	restored = restored.Clone()
	restored.Plan = plan
	restored.HasCredential = true
	restored.IntegrityEvents = append(restored.IntegrityEvents, c.session.IntegrityEvents...)
	if !stageInPlan(plan, restored.CurrentStage) || restored.CurrentStage == models.StageCompletion {
		c.logger.Warn("Snapshot stage is not part of the plan", map[string]interface{}{
			"stage": restored.CurrentStage.String(),
		})
		return false
	}
	c.session = *restored

	profile := models.CandidateProfile{}
	if restored.Profile != nil {
		profile = *restored.Profile
	}
	c.stages.Session.Restore(restored.SessionID, profile, restored.ResumeReference)
	c.stages.Identity.Bind(profile.Email)
	c.agg.Restore(snapshot.Responses, snapshot.Transcript, completedAssessments(plan, restored.CurrentStage)...)

	if c.session.MatchStatus == models.AnalysisPending || c.session.MatchStatus == models.AnalysisNotStarted {
		c.startAnalysisLocked()
	}

	c.logger.Info("Session resumed", map[string]interface{}{
		"sessionId": restored.SessionID,
		"stage":     restored.CurrentStage.String(),
	})
	c.obs.RecordSessionEvent(ctx, "resumed")
	return true
}

func stageInPlan(plan []models.Stage, stage models.Stage) bool {
	for _, s := range plan {
		if s == stage {
			return true
		}
	}
	return false
}

// startAnalysisLocked requests the match analysis in the background. The
// result is applied only to the session and mount that asked for it.
func (c *Controller) startAnalysisLocked() {
	c.session.MatchStatus = models.AnalysisPending
	done := make(chan struct{})
	c.analysisDone = done
	epoch, sessionID, ctx := c.epoch, c.session.SessionID, c.mountCtx
	c.busy[opMatchAnalysis] = epoch

	go func() {
		defer close(done)
		result := c.stages.Session.RequestMatchAnalysis(ctx)

		c.mu.Lock()
		if owner, ok := c.busy[opMatchAnalysis]; ok && owner == epoch {
			delete(c.busy, opMatchAnalysis)
		}
		if c.epoch != epoch || c.session.SessionID != sessionID ||
			c.session.CompletionEntered || c.session.IsTerminated() ||
			c.session.MatchStatus != models.AnalysisPending {
			c.mu.Unlock()
			metrics.StaleResults.WithLabelValues(opMatchAnalysis).Inc()
			return
		}

		if analysis, ok := result.Payload.(models.MatchAnalysis); result.OK && ok {
			c.session.MatchAnalysis = &analysis
			c.session.MatchStatus = models.AnalysisSucceeded
		} else {
			c.session.MatchStatus = models.AnalysisFailed
			c.logger.Warn("Resume match analysis failed", map[string]interface{}{
				"sessionId": sessionID,
				"code":      result.Code,
			})
		}
		c.queueSnapshotLocked()
		after := c.drainLocked()
		c.mu.Unlock()

		c.flush(after)
	}()
}

// AwaitAnalysis blocks until the match analysis has settled or ctx ends.
func (c *Controller) AwaitAnalysis(ctx context.Context) error {
	c.mu.Lock()
	status, done := c.session.MatchStatus, c.analysisDone
	c.mu.Unlock()

	if status != models.AnalysisPending || done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.NewOperationInProgressError(opMatchAnalysis)
	}
}

// RetryMatchAnalysis starts a new analysis after a failed or deferred one.
func (c *Controller) RetryMatchAnalysis(ctx context.Context) models.StageResult {
	c.mu.Lock()
	stage := c.session.CurrentStage
	if err := c.analysisGuardLocked(); err != nil {
		c.mu.Unlock()
		return c.failure(stage, "retry_match_analysis", err)
	}
	switch c.session.MatchStatus {
	case models.AnalysisPending:
		c.mu.Unlock()
		return c.failure(stage, "retry_match_analysis", errors.NewOperationInProgressError(opMatchAnalysis))
	case models.AnalysisSucceeded:
		c.mu.Unlock()
		return c.failure(stage, "retry_match_analysis",
			errors.NewInvalidTransitionError(string(models.AnalysisSucceeded), string(models.AnalysisPending)))
	}
	c.startAnalysisLocked()
	c.mu.Unlock()

	c.obs.RecordSessionEvent(ctx, "analysis_retried")
	return models.Succeeded(stage, models.AnalysisPending)
}

// ScheduleLater lets completion go ahead without the match analysis. A
// result that arrives afterwards is discarded.
func (c *Controller) ScheduleLater(ctx context.Context) models.StageResult {
	c.mu.Lock()
	stage := c.session.CurrentStage
	if err := c.analysisGuardLocked(); err != nil {
		c.mu.Unlock()
		return c.failure(stage, "schedule_later", err)
	}
	if c.session.MatchStatus == models.AnalysisSucceeded {
		c.mu.Unlock()
		return c.failure(stage, "schedule_later",
			errors.NewInvalidTransitionError(string(models.AnalysisSucceeded), string(models.AnalysisDeferred)))
	}
	c.session.MatchStatus = models.AnalysisDeferred
	delete(c.busy, opMatchAnalysis)
	c.queueSnapshotLocked()
	after := c.drainLocked()
	c.mu.Unlock()

	c.flush(after)
	c.obs.RecordSessionEvent(ctx, "analysis_deferred")
	return models.Succeeded(stage, models.AnalysisDeferred)
}

func (c *Controller) analysisGuardLocked() error {
	switch {
	case c.session.IsTerminated():
		return errors.NewSessionTerminatedError(c.session.TerminatedReason)
	case !c.mounted:
		return errors.NewInvalidTransitionError("unmounted", c.session.CurrentStage.String())
	case c.session.CompletionEntered:
		return errors.NewInvalidTransitionError(models.StageCompletion.String(), c.session.CurrentStage.String())
	case c.session.SessionID == "":
		return errors.NewInvalidTransitionError(c.session.CurrentStage.String(), opMatchAnalysis)
	}
	return nil
}
