package controller

import (
	"context"
	"fmt"

	"candidate-interview/internal/api"
	"candidate-interview/internal/models"
)

// Resume intake

func (c *Controller) ExtractResume(ctx context.Context, file models.ResumeFile) models.StageResult {
	return c.run(ctx, "extract_resume", models.StageResumeIntake, func(ctx context.Context) models.StageResult {
		return c.stages.Resume.Extract(ctx, file)
	}, nil)
}

// SubmitResume reviews the edited profile, creates the session and starts
// the match analysis in the background.
func (c *Controller) SubmitResume(ctx context.Context, profile models.CandidateProfile, file models.ResumeFile) models.StageResult {
	jobID := c.jobID()
	return c.run(ctx, "submit_resume", models.StageResumeIntake, func(ctx context.Context) models.StageResult {
		reviewed := c.stages.Resume.Review(profile, file)
		if !reviewed.OK {
			return reviewed
		}
		normalized, ok := reviewed.Payload.(models.CandidateProfile)
		if !ok {
			normalized = profile
		}
		return c.stages.Session.Create(ctx, normalized, jobID, file)
	}, func(result models.StageResult) models.StageResult {
		advanced := c.advanceLocked(result)
		if advanced.OK {
			c.startAnalysisLocked()
			c.obs.RecordSessionEvent(context.Background(), "created")
		}
		return advanced
	})
}

// Identity verification

func (c *Controller) SendCode(ctx context.Context, email string) models.StageResult {
	return c.run(ctx, "send_code", models.StageIdentityVerification, func(ctx context.Context) models.StageResult {
		return c.stages.Identity.SendCode(ctx, email)
	}, nil)
}

func (c *Controller) VerifyCode(ctx context.Context, email, code string) models.StageResult {
	return c.run(ctx, "verify_code", models.StageIdentityVerification, func(ctx context.Context) models.StageResult {
		return c.stages.Identity.VerifyCode(ctx, email, code)
	}, c.advanceLocked)
}

func (c *Controller) ChangeEmail(ctx context.Context) models.StageResult {
	return c.run(ctx, "change_email", models.StageIdentityVerification, func(context.Context) models.StageResult {
		return c.stages.Identity.ChangeEmail()
	}, nil)
}

// Quiz

func (c *Controller) LoadQuiz(ctx context.Context) models.StageResult {
	sessionID := c.sessionID()
	return c.run(ctx, "load_quiz", models.StageQuiz, func(ctx context.Context) models.StageResult {
		return c.stages.Quiz.Load(ctx, sessionID)
	}, nil)
}

func (c *Controller) AnswerQuiz(ctx context.Context, questionID int64, optionIDs ...int64) models.StageResult {
	return c.run(ctx, fmt.Sprintf("answer_quiz:%d", questionID), models.StageQuiz, func(ctx context.Context) models.StageResult {
		return c.stages.Quiz.Answer(ctx, questionID, optionIDs...)
	}, nil)
}

func (c *Controller) CompleteQuiz(ctx context.Context) models.StageResult {
	return c.run(ctx, "complete_quiz", models.StageQuiz, c.stages.Quiz.Complete, c.advanceLocked)
}

// Coding assessment

func (c *Controller) LoadCoding(ctx context.Context) models.StageResult {
	sessionID := c.sessionID()
	return c.run(ctx, "load_coding", models.StageCoding, func(ctx context.Context) models.StageResult {
		return c.stages.Coding.Load(ctx, sessionID)
	}, nil)
}

func (c *Controller) SubmitCoding(ctx context.Context, problemID int64, language, code string) models.StageResult {
	return c.run(ctx, fmt.Sprintf("submit_coding:%d", problemID), models.StageCoding, func(ctx context.Context) models.StageResult {
		return c.stages.Coding.Submit(ctx, problemID, language, code)
	}, nil)
}

func (c *Controller) CompleteCoding(ctx context.Context) models.StageResult {
	return c.run(ctx, "complete_coding", models.StageCoding, c.stages.Coding.Complete, c.advanceLocked)
}

// Video interview

func (c *Controller) StartInterview(ctx context.Context) models.StageResult {
	return c.run(ctx, "start_interview", models.StageVideoInterview, c.stages.Interview.Start, nil)
}

func (c *Controller) AnswerText(ctx context.Context, order int, answer string) models.StageResult {
	return c.run(ctx, fmt.Sprintf("answer:%d", order), models.StageVideoInterview, func(ctx context.Context) models.StageResult {
		return c.stages.Interview.AnswerText(ctx, order, answer)
	}, nil)
}

func (c *Controller) AnswerAudio(ctx context.Context, order int, clip api.AudioClip) models.StageResult {
	return c.run(ctx, fmt.Sprintf("answer:%d", order), models.StageVideoInterview, func(ctx context.Context) models.StageResult {
		return c.stages.Interview.AnswerAudio(ctx, order, clip)
	}, nil)
}

// CompleteInterview seals the interview, waits for the match analysis and
// requests feedback before entering completion. Feedback failures only
// add a warning to the summary.
func (c *Controller) CompleteInterview(ctx context.Context) models.StageResult {
	return c.run(ctx, "complete_interview", models.StageVideoInterview, func(ctx context.Context) models.StageResult {
		sealed := c.stages.Interview.Complete(ctx)
		if !sealed.OK {
			return sealed
		}
		if err := c.AwaitAnalysis(ctx); err != nil {
			return c.failure(models.StageVideoInterview, "complete_interview", err)
		}
		c.requestFeedback(ctx)
		return sealed
	}, c.advanceLocked)
}

func (c *Controller) requestFeedback(ctx context.Context) {
	job := c.Job()
	if job == nil {
		return
	}
	if _, err := c.agg.RequestFeedback(ctx, c.agg.CandidateTranscript(), job.Context(), c.feedback); err != nil {
		c.logger.Warn("Interview feedback unavailable", map[string]interface{}{
			"jobId": job.JobID,
			"error": err.Error(),
		})
	}
}

// Accessors

// Session returns a copy of the current session.
func (c *Controller) Session() *models.CandidateSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Clone()
}

func (c *Controller) CurrentStage() models.Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.CurrentStage
}

func (c *Controller) Plan() []models.Stage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Stage(nil), c.session.Plan...)
}

func (c *Controller) Job() *models.JobConfiguration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.job == nil {
		return nil
	}
	job := *c.job
	return &job
}

// Busy reports whether op is in flight on the current mount.
func (c *Controller) Busy(op string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, ok := c.busy[op]
	return ok && owner == c.epoch
}

// Transcript returns the interview conversation collected so far.
func (c *Controller) Transcript() []models.TranscriptEntry {
	return c.agg.Transcript()
}

// Responses returns every stored response of the session.
func (c *Controller) Responses() []models.InterviewResponse {
	return c.agg.AllResponses()
}

func (c *Controller) jobID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.JobID
}

func (c *Controller) sessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.SessionID
}
