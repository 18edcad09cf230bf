package aggregator

import (
	"context"
	"fmt"

	"candidate-interview/internal/common/errors"
	"candidate-interview/internal/models"
)

// RequestFeedback asks for the interview feedback once every required stage
// has settled. The first completed attempt is final: later calls return the
// same feedback or the same FEEDBACK_FAILED error without a new request.
func (a *Aggregator) RequestFeedback(ctx context.Context, transcript string, job models.JobContext, requester FeedbackRequester) (*models.Feedback, error) {
	if pending := a.unsettled(); len(pending) > 0 {
		return nil, errors.NewSubmissionsPendingError(pending)
	}

	a.feedbackMu.Lock()
	defer a.feedbackMu.Unlock()
	if a.feedbackDone {
		return a.feedback, a.feedbackErr
	}

	feedback, err := a.requestFeedback(ctx, transcript, job, requester)
	a.feedbackDone = true
	a.feedback = feedback
	a.feedbackErr = err
	return feedback, err
}

func (a *Aggregator) requestFeedback(ctx context.Context, transcript string, job models.JobContext, requester FeedbackRequester) (*models.Feedback, error) {
	if requester == nil {
		return nil, errors.NewFeedbackFailedError(fmt.Errorf("no feedback service configured"))
	}
	if transcript == "" {
		return nil, errors.NewFeedbackFailedError(fmt.Errorf("transcript is empty"))
	}

	feedback, err := requester.AnalyzeTranscript(ctx, transcript, job)
	if err != nil {
		a.logger.Warn("Feedback request failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, errors.NewFeedbackFailedError(err)
	}
	if feedback == nil {
		return nil, errors.NewFeedbackFailedError(fmt.Errorf("empty feedback"))
	}

	a.logger.Info("Interview feedback received", map[string]interface{}{
		"score": feedback.Score,
	})
	return feedback, nil
}

// FeedbackOutcome returns the settled feedback request, if one ran.
func (a *Aggregator) FeedbackOutcome() (feedback *models.Feedback, done bool, err error) {
	a.feedbackMu.Lock()
	defer a.feedbackMu.Unlock()
	return a.feedback, a.feedbackDone, a.feedbackErr
}
