package controller

import "candidate-interview/internal/models"

// GetPlan returns the stages that follow link verification for job, in
// order. Optional assessments are included only when the job asks for them.
func GetPlan(job models.JobConfiguration) []models.Stage {
	plan := []models.Stage{models.StageResumeIntake, models.StageIdentityVerification}
	if job.HasQuiz {
		plan = append(plan, models.StageQuiz)
	}
	if job.HasCodingTest {
		plan = append(plan, models.StageCoding)
	}
	return append(plan, models.StageVideoInterview, models.StageCompletion)
}

// nextStage returns the stage after current. Link verification leads to
// the first planned stage.
func nextStage(plan []models.Stage, current models.Stage) (models.Stage, bool) {
	if current == models.StageLinkVerification {
		if len(plan) == 0 {
			return "", false
		}
		return plan[0], true
	}
	for i, stage := range plan {
		if stage == current && i+1 < len(plan) {
			return plan[i+1], true
		}
	}
	return "", false
}

// assessments returns the planned stages that collect responses.
func assessments(plan []models.Stage) []models.Stage {
	var out []models.Stage
	for _, stage := range plan {
		if stage.IsAssessment() {
			out = append(out, stage)
		}
	}
	return out
}

// completedAssessments returns the assessment stages planned before current.
func completedAssessments(plan []models.Stage, current models.Stage) []models.Stage {
	var out []models.Stage
	for _, stage := range plan {
		if stage == current {
			break
		}
		if stage.IsAssessment() {
			out = append(out, stage)
		}
	}
	return out
}
