package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"candidate-interview/internal/api"
	"candidate-interview/internal/common/errors"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/controller"
	"candidate-interview/internal/models"
	"candidate-interview/internal/stages/quiz"
	"candidate-interview/pkg/registry"
)

// journey walks one candidate through every stage of the plan.
type journey struct {
	ctrl    *controller.Controller
	answers *Answers
	resume  string
	catalog *registry.StageRegistry
	in      *bufio.Reader
	out     io.Writer
	logger  logger.Logger
}

// resultError turns a failed stage result into an error for the CLI.
func resultError(result models.StageResult) error {
	return fmt.Errorf("%s: %s (%s)", result.Stage, result.Message, result.Code)
}

func (j *journey) run(ctx context.Context, link string) error {
	mounted := j.ctrl.Mount(ctx, link)
	if !mounted.OK {
		return resultError(mounted)
	}

	if outcome, ok := mounted.Payload.(controller.MountOutcome); ok {
		j.printWelcome(outcome)
	}

	for {
		stage := j.ctrl.CurrentStage()
		if stage == models.StageCompletion {
			return nil
		}

		var result models.StageResult
		switch stage {
		case models.StageResumeIntake:
			result = j.resumeIntake(ctx)
		case models.StageIdentityVerification:
			result = j.verifyIdentity(ctx)
		case models.StageQuiz:
			result = j.takeQuiz(ctx)
		case models.StageCoding:
			result = j.takeCoding(ctx)
		case models.StageVideoInterview:
			result = j.interview(ctx)
		default:
			return fmt.Errorf("cannot drive stage %s", stage)
		}
		if !result.OK {
			return resultError(result)
		}
		next := j.ctrl.CurrentStage()
		if next == stage {
			return fmt.Errorf("stage %s did not advance", stage)
		}
		j.logger.Debug("Stage finished", map[string]interface{}{
			"stage": stage.String(),
			"next":  next.String(),
		})
	}
}

func (j *journey) printWelcome(outcome controller.MountOutcome) {
	fmt.Fprintf(j.out, "%s at %s\n", outcome.Job.Title, outcome.Job.CompanyName)
	if outcome.Resumed {
		fmt.Fprintf(j.out, "Welcome back. Continuing at %s.\n", j.displayName(outcome.Stage))
	}

	steps := j.catalog.Overview(outcome.Plan)
	if len(steps) == 0 {
		return
	}
	fmt.Fprintf(j.out, "\nYour interview has %d steps (about %d minutes):\n",
		len(steps), j.catalog.EstimatedMinutes(outcome.Plan))
	for i, step := range steps {
		fmt.Fprintf(j.out, "  %d. %s (%d min) - %s\n", i+1, step.DisplayName, step.EstimatedMinutes, step.Description)
	}
	fmt.Fprintln(j.out)
}

func (j *journey) displayName(stage models.Stage) string {
	if info, ok := j.catalog.Lookup(stage); ok {
		return info.DisplayName
	}
	return stage.String()
}

func (j *journey) resumeIntake(ctx context.Context) models.StageResult {
	file, err := readResume(j.resume)
	if err != nil {
		return models.Failed(models.StageResumeIntake, string(errors.ErrCodeValidationFailed), err.Error(), false)
	}

	extracted := j.ctrl.ExtractResume(ctx, file)
	if !extracted.OK {
		return extracted
	}
	draft, _ := extracted.Payload.(models.CandidateProfile)
	profile := applyProfile(draft, j.answers.Profile)
	fmt.Fprintf(j.out, "Resume received for %s <%s>\n", profile.FullName(), profile.Email)

	return j.ctrl.SubmitResume(ctx, profile, file)
}

func readResume(path string) (models.ResumeFile, error) {
	if path == "" {
		return models.ResumeFile{}, fmt.Errorf("a resume file is required (--resume)")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return models.ResumeFile{}, fmt.Errorf("read resume: %w", err)
	}
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return models.ResumeFile{Name: filepath.Base(path), ContentType: contentType, Data: data}, nil
}

func (j *journey) verifyIdentity(ctx context.Context) models.StageResult {
	email := j.answers.Email
	if email == "" {
		if s := j.ctrl.Session(); s.Profile != nil {
			email = s.Profile.Email
		}
	}

	sent := j.ctrl.SendCode(ctx, email)
	if !sent.OK {
		return sent
	}

	code := j.answers.Code
	if code == "" {
		var err error
		if code, err = j.prompt(fmt.Sprintf("Enter the code sent to %s: ", email)); err != nil {
			return models.Failed(models.StageIdentityVerification, string(errors.ErrCodeValidationFailed), err.Error(), false)
		}
	}
	return j.ctrl.VerifyCode(ctx, email, code)
}

func (j *journey) takeQuiz(ctx context.Context) models.StageResult {
	loaded := j.ctrl.LoadQuiz(ctx)
	if !loaded.OK {
		return loaded
	}
	sheet, _ := loaded.Payload.(quiz.Sheet)
	fmt.Fprintf(j.out, "Quiz: %d questions, %s\n", len(sheet.Questions), sheet.TimeLimit)

	for _, question := range sheet.Questions {
		options, ok := j.answers.Quiz[question.ID]
		if !ok {
			continue
		}
		if answered := j.ctrl.AnswerQuiz(ctx, question.ID, options...); !answered.OK {
			return answered
		}
	}
	return j.ctrl.CompleteQuiz(ctx)
}

func (j *journey) takeCoding(ctx context.Context) models.StageResult {
	loaded := j.ctrl.LoadCoding(ctx)
	if !loaded.OK {
		return loaded
	}
	problems, _ := loaded.Payload.([]models.CodingProblem)
	fmt.Fprintf(j.out, "Coding challenge: %d problems\n", len(problems))

	for _, answer := range j.answers.Coding {
		code, err := answer.Code()
		if err != nil {
			return models.Failed(models.StageCoding, string(errors.ErrCodeValidationFailed), err.Error(), false)
		}
		if submitted := j.ctrl.SubmitCoding(ctx, answer.ProblemID, answer.Language, code); !submitted.OK {
			return submitted
		}
	}
	return j.ctrl.CompleteCoding(ctx)
}

func (j *journey) interview(ctx context.Context) models.StageResult {
	started := j.ctrl.StartInterview(ctx)
	if !started.OK {
		return started
	}
	questions, _ := started.Payload.([]models.InterviewQuestion)

	for _, question := range questions {
		fmt.Fprintf(j.out, "\nInterviewer: %s\n", question.Question)
		if answered := j.answer(ctx, question); !answered.OK {
			return answered
		}
	}

	if failed := j.settleAnalysis(ctx); failed != nil {
		return *failed
	}
	return j.ctrl.CompleteInterview(ctx)
}

func (j *journey) answer(ctx context.Context, question models.InterviewQuestion) models.StageResult {
	var scripted InterviewAnswer
	if i := question.Order - 1; i >= 0 && i < len(j.answers.Interview) {
		scripted = j.answers.Interview[i]
	}

	if scripted.Audio != "" {
		data, err := os.ReadFile(scripted.Audio)
		if err != nil {
			return models.Failed(models.StageVideoInterview, string(errors.ErrCodeValidationFailed), err.Error(), false)
		}
		return j.ctrl.AnswerAudio(ctx, question.Order, api.AudioClip{Name: filepath.Base(scripted.Audio), Data: data})
	}

	text := scripted.Text
	if text == "" {
		var err error
		if text, err = j.prompt("You: "); err != nil {
			return models.Failed(models.StageVideoInterview, string(errors.ErrCodeValidationFailed), err.Error(), false)
		}
	} else {
		fmt.Fprintf(j.out, "You: %s\n", text)
	}
	return j.ctrl.AnswerText(ctx, question.Order, text)
}

// settleAnalysis applies the scripted choice when the match analysis
// failed. It returns a result only when that choice itself failed.
func (j *journey) settleAnalysis(ctx context.Context) *models.StageResult {
	if err := j.ctrl.AwaitAnalysis(ctx); err != nil {
		return nil
	}
	if j.ctrl.Session().MatchStatus != models.AnalysisFailed {
		return nil
	}

	var result models.StageResult
	switch j.answers.OnAnalysisFailure {
	case analysisRetry:
		fmt.Fprintln(j.out, "Resume analysis failed. Trying again...")
		result = j.ctrl.RetryMatchAnalysis(ctx)
	case analysisLater:
		fmt.Fprintln(j.out, "Resume analysis failed. It will be scheduled for later.")
		result = j.ctrl.ScheduleLater(ctx)
	default:
		return nil
	}
	if !result.OK {
		return &result
	}
	return nil
}

func (j *journey) prompt(label string) (string, error) {
	fmt.Fprint(j.out, label)
	line, err := j.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
