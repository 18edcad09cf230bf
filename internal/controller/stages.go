package controller

import (
	"fmt"

	"candidate-interview/internal/aggregator"
	"candidate-interview/internal/common/clock"
	"candidate-interview/internal/common/config"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/credentials"
	codingassessment "candidate-interview/internal/stages/coding-assessment"
	identityverification "candidate-interview/internal/stages/identity-verification"
	linkverification "candidate-interview/internal/stages/link-verification"
	"candidate-interview/internal/stages/quiz"
	resumeintake "candidate-interview/internal/stages/resume-intake"
	sessioncreation "candidate-interview/internal/stages/session-creation"
	videointerview "candidate-interview/internal/stages/video-interview"
)

// Stages holds one handler per stage of the journey.
type Stages struct {
	Link      *linkverification.Handler
	Resume    *resumeintake.Handler
	Session   *sessioncreation.Handler
	Identity  *identityverification.Handler
	Quiz      *quiz.Handler
	Coding    *codingassessment.Handler
	Interview *videointerview.Handler
}

func (s Stages) validate() error {
	switch {
	case s.Link == nil:
		return fmt.Errorf("link verification handler is required")
	case s.Resume == nil:
		return fmt.Errorf("resume intake handler is required")
	case s.Session == nil:
		return fmt.Errorf("session creation handler is required")
	case s.Identity == nil:
		return fmt.Errorf("identity verification handler is required")
	case s.Quiz == nil:
		return fmt.Errorf("quiz handler is required")
	case s.Coding == nil:
		return fmt.Errorf("coding assessment handler is required")
	case s.Interview == nil:
		return fmt.Errorf("video interview handler is required")
	}
	return nil
}

// StageAPI is everything the stages need from the interview service.
type StageAPI interface {
	linkverification.JobFetcher
	resumeintake.ResumeExtractor
	sessioncreation.SessionAPI
	identityverification.VerificationAPI
	quiz.QuizAPI
	codingassessment.CodingAPI
	videointerview.InterviewAPI
}

type StageDependencies struct {
	AppConfig   *config.Config
	API         StageAPI
	Aggregator  *aggregator.Aggregator
	Credentials *credentials.Store
	Clock       clock.Clock
	Logger      logger.Logger
}

// NewStages builds every stage handler against one service client.
func NewStages(deps StageDependencies) (Stages, error) {
	var (
		stages Stages
		err    error
	)

	if stages.Link, err = linkverification.NewHandler(linkverification.HandlerOptions{
		AppConfig: deps.AppConfig,
		Jobs:      deps.API,
		Logger:    deps.Logger,
	}); err != nil {
		return Stages{}, err
	}
	if stages.Resume, err = resumeintake.NewHandler(resumeintake.HandlerOptions{
		AppConfig: deps.AppConfig,
		Extractor: deps.API,
		Logger:    deps.Logger,
	}); err != nil {
		return Stages{}, err
	}
	if stages.Session, err = sessioncreation.NewHandler(sessioncreation.HandlerOptions{
		AppConfig:   deps.AppConfig,
		API:         deps.API,
		Credentials: deps.Credentials,
		Clock:       deps.Clock,
		Logger:      deps.Logger,
	}); err != nil {
		return Stages{}, err
	}
	if stages.Identity, err = identityverification.NewHandler(identityverification.HandlerOptions{
		AppConfig: deps.AppConfig,
		API:       deps.API,
		Logger:    deps.Logger,
	}); err != nil {
		return Stages{}, err
	}
	if stages.Quiz, err = quiz.NewHandler(quiz.HandlerOptions{
		AppConfig:  deps.AppConfig,
		API:        deps.API,
		Aggregator: deps.Aggregator,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	}); err != nil {
		return Stages{}, err
	}
	if stages.Coding, err = codingassessment.NewHandler(codingassessment.HandlerOptions{
		AppConfig:  deps.AppConfig,
		API:        deps.API,
		Aggregator: deps.Aggregator,
		Logger:     deps.Logger,
	}); err != nil {
		return Stages{}, err
	}
	if stages.Interview, err = videointerview.NewHandler(videointerview.HandlerOptions{
		AppConfig:  deps.AppConfig,
		API:        deps.API,
		Aggregator: deps.Aggregator,
		Logger:     deps.Logger,
	}); err != nil {
		return Stages{}, err
	}
	return stages, nil
}
