// Package identityverification proves the candidate controls the email
// address found on their resume using a one-time code.
package identityverification

import (
	"context"
	"strings"
	"sync"

	"candidate-interview/internal/common/errors"
	"candidate-interview/internal/common/logger"
	"candidate-interview/internal/common/validation"
)

type Service struct {
	config *Config
	logger logger.Logger
	api    VerificationAPI

	mu          sync.Mutex
	state       State
	resumeEmail string
	sentTo      string
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		config: config,
		logger: logger.OrDefault(deps.Logger),
		api:    deps.API,
		state:  StateUnverified,
	}
}

// Bind sets the email every code must be sent to and resets progress.
func (s *Service) Bind(resumeEmail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumeEmail = resumeEmail
	s.state = StateUnverified
	s.sentTo = ""
}

// SendCode asks for a code for email. A different address than the resume
// email is refused before any request is made.
func (s *Service) SendCode(ctx context.Context, input *SendInput) (*Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateVerified {
		return nil, errors.NewInvalidTransitionError(string(s.state), string(StateCodeSent))
	}
	if err := s.checkEmail(input.Email); err != nil {
		return nil, err
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()
	if err := s.api.SendOTP(sendCtx, s.resumeEmail); err != nil {
		return nil, err
	}

	s.state = StateCodeSent
	s.sentTo = s.resumeEmail
	s.logger.Info("Verification code sent", map[string]interface{}{
		"email": s.resumeEmail,
	})
	return &Progress{State: s.state, Email: s.sentTo}, nil
}

// VerifyCode checks one submitted code. A rejected code keeps the code
// outstanding so the candidate can try again without a resend.
func (s *Service) VerifyCode(ctx context.Context, input *VerifyInput) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateCodeSent {
		return "", errors.NewInvalidTransitionError(string(s.state), string(StateVerified))
	}
	if err := s.checkEmail(input.Email); err != nil {
		return "", err
	}
	code := strings.TrimSpace(input.Code)
	if !validation.ValidateVerificationCode(code, s.config.CodeLength) {
		return "", errors.NewCodeFormatInvalidError(s.config.CodeLength)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()
	if err := s.api.VerifyOTP(verifyCtx, s.sentTo, code); err != nil {
		if errors.HasCode(err, errors.ErrCodeRequestRejected) {
			stdErr, _ := errors.As(err)
			return "", errors.NewVerificationCodeInvalidError(stdErr.Details)
		}
		return "", err
	}

	s.state = StateVerified
	s.logger.Info("Email verified", map[string]interface{}{
		"email": s.sentTo,
	})
	return s.sentTo, nil
}

// ChangeEmail abandons an outstanding code.
func (s *Service) ChangeEmail() (*Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateVerified:
		return nil, errors.NewInvalidTransitionError(string(s.state), string(StateUnverified))
	case StateCodeSent:
		s.logger.Info("Outstanding verification code abandoned", map[string]interface{}{
			"email": s.sentTo,
		})
	}
	s.state = StateUnverified
	s.sentTo = ""
	return &Progress{State: s.state}, nil
}

func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Service) checkEmail(email string) error {
	if s.resumeEmail == "" {
		return errors.NewStageContractViolationError(string(StateUnverified), "no resume email to verify")
	}
	if !matchesResumeEmail(email, s.resumeEmail) {
		return errors.NewEmailMismatchError(email)
	}
	return nil
}
