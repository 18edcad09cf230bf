package identityverification

import (
	"context"

	"candidate-interview/internal/common/logger"
)

// State is the verification progress of the resume email.
type State string

const (
	StateUnverified State = "unverified"
	StateCodeSent   State = "code_sent"
	StateVerified   State = "verified"
)

type SendInput struct {
	Email string `json:"email"`
}

type VerifyInput struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Progress is the payload of a successful SendCode or ChangeEmail.
type Progress struct {
	State State  `json:"state"`
	Email string `json:"email"`
}

// VerificationAPI sends and checks one-time codes.
type VerificationAPI interface {
	SendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) error
}

type ServiceDependencies struct {
	API    VerificationAPI
	Logger logger.Logger
}
