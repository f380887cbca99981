package email

import (
	"context"
	"errors"
	"time"
)

// Sender define la interfaz hacia el colaborador de correo. El backend solo
// genera los tokens; el envio real queda detras de esta interfaz.
type Sender interface {
	SendVerificationToken(ctx context.Context, toEmail, token string, expiresAt time.Time) error
	SendPasswordResetToken(ctx context.Context, toEmail, token string, expiresAt time.Time) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendVerificationToken(_ context.Context, _, _ string, _ time.Time) error {
	return s.err()
}

func (s *disabledSender) SendPasswordResetToken(_ context.Context, _, _ string, _ time.Time) error {
	return s.err()
}

func (s *disabledSender) err() error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
