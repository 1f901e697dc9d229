// Package mailer sends email verification codes through the backend's
// email function.
package mailer

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/cella-health/cella/internal/remote"
)

// FunctionName is the backend function that delivers verification emails.
const FunctionName = "send-verification-email"

// CodeLength is the number of digits in a verification code.
const CodeLength = 6

// DefaultSendTimeout bounds one background send started by Dispatch.
const DefaultSendTimeout = 15 * time.Second

var codeSpace = big.NewInt(1_000_000)

// GenerateCode returns a uniformly random six-digit code, zero padded.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("generating code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

type message struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"len=6,numeric"`
}

var validate = validator.New()

// Mailer sends verification codes. Dispatch sends in the background; Wait
// blocks until those sends finish.
type Mailer struct {
	remote  *remote.Client
	logger  *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// New returns a Mailer. A nil logger disables logging.
func New(r *remote.Client, logger *zap.Logger) *Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{remote: r, logger: logger, timeout: DefaultSendTimeout}
}

// SendCode delivers code to email and waits for the backend to accept it.
func (m *Mailer) SendCode(ctx context.Context, email, code string) error {
	msg := message{Email: strings.TrimSpace(email), Code: code}
	if err := validate.Struct(msg); err != nil {
		return fmt.Errorf("invalid verification email: %w", err)
	}
	return m.remote.Call(ctx, FunctionName, msg, nil)
}

// Dispatch generates a code for email, starts sending it in the background,
// and returns the code. Only an invalid address or a generation failure is
// reported; delivery failures are logged.
func (m *Mailer) Dispatch(email string) (string, error) {
	email = strings.TrimSpace(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return "", fmt.Errorf("invalid email %q: %w", email, err)
	}
	code, err := GenerateCode()
	if err != nil {
		return "", err
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		if err := m.SendCode(ctx, email, code); err != nil {
			m.logger.Warn("verification email not sent", zap.String("email", email), zap.Error(err))
			return
		}
		m.logger.Debug("verification email sent", zap.String("email", email))
	}()
	return code, nil
}

// Wait blocks until every send started by Dispatch has finished.
func (m *Mailer) Wait() {
	m.wg.Wait()
}
