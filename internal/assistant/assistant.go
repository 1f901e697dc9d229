// Package assistant asks the hosted AI function questions on a user's
// behalf. Any failure yields a fixed fallback reply so callers always have
// something to show.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/cella-health/cella/internal/remote"
)

// FunctionName is the backend function that answers questions.
const FunctionName = "ask-cella"

// MaxQuestionBytes caps the question length sent to the function.
const MaxQuestionBytes = 4 * 1024

// MessageType classifies a question.
type MessageType string

const (
	Question  MessageType = "question"
	Emergency MessageType = "emergency"
	General   MessageType = "general"
)

// ErrUnknownMessageType is returned by ParseMessageType.
var ErrUnknownMessageType = errors.New("unknown message type")

// ErrEmptyResponse means the function answered without a response text.
var ErrEmptyResponse = errors.New("empty assistant response")

// ParseMessageType returns the MessageType named s. An empty s is Question.
func ParseMessageType(s string) (MessageType, error) {
	switch MessageType(strings.ToLower(strings.TrimSpace(s))) {
	case "", Question:
		return Question, nil
	case Emergency:
		return Emergency, nil
	case General:
		return General, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMessageType, s)
}

// Fallback replies.
const (
	FallbackReply = "I'm having trouble connecting right now. Please try again in a moment, " +
		"and keep up with your fluids and medications in the meantime."
	EmergencyFallbackReply = "I can't reach the assistant right now. If you have severe pain, " +
		"a fever of 38.5°C or higher, chest pain, trouble breathing, or sudden weakness, " +
		"call emergency services or go to the nearest emergency department immediately."
)

// Fallback returns the reply used when the function cannot be reached.
func Fallback(mt MessageType) string {
	if mt == Emergency {
		return EmergencyFallbackReply
	}
	return FallbackReply
}

type request struct {
	UserID      string      `json:"userId" validate:"required"`
	Question    string      `json:"question" validate:"required,maxbytes"`
	MessageType MessageType `json:"messageType" validate:"oneof=question emergency general"`
}

type response struct {
	Response string `json:"response"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxQuestionBytes
	})
	return v
}

// Client asks questions through a remote.Client.
type Client struct {
	remote *remote.Client
	logger *zap.Logger
}

// New returns a Client. A nil logger disables logging.
func New(r *remote.Client, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{remote: r, logger: logger}
}

// Ask sends question for userID and returns the assistant's reply. On any
// failure it returns the fallback reply for mt together with the cause, so
// the reply is always displayable.
func (c *Client) Ask(ctx context.Context, userID, question string, mt MessageType) (string, error) {
	req := request{UserID: userID, Question: strings.TrimSpace(question), MessageType: mt}
	if err := validate.Struct(req); err != nil {
		return Fallback(mt), fmt.Errorf("invalid question: %w", err)
	}

	var resp response
	if err := c.remote.Call(ctx, FunctionName, req, &resp); err != nil {
		c.logger.Warn("assistant unavailable",
			zap.String("user", userID),
			zap.String("message_type", string(mt)),
			zap.Error(err))
		return Fallback(mt), err
	}
	if strings.TrimSpace(resp.Response) == "" {
		return Fallback(mt), ErrEmptyResponse
	}
	return resp.Response, nil
}
