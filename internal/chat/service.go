package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/noah-isme/storefront-gateway/internal/common"
	"github.com/noah-isme/storefront-gateway/internal/session"
	"github.com/noah-isme/storefront-gateway/internal/upstream"
)

// ErrEmptyMessage rejects blank messages before any network call.
var ErrEmptyMessage = &common.AppError{
	Code:       "VALIDATION",
	Message:    "message must not be empty",
	HTTPStatus: http.StatusBadRequest,
}

// ErrCounterpartRequired is returned when an admin opens the chat surface
// without selecting a customer.
var ErrCounterpartRequired = &common.AppError{
	Code:       "VALIDATION",
	Message:    "counterpart id is required",
	HTTPStatus: http.StatusBadRequest,
}

// Upstream is the slice of the API client the chat needs.
type Upstream interface {
	ChatMessages(ctx context.Context, receiverID int64) ([]upstream.ChatMessage, error)
	SendChatMessage(ctx context.Context, receiverID int64, message string) (upstream.ChatMessage, error)
}

// Service handles chat history and sending on top of the upstream API.
// Customers always talk to the discovered admin; admins pick the customer.
type Service struct {
	upstream  Upstream
	discovery *Discovery
	relay     *Relay
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Upstream  Upstream
	Discovery *Discovery
	Relay     *Relay
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Upstream == nil {
		return nil, errors.New("chat: upstream client is required")
	}
	if cfg.Discovery == nil {
		return nil, errors.New("chat: discovery is required")
	}
	return &Service{upstream: cfg.Upstream, discovery: cfg.Discovery, relay: cfg.Relay}, nil
}

// Counterpart resolves who the session holder is talking to. For customers
// that is the discovered admin; admins must name the customer explicitly.
func (s *Service) Counterpart(ctx context.Context, requested int64) (int64, error) {
	sess, ok := session.FromContext(ctx)
	if !ok {
		return 0, session.ErrNotAuthenticated
	}
	if sess.IsAdmin() {
		if requested < 1 {
			return 0, ErrCounterpartRequired
		}
		return requested, nil
	}
	if requested >= 1 {
		return requested, nil
	}
	admin, err := s.discovery.FindAdmin(ctx)
	if err != nil {
		return 0, err
	}
	return admin.ID, nil
}

// History fetches the conversation with the resolved counterpart.
func (s *Service) History(ctx context.Context, requested int64) ([]upstream.ChatMessage, error) {
	counterpart, err := s.Counterpart(ctx, requested)
	if err != nil {
		return nil, err
	}
	messages, err := s.upstream.ChatMessages(ctx, counterpart)
	if err != nil {
		return nil, fmt.Errorf("fetch chat history: %w", err)
	}
	return messages, nil
}

// Send posts a message to the resolved counterpart and echoes it onto the
// local relay so open streams see it immediately.
func (s *Service) Send(ctx context.Context, requested int64, message string) (upstream.ChatMessage, error) {
	if strings.TrimSpace(message) == "" {
		return upstream.ChatMessage{}, ErrEmptyMessage
	}
	counterpart, err := s.Counterpart(ctx, requested)
	if err != nil {
		return upstream.ChatMessage{}, err
	}
	msg, err := s.upstream.SendChatMessage(ctx, counterpart, message)
	if err != nil {
		return upstream.ChatMessage{}, fmt.Errorf("send chat message: %w", err)
	}
	if s.relay != nil {
		s.relay.Publish(msg)
	}
	return msg, nil
}
