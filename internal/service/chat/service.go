package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/llm-chat/backend/internal/model/chat"
	"github.com/zhouzirui/llm-chat/backend/internal/store/memory"
)

var (
	ErrSessionNotFound = chat.ErrSessionNotFound
	ErrInvalidRole     = errors.New("role must be user, assistant or system")
	ErrEmptyContent    = errors.New("content is required")
)

// Store persists sessions and their transcripts.
type Store interface {
	CreateSession(ctx context.Context, session chat.Session) error
	GetSession(ctx context.Context, sessionID string) (chat.Session, error)
	AppendMessage(ctx context.Context, message chat.Message) error
	ListMessages(ctx context.Context, sessionID string) ([]chat.Message, error)
	ClearMessages(ctx context.Context, sessionID string) error
}

// Service encapsulates conversation transcript management.
type Service struct {
	store Store
}

// NewService bootstraps the chat service on the in-memory store.
func NewService() *Service {
	return NewServiceWithStore(memory.New())
}

// NewServiceWithStore uses the supplied store, e.g. the SQLite one.
func NewServiceWithStore(store Store) *Service {
	return &Service{store: store}
}

// CreateSession provisions a new transcript.
func (s *Service) CreateSession(ctx context.Context, title string) (chat.Session, error) {
	session := chat.Session{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.CreateSession(ctx, session); err != nil {
		return chat.Session{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// SaveMessage appends a message to the session history.
func (s *Service) SaveMessage(ctx context.Context, message chat.Message) (chat.Message, error) {
	if message.SessionID == "" {
		return chat.Message{}, ErrSessionNotFound
	}
	switch message.Role {
	case "user", "assistant", "system":
	default:
		return chat.Message{}, ErrInvalidRole
	}
	if message.Content == "" {
		return chat.Message{}, ErrEmptyContent
	}

	message.ID = uuid.NewString()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	if err := s.store.AppendMessage(ctx, message); err != nil {
		return chat.Message{}, err
	}
	return message, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(ctx context.Context, sessionID string) (chat.Session, error) {
	return s.store.GetSession(ctx, sessionID)
}

// LoadTranscript returns stored messages for the provided session.
func (s *Service) LoadTranscript(ctx context.Context, sessionID string) ([]chat.Message, error) {
	return s.store.ListMessages(ctx, sessionID)
}

// ClearTranscript empties the session history but keeps the session.
func (s *Service) ClearTranscript(ctx context.Context, sessionID string) error {
	return s.store.ClearMessages(ctx, sessionID)
}
