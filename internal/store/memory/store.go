// Package memory keeps chat sessions in process memory.
package memory

import (
	"context"
	"sync"

	"github.com/zhouzirui/llm-chat/backend/internal/model/chat"
)

// Store is the default transcript store; contents are lost on restart.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	messages map[string][]chat.Message
}

func New() *Store {
	return &Store{
		sessions: make(map[string]chat.Session),
		messages: make(map[string][]chat.Message),
	}
}

func (s *Store) CreateSession(_ context.Context, session chat.Session) error {
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.messages[session.ID] = make([]chat.Message, 0, 16)
	s.mu.Unlock()
	return nil
}

func (s *Store) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, chat.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) AppendMessage(_ context.Context, message chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[message.SessionID]; !ok {
		return chat.ErrSessionNotFound
	}
	s.messages[message.SessionID] = append(s.messages[message.SessionID], message)
	return nil
}

func (s *Store) ListMessages(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[sessionID]
	if !ok {
		return nil, chat.ErrSessionNotFound
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

func (s *Store) ClearMessages(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return chat.ErrSessionNotFound
	}
	s.messages[sessionID] = make([]chat.Message, 0, 16)
	return nil
}

func (s *Store) Close() error { return nil }
