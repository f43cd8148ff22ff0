// Package chatclient is the client side of the chat gateway: a transcript
// store, the send orchestrator and the streaming ingestion state machine.
package chatclient

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/llm-chat/backend/pkg/completion"
)

var (
	ErrSendInFlight   = errors.New("a message is already being sent")
	ErrStreamInFlight = errors.New("a streaming message is already in flight")
	// ErrStale is returned when a send or stream was superseded, e.g. by Clear.
	ErrStale = errors.New("send is no longer current")
)

// Message is one transcript entry as rendered by a front end.
type Message struct {
	Text      string    `json:"text"`
	Role      string    `json:"role"`
	Timestamp time.Time `json:"timestamp"`
	Streaming bool      `json:"streaming,omitempty"`
}

// State is the observable client state.
type State struct {
	Messages    []Message `json:"messages"`
	Loading     bool      `json:"loading"`
	Error       string    `json:"error,omitempty"`
	InputText   string    `json:"inputText"`
	StreamingID string    `json:"streamingId,omitempty"`
}

func (s State) clone() State {
	out := s
	out.Messages = append([]Message(nil), s.Messages...)
	return out
}

// Store holds the transcript. The message list only grows by appending; the
// last entry is edited in place while it is streaming.
type Store struct {
	mu        sync.Mutex
	state     State
	sendID    string
	observers map[int]func(State)
	nextObs   int
	now       func() time.Time
}

func NewStore() *Store {
	return &Store{
		observers: make(map[int]func(State)),
		now:       time.Now,
	}
}

// Subscribe registers fn to receive a snapshot after every mutation.
// Callbacks run outside the lock on the mutating goroutine.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *Store) update(fn func(st *State) error) error {
	s.mu.Lock()
	if err := fn(&s.state); err != nil {
		s.mu.Unlock()
		return err
	}
	snapshot := s.state.clone()
	observers := make([]func(State), 0, len(s.observers))
	for _, obs := range s.observers {
		observers = append(observers, obs)
	}
	s.mu.Unlock()

	for _, obs := range observers {
		obs(snapshot)
	}
	return nil
}

func (s *Store) SetInput(text string) {
	s.update(func(st *State) error {
		st.InputText = text
		return nil
	})
}

// AddUserMessage appends a user turn and clears the input box.
func (s *Store) AddUserMessage(text string) {
	s.update(func(st *State) error {
		s.appendUser(st, text)
		return nil
	})
}

func (s *Store) appendUser(st *State, text string) {
	st.Messages = append(st.Messages, Message{Text: text, Role: completion.RoleUser, Timestamp: s.now()})
	st.InputText = ""
}

func (s *Store) busy(st *State) error {
	if st.StreamingID != "" {
		return ErrStreamInFlight
	}
	if s.sendID != "" {
		return ErrSendInFlight
	}
	return nil
}

// BeginSend records the user turn of a non-streaming send and marks the store
// loading. The returned id must be passed to CompleteSend or FailSend.
func (s *Store) BeginSend(text string) (string, error) {
	id := uuid.NewString()
	err := s.update(func(st *State) error {
		if err := s.busy(st); err != nil {
			return err
		}
		s.appendUser(st, text)
		s.sendID = id
		st.Loading = true
		st.Error = ""
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// CompleteSend appends exactly one assistant message.
func (s *Store) CompleteSend(id, text string) error {
	return s.update(func(st *State) error {
		if id == "" || id != s.sendID {
			return ErrStale
		}
		st.Messages = append(st.Messages, Message{Text: text, Role: completion.RoleAssistant, Timestamp: s.now()})
		st.Loading = false
		s.sendID = ""
		return nil
	})
}

func (s *Store) FailSend(id string, cause error) error {
	return s.update(func(st *State) error {
		if id == "" || id != s.sendID {
			return ErrStale
		}
		st.Loading = false
		st.Error = errorText(cause)
		s.sendID = ""
		return nil
	})
}

// StartStreaming records the user turn (when text is not empty) and an empty
// assistant placeholder. Only one stream may be in flight.
func (s *Store) StartStreaming(text string) (string, error) {
	id := uuid.NewString()
	err := s.update(func(st *State) error {
		if err := s.busy(st); err != nil {
			return err
		}
		if text != "" {
			s.appendUser(st, text)
		}
		st.Messages = append(st.Messages, Message{Role: completion.RoleAssistant, Timestamp: s.now(), Streaming: true})
		st.StreamingID = id
		st.Loading = true
		st.Error = ""
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// AppendStreaming appends delta verbatim to the placeholder.
func (s *Store) AppendStreaming(id, delta string) error {
	return s.update(func(st *State) error {
		last, err := streamingTail(st, id)
		if err != nil {
			return err
		}
		last.Text += delta
		return nil
	})
}

// FinishStreaming clears the streaming flag and returns the final text.
func (s *Store) FinishStreaming(id string) (string, error) {
	var text string
	err := s.update(func(st *State) error {
		last, err := streamingTail(st, id)
		if err != nil {
			return err
		}
		last.Streaming = false
		text = last.Text
		st.StreamingID = ""
		st.Loading = false
		return nil
	})
	return text, err
}

// FailStreaming discards the placeholder, sets the error and returns the
// partial text that had already streamed in.
func (s *Store) FailStreaming(id string, cause error) string {
	var partial string
	s.update(func(st *State) error {
		last, err := streamingTail(st, id)
		if err != nil {
			return err
		}
		partial = last.Text
		st.Messages = st.Messages[:len(st.Messages)-1]
		st.StreamingID = ""
		st.Loading = false
		st.Error = errorText(cause)
		return nil
	})
	return partial
}

// Clear resets messages, input, error and any in-flight send in one step.
// Late results of a superseded send are rejected with ErrStale.
func (s *Store) Clear() {
	s.update(func(st *State) error {
		*st = State{}
		s.sendID = ""
		return nil
	})
}

func (s *Store) ClearError() {
	s.update(func(st *State) error {
		st.Error = ""
		return nil
	})
}

func streamingTail(st *State, id string) (*Message, error) {
	if id == "" || id != st.StreamingID || len(st.Messages) == 0 {
		return nil, ErrStale
	}
	last := &st.Messages[len(st.Messages)-1]
	if !last.Streaming {
		return nil, ErrStale
	}
	return last, nil
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
