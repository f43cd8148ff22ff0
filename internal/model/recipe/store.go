package recipe

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("recipe not found")

// Store exposes recipe retrieval and editing for HTTP handlers.
type Store interface {
	List() []Recipe
	FindByID(id string) (Recipe, bool)
	Add(r Recipe) (Recipe, error)
	Update(id string, patch Patch) (Recipe, error)
	Delete(id string) error
	Reset()
}

// Patch carries a partial recipe update; nil fields are left unchanged.
type Patch struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Prompt      *string  `json:"prompt"`
	Model       *string  `json:"model"`
	Temperature *float64 `json:"temperature"`
	MaxTokens   *int     `json:"maxTokens"`
}

func (p Patch) apply(r Recipe) Recipe {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Prompt != nil {
		r.Prompt = *p.Prompt
	}
	if p.Model != nil {
		r.Model = *p.Model
	}
	if p.Temperature != nil {
		r.Temperature = p.Temperature
	}
	if p.MaxTokens != nil {
		r.MaxTokens = p.MaxTokens
	}
	return r
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	mu       sync.RWMutex
	defaults []Recipe
	items    []Recipe
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied recipes,
// which also become the target of Reset.
func NewMemoryStore(items []Recipe) *MemoryStore {
	return &MemoryStore{
		defaults: cloneAll(items),
		items:    cloneAll(items),
	}
}

// List returns the recipes in insertion order.
func (s *MemoryStore) List() []Recipe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.items)
}

// FindByID looks up a recipe by identifier.
func (s *MemoryStore) FindByID(id string) (Recipe, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.ID == id {
			return clone(item), true
		}
	}
	return Recipe{}, false
}

// Add validates and appends a user-defined recipe under a fresh id.
func (s *MemoryStore) Add(r Recipe) (Recipe, error) {
	if err := r.Validate(); err != nil {
		return Recipe{}, err
	}
	r.ID = "custom-" + uuid.NewString()

	s.mu.Lock()
	s.items = append(s.items, clone(r))
	s.mu.Unlock()
	return r, nil
}

func (s *MemoryStore) Update(id string, patch Patch) (Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, item := range s.items {
		if item.ID != id {
			continue
		}
		updated := patch.apply(clone(item))
		if err := updated.Validate(); err != nil {
			return Recipe{}, err
		}
		s.items[i] = updated
		return clone(updated), nil
	}
	return Recipe{}, ErrNotFound
}

func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, item := range s.items {
		if item.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Reset restores the recipes the store was created with.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	s.items = cloneAll(s.defaults)
	s.mu.Unlock()
}

func clone(r Recipe) Recipe {
	if r.Temperature != nil {
		t := *r.Temperature
		r.Temperature = &t
	}
	if r.MaxTokens != nil {
		m := *r.MaxTokens
		r.MaxTokens = &m
	}
	return r
}

func cloneAll(items []Recipe) []Recipe {
	out := make([]Recipe, len(items))
	for i, item := range items {
		out[i] = clone(item)
	}
	return out
}
