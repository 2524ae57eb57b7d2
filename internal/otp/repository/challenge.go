package repository

import (
	"context"
	"sync"

	"stylo/pkg/model"
)

// Op tells a store what to do with a challenge after a mutation.
type Op int

const (
	OpKeep Op = iota
	OpSave
	OpDelete
)

// MutateFunc inspects the current challenge and decides its fate. It is
// called with nil when no challenge exists and may be re-run on contention.
type MutateFunc func(current *model.OTPChallenge) (*model.OTPChallenge, Op)

// ChallengeStore keeps at most one challenge per session token.
type ChallengeStore interface {
	Get(ctx context.Context, token string) (*model.OTPChallenge, error)
	// Mutate applies fn atomically with respect to other mutations of the
	// same token.
	Mutate(ctx context.Context, token string, fn MutateFunc) error
	Delete(ctx context.Context, token string) error
}

type MemoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]model.OTPChallenge
}

func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{challenges: make(map[string]model.OTPChallenge)}
}

func (s *MemoryChallengeStore) Get(_ context.Context, token string) (*model.OTPChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.challenges[token]
	if !ok {
		return nil, nil
	}
	return &ch, nil
}

func (s *MemoryChallengeStore) Mutate(_ context.Context, token string, fn MutateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current *model.OTPChallenge
	if ch, ok := s.challenges[token]; ok {
		current = &ch
	}

	next, op := fn(current)
	switch op {
	case OpSave:
		s.challenges[token] = *next
	case OpDelete:
		delete(s.challenges, token)
	}
	return nil
}

func (s *MemoryChallengeStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, token)
	return nil
}
