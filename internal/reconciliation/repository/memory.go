package repository

import (
	"context"
	"sync"

	"github.com/fekuna/omnipos-checkout-service/internal/model"
)

type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*model.CountSession
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string]*model.CountSession)}
}

func (r *MemoryRepository) FindByID(_ context.Context, id string) (*model.CountSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

func (r *MemoryRepository) Save(_ context.Context, s *model.CountSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s.Clone()
	return nil
}
