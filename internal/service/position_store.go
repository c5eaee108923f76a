package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/pkg/apperrors"
	"github.com/borat14011-sudo/wom-polymarket-strategy-sub002/internal/risk"
)

// PositionStore keeps the position book in process memory, in open order.
type PositionStore struct {
	mu        sync.RWMutex
	order     []string
	positions map[string]risk.Position
}

func NewPositionStore() *PositionStore {
	return &PositionStore{positions: make(map[string]risk.Position)}
}

func (s *PositionStore) List(ctx context.Context) ([]risk.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]risk.Position, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.positions[id])
	}
	return out, nil
}

func (s *PositionStore) Add(ctx context.Context, p risk.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[p.ID]; ok {
		return apperrors.NewInvalidRequest(fmt.Sprintf("position %s already exists", p.ID))
	}
	s.positions[p.ID] = p
	s.order = append(s.order, p.ID)
	return nil
}

func (s *PositionStore) Remove(ctx context.Context, id string) (risk.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[id]
	if !ok {
		return risk.Position{}, apperrors.NewNotFound(fmt.Sprintf("position %s not found", id))
	}
	delete(s.positions, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return p, nil
}
