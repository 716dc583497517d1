package policy

import (
	"context"
	"sync"
)

type PolicyStore interface {
	// Returns ErrNoPolicy (possibly wrapped) if the server has never been configured.
	Get(ctx context.Context, server string) (*ServerPolicy, error)
	Put(ctx context.Context, p *ServerPolicy) error
	Delete(ctx context.Context, server string) error
}

type MemPolicyStore struct {
	lk       sync.RWMutex
	policies map[string]ServerPolicy
}

var _ PolicyStore = (*MemPolicyStore)(nil)

func NewMemPolicyStore() *MemPolicyStore {
	return &MemPolicyStore{
		policies: make(map[string]ServerPolicy),
	}
}

func (s *MemPolicyStore) Get(ctx context.Context, server string) (*ServerPolicy, error) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	p, ok := s.policies[server]
	if !ok {
		return nil, ErrNoPolicy
	}
	return &p, nil
}

func (s *MemPolicyStore) Put(ctx context.Context, p *ServerPolicy) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.policies[p.ServerID] = *p.Normalize()
	return nil
}

func (s *MemPolicyStore) Delete(ctx context.Context, server string) error {
	s.lk.Lock()
	defer s.lk.Unlock()
	delete(s.policies, server)
	return nil
}
