package memory

import (
	"context"
	"sync"

	"makerspace-access/internal/domain/access"
	"makerspace-access/internal/domain/introducers"
)

type roleKey struct {
	userID string
	target access.Target
}

type introducersRepo struct {
	mu    sync.RWMutex
	byKey map[roleKey]introducers.Introducer
}

func NewIntroducersRepo() introducers.Repository {
	return &introducersRepo{
		byKey: make(map[roleKey]introducers.Introducer),
	}
}

func (r *introducersRepo) Add(ctx context.Context, i introducers.Introducer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := roleKey{i.UserID, i.Target}
	if _, exists := r.byKey[k]; exists {
		return introducers.ErrDuplicateGrant
	}
	r.byKey[k] = i
	return nil
}

func (r *introducersRepo) Remove(ctx context.Context, userID string, t access.Target) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := roleKey{userID, t}
	if _, exists := r.byKey[k]; !exists {
		return introducers.ErrNotFound
	}
	delete(r.byKey, k)
	return nil
}

func (r *introducersRepo) Exists(ctx context.Context, userID string, t access.Target) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byKey[roleKey{userID, t}]
	return ok, nil
}

func (r *introducersRepo) ListByTarget(ctx context.Context, t access.Target) ([]introducers.Introducer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]introducers.Introducer, 0)
	for k, i := range r.byKey {
		if k.target == t {
			out = append(out, i)
		}
	}
	return out, nil
}

func (r *introducersRepo) ListByUser(ctx context.Context, userID string) ([]introducers.Introducer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]introducers.Introducer, 0)
	for k, i := range r.byKey {
		if k.userID == userID {
			out = append(out, i)
		}
	}
	return out, nil
}
