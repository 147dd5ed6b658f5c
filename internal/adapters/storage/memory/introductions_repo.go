package memory

import (
	"context"
	"sort"
	"sync"

	"makerspace-access/internal/domain/access"
	"makerspace-access/internal/domain/introductions"
)

type introductionsRepo struct {
	mu      sync.RWMutex
	byID    map[string]introductions.Introduction
	history map[string][]introductions.HistoryItem
}

func NewIntroductionsRepo() introductions.Repository {
	return &introductionsRepo{
		byID:    make(map[string]introductions.Introduction),
		history: make(map[string][]introductions.HistoryItem),
	}
}

func (r *introductionsRepo) CreateWithHistory(ctx context.Context, intro introductions.Introduction, first introductions.HistoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// misma garantía que el índice único parcial en Postgres
	for _, existing := range r.byID {
		if existing.ReceiverUserID == intro.ReceiverUserID && existing.Target == intro.Target {
			return introductions.ErrDuplicateIntroduction
		}
	}

	r.byID[intro.ID] = intro
	r.history[intro.ID] = []introductions.HistoryItem{first}
	return nil
}

func (r *introductionsRepo) GetByID(ctx context.Context, id string) (introductions.Introduction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	intro, ok := r.byID[id]
	if !ok {
		return introductions.Introduction{}, introductions.ErrNotFound
	}
	return intro, nil
}

func (r *introductionsRepo) FindByReceiverAndTarget(ctx context.Context, receiverID string, t access.Target) (introductions.Introduction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, intro := range r.byID {
		if intro.ReceiverUserID == receiverID && intro.Target == t {
			return intro, nil
		}
	}
	return introductions.Introduction{}, introductions.ErrNotFound
}

func (r *introductionsRepo) ListByTarget(ctx context.Context, t access.Target) ([]introductions.Introduction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]introductions.Introduction, 0)
	for _, intro := range r.byID {
		if intro.Target == t {
			out = append(out, intro)
		}
	}
	return out, nil
}

func (r *introductionsRepo) ListByReceiver(ctx context.Context, receiverID string) ([]introductions.Introduction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]introductions.Introduction, 0)
	for _, intro := range r.byID {
		if intro.ReceiverUserID == receiverID {
			out = append(out, intro)
		}
	}
	return out, nil
}

func (r *introductionsRepo) AppendHistory(ctx context.Context, item introductions.HistoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[item.IntroductionID]; !ok {
		return introductions.ErrNotFound
	}

	// misma regla que el repo de Postgres: la transición se valida con el
	// lock tomado, nunca entre dos llamadas
	items := append([]introductions.HistoryItem(nil), r.history[item.IntroductionID]...)
	valid := introductions.IsValid(items)
	if item.Action == introductions.ActionRevoke && !valid {
		return introductions.ErrAlreadyRevoked
	}
	if item.Action == introductions.ActionGrant && valid {
		return introductions.ErrNotRevoked
	}

	r.history[item.IntroductionID] = append(r.history[item.IntroductionID], item)
	return nil
}

func (r *introductionsRepo) History(ctx context.Context, introductionID string) ([]introductions.HistoryItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := r.history[introductionID]
	out := make([]introductions.HistoryItem, len(items))
	copy(out, items)

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
