package memory

import (
	"context"
	"errors"
	"sync"

	"makerspace-access/internal/domain/resources"
)

type membership struct {
	resourceID string
	groupID    string
}

type resourcesRepo struct {
	mu        sync.RWMutex
	resources map[string]resources.Resource
	groups    map[string]resources.Group
	members   map[membership]struct{}
}

func NewResourcesRepo() resources.Repository {
	return &resourcesRepo{
		resources: make(map[string]resources.Resource),
		groups:    make(map[string]resources.Group),
		members:   make(map[membership]struct{}),
	}
}

func (r *resourcesRepo) CreateResource(ctx context.Context, res resources.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if res.ID == "" {
		return errors.New("resource id required")
	}
	if _, exists := r.resources[res.ID]; exists {
		return errors.New("resource already exists")
	}
	r.resources[res.ID] = res
	return nil
}

func (r *resourcesRepo) GetResource(ctx context.Context, id string) (resources.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.resources[id]
	if !ok {
		return resources.Resource{}, ErrNotFound
	}
	return res, nil
}

func (r *resourcesRepo) ListResources(ctx context.Context) ([]resources.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]resources.Resource, 0, len(r.resources))
	for _, res := range r.resources {
		out = append(out, res)
	}
	return out, nil
}

func (r *resourcesRepo) CreateGroup(ctx context.Context, g resources.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g.ID == "" {
		return errors.New("group id required")
	}
	if _, exists := r.groups[g.ID]; exists {
		return errors.New("group already exists")
	}
	r.groups[g.ID] = g
	return nil
}

func (r *resourcesRepo) GetGroup(ctx context.Context, id string) (resources.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.groups[id]
	if !ok {
		return resources.Group{}, ErrNotFound
	}
	return g, nil
}

func (r *resourcesRepo) ListGroups(ctx context.Context) ([]resources.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]resources.Group, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, g)
	}
	return out, nil
}

func (r *resourcesRepo) AddToGroup(ctx context.Context, resourceID, groupID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// idempotente
	r.members[membership{resourceID, groupID}] = struct{}{}
	return nil
}

func (r *resourcesRepo) RemoveFromGroup(ctx context.Context, resourceID, groupID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := membership{resourceID, groupID}
	if _, ok := r.members[k]; !ok {
		return resources.ErrNotFound
	}
	delete(r.members, k)
	return nil
}

func (r *resourcesRepo) GroupsOf(ctx context.Context, resourceID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0)
	for k := range r.members {
		if k.resourceID == resourceID {
			out = append(out, k.groupID)
		}
	}
	return out, nil
}

func (r *resourcesRepo) ResourcesIn(ctx context.Context, groupID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0)
	for k := range r.members {
		if k.groupID == groupID {
			out = append(out, k.resourceID)
		}
	}
	return out, nil
}
