package resources

import (
	"context"
	"errors"
	"strings"
	"time"

	"makerspace-access/internal/platform/ids"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type CreateResourceInput struct {
	Name        string
	Description string
}

func (s *Service) CreateResource(ctx context.Context, in CreateResourceInput) (Resource, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Resource{}, ErrInvalidInput
	}

	now := s.now()
	res := Resource{
		ID:          ids.New(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateResource(ctx, res); err != nil {
		return Resource{}, err
	}
	return res, nil
}

func (s *Service) GetResource(ctx context.Context, id string) (Resource, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Resource{}, ErrInvalidInput
	}
	res, err := s.repo.GetResource(ctx, id)
	if err != nil {
		return Resource{}, ErrNotFound
	}
	return res, nil
}

func (s *Service) ListResources(ctx context.Context) ([]Resource, error) {
	return s.repo.ListResources(ctx)
}

type CreateGroupInput struct {
	Name        string
	Description string
}

func (s *Service) CreateGroup(ctx context.Context, in CreateGroupInput) (Group, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Group{}, ErrInvalidInput
	}

	now := s.now()
	g := Group{
		ID:          ids.New(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateGroup(ctx, g); err != nil {
		return Group{}, err
	}
	return g, nil
}

func (s *Service) GetGroup(ctx context.Context, id string) (Group, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Group{}, ErrInvalidInput
	}
	g, err := s.repo.GetGroup(ctx, id)
	if err != nil {
		return Group{}, ErrNotFound
	}
	return g, nil
}

func (s *Service) ListGroups(ctx context.Context) ([]Group, error) {
	return s.repo.ListGroups(ctx)
}

// AddToGroup es idempotente: agregar dos veces no es error.
func (s *Service) AddToGroup(ctx context.Context, resourceID, groupID string) error {
	resourceID = strings.TrimSpace(resourceID)
	groupID = strings.TrimSpace(groupID)
	if resourceID == "" || groupID == "" {
		return ErrInvalidInput
	}

	if _, err := s.repo.GetResource(ctx, resourceID); err != nil {
		return ErrNotFound
	}
	if _, err := s.repo.GetGroup(ctx, groupID); err != nil {
		return ErrNotFound
	}
	return s.repo.AddToGroup(ctx, resourceID, groupID)
}

func (s *Service) RemoveFromGroup(ctx context.Context, resourceID, groupID string) error {
	resourceID = strings.TrimSpace(resourceID)
	groupID = strings.TrimSpace(groupID)
	if resourceID == "" || groupID == "" {
		return ErrInvalidInput
	}
	return s.repo.RemoveFromGroup(ctx, resourceID, groupID)
}

func (s *Service) ResourceExists(ctx context.Context, id string) (bool, error) {
	if _, err := s.GetResource(ctx, id); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *Service) GroupExists(ctx context.Context, id string) (bool, error) {
	if _, err := s.GetGroup(ctx, id); err != nil {
		return false, nil
	}
	return true, nil
}

// GroupsOf devuelve los IDs de los grupos que contienen al recurso.
// Otros módulos lo usan para resolver herencia de autorizaciones.
func (s *Service) GroupsOf(ctx context.Context, resourceID string) ([]string, error) {
	resourceID = strings.TrimSpace(resourceID)
	if resourceID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.GroupsOf(ctx, resourceID)
}

func (s *Service) ResourcesIn(ctx context.Context, groupID string) ([]string, error) {
	groupID = strings.TrimSpace(groupID)
	if groupID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ResourcesIn(ctx, groupID)
}
