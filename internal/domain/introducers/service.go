package introducers

import (
	"context"
	"errors"
	"strings"
	"time"

	"makerspace-access/internal/domain/access"
	"makerspace-access/internal/platform/ids"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotFound       = errors.New("not found")
	ErrDuplicateGrant = errors.New("user is already an introducer for this target")
)

// GroupLookup evita importar el paquete resources (rompe ciclos).
type GroupLookup interface {
	GroupsOf(ctx context.Context, resourceID string) ([]string, error)
}

type Service struct {
	repo   Repository
	groups GroupLookup
	now    func() time.Time
}

func NewService(repo Repository, groups GroupLookup) *Service {
	return &Service{
		repo:   repo,
		groups: groups,
		now:    time.Now,
	}
}

type GrantInput struct {
	UserID          string
	Target          access.Target
	GrantedByUserID string
}

// Grant registra el rol. Duplicados son error explícito, no no-op:
// el cliente debe enterarse de que el rol ya existía.
func (s *Service) Grant(ctx context.Context, in GrantInput) (Introducer, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return Introducer{}, ErrInvalidInput
	}
	if err := in.Target.Validate(); err != nil {
		return Introducer{}, ErrInvalidInput
	}

	exists, err := s.repo.Exists(ctx, userID, in.Target)
	if err != nil {
		return Introducer{}, err
	}
	if exists {
		return Introducer{}, ErrDuplicateGrant
	}

	i := Introducer{
		ID:              ids.New(),
		UserID:          userID,
		Target:          in.Target,
		GrantedByUserID: strings.TrimSpace(in.GrantedByUserID),
		CreatedAt:       s.now(),
	}
	if err := s.repo.Add(ctx, i); err != nil {
		return Introducer{}, err
	}
	return i, nil
}

// Revoke quita el rol. No toca las autorizaciones ya otorgadas por
// este introducer: el historial queda como está.
func (s *Service) Revoke(ctx context.Context, userID string, t access.Target) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrInvalidInput
	}
	if err := t.Validate(); err != nil {
		return ErrInvalidInput
	}
	return s.repo.Remove(ctx, userID, t)
}

func (s *Service) ListByTarget(ctx context.Context, t access.Target) ([]Introducer, error) {
	if err := t.Validate(); err != nil {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByTarget(ctx, t)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Introducer, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByUser(ctx, userID)
}

// IsIntroducerFor responde si el usuario tiene el rol para el objetivo.
// Para recursos también cuenta el rol heredado: ser introducer de un
// grupo habilita sobre cada recurso que el grupo contiene.
func (s *Service) IsIntroducerFor(ctx context.Context, userID string, t access.Target) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, ErrInvalidInput
	}
	if err := t.Validate(); err != nil {
		return false, ErrInvalidInput
	}

	ok, err := s.repo.Exists(ctx, userID, t)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	// los grupos no heredan de nadie; solo los recursos miran a sus grupos
	if _, isGroup := t.IsGroup(); isGroup {
		return false, nil
	}

	groupIDs, err := s.groups.GroupsOf(ctx, t.ID())
	if err != nil {
		return false, err
	}
	for _, gid := range groupIDs {
		ok, err := s.repo.Exists(ctx, userID, access.ForGroup(gid))
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
