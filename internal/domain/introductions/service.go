package introductions

import (
	"context"
	"errors"
	"strings"
	"time"

	"makerspace-access/internal/domain/access"
	"makerspace-access/internal/platform/ids"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotAuthorized         = errors.New("actor is not an introducer for this target")
	ErrNotFound              = errors.New("not found")
	ErrDuplicateIntroduction = errors.New("receiver already has a valid introduction for this target")
	ErrAlreadyRevoked        = errors.New("introduction is already revoked")
	ErrNotRevoked            = errors.New("introduction is not revoked")
)

// Interfaces de consumo para no importar otros dominios (rompe ciclos).

type IntroducerCheck interface {
	IsIntroducerFor(ctx context.Context, userID string, t access.Target) (bool, error)
}

type PermissionCheck interface {
	HasPermission(ctx context.Context, userID string, p access.Permission) (bool, error)
}

type GroupLookup interface {
	GroupsOf(ctx context.Context, resourceID string) ([]string, error)
}

// Cache es opcional (nil deshabilita). Solo acelera HasAccess; las
// respuestas siempre se pueden reconstruir desde el repo.
type Cache interface {
	GetAccess(ctx context.Context, userID, resourceID string) (allowed bool, ok bool)
	SetAccess(ctx context.Context, userID, resourceID string, allowed bool)
	Invalidate(ctx context.Context, userID string)
}

type Service struct {
	repo        Repository
	introducers IntroducerCheck
	perms       PermissionCheck
	groups      GroupLookup
	cache       Cache
	now         func() time.Time
}

func NewService(repo Repository, introducers IntroducerCheck, perms PermissionCheck, groups GroupLookup, cache Cache) *Service {
	return &Service{
		repo:        repo,
		introducers: introducers,
		perms:       perms,
		groups:      groups,
		cache:       cache,
		now:         time.Now,
	}
}

// canActOn: el actor puede otorgar/revocar si es introducer del
// objetivo o si administra recursos.
func (s *Service) canActOn(ctx context.Context, actorID string, t access.Target) (bool, error) {
	ok, err := s.introducers.IsIntroducerFor(ctx, actorID, t)
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	return s.perms.HasPermission(ctx, actorID, access.CanManageResources)
}

type CreateInput struct {
	ActorID        string
	ReceiverUserID string
	Target         access.Target
	Comment        string
}

// Create otorga acceso. Si ya existe una introducción revocada para el
// par, agrega un item grant sobre esa misma fila en vez de crear otra.
func (s *Service) Create(ctx context.Context, in CreateInput) (Introduction, error) {
	actorID := strings.TrimSpace(in.ActorID)
	receiverID := strings.TrimSpace(in.ReceiverUserID)
	if actorID == "" || receiverID == "" {
		return Introduction{}, ErrInvalidInput
	}
	if err := in.Target.Validate(); err != nil {
		return Introduction{}, ErrInvalidInput
	}

	ok, err := s.canActOn(ctx, actorID, in.Target)
	if err != nil {
		return Introduction{}, err
	}
	if !ok {
		return Introduction{}, ErrNotAuthorized
	}

	now := s.now()

	existing, err := s.repo.FindByReceiverAndTarget(ctx, receiverID, in.Target)
	if err == nil {
		items, err := s.repo.History(ctx, existing.ID)
		if err != nil {
			return Introduction{}, err
		}
		if IsValid(items) {
			return Introduction{}, ErrDuplicateIntroduction
		}

		// reinstalar sobre la fila existente
		item := HistoryItem{
			ID:                ids.NewSortable(),
			IntroductionID:    existing.ID,
			Action:            ActionGrant,
			PerformedByUserID: actorID,
			Comment:           strings.TrimSpace(in.Comment),
			CreatedAt:         now,
		}
		if err := s.repo.AppendHistory(ctx, item); err != nil {
			// carrera: otro request reinstaló entre el fold y acá
			if errors.Is(err, ErrNotRevoked) {
				return Introduction{}, ErrDuplicateIntroduction
			}
			return Introduction{}, err
		}
		s.invalidate(ctx, receiverID)
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Introduction{}, err
	}

	intro := Introduction{
		ID:             ids.New(),
		ReceiverUserID: receiverID,
		Target:         in.Target,
		TutorUserID:    actorID,
		CreatedAt:      now,
	}
	first := HistoryItem{
		ID:                ids.NewSortable(),
		IntroductionID:    intro.ID,
		Action:            ActionGrant,
		PerformedByUserID: actorID,
		Comment:           strings.TrimSpace(in.Comment),
		CreatedAt:         now,
	}
	if err := s.repo.CreateWithHistory(ctx, intro, first); err != nil {
		// carrera: otro request creó la fila entre el Find y acá
		return Introduction{}, err
	}
	s.invalidate(ctx, receiverID)
	return intro, nil
}

type ActionInput struct {
	ActorID        string
	IntroductionID string
	Comment        string
}

// Revoke agrega un item revoke. Nunca borra historial.
func (s *Service) Revoke(ctx context.Context, in ActionInput) (HistoryItem, error) {
	return s.appendAction(ctx, in, ActionRevoke)
}

// Grant reinstala una introducción revocada agregando un item grant.
func (s *Service) Grant(ctx context.Context, in ActionInput) (HistoryItem, error) {
	return s.appendAction(ctx, in, ActionGrant)
}

func (s *Service) appendAction(ctx context.Context, in ActionInput, action Action) (HistoryItem, error) {
	actorID := strings.TrimSpace(in.ActorID)
	introID := strings.TrimSpace(in.IntroductionID)
	if actorID == "" || introID == "" {
		return HistoryItem{}, ErrInvalidInput
	}

	intro, err := s.repo.GetByID(ctx, introID)
	if err != nil {
		return HistoryItem{}, ErrNotFound
	}

	ok, err := s.canActOn(ctx, actorID, intro.Target)
	if err != nil {
		return HistoryItem{}, err
	}
	if !ok {
		return HistoryItem{}, ErrNotAuthorized
	}

	items, err := s.repo.History(ctx, intro.ID)
	if err != nil {
		return HistoryItem{}, err
	}
	valid := IsValid(items)
	if action == ActionRevoke && !valid {
		return HistoryItem{}, ErrAlreadyRevoked
	}
	if action == ActionGrant && valid {
		return HistoryItem{}, ErrNotRevoked
	}

	item := HistoryItem{
		ID:                ids.NewSortable(),
		IntroductionID:    intro.ID,
		Action:            action,
		PerformedByUserID: actorID,
		Comment:           strings.TrimSpace(in.Comment),
		CreatedAt:         s.now(),
	}
	if err := s.repo.AppendHistory(ctx, item); err != nil {
		return HistoryItem{}, err
	}
	s.invalidate(ctx, intro.ReceiverUserID)
	return item, nil
}

// Get devuelve la introducción si el actor puede verla: el receptor,
// un introducer del objetivo, o quien administra recursos.
func (s *Service) Get(ctx context.Context, actorID, introID string) (Introduction, error) {
	actorID = strings.TrimSpace(actorID)
	introID = strings.TrimSpace(introID)
	if actorID == "" || introID == "" {
		return Introduction{}, ErrInvalidInput
	}

	intro, err := s.repo.GetByID(ctx, introID)
	if err != nil {
		return Introduction{}, ErrNotFound
	}
	if err := s.requireViewer(ctx, actorID, intro); err != nil {
		return Introduction{}, err
	}
	return intro, nil
}

// History devuelve el ledger completo, ordenado.
func (s *Service) History(ctx context.Context, actorID, introID string) ([]HistoryItem, error) {
	actorID = strings.TrimSpace(actorID)
	introID = strings.TrimSpace(introID)
	if actorID == "" || introID == "" {
		return nil, ErrInvalidInput
	}

	intro, err := s.repo.GetByID(ctx, introID)
	if err != nil {
		return nil, ErrNotFound
	}
	if err := s.requireViewer(ctx, actorID, intro); err != nil {
		return nil, err
	}

	items, err := s.repo.History(ctx, intro.ID)
	if err != nil {
		return nil, err
	}
	sortHistory(items)
	return items, nil
}

// IsIntroductionValid pliega el historial de una introducción puntual.
func (s *Service) IsIntroductionValid(ctx context.Context, actorID, introID string) (bool, error) {
	intro, err := s.Get(ctx, actorID, introID)
	if err != nil {
		return false, err
	}
	items, err := s.repo.History(ctx, intro.ID)
	if err != nil {
		return false, err
	}
	return IsValid(items), nil
}

func (s *Service) ListByTarget(ctx context.Context, actorID string, t access.Target) ([]Introduction, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return nil, ErrInvalidInput
	}
	if err := t.Validate(); err != nil {
		return nil, ErrInvalidInput
	}

	ok, err := s.canActOn(ctx, actorID, t)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAuthorized
	}
	return s.repo.ListByTarget(ctx, t)
}

func (s *Service) ListByReceiver(ctx context.Context, actorID, receiverID string) ([]Introduction, error) {
	actorID = strings.TrimSpace(actorID)
	receiverID = strings.TrimSpace(receiverID)
	if actorID == "" || receiverID == "" {
		return nil, ErrInvalidInput
	}

	if actorID != receiverID {
		ok, err := s.perms.HasPermission(ctx, actorID, access.CanManageResources)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotAuthorized
		}
	}
	return s.repo.ListByReceiver(ctx, receiverID)
}

// HasAccess es la consulta de autorización final para un recurso:
// introducción válida directa, o válida sobre algún grupo que lo
// contiene. Los resultados pasan por el cache si hay uno.
func (s *Service) HasAccess(ctx context.Context, userID, resourceID string) (bool, error) {
	userID = strings.TrimSpace(userID)
	resourceID = strings.TrimSpace(resourceID)
	if userID == "" || resourceID == "" {
		return false, ErrInvalidInput
	}

	if s.cache != nil {
		if allowed, ok := s.cache.GetAccess(ctx, userID, resourceID); ok {
			return allowed, nil
		}
	}

	allowed, err := s.hasValidIntroduction(ctx, userID, access.ForResource(resourceID))
	if err != nil {
		return false, err
	}
	if !allowed {
		groupIDs, err := s.groups.GroupsOf(ctx, resourceID)
		if err != nil {
			return false, err
		}
		for _, gid := range groupIDs {
			ok, err := s.hasValidIntroduction(ctx, userID, access.ForGroup(gid))
			if err != nil {
				return false, err
			}
			if ok {
				allowed = true
				break
			}
		}
	}

	if s.cache != nil {
		s.cache.SetAccess(ctx, userID, resourceID, allowed)
	}
	return allowed, nil
}

func (s *Service) hasValidIntroduction(ctx context.Context, userID string, t access.Target) (bool, error) {
	intro, err := s.repo.FindByReceiverAndTarget(ctx, userID, t)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	items, err := s.repo.History(ctx, intro.ID)
	if err != nil {
		return false, err
	}
	return IsValid(items), nil
}

func (s *Service) requireViewer(ctx context.Context, actorID string, intro Introduction) error {
	if actorID == intro.ReceiverUserID {
		return nil
	}
	ok, err := s.canActOn(ctx, actorID, intro.Target)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAuthorized
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, userID)
	}
}
