package users

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
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrDuplicateUser  = errors.New("username or email already taken")
	ErrBadCredentials = errors.New("bad credentials")
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

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register crea una cuenta local. El primer usuario registrado queda
// como administrador: recibe todos los permisos y el email verificado,
// para que el sistema sea usable sin sembrar datos a mano.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if username == "" || email == "" {
		return User{}, ErrInvalidInput
	}
	if len(in.Password) < 8 {
		return User{}, ErrInvalidInput
	}
	if !strings.Contains(email, "@") {
		return User{}, ErrInvalidInput
	}

	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return User{}, ErrDuplicateUser
	}
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return User{}, ErrDuplicateUser
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return User{}, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return User{}, err
	}

	now := s.now()
	u := User{
		ID:           ids.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if total == 0 {
		u.Permissions = append([]access.Permission(nil), access.AllPermissions...)
		u.EmailVerified = true
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

// Authenticate valida username (o email) + password.
func (s *Service) Authenticate(ctx context.Context, login, password string) (User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	if login == "" || password == "" {
		return User{}, ErrInvalidInput
	}

	u, err := s.repo.GetByUsername(ctx, login)
	if err != nil {
		u, err = s.repo.GetByEmail(ctx, login)
		if err != nil {
			return User{}, ErrBadCredentials
		}
	}

	if !verifyPassword(u.PasswordHash, password) {
		return User{}, ErrBadCredentials
	}
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, ErrInvalidInput
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// SetPermissions reemplaza el set completo del usuario destino.
// Requiere que el actor tenga can_manage_users.
func (s *Service) SetPermissions(ctx context.Context, actorID, targetID string, perms []access.Permission) (User, error) {
	actorID = strings.TrimSpace(actorID)
	targetID = strings.TrimSpace(targetID)
	if actorID == "" || targetID == "" {
		return User{}, ErrInvalidInput
	}

	normalized, ok := access.NormalizePermissions(perms)
	if !ok {
		return User{}, ErrInvalidInput
	}

	actor, err := s.repo.GetByID(ctx, actorID)
	if err != nil {
		return User{}, ErrForbidden
	}
	if !actor.HasPermission(access.CanManageUsers) {
		return User{}, ErrForbidden
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return User{}, ErrNotFound
	}

	target.Permissions = normalized
	target.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, target); err != nil {
		return User{}, err
	}
	return target, nil
}

// UserExists es la consulta puntual que usan otros módulos para
// validar referencias a usuarios sin traer el registro completo.
func (s *Service) UserExists(ctx context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, nil
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return false, nil
	}
	return true, nil
}

// HasPermission es la consulta puntual que usan otros módulos.
func (s *Service) HasPermission(ctx context.Context, userID string, p access.Permission) (bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return false, ErrInvalidInput
	}
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return false, nil
	}
	return u.HasPermission(p), nil
}
