package introducers

import (
	"context"

	"makerspace-access/internal/domain/access"
)

type Repository interface {
	// Add falla con ErrDuplicateGrant si (userID, target) ya existe.
	Add(ctx context.Context, i Introducer) error
	// Remove falla con ErrNotFound si no había rol que quitar.
	Remove(ctx context.Context, userID string, t access.Target) error
	Exists(ctx context.Context, userID string, t access.Target) (bool, error)
	ListByTarget(ctx context.Context, t access.Target) ([]Introducer, error)
	ListByUser(ctx context.Context, userID string) ([]Introducer, error)
}
