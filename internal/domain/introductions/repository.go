package introductions

import (
	"context"

	"makerspace-access/internal/domain/access"
)

type Repository interface {
	// CreateWithHistory persiste la introducción y su primer item en una
	// sola operación. Falla con ErrDuplicateIntroduction si ya existe una
	// fila para (receptor, objetivo).
	CreateWithHistory(ctx context.Context, intro Introduction, first HistoryItem) error

	GetByID(ctx context.Context, id string) (Introduction, error)
	FindByReceiverAndTarget(ctx context.Context, receiverID string, t access.Target) (Introduction, error)
	ListByTarget(ctx context.Context, t access.Target) ([]Introduction, error)
	ListByReceiver(ctx context.Context, receiverID string) ([]Introduction, error)

	// AppendHistory valida la transición contra la última acción visible
	// al momento de insertar: revoke sobre una introducción ya revocada
	// falla con ErrAlreadyRevoked y grant sobre una válida con
	// ErrNotRevoked. Falla con ErrNotFound si la introducción no existe.
	AppendHistory(ctx context.Context, item HistoryItem) error
	// History devuelve los items ordenados por (created_at, id).
	History(ctx context.Context, introductionID string) ([]HistoryItem, error)
}
