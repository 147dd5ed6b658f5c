package introducers

import (
	"time"

	"makerspace-access/internal/domain/access"
)

// Introducer es un rol por objetivo: el usuario queda habilitado para
// otorgar y revocar accesos sobre un recurso o grupo concreto.
type Introducer struct {
	ID string

	UserID string
	Target access.Target

	// quién le dio el rol (vacío en seeds/migraciones)
	GrantedByUserID string

	CreatedAt time.Time
}
