package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New genera un ID opaco para entidades (usuarios, recursos, etc.).
func New() string {
	return uuid.NewString()
}

// NewSortable genera un ULID: ordenable lexicográficamente por tiempo de
// creación y monotónico dentro del proceso. Se usa para los items de
// historial, donde el orden de inserción importa incluso si dos items
// comparten timestamp.
func NewSortable() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
