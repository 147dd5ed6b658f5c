package access

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidTarget se devuelve cuando un target no apunta a exactamente
	// una entidad (recurso XOR grupo de recursos).
	ErrInvalidTarget = errors.New("invalid target")
)

// Kind identifica el tipo de entidad a la que apunta un Target.
type Kind string

const (
	KindResource Kind = "resource"
	KindGroup    Kind = "resource_group"
)

// Target apunta a un recurso o a un grupo de recursos, nunca a ambos.
// En la base de datos esto se persiste como dos columnas nullable
// (resource_id / resource_group_id); ese detalle vive en los adapters.
// Los campos son privados para que la única forma de construir un Target
// sea a través de los constructores, que garantizan el invariante.
type Target struct {
	kind Kind
	id   string
}

// ForResource construye un target que apunta a un recurso.
func ForResource(resourceID string) Target {
	return Target{kind: KindResource, id: strings.TrimSpace(resourceID)}
}

// ForGroup construye un target que apunta a un grupo de recursos.
func ForGroup(groupID string) Target {
	return Target{kind: KindGroup, id: strings.TrimSpace(groupID)}
}

// FromIDs reconstruye un Target a partir de dos IDs opcionales (por ejemplo,
// dos columnas nullable leídas de la base). Exactamente uno debe venir.
func FromIDs(resourceID, groupID string) (Target, error) {
	resourceID = strings.TrimSpace(resourceID)
	groupID = strings.TrimSpace(groupID)

	switch {
	case resourceID != "" && groupID != "":
		return Target{}, fmt.Errorf("%w: both resource and group set", ErrInvalidTarget)
	case resourceID != "":
		return ForResource(resourceID), nil
	case groupID != "":
		return ForGroup(groupID), nil
	default:
		return Target{}, fmt.Errorf("%w: neither resource nor group set", ErrInvalidTarget)
	}
}

// Validate verifica el invariante (kind conocido + id no vacío).
func (t Target) Validate() error {
	if t.id == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidTarget)
	}
	if t.kind != KindResource && t.kind != KindGroup {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidTarget, string(t.kind))
	}
	return nil
}

func (t Target) Kind() Kind { return t.kind }

func (t Target) ID() string { return t.id }

// IsResource devuelve el resourceID si el target apunta a un recurso.
func (t Target) IsResource() (string, bool) {
	if t.kind == KindResource {
		return t.id, true
	}
	return "", false
}

// IsGroup devuelve el groupID si el target apunta a un grupo.
func (t Target) IsGroup() (string, bool) {
	if t.kind == KindGroup {
		return t.id, true
	}
	return "", false
}

// IDs descompone el target en el par (resourceID, groupID); uno viene vacío.
// Es la operación inversa de FromIDs, pensada para los adapters de storage.
func (t Target) IDs() (resourceID, groupID string) {
	switch t.kind {
	case KindResource:
		return t.id, ""
	case KindGroup:
		return "", t.id
	default:
		return "", ""
	}
}

func (t Target) String() string {
	return string(t.kind) + ":" + t.id
}
