package introductions

import (
	"time"

	"makerspace-access/internal/domain/access"
)

// Introduction es la relación receptor <-> objetivo. Hay a lo sumo una
// por par: revocar y volver a otorgar agrega historial sobre la misma
// fila, nunca crea otra.
type Introduction struct {
	ID string

	ReceiverUserID string
	Target         access.Target

	// quién hizo la introducción original
	TutorUserID string

	CreatedAt time.Time
}

type Action string

const (
	ActionGrant  Action = "grant"
	ActionRevoke Action = "revoke"
)

// HistoryItem es un registro inmutable: el estado vigente se deriva
// plegando el historial, nunca editándolo.
type HistoryItem struct {
	ID             string
	IntroductionID string

	Action            Action
	PerformedByUserID string
	Comment           string

	CreatedAt time.Time
}
