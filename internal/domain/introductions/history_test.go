package introductions

import (
	"testing"
	"time"
)

func TestIsValid_EmptyHistory(t *testing.T) {
	if !IsValid(nil) {
		t.Fatalf("expected empty history to be valid")
	}
}

func TestIsValid_LastActionWins(t *testing.T) {
	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	items := []HistoryItem{
		{ID: "01A", Action: ActionGrant, CreatedAt: base},
		{ID: "01B", Action: ActionRevoke, CreatedAt: base.Add(time.Minute)},
	}
	if IsValid(items) {
		t.Fatalf("expected revoked")
	}

	items = append(items, HistoryItem{ID: "01C", Action: ActionGrant, CreatedAt: base.Add(2 * time.Minute)})
	if !IsValid(items) {
		t.Fatalf("expected valid after re-grant")
	}
}

func TestIsValid_UnsortedInput(t *testing.T) {
	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	// desordenado a propósito: el pliegue debe ordenar primero
	items := []HistoryItem{
		{ID: "01C", Action: ActionGrant, CreatedAt: base.Add(2 * time.Minute)},
		{ID: "01A", Action: ActionGrant, CreatedAt: base},
		{ID: "01B", Action: ActionRevoke, CreatedAt: base.Add(time.Minute)},
	}
	if !IsValid(items) {
		t.Fatalf("expected valid: latest item is a grant")
	}
}

func TestSortHistory_TieBreakByID(t *testing.T) {
	at := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	// mismo instante: desempata el ID (ULID, monotónico)
	items := []HistoryItem{
		{ID: "01B", Action: ActionRevoke, CreatedAt: at},
		{ID: "01A", Action: ActionGrant, CreatedAt: at},
	}
	sortHistory(items)
	if items[0].ID != "01A" || items[1].ID != "01B" {
		t.Fatalf("expected ID tie-break, got %s, %s", items[0].ID, items[1].ID)
	}
	if IsValid(items) {
		t.Fatalf("expected revoked: revoke has the later ID")
	}
}
