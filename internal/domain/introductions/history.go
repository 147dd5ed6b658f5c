package introductions

import "sort"

// sortHistory ordena cronológicamente, con el ID como desempate para
// items creados en el mismo instante (los IDs son ULID, ordenables).
func sortHistory(items []HistoryItem) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}

// IsValid pliega el historial: vale la última acción. Un historial
// vacío cuenta como válido (filas migradas de antes del ledger).
func IsValid(items []HistoryItem) bool {
	if len(items) == 0 {
		return true
	}
	sortHistory(items)
	return items[len(items)-1].Action == ActionGrant
}
