package postgres

import (
	"context"
	"database/sql"

	"makerspace-access/internal/domain/access"
	"makerspace-access/internal/domain/introducers"
)

type IntroducersRepo struct {
	db *sql.DB
}

func NewIntroducersRepo(db *sql.DB) *IntroducersRepo {
	return &IntroducersRepo{db: db}
}

func (r *IntroducersRepo) Add(ctx context.Context, i introducers.Introducer) error {
	resourceID, groupID := i.Target.IDs()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO resource_introducers (
			id, user_id, resource_id, resource_group_id,
			granted_by_user_id, created_at
		) VALUES ($1,$2,$3,$4,$5,$6)
	`,
		i.ID,
		i.UserID,
		nullIfEmpty(resourceID),
		nullIfEmpty(groupID),
		nullIfEmpty(i.GrantedByUserID),
		i.CreatedAt,
	)
	if isUniqueViolation(err) {
		return introducers.ErrDuplicateGrant
	}
	return err
}

func (r *IntroducersRepo) Remove(ctx context.Context, userID string, t access.Target) error {
	resourceID, groupID := t.IDs()

	res, err := r.db.ExecContext(ctx, `
		DELETE FROM resource_introducers
		WHERE user_id = $1
		  AND resource_id IS NOT DISTINCT FROM $2
		  AND resource_group_id IS NOT DISTINCT FROM $3
	`, userID, nullIfEmpty(resourceID), nullIfEmpty(groupID))
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return introducers.ErrNotFound
	}
	return nil
}

func (r *IntroducersRepo) Exists(ctx context.Context, userID string, t access.Target) (bool, error) {
	resourceID, groupID := t.IDs()

	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM resource_introducers
		WHERE user_id = $1
		  AND resource_id IS NOT DISTINCT FROM $2
		  AND resource_group_id IS NOT DISTINCT FROM $3
	`, userID, nullIfEmpty(resourceID), nullIfEmpty(groupID)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *IntroducersRepo) ListByTarget(ctx context.Context, t access.Target) ([]introducers.Introducer, error) {
	resourceID, groupID := t.IDs()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, resource_id, resource_group_id, granted_by_user_id, created_at
		FROM resource_introducers
		WHERE resource_id IS NOT DISTINCT FROM $1
		  AND resource_group_id IS NOT DISTINCT FROM $2
		ORDER BY created_at
	`, nullIfEmpty(resourceID), nullIfEmpty(groupID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIntroducers(rows)
}

func (r *IntroducersRepo) ListByUser(ctx context.Context, userID string) ([]introducers.Introducer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, resource_id, resource_group_id, granted_by_user_id, created_at
		FROM resource_introducers
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIntroducers(rows)
}

func scanIntroducers(rows *sql.Rows) ([]introducers.Introducer, error) {
	out := make([]introducers.Introducer, 0)
	for rows.Next() {
		var i introducers.Introducer
		var resourceID, groupID, grantedBy sql.NullString

		if err := rows.Scan(&i.ID, &i.UserID, &resourceID, &groupID, &grantedBy, &i.CreatedAt); err != nil {
			return nil, err
		}

		t, err := access.FromIDs(resourceID.String, groupID.String)
		if err != nil {
			return nil, err
		}
		i.Target = t
		i.GrantedByUserID = grantedBy.String
		out = append(out, i)
	}
	return out, rows.Err()
}
