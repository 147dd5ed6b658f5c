package postgres

import (
	"context"
	"database/sql"
	"errors"

	"makerspace-access/internal/domain/resources"
)

type ResourcesRepo struct {
	db *sql.DB
}

func NewResourcesRepo(db *sql.DB) *ResourcesRepo {
	return &ResourcesRepo{db: db}
}

func (r *ResourcesRepo) CreateResource(ctx context.Context, res resources.Resource) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO resources (id, name, description, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)
	`, res.ID, res.Name, res.Description, res.CreatedAt, res.UpdatedAt)
	return err
}

func (r *ResourcesRepo) GetResource(ctx context.Context, id string) (resources.Resource, error) {
	var res resources.Resource
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM resources WHERE id = $1
	`, id).Scan(&res.ID, &res.Name, &res.Description, &res.CreatedAt, &res.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return resources.Resource{}, ErrNotFound
	}
	return res, err
}

func (r *ResourcesRepo) ListResources(ctx context.Context) ([]resources.Resource, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM resources ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]resources.Resource, 0)
	for rows.Next() {
		var res resources.Resource
		if err := rows.Scan(&res.ID, &res.Name, &res.Description, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *ResourcesRepo) CreateGroup(ctx context.Context, g resources.Group) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO resource_groups (id, name, description, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5)
	`, g.ID, g.Name, g.Description, g.CreatedAt, g.UpdatedAt)
	return err
}

func (r *ResourcesRepo) GetGroup(ctx context.Context, id string) (resources.Group, error) {
	var g resources.Group
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM resource_groups WHERE id = $1
	`, id).Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return resources.Group{}, ErrNotFound
	}
	return g, err
}

func (r *ResourcesRepo) ListGroups(ctx context.Context) ([]resources.Group, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM resource_groups ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]resources.Group, 0)
	for rows.Next() {
		var g resources.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *ResourcesRepo) AddToGroup(ctx context.Context, resourceID, groupID string) error {
	// ON CONFLICT DO NOTHING: la operación es idempotente
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO resource_group_members (resource_id, resource_group_id)
		VALUES ($1,$2)
		ON CONFLICT (resource_id, resource_group_id) DO NOTHING
	`, resourceID, groupID)
	if isForeignKeyViolation(err) {
		return resources.ErrNotFound
	}
	return err
}

func (r *ResourcesRepo) RemoveFromGroup(ctx context.Context, resourceID, groupID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM resource_group_members
		WHERE resource_id = $1 AND resource_group_id = $2
	`, resourceID, groupID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return resources.ErrNotFound
	}
	return nil
}

func (r *ResourcesRepo) GroupsOf(ctx context.Context, resourceID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT resource_group_id FROM resource_group_members WHERE resource_id = $1
	`, resourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (r *ResourcesRepo) ResourcesIn(ctx context.Context, groupID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT resource_id FROM resource_group_members WHERE resource_group_id = $1
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIDs(rows)
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
