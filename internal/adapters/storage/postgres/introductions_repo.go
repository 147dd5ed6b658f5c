package postgres

import (
	"context"
	"database/sql"
	"errors"

	"makerspace-access/internal/domain/access"
	"makerspace-access/internal/domain/introductions"
)

type IntroductionsRepo struct {
	db *sql.DB
}

func NewIntroductionsRepo(db *sql.DB) *IntroductionsRepo {
	return &IntroductionsRepo{db: db}
}

// CreateWithHistory inserta la introducción y su primer item en una
// transacción: una fila sin historial solo puede ser data migrada,
// nunca algo que este código produjo a medias.
func (r *IntroductionsRepo) CreateWithHistory(ctx context.Context, intro introductions.Introduction, first introductions.HistoryItem) error {
	resourceID, groupID := intro.Target.IDs()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO resource_introductions (
			id, receiver_user_id, resource_id, resource_group_id,
			tutor_user_id, created_at
		) VALUES ($1,$2,$3,$4,$5,$6)
	`,
		intro.ID,
		intro.ReceiverUserID,
		nullIfEmpty(resourceID),
		nullIfEmpty(groupID),
		nullIfEmpty(intro.TutorUserID),
		intro.CreatedAt,
	)
	if isUniqueViolation(err) {
		return introductions.ErrDuplicateIntroduction
	}
	if err != nil {
		return err
	}

	if err := insertHistoryItem(ctx, tx, first); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *IntroductionsRepo) GetByID(ctx context.Context, id string) (introductions.Introduction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, receiver_user_id, resource_id, resource_group_id, tutor_user_id, created_at
		FROM resource_introductions
		WHERE id = $1
	`, id)
	return scanIntroduction(row)
}

func (r *IntroductionsRepo) FindByReceiverAndTarget(ctx context.Context, receiverID string, t access.Target) (introductions.Introduction, error) {
	resourceID, groupID := t.IDs()

	row := r.db.QueryRowContext(ctx, `
		SELECT id, receiver_user_id, resource_id, resource_group_id, tutor_user_id, created_at
		FROM resource_introductions
		WHERE receiver_user_id = $1
		  AND resource_id IS NOT DISTINCT FROM $2
		  AND resource_group_id IS NOT DISTINCT FROM $3
	`, receiverID, nullIfEmpty(resourceID), nullIfEmpty(groupID))
	return scanIntroduction(row)
}

func (r *IntroductionsRepo) ListByTarget(ctx context.Context, t access.Target) ([]introductions.Introduction, error) {
	resourceID, groupID := t.IDs()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, receiver_user_id, resource_id, resource_group_id, tutor_user_id, created_at
		FROM resource_introductions
		WHERE resource_id IS NOT DISTINCT FROM $1
		  AND resource_group_id IS NOT DISTINCT FROM $2
		ORDER BY created_at
	`, nullIfEmpty(resourceID), nullIfEmpty(groupID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIntroductions(rows)
}

func (r *IntroductionsRepo) ListByReceiver(ctx context.Context, receiverID string) ([]introductions.Introduction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, receiver_user_id, resource_id, resource_group_id, tutor_user_id, created_at
		FROM resource_introductions
		WHERE receiver_user_id = $1
		ORDER BY created_at
	`, receiverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIntroductions(rows)
}

// AppendHistory inserta con la fila de la introducción bloqueada y la
// transición validada contra la última acción: dos revocaciones (o dos
// reinstalaciones) simultáneas no pueden entrar las dos.
func (r *IntroductionsRepo) AppendHistory(ctx context.Context, item introductions.HistoryItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var lockedID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM resource_introductions WHERE id = $1 FOR UPDATE
	`, item.IntroductionID).Scan(&lockedID)
	if errors.Is(err, sql.ErrNoRows) {
		return introductions.ErrNotFound
	}
	if err != nil {
		return err
	}

	var last string
	err = tx.QueryRowContext(ctx, `
		SELECT action FROM resource_introduction_history
		WHERE introduction_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, item.IntroductionID).Scan(&last)

	// sin historial cuenta como válida (filas migradas)
	valid := true
	switch {
	case err == nil:
		valid = last == string(introductions.ActionGrant)
	case errors.Is(err, sql.ErrNoRows):
	default:
		return err
	}

	if item.Action == introductions.ActionRevoke && !valid {
		return introductions.ErrAlreadyRevoked
	}
	if item.Action == introductions.ActionGrant && valid {
		return introductions.ErrNotRevoked
	}

	if err := insertHistoryItem(ctx, tx, item); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *IntroductionsRepo) History(ctx context.Context, introductionID string) ([]introductions.HistoryItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, introduction_id, action, performed_by_user_id, comment, created_at
		FROM resource_introduction_history
		WHERE introduction_id = $1
		ORDER BY created_at, id
	`, introductionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]introductions.HistoryItem, 0)
	for rows.Next() {
		var item introductions.HistoryItem
		var performedBy sql.NullString
		var action string

		if err := rows.Scan(&item.ID, &item.IntroductionID, &action, &performedBy, &item.Comment, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.Action = introductions.Action(action)
		item.PerformedByUserID = performedBy.String
		out = append(out, item)
	}
	return out, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertHistoryItem(ctx context.Context, db execer, item introductions.HistoryItem) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO resource_introduction_history (
			id, introduction_id, action, performed_by_user_id, comment, created_at
		) VALUES ($1,$2,$3,$4,$5,$6)
	`,
		item.ID,
		item.IntroductionID,
		string(item.Action),
		nullIfEmpty(item.PerformedByUserID),
		item.Comment,
		item.CreatedAt,
	)
	return err
}

func scanIntroduction(row rowScanner) (introductions.Introduction, error) {
	var intro introductions.Introduction
	var resourceID, groupID, tutor sql.NullString

	err := row.Scan(&intro.ID, &intro.ReceiverUserID, &resourceID, &groupID, &tutor, &intro.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return introductions.Introduction{}, introductions.ErrNotFound
	}
	if err != nil {
		return introductions.Introduction{}, err
	}

	t, err := access.FromIDs(resourceID.String, groupID.String)
	if err != nil {
		return introductions.Introduction{}, err
	}
	intro.Target = t
	intro.TutorUserID = tutor.String
	return intro, nil
}

func scanIntroductions(rows *sql.Rows) ([]introductions.Introduction, error) {
	out := make([]introductions.Introduction, 0)
	for rows.Next() {
		intro, err := scanIntroduction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, intro)
	}
	return out, rows.Err()
}
