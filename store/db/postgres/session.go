package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/Hrishap/ParallelLives/store"
)

func (d *DB) CreateSession(ctx context.Context, create *store.Session) (*store.Session, error) {
	stmt := `
		INSERT INTO life_session (uid, title, status, base_city, base_country, base_occupation)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, total_nodes, max_depth, created_ts, updated_ts
	`
	session := *create
	if session.Status == "" {
		session.Status = store.SessionActive
	}
	err := d.db.QueryRowContext(ctx, stmt,
		session.UID,
		session.Title,
		session.Status,
		session.BaseCity,
		session.BaseCountry,
		session.BaseOccupation,
	).Scan(&session.ID, &session.TotalNodes, &session.MaxDepth, &session.CreatedTs, &session.UpdatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session")
	}
	return &session, nil
}

func (d *DB) ListSessions(ctx context.Context, find *store.FindSession) ([]*store.Session, error) {
	query := `
		SELECT id, uid, title, status, base_city, base_country, base_occupation,
			total_nodes, max_depth, created_ts, updated_ts
		FROM life_session
		WHERE 1=1
	`
	var args []any
	argIndex := 1

	if find.ID != nil {
		query += fmt.Sprintf(" AND id = $%d", argIndex)
		args = append(args, *find.ID)
		argIndex++
	}
	if find.UID != nil {
		query += fmt.Sprintf(" AND uid = $%d", argIndex)
		args = append(args, *find.UID)
		argIndex++
	}
	if find.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, *find.Status)
		argIndex++
	}

	query += " ORDER BY created_ts DESC"
	if find.Limit != nil {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, *find.Limit)
		argIndex++
	}
	if find.Offset != nil {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, *find.Offset)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sessions")
	}
	defer rows.Close()

	var sessions []*store.Session
	for rows.Next() {
		var session store.Session
		if err := rows.Scan(
			&session.ID,
			&session.UID,
			&session.Title,
			&session.Status,
			&session.BaseCity,
			&session.BaseCountry,
			&session.BaseOccupation,
			&session.TotalNodes,
			&session.MaxDepth,
			&session.CreatedTs,
			&session.UpdatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan session")
		}
		sessions = append(sessions, &session)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate sessions")
	}
	return sessions, nil
}

func (d *DB) UpdateSession(ctx context.Context, update *store.UpdateSession) (*store.Session, error) {
	set := "updated_ts = $1"
	args := []any{time.Now().Unix()}
	argIndex := 2

	if update.Title != nil {
		set += fmt.Sprintf(", title = $%d", argIndex)
		args = append(args, *update.Title)
		argIndex++
	}
	if update.Status != nil {
		set += fmt.Sprintf(", status = $%d", argIndex)
		args = append(args, *update.Status)
		argIndex++
	}
	args = append(args, update.ID)

	stmt := fmt.Sprintf(`UPDATE life_session SET %s WHERE id = $%d
		RETURNING id, uid, title, status, base_city, base_country, base_occupation,
			total_nodes, max_depth, created_ts, updated_ts`, set, argIndex)
	var session store.Session
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(
		&session.ID,
		&session.UID,
		&session.Title,
		&session.Status,
		&session.BaseCity,
		&session.BaseCountry,
		&session.BaseOccupation,
		&session.TotalNodes,
		&session.MaxDepth,
		&session.CreatedTs,
		&session.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to update session")
	}
	return &session, nil
}

func (d *DB) DeleteSession(ctx context.Context, delete *store.DeleteSession) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM life_node WHERE session_id = $1", delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete session nodes")
	}
	if _, err := d.db.ExecContext(ctx, "DELETE FROM life_session WHERE id = $1", delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete session")
	}
	return nil
}

func (d *DB) IncrementSessionAggregates(ctx context.Context, sessionID int32, nodeDepth int32) error {
	stmt := `
		UPDATE life_session
		SET total_nodes = total_nodes + 1,
			max_depth = GREATEST(max_depth, $1),
			updated_ts = EXTRACT(EPOCH FROM NOW())::BIGINT
		WHERE id = $2
	`
	if _, err := d.db.ExecContext(ctx, stmt, nodeDepth, sessionID); err != nil {
		return errors.Wrap(err, "failed to increment session aggregates")
	}
	return nil
}
