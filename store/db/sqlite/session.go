package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Hrishap/ParallelLives/store"
)

func (d *DB) CreateSession(ctx context.Context, create *store.Session) (*store.Session, error) {
	now := time.Now().Unix()
	stmt := `
		INSERT INTO life_session (uid, title, status, base_city, base_country, base_occupation, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, total_nodes, max_depth
	`
	session := *create
	session.CreatedTs = now
	session.UpdatedTs = now
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
		now,
		now,
	).Scan(&session.ID, &session.TotalNodes, &session.MaxDepth)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session")
	}
	return &session, nil
}

func (d *DB) ListSessions(ctx context.Context, find *store.FindSession) ([]*store.Session, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = ?"), append(args, *find.UID)
	}
	if find.Status != nil {
		where, args = append(where, "status = ?"), append(args, *find.Status)
	}

	query := `SELECT id, uid, title, status, base_city, base_country, base_occupation,
			total_nodes, max_depth, created_ts, updated_ts
		FROM life_session
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC`
	if find.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *find.Limit)
		if find.Offset != nil {
			query += " OFFSET ?"
			args = append(args, *find.Offset)
		}
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
	set, args := []string{"updated_ts = ?"}, []any{time.Now().Unix()}

	if update.Title != nil {
		set, args = append(set, "title = ?"), append(args, *update.Title)
	}
	if update.Status != nil {
		set, args = append(set, "status = ?"), append(args, *update.Status)
	}
	args = append(args, update.ID)

	stmt := `UPDATE life_session SET ` + strings.Join(set, ", ") + ` WHERE id = ?
		RETURNING id, uid, title, status, base_city, base_country, base_occupation,
			total_nodes, max_depth, created_ts, updated_ts`
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
	// Whole-session deletion is the only way nodes are removed.
	if _, err := d.db.ExecContext(ctx, "DELETE FROM life_node WHERE session_id = ?", delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete session nodes")
	}
	if _, err := d.db.ExecContext(ctx, "DELETE FROM life_session WHERE id = ?", delete.ID); err != nil {
		return errors.Wrap(err, "failed to delete session")
	}
	return nil
}

// IncrementSessionAggregates applies the counter updates inside the database
// so concurrent node creations cannot lose an update.
func (d *DB) IncrementSessionAggregates(ctx context.Context, sessionID int32, nodeDepth int32) error {
	stmt := `
		UPDATE life_session
		SET total_nodes = total_nodes + 1,
			max_depth = MAX(max_depth, ?),
			updated_ts = ?
		WHERE id = ?
	`
	if _, err := d.db.ExecContext(ctx, stmt, nodeDepth, time.Now().Unix(), sessionID); err != nil {
		return errors.Wrap(err, "failed to increment session aggregates")
	}
	return nil
}
