package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Hrishap/ParallelLives/engine/choice"
	"github.com/Hrishap/ParallelLives/engine/lifemetrics"
	"github.com/Hrishap/ParallelLives/engine/narrative"
	"github.com/Hrishap/ParallelLives/store"
)

func (d *DB) CreateNode(ctx context.Context, create *store.Node) (*store.Node, error) {
	choiceJSON, err := marshalColumn(create.Choice)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal choice")
	}
	metricsJSON, err := marshalColumn(create.Metrics)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal metrics")
	}
	narrativeJSON, err := marshalColumn(create.Narrative)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal narrative")
	}
	mediaJSON, err := marshalColumn(create.Media)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal media")
	}

	now := time.Now().Unix()
	node := *create
	node.CreatedTs = now
	node.UpdatedTs = now
	if node.Status == "" {
		node.Status = store.NodeGenerating
	}

	stmt := `
		INSERT INTO life_node (
			uid, session_id, parent_id, depth, sibling_order,
			choice, metrics, narrative, media,
			status, error_message, processing_time_ms, created_ts, updated_ts
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	err = d.db.QueryRowContext(ctx, stmt,
		node.UID,
		node.SessionID,
		node.ParentID,
		node.Depth,
		node.SiblingOrder,
		choiceJSON,
		metricsJSON,
		narrativeJSON,
		mediaJSON,
		node.Status,
		node.ErrorMessage,
		node.ProcessingTimeMs,
		now,
		now,
	).Scan(&node.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create node")
	}
	return &node, nil
}

func (d *DB) ListNodes(ctx context.Context, find *store.FindNode) ([]*store.Node, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = ?"), append(args, *find.UID)
	}
	if find.SessionID != nil {
		where, args = append(where, "session_id = ?"), append(args, *find.SessionID)
	}
	if find.ParentID != nil {
		where, args = append(where, "parent_id = ?"), append(args, *find.ParentID)
	}
	if find.Status != nil {
		where, args = append(where, "status = ?"), append(args, *find.Status)
	}

	query := `SELECT id, uid, session_id, parent_id, depth, sibling_order,
			choice, metrics, narrative, media,
			status, error_message, processing_time_ms, created_ts, updated_ts
		FROM life_node
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY depth ASC, sibling_order ASC, id ASC`
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
		return nil, errors.Wrap(err, "failed to list nodes")
	}
	defer rows.Close()

	var nodes []*store.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate nodes")
	}
	return nodes, nil
}

func (d *DB) UpdateNode(ctx context.Context, update *store.UpdateNode) (*store.Node, error) {
	set, args := []string{"updated_ts = ?"}, []any{time.Now().Unix()}

	if update.Metrics != nil {
		raw, err := marshalColumn(update.Metrics)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal metrics")
		}
		set, args = append(set, "metrics = ?"), append(args, raw)
	}
	if update.Narrative != nil {
		raw, err := marshalColumn(update.Narrative)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal narrative")
		}
		set, args = append(set, "narrative = ?"), append(args, raw)
	}
	if update.Media != nil {
		raw, err := marshalColumn(update.Media)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal media")
		}
		set, args = append(set, "media = ?"), append(args, raw)
	}
	if update.Status != nil {
		set, args = append(set, "status = ?"), append(args, *update.Status)
	}
	if update.ErrorMessage != nil {
		set, args = append(set, "error_message = ?"), append(args, *update.ErrorMessage)
	}
	if update.ProcessingTimeMs != nil {
		set, args = append(set, "processing_time_ms = ?"), append(args, *update.ProcessingTimeMs)
	}
	args = append(args, update.ID)

	stmt := `UPDATE life_node SET ` + strings.Join(set, ", ") + ` WHERE id = ?
		RETURNING id, uid, session_id, parent_id, depth, sibling_order,
			choice, metrics, narrative, media,
			status, error_message, processing_time_ms, created_ts, updated_ts`
	row := d.db.QueryRowContext(ctx, stmt, args...)
	node, err := scanNode(row)
	if err != nil {
		return nil, err
	}
	return node, nil
}

func (d *DB) CountChildren(ctx context.Context, parentID int32) (int32, error) {
	var count int32
	err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM life_node WHERE parent_id = ?", parentID,
	).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count children")
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(row rowScanner) (*store.Node, error) {
	var node store.Node
	var parentID sql.NullInt32
	var choiceJSON, metricsJSON, narrativeJSON, mediaJSON, errorMessage sql.NullString
	if err := row.Scan(
		&node.ID,
		&node.UID,
		&node.SessionID,
		&parentID,
		&node.Depth,
		&node.SiblingOrder,
		&choiceJSON,
		&metricsJSON,
		&narrativeJSON,
		&mediaJSON,
		&node.Status,
		&errorMessage,
		&node.ProcessingTimeMs,
		&node.CreatedTs,
		&node.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan node")
	}
	if parentID.Valid {
		node.ParentID = &parentID.Int32
	}
	if errorMessage.Valid {
		node.ErrorMessage = &errorMessage.String
	}
	if err := unmarshalColumn(choiceJSON, &node.Choice, func() *choice.Choice { return &choice.Choice{} }); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal choice")
	}
	if err := unmarshalColumn(metricsJSON, &node.Metrics, func() *lifemetrics.Bundle { return &lifemetrics.Bundle{} }); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal metrics")
	}
	if err := unmarshalColumn(narrativeJSON, &node.Narrative, func() *narrative.Narrative { return &narrative.Narrative{} }); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal narrative")
	}
	if err := unmarshalColumn(mediaJSON, &node.Media, func() *lifemetrics.CoverImage { return &lifemetrics.CoverImage{} }); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal media")
	}
	return &node, nil
}

// marshalColumn encodes a payload pointer to JSON, mapping a nil pointer to a
// NULL column.
func marshalColumn(v any) (sql.NullString, error) {
	if v == nil || isNilPointer(v) {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func unmarshalColumn[T any](col sql.NullString, dst **T, alloc func() *T) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	value := alloc()
	if err := json.Unmarshal([]byte(col.String), value); err != nil {
		return err
	}
	*dst = value
	return nil
}

func isNilPointer(v any) bool {
	switch t := v.(type) {
	case *choice.Choice:
		return t == nil
	case *lifemetrics.Bundle:
		return t == nil
	case *narrative.Narrative:
		return t == nil
	case *lifemetrics.CoverImage:
		return t == nil
	default:
		return false
	}
}
