package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
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

	node := *create
	if node.Status == "" {
		node.Status = store.NodeGenerating
	}

	stmt := `
		INSERT INTO life_node (
			uid, session_id, parent_id, depth, sibling_order,
			choice, metrics, narrative, media,
			status, error_message, processing_time_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_ts, updated_ts
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
	).Scan(&node.ID, &node.CreatedTs, &node.UpdatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create node")
	}
	return &node, nil
}

func (d *DB) ListNodes(ctx context.Context, find *store.FindNode) ([]*store.Node, error) {
	query := `
		SELECT id, uid, session_id, parent_id, depth, sibling_order,
			choice, metrics, narrative, media,
			status, error_message, processing_time_ms, created_ts, updated_ts
		FROM life_node
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
	if find.SessionID != nil {
		query += fmt.Sprintf(" AND session_id = $%d", argIndex)
		args = append(args, *find.SessionID)
		argIndex++
	}
	if find.ParentID != nil {
		query += fmt.Sprintf(" AND parent_id = $%d", argIndex)
		args = append(args, *find.ParentID)
		argIndex++
	}
	if find.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, *find.Status)
		argIndex++
	}

	query += " ORDER BY depth ASC, sibling_order ASC, id ASC"
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
	set := "updated_ts = $1"
	args := []any{time.Now().Unix()}
	argIndex := 2

	if update.Metrics != nil {
		raw, err := marshalColumn(update.Metrics)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal metrics")
		}
		set += fmt.Sprintf(", metrics = $%d", argIndex)
		args = append(args, raw)
		argIndex++
	}
	if update.Narrative != nil {
		raw, err := marshalColumn(update.Narrative)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal narrative")
		}
		set += fmt.Sprintf(", narrative = $%d", argIndex)
		args = append(args, raw)
		argIndex++
	}
	if update.Media != nil {
		raw, err := marshalColumn(update.Media)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal media")
		}
		set += fmt.Sprintf(", media = $%d", argIndex)
		args = append(args, raw)
		argIndex++
	}
	if update.Status != nil {
		set += fmt.Sprintf(", status = $%d", argIndex)
		args = append(args, *update.Status)
		argIndex++
	}
	if update.ErrorMessage != nil {
		set += fmt.Sprintf(", error_message = $%d", argIndex)
		args = append(args, *update.ErrorMessage)
		argIndex++
	}
	if update.ProcessingTimeMs != nil {
		set += fmt.Sprintf(", processing_time_ms = $%d", argIndex)
		args = append(args, *update.ProcessingTimeMs)
		argIndex++
	}
	args = append(args, update.ID)

	stmt := fmt.Sprintf(`UPDATE life_node SET %s WHERE id = $%d
		RETURNING id, uid, session_id, parent_id, depth, sibling_order,
			choice, metrics, narrative, media,
			status, error_message, processing_time_ms, created_ts, updated_ts`, set, argIndex)
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
		"SELECT COUNT(*) FROM life_node WHERE parent_id = $1", parentID,
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
	if choiceJSON.Valid && choiceJSON.String != "" {
		node.Choice = &choice.Choice{}
		if err := json.Unmarshal([]byte(choiceJSON.String), node.Choice); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal choice")
		}
	}
	if metricsJSON.Valid && metricsJSON.String != "" {
		node.Metrics = &lifemetrics.Bundle{}
		if err := json.Unmarshal([]byte(metricsJSON.String), node.Metrics); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal metrics")
		}
	}
	if narrativeJSON.Valid && narrativeJSON.String != "" {
		node.Narrative = &narrative.Narrative{}
		if err := json.Unmarshal([]byte(narrativeJSON.String), node.Narrative); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal narrative")
		}
	}
	if mediaJSON.Valid && mediaJSON.String != "" {
		node.Media = &lifemetrics.CoverImage{}
		if err := json.Unmarshal([]byte(mediaJSON.String), node.Media); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal media")
		}
	}
	return &node, nil
}

func marshalColumn(v any) (sql.NullString, error) {
	switch t := v.(type) {
	case *choice.Choice:
		if t == nil {
			return sql.NullString{}, nil
		}
	case *lifemetrics.Bundle:
		if t == nil {
			return sql.NullString{}, nil
		}
	case *narrative.Narrative:
		if t == nil {
			return sql.NullString{}, nil
		}
	case *lifemetrics.CoverImage:
		if t == nil {
			return sql.NullString{}, nil
		}
	case nil:
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}
