package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/havengate/internal/client/models"
	"github.com/dmitrijs2005/havengate/internal/dbx"
)

var ErrUnknownStream = errors.New("unknown audit stream")

var streamTables = map[models.Stream]string{
	models.StreamSecurity: "security_events",
	models.StreamSession:  "session_events",
	models.StreamActivity: "activity_events",
}

func tableFor(stream models.Stream) (string, error) {
	t, ok := streamTables[stream]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStream, stream)
	}
	return t, nil
}

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Append(ctx context.Context, e *models.AuditEvent) error {
	table, err := tableFor(e.Stream)
	if err != nil {
		return err
	}

	var actor sql.NullString
	if e.Actor != "" {
		actor = sql.NullString{String: e.Actor, Valid: true}
	}

	query := fmt.Sprintf(`INSERT INTO %s (created_at, actor, action, outcome) VALUES (?, ?, ?, ?) RETURNING id`, table)
	err = r.db.QueryRowContext(ctx, query, dbx.FormatTime(e.Timestamp), actor, e.Action, e.Outcome).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Recent(ctx context.Context, stream models.Stream, limit int) ([]models.AuditEvent, error) {
	table, err := tableFor(stream)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []models.AuditEvent{}, nil
	}
	query := fmt.Sprintf(`SELECT id, created_at, actor, action, outcome FROM %s ORDER BY id DESC LIMIT ?`, table)
	return r.query(ctx, stream, query, limit)
}

func (r *SQLiteRepository) All(ctx context.Context, stream models.Stream) ([]models.AuditEvent, error) {
	table, err := tableFor(stream)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT id, created_at, actor, action, outcome FROM %s ORDER BY id ASC`, table)
	return r.query(ctx, stream, query)
}

func (r *SQLiteRepository) query(ctx context.Context, stream models.Stream, query string, args ...any) ([]models.AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.AuditEvent, 0)
	for rows.Next() {
		var (
			e         models.AuditEvent
			createdAt string
			actor     sql.NullString
		)
		if err := rows.Scan(&e.ID, &createdAt, &actor, &e.Action, &e.Outcome); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		if e.Timestamp, err = dbx.ParseTime(createdAt); err != nil {
			return nil, fmt.Errorf("audit event %d: bad created_at: %w", e.ID, err)
		}
		e.Stream = stream
		e.Actor = actor.String
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit rows: %w", err)
	}
	return result, nil
}
