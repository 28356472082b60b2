package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/havengate/internal/client/models"
	"github.com/dmitrijs2005/havengate/internal/client/repositories/audit"
	"github.com/dmitrijs2005/havengate/internal/dbx"
	"github.com/dmitrijs2005/havengate/internal/logging"
)

// AuditLog appends security, session and activity events. Writes never fail
// the caller: a failed append is reported through the logger instead.
type AuditLog struct {
	repo audit.Repository
	log  logging.Logger
	now  func() time.Time
}

func NewAuditLog(db dbx.DBTX, log logging.Logger) *AuditLog {
	return &AuditLog{
		repo: audit.NewSQLiteRepository(db),
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Record appends to the security stream. An empty actor is stored as NULL.
func (a *AuditLog) Record(ctx context.Context, action, actor, outcome string) {
	a.append(ctx, models.StreamSecurity, action, actor, outcome)
}

func (a *AuditLog) RecordSession(ctx context.Context, action, actor, outcome string) {
	a.append(ctx, models.StreamSession, action, actor, outcome)
}

func (a *AuditLog) RecordActivity(ctx context.Context, action, actor, outcome string) {
	a.append(ctx, models.StreamActivity, action, actor, outcome)
}

func (a *AuditLog) append(ctx context.Context, stream models.Stream, action, actor, outcome string) {
	e := &models.AuditEvent{
		Stream:    stream,
		Timestamp: a.now(),
		Actor:     actor,
		Action:    action,
		Outcome:   outcome,
	}
	if err := a.repo.Append(ctx, e); err != nil {
		a.log.Warn(ctx, "audit write failed",
			"stream", stream, "action", action, "actor", actor, "outcome", outcome, "error", err)
	}
}

// Recent returns up to limit events of stream, newest first.
func (a *AuditLog) Recent(ctx context.Context, stream models.Stream, limit int) ([]models.AuditEvent, error) {
	events, err := a.repo.Recent(ctx, stream, limit)
	if err != nil {
		return nil, fmt.Errorf("read %s events: %w", stream, err)
	}
	return events, nil
}

// All returns the whole stream in insertion order.
func (a *AuditLog) All(ctx context.Context, stream models.Stream) ([]models.AuditEvent, error) {
	events, err := a.repo.All(ctx, stream)
	if err != nil {
		return nil, fmt.Errorf("read %s events: %w", stream, err)
	}
	return events, nil
}
