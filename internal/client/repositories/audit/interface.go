package audit

import (
	"context"

	"github.com/dmitrijs2005/havengate/internal/client/models"
)

// Repository appends to and reads from the audit streams. There is no update
// or delete; the tables reject both at the database level.
type Repository interface {
	Append(ctx context.Context, e *models.AuditEvent) error
	// Recent returns up to limit events of a stream, newest first.
	Recent(ctx context.Context, stream models.Stream, limit int) ([]models.AuditEvent, error)
	// All returns every event of a stream in insertion order.
	All(ctx context.Context, stream models.Stream) ([]models.AuditEvent, error)
}
