package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/havengate/internal/client/models"
)

// Repository persists accounts. Username lookups are case-insensitive.
// Missing rows are reported as common.ErrorNotFound.
type Repository interface {
	// Create inserts u and fills in u.ID. A duplicate username or second owner
	// surfaces as a unique violation (see dbx.IsUniqueViolation).
	Create(ctx context.Context, u *models.User) (*models.User, error)

	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// GetOwner returns the single owner row.
	GetOwner(ctx context.Context) (*models.User, error)

	OwnerExists(ctx context.Context) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)

	// List returns all accounts ordered by username.
	List(ctx context.Context) ([]models.User, error)

	BindMachine(ctx context.Context, id int64, machineID string) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}
