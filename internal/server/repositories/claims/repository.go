// Package claims stores the global owner slot.
package claims

import (
	"context"

	"github.com/dmitrijs2005/havengate/internal/server/models"
)

// Repository persists the single owner claim.
type Repository interface {
	// Holder returns the current claim or common.ErrorNotFound.
	Holder(ctx context.Context) (*models.Claim, error)

	// Claim takes the slot when it is free or already held by
	// c.InstallID, in which case the holder details are refreshed. It
	// reports false when another installation holds the slot.
	Claim(ctx context.Context, c *models.Claim) (bool, error)

	// Release frees the slot if installID holds it and reports whether it
	// did.
	Release(ctx context.Context, installID string) (bool, error)
}
