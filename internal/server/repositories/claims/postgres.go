package claims

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/havengate/internal/common"
	"github.com/dmitrijs2005/havengate/internal/dbx"
	"github.com/dmitrijs2005/havengate/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Holder(ctx context.Context) (*models.Claim, error) {
	query :=
		`SELECT id, install_id, username, machine_id, claimed_at FROM owner_claims
		 WHERE slot = 1
		 `

	c := &models.Claim{}
	err := r.db.QueryRowContext(ctx, query).Scan(&c.ID, &c.InstallID, &c.Username, &c.MachineID, &c.ClaimedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

// Claim is a single upsert: the conflict branch only fires for the same
// install_id, so a foreign holder yields no row.
func (r *PostgresRepository) Claim(ctx context.Context, c *models.Claim) (bool, error) {
	query :=
		`INSERT INTO owner_claims (slot, id, install_id, username, machine_id, claimed_at)
		 VALUES (1, $1, $2, $3, $4, $5)
		 ON CONFLICT (slot) DO UPDATE
		 SET username = EXCLUDED.username, machine_id = EXCLUDED.machine_id, claimed_at = EXCLUDED.claimed_at
		 WHERE owner_claims.install_id = EXCLUDED.install_id
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query, c.ID, c.InstallID, c.Username, c.MachineID, c.ClaimedAt).Scan(&c.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		if dbx.IsUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return true, nil
}

func (r *PostgresRepository) Release(ctx context.Context, installID string) (bool, error) {
	query :=
		`DELETE FROM owner_claims
		 WHERE slot = 1 AND install_id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, installID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}
