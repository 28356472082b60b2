package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/havengate/internal/client/models"
	"github.com/dmitrijs2005/havengate/internal/common"
	"github.com/dmitrijs2005/havengate/internal/dbx"
)

const userColumns = `id, username, password_hash, role, created_at, machine_id, last_login`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u         models.User
		role      string
		createdAt string
		machineID sql.NullString
		lastLogin sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &createdAt, &machineID, &lastLogin); err != nil {
		return nil, err
	}

	u.Role = models.Role(role)
	u.MachineID = machineID.String

	created, err := dbx.ParseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("user %q: bad created_at: %w", u.Username, err)
	}
	u.CreatedAt = created

	if u.LastLogin, err = dbx.ParseNullTime(lastLogin); err != nil {
		return nil, fmt.Errorf("user %q: bad last_login: %w", u.Username, err)
	}
	return &u, nil
}

func (r *SQLiteRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	query := `INSERT INTO users (username, password_hash, role, created_at, machine_id)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`

	var machineID sql.NullString
	if u.MachineID != "" {
		machineID = sql.NullString{String: u.MachineID, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, query,
		u.Username, u.PasswordHash, string(u.Role), dbx.FormatTime(u.CreatedAt), machineID).Scan(&u.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (r *SQLiteRepository) GetOwner(ctx context.Context) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE role = 'owner' LIMIT 1`)
}

func (r *SQLiteRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return true, nil
}

func (r *SQLiteRepository) OwnerExists(ctx context.Context) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM users WHERE role = 'owner' LIMIT 1`)
}

func (r *SQLiteRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM users WHERE username = ? LIMIT 1`, username)
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY username ASC`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		result = append(result, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) update(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) BindMachine(ctx context.Context, id int64, machineID string) error {
	return r.update(ctx, `UPDATE users SET machine_id = ? WHERE id = ? AND role = 'owner'`, machineID, id)
}

func (r *SQLiteRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return r.update(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
}

func (r *SQLiteRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.update(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, dbx.FormatTime(at), id)
}
