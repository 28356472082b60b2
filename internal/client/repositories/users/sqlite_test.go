package users

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/havengate/internal/client/models"
	"github.com/dmitrijs2005/havengate/internal/client/storage"
	"github.com/dmitrijs2005/havengate/internal/common"
	"github.com/dmitrijs2005/havengate/internal/dbx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newUser(name string, role models.Role) *models.User {
	return &models.User{
		Username:     name,
		PasswordHash: "$argon2id$stub",
		Role:         role,
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestCreateAndGetByUsername_CaseInsensitive(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	u, err := r.Create(ctx, newUser("Alice", models.RoleAdmin))
	require.NoError(t, err)
	require.NotZero(t, u.ID)

	got, err := r.GetByUsername(ctx, "aLiCe")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Username, "original case is preserved")
	assert.Equal(t, models.RoleAdmin, got.Role)
	assert.True(t, got.CreatedAt.Equal(u.CreatedAt))
	assert.Empty(t, got.MachineID)
	assert.Nil(t, got.LastLogin)
}

func TestCreate_DuplicateUsernameIsUniqueViolation(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	_, err := r.Create(ctx, newUser("alice", models.RoleUser))
	require.NoError(t, err)

	_, err = r.Create(ctx, newUser("ALICE", models.RoleUser))
	require.Error(t, err)
	assert.True(t, dbx.IsUniqueViolation(err))
}

func TestCreate_SecondOwnerIsUniqueViolation(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	owner := newUser("alice", models.RoleOwner)
	owner.MachineID = "M1"
	_, err := r.Create(ctx, owner)
	require.NoError(t, err)

	second := newUser("bob", models.RoleOwner)
	second.MachineID = "M1"
	_, err = r.Create(ctx, second)
	require.Error(t, err)
	assert.True(t, dbx.IsUniqueViolation(err))
}

func TestGetByUsername_NotFound(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	_, err := r.GetByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestOwnerQueries(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	exists, err := r.OwnerExists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
	_, err = r.GetOwner(ctx)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = r.Create(ctx, newUser("carol", models.RoleUser))
	require.NoError(t, err)
	owner := newUser("Alice", models.RoleOwner)
	owner.MachineID = "M1"
	_, err = r.Create(ctx, owner)
	require.NoError(t, err)

	exists, err = r.OwnerExists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := r.GetOwner(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Username)
	assert.Equal(t, "M1", got.MachineID)
}

func TestUsernameExists(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	_, err := r.Create(ctx, newUser("Dave", models.RoleUser))
	require.NoError(t, err)

	ok, err := r.UsernameExists(ctx, "dave")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.UsernameExists(ctx, "erin")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestList_OrderedByUsernameIgnoringCase(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	for _, name := range []string{"charlie", "Bob", "alice"} {
		_, err := r.Create(ctx, newUser(name, models.RoleUser))
		require.NoError(t, err)
	}

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"alice", "Bob", "charlie"}, []string{list[0].Username, list[1].Username, list[2].Username})
}

func TestUpdates(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	owner, err := r.Create(ctx, newUser("alice", models.RoleOwner))
	require.NoError(t, err)
	user, err := r.Create(ctx, newUser("bob", models.RoleUser))
	require.NoError(t, err)

	require.NoError(t, r.BindMachine(ctx, owner.ID, "M1"))
	assert.ErrorIs(t, r.BindMachine(ctx, user.ID, "M1"), common.ErrorNotFound, "only owners carry a machine id")

	require.NoError(t, r.UpdatePasswordHash(ctx, owner.ID, "$argon2id$new"))
	at := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	require.NoError(t, r.TouchLastLogin(ctx, owner.ID, at))

	got, err := r.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "M1", got.MachineID)
	assert.Equal(t, "$argon2id$new", got.PasswordHash)
	require.NotNil(t, got.LastLogin)
	assert.True(t, got.LastLogin.Equal(at))

	assert.ErrorIs(t, r.TouchLastLogin(ctx, 9999, at), common.ErrorNotFound)
}

func newRepoWithMock(t *testing.T) (*SQLiteRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteRepository(db), mock
}

func TestCreate_DBErrorIsWrapped(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users`).WillReturnError(errors.New("db down"))

	_, err := r.Create(context.Background(), newUser("alice", models.RoleUser))
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePasswordHash_DBErrorIsWrapped(t *testing.T) {
	r, mock := newRepoWithMock(t)

	mock.ExpectExec(`(?s)^UPDATE\s+users\s+SET\s+password_hash`).
		WithArgs("h", int64(1)).
		WillReturnError(errors.New("disk full"))

	err := r.UpdatePasswordHash(context.Background(), 1, "h")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
