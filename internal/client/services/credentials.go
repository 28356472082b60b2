package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/havengate/internal/client/models"
	"github.com/dmitrijs2005/havengate/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/havengate/internal/client/repositories/users"
	"github.com/dmitrijs2005/havengate/internal/common"
	"github.com/dmitrijs2005/havengate/internal/cryptox"
	"github.com/dmitrijs2005/havengate/internal/dbx"
	"github.com/dmitrijs2005/havengate/internal/logging"
	"github.com/dmitrijs2005/havengate/internal/machine"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// CredentialStore owns the users and meta tables. Every mutating operation
// runs in one transaction.
type CredentialStore struct {
	db      *sql.DB
	hasher  *cryptox.PasswordHasher
	machine machine.Identity
	log     logging.Logger
	now     func() time.Time

	legacyFS    afero.Fs
	legacyPaths []string

	dummyOnce sync.Once
	dummyHash string
}

type StoreOption func(*CredentialStore)

// WithLegacySource sets where MigrateLegacy looks for flat-file user stores.
func WithLegacySource(fs afero.Fs, paths ...string) StoreOption {
	return func(s *CredentialStore) {
		s.legacyFS = fs
		s.legacyPaths = paths
	}
}

// WithStoreClock overrides the time source for created_at and last_login.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *CredentialStore) { s.now = now }
}

func NewCredentialStore(db *sql.DB, hasher *cryptox.PasswordHasher, id machine.Identity, log logging.Logger, opts ...StoreOption) *CredentialStore {
	s := &CredentialStore{
		db:       db,
		hasher:   hasher,
		machine:  id,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		legacyFS: afero.NewOsFs(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *CredentialStore) usersRepo(db dbx.DBTX) users.Repository {
	return users.NewSQLiteRepository(db)
}

func (s *CredentialStore) metaRepo(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

// Register creates an account. For role owner an empty machineID defaults to
// the fingerprint of this host.
func (s *CredentialStore) Register(ctx context.Context, username, password, role, machineID string) (Result, error) {
	username = strings.TrimSpace(username)
	r, ok := models.ParseRole(role)
	if !ok {
		return reject(common.ErrValidation, msgInvalidRole, models.RoleUser), nil
	}
	if username == "" || password == "" {
		return reject(common.ErrValidation, msgCredentialsRequired, r), nil
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return Result{}, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		Username:     username,
		PasswordHash: hash,
		Role:         r,
		CreatedAt:    s.now(),
	}
	if r == models.RoleOwner {
		u.MachineID = machineID
		if u.MachineID == "" {
			u.MachineID = s.machine.Fingerprint()
		}
	}

	var res Result
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.usersRepo(tx)

		taken, err := repo.UsernameExists(ctx, username)
		if err != nil {
			return err
		}
		if taken {
			res = reject(common.ErrConflict, msgUsernameExists, r)
			return nil
		}

		if r == models.RoleOwner {
			exists, err := repo.OwnerExists(ctx)
			if err != nil {
				return err
			}
			if exists {
				res = reject(common.ErrOwnerExists, msgOwnerAccountExists, r)
				return nil
			}
		}

		if _, err := repo.Create(ctx, u); err != nil {
			if !dbx.IsUniqueViolation(err) {
				return err
			}
			res, err = s.conflictAfterRace(ctx, repo, username, r)
			return err
		}

		if r == models.RoleOwner {
			res = succeed(msgOwnerCreated, u)
		} else {
			res = succeed(msgAccountCreated, u)
		}
		return nil
	})
	if err != nil {
		return Result{}, storageErr("register", err)
	}

	if res.OK {
		s.log.Info(ctx, "account created", "username", u.Username, "role", u.Role)
	}
	return res, nil
}

// conflictAfterRace tells a username collision from a second owner once
// another writer won the insert.
func (s *CredentialStore) conflictAfterRace(ctx context.Context, repo users.Repository, username string, role models.Role) (Result, error) {
	taken, err := repo.UsernameExists(ctx, username)
	if err != nil {
		return Result{}, err
	}
	if taken {
		return reject(common.ErrConflict, msgUsernameExists, role), nil
	}
	return reject(common.ErrOwnerExists, msgOwnerAccountExists, role), nil
}

func (s *CredentialStore) dummyVerify(password string) {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("havengate-dummy-password")
		if err == nil {
			s.dummyHash = h
		}
	})
	_ = s.hasher.Verify(password, s.dummyHash)
}

// Authenticate verifies a login. On success the owner's machine is bound if
// it was not yet, last_login is refreshed and an outdated hash is rewritten,
// all in the same transaction. A failed attempt changes nothing.
func (s *CredentialStore) Authenticate(ctx context.Context, username, password, machineID string) (Result, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return reject(common.ErrValidation, msgCredentialsRequired, models.RoleUser), nil
	}
	if machineID == "" {
		machineID = s.machine.Fingerprint()
	}

	var res Result
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.usersRepo(tx)

		u, err := repo.GetByUsername(ctx, username)
		if errors.Is(err, common.ErrorNotFound) {
			s.dummyVerify(password)
			res = reject(common.ErrorUnauthorized, msgInvalidCredentials, models.RoleUser)
			return nil
		}
		if err != nil {
			return err
		}

		if !s.hasher.Verify(password, u.PasswordHash) {
			res = reject(common.ErrorUnauthorized, msgInvalidCredentials, u.Role)
			return nil
		}

		if u.IsOwner() {
			if u.MachineID != "" && u.MachineID != machineID {
				res = reject(common.ErrMachineLocked, msgMachineLocked, u.Role)
				return nil
			}
			if u.MachineID == "" {
				if err := repo.BindMachine(ctx, u.ID, machineID); err != nil {
					return err
				}
				u.MachineID = machineID
			}
		}

		if err := repo.TouchLastLogin(ctx, u.ID, s.now()); err != nil {
			return err
		}

		if s.hasher.NeedsUpgrade(u.PasswordHash) {
			s.upgradeHash(ctx, repo, u, password)
		}

		res = succeed(msgLoginSuccessful, u)
		return nil
	})
	if err != nil {
		return Result{}, storageErr("authenticate", err)
	}
	return res, nil
}

// upgradeHash rewrites u's hash with the current parameters. Failures are
// logged and ignored so the login still succeeds.
func (s *CredentialStore) upgradeHash(ctx context.Context, repo users.Repository, u *models.User, password string) {
	from := cryptox.SchemeOf(u.PasswordHash)
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.log.Warn(ctx, "password rehash failed", "username", u.Username, "error", err)
		return
	}
	if err := repo.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		s.log.Warn(ctx, "password hash upgrade not stored", "username", u.Username, "error", err)
		return
	}
	u.PasswordHash = hash
	s.log.Info(ctx, "password hash upgraded", "username", u.Username, "from", from)
}

// GetOwnerRecord returns the owner row, or nil when there is no owner.
func (s *CredentialStore) GetOwnerRecord(ctx context.Context) (*models.User, error) {
	u, err := s.usersRepo(s.db).GetOwner(ctx)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get owner", err)
	}
	return u, nil
}

func (s *CredentialStore) OwnerExists(ctx context.Context) (bool, error) {
	ok, err := s.usersRepo(s.db).OwnerExists(ctx)
	if err != nil {
		return false, storageErr("owner exists", err)
	}
	return ok, nil
}

// ListUsers returns every account ordered by username, ignoring case.
func (s *CredentialStore) ListUsers(ctx context.Context) ([]models.User, error) {
	list, err := s.usersRepo(s.db).List(ctx)
	if err != nil {
		return nil, storageErr("list users", err)
	}
	return list, nil
}

// InstallID returns the identifier of this installation, creating it on
// first use.
func (s *CredentialStore) InstallID(ctx context.Context) (string, error) {
	var id string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.metaRepo(tx)
		v, ok, err := repo.Get(ctx, common.MetaInstallID)
		if err != nil {
			return err
		}
		if ok && v != "" {
			id = v
			return nil
		}
		id = uuid.NewString()
		return repo.Set(ctx, common.MetaInstallID, id)
	})
	if err != nil {
		return "", storageErr("install id", err)
	}
	return id, nil
}

// OwnerToken returns the stored proof of global owner reservation.
func (s *CredentialStore) OwnerToken(ctx context.Context) (string, bool, error) {
	v, ok, err := s.metaRepo(s.db).Get(ctx, common.MetaOwnerToken)
	if err != nil {
		return "", false, storageErr("owner token", err)
	}
	return v, ok && v != "", nil
}

func (s *CredentialStore) StoreOwnerToken(ctx context.Context, token string) error {
	if err := s.metaRepo(s.db).Set(ctx, common.MetaOwnerToken, token); err != nil {
		return storageErr("store owner token", err)
	}
	return nil
}

// Meta reads an arbitrary meta value.
func (s *CredentialStore) Meta(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := s.metaRepo(s.db).Get(ctx, key)
	if err != nil {
		return "", false, storageErr("get meta", err)
	}
	return v, ok, nil
}

func (s *CredentialStore) SetMeta(ctx context.Context, key, value string) error {
	if err := s.metaRepo(s.db).Set(ctx, key, value); err != nil {
		return storageErr("set meta", err)
	}
	return nil
}
