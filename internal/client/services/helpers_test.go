package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dmitrijs2005/havengate/internal/client/registry"
	"github.com/dmitrijs2005/havengate/internal/client/storage"
	"github.com/dmitrijs2005/havengate/internal/cryptox"
	"github.com/dmitrijs2005/havengate/internal/logging"
	"github.com/dmitrijs2005/havengate/internal/machine"
	"github.com/stretchr/testify/require"
)

const (
	machineA = machine.Static("M1")
	machineB = machine.Static("M2")
)

func fastHasher() *cryptox.PasswordHasher {
	return cryptox.NewPasswordHasher(cryptox.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLen: 16, KeyLen: 32})
}

func legacyHash(salt, password string) string {
	sum := sha256.Sum256([]byte(salt + password))
	return "sha256$" + salt + "$" + hex.EncodeToString(sum[:])
}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "havengate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newStore(t *testing.T, db *sql.DB, opts ...StoreOption) *CredentialStore {
	t.Helper()
	return NewCredentialStore(db, fastHasher(), machineA, logging.Nop(), opts...)
}

// bufferLogger captures log output for assertions.
func bufferLogger(t *testing.T) (logging.Logger, *syncBuffer) {
	t.Helper()
	buf := &syncBuffer{}
	l, err := logging.New(logging.Options{Level: "debug", Writer: buf})
	require.NoError(t, err)
	return l, buf
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// ---- fake registry ----

type fakeRegistry struct {
	statusRes registry.StatusResult
	statusErr error

	claimRes registry.ClaimResult
	claimErr error

	claims   int
	releases int

	lastInstallID string
	lastUsername  string
	lastMachineID string
}

func (f *fakeRegistry) Status(ctx context.Context, installID string) (registry.StatusResult, error) {
	f.lastInstallID = installID
	return f.statusRes, f.statusErr
}

func (f *fakeRegistry) Claim(ctx context.Context, installID, username, machineID string) (registry.ClaimResult, error) {
	f.claims++
	f.lastInstallID = installID
	f.lastUsername = username
	f.lastMachineID = machineID
	return f.claimRes, f.claimErr
}

func (f *fakeRegistry) Release(ctx context.Context, installID string) {
	f.releases++
	f.lastInstallID = installID
}

func grantingRegistry(token string) *fakeRegistry {
	return &fakeRegistry{claimRes: registry.ClaimResult{OK: true, Message: "Global owner reserved.", Token: token}}
}

// ---- wiring ----

type fixture struct {
	db      *sql.DB
	store   *CredentialStore
	reg     *fakeRegistry
	owner   *OwnerCoordinator
	session *SessionManager
	audit   *AuditLog
	gate    *Gate
}

func newFixture(t *testing.T, id machine.Identity) *fixture {
	t.Helper()
	db := setupDB(t)
	f := &fixture{db: db, reg: grantingRegistry("tok-1"), session: NewSessionManager()}
	f.store = NewCredentialStore(db, fastHasher(), id, logging.Nop())
	f.owner = NewOwnerCoordinator(f.store, f.reg, id, logging.Nop())
	f.audit = NewAuditLog(db, logging.Nop())
	f.gate = NewGate(f.store, f.owner, f.reg, f.session, f.audit, id, logging.Nop())
	return f
}
