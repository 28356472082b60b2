package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/havengate/internal/client/config"
	"github.com/dmitrijs2005/havengate/internal/client/models"
	"github.com/dmitrijs2005/havengate/internal/client/registry"
	"github.com/dmitrijs2005/havengate/internal/client/services"
	"github.com/dmitrijs2005/havengate/internal/client/storage"
	"github.com/dmitrijs2005/havengate/internal/cryptox"
	"github.com/dmitrijs2005/havengate/internal/logging"
	"github.com/dmitrijs2005/havengate/internal/machine"
	"github.com/spf13/afero"
)

// gateway is the part of services.Gate the shell drives. Tests provide a
// fake.
type gateway interface {
	OwnerExists(ctx context.Context) (bool, error)
	OwnerStatus(ctx context.Context) (services.OwnerInfo, error)
	CreateOwner(ctx context.Context, username, password string) (services.Result, error)
	Authenticate(ctx context.Context, username, password string) (services.Result, error)
	AddUser(ctx context.Context, username, password string, role models.Role) (services.Result, error)
	CurrentUserIsAdmin(ctx context.Context) bool
	GetCurrentUser() *models.SessionUser
	Logout(ctx context.Context)
	LogActivity(ctx context.Context, action, outcome string)
	ListUsers(ctx context.Context) ([]models.User, error)
	RecentEvents(ctx context.Context, stream models.Stream, limit int) ([]models.AuditEvent, error)
}

type auditExporter interface {
	Enabled() bool
	Export(ctx context.Context, stream models.Stream) (string, int, error)
}

type resultsAppender interface {
	Append(ctx context.Context, module, status, result string) (string, error)
}

type App struct {
	config   *config.Config
	gate     gateway
	exporter auditExporter
	results  resultsAppender
	log      logging.Logger

	reader *bufio.Reader
	out    io.Writer
	closer io.Closer
}

// hostIdentity is a seam so tests can pin the fingerprint.
var hostIdentity = func() machine.Identity { return machine.NewHost() }

// NewApp opens the database, imports legacy user files and wires the gate.
// The returned error wraps common.ErrStorage when the database is unusable.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	db, err := storage.Open(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "path", c.DatabasePath, "error", err)
		return nil, err
	}

	id := hostIdentity()
	reg := registry.NewClient(registry.Settings{
		URL:            c.RegistryURL,
		Token:          c.OwnerToken,
		Secret:         c.OwnerTokenSecret,
		StatusTimeout:  c.RegistryStatusTimeout,
		ClaimTimeout:   c.RegistryClaimTimeout,
		ReleaseTimeout: c.RegistryReleaseTimeout,
	}, log.With("component", "registry"))

	fs := afero.NewOsFs()
	store := services.NewCredentialStore(db, cryptox.NewPasswordHasher(c.Argon2), id,
		log.With("component", "credentials"), services.WithLegacySource(fs, c.LegacyUserFiles...))
	audit := services.NewAuditLog(db, log.With("component", "audit"))
	session := services.NewSessionManager()
	owner := services.NewOwnerCoordinator(store, reg, id, log.With("component", "owner"))
	gate := services.NewGate(store, owner, reg, session, audit, id, log)

	n, err := gate.MigrateLegacy(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if n > 0 {
		log.Info(ctx, "legacy users imported", "count", n)
	}

	exporter := services.NewAuditExporter(services.ExportSettings{
		Bucket:          c.AuditS3Bucket,
		Region:          c.AuditS3Region,
		Endpoint:        c.AuditS3Endpoint,
		AccessKeyID:     c.AuditS3AccessKey,
		SecretAccessKey: c.AuditS3SecretKey,
		UsePathStyle:    c.AuditS3UsePathStyle,
	}, gate, audit, store, log.With("component", "export"))

	return &App{
		config:   c,
		gate:     gate,
		exporter: exporter,
		results:  services.NewResultsWriter(fs, c.ResultsDir, store, session),
		log:      log,
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
		closer:   db,
	}, nil
}

// Close releases the database.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Run starts the shell for an already authenticated session. It returns
// when the operator exits, input ends, or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	a.say("Welcome to havengate (type 'help' for commands)")
	return runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) say(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) getStatus() string {
	u := a.gate.GetCurrentUser()
	if u == nil {
		return ""
	}
	return fmt.Sprintf("(%s %s)", u.Username, u.Role)
}
