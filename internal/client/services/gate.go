package services

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/havengate/internal/client/models"
	"github.com/dmitrijs2005/havengate/internal/client/registry"
	"github.com/dmitrijs2005/havengate/internal/common"
	"github.com/dmitrijs2005/havengate/internal/logging"
	"github.com/dmitrijs2005/havengate/internal/machine"
)

// Audit actions.
const (
	ActionLogin        = "login"
	ActionLogout       = "logout"
	ActionRegister     = "register"
	ActionOwnerCreate  = "owner_create"
	ActionLegacyImport = "legacy_import"
	ActionAuditExport  = "audit_export"
)

// Gate is the entry point collaborators use: it authenticates, registers,
// creates the owner and exposes the current session. Every attempt is
// audited before the result is returned.
type Gate struct {
	store    *CredentialStore
	owner    *OwnerCoordinator
	registry OwnerRegistry
	session  *SessionManager
	audit    *AuditLog
	machine  machine.Identity
	log      logging.Logger
}

func NewGate(store *CredentialStore, owner *OwnerCoordinator, reg OwnerRegistry, session *SessionManager,
	audit *AuditLog, id machine.Identity, log logging.Logger) *Gate {
	return &Gate{
		store:    store,
		owner:    owner,
		registry: reg,
		session:  session,
		audit:    audit,
		machine:  id,
		log:      log,
	}
}

func outcomeOf(res Result, err error) string {
	switch {
	case err != nil:
		return common.FailureOutcome(common.Message(err))
	case res.OK:
		return common.OutcomeSuccess
	case errors.Is(res.Kind, common.ErrMachineLocked):
		return common.OutcomeDeniedLocked
	case errors.Is(res.Kind, common.ErrOwnerExists):
		return common.OutcomeDeniedExistingOwner
	default:
		return common.FailureOutcome(res.Message)
	}
}

// Authenticate verifies the credentials on this machine and, on success,
// makes the account the current session.
func (g *Gate) Authenticate(ctx context.Context, username, password string) (Result, error) {
	username = strings.TrimSpace(username)
	res, err := g.store.Authenticate(ctx, username, password, g.machine.Fingerprint())
	g.audit.Record(ctx, ActionLogin, username, outcomeOf(res, err))
	if err != nil || !res.OK {
		return res, err
	}

	g.session.Set(models.SessionUser{Username: res.Username, Role: res.Role, UserID: res.UserID})
	g.audit.RecordSession(ctx, ActionLogin, res.Username, common.OutcomeSuccess)
	return res, nil
}

// RegisterUser creates an ordinary account. The owner's name is reserved.
func (g *Gate) RegisterUser(ctx context.Context, username, password string) (Result, error) {
	return g.register(ctx, username, password, models.RoleUser)
}

// AddUser creates an admin or user account on behalf of the owner.
func (g *Gate) AddUser(ctx context.Context, username, password string, role models.Role) (Result, error) {
	if !g.CurrentUserIsAdmin(ctx) {
		return reject(common.ErrorUnauthorized, msgAdminRequired, role), nil
	}
	if role != models.RoleAdmin && role != models.RoleUser {
		return reject(common.ErrValidation, msgInvalidRole, models.RoleUser), nil
	}
	return g.register(ctx, username, password, role)
}

func (g *Gate) register(ctx context.Context, username, password string, role models.Role) (Result, error) {
	username = strings.TrimSpace(username)

	owner, err := g.store.GetOwnerRecord(ctx)
	if err != nil {
		g.audit.Record(ctx, ActionRegister, username, outcomeOf(Result{}, err))
		return Result{}, err
	}

	var res Result
	if owner != nil && strings.EqualFold(owner.Username, username) {
		res = reject(common.ErrConflict, msgUsernameReserved, role)
	} else {
		res, err = g.store.Register(ctx, username, password, string(role), "")
	}
	g.audit.Record(ctx, ActionRegister, username, outcomeOf(res, err))
	return res, err
}

// CreateOwner runs the owner coordinator. It does not log the owner in.
func (g *Gate) CreateOwner(ctx context.Context, username, password string) (Result, error) {
	username = strings.TrimSpace(username)
	res, err := g.owner.CreateOwner(ctx, username, password)
	g.audit.Record(ctx, ActionOwnerCreate, username, outcomeOf(res, err))
	return res, err
}

// OwnerExists reports whether the local database holds an owner.
func (g *Gate) OwnerExists(ctx context.Context) (bool, error) {
	return g.store.OwnerExists(ctx)
}

// IsOwner reports whether username names the owner, ignoring case.
func (g *Gate) IsOwner(ctx context.Context, username string) bool {
	owner, err := g.store.GetOwnerRecord(ctx)
	if err != nil {
		g.log.Warn(ctx, "owner lookup failed", "error", err)
		return false
	}
	return owner != nil && strings.EqualFold(owner.Username, strings.TrimSpace(username))
}

// CurrentUserIsAdmin holds when the session belongs to the owner.
func (g *Gate) CurrentUserIsAdmin(ctx context.Context) bool {
	u := g.session.Get()
	if u == nil || u.Role != models.RoleOwner {
		return false
	}
	return g.IsOwner(ctx, u.Username)
}

func (g *Gate) GetCurrentUser() *models.SessionUser {
	return g.session.Get()
}

// Logout ends the current session.
func (g *Gate) Logout(ctx context.Context) {
	if u := g.session.Get(); u != nil {
		g.audit.RecordSession(ctx, ActionLogout, u.Username, common.OutcomeSuccess)
	}
	g.session.Clear()
}

// LogActivity records an action of the current user in the activity stream.
func (g *Gate) LogActivity(ctx context.Context, action, outcome string) {
	actor := ""
	if u := g.session.Get(); u != nil {
		actor = u.Username
	}
	g.audit.RecordActivity(ctx, action, actor, outcome)
}

// ListUsers is restricted to the owner.
func (g *Gate) ListUsers(ctx context.Context) ([]models.User, error) {
	if !g.CurrentUserIsAdmin(ctx) {
		return nil, common.Fail(common.ErrorUnauthorized, msgAdminRequired)
	}
	return g.store.ListUsers(ctx)
}

// RecentEvents reads an audit stream, newest first. Restricted to the owner.
func (g *Gate) RecentEvents(ctx context.Context, stream models.Stream, limit int) ([]models.AuditEvent, error) {
	if !g.CurrentUserIsAdmin(ctx) {
		return nil, common.Fail(common.ErrorUnauthorized, msgAdminRequired)
	}
	return g.audit.Recent(ctx, stream, limit)
}

// MigrateLegacy imports the flat-file user stores once and audits the import.
func (g *Gate) MigrateLegacy(ctx context.Context) (int, error) {
	n, err := g.store.MigrateLegacy(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		g.audit.Record(ctx, ActionLegacyImport, "", common.OutcomeSuccess)
	}
	return n, nil
}

// OwnerInfo summarises local and global owner state.
type OwnerInfo struct {
	Username    string
	LocalExists bool
	TokenStored bool
	Registry    registry.StatusResult
	// RegistryErr is set when the registry could not be asked.
	RegistryErr error
}

// OwnerStatus reports who owns this installation and what the registry says.
func (g *Gate) OwnerStatus(ctx context.Context) (OwnerInfo, error) {
	var info OwnerInfo

	owner, err := g.store.GetOwnerRecord(ctx)
	if err != nil {
		return info, err
	}
	if owner != nil {
		info.LocalExists = true
		info.Username = owner.Username
	}

	if _, info.TokenStored, err = g.store.OwnerToken(ctx); err != nil {
		return info, err
	}

	installID, err := g.store.InstallID(ctx)
	if err != nil {
		return info, err
	}
	info.Registry, info.RegistryErr = g.registry.Status(ctx, installID)
	return info, nil
}
