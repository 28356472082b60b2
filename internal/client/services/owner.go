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

// OwnerRegistry is the part of the registry client the coordinator needs.
type OwnerRegistry interface {
	Status(ctx context.Context, installID string) (registry.StatusResult, error)
	Claim(ctx context.Context, installID, username, machineID string) (registry.ClaimResult, error)
	Release(ctx context.Context, installID string)
}

// State is the coordinator's position in the reserve/commit/compensate flow.
type State int

const (
	StateUnclaimed State = iota
	StateClaimPending
	StateCommitted
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateUnclaimed:
		return "unclaimed"
	case StateClaimPending:
		return "claim_pending"
	case StateCommitted:
		return "committed"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}

// OwnerCoordinator creates the owner account. The global slot is reserved
// with the registry first, the local row is committed second, and the
// reservation is released again when the commit fails.
type OwnerCoordinator struct {
	store    *CredentialStore
	registry OwnerRegistry
	machine  machine.Identity
	log      logging.Logger

	state State
}

func NewOwnerCoordinator(store *CredentialStore, reg OwnerRegistry, id machine.Identity, log logging.Logger) *OwnerCoordinator {
	return &OwnerCoordinator{
		store:    store,
		registry: reg,
		machine:  id,
		log:      log,
	}
}

// State returns the last transition of the most recent CreateOwner call.
func (c *OwnerCoordinator) State() State {
	return c.state
}

func (c *OwnerCoordinator) CreateOwner(ctx context.Context, username, password string) (Result, error) {
	c.state = StateUnclaimed

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return reject(common.ErrValidation, msgCredentialsRequired, models.RoleOwner), nil
	}

	exists, err := c.store.OwnerExists(ctx)
	if err != nil {
		return Result{}, err
	}
	if exists {
		return reject(common.ErrOwnerExists, msgOwnerAlreadyExists, models.RoleOwner), nil
	}

	installID, err := c.store.InstallID(ctx)
	if err != nil {
		return Result{}, err
	}
	machineID := c.machine.Fingerprint()
	log := c.log.With("install_id", installID, "username", username)

	c.state = StateClaimPending
	claim, err := c.registry.Claim(ctx, installID, username, machineID)
	if err != nil {
		c.state = StateUnclaimed
		log.Warn(ctx, "owner claim aborted", "error", err)
		return Result{}, err
	}
	if !claim.OK {
		c.state = StateUnclaimed
		log.Info(ctx, "owner claim denied", "reason", claim.Message)
		if claim.OwnerExists || strings.Contains(strings.ToLower(claim.Message), "already exists") {
			return reject(common.ErrOwnerExists, msgOwnerAlreadyExists, models.RoleOwner), nil
		}
		return reject(common.ErrClaimDenied, claim.Message, models.RoleOwner), nil
	}

	res, err := c.store.Register(ctx, username, password, string(models.RoleOwner), machineID)
	if err != nil || !res.OK {
		c.state = StateReleased
		c.registry.Release(ctx, installID)
		log.Warn(ctx, "owner commit failed, reservation released", "error", err, "message", res.Message)
		if err != nil {
			return Result{}, err
		}
		if errors.Is(res.Kind, common.ErrOwnerExists) {
			return reject(common.ErrOwnerExists, msgOwnerAlreadyExists, models.RoleOwner), nil
		}
		return res, nil
	}

	c.state = StateCommitted
	if claim.Token != "" {
		if err := c.store.StoreOwnerToken(ctx, claim.Token); err != nil {
			log.Warn(ctx, "owner token not stored", "error", err)
		}
	}
	log.Info(ctx, "owner account created")
	return res, nil
}
