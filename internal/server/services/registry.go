// Package services implements the owner registry: one global owner slot
// claimed by a single install.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/havengate/internal/common"
	"github.com/dmitrijs2005/havengate/internal/logging"
	"github.com/dmitrijs2005/havengate/internal/ownerapi"
	"github.com/dmitrijs2005/havengate/internal/ownertoken"
	"github.com/dmitrijs2005/havengate/internal/server/models"
	"github.com/dmitrijs2005/havengate/internal/server/repositories/claims"
	"github.com/google/uuid"
)

const msgOwnerExists = "A global owner already exists."

type Registry struct {
	repo   claims.Repository
	secret []byte
	ttl    time.Duration
	log    logging.Logger

	now   func() time.Time
	newID func() string
}

// NewRegistry returns a Registry. With an empty secret successful claims
// carry no token.
func NewRegistry(repo claims.Repository, secret []byte, ttl time.Duration, log logging.Logger) *Registry {
	return &Registry{
		repo:   repo,
		secret: secret,
		ttl:    ttl,
		log:    log,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %w", common.ErrStorage, err)
}

// Status reports whether an install other than installID holds the slot.
func (s *Registry) Status(ctx context.Context, installID string) (ownerapi.StatusResponse, error) {
	h, err := s.repo.Holder(ctx)
	if errors.Is(err, common.ErrorNotFound) {
		return ownerapi.StatusResponse{OwnerExists: false}, nil
	}
	if err != nil {
		return ownerapi.StatusResponse{}, storageErr(err)
	}
	return ownerapi.StatusResponse{OwnerExists: h.InstallID != strings.TrimSpace(installID)}, nil
}

// Claim reserves the slot for req.InstallID. A claim by the holding install
// succeeds again and re-issues the token.
func (s *Registry) Claim(ctx context.Context, req ownerapi.ClaimRequest) (ownerapi.ClaimResponse, error) {
	req.InstallID = strings.TrimSpace(req.InstallID)
	req.Username = strings.TrimSpace(req.Username)
	req.MachineID = strings.TrimSpace(req.MachineID)
	if req.InstallID == "" || req.Username == "" {
		return ownerapi.ClaimResponse{}, common.Fail(common.ErrValidation, "install_id and username are required.")
	}

	var token string
	if len(s.secret) > 0 {
		t, err := ownertoken.Sign(s.secret, req.Username, req.MachineID, s.ttl)
		if err != nil {
			return ownerapi.ClaimResponse{}, fmt.Errorf("sign owner token: %w", err)
		}
		token = t
	}

	c := &models.Claim{
		ID:        s.newID(),
		InstallID: req.InstallID,
		Username:  req.Username,
		MachineID: req.MachineID,
		ClaimedAt: s.now().UTC(),
	}
	won, err := s.repo.Claim(ctx, c)
	if err != nil {
		return ownerapi.ClaimResponse{}, storageErr(err)
	}
	if !won {
		s.log.Info(ctx, "owner claim denied", "install_id", req.InstallID, "username", req.Username)
		return ownerapi.ClaimResponse{OK: ownerapi.Bool(false), OwnerExists: true, Error: msgOwnerExists}, nil
	}

	s.log.Info(ctx, "owner slot claimed", "install_id", req.InstallID, "username", req.Username, "claim_id", c.ID)
	return ownerapi.ClaimResponse{OK: ownerapi.Bool(true), Token: token}, nil
}

// Release frees the slot if installID holds it.
func (s *Registry) Release(ctx context.Context, installID string) (bool, error) {
	installID = strings.TrimSpace(installID)
	if installID == "" {
		return false, common.Fail(common.ErrValidation, "install_id is required.")
	}
	ok, err := s.repo.Release(ctx, installID)
	if err != nil {
		return false, storageErr(err)
	}
	if ok {
		s.log.Info(ctx, "owner slot released", "install_id", installID)
	}
	return ok, nil
}
