package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/havengate/internal/common"
	"github.com/dmitrijs2005/havengate/internal/logging"
	"github.com/dmitrijs2005/havengate/internal/ownerapi"
	"github.com/dmitrijs2005/havengate/internal/ownertoken"
)

const (
	DefaultStatusTimeout  = 8 * time.Second
	DefaultClaimTimeout   = 10 * time.Second
	DefaultReleaseTimeout = 5 * time.Second
)

const (
	msgNotConfigured      = "Global owner registry is not configured."
	msgClaimNotConfigured = "Global owner registry is not configured. Set BH_OWNER_REGISTRY_URL or provide BH_OWNER_TOKEN."
	msgOwnerExists        = "A global owner already exists."
	msgNoOwner            = "No global owner detected."
	msgReserved           = "Global owner reserved."
	msgDenied             = "Owner reservation denied."
	msgTokenAccepted      = "Owner token accepted."
	msgInvalidResponse    = "Invalid response from global owner registry."
)

// Settings configures a Client. An empty URL selects offline token mode.
type Settings struct {
	URL    string
	Token  string
	Secret string

	StatusTimeout  time.Duration
	ClaimTimeout   time.Duration
	ReleaseTimeout time.Duration
}

// StatusResult is the answer of Status.
type StatusResult struct {
	Exists  bool
	Message string
}

// ClaimResult is the answer of Claim. Token is the proof of reservation and
// may be empty when the registry does not issue one.
type ClaimResult struct {
	OK          bool
	OwnerExists bool
	Message     string
	Token       string
}

type Client struct {
	settings Settings
	hc       *http.Client
	log      logging.Logger
	now      func() time.Time
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithClock sets the time source used for offline token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func NewClient(s Settings, log logging.Logger, opts ...Option) *Client {
	s.URL = strings.TrimRight(strings.TrimSpace(s.URL), "/")
	s.Token = strings.TrimSpace(s.Token)
	s.Secret = strings.TrimSpace(s.Secret)
	if s.StatusTimeout <= 0 {
		s.StatusTimeout = DefaultStatusTimeout
	}
	if s.ClaimTimeout <= 0 {
		s.ClaimTimeout = DefaultClaimTimeout
	}
	if s.ReleaseTimeout <= 0 {
		s.ReleaseTimeout = DefaultReleaseTimeout
	}

	c := &Client{
		settings: s,
		hc:       &http.Client{},
		log:      log,
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Configured reports whether a registry URL is set.
func (c *Client) Configured() bool {
	return c.settings.URL != ""
}

// Status asks the registry whether an owner already exists. Any transport or
// decoding problem is an error, never "no owner".
func (c *Client) Status(ctx context.Context, installID string) (StatusResult, error) {
	if !c.Configured() {
		return StatusResult{Exists: false, Message: msgNotConfigured}, nil
	}

	q := url.Values{}
	q.Set(ownerapi.QueryInstallID, installID)

	var resp ownerapi.StatusResponse
	if err := c.doJSON(ctx, c.settings.StatusTimeout, http.MethodGet, ownerapi.PathStatus+"?"+q.Encode(), nil, &resp); err != nil {
		return StatusResult{}, err
	}
	if resp.OwnerExists {
		return StatusResult{Exists: true, Message: msgOwnerExists}, nil
	}
	return StatusResult{Exists: false, Message: msgNoOwner}, nil
}

// Claim reserves the global owner slot for installID, or verifies the
// offline owner token when no registry URL is configured.
func (c *Client) Claim(ctx context.Context, installID, username, machineID string) (ClaimResult, error) {
	if !c.Configured() {
		return c.claimOffline(username, machineID)
	}

	req := ownerapi.ClaimRequest{InstallID: installID, Username: username, MachineID: machineID}
	var resp ownerapi.ClaimResponse
	if err := c.doJSON(ctx, c.settings.ClaimTimeout, http.MethodPost, ownerapi.PathClaim, req, &resp); err != nil {
		return ClaimResult{}, err
	}

	if resp.OwnerExists {
		return ClaimResult{OK: false, OwnerExists: true, Message: msgOwnerExists}, nil
	}
	if resp.OK != nil && !*resp.OK {
		msg := resp.Error
		if msg == "" {
			msg = msgDenied
		}
		return ClaimResult{OK: false, Message: msg}, nil
	}
	return ClaimResult{OK: true, Message: msgReserved, Token: resp.Token}, nil
}

func (c *Client) claimOffline(username, machineID string) (ClaimResult, error) {
	if c.settings.Token == "" {
		return ClaimResult{}, common.Fail(common.ErrRegistryNotConfigured, msgClaimNotConfigured)
	}
	if _, err := ownertoken.Verify(c.settings.Token, []byte(c.settings.Secret), username, machineID, c.now()); err != nil {
		return ClaimResult{}, err
	}
	return ClaimResult{OK: true, Message: msgTokenAccepted, Token: c.settings.Token}, nil
}

// Release frees a reservation after a failed local commit. It is best effort:
// failures are logged and never returned.
func (c *Client) Release(ctx context.Context, installID string) {
	if !c.Configured() {
		return
	}
	req := ownerapi.ReleaseRequest{InstallID: installID}
	if err := c.doJSON(ctx, c.settings.ReleaseTimeout, http.MethodPost, ownerapi.PathRelease, req, nil); err != nil {
		c.log.Warn(ctx, "owner registry release failed", "install_id", installID, "error", err)
	}
}

func unreachable(err error) error {
	return common.Fail(common.ErrRegistryUnreachable, fmt.Sprintf("Unable to reach global owner registry: %v", err))
}

// doJSON performs one registry round trip. A nil out skips decoding.
func (c *Client) doJSON(ctx context.Context, timeout time.Duration, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode registry request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.settings.URL+path, body)
	if err != nil {
		return unreachable(err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return unreachable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return unreachable(fmt.Errorf("unexpected status %s", resp.Status))
	}
	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.log.Debug(ctx, "registry response decode failed", "path", path, "error", err)
		return common.Fail(common.ErrRegistryUnreachable, msgInvalidResponse)
	}
	return nil
}
