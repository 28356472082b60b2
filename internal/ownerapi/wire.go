// Package ownerapi holds the JSON wire types of the owner registry protocol,
// shared by the client in internal/client/registry and the reference server.
package ownerapi

const (
	PathStatus  = "/v1/owner/status"
	PathClaim   = "/v1/owner/claim"
	PathRelease = "/v1/owner/release"
	PathHealth  = "/healthz"

	QueryInstallID = "install_id"
)

type StatusResponse struct {
	OwnerExists bool `json:"owner_exists"`
}

type ClaimRequest struct {
	InstallID string `json:"install_id"`
	Username  string `json:"username"`
	MachineID string `json:"machine_id"`
}

// ClaimResponse mirrors the registry reply. OK is a pointer because only an
// explicit "ok": false denies the claim.
type ClaimResponse struct {
	OK          *bool  `json:"ok,omitempty"`
	OwnerExists bool   `json:"owner_exists,omitempty"`
	Token       string `json:"token,omitempty"`
	Error       string `json:"error,omitempty"`
}

type ReleaseRequest struct {
	InstallID string `json:"install_id"`
}

// Bool returns a pointer to v, for building ClaimResponse values.
func Bool(v bool) *bool {
	return &v
}

type ReleaseResponse struct {
	Released bool `json:"released"`
}
