package services

import (
	"fmt"

	"github.com/dmitrijs2005/havengate/internal/client/models"
	"github.com/dmitrijs2005/havengate/internal/common"
)

const (
	msgCredentialsRequired = "Username and password are required."
	msgInvalidRole         = "Invalid role."
	msgUsernameExists      = "Username already exists."
	msgOwnerAccountExists  = "Owner account already exists."
	msgOwnerCreated        = "Owner account created."
	msgAccountCreated      = "Account created."
	msgInvalidCredentials  = "Invalid username or password."
	msgMachineLocked       = "Owner account is locked to this machine."
	msgLoginSuccessful     = "Login successful."
	msgOwnerAlreadyExists  = "Owner already exists. Cannot create another owner account."
	msgUsernameReserved    = "Username is reserved."
	msgAdminRequired       = "Owner privileges are required."
)

// Result is the outcome of a gate operation. Kind is nil on success and one
// of the recoverable sentinels from internal/common otherwise.
type Result struct {
	OK      bool
	Message string
	Role    models.Role

	// Username is the stored spelling of the account name on success.
	Username string
	UserID   int64

	Kind error
}

func succeed(msg string, u *models.User) Result {
	r := Result{OK: true, Message: msg}
	if u != nil {
		r.Role = u.Role
		r.Username = u.Username
		r.UserID = u.ID
	}
	return r
}

// reject builds a failed Result. role is the normalized role the attempt
// concerned, so callers can tell an owner denial from a user one.
func reject(kind error, msg string, role models.Role) Result {
	return Result{OK: false, Message: msg, Role: role, Kind: kind}
}

// Err returns the failure as an error, or nil for a successful result.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return common.Fail(r.Kind, r.Message)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", common.ErrStorage, op, err)
}
