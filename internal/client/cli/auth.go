package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/havengate/internal/client/models"
	"github.com/dmitrijs2005/havengate/internal/common"
)

const (
	msgNoOwner         = "No owner account found. Create owner account now."
	msgRequired        = "Username and password are required."
	msgPasswordsDiffer = "Passwords do not match."
)

// ErrLoginFailed is returned by RequireLogin when the credentials were
// rejected.
var ErrLoginFailed = errors.New("login failed")

// RequireLogin returns the authenticated session user. With no local owner
// it runs the owner bootstrap, which is refused when the global registry
// already reports an owner or cannot be asked. Otherwise it asks for
// credentials once. Any error means the process should exit.
func (a *App) RequireLogin(ctx context.Context) (*models.SessionUser, error) {
	exists, err := a.gate.OwnerExists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		return a.loginFlow(ctx)
	}

	info, err := a.gate.OwnerStatus(ctx)
	if err != nil {
		return nil, err
	}
	if info.RegistryErr != nil {
		a.say(common.Message(info.RegistryErr))
		return nil, info.RegistryErr
	}
	if info.Registry.Exists {
		a.say(info.Registry.Message)
		return nil, common.Fail(common.ErrOwnerExists, info.Registry.Message)
	}

	a.say(msgNoOwner)
	return a.createOwnerFlow(ctx)
}

func (a *App) readCredentials(confirm bool) (username, password, confirmation string, err error) {
	if username, err = getSimpleText(a.reader, "Username: ", a.out); err != nil {
		return "", "", "", err
	}
	if password, err = promptPassword(a.out, "Password: "); err != nil {
		return "", "", "", err
	}
	if confirm {
		if confirmation, err = promptPassword(a.out, "Confirm Password: "); err != nil {
			return "", "", "", err
		}
	}
	return username, password, confirmation, nil
}

func (a *App) createOwnerFlow(ctx context.Context) (*models.SessionUser, error) {
	for {
		username, password, confirm, err := a.readCredentials(true)
		if err != nil {
			return nil, err
		}
		if username == "" || password == "" {
			a.say(msgRequired)
			continue
		}
		if password != confirm {
			a.say(msgPasswordsDiffer)
			continue
		}

		res, err := a.gate.CreateOwner(ctx, username, password)
		if err != nil {
			a.say(common.Message(err))
			return nil, err
		}
		a.say(res.Message)
		if !res.OK {
			if errors.Is(res.Kind, common.ErrOwnerExists) || errors.Is(res.Kind, common.ErrClaimDenied) {
				return nil, res.Err()
			}
			continue
		}
		return a.authenticate(ctx, username, password)
	}
}

func (a *App) loginFlow(ctx context.Context) (*models.SessionUser, error) {
	username, password, _, err := a.readCredentials(false)
	if err != nil {
		return nil, err
	}
	return a.authenticate(ctx, username, password)
}

func (a *App) authenticate(ctx context.Context, username, password string) (*models.SessionUser, error) {
	res, err := a.gate.Authenticate(ctx, username, password)
	if err != nil {
		a.say(common.Message(err))
		return nil, err
	}
	if !res.OK {
		a.say(res.Message)
		return nil, errors.Join(ErrLoginFailed, res.Err())
	}

	u := a.gate.GetCurrentUser()
	if u == nil {
		u = &models.SessionUser{Username: res.Username, Role: res.Role, UserID: res.UserID}
	}
	a.say(res.Message)
	a.log.Info(ctx, "login", "username", u.Username, "role", u.Role)
	return u, nil
}
