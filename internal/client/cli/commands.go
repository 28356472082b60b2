package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/havengate/internal/client/models"
	"github.com/dmitrijs2005/havengate/internal/client/services"
	"github.com/dmitrijs2005/havengate/internal/common"
)

const (
	defaultAuditLimit = 20
	timeLayout        = "2006-01-02 15:04:05"

	msgNotLoggedIn    = "Not logged in."
	msgOwnerRequired  = "Owner privileges are required."
	msgExportDisabled = "Audit export is not configured. Set BH_AUDIT_S3_BUCKET."
	msgResultUsage    = "Usage: result <module> <status> <text>"
	msgUnknownStream  = "Unknown audit stream. Use security, session or activity."
	msgInvalidLimit   = "The event count must be a positive number."
)

// Activity actions.
const (
	activityAddUser = "adduser"
	activityExport  = "export-audit"
	activityResult  = "result"
)

func (a *App) isAdmin(ctx context.Context) bool {
	return a.gate.CurrentUserIsAdmin(ctx)
}

func (a *App) requireAdmin(ctx context.Context) error {
	if !a.isAdmin(ctx) {
		return common.Fail(common.ErrorUnauthorized, msgOwnerRequired)
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return t.Local().Format(timeLayout)
}

// Whoami prints the current session identity.
func (a *App) Whoami(_ context.Context) error {
	u := a.gate.GetCurrentUser()
	if u == nil {
		a.say(msgNotLoggedIn)
		return nil
	}
	a.say(fmt.Sprintf("%s (%s)", u.Username, u.Role))
	return nil
}

// Users lists every account. Owner only.
func (a *App) Users(ctx context.Context) error {
	list, err := a.gate.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range list {
		created := u.CreatedAt
		a.say(fmt.Sprintf("%-24s %-6s created %s  last login %s", u.Username, u.Role, formatTime(&created), formatTime(u.LastLogin)))
	}
	return nil
}

// AddUser prompts for a new admin or user account. Owner only.
func (a *App) AddUser(ctx context.Context) error {
	if err := a.requireAdmin(ctx); err != nil {
		return err
	}

	username, password, confirm, err := a.readCredentials(true)
	if err != nil {
		return err
	}
	if password != confirm {
		a.say(msgPasswordsDiffer)
		return nil
	}
	role, err := getSimpleText(a.reader, "Role (admin/user) [user]: ", a.out)
	if err != nil {
		return err
	}
	parsed, _ := models.ParseRole(role)
	res, err := a.gate.AddUser(ctx, username, password, parsed)
	if err != nil {
		return err
	}
	a.gate.LogActivity(ctx, activityAddUser, outcome(res))
	a.say(res.Message)
	return nil
}

func outcome(res services.Result) string {
	if res.OK {
		return common.OutcomeSuccess
	}
	return common.FailureOutcome(res.Message)
}

// Owner shows the local owner, whether a reservation token is on file and
// what the global registry reports.
func (a *App) Owner(ctx context.Context) error {
	info, err := a.gate.OwnerStatus(ctx)
	if err != nil {
		return err
	}

	if info.LocalExists {
		a.say("Local owner: " + info.Username)
	} else {
		a.say("Local owner: none")
	}
	if info.TokenStored {
		a.say("Owner token: stored")
	} else {
		a.say("Owner token: not stored")
	}
	if info.RegistryErr != nil {
		a.say("Registry: " + common.Message(info.RegistryErr))
	} else {
		a.say("Registry: " + info.Registry.Message)
	}
	return nil
}

// parseStreamArgs reads "[stream] [n]" with security and defaultAuditLimit as
// defaults.
func parseStreamArgs(args []string) (models.Stream, int, error) {
	stream, limit := models.StreamSecurity, defaultAuditLimit
	if len(args) > 0 {
		s, ok := models.ParseStream(args[0])
		if !ok {
			return "", 0, common.Fail(common.ErrValidation, msgUnknownStream)
		}
		stream = s
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return "", 0, common.Fail(common.ErrValidation, msgInvalidLimit)
		}
		limit = n
	}
	return stream, limit, nil
}

// Audit prints recent events of a stream, newest first. Owner only.
func (a *App) Audit(ctx context.Context, args []string) error {
	stream, limit, err := parseStreamArgs(args)
	if err != nil {
		return err
	}
	events, err := a.gate.RecentEvents(ctx, stream, limit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		a.say("No events.")
		return nil
	}
	for _, e := range events {
		actor := e.Actor
		if actor == "" {
			actor = "-"
		}
		ts := e.Timestamp
		a.say(fmt.Sprintf("%s  %-16s %-14s %s", formatTime(&ts), actor, e.Action, e.Outcome))
	}
	return nil
}

// ExportAudit uploads a whole stream to the configured bucket. Owner only.
func (a *App) ExportAudit(ctx context.Context, args []string) error {
	stream, _, err := parseStreamArgs(args)
	if err != nil {
		return err
	}
	if !a.exporter.Enabled() {
		a.say(msgExportDisabled)
		return nil
	}

	key, n, err := a.exporter.Export(ctx, stream)
	if err != nil {
		if errors.Is(err, services.ErrExportDisabled) {
			a.say(msgExportDisabled)
			return nil
		}
		return err
	}
	a.gate.LogActivity(ctx, activityExport, common.OutcomeSuccess)
	a.say(fmt.Sprintf("Exported %d events to %s", n, key))
	return nil
}

// Result appends a module result attributed to the current user.
func (a *App) Result(ctx context.Context, args []string) error {
	if len(args) < 3 {
		a.say(msgResultUsage)
		return nil
	}
	path, err := a.results.Append(ctx, args[0], args[1], strings.Join(args[2:], " "))
	if err != nil {
		return err
	}
	a.gate.LogActivity(ctx, activityResult, common.OutcomeSuccess)
	a.say("Result saved to " + path)
	return nil
}

// Logout ends the session. The REPL then returns to the login gate.
func (a *App) Logout(ctx context.Context) error {
	a.gate.Logout(ctx)
	a.say("Logged out.")
	return nil
}
