package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/havengate/internal/client/models"
	"github.com/dmitrijs2005/havengate/internal/client/registry"
	"github.com/dmitrijs2005/havengate/internal/client/services"
	"github.com/dmitrijs2005/havengate/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhoami(t *testing.T) {
	g := &fakeGate{}
	a, out := newTestApp(g, "")

	require.NoError(t, a.Whoami(context.Background()))
	assert.Contains(t, out.String(), msgNotLoggedIn)

	out.Reset()
	g.current = &models.SessionUser{Username: "alice", Role: models.RoleAdmin}
	require.NoError(t, a.Whoami(context.Background()))
	assert.Equal(t, "alice (admin)\n", out.String())
}

func TestUsers(t *testing.T) {
	last := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	g := &fakeGate{users: []models.User{
		{Username: "root", Role: models.RoleOwner, CreatedAt: last, LastLogin: &last},
		{Username: "bob", Role: models.RoleUser, CreatedAt: last},
	}}
	a, out := newTestApp(g, "")

	require.NoError(t, a.Users(context.Background()))
	assert.Contains(t, out.String(), "root")
	assert.Contains(t, out.String(), "bob")
	assert.Contains(t, out.String(), "last login never")
}

func TestUsers_Unauthorized(t *testing.T) {
	g := &fakeGate{usersErr: common.Fail(common.ErrorUnauthorized, "Owner privileges are required.")}
	a, _ := newTestApp(g, "")

	err := a.Users(context.Background())
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestAddUser(t *testing.T) {
	g := &fakeGate{admin: true, addRes: services.Result{OK: true, Message: "Account created."}}
	a, out := newTestApp(g, "carol\nAdmin\n")
	stubPasswords(t, "pw", "pw")

	require.NoError(t, a.AddUser(context.Background()))
	assert.Equal(t, []string{"carol:pw:admin"}, g.added)
	assert.Equal(t, []string{"adduser=success"}, g.activities)
	assert.Contains(t, out.String(), "Account created.")
}

func TestAddUser_DefaultRoleAndFailureOutcome(t *testing.T) {
	g := &fakeGate{admin: true, addRes: services.Result{Message: "Username already exists.", Kind: common.ErrConflict}}
	a, _ := newTestApp(g, "carol\n\n")
	stubPasswords(t, "pw", "pw")

	require.NoError(t, a.AddUser(context.Background()))
	assert.Equal(t, []string{"carol:pw:user"}, g.added)
	assert.Equal(t, []string{"adduser=failure:Username already exists."}, g.activities)
}

func TestAddUser_PasswordMismatch(t *testing.T) {
	g := &fakeGate{admin: true}
	a, out := newTestApp(g, "carol\n")
	stubPasswords(t, "a", "b")

	require.NoError(t, a.AddUser(context.Background()))
	assert.Empty(t, g.added)
	assert.Contains(t, out.String(), msgPasswordsDiffer)
}

func TestAddUser_RequiresOwner(t *testing.T) {
	g := &fakeGate{}
	a, _ := newTestApp(g, "carol\n")

	err := a.AddUser(context.Background())
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
	assert.Empty(t, g.added)
}

func TestOwner(t *testing.T) {
	g := &fakeGate{info: services.OwnerInfo{
		Username:    "root",
		LocalExists: true,
		TokenStored: true,
		Registry:    registry.StatusResult{Message: "No global owner detected."},
	}}
	a, out := newTestApp(g, "")

	require.NoError(t, a.Owner(context.Background()))
	assert.Equal(t, "Local owner: root\nOwner token: stored\nRegistry: No global owner detected.\n", out.String())

	out.Reset()
	g.info = services.OwnerInfo{RegistryErr: common.Fail(common.ErrRegistryUnreachable, "Unable to reach global owner registry: timeout")}
	require.NoError(t, a.Owner(context.Background()))
	assert.Equal(t, "Local owner: none\nOwner token: not stored\nRegistry: Unable to reach global owner registry: timeout\n", out.String())
}

func TestParseStreamArgs(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantStream models.Stream
		wantLimit  int
		wantErr    bool
	}{
		{name: "defaults", wantStream: models.StreamSecurity, wantLimit: defaultAuditLimit},
		{name: "stream", args: []string{"session"}, wantStream: models.StreamSession, wantLimit: defaultAuditLimit},
		{name: "stream and limit", args: []string{"activity", "3"}, wantStream: models.StreamActivity, wantLimit: 3},
		{name: "unknown stream", args: []string{"users"}, wantErr: true},
		{name: "bad limit", args: []string{"security", "0"}, wantErr: true},
		{name: "non numeric limit", args: []string{"security", "ten"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream, limit, err := parseStreamArgs(tt.args)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStream, stream)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}

func TestAudit(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	g := &fakeGate{events: []models.AuditEvent{
		{ID: 2, Stream: models.StreamSecurity, Timestamp: ts, Actor: "root", Action: "login", Outcome: "success"},
		{ID: 1, Stream: models.StreamSecurity, Timestamp: ts, Action: "legacy_import", Outcome: "success"},
	}}
	a, out := newTestApp(g, "")

	require.NoError(t, a.Audit(context.Background(), []string{"security", "2"}))
	assert.Equal(t, models.StreamSecurity, g.stream)
	assert.Equal(t, 2, g.limit)
	assert.Contains(t, out.String(), "root")
	assert.Contains(t, out.String(), "legacy_import")
	assert.Contains(t, out.String(), " - ")
}

func TestAudit_EmptyAndDenied(t *testing.T) {
	g := &fakeGate{}
	a, out := newTestApp(g, "")
	require.NoError(t, a.Audit(context.Background(), nil))
	assert.Contains(t, out.String(), "No events.")

	g.eventsErr = common.Fail(common.ErrorUnauthorized, "Owner privileges are required.")
	assert.ErrorIs(t, a.Audit(context.Background(), nil), common.ErrorUnauthorized)
}

func TestExportAudit(t *testing.T) {
	g := &fakeGate{}
	a, out := newTestApp(g, "")

	require.NoError(t, a.ExportAudit(context.Background(), nil))
	assert.Contains(t, out.String(), msgExportDisabled)

	exp := &fakeExporter{enabled: true, key: "audit/i/session-x.jsonl", n: 4}
	a.exporter = exp
	out.Reset()
	require.NoError(t, a.ExportAudit(context.Background(), []string{"session"}))
	assert.Equal(t, models.StreamSession, exp.stream)
	assert.Equal(t, "Exported 4 events to audit/i/session-x.jsonl\n", out.String())
	assert.Equal(t, []string{"export-audit=success"}, g.activities)

	exp.err = errors.New("upload failed")
	assert.EqualError(t, a.ExportAudit(context.Background(), nil), "upload failed")
}

func TestResult(t *testing.T) {
	g := &fakeGate{}
	a, out := newTestApp(g, "")
	res := &fakeResults{path: "/r/scan.jsonl"}
	a.results = res

	require.NoError(t, a.Result(context.Background(), []string{"scan"}))
	assert.Contains(t, out.String(), msgResultUsage)
	assert.Empty(t, res.got)

	out.Reset()
	require.NoError(t, a.Result(context.Background(), []string{"scan", "ok", "3", "hosts"}))
	assert.Equal(t, []string{"scan", "ok", "3 hosts"}, res.got)
	assert.Equal(t, []string{"result=success"}, g.activities)
	assert.Contains(t, out.String(), "/r/scan.jsonl")
}

func TestLogout(t *testing.T) {
	g := &fakeGate{current: &models.SessionUser{Username: "root"}}
	a, out := newTestApp(g, "")

	require.NoError(t, a.Logout(context.Background()))
	assert.True(t, g.loggedOut)
	assert.Nil(t, g.current)
	assert.Contains(t, out.String(), "Logged out.")
}

func TestGetStatus(t *testing.T) {
	g := &fakeGate{}
	a, _ := newTestApp(g, "")
	assert.Empty(t, a.getStatus())

	g.current = &models.SessionUser{Username: "root", Role: models.RoleOwner}
	assert.Equal(t, "(root owner)", a.getStatus())
}
