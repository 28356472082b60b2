package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dmitrijs2005/havengate/internal/client/models"
	"github.com/dmitrijs2005/havengate/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	admin    bool
	loginErr error
	cmdErr   map[string]error

	calls []string
}

func (f *fakeExec) record(name string, args ...string) error {
	call := strings.TrimSpace(name + " " + strings.Join(args, " "))
	f.calls = append(f.calls, call)
	return f.cmdErr[name]
}

func (f *fakeExec) RequireLogin(context.Context) (*models.SessionUser, error) {
	f.calls = append(f.calls, "login")
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.SessionUser{Username: "u"}, nil
}
func (f *fakeExec) isAdmin(context.Context) bool        { return f.admin }
func (f *fakeExec) Whoami(context.Context) error        { return f.record("whoami") }
func (f *fakeExec) Users(context.Context) error         { return f.record("users") }
func (f *fakeExec) AddUser(context.Context) error       { return f.record("adduser") }
func (f *fakeExec) Owner(context.Context) error         { return f.record("owner") }
func (f *fakeExec) Logout(context.Context) error        { return f.record("logout") }
func (f *fakeExec) Audit(_ context.Context, args []string) error {
	return f.record("audit", args...)
}
func (f *fakeExec) ExportAudit(_ context.Context, args []string) error {
	return f.record("export-audit", args...)
}
func (f *fakeExec) Result(_ context.Context, args []string) error {
	return f.record("result", args...)
}

func runLines(t *testing.T, exec *fakeExec, lines ...string) error {
	t.Helper()
	r := bufio.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	return runREPL(context.Background(), exec, func() string { return "status" }, r)
}

func TestRunREPL_Dispatch(t *testing.T) {
	out := silencePrintln(t)
	exec := &fakeExec{admin: true}

	err := runLines(t, exec,
		"help",
		"",
		"whoami",
		"users",
		"adduser",
		"owner",
		"audit session 5",
		"export-audit activity",
		"result scan ok found 3 hosts",
		"foobar",
		"exit",
		"whoami",
	)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"whoami",
		"users",
		"adduser",
		"owner",
		"audit session 5",
		"export-audit activity",
		"result scan ok found 3 hosts",
	}, exec.calls)
	assert.Contains(t, *out, helpAdmin)
	assert.Contains(t, *out, "Unknown command: foobar")
	assert.Contains(t, *out, "Bye!")
}

func TestRunREPL_HelpForNonAdmin(t *testing.T) {
	out := silencePrintln(t)

	require.NoError(t, runLines(t, &fakeExec{}, "help", "quit"))
	assert.Contains(t, *out, helpUser)
	assert.NotContains(t, *out, helpAdmin)
}

func TestRunREPL_EOFEndsCleanly(t *testing.T) {
	silencePrintln(t)
	exec := &fakeExec{}

	require.NoError(t, runLines(t, exec, "whoami"))
	assert.Equal(t, []string{"whoami"}, exec.calls)
}

func TestRunREPL_LogoutReturnsToLoginGate(t *testing.T) {
	silencePrintln(t)
	exec := &fakeExec{}

	require.NoError(t, runLines(t, exec, "logout", "whoami", "exit"))
	assert.Equal(t, []string{"logout", "login", "whoami"}, exec.calls)
}

func TestRunREPL_FailedLoginAfterLogoutEndsLoop(t *testing.T) {
	silencePrintln(t)
	exec := &fakeExec{loginErr: ErrLoginFailed}

	err := runLines(t, exec, "logout", "whoami")
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.Equal(t, []string{"logout", "login"}, exec.calls)
}

func TestRunREPL_CommandErrors(t *testing.T) {
	out := silencePrintln(t)
	exec := &fakeExec{cmdErr: map[string]error{
		"users": common.Fail(common.ErrorUnauthorized, "Owner privileges are required."),
	}}

	require.NoError(t, runLines(t, exec, "users", "whoami", "exit"))
	assert.Equal(t, []string{"users", "whoami"}, exec.calls)
	assert.Contains(t, *out, "Owner privileges are required.")
}

func TestRunREPL_StorageFailureIsFatal(t *testing.T) {
	silencePrintln(t)
	fatal := fmt.Errorf("%w: list users: %w", common.ErrStorage, errors.New("disk I/O error"))
	exec := &fakeExec{cmdErr: map[string]error{"users": fatal}}

	err := runLines(t, exec, "users", "whoami")
	assert.ErrorIs(t, err, common.ErrStorage)
	assert.Equal(t, []string{"users"}, exec.calls)
}
