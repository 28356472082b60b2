package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/dmitrijs2005/havengate/internal/client/models"
	"github.com/dmitrijs2005/havengate/internal/client/services"
	"github.com/dmitrijs2005/havengate/internal/logging"
)

type fakeGate struct {
	ownerExists bool
	ownerErr    error
	info        services.OwnerInfo
	infoErr     error

	createResults []services.Result
	createErr     error
	authRes       services.Result
	authErr       error
	addRes        services.Result
	addErr        error

	admin     bool
	current   *models.SessionUser
	users     []models.User
	usersErr  error
	events    []models.AuditEvent
	eventsErr error

	created    []string
	authed     []string
	added      []string
	activities []string
	loggedOut  bool
	stream     models.Stream
	limit      int
}

func (f *fakeGate) OwnerExists(context.Context) (bool, error) { return f.ownerExists, f.ownerErr }
func (f *fakeGate) OwnerStatus(context.Context) (services.OwnerInfo, error) {
	return f.info, f.infoErr
}

func (f *fakeGate) CreateOwner(_ context.Context, username, password string) (services.Result, error) {
	f.created = append(f.created, username+":"+password)
	if f.createErr != nil {
		return services.Result{}, f.createErr
	}
	if len(f.createResults) == 0 {
		return services.Result{OK: true, Message: "Owner account created.", Role: models.RoleOwner, Username: username}, nil
	}
	res := f.createResults[0]
	f.createResults = f.createResults[1:]
	return res, nil
}

func (f *fakeGate) Authenticate(_ context.Context, username, password string) (services.Result, error) {
	f.authed = append(f.authed, username+":"+password)
	if f.authErr != nil {
		return services.Result{}, f.authErr
	}
	if f.authRes.OK {
		f.current = &models.SessionUser{Username: f.authRes.Username, Role: f.authRes.Role, UserID: f.authRes.UserID}
	}
	return f.authRes, nil
}

func (f *fakeGate) AddUser(_ context.Context, username, password string, role models.Role) (services.Result, error) {
	f.added = append(f.added, username+":"+password+":"+string(role))
	return f.addRes, f.addErr
}

func (f *fakeGate) CurrentUserIsAdmin(context.Context) bool { return f.admin }
func (f *fakeGate) GetCurrentUser() *models.SessionUser     { return f.current }

func (f *fakeGate) Logout(context.Context) {
	f.loggedOut = true
	f.current = nil
}

func (f *fakeGate) ListUsers(context.Context) ([]models.User, error) {
	return f.users, f.usersErr
}

func (f *fakeGate) LogActivity(_ context.Context, action, outcome string) {
	f.activities = append(f.activities, action+"="+outcome)
}

func (f *fakeGate) RecentEvents(_ context.Context, stream models.Stream, limit int) ([]models.AuditEvent, error) {
	f.stream, f.limit = stream, limit
	return f.events, f.eventsErr
}

type fakeExporter struct {
	enabled bool
	key     string
	n       int
	err     error
	stream  models.Stream
}

func (f *fakeExporter) Enabled() bool { return f.enabled }
func (f *fakeExporter) Export(_ context.Context, stream models.Stream) (string, int, error) {
	f.stream = stream
	return f.key, f.n, f.err
}

type fakeResults struct {
	path string
	err  error
	got  []string
}

func (f *fakeResults) Append(_ context.Context, module, status, result string) (string, error) {
	f.got = append(f.got, module, status, result)
	return f.path, f.err
}

func newTestApp(g *fakeGate, input string) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	return &App{
		gate:     g,
		exporter: &fakeExporter{},
		results:  &fakeResults{},
		log:      logging.Nop(),
		reader:   bufio.NewReader(strings.NewReader(input)),
		out:      &out,
	}, &out
}

// stubPasswords feeds pws to successive password prompts and io.EOF after.
func stubPasswords(t *testing.T, pws ...string) {
	t.Helper()
	orig := getPassword
	t.Cleanup(func() { getPassword = orig })
	getPassword = func(io.Writer, string) ([]byte, error) {
		if len(pws) == 0 {
			return nil, io.EOF
		}
		p := pws[0]
		pws = pws[1:]
		return []byte(p), nil
	}
}

func silencePrintln(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		parts := make([]string, len(a))
		for i, v := range a {
			parts[i] = strings.TrimSpace(toString(v))
		}
		lines = append(lines, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
