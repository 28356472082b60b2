package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/havengate/internal/common"
	"github.com/spf13/afero"
)

// ResultsWriter persists module output as JSON lines, stamped with the owner
// and the current user. Collaborators own the content; this type owns only
// where it goes.
type ResultsWriter struct {
	fs      afero.Fs
	dir     string
	store   *CredentialStore
	session *SessionManager
	now     func() time.Time
}

func NewResultsWriter(fs afero.Fs, dir string, store *CredentialStore, session *SessionManager) *ResultsWriter {
	return &ResultsWriter{
		fs:      fs,
		dir:     dir,
		store:   store,
		session: session,
		now:     time.Now,
	}
}

type resultOwner struct {
	Username *string `json:"username"`
	ID       *int64  `json:"id"`
}

type resultUser struct {
	Username *string `json:"username"`
	Role     *string `json:"role"`
}

// ResultRecord is one line of a results file.
type ResultRecord struct {
	Timestamp string      `json:"timestamp"`
	Module    string      `json:"module"`
	Status    string      `json:"status"`
	Result    string      `json:"result"`
	Owner     resultOwner `json:"owner"`
	User      resultUser  `json:"user"`
}

// SanitizeModuleName keeps [A-Za-z0-9_-] and maps everything else to '_'.
func SanitizeModuleName(module string) string {
	module = strings.TrimSpace(module)
	if module == "" {
		return "module"
	}
	var b strings.Builder
	for _, r := range module {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// ModulePath is the default results file of a module.
func (w *ResultsWriter) ModulePath(module string) string {
	return filepath.Join(w.dir, SanitizeModuleName(module)+".jsonl")
}

// SelectFile makes path the results file for every later Append. The file
// is created if missing.
func (w *ResultsWriter) SelectFile(ctx context.Context, path string) (string, error) {
	path = filepath.Clean(strings.TrimSpace(path))
	if err := w.fs.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}
	f, err := w.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return "", fmt.Errorf("open results file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close results file: %w", err)
	}
	if err := w.store.SetMeta(ctx, common.MetaResultsFilePath, path); err != nil {
		return "", err
	}
	return path, nil
}

// Path returns the file Append writes module output to.
func (w *ResultsWriter) Path(ctx context.Context, module string) (string, error) {
	selected, ok, err := w.store.Meta(ctx, common.MetaResultsFilePath)
	if err != nil {
		return "", err
	}
	if ok && selected != "" {
		return selected, nil
	}
	return w.ModulePath(module), nil
}

// Append writes one record and returns the file it went to.
func (w *ResultsWriter) Append(ctx context.Context, module, status, result string) (string, error) {
	path, err := w.Path(ctx, module)
	if err != nil {
		return "", err
	}

	rec := ResultRecord{
		Timestamp: w.now().UTC().Format("2006-01-02T15:04:05Z"),
		Module:    module,
		Status:    status,
		Result:    result,
	}

	owner, err := w.store.GetOwnerRecord(ctx)
	if err != nil {
		return "", err
	}
	if owner != nil {
		rec.Owner = resultOwner{Username: &owner.Username, ID: &owner.ID}
	}
	if u := w.session.Get(); u != nil {
		role := string(u.Role)
		rec.User = resultUser{Username: &u.Username, Role: &role}
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}

	if err := w.fs.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}
	f, err := w.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return "", fmt.Errorf("open results file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}
	return path, nil
}
