package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/havengate/internal/client/models"
	"github.com/dmitrijs2005/havengate/internal/common"
	"github.com/dmitrijs2005/havengate/internal/dbx"
	"github.com/spf13/afero"
)

type legacyUser struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	Role         string `json:"role"`
	CreatedAt    string `json:"created_at"`
	Created      string `json:"created"`
}

var legacyTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

func parseLegacyTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range legacyTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// decodeLegacyUsers accepts {"users":[...]} and {"<name>":{...}} documents.
func decodeLegacyUsers(data []byte) ([]legacyUser, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	if raw, ok := doc["users"]; ok {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err == nil {
			out := make([]legacyUser, 0, len(list))
			for _, item := range list {
				var u legacyUser
				if json.Unmarshal(item, &u) != nil {
					continue
				}
				out = append(out, u)
			}
			return out, nil
		}
	}

	out := make([]legacyUser, 0, len(doc))
	for name, raw := range doc {
		var u legacyUser
		if json.Unmarshal(raw, &u) != nil {
			continue
		}
		u.Username = name
		out = append(out, u)
	}
	return out, nil
}

func (s *CredentialStore) loadLegacyUsers(ctx context.Context) []legacyUser {
	var all []legacyUser
	for _, path := range s.legacyPaths {
		data, err := afero.ReadFile(s.legacyFS, path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				s.log.Warn(ctx, "legacy user store unreadable", "path", path, "error", err)
			}
			continue
		}
		list, err := decodeLegacyUsers(data)
		if err != nil {
			s.log.Warn(ctx, "legacy user store is not valid JSON", "path", path, "error", err)
			continue
		}
		all = append(all, list...)
	}
	return all
}

// MigrateLegacy imports accounts from the flat-file user stores once. It is
// a no-op after the first successful run and returns the number of imported
// accounts. Legacy owners are imported only while no owner exists; their
// machine is bound on first login.
func (s *CredentialStore) MigrateLegacy(ctx context.Context) (int, error) {
	var imported int
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		meta := s.metaRepo(tx)
		done, ok, err := meta.Get(ctx, common.MetaLegacyMigrated)
		if err != nil {
			return err
		}
		if ok && done == "1" {
			return nil
		}

		repo := s.usersRepo(tx)
		for _, lu := range s.loadLegacyUsers(ctx) {
			name := strings.TrimSpace(lu.Username)
			hash := strings.TrimSpace(lu.PasswordHash)
			if name == "" || hash == "" {
				continue
			}

			taken, err := repo.UsernameExists(ctx, name)
			if err != nil {
				return err
			}
			if taken {
				continue
			}

			role, ok := models.ParseRole(lu.Role)
			if !ok {
				role = models.RoleUser
			}
			if role == models.RoleOwner {
				exists, err := repo.OwnerExists(ctx)
				if err != nil {
					return err
				}
				if exists {
					s.log.Warn(ctx, "legacy owner skipped, owner already present", "username", name)
					continue
				}
			}

			created := lu.CreatedAt
			if created == "" {
				created = lu.Created
			}
			createdAt, ok := parseLegacyTime(created)
			if !ok {
				createdAt = s.now()
			}

			u := &models.User{Username: name, PasswordHash: hash, Role: role, CreatedAt: createdAt}
			if _, err := repo.Create(ctx, u); err != nil {
				return fmt.Errorf("import %q: %w", name, err)
			}
			imported++
		}

		return meta.Set(ctx, common.MetaLegacyMigrated, "1")
	})
	if err != nil {
		return 0, storageErr("legacy migration", err)
	}
	if imported > 0 {
		s.log.Info(ctx, "legacy accounts imported", "count", imported)
	}
	return imported, nil
}
