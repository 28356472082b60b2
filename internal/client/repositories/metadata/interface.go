package metadata

import (
	"context"
)

// Repository is a string key/value store for install-level settings
// such as the install id and the stored owner token.
type Repository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string]string, error)
}
