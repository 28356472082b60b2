// Package logging is the structured logger shared by the shell and the
// registry server. Every call takes the request or operation context.
package logging

import "context"

// Logger takes alternating key/value args:
//
//	log.Info(ctx, "owner claimed", "install_id", id, "username", name)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger carrying args on every record.
	With(args ...any) Logger
}
