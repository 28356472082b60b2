// Command registry runs the reference owner registry: one global owner
// slot served over HTTP+JSON.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/havengate/internal/buildinfo"
	"github.com/dmitrijs2005/havengate/internal/logging"
	"github.com/dmitrijs2005/havengate/internal/server"
	"github.com/dmitrijs2005/havengate/internal/server/config"
	"github.com/urfave/cli/v2"
)

var flags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "path to a JSON config file",
		EnvVars: []string{"HAVENGATE_REGISTRY_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "listen-addr",
		Usage:   "address to listen on",
		EnvVars: []string{"HAVENGATE_REGISTRY_LISTEN_ADDR"},
	},
	&cli.StringFlag{
		Name:    "database-dsn",
		Usage:   "Postgres DSN for the claims store; empty keeps claims in memory",
		EnvVars: []string{"HAVENGATE_REGISTRY_DATABASE_DSN"},
	},
	&cli.StringFlag{
		Name:    "token-secret",
		Usage:   "HMAC secret for issued owner tokens",
		EnvVars: []string{"HAVENGATE_REGISTRY_TOKEN_SECRET"},
	},
	&cli.DurationFlag{
		Name:    "token-ttl",
		Usage:   "lifetime of issued owner tokens",
		EnvVars: []string{"HAVENGATE_REGISTRY_TOKEN_TTL"},
	},
	&cli.StringFlag{
		Name:    "log-level",
		Usage:   "debug, info, warn or error",
		EnvVars: []string{"HAVENGATE_REGISTRY_LOG_LEVEL"},
	},
	&cli.BoolFlag{
		Name:    "log-json",
		Usage:   "log in JSON format",
		EnvVars: []string{"HAVENGATE_REGISTRY_LOG_JSON"},
	},
}

// overrides collects only the flags that were explicitly set, so JSON
// config values survive unset flags.
func overrides(cCtx *cli.Context) config.Overrides {
	var o config.Overrides
	if cCtx.IsSet("listen-addr") {
		v := cCtx.String("listen-addr")
		o.ListenAddr = &v
	}
	if cCtx.IsSet("database-dsn") {
		v := cCtx.String("database-dsn")
		o.DatabaseDSN = &v
	}
	if cCtx.IsSet("token-secret") {
		v := cCtx.String("token-secret")
		o.TokenSecret = &v
	}
	if cCtx.IsSet("token-ttl") {
		v := cCtx.Duration("token-ttl")
		o.TokenTTL = &v
	}
	if cCtx.IsSet("log-level") {
		v := cCtx.String("log-level")
		o.LogLevel = &v
	}
	if cCtx.IsSet("log-json") {
		v := cCtx.Bool("log-json")
		o.LogJSON = &v
	}
	return o
}

func run(cCtx *cli.Context) error {
	cfg, err := config.Load(cCtx.String("config"), overrides(cCtx))
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON, Writer: os.Stdout})
	if err != nil {
		return err
	}
	logger.Info(cCtx.Context, "owner registry", "version", buildinfo.Version())

	app, err := server.NewApp(cCtx.Context, cfg, logger)
	if err != nil {
		return err
	}
	return app.Run(cCtx.Context)
}

func main() {
	app := &cli.App{
		Name:    "registry",
		Usage:   "Serve the global owner registry",
		Version: buildinfo.Version(),
		Flags:   flags,
		Action:  run,
	}
	if err := app.RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
