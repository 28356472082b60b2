package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/havengate/internal/buildinfo"
	"github.com/dmitrijs2005/havengate/internal/client/cli"
	"github.com/dmitrijs2005/havengate/internal/client/config"
	"github.com/dmitrijs2005/havengate/internal/common"
	"github.com/dmitrijs2005/havengate/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		fmt.Fprintf(os.Stderr, "create data dir: %v\n", err)
		return 1
	}
	logFile, err := os.OpenFile(cfg.LogFile(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
		return 1
	}
	defer logFile.Close()

	log, err := logging.New(logging.Options{Level: cfg.LogLevel, Writer: logFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	app, err := cli.NewApp(ctx, cfg, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, common.Message(err))
		return 1
	}
	defer app.Close()

	if _, err := app.RequireLogin(ctx); err != nil {
		log.Warn(ctx, "login gate closed", "error", err)
		return 1
	}
	if err := app.Run(ctx); err != nil {
		log.Error(ctx, "session ended with error", "error", err)
		fmt.Fprintln(os.Stderr, common.Message(err))
		return 1
	}
	return 0
}
