package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/havengate/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-d string   data directory
//	-r string   owner registry URL
//	-l string   log level
//
// Other arguments are filtered out with flagx.FilterArgs.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-d", "-r", "-l"})

	fs := flag.NewFlagSet("havengate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.RegistryURL, "r", cfg.RegistryURL, "owner registry URL")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
