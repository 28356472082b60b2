package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/havengate/internal/cryptox"
)

const (
	defaultDataDirName = ".blackhaven"
	databaseFileName   = "blackhaven.db"
	logFileName        = "havengate.log"
)

type Config struct {
	DataDir         string
	DatabasePath    string
	LegacyUserFiles []string
	ResultsDir      string
	LogLevel        string

	RegistryURL            string
	OwnerToken             string
	OwnerTokenSecret       string
	RegistryStatusTimeout  time.Duration
	RegistryClaimTimeout   time.Duration
	RegistryReleaseTimeout time.Duration

	Argon2 cryptox.Argon2Params

	AuditS3Bucket       string
	AuditS3Region       string
	AuditS3Endpoint     string
	AuditS3AccessKey    string
	AuditS3SecretKey    string
	AuditS3UsePathStyle bool
}

// userHomeDir is a seam for tests.
var userHomeDir = os.UserHomeDir

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	home, err := userHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	c.DataDir = filepath.Join(home, defaultDataDirName)
	c.LogLevel = "info"

	c.RegistryStatusTimeout = 8 * time.Second
	c.RegistryClaimTimeout = 10 * time.Second
	c.RegistryReleaseTimeout = 5 * time.Second

	c.Argon2 = cryptox.DefaultArgon2Params()
	c.AuditS3Region = "us-east-1"
}

// finalize derives the paths that were not set explicitly.
func (c *Config) finalize() {
	c.DataDir = expandHome(c.DataDir)
	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(c.DataDir, databaseFileName)
	}
	if len(c.LegacyUserFiles) == 0 {
		c.LegacyUserFiles = []string{
			filepath.Join(c.DataDir, "data", "users.json"),
			filepath.Join(c.DataDir, "security", "users.json"),
		}
	}
	if c.ResultsDir == "" {
		c.ResultsDir = filepath.Join(c.DataDir, "results")
	}
	c.DatabasePath = expandHome(c.DatabasePath)
	c.ResultsDir = expandHome(c.ResultsDir)
	c.RegistryURL = strings.TrimRight(strings.TrimSpace(c.RegistryURL), "/")
}

// LogFile is where the CLI writes its log.
func (c *Config) LogFile() string {
	return filepath.Join(c.DataDir, logFileName)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := userHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Load builds a Config from defaults, the config file, the environment and
// flags, in that order.
func Load(args []string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	parseEnv(cfg, getenv)
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	cfg.finalize()
	return cfg, nil
}

// LoadConfig loads the configuration of the running process.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:], os.Getenv)
}
