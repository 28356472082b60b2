package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/havengate/internal/flagx"
	"github.com/dmitrijs2005/havengate/internal/timex"
	"gopkg.in/yaml.v3"
)

type argon2File struct {
	MemoryKiB   uint32 `json:"memory_kib" yaml:"memory_kib"`
	Iterations  uint32 `json:"iterations" yaml:"iterations"`
	Parallelism uint8  `json:"parallelism" yaml:"parallelism"`
	SaltLen     uint32 `json:"salt_len" yaml:"salt_len"`
	KeyLen      uint32 `json:"key_len" yaml:"key_len"`
}

// FileConfig is the DTO for config files. Zero values leave the current
// setting untouched.
type FileConfig struct {
	DataDir         string   `json:"data_dir" yaml:"data_dir"`
	DatabasePath    string   `json:"database_path" yaml:"database_path"`
	LegacyUserFiles []string `json:"legacy_user_files" yaml:"legacy_user_files"`
	ResultsDir      string   `json:"results_dir" yaml:"results_dir"`
	LogLevel        string   `json:"log_level" yaml:"log_level"`

	RegistryURL            string         `json:"owner_registry_url" yaml:"owner_registry_url"`
	OwnerToken             string         `json:"owner_token" yaml:"owner_token"`
	OwnerTokenSecret       string         `json:"owner_token_secret" yaml:"owner_token_secret"`
	RegistryStatusTimeout  timex.Duration `json:"registry_status_timeout" yaml:"registry_status_timeout"`
	RegistryClaimTimeout   timex.Duration `json:"registry_claim_timeout" yaml:"registry_claim_timeout"`
	RegistryReleaseTimeout timex.Duration `json:"registry_release_timeout" yaml:"registry_release_timeout"`

	Argon2 argon2File `json:"argon2" yaml:"argon2"`

	AuditS3Bucket       string `json:"audit_s3_bucket" yaml:"audit_s3_bucket"`
	AuditS3Region       string `json:"audit_s3_region" yaml:"audit_s3_region"`
	AuditS3Endpoint     string `json:"audit_s3_endpoint" yaml:"audit_s3_endpoint"`
	AuditS3AccessKey    string `json:"audit_s3_access_key" yaml:"audit_s3_access_key"`
	AuditS3SecretKey    string `json:"audit_s3_secret_key" yaml:"audit_s3_secret_key"`
	AuditS3UsePathStyle bool   `json:"audit_s3_use_path_style" yaml:"audit_s3_use_path_style"`
}

func decodeFile(path string, data []byte) (*FileConfig, error) {
	var fc FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse json config %s: %w", path, err)
		}
	}
	return &fc, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration > 0 {
		*dst = v.Duration
	}
}

func (fc *FileConfig) apply(cfg *Config) {
	setString(&cfg.DataDir, fc.DataDir)
	setString(&cfg.DatabasePath, fc.DatabasePath)
	if len(fc.LegacyUserFiles) > 0 {
		cfg.LegacyUserFiles = append([]string(nil), fc.LegacyUserFiles...)
	}
	setString(&cfg.ResultsDir, fc.ResultsDir)
	setString(&cfg.LogLevel, fc.LogLevel)

	setString(&cfg.RegistryURL, fc.RegistryURL)
	setString(&cfg.OwnerToken, fc.OwnerToken)
	setString(&cfg.OwnerTokenSecret, fc.OwnerTokenSecret)
	setDuration(&cfg.RegistryStatusTimeout, fc.RegistryStatusTimeout)
	setDuration(&cfg.RegistryClaimTimeout, fc.RegistryClaimTimeout)
	setDuration(&cfg.RegistryReleaseTimeout, fc.RegistryReleaseTimeout)

	if fc.Argon2.MemoryKiB > 0 {
		cfg.Argon2.Memory = fc.Argon2.MemoryKiB
	}
	if fc.Argon2.Iterations > 0 {
		cfg.Argon2.Iterations = fc.Argon2.Iterations
	}
	if fc.Argon2.Parallelism > 0 {
		cfg.Argon2.Parallelism = fc.Argon2.Parallelism
	}
	if fc.Argon2.SaltLen > 0 {
		cfg.Argon2.SaltLen = fc.Argon2.SaltLen
	}
	if fc.Argon2.KeyLen > 0 {
		cfg.Argon2.KeyLen = fc.Argon2.KeyLen
	}

	setString(&cfg.AuditS3Bucket, fc.AuditS3Bucket)
	setString(&cfg.AuditS3Region, fc.AuditS3Region)
	setString(&cfg.AuditS3Endpoint, fc.AuditS3Endpoint)
	setString(&cfg.AuditS3AccessKey, fc.AuditS3AccessKey)
	setString(&cfg.AuditS3SecretKey, fc.AuditS3SecretKey)
	if fc.AuditS3UsePathStyle {
		cfg.AuditS3UsePathStyle = true
	}
}

// parseFile overlays cfg with the file named by -c/-config, if any.
func parseFile(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	fc, err := decodeFile(path, data)
	if err != nil {
		return err
	}
	fc.apply(cfg)
	return nil
}
