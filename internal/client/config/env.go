package config

import "strings"

// lookupEnv returns the first non-empty value among keys, trimmed.
func lookupEnv(getenv func(string) string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func parseEnv(cfg *Config, getenv func(string) string) {
	if getenv == nil {
		return
	}
	setString(&cfg.DataDir, lookupEnv(getenv, "BH_DATA_DIR", "BLACKHAVEN_DATA_DIR"))
	setString(&cfg.LogLevel, lookupEnv(getenv, "BH_LOG_LEVEL", "BLACKHAVEN_LOG_LEVEL"))
	setString(&cfg.RegistryURL, lookupEnv(getenv, "BH_OWNER_REGISTRY_URL", "BLACKHAVEN_OWNER_REGISTRY_URL"))
	setString(&cfg.OwnerToken, lookupEnv(getenv, "BH_OWNER_TOKEN", "BLACKHAVEN_OWNER_TOKEN"))
	setString(&cfg.OwnerTokenSecret, lookupEnv(getenv, "BH_OWNER_TOKEN_SECRET", "BLACKHAVEN_OWNER_TOKEN_SECRET"))

	setString(&cfg.AuditS3Bucket, lookupEnv(getenv, "BH_AUDIT_S3_BUCKET"))
	setString(&cfg.AuditS3Region, lookupEnv(getenv, "BH_AUDIT_S3_REGION"))
	setString(&cfg.AuditS3Endpoint, lookupEnv(getenv, "BH_AUDIT_S3_ENDPOINT"))
	setString(&cfg.AuditS3AccessKey, lookupEnv(getenv, "BH_AUDIT_S3_ACCESS_KEY"))
	setString(&cfg.AuditS3SecretKey, lookupEnv(getenv, "BH_AUDIT_S3_SECRET_KEY"))
}
