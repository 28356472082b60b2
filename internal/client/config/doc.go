// Package config loads runtime configuration for the havengate CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file selected with -c or -config. Files ending in
//     .yaml or .yml are read as YAML, anything else as JSON.
//  3. Environment variables. BH_* names win over their BLACKHAVEN_* fallbacks.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-d string   data directory
//	-r string   owner registry URL
//	-l string   log level (debug, info, warn, error)
//
// Environment
//
//	BH_DATA_DIR               BLACKHAVEN_DATA_DIR
//	BH_LOG_LEVEL              BLACKHAVEN_LOG_LEVEL
//	BH_OWNER_REGISTRY_URL     BLACKHAVEN_OWNER_REGISTRY_URL
//	BH_OWNER_TOKEN            BLACKHAVEN_OWNER_TOKEN
//	BH_OWNER_TOKEN_SECRET     BLACKHAVEN_OWNER_TOKEN_SECRET
//	BH_AUDIT_S3_BUCKET, BH_AUDIT_S3_REGION, BH_AUDIT_S3_ENDPOINT,
//	BH_AUDIT_S3_ACCESS_KEY, BH_AUDIT_S3_SECRET_KEY
//
// # File schema
//
// Durations use timex.Duration, so they may be strings like "8s" or integer
// nanoseconds:
//
//	{
//	  "data_dir": "/srv/havengate",
//	  "owner_registry_url": "https://registry.example",
//	  "registry_claim_timeout": "10s",
//	  "argon2": {"memory_kib": 65536, "iterations": 3, "parallelism": 4}
//	}
//
// Paths left empty (database, legacy user stores, results directory) are
// derived from the data directory once all sources are applied.
package config
