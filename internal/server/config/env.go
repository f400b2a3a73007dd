package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment variable the server reads.
const EnvPrefix = "AUDITKEEPER_"

// dotenvFiles are loaded before the environment is read. Missing files are
// ignored; variables already set in the process win over file values.
var dotenvFiles = []string{".env"}

// parseEnv overlays Config with AUDITKEEPER_* variables.
//
//	AUDITKEEPER_HTTP_ADDR, AUDITKEEPER_HEALTH_ADDR, AUDITKEEPER_DATABASE_DSN,
//	AUDITKEEPER_SECRET_KEY, AUDITKEEPER_ACCESS_TOKEN_VALIDITY (e.g. "30m"),
//	AUDITKEEPER_S3_ROOT_USER, AUDITKEEPER_S3_ROOT_PASSWORD, AUDITKEEPER_S3_BUCKET,
//	AUDITKEEPER_S3_REGION, AUDITKEEPER_S3_BASE_ENDPOINT,
//	AUDITKEEPER_PRESIGN_EXPIRY (e.g. "15m")
//
// Unparsable durations panic, like malformed JSON config files.
func parseEnv(cfg *Config) {
	for _, f := range dotenvFiles {
		_ = godotenv.Load(f)
	}

	envString(&cfg.HTTPAddr, "HTTP_ADDR")
	envString(&cfg.HealthAddr, "HEALTH_ADDR")
	envString(&cfg.DatabaseDSN, "DATABASE_DSN")
	envString(&cfg.SecretKey, "SECRET_KEY")
	envDuration(&cfg.AccessTokenValidityDuration, "ACCESS_TOKEN_VALIDITY")
	envString(&cfg.S3RootUser, "S3_ROOT_USER")
	envString(&cfg.S3RootPassword, "S3_ROOT_PASSWORD")
	envString(&cfg.S3Bucket, "S3_BUCKET")
	envString(&cfg.S3Region, "S3_REGION")
	envString(&cfg.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	envDuration(&cfg.PresignExpiry, "PRESIGN_EXPIRY")
}

func envString(dst *string, name string) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok {
		*dst = v
	}
}

func envDuration(dst *time.Duration, name string) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		panic(err)
	}
	*dst = time.Duration(n)
}
