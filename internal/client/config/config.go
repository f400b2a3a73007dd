package config

import (
	"fmt"
	"time"
)

// Probe modes select how the connectivity monitor checks the server.
const (
	ProbeGRPC = "grpc"
	ProbeHTTP = "http"
)

// Config holds runtime settings for the auditkeeper client.
//
// Fields:
//   - ServerURL: base URL of the persistence API.
//   - HealthAddr: host:port of the server's gRPC health endpoint.
//   - ProbeMode: "grpc" (health service) or "http" (GET /health).
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - ReconcileQuietPeriod: how long the link must stay up before a
//     reconciliation runs.
//   - RequestTimeout: bound on every remote call.
//   - DatabasePath: SQLite file holding the local cache.
//   - AssistantURL: generative-text endpoint; empty disables it.
//   - ActionDueDays: due date offset for actions derived from failures.
type Config struct {
	ServerURL            string
	HealthAddr           string
	ProbeMode            string
	OnlineCheckInterval  time.Duration
	ReconcileQuietPeriod time.Duration
	RequestTimeout       time.Duration
	DatabasePath         string
	AssistantURL         string
	ActionDueDays        int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.HealthAddr = "127.0.0.1:50051"
	c.ProbeMode = ProbeGRPC
	c.OnlineCheckInterval = 3 * time.Second
	c.ReconcileQuietPeriod = 2 * time.Second
	c.RequestTimeout = 12 * time.Second
	c.DatabasePath = "auditkeeper.db"
	c.AssistantURL = ""
	c.ActionDueDays = 7
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server url is required")
	}
	if c.ProbeMode != ProbeGRPC && c.ProbeMode != ProbeHTTP {
		return fmt.Errorf("unknown probe mode %q", c.ProbeMode)
	}
	if c.ProbeMode == ProbeGRPC && c.HealthAddr == "" {
		return fmt.Errorf("health address is required for grpc probing")
	}
	if c.OnlineCheckInterval <= 0 || c.RequestTimeout <= 0 {
		return fmt.Errorf("intervals must be positive")
	}
	if c.ReconcileQuietPeriod < 0 {
		return fmt.Errorf("quiet period must not be negative")
	}
	if c.ActionDueDays <= 0 {
		return fmt.Errorf("action due days must be positive")
	}
	return nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
