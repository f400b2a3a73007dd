// Package config loads runtime configuration for the auditkeeper client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the persistence API
//	-g string   host:port of the gRPC health endpoint
//	-p string   probe mode: grpc or http
//	-i int      online status check interval (seconds)
//	-q int      reconcile quiet period (seconds)
//	-t int      remote request timeout (seconds)
//	-d string   local database file
//	-x string   assistant endpoint URL
//	-due int    due date offset for derived actions (days)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "3s" or integer nanoseconds. Absent keys keep earlier values:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "health_addr": "127.0.0.1:50051",
//	  "probe_mode": "grpc",
//	  "online_check_interval": "3s",
//	  "reconcile_quiet_period": "2s",
//	  "request_timeout": "12s",
//	  "database_path": "auditkeeper.db",
//	  "assistant_url": "",
//	  "action_due_days": 7
//	}
package config
