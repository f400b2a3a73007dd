package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/auditkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-p", "-i", "-q", "-t", "-d", "-x", "-due"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the persistence API")
	fs.StringVar(&cfg.HealthAddr, "g", cfg.HealthAddr, "address and port of the gRPC health endpoint")
	fs.StringVar(&cfg.ProbeMode, "p", cfg.ProbeMode, "probe mode (grpc or http)")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	quietPeriod := fs.Int("q", int(cfg.ReconcileQuietPeriod.Seconds()), "reconcile quiet period (in seconds)")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "remote request timeout (in seconds)")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database file")
	fs.StringVar(&cfg.AssistantURL, "x", cfg.AssistantURL, "assistant endpoint URL")
	fs.IntVar(&cfg.ActionDueDays, "due", cfg.ActionDueDays, "due date offset for derived actions (in days)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	cfg.ReconcileQuietPeriod = time.Duration(*quietPeriod) * time.Second
	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
}
