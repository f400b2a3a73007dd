package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"

	"github.com/dmitrijs2005/auditkeeper/internal/client/assistant"
	"github.com/dmitrijs2005/auditkeeper/internal/client/client"
	"github.com/dmitrijs2005/auditkeeper/internal/client/config"
	"github.com/dmitrijs2005/auditkeeper/internal/client/connectivity"
	"github.com/dmitrijs2005/auditkeeper/internal/client/identity"
	"github.com/dmitrijs2005/auditkeeper/internal/client/orchestrator"
	"github.com/dmitrijs2005/auditkeeper/internal/client/photos"
	"github.com/dmitrijs2005/auditkeeper/internal/client/services"
	"github.com/dmitrijs2005/auditkeeper/internal/logging"
)

var errNotLoggedIn = errors.New("please login first")

type photoLinker interface {
	PresignPhotoDownload(ctx context.Context, key string) (*client.PresignedURL, error)
}

type App struct {
	config      *config.Config
	authService services.AuthService
	engine      *orchestrator.Orchestrator
	monitor     *connectivity.Monitor
	advisor     *assistant.Advisor
	photoLinks  photoLinker
	log         logging.Logger
	reader      *bufio.Reader
	out         io.Writer
	userName    string
	closers     []func() error

	// status mirrors the orchestrator status for the prompt.
	status atomic.Value
}

// NewApp opens the local database and wires the remote client, the sync
// orchestrator, the connectivity monitor and the assistant. The
// orchestrator starts offline; the monitor's first probe decides.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}
	a := &App{
		config: c,
		log:    log,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
	a.closers = append(a.closers, db.Close)

	if err := a.wire(db); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(db *sql.DB) error {
	c := a.config
	session := identity.NewSession()
	api := client.NewHTTPClient(c.ServerURL, session, client.WithTimeout(c.RequestTimeout))
	repos := client.NewRepositories(db)

	a.photoLinks = api
	offloader := photos.NewOffloader(api, &http.Client{Timeout: c.RequestTimeout}, a.log)
	a.engine = orchestrator.New(api, repos.Cache, session, a.log,
		orchestrator.WithDueDays(c.ActionDueDays),
		orchestrator.WithPhotoOffloader(offloader),
		orchestrator.WithMetadata(repos.Metadata),
		orchestrator.WithOnline(false),
	)
	a.authService = services.NewAuthService(api, db, session, a.log)

	var prober connectivity.Prober
	switch c.ProbeMode {
	case config.ProbeHTTP:
		prober = connectivity.NewHTTPProber(api)
	default:
		conn, err := connectivity.DialHealth(c.HealthAddr)
		if err != nil {
			return fmt.Errorf("health connection: %w", err)
		}
		a.closers = append(a.closers, conn.Close)
		prober = connectivity.NewGRPCHealthProber(conn, "")
	}
	a.monitor = connectivity.NewMonitor(prober, a.engine, a.log,
		connectivity.WithInterval(c.OnlineCheckInterval),
		connectivity.WithQuietPeriod(c.ReconcileQuietPeriod),
	)

	var gen assistant.Generator
	if c.AssistantURL != "" {
		gen = assistant.NewHTTPGenerator(c.AssistantURL, session, nil)
	}
	a.advisor = assistant.NewAdvisor(gen, a.log)
	return nil
}

// Run starts the connectivity monitor and blocks in the REPL until the
// user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.followStatus()()
	go a.monitor.Run(ctx)

	fmt.Fprintln(a.out, "Welcome to auditkeeper (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)

	a.engine.Wait()
}

// Close releases the database and network connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) isLoggedIn() bool {
	return a.userName != ""
}
