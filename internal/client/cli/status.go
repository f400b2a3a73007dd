package cli

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/dmitrijs2005/auditkeeper/internal/client/orchestrator"
	"github.com/dmitrijs2005/auditkeeper/internal/common"
)

// Sync reconciles with the server right away instead of waiting for the
// connectivity monitor.
func (a *App) Sync(ctx context.Context, _ []string) error {
	if !a.engine.Online() {
		return fmt.Errorf("server unreachable, changes stay local until it is back")
	}
	a.engine.Reconcile(ctx)
	st := a.engine.Stats()
	fmt.Fprintf(a.out, "Sync %s\n", colorStatus(a.engine.Status(), true))
	if st.LastError != "" {
		fmt.Fprintf(a.out, "Last error: %s\n", st.LastError)
	}
	return nil
}

// Status prints connectivity, per-collection states and sync counters.
func (a *App) Status(ctx context.Context, _ []string) error {
	st := a.engine.Stats()
	fmt.Fprintf(a.out, "Status: %s\n", colorStatus(a.engine.Status(), a.engine.Online()))

	tw := table.NewWriter()
	tw.SetOutputMirror(a.out)
	tw.AppendHeader(table.Row{"Collection", "State"})
	for _, c := range common.Collections {
		tw.AppendRow(table.Row{c, a.engine.State(c)})
	}
	tw.Render()

	lastSync := "never"
	if !st.LastSyncAt.IsZero() {
		lastSync = st.LastSyncAt.Local().Format("2006-01-02 15:04:05")
	}
	cw := table.NewWriter()
	cw.SetOutputMirror(a.out)
	cw.AppendRows([]table.Row{
		{"Last sync", lastSync},
		{"Reconciliations", st.Reconciles},
		{"Pushes", st.Pushes},
		{"Push failures", st.PushFailures},
		{"Deferred while offline", st.DeferredMutations},
		{"Reconcile item failures", st.ReconcileItemFailures},
		{"Cache failures", st.CacheFailures},
		{"Last error", st.LastError},
	})
	cw.Render()
	return nil
}

// followStatus keeps the prompt's status word current from the
// orchestrator's change notifications. The returned function stops it.
func (a *App) followStatus() func() {
	stop := a.engine.Subscribe(func(s orchestrator.Status) {
		a.status.Store(s)
	})
	a.status.Store(a.engine.Status())
	return stop
}

func (a *App) currentStatus() orchestrator.Status {
	if s, ok := a.status.Load().(orchestrator.Status); ok {
		return s
	}
	return a.engine.Status()
}
