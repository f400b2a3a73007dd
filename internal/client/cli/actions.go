package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/auditkeeper/internal/client/models"
	"github.com/dmitrijs2005/auditkeeper/internal/client/orchestrator"
)

// ListActions prints all actions, or only those of one audit.
func (a *App) ListActions(ctx context.Context, args []string) error {
	if len(args) > 0 {
		renderActions(a.out, a.engine.ActionsForAudit(args[0]))
		return nil
	}
	renderActions(a.out, a.engine.Actions())
	return nil
}

// NewAction prompts for a manual corrective action, optionally linked to
// an audit.
func (a *App) NewAction(ctx context.Context, args []string) error {
	var rec models.Action
	if len(args) > 0 {
		audit, ok := a.engine.Audit(args[0])
		if !ok {
			return fmt.Errorf("%w: audit %s", orchestrator.ErrNotFound, args[0])
		}
		rec.AuditID = models.Ptr(audit.ID)
		rec.Location = audit.Location
	}

	var err error
	if rec.Title, err = getSimpleText(a.reader, "Title", a.out); err != nil {
		return err
	}
	if rec.Description, err = getSimpleText(a.reader, "Description", a.out); err != nil {
		return err
	}
	priority, err := getSimpleText(a.reader, "Priority (low, medium, high; empty for medium)", a.out)
	if err != nil {
		return err
	}
	if priority != "" {
		rec.Priority = models.Priority(strings.ToLower(priority))
	}
	assignee, err := getSimpleText(a.reader, "Assignee (optional)", a.out)
	if err != nil {
		return err
	}
	if assignee != "" {
		rec.Assignee = models.Ptr(assignee)
	}
	due, err := getSimpleText(a.reader, "Due date YYYY-MM-DD (optional)", a.out)
	if err != nil {
		return err
	}
	if due != "" {
		d, err := time.Parse(time.DateOnly, due)
		if err != nil {
			return fmt.Errorf("due date %q: %w", due, err)
		}
		rec.DueDate = &d
	}

	created, err := a.engine.CreateAction(ctx, rec)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created action %s\n", created.ID)
	return nil
}

func (a *App) ActionStatus(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError("actionstatus <actionID> <open|in_progress|completed>")
	}
	updated, err := a.engine.SetActionStatus(ctx, args[0], models.ActionStatus(strings.ToLower(args[1])))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Action %s is %s\n", updated.ID, updated.Status)
	return nil
}
