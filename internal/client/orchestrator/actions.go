package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/auditkeeper/internal/client/models"
	"github.com/dmitrijs2005/auditkeeper/internal/common"
)

// CreateAction adds a manual action. Status defaults to open and priority
// to medium.
func (o *Orchestrator) CreateAction(ctx context.Context, a models.Action) (models.Action, error) {
	if a.ID == "" {
		a.ID = o.newID()
	}
	if a.Status == "" {
		a.Status = models.ActionOpen
	}
	if a.Priority == "" {
		a.Priority = models.PriorityMedium
	}
	if err := validateAction(a); err != nil {
		return models.Action{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if indexOf(o.actions, a.ID) >= 0 {
		return models.Action{}, fmt.Errorf("%w: action %s", ErrAlreadyExists, a.ID)
	}
	now := o.now()
	a.CreatedAt, a.UpdatedAt = now, now
	rec := a.Clone()

	o.actions = append(o.actions, rec)
	o.touchLocked(common.CollectionActions, rec.ID, false)
	o.persistLocked(ctx, common.CollectionActions)

	pushed := rec.Clone()
	o.pushLocked(ctx, common.CollectionActions, rec.ID, "create", func(ctx context.Context) error {
		return o.remoteActions.Create(ctx, pushed)
	})
	return rec.Clone(), nil
}

// UpdateAction applies fn to a copy of the action. The id and creation
// time are kept and the status may only move forward.
func (o *Orchestrator) UpdateAction(ctx context.Context, id string, fn func(*models.Action)) (models.Action, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	i := indexOf(o.actions, id)
	if i < 0 {
		return models.Action{}, fmt.Errorf("%w: action %s", ErrNotFound, id)
	}
	old := o.actions[i]

	rec := old.Clone()
	fn(&rec)
	rec.ID, rec.CreatedAt = old.ID, old.CreatedAt
	if !old.Status.CanTransition(rec.Status) {
		return models.Action{}, fmt.Errorf("%w: action %s -> %s", ErrInvalidTransition, old.Status, rec.Status)
	}
	if err := validateAction(rec); err != nil {
		return models.Action{}, err
	}
	rec.UpdatedAt = o.now()

	o.actions[i] = rec
	o.touchLocked(common.CollectionActions, id, false)
	o.persistLocked(ctx, common.CollectionActions)

	pushed := rec.Clone()
	o.pushLocked(ctx, common.CollectionActions, id, "update", func(ctx context.Context) error {
		return o.remoteActions.Upsert(ctx, pushed)
	})
	return rec.Clone(), nil
}

func (o *Orchestrator) SetActionStatus(ctx context.Context, id string, status models.ActionStatus) (models.Action, error) {
	return o.UpdateAction(ctx, id, func(a *models.Action) { a.Status = status })
}

func (o *Orchestrator) DeleteAction(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var ok bool
	if o.actions, ok = remove(o.actions, id); !ok {
		return fmt.Errorf("%w: action %s", ErrNotFound, id)
	}
	o.touchLocked(common.CollectionActions, id, true)
	o.persistLocked(ctx, common.CollectionActions)
	o.pushLocked(ctx, common.CollectionActions, id, "delete", func(ctx context.Context) error {
		return o.remoteActions.Delete(ctx, id)
	})
	return nil
}

func validateAction(a models.Action) error {
	switch {
	case strings.TrimSpace(a.Title) == "":
		return fmt.Errorf("%w: action title is empty", ErrInvalidRecord)
	case !a.Priority.Valid():
		return fmt.Errorf("%w: priority %q", ErrInvalidRecord, a.Priority)
	case !models.ActionOpen.CanTransition(a.Status):
		return fmt.Errorf("%w: status %q", ErrInvalidRecord, a.Status)
	}
	return nil
}
