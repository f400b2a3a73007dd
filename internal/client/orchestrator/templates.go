package orchestrator

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/auditkeeper/internal/client/defaults"
	"github.com/dmitrijs2005/auditkeeper/internal/client/models"
	"github.com/dmitrijs2005/auditkeeper/internal/common"
)

// CreateTemplate adds a user template. An empty id is generated; ids in the
// built-in namespace are refused.
func (o *Orchestrator) CreateTemplate(ctx context.Context, t models.Template) (models.Template, error) {
	if t.ID == "" {
		t.ID = o.newID()
	}
	if defaults.IsReserved(t.ID) {
		return models.Template{}, fmt.Errorf("%w: %s", ErrReservedID, t.ID)
	}
	if err := t.Validate(); err != nil {
		return models.Template{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if indexOf(o.templates, t.ID) >= 0 {
		return models.Template{}, fmt.Errorf("%w: template %s", ErrAlreadyExists, t.ID)
	}
	now := o.now()
	t.CreatedAt, t.UpdatedAt = now, now
	rec := t.Clone()

	o.templates = append(o.templates, rec)
	o.touchLocked(common.CollectionTemplates, rec.ID, false)
	o.persistLocked(ctx, common.CollectionTemplates)

	pushed := rec.Clone()
	o.pushLocked(ctx, common.CollectionTemplates, rec.ID, "create", func(ctx context.Context) error {
		return o.remoteTemplates.Create(ctx, pushed)
	})
	return rec.Clone(), nil
}

// UpdateTemplate replaces a user template. Built-ins are read-only.
func (o *Orchestrator) UpdateTemplate(ctx context.Context, t models.Template) (models.Template, error) {
	if defaults.IsReserved(t.ID) {
		return models.Template{}, fmt.Errorf("%w: %s", ErrReadOnlyTemplate, t.ID)
	}
	if err := t.Validate(); err != nil {
		return models.Template{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	i := indexOf(o.templates, t.ID)
	if i < 0 {
		return models.Template{}, fmt.Errorf("%w: template %s", ErrNotFound, t.ID)
	}
	t.CreatedAt = o.templates[i].CreatedAt
	t.UpdatedAt = o.now()
	rec := t.Clone()

	o.templates[i] = rec
	o.touchLocked(common.CollectionTemplates, rec.ID, false)
	o.persistLocked(ctx, common.CollectionTemplates)

	pushed := rec.Clone()
	o.pushLocked(ctx, common.CollectionTemplates, rec.ID, "update", func(ctx context.Context) error {
		return o.remoteTemplates.Upsert(ctx, pushed)
	})
	return rec.Clone(), nil
}

// DeleteTemplate removes a template. Audits keep their denormalised title.
// Deleting a built-in only hides it on this device until RestoreDefaults.
func (o *Orchestrator) DeleteTemplate(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var ok bool
	if o.templates, ok = remove(o.templates, id); !ok {
		return fmt.Errorf("%w: template %s", ErrNotFound, id)
	}

	if defaults.IsReserved(id) {
		o.hiddenDefaults[id] = struct{}{}
		o.saveHiddenDefaultsLocked(ctx)
		o.persistLocked(ctx, common.CollectionTemplates)
		return nil
	}

	o.touchLocked(common.CollectionTemplates, id, true)
	o.persistLocked(ctx, common.CollectionTemplates)
	o.pushLocked(ctx, common.CollectionTemplates, id, "delete", func(ctx context.Context) error {
		return o.remoteTemplates.Delete(ctx, id)
	})
	return nil
}

// RestoreDefaults brings back every built-in template hidden by
// DeleteTemplate.
func (o *Orchestrator) RestoreDefaults(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.hiddenDefaults = map[string]struct{}{}
	o.saveHiddenDefaultsLocked(ctx)

	user := make([]models.Template, 0, len(o.templates))
	for _, t := range o.templates {
		if !defaults.IsReserved(t.ID) {
			user = append(user, t)
		}
	}
	o.templates = o.mergeTemplates(user)
	o.persistLocked(ctx, common.CollectionTemplates)
}
