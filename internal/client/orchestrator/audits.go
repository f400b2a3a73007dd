package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/dmitrijs2005/auditkeeper/internal/client/client"
	"github.com/dmitrijs2005/auditkeeper/internal/client/models"
	"github.com/dmitrijs2005/auditkeeper/internal/client/scoring"
	"github.com/dmitrijs2005/auditkeeper/internal/common"
)

// Completion is the final payload handed over when an audit is finished.
// Map entries are merged over what the audit already holds; a nil
// Signature or GlobalNote leaves the stored value alone.
type Completion struct {
	Answers    map[string]models.Answer
	Notes      map[string]string
	Photos     map[string][]models.Photo
	Signature  []byte
	GlobalNote *string
}

// StartAudit creates a draft audit against an existing template.
func (o *Orchestrator) StartAudit(ctx context.Context, templateID, location string) (models.Audit, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	i := indexOf(o.templates, templateID)
	if i < 0 {
		return models.Audit{}, fmt.Errorf("%w: template %s", ErrNotFound, templateID)
	}

	now := o.now()
	rec := models.Audit{
		ID:            o.newID(),
		TemplateID:    templateID,
		TemplateTitle: o.templates[i].Title,
		Status:        models.AuditDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
		CreatedBy:     o.creator(),
		Location:      location,
		Answers:       map[string]models.Answer{},
		Notes:         map[string]string{},
		Photos:        map[string][]models.Photo{},
	}

	o.audits = append(o.audits, rec)
	o.touchLocked(common.CollectionAudits, rec.ID, false)
	o.persistLocked(ctx, common.CollectionAudits)

	pushed := rec.Clone()
	o.pushLocked(ctx, common.CollectionAudits, rec.ID, "create", func(ctx context.Context) error {
		return o.remoteAudits.Create(ctx, pushed)
	})
	return rec.Clone(), nil
}

// UpdateAudit applies fn to a copy of the audit and stores the result.
// Identity fields are kept, the status may only move forward and never to
// completed (use CompleteAudit), and completed audits are frozen.
func (o *Orchestrator) UpdateAudit(ctx context.Context, id string, fn func(*models.Audit)) (models.Audit, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	i := indexOf(o.audits, id)
	if i < 0 {
		return models.Audit{}, fmt.Errorf("%w: audit %s", ErrNotFound, id)
	}
	old := o.audits[i]
	if old.Status == models.AuditCompleted {
		return models.Audit{}, fmt.Errorf("%w: %s", ErrAuditCompleted, id)
	}

	rec := old.Clone()
	fn(&rec)
	rec.ID, rec.TemplateID, rec.CreatedAt, rec.CreatedBy = old.ID, old.TemplateID, old.CreatedAt, old.CreatedBy
	if rec.Status == models.AuditCompleted || !old.Status.CanTransition(rec.Status) {
		return models.Audit{}, fmt.Errorf("%w: audit %s -> %s", ErrInvalidTransition, old.Status, rec.Status)
	}
	rec.Score = nil
	rec.CompletedAt = nil
	rec.UpdatedAt = o.now()

	o.audits[i] = rec
	o.touchLocked(common.CollectionAudits, id, false)
	o.persistLocked(ctx, common.CollectionAudits)

	pushed := rec.Clone()
	o.pushLocked(ctx, common.CollectionAudits, id, "update", func(ctx context.Context) error {
		return o.remoteAudits.Upsert(ctx, pushed)
	})
	return rec.Clone(), nil
}

func (o *Orchestrator) DeleteAudit(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var ok bool
	if o.audits, ok = remove(o.audits, id); !ok {
		return fmt.Errorf("%w: audit %s", ErrNotFound, id)
	}
	o.touchLocked(common.CollectionAudits, id, true)
	o.persistLocked(ctx, common.CollectionAudits)
	o.pushLocked(ctx, common.CollectionAudits, id, "delete", func(ctx context.Context) error {
		return o.remoteAudits.Delete(ctx, id)
	})
	return nil
}

// RefreshAudit fetches one audit from the server and adopts it when the
// remote copy was updated after the local one. Offline, or when the fetch
// fails, the local copy is returned as is. Audits unknown locally are not
// fetched.
func (o *Orchestrator) RefreshAudit(ctx context.Context, id string) (models.Audit, error) {
	o.mu.Lock()
	if indexOf(o.audits, id) < 0 {
		o.mu.Unlock()
		return models.Audit{}, fmt.Errorf("%w: audit %s", ErrNotFound, id)
	}
	online := o.online
	o.mu.Unlock()

	if online {
		remote, err := o.remoteAudits.Get(ctx, id)
		switch {
		case err == nil:
			o.adoptAudit(ctx, remote)
		case errors.Is(err, client.ErrNotFound):
			o.log.Debug(ctx, "audit not on server yet", "id", id)
		default:
			o.log.Warn(ctx, "audit refresh failed", "id", id, "error", err)
		}
	}

	a, ok := o.Audit(id)
	if !ok {
		return models.Audit{}, fmt.Errorf("%w: audit %s", ErrNotFound, id)
	}
	return a, nil
}

func (o *Orchestrator) adoptAudit(ctx context.Context, remote models.Audit) {
	o.mu.Lock()
	defer o.mu.Unlock()

	i := indexOf(o.audits, remote.ID)
	if i < 0 || !remote.UpdatedAt.After(o.audits[i].UpdatedAt) {
		return
	}
	o.audits[i] = remote.Clone()
	o.touchLocked(common.CollectionAudits, remote.ID, false)
	o.persistLocked(ctx, common.CollectionAudits)
}

// CompleteAudit merges the final payload, scores the audit, derives one
// action per failed boolean question and marks the audit completed. A
// missing template never blocks completion: the audit scores 100 and no
// actions are derived. Completing an already completed audit returns it
// unchanged and derives nothing.
func (o *Orchestrator) CompleteAudit(ctx context.Context, id string, c Completion) (models.Audit, []models.Action, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	i := indexOf(o.audits, id)
	if i < 0 {
		return models.Audit{}, nil, fmt.Errorf("%w: audit %s", ErrNotFound, id)
	}
	rec := o.audits[i].Clone()
	if rec.Status == models.AuditCompleted {
		return rec, nil, nil
	}

	applyCompletion(&rec, c)

	var tpl *models.Template
	if j := indexOf(o.templates, rec.TemplateID); j >= 0 {
		t := o.templates[j].Clone()
		tpl = &t
	} else {
		o.log.Warn(ctx, "completing audit without its template", "audit", id, "template", rec.TemplateID)
	}

	now := o.now()
	score := scoring.ComputeScore(tpl, rec.Answers)
	drafts := scoring.DeriveActions(tpl, rec.Answers, rec.Notes, scoring.Context{
		AuditID:     id,
		Location:    rec.Location,
		CompletedAt: now,
		DueDays:     o.dueDays,
	})

	rec.Status = models.AuditCompleted
	rec.CompletedAt = &now
	rec.Score = &score
	rec.UpdatedAt = now

	derived := make([]models.Action, 0, len(drafts))
	for _, d := range drafts {
		d.ID = o.newID()
		d.CreatedAt, d.UpdatedAt = now, now
		derived = append(derived, d)

		o.actions = append(o.actions, d)
		o.touchLocked(common.CollectionActions, d.ID, false)
		pushed := d.Clone()
		o.pushLocked(ctx, common.CollectionActions, d.ID, "create", func(ctx context.Context) error {
			return o.remoteActions.Create(ctx, pushed)
		})
	}
	if len(derived) > 0 {
		o.persistLocked(ctx, common.CollectionActions)
	}

	o.audits[i] = rec
	o.touchLocked(common.CollectionAudits, id, false)
	o.persistLocked(ctx, common.CollectionAudits)

	pushed := rec.Clone()
	o.pushLocked(ctx, common.CollectionAudits, id, "complete", func(ctx context.Context) error {
		return o.remoteAudits.Upsert(ctx, pushed)
	})

	o.log.Info(ctx, "audit completed", "audit", id, "score", score, "actions", len(derived))
	return rec.Clone(), cloneAll(derived), nil
}

func applyCompletion(a *models.Audit, c Completion) {
	if a.Answers == nil {
		a.Answers = map[string]models.Answer{}
	}
	if a.Notes == nil {
		a.Notes = map[string]string{}
	}
	maps.Copy(a.Answers, c.Answers)
	maps.Copy(a.Notes, c.Notes)
	if len(c.Photos) > 0 {
		if a.Photos == nil {
			a.Photos = map[string][]models.Photo{}
		}
		for q, ps := range c.Photos {
			a.Photos[q] = append(a.Photos[q], ps...)
		}
	}
	if c.Signature != nil {
		a.Signature = slices.Clone(c.Signature)
	}
	if c.GlobalNote != nil {
		a.GlobalNote = *c.GlobalNote
	}
}
