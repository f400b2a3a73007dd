package cli

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/auditkeeper/internal/client/models"
	"github.com/dmitrijs2005/auditkeeper/internal/client/orchestrator"
)

const maxPhotoSize = 10 << 20

type usageError string

func (u usageError) Error() string { return "usage: " + string(u) }

// ListTemplates prints every visible template, built-ins first.
func (a *App) ListTemplates(ctx context.Context, _ []string) error {
	renderTemplates(a.out, a.engine.Templates())
	return nil
}

func (a *App) ListAudits(ctx context.Context, _ []string) error {
	renderAudits(a.out, a.engine.Audits())
	return nil
}

// Show prints an audit's questions together with the answers and notes
// recorded so far, picking up a newer copy from the server when online.
func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("show <auditID>")
	}
	audit, err := a.engine.RefreshAudit(ctx, args[0])
	if err != nil {
		return err
	}
	tpl, _ := a.engine.Template(audit.TemplateID)
	renderAuditDetail(a.out, audit, tpl)
	return nil
}

// Start creates a draft audit; everything after the template id is the
// location.
func (a *App) Start(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return usageError("start <templateID> [location]")
	}
	audit, err := a.engine.StartAudit(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Started audit %s (%s)\n", audit.ID, audit.TemplateTitle)
	return nil
}

// question resolves an audit's template question, failing when either is
// unknown.
func (a *App) question(auditID, questionID string) (models.Question, error) {
	audit, ok := a.engine.Audit(auditID)
	if !ok {
		return models.Question{}, fmt.Errorf("%w: audit %s", orchestrator.ErrNotFound, auditID)
	}
	tpl, ok := a.engine.Template(audit.TemplateID)
	if !ok {
		return models.Question{}, fmt.Errorf("%w: template %s", orchestrator.ErrNotFound, audit.TemplateID)
	}
	q, ok := tpl.Question(questionID)
	if !ok {
		return models.Question{}, fmt.Errorf("%w: question %s", orchestrator.ErrNotFound, questionID)
	}
	return q, nil
}

// markInProgress also makes sure the answer and note maps exist; records
// pulled from the server may carry them as null.
func markInProgress(audit *models.Audit) {
	if audit.Answers == nil {
		audit.Answers = map[string]models.Answer{}
	}
	if audit.Notes == nil {
		audit.Notes = map[string]string{}
	}
	if audit.Status == models.AuditDraft {
		audit.Status = models.AuditInProgress
	}
}

func (a *App) Answer(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return usageError("answer <auditID> <questionID> <value>")
	}
	q, err := a.question(args[0], args[1])
	if err != nil {
		return err
	}
	value, err := parseAnswer(q, strings.Join(args[2:], " "))
	if err != nil {
		return err
	}
	_, err = a.engine.UpdateAudit(ctx, args[0], func(audit *models.Audit) {
		markInProgress(audit)
		audit.Answers[q.ID] = value
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s = %s\n", q.ID, value)
	return nil
}

// Note stores a note for a question. Without inline text it reads a
// multi-line note.
func (a *App) Note(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageError("note <auditID> <questionID> [text]")
	}
	q, err := a.question(args[0], args[1])
	if err != nil {
		return err
	}
	text := strings.Join(args[2:], " ")
	if text == "" {
		if text, err = GetMultiline(a.reader, "Note for "+q.Text, a.out); err != nil {
			return err
		}
	}
	return a.setNote(ctx, args[0], q.ID, text)
}

func (a *App) setNote(ctx context.Context, auditID, questionID, text string) error {
	_, err := a.engine.UpdateAudit(ctx, auditID, func(audit *models.Audit) {
		markInProgress(audit)
		if text == "" {
			delete(audit.Notes, questionID)
		} else {
			audit.Notes[questionID] = text
		}
	})
	return err
}

// Enhance asks the assistant to polish a question's note and stores the
// result. With the assistant unavailable the note stays as it was.
func (a *App) Enhance(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError("enhance <auditID> <questionID>")
	}
	audit, ok := a.engine.Audit(args[0])
	if !ok {
		return fmt.Errorf("%w: audit %s", orchestrator.ErrNotFound, args[0])
	}
	note := audit.Notes[args[1]]
	if note == "" {
		return fmt.Errorf("no note for question %s", args[1])
	}

	improved := a.advisor.Enhance(ctx, note)
	if improved == note {
		fmt.Fprintln(a.out, "Note unchanged.")
		return nil
	}
	if err := a.setNote(ctx, args[0], args[1], improved); err != nil {
		return err
	}
	fmt.Fprintln(a.out, improved)
	return nil
}

// Photo attaches an image file to a question. The bytes stay inside the
// audit until the next reconciliation uploads them.
func (a *App) Photo(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return usageError("photo <auditID> <questionID> <file>")
	}
	q, err := a.question(args[0], args[1])
	if err != nil {
		return err
	}
	info, err := os.Stat(args[2])
	if err != nil {
		return err
	}
	if info.Size() > maxPhotoSize {
		return fmt.Errorf("%s is larger than %d MiB", filepath.Base(args[2]), maxPhotoSize>>20)
	}
	data, err := os.ReadFile(args[2])
	if err != nil {
		return err
	}

	photo := models.Photo{
		ID:          uuid.NewString(),
		ContentType: http.DetectContentType(data),
		Data:        data,
		TakenAt:     info.ModTime().UTC().Truncate(time.Second),
	}
	_, err = a.engine.UpdateAudit(ctx, args[0], func(audit *models.Audit) {
		if audit.Photos == nil {
			audit.Photos = map[string][]models.Photo{}
		}
		audit.Photos[q.ID] = append(audit.Photos[q.ID], photo)
		markInProgress(audit)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Attached %s to %s\n", filepath.Base(args[2]), q.ID)
	return nil
}

// Photos lists an audit's photos. Uploaded ones get a temporary download
// link; the rest are still waiting for the next sync.
func (a *App) Photos(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("photos <auditID>")
	}
	audit, ok := a.engine.Audit(args[0])
	if !ok {
		return fmt.Errorf("%w: audit %s", orchestrator.ErrNotFound, args[0])
	}

	var rows []photoRow
	for _, q := range slices.Sorted(maps.Keys(audit.Photos)) {
		for _, p := range audit.Photos[q] {
			row := photoRow{question: q, photo: p, link: "pending upload"}
			if p.Key != "" {
				row.link = a.photoLink(ctx, p.Key)
			}
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		fmt.Fprintln(a.out, "No photos")
		return nil
	}
	renderPhotos(a.out, rows)
	return nil
}

func (a *App) photoLink(ctx context.Context, key string) string {
	if a.photoLinks == nil || !a.engine.Online() {
		return "available when online"
	}
	u, err := a.photoLinks.PresignPhotoDownload(ctx, key)
	if err != nil {
		a.log.Warn(ctx, "photo link failed", "key", key, "error", err)
		return "unavailable"
	}
	return u.URL
}

// Complete finishes an audit, optionally with a global note, and prints
// the score and any derived actions.
func (a *App) Complete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("complete <auditID>")
	}
	if _, ok := a.engine.Audit(args[0]); !ok {
		return fmt.Errorf("%w: audit %s", orchestrator.ErrNotFound, args[0])
	}
	note, err := getSimpleText(a.reader, "Global note (empty to skip)", a.out)
	if err != nil {
		return err
	}

	var c orchestrator.Completion
	if note != "" {
		c.GlobalNote = &note
	}
	audit, derived, err := a.engine.CompleteAudit(ctx, args[0], c)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Audit %s completed, score %s\n", audit.ID, formatScore(audit.Score))
	if len(derived) > 0 {
		fmt.Fprintf(a.out, "%d corrective action(s) created:\n", len(derived))
		renderActions(a.out, derived)
	}
	return nil
}

// Delete removes an audit, an action or a template by id.
func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError("delete <audit|action|template> <id>")
	}
	var err error
	switch args[0] {
	case "audit":
		err = a.engine.DeleteAudit(ctx, args[1])
	case "action":
		err = a.engine.DeleteAction(ctx, args[1])
	case "template":
		err = a.engine.DeleteTemplate(ctx, args[1])
	default:
		return usageError("delete <audit|action|template> <id>")
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted %s %s\n", args[0], args[1])
	return nil
}

// Restore brings back built-in templates hidden by delete.
func (a *App) Restore(ctx context.Context, _ []string) error {
	a.engine.RestoreDefaults(ctx)
	fmt.Fprintln(a.out, "Built-in templates restored.")
	return nil
}
