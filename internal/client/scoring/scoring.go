// Package scoring computes audit scores and derives corrective actions.
// Both functions are total: they never fail and never panic on a template
// or answer set that is missing pieces; missing parts are simply ignored.
package scoring

import (
	"math"
	"time"

	"github.com/dmitrijs2005/auditkeeper/internal/client/models"
)

// DefaultDueDays is how far after completion a derived action falls due.
const DefaultDueDays = 7

// ComputeScore returns the percentage of scorable boolean questions that
// passed, rounded to the nearest integer. A boolean question is scorable
// unless it is answered n/a; unanswered ones count against the score.
// With no scorable questions the score is 100.
func ComputeScore(tpl *models.Template, answers map[string]models.Answer) int {
	if tpl == nil {
		return 100
	}

	scorable, passed := 0, 0
	for _, section := range tpl.Sections {
		for _, q := range section.Questions {
			if q.Type != models.QuestionBoolean {
				continue
			}
			answer := answers[q.ID]
			if answer.IsNA() {
				continue
			}
			scorable++
			if answer == models.AnswerPass {
				passed++
			}
		}
	}

	if scorable == 0 {
		return 100
	}
	return int(math.Round(float64(passed) / float64(scorable) * 100))
}

// Context is the audit-level information copied onto derived actions.
type Context struct {
	AuditID     string
	Location    string
	CompletedAt time.Time
	// DueDays overrides DefaultDueDays when positive.
	DueDays int
}

// DeriveActions emits one open action draft per boolean question answered
// "fail", in section then question order. Critical questions yield high
// priority, the rest medium. The draft's description is the question's note
// when one exists. Drafts carry no id or timestamps beyond the due date;
// the caller assigns those.
func DeriveActions(tpl *models.Template, answers map[string]models.Answer, notes map[string]string, c Context) []models.Action {
	if tpl == nil {
		return nil
	}

	days := c.DueDays
	if days <= 0 {
		days = DefaultDueDays
	}
	due := c.CompletedAt.AddDate(0, 0, days)

	var drafts []models.Action
	for _, section := range tpl.Sections {
		for _, q := range section.Questions {
			if q.Type != models.QuestionBoolean || answers[q.ID] != models.AnswerFail {
				continue
			}

			priority := models.PriorityMedium
			if q.Critical {
				priority = models.PriorityHigh
			}

			draft := models.Action{
				QuestionID:  models.Ptr(q.ID),
				Title:       q.Text,
				Description: notes[q.ID],
				Priority:    priority,
				Status:      models.ActionOpen,
				DueDate:     models.Ptr(due),
				Location:    c.Location,
			}
			if c.AuditID != "" {
				draft.AuditID = models.Ptr(c.AuditID)
			}
			drafts = append(drafts, draft)
		}
	}
	return drafts
}
