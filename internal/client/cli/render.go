package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/dmitrijs2005/auditkeeper/internal/client/defaults"
	"github.com/dmitrijs2005/auditkeeper/internal/client/models"
)

const dateLayout = "2006-01-02"

func formatScore(score *int) string {
	if score == nil {
		return "-"
	}
	return strconv.Itoa(*score) + "%"
}

func renderTemplates(w io.Writer, ts []models.Template) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Title", "Category", "Questions", "Minutes", "Built-in"})
	for _, t := range ts {
		builtIn := ""
		if defaults.IsDefault(t.ID) {
			builtIn = "yes"
		}
		tw.AppendRow(table.Row{t.ID, t.Title, t.Category, len(t.Questions()), t.EstimatedMinutes, builtIn})
	}
	tw.Render()
}

func renderAudits(w io.Writer, audits []models.Audit) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Template", "Location", "Status", "Score", "Answers", "Updated"})
	for _, a := range audits {
		tw.AppendRow(table.Row{
			a.ID, a.TemplateTitle, a.Location, a.Status, formatScore(a.Score),
			len(a.Answers), a.UpdatedAt.Local().Format(dateLayout),
		})
	}
	tw.Render()
}

func renderAuditDetail(w io.Writer, audit models.Audit, tpl models.Template) {
	fmt.Fprintf(w, "%s at %s: %s, score %s\n", audit.TemplateTitle, audit.Location, audit.Status, formatScore(audit.Score))
	if audit.GlobalNote != "" {
		fmt.Fprintf(w, "Note: %s\n", audit.GlobalNote)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Section", "ID", "Question", "Type", "Answer", "Note", "Photos"})
	for _, s := range tpl.Sections {
		for _, q := range s.Questions {
			text := q.Text
			if q.Critical {
				text += " (critical)"
			}
			tw.AppendRow(table.Row{s.Title, q.ID, text, q.Type, audit.Answers[q.ID], audit.Notes[q.ID], len(audit.Photos[q.ID])})
		}
	}
	tw.Render()
}

func renderActions(w io.Writer, actions []models.Action) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Title", "Priority", "Status", "Due", "Assignee", "Audit"})
	for _, a := range actions {
		due, assignee, audit := "", "", ""
		if a.DueDate != nil {
			due = a.DueDate.Format(dateLayout)
		}
		if a.Assignee != nil {
			assignee = *a.Assignee
		}
		if a.AuditID != nil {
			audit = *a.AuditID
		}
		tw.AppendRow(table.Row{a.ID, a.Title, a.Priority, a.Status, due, assignee, audit})
	}
	tw.Render()
}

type photoRow struct {
	question string
	photo    models.Photo
	link     string
}

func renderPhotos(w io.Writer, rows []photoRow) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Question", "Photo", "Type", "Taken", "Link"})
	for _, r := range rows {
		tw.AppendRow(table.Row{r.question, r.photo.ID, r.photo.ContentType, r.photo.TakenAt.Format(dateLayout), r.link})
	}
	tw.Render()
}
