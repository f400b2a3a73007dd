package models

import "time"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

type ActionStatus string

const (
	ActionOpen       ActionStatus = "open"
	ActionInProgress ActionStatus = "in_progress"
	ActionCompleted  ActionStatus = "completed"
)

var actionRank = map[ActionStatus]int{ActionOpen: 0, ActionInProgress: 1, ActionCompleted: 2}

// CanTransition reports whether an action may move from s to next.
func (s ActionStatus) CanTransition(next ActionStatus) bool {
	from, ok1 := actionRank[s]
	to, ok2 := actionRank[next]
	if !ok1 || !ok2 {
		return false
	}
	return to >= from
}

// Action is a corrective-action item, either derived from a failed
// boolean question at audit completion or created by hand. Unset optional
// fields are written as null so an update clears them remotely.
type Action struct {
	ID          string       `json:"id"`
	AuditID     *string      `json:"auditId"`
	QuestionID  *string      `json:"questionId"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Priority    Priority     `json:"priority"`
	Status      ActionStatus `json:"status"`
	Assignee    *string      `json:"assignee"`
	DueDate     *time.Time   `json:"dueDate"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	Location    string       `json:"location"`
}

func (a Action) RecordID() string { return a.ID }

// Clone returns a copy of a whose pointer fields are not shared.
func (a Action) Clone() Action {
	out := a
	out.AuditID = clonePtr(a.AuditID)
	out.QuestionID = clonePtr(a.QuestionID)
	out.Assignee = clonePtr(a.Assignee)
	out.DueDate = clonePtr(a.DueDate)
	return out
}

// Ptr returns a pointer to v; convenient for optional fields.
func Ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
