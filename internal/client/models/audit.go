package models

import (
	"maps"
	"slices"
	"strings"
	"time"
)

type AuditStatus string

const (
	AuditDraft      AuditStatus = "draft"
	AuditInProgress AuditStatus = "in_progress"
	AuditCompleted  AuditStatus = "completed"
)

var auditRank = map[AuditStatus]int{AuditDraft: 0, AuditInProgress: 1, AuditCompleted: 2}

// CanTransition reports whether an audit may move from s to next.
// Status only moves forward; staying put is allowed except that nothing
// leaves completed.
func (s AuditStatus) CanTransition(next AuditStatus) bool {
	from, ok1 := auditRank[s]
	to, ok2 := auditRank[next]
	if !ok1 || !ok2 {
		return false
	}
	return to >= from
}

// Answer is the value given to one question. Boolean questions use
// AnswerPass, AnswerFail or AnswerNA; rating answers are "1".."5";
// multiple choice holds the chosen option; text holds free text.
type Answer string

const (
	AnswerPass Answer = "pass"
	AnswerFail Answer = "fail"
	AnswerNA   Answer = "na"
)

// IsNA reports a not-applicable answer. "n/a" is accepted as a spelling.
func (a Answer) IsNA() bool {
	v := strings.ToLower(strings.TrimSpace(string(a)))
	return v == string(AnswerNA) || v == "n/a"
}

// Photo is an opaque image attached to a question. Data holds the bytes
// until they are offloaded to object storage, after which Key is set and
// Data is dropped.
type Photo struct {
	ID          string    `json:"id"`
	ContentType string    `json:"contentType,omitempty"`
	Data        []byte    `json:"data,omitempty"`
	Key         string    `json:"key,omitempty"`
	TakenAt     time.Time `json:"takenAt"`
}

// Pending reports whether the photo bytes still live only inside the record.
func (p Photo) Pending() bool {
	return p.Key == "" && len(p.Data) > 0
}

// Audit is one run of a template. TemplateTitle is denormalised so the
// audit still reads well after its template is deleted.
type Audit struct {
	ID            string             `json:"id"`
	TemplateID    string             `json:"templateId"`
	TemplateTitle string             `json:"templateTitle"`
	Status        AuditStatus        `json:"status"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
	CompletedAt   *time.Time         `json:"completedAt"`
	CreatedBy     string             `json:"createdBy"`
	Location      string             `json:"location"`
	GlobalNote    string             `json:"globalNote"`
	Signature     []byte             `json:"signature"`
	Answers       map[string]Answer  `json:"answers"`
	Notes         map[string]string  `json:"notes"`
	Photos        map[string][]Photo `json:"photos"`
	Score         *int               `json:"score"`
}

func (a Audit) RecordID() string { return a.ID }

// Clone returns a deep copy of a.
func (a Audit) Clone() Audit {
	out := a
	out.Signature = slices.Clone(a.Signature)
	out.Answers = maps.Clone(a.Answers)
	out.Notes = maps.Clone(a.Notes)
	if a.Photos != nil {
		out.Photos = make(map[string][]Photo, len(a.Photos))
		for k, ps := range a.Photos {
			cp := make([]Photo, len(ps))
			for i, p := range ps {
				p.Data = slices.Clone(p.Data)
				cp[i] = p
			}
			out.Photos[k] = cp
		}
	}
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		out.CompletedAt = &t
	}
	if a.Score != nil {
		s := *a.Score
		out.Score = &s
	}
	return out
}

// PendingPhotos counts photos whose bytes have not been offloaded yet.
func (a Audit) PendingPhotos() int {
	n := 0
	for _, ps := range a.Photos {
		for _, p := range ps {
			if p.Pending() {
				n++
			}
		}
	}
	return n
}
