package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// QuestionType classifies how a question is answered.
type QuestionType string

const (
	QuestionBoolean        QuestionType = "boolean"
	QuestionRating         QuestionType = "rating"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionText           QuestionType = "text"
	QuestionPhoto          QuestionType = "photo"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionBoolean, QuestionRating, QuestionMultipleChoice, QuestionText, QuestionPhoto:
		return true
	}
	return false
}

// Rating bounds for QuestionRating answers.
const (
	MinRating = 1
	MaxRating = 5
)

type Question struct {
	ID       string       `json:"id" yaml:"id"`
	Text     string       `json:"text" yaml:"text"`
	Type     QuestionType `json:"type" yaml:"type"`
	Options  []string     `json:"options,omitempty" yaml:"options,omitempty"`
	Required bool         `json:"required" yaml:"required"`
	Critical bool         `json:"critical" yaml:"critical"`
}

type Section struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Template is the definition an audit is run against. Built-in templates
// carry ids with the reserved "default-" prefix and never leave the device.
type Template struct {
	ID               string    `json:"id" yaml:"id"`
	Title            string    `json:"title" yaml:"title"`
	Description      string    `json:"description" yaml:"description"`
	Category         string    `json:"category" yaml:"category"`
	Color            string    `json:"color" yaml:"color"`
	EstimatedMinutes int       `json:"estimatedMinutes" yaml:"estimated_minutes"`
	Sections         []Section `json:"sections" yaml:"sections"`
	CreatedAt        time.Time `json:"createdAt" yaml:"-"`
	UpdatedAt        time.Time `json:"updatedAt" yaml:"-"`
}

func (t Template) RecordID() string { return t.ID }

// Clone returns a deep copy that shares no slices with t.
func (t Template) Clone() Template {
	out := t
	if t.Sections != nil {
		out.Sections = make([]Section, len(t.Sections))
		for i, s := range t.Sections {
			out.Sections[i] = s
			if s.Questions != nil {
				out.Sections[i].Questions = make([]Question, len(s.Questions))
				for j, q := range s.Questions {
					q.Options = slices.Clone(q.Options)
					out.Sections[i].Questions[j] = q
				}
			}
		}
	}
	return out
}

// Questions returns all questions in section order, then question order.
func (t Template) Questions() []Question {
	var qs []Question
	for _, s := range t.Sections {
		qs = append(qs, s.Questions...)
	}
	return qs
}

// Validate checks the template is usable: a title, known question types,
// question ids unique across sections and options for multiple choice.
func (t Template) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("template title is empty")
	}
	seen := map[string]struct{}{}
	for _, s := range t.Sections {
		for _, q := range s.Questions {
			if q.ID == "" {
				return fmt.Errorf("section %q: question without id", s.ID)
			}
			if _, dup := seen[q.ID]; dup {
				return fmt.Errorf("question %q: duplicate id", q.ID)
			}
			seen[q.ID] = struct{}{}
			if !q.Type.Valid() {
				return fmt.Errorf("question %q: unknown type %q", q.ID, q.Type)
			}
			if q.Type == QuestionMultipleChoice && len(q.Options) == 0 {
				return fmt.Errorf("question %q: multiple choice without options", q.ID)
			}
		}
	}
	return nil
}

// Question looks a question up by id.
func (t Template) Question(id string) (Question, bool) {
	for _, s := range t.Sections {
		for _, q := range s.Questions {
			if q.ID == id {
				return q, true
			}
		}
	}
	return Question{}, false
}
