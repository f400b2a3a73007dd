package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/auditkeeper/internal/client/models"
)

// parseAnswer checks raw input against the question type and returns the
// value to store.
func parseAnswer(q models.Question, raw string) (models.Answer, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty answer")
	}

	switch q.Type {
	case models.QuestionBoolean:
		v := models.Answer(strings.ToLower(raw))
		switch {
		case v == models.AnswerPass, v == models.AnswerFail:
			return v, nil
		case v.IsNA():
			return models.AnswerNA, nil
		}
		return "", fmt.Errorf("answer %q: expected pass, fail or na", raw)

	case models.QuestionRating:
		if models.Answer(raw).IsNA() {
			return models.AnswerNA, nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < models.MinRating || n > models.MaxRating {
			return "", fmt.Errorf("answer %q: expected a rating from %d to %d", raw, models.MinRating, models.MaxRating)
		}
		return models.Answer(strconv.Itoa(n)), nil

	case models.QuestionMultipleChoice:
		for _, opt := range q.Options {
			if strings.EqualFold(opt, raw) {
				return models.Answer(opt), nil
			}
		}
		return "", fmt.Errorf("answer %q: expected one of %s", raw, strings.Join(q.Options, ", "))

	case models.QuestionPhoto:
		return "", fmt.Errorf("question %s takes a photo, use the photo command", q.ID)

	default:
		return models.Answer(raw), nil
	}
}
