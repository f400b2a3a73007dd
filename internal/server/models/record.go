package models

import (
	"encoding/json"
	"time"
)

// Record is one schemaless document of a collection owned by a user.
// Data is the full JSON object, including its "id" field.
type Record struct {
	UserID     string
	Collection string
	ID         string
	Data       json.RawMessage
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
