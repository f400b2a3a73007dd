package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/auditkeeper/internal/common"
	"github.com/dmitrijs2005/auditkeeper/internal/server/models"
	"github.com/dmitrijs2005/auditkeeper/internal/server/repositories/repomanager"
)

// RecordService stores the schemaless records of every collection. Records
// are JSON objects carrying a non-empty string "id"; everything else in the
// document is opaque to the server.
type RecordService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewRecordService(db *sql.DB, m repomanager.RepositoryManager) *RecordService {
	return &RecordService{db: db, repomanager: m}
}

// List returns every record of collection owned by userID.
func (s *RecordService) List(ctx context.Context, userID, collection string) ([]json.RawMessage, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}

	recs, err := s.repomanager.Records(s.db).List(ctx, userID, collection)
	if err != nil {
		return nil, fmt.Errorf("error listing %s: %w", collection, err)
	}

	out := make([]json.RawMessage, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Data)
	}
	return out, nil
}

func (s *RecordService) Get(ctx context.Context, userID, collection, id string) (json.RawMessage, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", common.ErrorValidation)
	}

	rec, err := s.repomanager.Records(s.db).Get(ctx, userID, collection, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error reading %s/%s: %w", collection, id, err)
	}
	return rec.Data, nil
}

// Create stores a new record. An existing id yields common.ErrorConflict.
func (s *RecordService) Create(ctx context.Context, userID, collection string, body []byte) (json.RawMessage, error) {
	id, data, err := parseRecord(collection, body)
	if err != nil {
		return nil, err
	}

	rec, err := s.repomanager.Records(s.db).Insert(ctx, &models.Record{
		UserID: userID, Collection: collection, ID: id, Data: data,
	})
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating %s/%s: %w", collection, id, err)
	}
	return rec.Data, nil
}

// Update merges the partial document into the stored record, or inserts it
// when the id is unknown, and returns the resulting record.
func (s *RecordService) Update(ctx context.Context, userID, collection string, body []byte) (json.RawMessage, error) {
	id, data, err := parseRecord(collection, body)
	if err != nil {
		return nil, err
	}

	rec, err := s.repomanager.Records(s.db).Merge(ctx, &models.Record{
		UserID: userID, Collection: collection, ID: id, Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("error updating %s/%s: %w", collection, id, err)
	}
	return rec.Data, nil
}

// Delete removes a record. body is the {"id": ...} envelope.
func (s *RecordService) Delete(ctx context.Context, userID, collection string, body []byte) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	id, _, err := decodeObject(body)
	if err != nil {
		return err
	}

	if err := s.repomanager.Records(s.db).Delete(ctx, userID, collection, id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("error deleting %s/%s: %w", collection, id, err)
	}
	return nil
}

func checkCollection(collection string) error {
	if !common.IsCollection(collection) {
		return fmt.Errorf("%w: unknown collection %q", common.ErrorValidation, collection)
	}
	return nil
}

// parseRecord validates a document written to collection and returns its id
// together with the compacted JSON.
func parseRecord(collection string, body []byte) (string, json.RawMessage, error) {
	if err := checkCollection(collection); err != nil {
		return "", nil, err
	}

	id, data, err := decodeObject(body)
	if err != nil {
		return "", nil, err
	}

	if collection == common.CollectionTemplates && strings.HasPrefix(id, common.DefaultTemplatePrefix) {
		return "", nil, fmt.Errorf("%w: template id %q is reserved", common.ErrorValidation, id)
	}
	return id, data, nil
}

func decodeObject(body []byte) (string, json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return "", nil, fmt.Errorf("%w: record must be a JSON object", common.ErrorValidation)
	}

	var id string
	if raw, ok := fields["id"]; !ok || json.Unmarshal(raw, &id) != nil || strings.TrimSpace(id) == "" {
		return "", nil, fmt.Errorf("%w: record needs a non-empty string id", common.ErrorValidation)
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return "", nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	return id, buf.Bytes(), nil
}
