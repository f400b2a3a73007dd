// Package records stores the schemaless documents of every synchronised
// collection, partitioned by owner.
package records

import (
	"context"

	"github.com/dmitrijs2005/auditkeeper/internal/server/models"
)

type Repository interface {
	List(ctx context.Context, userID, collection string) ([]*models.Record, error)
	Get(ctx context.Context, userID, collection, id string) (*models.Record, error)
	Insert(ctx context.Context, rec *models.Record) (*models.Record, error)
	Merge(ctx context.Context, rec *models.Record) (*models.Record, error)
	Delete(ctx context.Context, userID, collection, id string) error
}
