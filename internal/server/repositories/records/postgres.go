package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/auditkeeper/internal/common"
	"github.com/dmitrijs2005/auditkeeper/internal/dbx"
	"github.com/dmitrijs2005/auditkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// List returns every record of the collection in creation order.
func (r *PostgresRepository) List(ctx context.Context, userID, collection string) ([]*models.Record, error) {
	query :=
		`SELECT id, data, created_at, updated_at FROM records
		 WHERE user_id = $1 AND collection = $2
		 ORDER BY created_at, id
		 `

	rows, err := r.db.QueryContext(ctx, query, userID, collection)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Record, 0)
	for rows.Next() {
		rec := &models.Record{UserID: userID, Collection: collection}
		var data []byte
		if err := rows.Scan(&rec.ID, &data, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		rec.Data = data
		result = append(result, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, collection, id string) (*models.Record, error) {
	query :=
		`SELECT data, created_at, updated_at FROM records
		 WHERE user_id = $1 AND collection = $2 AND id = $3
		 `

	rec := &models.Record{UserID: userID, Collection: collection, ID: id}
	var data []byte
	err := r.db.QueryRowContext(ctx, query, userID, collection, id).Scan(&data, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	rec.Data = data

	return rec, nil
}

// Insert stores a new record. An existing id yields common.ErrorConflict.
func (r *PostgresRepository) Insert(ctx context.Context, rec *models.Record) (*models.Record, error) {
	query :=
		`INSERT INTO records (user_id, collection, id, data)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query, rec.UserID, rec.Collection, rec.ID, []byte(rec.Data)).
		Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == dbx.PgUniqueViolation {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return rec, nil
}

// Merge shallow-merges rec.Data into the stored document, top-level keys of
// rec.Data replacing stored ones, or inserts it when the id is new. The
// merged document is returned.
func (r *PostgresRepository) Merge(ctx context.Context, rec *models.Record) (*models.Record, error) {
	query :=
		`INSERT INTO records (user_id, collection, id, data)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, collection, id)
		 DO UPDATE SET data = records.data || EXCLUDED.data, updated_at = now()
		 RETURNING data, created_at, updated_at
		 `

	out := &models.Record{UserID: rec.UserID, Collection: rec.Collection, ID: rec.ID}
	var data []byte
	err := r.db.QueryRowContext(ctx, query, rec.UserID, rec.Collection, rec.ID, []byte(rec.Data)).
		Scan(&data, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	out.Data = data

	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, collection, id string) error {
	query :=
		`DELETE FROM records
		 WHERE user_id = $1 AND collection = $2 AND id = $3
		 `

	res, err := r.db.ExecContext(ctx, query, userID, collection, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if err := dbx.ExpectRows(res, 1); err != nil {
		if errors.Is(err, dbx.ErrNoRowsAffected) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
