package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/auditkeeper/internal/common"
	"github.com/dmitrijs2005/auditkeeper/internal/dbx"
	"github.com/dmitrijs2005/auditkeeper/internal/server/models"
	recordsrepo "github.com/dmitrijs2005/auditkeeper/internal/server/repositories/records"
	usersrepo "github.com/dmitrijs2005/auditkeeper/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

type fakeUsersRepo struct {
	createOut *models.User
	createErr error
	created   *models.User

	getOut *models.User
	getErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.created = u
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createOut, nil
}

func (f *fakeUsersRepo) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

// fakeRecordsRepo keeps records in memory, keyed by user/collection/id,
// and merges on Merge the way the Postgres jsonb || operator does.
type fakeRecordsRepo struct {
	rows  map[string]*models.Record
	order []string
	err   error
}

func newFakeRecordsRepo() *fakeRecordsRepo {
	return &fakeRecordsRepo{rows: map[string]*models.Record{}}
}

func recKey(userID, collection, id string) string {
	return userID + "|" + collection + "|" + id
}

func (f *fakeRecordsRepo) List(ctx context.Context, userID, collection string) ([]*models.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.Record
	for _, k := range f.order {
		r, ok := f.rows[k]
		if ok && r.UserID == userID && r.Collection == collection {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRecordsRepo) Get(ctx context.Context, userID, collection, id string) (*models.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.rows[recKey(userID, collection, id)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r, nil
}

func (f *fakeRecordsRepo) Insert(ctx context.Context, rec *models.Record) (*models.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	k := recKey(rec.UserID, rec.Collection, rec.ID)
	if _, ok := f.rows[k]; ok {
		return nil, common.ErrorConflict
	}
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	f.rows[k] = rec
	f.order = append(f.order, k)
	return rec, nil
}

func (f *fakeRecordsRepo) Merge(ctx context.Context, rec *models.Record) (*models.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	k := recKey(rec.UserID, rec.Collection, rec.ID)
	existing, ok := f.rows[k]
	if !ok {
		return f.Insert(ctx, rec)
	}

	var base, patch map[string]json.RawMessage
	_ = json.Unmarshal(existing.Data, &base)
	_ = json.Unmarshal(rec.Data, &patch)
	for key, v := range patch {
		base[key] = v
	}
	merged, _ := json.Marshal(base)

	existing.Data = merged
	existing.UpdatedAt = time.Now()
	return existing, nil
}

func (f *fakeRecordsRepo) Delete(ctx context.Context, userID, collection, id string) error {
	if f.err != nil {
		return f.err
	}
	k := recKey(userID, collection, id)
	if _, ok := f.rows[k]; !ok {
		return common.ErrorNotFound
	}
	delete(f.rows, k)
	return nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRecordsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository     { return m.u }
func (m *fakeRepoManager) Records(db dbx.DBTX) recordsrepo.Repository { return m.r }
