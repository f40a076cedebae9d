package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/taglink/internal/common"
	"github.com/dmitrijs2005/taglink/internal/dbx"
	"github.com/dmitrijs2005/taglink/internal/server/models"
	"github.com/dmitrijs2005/taglink/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/taglink/internal/server/repositories/audit"
	"github.com/dmitrijs2005/taglink/internal/server/repositories/links"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sqlmock expectations: %v", err)
		}
		_ = db.Close()
	})
	return db, mock
}

type fakeRepoManager struct {
	links    *fakeLinksRepo
	audit    *fakeAuditRepo
	accounts *fakeAccountsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		links:    &fakeLinksRepo{byTag: map[string]*models.Link{}},
		audit:    &fakeAuditRepo{},
		accounts: &fakeAccountsRepo{byName: map[string]*models.Account{}},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Links(dbx.DBTX) links.Repository              { return m.links }
func (m *fakeRepoManager) Audit(dbx.DBTX) audit.Repository              { return m.audit }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository        { return m.accounts }

type fakeLinksRepo struct {
	byTag map[string]*models.Link

	findErr   error
	createErr error
	deleteErr error

	tagQueries [][]string
	idQueries  [][]int64
	deleted    []string
}

func (f *fakeLinksRepo) add(tag string, id int64) {
	f.byTag[tag] = &models.Link{Tag: tag, DiscordID: id}
}

func (f *fakeLinksRepo) FindByDiscordID(_ context.Context, id int64) ([]*models.Link, error) {
	return f.FindByDiscordIDs(context.Background(), []int64{id})
}

func (f *fakeLinksRepo) FindByTag(_ context.Context, tag string) (*models.Link, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	l, ok := f.byTag[tag]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return l, nil
}

func (f *fakeLinksRepo) FindByTags(_ context.Context, tags []string) ([]*models.Link, error) {
	f.tagQueries = append(f.tagQueries, tags)
	if f.findErr != nil {
		return nil, f.findErr
	}
	out := []*models.Link{}
	for _, t := range tags {
		if l, ok := f.byTag[t]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeLinksRepo) FindByDiscordIDs(_ context.Context, ids []int64) ([]*models.Link, error) {
	f.idQueries = append(f.idQueries, ids)
	if f.findErr != nil {
		return nil, f.findErr
	}
	out := []*models.Link{}
	for _, id := range ids {
		for _, l := range f.byTag {
			if l.DiscordID == id {
				out = append(out, l)
			}
		}
	}
	return out, nil
}

func (f *fakeLinksRepo) Create(_ context.Context, l *models.Link) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byTag[l.Tag]; ok {
		return common.ErrAlreadyExists
	}
	l.CreatedAt = time.Now()
	f.byTag[l.Tag] = l
	return nil
}

func (f *fakeLinksRepo) Delete(_ context.Context, tag string) (*models.Link, error) {
	f.deleted = append(f.deleted, tag)
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	l, ok := f.byTag[tag]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(f.byTag, tag)
	return l, nil
}

type fakeAuditRepo struct {
	appended  []*models.AuditEntry
	appendErr error

	listOut []*models.AuditEntry
	listErr error
	since   time.Time
}

func (f *fakeAuditRepo) Append(_ context.Context, e *models.AuditEntry) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, e)
	return nil
}

func (f *fakeAuditRepo) ListSince(_ context.Context, since time.Time) ([]*models.AuditEntry, error) {
	f.since = since
	return f.listOut, f.listErr
}

type fakeAccountsRepo struct {
	byName map[string]*models.Account

	createErr error
	getErr    error
}

func (f *fakeAccountsRepo) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.byName[a.Username]; ok {
		return nil, common.ErrAlreadyExists
	}
	a.ID = "acc-" + a.Username
	f.byName[a.Username] = a
	return a, nil
}

func (f *fakeAccountsRepo) GetByUsername(_ context.Context, name string) (*models.Account, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	a, ok := f.byName[name]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a, nil
}
