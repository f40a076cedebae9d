package rest

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/taglink/internal/common"
	"github.com/dmitrijs2005/taglink/internal/dbx"
	"github.com/dmitrijs2005/taglink/internal/logging"
	"github.com/dmitrijs2005/taglink/internal/server/auth"
	"github.com/dmitrijs2005/taglink/internal/server/models"
	"github.com/dmitrijs2005/taglink/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/taglink/internal/server/repositories/audit"
	"github.com/dmitrijs2005/taglink/internal/server/repositories/links"
	"github.com/dmitrijs2005/taglink/internal/server/services"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// memStore is an in-memory links and audit store. The HTTP tests run the real
// services.LinkService on top of it.
type memStore struct {
	mu      sync.Mutex
	byTag   map[string]int64
	actors  []string
	failAll error
}

func newMemStore() *memStore {
	return &memStore{byTag: map[string]int64{}}
}

type memRepoManager struct {
	store *memStore
}

func (m memRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m memRepoManager) Links(dbx.DBTX) links.Repository              { return m.store }
func (m memRepoManager) Audit(dbx.DBTX) audit.Repository              { return memAudit{m.store} }
func (m memRepoManager) Accounts(dbx.DBTX) accounts.Repository        { return nil }

func (m *memStore) FindByDiscordID(_ context.Context, id int64) ([]*models.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	return m.byID(id), nil
}

func (m *memStore) byID(id int64) []*models.Link {
	out := []*models.Link{}
	for tag, v := range m.byTag {
		if v == id {
			out = append(out, &models.Link{Tag: tag, DiscordID: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

func (m *memStore) FindByTag(_ context.Context, tag string) (*models.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	id, ok := m.byTag[tag]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &models.Link{Tag: tag, DiscordID: id}, nil
}

func (m *memStore) FindByTags(_ context.Context, tags []string) ([]*models.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	out := []*models.Link{}
	for _, tag := range tags {
		if id, ok := m.byTag[tag]; ok {
			out = append(out, &models.Link{Tag: tag, DiscordID: id})
		}
	}
	return out, nil
}

func (m *memStore) FindByDiscordIDs(_ context.Context, ids []int64) ([]*models.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	out := []*models.Link{}
	for _, id := range ids {
		out = append(out, m.byID(id)...)
	}
	return out, nil
}

func (m *memStore) Create(_ context.Context, l *models.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return m.failAll
	}
	if _, ok := m.byTag[l.Tag]; ok {
		return common.ErrAlreadyExists
	}
	m.byTag[l.Tag] = l.DiscordID
	return nil
}

func (m *memStore) Delete(_ context.Context, tag string) (*models.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	id, ok := m.byTag[tag]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(m.byTag, tag)
	return &models.Link{Tag: tag, DiscordID: id}, nil
}

type memAudit struct {
	store *memStore
}

func (a memAudit) Append(_ context.Context, e *models.AuditEntry) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	a.store.actors = append(a.store.actors, e.Actor)
	return nil
}

func (a memAudit) ListSince(context.Context, time.Time) ([]*models.AuditEntry, error) {
	return nil, nil
}

// newLinkService runs the real service against store. Transactions are opened
// on an in-memory sqlite database; the store itself ignores them.
func newLinkService(t *testing.T, store *memStore) *services.LinkService {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return services.NewLinkService(db, memRepoManager{store: store}, logging.Nop{})
}

// fakeSessions accepts alice/pw and verifies tokens with a real issuer.
type fakeSessions struct {
	issuer *auth.Issuer
}

func (f *fakeSessions) Login(_ context.Context, username, password string) (*services.Session, error) {
	if username != "alice" || password != "pw" {
		return nil, common.ErrorUnauthorized
	}
	tok, exp, err := f.issuer.Issue(username)
	if err != nil {
		return nil, err
	}
	return &services.Session{Token: tok, ExpiresAt: exp}, nil
}

func (f *fakeSessions) Authenticate(token string) (string, error) {
	c, err := f.issuer.Verify(token)
	if err != nil {
		return "", err
	}
	return c.Subject, nil
}

type fakeAudit struct {
	since time.Time
	out   *services.Archive
	err   error
}

func (f *fakeAudit) Archive(_ context.Context, since time.Time) (*services.Archive, error) {
	f.since = since
	return f.out, f.err
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

var errBoom = errors.New("boom")
