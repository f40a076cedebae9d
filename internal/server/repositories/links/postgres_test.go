package links

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/taglink/internal/common"
	"github.com/dmitrijs2005/taglink/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewPostgresRepository(db), mock
}

func linkRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"tag", "discord_id", "created_at"})
}

func TestFindByDiscordID_ReturnsAllRows(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)SELECT\s+tag,\s*discord_id,\s*created_at\s+FROM\s+links\s+WHERE\s+discord_id\s*=\s*\$1\s+ORDER BY tag`).
		WithArgs(int64(555)).
		WillReturnRows(linkRows().AddRow("#GRJ", int64(555), created).AddRow("#PYL", int64(555), created))

	got, err := repo.FindByDiscordID(context.Background(), 555)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "#GRJ", got[0].Tag)
	assert.Equal(t, "#PYL", got[1].Tag)
	assert.Equal(t, int64(555), got[1].DiscordID)
}

func TestFindByDiscordID_NoRowsIsEmptyNotNil(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+links`).WithArgs(int64(1)).WillReturnRows(linkRows())

	got, err := repo.FindByDiscordID(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFindByDiscordID_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+links`).WithArgs(int64(1)).WillReturnError(errors.New("db down"))

	_, err := repo.FindByDiscordID(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: db down")
}

func TestFindByTag(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(`(?s)SELECT\s+tag,\s*discord_id,\s*created_at\s+FROM\s+links\s+WHERE\s+tag\s*=\s*\$1`).
			WithArgs("#PYL").
			WillReturnRows(linkRows().AddRow("#PYL", int64(7), created))

		got, err := repo.FindByTag(context.Background(), "#PYL")
		require.NoError(t, err)
		assert.Equal(t, &models.Link{Tag: "#PYL", DiscordID: 7, CreatedAt: created}, got)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(`FROM\s+links`).WithArgs("#PYL").WillReturnError(sql.ErrNoRows)

		_, err := repo.FindByTag(context.Background(), "#PYL")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(`FROM\s+links`).WithArgs("#PYL").WillReturnError(errors.New("boom"))

		_, err := repo.FindByTag(context.Background(), "#PYL")
		require.Error(t, err)
		assert.NotErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestFindByTags_BuildsInClause(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)WHERE\s+tag\s+IN\s+\(\$1, \$2, \$3\)`).
		WithArgs("#PYL", "#GRJ", "#CUV").
		WillReturnRows(linkRows().AddRow("#GRJ", int64(2), created).AddRow("#PYL", int64(1), created))

	got, err := repo.FindByTags(context.Background(), []string{"#PYL", "#GRJ", "#CUV"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFindByDiscordIDs_BuildsInClause(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)WHERE\s+discord_id\s+IN\s+\(\$1, \$2\)`).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(linkRows().AddRow("#PYL", int64(1), created))

	got, err := repo.FindByDiscordIDs(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].DiscordID)
}

func TestFindBySets_EmptyInputRunsNoQuery(t *testing.T) {
	repo, _ := newRepoWithMock(t)

	tags, err := repo.FindByTags(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, tags)

	ids, err := repo.FindByDiscordIDs(context.Background(), []int64{})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestCreate(t *testing.T) {
	q := `(?s)INSERT\s+INTO\s+links\s*\(tag,\s*discord_id\)\s*VALUES\s*\(\$1,\s*\$2\)\s*RETURNING\s+created_at`

	t.Run("success", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("#PYL", int64(555)).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

		link := &models.Link{Tag: "#PYL", DiscordID: 555}
		require.NoError(t, repo.Create(context.Background(), link))
		assert.Equal(t, created, link.CreatedAt)
	})

	t.Run("duplicate tag", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("#PYL", int64(555)).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "links_pkey"})

		err := repo.Create(context.Background(), &models.Link{Tag: "#PYL", DiscordID: 555})
		assert.ErrorIs(t, err, common.ErrAlreadyExists)
		assert.NotErrorIs(t, err, common.ErrBadRequest)
	})

	t.Run("check violation", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("#PYL", int64(-1)).
			WillReturnError(&pgconn.PgError{Code: "23514"})

		err := repo.Create(context.Background(), &models.Link{Tag: "#PYL", DiscordID: -1})
		assert.ErrorIs(t, err, common.ErrBadRequest)
	})

	t.Run("unexpected fault", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("#PYL", int64(1)).WillReturnError(errors.New("connection reset"))

		err := repo.Create(context.Background(), &models.Link{Tag: "#PYL", DiscordID: 1})
		assert.ErrorIs(t, err, common.ErrBadRequest)
		assert.Contains(t, err.Error(), "connection reset")
	})
}

func TestDelete(t *testing.T) {
	q := `(?s)DELETE\s+FROM\s+links\s+WHERE\s+tag\s*=\s*\$1\s+RETURNING\s+tag,\s*discord_id,\s*created_at`

	t.Run("deleted", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("#PYL").WillReturnRows(linkRows().AddRow("#PYL", int64(9), created))

		got, err := repo.Delete(context.Background(), "#PYL")
		require.NoError(t, err)
		assert.Equal(t, int64(9), got.DiscordID)
	})

	t.Run("absent", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(q).WithArgs("#PYL").WillReturnRows(linkRows())

		_, err := repo.Delete(context.Background(), "#PYL")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$1", placeholders(1))
	assert.Equal(t, "$1, $2, $3", placeholders(3))
	assert.Equal(t, "", placeholders(0))
}
