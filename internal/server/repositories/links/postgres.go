package links

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/taglink/internal/common"
	"github.com/dmitrijs2005/taglink/internal/dbx"
	"github.com/dmitrijs2005/taglink/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByDiscordID(ctx context.Context, id int64) ([]*models.Link, error) {
	query := `
		SELECT tag, discord_id, created_at
		FROM links
		WHERE discord_id = $1
		ORDER BY tag
	`
	return r.query(ctx, query, id)
}

func (r *PostgresRepository) FindByTag(ctx context.Context, tag string) (*models.Link, error) {
	query := `
		SELECT tag, discord_id, created_at
		FROM links
		WHERE tag = $1
	`
	link := &models.Link{}
	err := r.db.QueryRowContext(ctx, query, tag).Scan(&link.Tag, &link.DiscordID, &link.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return link, nil
}

func (r *PostgresRepository) FindByTags(ctx context.Context, tags []string) ([]*models.Link, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	args := make([]any, len(tags))
	for i, t := range tags {
		args[i] = t
	}
	query := `
		SELECT tag, discord_id, created_at
		FROM links
		WHERE tag IN (` + placeholders(len(tags)) + `)
		ORDER BY tag
	`
	return r.query(ctx, query, args...)
}

func (r *PostgresRepository) FindByDiscordIDs(ctx context.Context, ids []int64) ([]*models.Link, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `
		SELECT tag, discord_id, created_at
		FROM links
		WHERE discord_id IN (` + placeholders(len(ids)) + `)
		ORDER BY discord_id, tag
	`
	return r.query(ctx, query, args...)
}

func (r *PostgresRepository) Create(ctx context.Context, link *models.Link) error {
	query := `
		INSERT INTO links (tag, discord_id)
		VALUES ($1, $2)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query, link.Tag, link.DiscordID).Scan(&link.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("tag %s: %w", link.Tag, common.ErrAlreadyExists)
		}
		return fmt.Errorf("%w: %w", common.ErrBadRequest, err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, tag string) (*models.Link, error) {
	query := `
		DELETE FROM links
		WHERE tag = $1
		RETURNING tag, discord_id, created_at
	`
	link := &models.Link{}
	err := r.db.QueryRowContext(ctx, query, tag).Scan(&link.Tag, &link.DiscordID, &link.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return link, nil
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.Link, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Link, 0)
	for rows.Next() {
		var link models.Link
		if err := rows.Scan(&link.Tag, &link.DiscordID, &link.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		result = append(result, &link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}

// placeholders renders "$1, $2, ..., $n".
func placeholders(n int) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		if i > 1 {
			sb.WriteString(", ")
		}
		sb.WriteByte('$')
		sb.WriteString(strconv.Itoa(i))
	}
	return sb.String()
}
