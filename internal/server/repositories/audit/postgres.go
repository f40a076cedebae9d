package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/taglink/internal/dbx"
	"github.com/dmitrijs2005/taglink/internal/server/models"
	"github.com/google/uuid"
)

// PostgresRepository implements Repository over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Append inserts entry, assigning an ID when it has none.
func (r *PostgresRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	query := `
		INSERT INTO audit_log (id, actor, activity, tag, discord_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		entry.ID, entry.Actor, string(entry.Activity), entry.Tag, entry.DiscordID).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListSince returns entries created at or after since, oldest first.
func (r *PostgresRepository) ListSince(ctx context.Context, since time.Time) ([]*models.AuditEntry, error) {
	query := `
		SELECT id, actor, activity, tag, discord_id, created_at
		FROM audit_log
		WHERE created_at >= $1
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var activity string
		if err := rows.Scan(&e.ID, &e.Actor, &activity, &e.Tag, &e.DiscordID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		e.Activity = models.Activity(activity)
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}
