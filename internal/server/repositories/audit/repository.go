// Package audit stores the append-only log of link mutations.
package audit

import (
	"context"
	"time"

	"github.com/dmitrijs2005/taglink/internal/server/models"
)

// Repository appends and reads audit entries. Entries are never updated or deleted.
type Repository interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
	ListSince(ctx context.Context, since time.Time) ([]*models.AuditEntry, error)
}
