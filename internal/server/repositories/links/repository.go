// Package links declares the repository contract for the tag <-> id relation
// and its PostgreSQL implementation.
package links

import (
	"context"

	"github.com/dmitrijs2005/taglink/internal/server/models"
)

// Repository defines lookups and mutations of links.
type Repository interface {
	// FindByDiscordID returns every link of the id, ordered by tag. No rows is not an error.
	FindByDiscordID(ctx context.Context, id int64) ([]*models.Link, error)

	// FindByTag returns the link with the canonical tag or common.ErrorNotFound.
	FindByTag(ctx context.Context, tag string) (*models.Link, error)

	// FindByTags returns links whose tag is in tags. Empty input runs no query.
	FindByTags(ctx context.Context, tags []string) ([]*models.Link, error)

	// FindByDiscordIDs returns links whose id is in ids. Empty input runs no query.
	FindByDiscordIDs(ctx context.Context, ids []int64) ([]*models.Link, error)

	// Create inserts a link. A taken tag yields common.ErrAlreadyExists, any
	// other storage failure common.ErrBadRequest.
	Create(ctx context.Context, link *models.Link) error

	// Delete removes the link with the canonical tag and returns it, or
	// common.ErrorNotFound when there is none.
	Delete(ctx context.Context, tag string) (*models.Link, error)
}
