// Package services contains server-side business logic. This file implements
// LinkService, which resolves tags and ids and mutates the link relation
// together with its audit trail.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/taglink/internal/common"
	"github.com/dmitrijs2005/taglink/internal/dbx"
	"github.com/dmitrijs2005/taglink/internal/logging"
	"github.com/dmitrijs2005/taglink/internal/server/models"
	"github.com/dmitrijs2005/taglink/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taglink/internal/tagid"
)

// MaxBatchSize bounds the number of tokens in one batch lookup so that each
// set query stays well below the PostgreSQL bind parameter limit.
const MaxBatchSize = 1000

// BatchResult is the outcome of a batch lookup. Links may hold the same row
// twice when it was matched both by tag and by id.
type BatchResult struct {
	Links    []*models.Link   `json:"links"`
	Rejected []tagid.Rejected `json:"rejected"`
}

type LinkService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewLinkService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *LinkService {
	return &LinkService{
		db:          db,
		repomanager: m,
		logger:      logger,
	}
}

// Lookup resolves raw as a numeric id or a tag. Nothing matching is an empty
// slice, not an error. Unparseable input yields common.ErrInvalidTagSyntax.
func (s *LinkService) Lookup(ctx context.Context, raw string) ([]*models.Link, error) {
	repo := s.repomanager.Links(s.db)

	tok := tagid.Classify(raw)
	switch tok.Kind {
	case tagid.KindNumericID:
		links, err := repo.FindByDiscordID(ctx, tok.ID)
		if err != nil {
			return nil, fmt.Errorf("lookup by id: %w", err)
		}
		return links, nil

	case tagid.KindTag:
		link, err := repo.FindByTag(ctx, tok.Tag)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return []*models.Link{}, nil
			}
			return nil, fmt.Errorf("lookup by tag: %w", err)
		}
		return []*models.Link{link}, nil
	}

	return nil, tok.Err
}

// LookupBatch resolves many tokens with one tag query followed by one id query.
// Results are concatenated in that order. More than MaxBatchSize tokens is
// common.ErrBadRequest and runs no query.
func (s *LinkService) LookupBatch(ctx context.Context, raws []string) (*BatchResult, error) {
	if len(raws) > MaxBatchSize {
		return nil, fmt.Errorf("%w: batch of %d tokens exceeds %d", common.ErrBadRequest, len(raws), MaxBatchSize)
	}

	repo := s.repomanager.Links(s.db)
	batch := tagid.Partition(raws)

	result := &BatchResult{
		Links:    []*models.Link{},
		Rejected: batch.Rejected,
	}
	if result.Rejected == nil {
		result.Rejected = []tagid.Rejected{}
	}

	if len(batch.Tags) > 0 {
		byTag, err := repo.FindByTags(ctx, batch.Tags)
		if err != nil {
			return nil, fmt.Errorf("batch lookup by tag: %w", err)
		}
		result.Links = append(result.Links, byTag...)
	}

	if len(batch.IDs) > 0 {
		byID, err := repo.FindByDiscordIDs(ctx, batch.IDs)
		if err != nil {
			return nil, fmt.Errorf("batch lookup by id: %w", err)
		}
		result.Links = append(result.Links, byID...)
	}

	s.logger.Debug(ctx, "batch lookup",
		"tags", len(batch.Tags), "ids", len(batch.IDs),
		"rejected", len(batch.Rejected), "matched", len(result.Links))

	return result, nil
}

// Create links a tag to an id and records an ADD audit entry in the same
// transaction. The tag is canonicalized first.
func (s *LinkService) Create(ctx context.Context, actor, rawTag string, discordID int64) (*models.Link, error) {
	tag, err := tagid.ParseTag(rawTag)
	if err != nil {
		return nil, err
	}
	if discordID < 0 {
		return nil, fmt.Errorf("%w: negative discord id %d", common.ErrBadRequest, discordID)
	}

	link := &models.Link{Tag: tag, DiscordID: discordID}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Links(tx).Create(ctx, link); err != nil {
			return err
		}
		return s.repomanager.Audit(tx).Append(ctx, &models.AuditEntry{
			Actor:     actor,
			Activity:  models.ActivityAdd,
			Tag:       link.Tag,
			DiscordID: link.DiscordID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "link created", "tag", link.Tag, "discord_id", link.DiscordID, "actor", actor)
	return link, nil
}

// Delete removes the link of rawTag and records a DELETE audit entry in the
// same transaction. The tag is canonicalized but not validated, so a
// malformed tag is reported as common.ErrorNotFound.
func (s *LinkService) Delete(ctx context.Context, actor, rawTag string) (*models.Link, error) {
	tag := tagid.Normalize(rawTag)

	var link *models.Link
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		link, err = s.repomanager.Links(tx).Delete(ctx, tag)
		if err != nil {
			return err
		}
		return s.repomanager.Audit(tx).Append(ctx, &models.AuditEntry{
			Actor:     actor,
			Activity:  models.ActivityDelete,
			Tag:       link.Tag,
			DiscordID: link.DiscordID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "link deleted", "tag", link.Tag, "discord_id", link.DiscordID, "actor", actor)
	return link, nil
}
