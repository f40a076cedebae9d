package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/taglink/internal/common"
	"github.com/dmitrijs2005/taglink/internal/logging"
	sc "github.com/dmitrijs2005/taglink/internal/server/config"
	"github.com/dmitrijs2005/taglink/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// ArchiveURLValidity bounds the lifetime of presigned download links.
const ArchiveURLValidity = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Archive describes an uploaded audit export.
type Archive struct {
	Key     string `json:"key"`
	URL     string `json:"url"`
	Entries int    `json:"entries"`
}

// AuditService exports the audit log to S3-compatible object storage.
type AuditService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	logger      logging.Logger
	now         func() time.Time
}

func NewAuditService(db *sql.DB, m repomanager.RepositoryManager, cfg *sc.Config, logger logging.Logger) *AuditService {
	return &AuditService{
		db:          db,
		repomanager: m,
		config:      cfg,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *AuditService) archiveKey() string {
	d := s.now().UTC()
	return fmt.Sprintf("audit/%d/%d/%d/%v.jsonl", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *AuditService) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// Archive uploads every audit entry created at or after since as JSON lines
// and returns the object key with a presigned GET URL.
// Nothing to export yields common.ErrorNotFound.
func (s *AuditService) Archive(ctx context.Context, since time.Time) (*Archive, error) {
	entries, err := s.repomanager.Audit(s.db).ListSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("error reading audit log: %w", err)
	}
	if len(entries) == 0 {
		return nil, common.ErrorNotFound
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return nil, fmt.Errorf("error encoding audit entry: %w", err)
		}
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}

	bucket := s.config.S3Bucket
	key := s.archiveKey()

	if _, err := putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	}); err != nil {
		return nil, fmt.Errorf("error uploading archive: %w", err)
	}

	req, err := presignGetObject(s3.NewPresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(ArchiveURLValidity))
	if err != nil {
		return nil, fmt.Errorf("error presigning archive: %w", err)
	}

	s.logger.Info(ctx, "audit archived", "key", key, "entries", len(entries), "since", since)
	return &Archive{Key: key, URL: req.URL, Entries: len(entries)}, nil
}
