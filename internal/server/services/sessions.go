package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/taglink/internal/common"
	"github.com/dmitrijs2005/taglink/internal/cryptox"
	"github.com/dmitrijs2005/taglink/internal/logging"
	"github.com/dmitrijs2005/taglink/internal/server/auth"
	"github.com/dmitrijs2005/taglink/internal/server/models"
	"github.com/dmitrijs2005/taglink/internal/server/repositories/repomanager"
)

// Session is an issued bearer token and the instant it stops being accepted.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionService authenticates accounts and issues session tokens.
type SessionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	issuer      *auth.Issuer
	logger      logging.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewSessionService(db *sql.DB, m repomanager.RepositoryManager, issuer *auth.Issuer, logger logging.Logger) *SessionService {
	return &SessionService{
		db:          db,
		repomanager: m,
		issuer:      issuer,
		logger:      logger,
	}
}

// Register hashes password and stores a new account.
func (s *SessionService) Register(ctx context.Context, username, password string) (*models.Account, error) {
	if username == "" {
		return nil, fmt.Errorf("%w: empty username", common.ErrBadRequest)
	}
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrBadRequest, err)
	}

	acc, err := s.repomanager.Accounts(s.db).Create(ctx, &models.Account{
		Username:     username,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating account: %w", err)
	}
	return acc, nil
}

// Login checks the credentials and returns a fresh Session. Every credential
// failure is reported as common.ErrorUnauthorized; the cause is only logged.
func (s *SessionService) Login(ctx context.Context, username, password string) (*Session, error) {
	acc, err := s.repomanager.Accounts(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// burn the same work as a real verification
			_, _ = cryptox.VerifyPassword(s.dummy(), password)
			s.logger.Warn(ctx, "login failed", "username", username, "reason", "unknown account")
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "login lookup failed", "username", username, "error", err)
		return nil, common.ErrorInternal
	}

	ok, err := cryptox.VerifyPassword(acc.PasswordHash, password)
	if err != nil {
		s.logger.Warn(ctx, "login failed", "username", username, "reason", "stored hash unreadable", "error", err)
		return nil, common.ErrorUnauthorized
	}
	if !ok {
		s.logger.Warn(ctx, "login failed", "username", username, "reason", "wrong password")
		return nil, common.ErrorUnauthorized
	}

	token, exp, err := s.issuer.Issue(acc.Username)
	if err != nil {
		s.logger.Error(ctx, "token issue failed", "username", username, "error", err)
		return nil, common.ErrorInternal
	}

	s.logger.Info(ctx, "session issued", "username", acc.Username, "expires_at", exp)
	return &Session{Token: token, ExpiresAt: exp}, nil
}

// Authenticate verifies a bearer token and returns the account name it was
// issued to. Errors are common.ErrInvalidToken or common.ErrTokenExpired.
func (s *SessionService) Authenticate(token string) (string, error) {
	claims, err := s.issuer.Verify(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (s *SessionService) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := cryptox.HashPassword(string(common.GenerateRandByteArray(16)) + "x")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}
