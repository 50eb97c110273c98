package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/polaritylab/crosspost/internal/lock"
	"github.com/polaritylab/crosspost/internal/models"
	"github.com/polaritylab/crosspost/internal/repository"
	"github.com/polaritylab/crosspost/pkg/utils"
	"golang.org/x/oauth2"
)

const tokenRefreshBuffer = 5 * time.Minute

var (
	ErrReconnectRequired  = errors.New("please reconnect")
	ErrConnectionNotFound = errors.New("platform connection not found")
)

type TokenService interface {
	// GetValidToken returns a plaintext access token for the connection,
	// refreshing it first when it expires within five minutes.
	GetValidToken(ctx context.Context, connectionID string) (string, error)
	// RefreshExpiring refreshes every connection expiring within window and
	// returns how many were refreshed.
	RefreshExpiring(ctx context.Context, window time.Duration) (int, error)
}

type tokenService struct {
	conns     repository.ConnectionRepository
	cipher    *utils.Cipher
	providers map[models.Platform]*OAuthProvider
	locker    lock.Locker
	client    *http.Client
	now       func() time.Time
}

func NewTokenService(
	conns repository.ConnectionRepository,
	cipher *utils.Cipher,
	providers map[models.Platform]*OAuthProvider,
	locker lock.Locker,
	client *http.Client) TokenService {
	return &tokenService{
		conns:     conns,
		cipher:    cipher,
		providers: providers,
		locker:    locker,
		client:    client,
		now:       time.Now,
	}
}

func (s *tokenService) GetValidToken(ctx context.Context, connectionID string) (string, error) {
	return s.ensure(ctx, connectionID, s.now().Add(tokenRefreshBuffer))
}

func (s *tokenService) RefreshExpiring(ctx context.Context, window time.Duration) (int, error) {
	deadline := s.now().Add(window)

	conns, err := s.conns.ListExpiring(ctx, deadline)
	if err != nil {
		return 0, fmt.Errorf("failed to list expiring connections: %w", err)
	}

	refreshed := 0
	for _, conn := range conns {
		if _, err := s.ensure(ctx, conn.ID, deadline); err != nil {
			slog.Error("failed to refresh token", "connection_id", conn.ID, "platform", conn.Platform, "error", err)
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

// ensure returns the stored token when it stays valid past validUntil and
// refreshes it otherwise.
func (s *tokenService) ensure(ctx context.Context, connectionID string, validUntil time.Time) (string, error) {
	conn, err := s.load(ctx, connectionID)
	if err != nil {
		return "", err
	}
	if fresh(conn, validUntil) {
		return s.cipher.Decrypt(conn.AccessToken)
	}

	unlock, err := s.locker.Lock(ctx, "token:"+connectionID)
	if err != nil {
		return "", fmt.Errorf("failed to lock connection %s: %w", connectionID, err)
	}
	defer unlock()

	// Another holder may have refreshed while we waited.
	conn, err = s.load(ctx, connectionID)
	if err != nil {
		return "", err
	}
	if fresh(conn, validUntil) {
		return s.cipher.Decrypt(conn.AccessToken)
	}

	return s.refresh(ctx, conn)
}

func (s *tokenService) load(ctx context.Context, connectionID string) (*models.PlatformConnection, error) {
	conn, err := s.conns.GetByID(ctx, connectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load connection %s: %w", connectionID, err)
	}
	if conn == nil {
		return nil, fmt.Errorf("%w: %s", ErrConnectionNotFound, connectionID)
	}
	return conn, nil
}

func fresh(conn *models.PlatformConnection, validUntil time.Time) bool {
	return conn.TokenExpiresAt == nil || conn.TokenExpiresAt.After(validUntil)
}

func (s *tokenService) refresh(ctx context.Context, conn *models.PlatformConnection) (string, error) {
	if conn.RefreshToken == nil || *conn.RefreshToken == "" {
		return "", fmt.Errorf("token expired for %s and no refresh token available: %w", conn.Platform, ErrReconnectRequired)
	}

	provider, ok := s.providers[conn.Platform]
	if !ok {
		return "", fmt.Errorf("no oauth config for platform: %s", conn.Platform)
	}

	refreshToken, err := s.cipher.Decrypt(*conn.RefreshToken)
	if err != nil {
		return "", err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	token, err := provider.Config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		slog.Error("token refresh failed", "platform", conn.Platform, "connection_id", conn.ID, "error", err)
		return "", fmt.Errorf("token refresh failed for %s: %w", conn.Platform, ErrReconnectRequired)
	}

	access, err := s.cipher.Encrypt(token.AccessToken)
	if err != nil {
		return "", err
	}

	rotated := ""
	if token.RefreshToken != "" && token.RefreshToken != refreshToken {
		rotated, err = s.cipher.Encrypt(token.RefreshToken)
		if err != nil {
			return "", err
		}
	}

	var expiresAt *time.Time
	if !token.Expiry.IsZero() {
		e := token.Expiry.UTC()
		expiresAt = &e
	}

	if err := s.conns.SetToken(ctx, conn.ID, access, rotated, expiresAt); err != nil {
		return "", fmt.Errorf("failed to store refreshed token: %w", err)
	}

	slog.Info("token refreshed", "platform", conn.Platform, "connection_id", conn.ID)
	return token.AccessToken, nil
}
