package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	config "github.com/polaritylab/crosspost/configs"
	"github.com/polaritylab/crosspost/internal/models"
	"github.com/polaritylab/crosspost/internal/repository"
	"github.com/polaritylab/crosspost/pkg/utils"
	"golang.org/x/oauth2"
)

const stateTokenDuration = 10 * time.Minute

var (
	ErrInvalidState       = errors.New("invalid oauth state")
	ErrPlatformNotEnabled = errors.New("platform is not configured")
)

type ConnectionService interface {
	// AuthURL returns the consent page URL of the platform and, for PKCE
	// platforms, the verifier the callback must present.
	AuthURL(ctx context.Context, userID string, platform models.Platform) (string, string, error)
	Callback(ctx context.Context, platform models.Platform, code, state, verifier string) (*models.PlatformConnection, error)
	List(ctx context.Context, userID string) ([]*models.PlatformConnection, error)
	Disconnect(ctx context.Context, userID, connectionID string) error
}

type connectionService struct {
	cfg       config.Config
	providers map[models.Platform]*OAuthProvider
	conns     repository.ConnectionRepository
	cipher    *utils.Cipher
	client    *http.Client
}

func NewConnectionService(
	cfg config.Config,
	providers map[models.Platform]*OAuthProvider,
	conns repository.ConnectionRepository,
	cipher *utils.Cipher,
	client *http.Client) ConnectionService {
	return &connectionService{
		cfg:       cfg,
		providers: providers,
		conns:     conns,
		cipher:    cipher,
		client:    client,
	}
}

func (s *connectionService) provider(platform models.Platform) (*OAuthProvider, error) {
	p, ok := s.providers[platform]
	if !ok || p.Config.ClientID == "" {
		return nil, fmt.Errorf("%w: %s", ErrPlatformNotEnabled, platform)
	}
	return p, nil
}

func (s *connectionService) AuthURL(ctx context.Context, userID string, platform models.Platform) (string, string, error) {
	p, err := s.provider(platform)
	if err != nil {
		slog.Info(err.Error())
		return "", "", err
	}

	state, err := utils.GenerateStateToken(s.cfg.SecretKey, userID, string(platform), stateTokenDuration)
	if err != nil {
		return "", "", err
	}

	opts := append([]oauth2.AuthCodeOption{}, p.AuthParams...)
	verifier := ""
	if p.PKCE {
		verifier = oauth2.GenerateVerifier()
		opts = append(opts, oauth2.S256ChallengeOption(verifier))
	}

	return p.Config.AuthCodeURL(state, opts...), verifier, nil
}

func (s *connectionService) Callback(ctx context.Context, platform models.Platform, code, state, verifier string) (*models.PlatformConnection, error) {
	if code == "" || state == "" {
		err := errors.New("code or state is empty")
		slog.Info(err.Error())
		return nil, err
	}

	claims, err := utils.ValidateToken(s.cfg.SecretKey, state)
	if err != nil || claims.Platform != string(platform) || claims.UserID == "" {
		return nil, ErrInvalidState
	}

	p, err := s.provider(platform)
	if err != nil {
		return nil, err
	}

	var opts []oauth2.AuthCodeOption
	if p.PKCE {
		if verifier == "" {
			return nil, fmt.Errorf("%w: missing code verifier", ErrInvalidState)
		}
		opts = append(opts, oauth2.VerifierOption(verifier))
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	token, err := p.Config.Exchange(ctx, code, opts...)
	if err != nil {
		slog.Error("token exchange failed", "platform", platform, "error", err)
		return nil, fmt.Errorf("token exchange failed for %s: %w", platform, err)
	}

	accountID, username := s.profile(ctx, p, token.AccessToken)

	access, err := s.cipher.Encrypt(token.AccessToken)
	if err != nil {
		return nil, err
	}

	conn := &models.PlatformConnection{
		UserID:            claims.UserID,
		Platform:          platform,
		PlatformAccountID: accountID,
		AccessToken:       access,
		Scopes:            strings.Join(p.Config.Scopes, " "),
	}
	if username != "" {
		conn.PlatformUsername = &username
	}
	if token.RefreshToken != "" {
		refresh, err := s.cipher.Encrypt(token.RefreshToken)
		if err != nil {
			return nil, err
		}
		conn.RefreshToken = &refresh
	}
	if !token.Expiry.IsZero() {
		e := token.Expiry.UTC()
		conn.TokenExpiresAt = &e
	}

	conn.ID, err = s.conns.Upsert(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("error saving connection: %w", err)
	}

	slog.Info("platform connected", "platform", platform, "user_id", claims.UserID, "account_id", accountID)
	return conn, nil
}

// profile looks up the account behind the token. A failed lookup still lets
// the connection through under the "unknown" account id.
func (s *connectionService) profile(ctx context.Context, p *OAuthProvider, accessToken string) (string, string) {
	accountID, username := "unknown", ""
	if p.ProfileURL == "" {
		return accountID, username
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.ProfileURL, nil)
	if err != nil {
		return accountID, username
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	res, err := s.client.Do(req)
	if err != nil {
		slog.Warn("profile lookup failed", "platform", p.Platform, "error", err)
		return accountID, username
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil || res.StatusCode != http.StatusOK {
		slog.Warn("profile lookup failed", "platform", p.Platform, "status", res.StatusCode)
		return accountID, username
	}

	id, name, err := parseProfile(p.Platform, body)
	if err != nil {
		slog.Warn("unexpected profile response", "platform", p.Platform, "error", err)
		return accountID, username
	}
	if id != "" {
		accountID = id
	}
	return accountID, name
}

func (s *connectionService) List(ctx context.Context, userID string) ([]*models.PlatformConnection, error) {
	if userID == "" {
		return nil, invalid("user id is required")
	}

	conns, err := s.conns.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting platform connections: %w", err)
	}
	if conns == nil {
		conns = []*models.PlatformConnection{}
	}
	return conns, nil
}

func (s *connectionService) Disconnect(ctx context.Context, userID, connectionID string) error {
	isValid, err := s.conns.CheckByUserID(ctx, connectionID, userID)
	if err != nil {
		return err
	}
	if !isValid {
		return fmt.Errorf("%w: %s", ErrConnectionNotFound, connectionID)
	}

	if err := s.conns.Remove(ctx, connectionID); err != nil {
		return fmt.Errorf("error removing connection: %w", err)
	}
	return nil
}
