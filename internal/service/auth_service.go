package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	config "github.com/polaritylab/crosspost/configs"
	"github.com/polaritylab/crosspost/internal/models"
	"github.com/polaritylab/crosspost/internal/repository"
	"github.com/polaritylab/crosspost/internal/transfer"
	"github.com/polaritylab/crosspost/pkg/utils"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	loginState        = "login"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v1/userinfo"
)

type AuthService interface {
	LoginURL() (string, error)
	LoginCallback(ctx context.Context, code, state string) (string, error)
}

type authService struct {
	cfg         config.Config
	u           repository.UserRepository
	oauth       *oauth2.Config
	userInfoURL string
}

func NewAuthService(cfg config.Config, u repository.UserRepository) AuthService {
	return &authService{
		cfg: cfg,
		u:   u,
		oauth: &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.AppURL + "/login/callback",
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
	}
}

func (s *authService) LoginURL() (string, error) {
	if s.oauth.ClientID == "" || s.oauth.ClientSecret == "" {
		err := errors.New("OAuth2 configuration is incomplete")
		slog.Info(err.Error())
		return "", err
	}

	state, err := utils.GenerateStateToken(s.cfg.SecretKey, "", loginState, stateTokenDuration)
	if err != nil {
		return "", err
	}
	return s.oauth.AuthCodeURL(state), nil
}

func (s *authService) LoginCallback(ctx context.Context, code, state string) (string, error) {
	if code == "" || state == "" {
		err := errors.New("code or state is empty")
		slog.Info(err.Error())
		return "", err
	}

	claims, err := utils.ValidateToken(s.cfg.SecretKey, state)
	if err != nil || claims.Platform != loginState {
		return "", ErrInvalidState
	}

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	userInfo, err := s.getUserInfo(s.oauth.Client(ctx, token))
	if err != nil {
		return "", err
	}

	user, err := s.u.GetByEmail(ctx, userInfo.Email)
	if err != nil {
		return "", err
	}

	if user != nil && user.GoogleID != "" {
		return user.ID, nil
	}

	if user != nil {
		user.GoogleID = userInfo.ID
		user.Name = userInfo.Name
		user.ProfilePicture = userInfo.Picture
		if err := s.u.Update(ctx, user); err != nil {
			return "", err
		}
		return user.ID, nil
	}

	userID, err := s.u.Create(ctx, nil, &models.User{
		GoogleID:       userInfo.ID,
		Email:          userInfo.Email,
		Name:           userInfo.Name,
		ProfilePicture: userInfo.Picture,
	})
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return userID, nil
}

func (s *authService) getUserInfo(client *http.Client) (*transfer.GoogleUserInfo, error) {
	response, err := client.Get(s.userInfoURL)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error fetching user info: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		slog.Info("Unexpected response status")
		return nil, fmt.Errorf("unexpected response status: %d", response.StatusCode)
	}

	var userInfo transfer.GoogleUserInfo
	if err := json.NewDecoder(response.Body).Decode(&userInfo); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("error decoding user info: %w", err)
	}

	return &userInfo, nil
}
