package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/polaritylab/crosspost/internal/models"
	"github.com/polaritylab/crosspost/internal/repository"
	"github.com/polaritylab/crosspost/pkg/utils"
)

const maxApiKeys = 5

var ErrKeyNotFound = errors.New("api key not found")

type ApiKeyService interface {
	Create(ctx context.Context, userID string) (*models.ApiKey, error)
	List(ctx context.Context, userID string) ([]*models.ApiKey, error)
	GetUserID(ctx context.Context, apiKey string) (string, error)
	RemoveAPIKey(ctx context.Context, userID, keyID string) error
}

type apiKeyService struct {
	k repository.ApiKeyRepository
}

func NewApiKeyService(k repository.ApiKeyRepository) ApiKeyService {
	return &apiKeyService{
		k: k,
	}
}

func (s *apiKeyService) Create(ctx context.Context, userID string) (*models.ApiKey, error) {
	keys, err := s.k.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing api keys: %w", err)
	}
	if len(keys) >= maxApiKeys {
		slog.Info("api key limit reached", "user_id", userID)
		return nil, invalid("only %d api keys can be created", maxApiKeys)
	}

	key, err := utils.GenerateAPIKey(24)
	if err != nil {
		return nil, fmt.Errorf("error generating api key: %w", err)
	}

	apiKey := &models.ApiKey{
		UserID: userID,
		ApiKey: key,
	}

	apiKey.ID, err = s.k.Create(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("error saving api key: %w", err)
	}
	return apiKey, nil
}

func (s *apiKeyService) GetUserID(ctx context.Context, apiKey string) (string, error) {
	userID, isExist, err := s.k.GetByKey(ctx, apiKey)
	if err != nil {
		return "", fmt.Errorf("error looking up api key: %w", err)
	}
	if !isExist {
		return "", ErrKeyNotFound
	}

	return userID, nil
}

func (s *apiKeyService) List(ctx context.Context, userID string) ([]*models.ApiKey, error) {
	apiKeys, err := s.k.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing api keys: %w", err)
	}
	if apiKeys == nil {
		apiKeys = []*models.ApiKey{}
	}
	return apiKeys, nil
}

func (s *apiKeyService) RemoveAPIKey(ctx context.Context, userID, keyID string) error {
	if keyID == "" {
		return invalid("api key id is required")
	}

	owned, err := s.k.CheckByUserID(ctx, keyID, userID)
	if err != nil {
		return fmt.Errorf("error checking api key: %w", err)
	}
	if !owned {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, keyID)
	}

	return s.k.Remove(ctx, keyID)
}
