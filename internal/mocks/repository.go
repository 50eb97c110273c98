package mocks

import (
	"context"
	"database/sql"
	"time"

	"github.com/polaritylab/crosspost/internal/models"
	"github.com/stretchr/testify/mock"
)

type PostRepository struct {
	mock.Mock
}

func (m *PostRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (string, error) {
	args := m.Called(ctx, tx, post)
	return args.String(0), args.Error(1)
}

func (m *PostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	args := m.Called(ctx, id)
	return get[*models.Post](args, 0), args.Error(1)
}

func (m *PostRepository) List(ctx context.Context, userID string, filter models.PostFilter) ([]*models.Post, error) {
	args := m.Called(ctx, userID, filter)
	return get[[]*models.Post](args, 0), args.Error(1)
}

func (m *PostRepository) CheckByUserID(ctx context.Context, postID, userID string) (bool, error) {
	args := m.Called(ctx, postID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *PostRepository) Update(ctx context.Context, tx *sql.Tx, post *models.Post) error {
	return m.Called(ctx, tx, post).Error(0)
}

func (m *PostRepository) ClaimForPublishing(ctx context.Context, id string, from []models.PostStatus, staleBefore time.Time) (bool, error) {
	args := m.Called(ctx, id, from, staleBefore)
	return args.Bool(0), args.Error(1)
}

func (m *PostRepository) FinishPublishing(ctx context.Context, id string, status models.PostStatus, publishedAt *time.Time, lastError *string) error {
	return m.Called(ctx, id, status, publishedAt, lastError).Error(0)
}

func (m *PostRepository) ListDue(ctx context.Context, now, staleBefore time.Time, maxRetries, limit int) ([]*models.Post, error) {
	args := m.Called(ctx, now, staleBefore, maxRetries, limit)
	return get[[]*models.Post](args, 0), args.Error(1)
}

func (m *PostRepository) RecordRetry(ctx context.Context, id string, retryCount int, status models.PostStatus, lastError string) error {
	return m.Called(ctx, id, retryCount, status, lastError).Error(0)
}

func (m *PostRepository) CountByStatus(ctx context.Context, userID string) (map[string]int, error) {
	args := m.Called(ctx, userID)
	return get[map[string]int](args, 0), args.Error(1)
}

func (m *PostRepository) Remove(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type PostPlatformRepository struct {
	mock.Mock
}

func (m *PostPlatformRepository) Create(ctx context.Context, tx *sql.Tx, pp *models.PostPlatform) (string, error) {
	args := m.Called(ctx, tx, pp)
	return args.String(0), args.Error(1)
}

func (m *PostPlatformRepository) ListByPostID(ctx context.Context, postID string) ([]*models.PostPlatform, error) {
	args := m.Called(ctx, postID)
	return get[[]*models.PostPlatform](args, 0), args.Error(1)
}

func (m *PostPlatformRepository) ListByPostIDs(ctx context.Context, postIDs []string) (map[string][]*models.PostPlatform, error) {
	args := m.Called(ctx, postIDs)
	return get[map[string][]*models.PostPlatform](args, 0), args.Error(1)
}

func (m *PostPlatformRepository) MarkPublishing(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *PostPlatformRepository) MarkPublished(ctx context.Context, id, connectionID, nativeID, nativeURL string, at time.Time) error {
	return m.Called(ctx, id, connectionID, nativeID, nativeURL, at).Error(0)
}

func (m *PostPlatformRepository) MarkFailed(ctx context.Context, id, message string) error {
	return m.Called(ctx, id, message).Error(0)
}

func (m *PostPlatformRepository) RemoveByPlatform(ctx context.Context, tx *sql.Tx, postID string, platform models.Platform) error {
	return m.Called(ctx, tx, postID, platform).Error(0)
}

func (m *PostPlatformRepository) SetTarget(ctx context.Context, tx *sql.Tx, postID string, platform models.Platform, target *string) error {
	return m.Called(ctx, tx, postID, platform, target).Error(0)
}

func (m *PostPlatformRepository) ListPublishedByUser(ctx context.Context, userID string) ([]*models.PublishedTarget, error) {
	args := m.Called(ctx, userID)
	return get[[]*models.PublishedTarget](args, 0), args.Error(1)
}

type ConnectionRepository struct {
	mock.Mock
}

func (m *ConnectionRepository) Upsert(ctx context.Context, conn *models.PlatformConnection) (string, error) {
	args := m.Called(ctx, conn)
	return args.String(0), args.Error(1)
}

func (m *ConnectionRepository) GetByID(ctx context.Context, id string) (*models.PlatformConnection, error) {
	args := m.Called(ctx, id)
	return get[*models.PlatformConnection](args, 0), args.Error(1)
}

func (m *ConnectionRepository) GetByUserAndPlatform(ctx context.Context, userID string, platform models.Platform) (*models.PlatformConnection, error) {
	args := m.Called(ctx, userID, platform)
	return get[*models.PlatformConnection](args, 0), args.Error(1)
}

func (m *ConnectionRepository) ListByUserID(ctx context.Context, userID string) ([]*models.PlatformConnection, error) {
	args := m.Called(ctx, userID)
	return get[[]*models.PlatformConnection](args, 0), args.Error(1)
}

func (m *ConnectionRepository) ListExpiring(ctx context.Context, before time.Time) ([]*models.PlatformConnection, error) {
	args := m.Called(ctx, before)
	return get[[]*models.PlatformConnection](args, 0), args.Error(1)
}

func (m *ConnectionRepository) SetToken(ctx context.Context, id, accessToken, refreshToken string, expiresAt *time.Time) error {
	return m.Called(ctx, id, accessToken, refreshToken, expiresAt).Error(0)
}

func (m *ConnectionRepository) CheckByUserID(ctx context.Context, connID, userID string) (bool, error) {
	args := m.Called(ctx, connID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ConnectionRepository) Remove(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MediaRepository struct {
	mock.Mock
}

func (m *MediaRepository) Create(ctx context.Context, media *models.Media) (string, error) {
	args := m.Called(ctx, media)
	return args.String(0), args.Error(1)
}

func (m *MediaRepository) GetByID(ctx context.Context, id string) (*models.Media, error) {
	args := m.Called(ctx, id)
	return get[*models.Media](args, 0), args.Error(1)
}

func (m *MediaRepository) ListByPostID(ctx context.Context, postID string) ([]*models.Media, error) {
	args := m.Called(ctx, postID)
	return get[[]*models.Media](args, 0), args.Error(1)
}

func (m *MediaRepository) ListByUserID(ctx context.Context, userID string) ([]*models.Media, error) {
	args := m.Called(ctx, userID)
	return get[[]*models.Media](args, 0), args.Error(1)
}

func (m *MediaRepository) AttachToPost(ctx context.Context, tx *sql.Tx, mediaID, userID, postID string) error {
	return m.Called(ctx, tx, mediaID, userID, postID).Error(0)
}

func (m *MediaRepository) Remove(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type AnalyticsRepository struct {
	mock.Mock
}

func (m *AnalyticsRepository) CreateSnapshot(ctx context.Context, snap *models.AnalyticsSnapshot) (string, error) {
	args := m.Called(ctx, snap)
	return args.String(0), args.Error(1)
}

func (m *AnalyticsRepository) AggregateByPlatform(ctx context.Context, userID string) ([]*models.PlatformTotals, error) {
	args := m.Called(ctx, userID)
	return get[[]*models.PlatformTotals](args, 0), args.Error(1)
}

func (m *AnalyticsRepository) Timeline(ctx context.Context, userID string, days int) ([]*models.TimelinePoint, error) {
	args := m.Called(ctx, userID, days)
	return get[[]*models.TimelinePoint](args, 0), args.Error(1)
}

type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	return get[*models.User](args, 0), args.Error(1)
}

func (m *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	return get[*models.User](args, 0), args.Error(1)
}

func (m *UserRepository) Create(ctx context.Context, tx *sql.Tx, user *models.User) (string, error) {
	args := m.Called(ctx, tx, user)
	return args.String(0), args.Error(1)
}

func (m *UserRepository) Update(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *UserRepository) Remove(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type ApiKeyRepository struct {
	mock.Mock
}

func (m *ApiKeyRepository) GetByKey(ctx context.Context, apiKey string) (string, bool, error) {
	args := m.Called(ctx, apiKey)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *ApiKeyRepository) GetByUserID(ctx context.Context, userID string) ([]*models.ApiKey, error) {
	args := m.Called(ctx, userID)
	return get[[]*models.ApiKey](args, 0), args.Error(1)
}

func (m *ApiKeyRepository) Create(ctx context.Context, apiKey *models.ApiKey) (string, error) {
	args := m.Called(ctx, apiKey)
	return args.String(0), args.Error(1)
}

func (m *ApiKeyRepository) CheckByUserID(ctx context.Context, keyID, userID string) (bool, error) {
	args := m.Called(ctx, keyID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ApiKeyRepository) Remove(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
