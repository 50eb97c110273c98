package mocks

import (
	"context"

	"github.com/polaritylab/crosspost/internal/models"
	"github.com/polaritylab/crosspost/internal/platforms"
	"github.com/stretchr/testify/mock"
)

type Adapter struct {
	mock.Mock
	Name models.Platform
}

func (m *Adapter) Platform() models.Platform {
	return m.Name
}

func (m *Adapter) Publish(ctx context.Context, req platforms.PublishRequest) (*platforms.PublishResult, error) {
	args := m.Called(ctx, req)
	return get[*platforms.PublishResult](args, 0), args.Error(1)
}

// UploadingAdapter also implements platforms.MediaUploader.
type UploadingAdapter struct {
	Adapter
}

func (m *UploadingAdapter) UploadMedia(ctx context.Context, req platforms.MediaUploadRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// AnalyticsAdapter also implements platforms.AnalyticsFetcher.
type AnalyticsAdapter struct {
	Adapter
}

func (m *AnalyticsAdapter) FetchAnalytics(ctx context.Context, req platforms.AnalyticsRequest) platforms.Analytics {
	return get[platforms.Analytics](m.Called(ctx, req), 0)
}

type Notifier struct {
	mock.Mock
}

func (m *Notifier) Notify(ctx context.Context, message string) error {
	return m.Called(ctx, message).Error(0)
}
