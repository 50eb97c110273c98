package platforms

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/polaritylab/crosspost/internal/models"
)

var ErrUnknownPlatform = errors.New("unknown platform")

type PublishRequest struct {
	Content           string
	Title             string
	Target            string
	AccessToken       string
	PlatformAccountID string
	MediaIDs          []string
	MediaURLs         []string
}

type PublishResult struct {
	NativePostID  string `json:"native_post_id"`
	NativePostURL string `json:"native_post_url"`
}

type MediaUploadRequest struct {
	AccessToken       string
	PlatformAccountID string
	URL               string
	MimeType          string
}

type AnalyticsRequest struct {
	AccessToken       string
	PlatformAccountID string
	NativePostID      string
}

// Analytics is the metric shape shared by every platform. Metrics a platform
// does not report stay zero.
type Analytics struct {
	Impressions int64 `json:"impressions"`
	Engagements int64 `json:"engagements"`
	Clicks      int64 `json:"clicks"`
	Likes       int64 `json:"likes"`
	Shares      int64 `json:"shares"`
	Comments    int64 `json:"comments"`
	Reach       int64 `json:"reach"`
}

// Adapter publishes a post to one platform.
type Adapter interface {
	Platform() models.Platform
	Publish(ctx context.Context, req PublishRequest) (*PublishResult, error)
}

// MediaUploader is implemented by adapters that take platform media ids
// instead of public media URLs.
type MediaUploader interface {
	UploadMedia(ctx context.Context, req MediaUploadRequest) (string, error)
}

// AnalyticsFetcher is implemented by adapters that can report post metrics.
// Failures are reported as zero metrics.
type AnalyticsFetcher interface {
	FetchAnalytics(ctx context.Context, req AnalyticsRequest) Analytics
}

type Registry struct {
	adapters map[models.Platform]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.Platform]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Platform()] = a
	}
	return r
}

// NewDefaultRegistry wires every supported platform onto client.
func NewDefaultRegistry(client *http.Client, redditUserAgent string) *Registry {
	return NewRegistry(
		NewXAdapter(client),
		NewInstagramAdapter(client),
		NewLinkedInAdapter(client),
		NewTiktokAdapter(client),
		NewYoutubeAdapter(client),
		NewThreadsAdapter(client),
		NewRedditAdapter(client, redditUserAgent),
	)
}

func (r *Registry) Get(platform models.Platform) (Adapter, error) {
	a, ok := r.adapters[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, platform)
	}
	return a, nil
}
