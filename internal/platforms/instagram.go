package platforms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/polaritylab/crosspost/internal/models"
	"github.com/polaritylab/crosspost/internal/transfer"
)

const instagramCarouselLimit = 10

type InstagramAdapter struct {
	client   *http.Client
	graphURL string
	poll     PollConfig
}

func NewInstagramAdapter(client *http.Client) *InstagramAdapter {
	return &InstagramAdapter{
		client:   client,
		graphURL: "https://graph.facebook.com/v21.0",
		poll:     PollConfig{Interval: 2 * time.Second, MaxAttempts: 10},
	}
}

func (a *InstagramAdapter) Platform() models.Platform { return models.PlatformInstagram }

func (a *InstagramAdapter) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if req.PlatformAccountID == "" {
		return nil, errors.New("Instagram publish requires the Instagram account id")
	}
	if len(req.MediaURLs) == 0 {
		return nil, errors.New("Instagram requires at least one image or video")
	}

	var containerID string
	var err error
	if len(req.MediaURLs) == 1 {
		params := url.Values{"caption": {req.Content}}
		if isVideoURL(req.MediaURLs[0]) {
			params.Set("media_type", "REELS")
			params.Set("video_url", req.MediaURLs[0])
		} else {
			params.Set("image_url", req.MediaURLs[0])
		}
		containerID, err = a.createContainer(ctx, req, params, "Instagram container creation failed")
	} else {
		containerID, err = a.createCarousel(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	if err := a.waitForContainer(ctx, req.AccessToken, containerID); err != nil {
		return nil, err
	}

	publishReq, err := newFormRequest(ctx, http.MethodPost,
		fmt.Sprintf("%s/%s/media_publish", a.graphURL, req.PlatformAccountID),
		url.Values{"creation_id": {containerID}, "access_token": {req.AccessToken}})
	if err != nil {
		return nil, err
	}
	var published transfer.GraphIDResponse
	if _, err := sendJSON(a.client, publishReq, "Instagram publish failed", &published); err != nil {
		return nil, err
	}
	if published.ID == "" {
		return nil, errors.New("Instagram publish failed: response has no media id")
	}

	return &PublishResult{
		NativePostID:  published.ID,
		NativePostURL: fmt.Sprintf("https://www.instagram.com/p/%s/", published.ID),
	}, nil
}

func (a *InstagramAdapter) createCarousel(ctx context.Context, req PublishRequest) (string, error) {
	urls := req.MediaURLs
	if len(urls) > instagramCarouselLimit {
		urls = urls[:instagramCarouselLimit]
	}

	children := make([]string, 0, len(urls))
	for _, mediaURL := range urls {
		params := url.Values{"is_carousel_item": {"true"}}
		if isVideoURL(mediaURL) {
			params.Set("media_type", "VIDEO")
			params.Set("video_url", mediaURL)
		} else {
			params.Set("image_url", mediaURL)
		}
		id, err := a.createContainer(ctx, req, params, "Instagram carousel item creation failed")
		if err != nil {
			return "", err
		}
		children = append(children, id)
	}

	return a.createContainer(ctx, req, url.Values{
		"media_type": {"CAROUSEL"},
		"children":   {strings.Join(children, ",")},
		"caption":    {req.Content},
	}, "Instagram carousel creation failed")
}

func (a *InstagramAdapter) createContainer(ctx context.Context, req PublishRequest, params url.Values, op string) (string, error) {
	params.Set("access_token", req.AccessToken)
	httpReq, err := newFormRequest(ctx, http.MethodPost, fmt.Sprintf("%s/%s/media", a.graphURL, req.PlatformAccountID), params)
	if err != nil {
		return "", err
	}

	var resp transfer.GraphIDResponse
	if _, err := sendJSON(a.client, httpReq, op, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("%s: response has no container id", op)
	}
	return resp.ID, nil
}

// waitForContainer polls the container until Instagram finishes processing
// it. Transient status failures are retried.
func (a *InstagramAdapter) waitForContainer(ctx context.Context, token, containerID string) error {
	q := url.Values{"fields": {"status_code"}, "access_token": {token}}
	statusURL := fmt.Sprintf("%s/%s?%s", a.graphURL, containerID, q.Encode())

	err := poll(ctx, a.poll, func(ctx context.Context) (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
		if err != nil {
			return false, err
		}
		var status transfer.InstagramContainerStatus
		if _, err := sendJSON(a.client, req, "Instagram container status failed", &status); err != nil {
			return false, nil
		}
		switch status.StatusCode {
		case "FINISHED":
			return true, nil
		case "ERROR":
			return false, errors.New("Instagram media container processing failed")
		}
		return false, nil
	})
	if errors.Is(err, ErrPollTimeout) {
		return fmt.Errorf("Instagram media container processing %w", ErrPollTimeout)
	}
	return err
}

func (a *InstagramAdapter) FetchAnalytics(ctx context.Context, req AnalyticsRequest) Analytics {
	q := url.Values{
		"metric":       {"impressions,reach,likes,comments,shares"},
		"access_token": {req.AccessToken},
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/%s/insights?%s", a.graphURL, req.NativePostID, q.Encode()), nil)
	if err != nil {
		return Analytics{}
	}

	var resp transfer.InstagramInsightsResponse
	if _, err := sendJSON(a.client, httpReq, "Instagram insights failed", &resp); err != nil {
		return Analytics{}
	}

	m := insightValues(resp.Data)
	return Analytics{
		Impressions: m["impressions"],
		Reach:       m["reach"],
		Likes:       m["likes"],
		Comments:    m["comments"],
		Shares:      m["shares"],
		Engagements: m["likes"] + m["comments"] + m["shares"],
	}
}

// insightValues flattens graph insights into metric name -> value.
func insightValues(data []transfer.GraphInsight) map[string]int64 {
	out := make(map[string]int64, len(data))
	for _, d := range data {
		switch {
		case d.TotalValue != nil:
			out[d.Name] = d.TotalValue.Value
		case len(d.Values) > 0:
			out[d.Name] = d.Values[0].Value
		}
	}
	return out
}
