package platforms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/polaritylab/crosspost/internal/models"
	"github.com/polaritylab/crosspost/internal/transfer"
)

type ThreadsAdapter struct {
	client   *http.Client
	graphURL string
	poll     PollConfig
}

func NewThreadsAdapter(client *http.Client) *ThreadsAdapter {
	return &ThreadsAdapter{
		client:   client,
		graphURL: "https://graph.threads.net/v1.0",
		poll:     PollConfig{Interval: 2 * time.Second, MaxAttempts: 10},
	}
}

func (a *ThreadsAdapter) Platform() models.Platform { return models.PlatformThreads }

func (a *ThreadsAdapter) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	userID := req.PlatformAccountID
	if userID == "" {
		userID = "me"
	}

	params := url.Values{
		"text":         {req.Content},
		"media_type":   {"TEXT"},
		"access_token": {req.AccessToken},
	}
	if len(req.MediaURLs) > 0 {
		if isVideoURL(req.MediaURLs[0]) {
			params.Set("media_type", "VIDEO")
			params.Set("video_url", req.MediaURLs[0])
		} else {
			params.Set("media_type", "IMAGE")
			params.Set("image_url", req.MediaURLs[0])
		}
	}

	createReq, err := newFormRequest(ctx, http.MethodPost, fmt.Sprintf("%s/%s/threads", a.graphURL, userID), params)
	if err != nil {
		return nil, err
	}
	var container transfer.GraphIDResponse
	if _, err := sendJSON(a.client, createReq, "Threads container creation failed", &container); err != nil {
		return nil, err
	}
	if container.ID == "" {
		return nil, errors.New("Threads container creation failed: response has no container id")
	}

	if err := a.waitForContainer(ctx, req.AccessToken, container.ID); err != nil {
		return nil, err
	}

	publishReq, err := newFormRequest(ctx, http.MethodPost, fmt.Sprintf("%s/%s/threads_publish", a.graphURL, userID),
		url.Values{"creation_id": {container.ID}, "access_token": {req.AccessToken}})
	if err != nil {
		return nil, err
	}
	var published transfer.GraphIDResponse
	if _, err := sendJSON(a.client, publishReq, "Threads publish failed", &published); err != nil {
		return nil, err
	}
	if published.ID == "" {
		return nil, errors.New("Threads publish failed: response has no thread id")
	}

	return &PublishResult{
		NativePostID:  published.ID,
		NativePostURL: "https://www.threads.net/post/" + published.ID,
	}, nil
}

func (a *ThreadsAdapter) waitForContainer(ctx context.Context, token, containerID string) error {
	q := url.Values{"fields": {"status,error_message"}, "access_token": {token}}
	statusURL := fmt.Sprintf("%s/%s?%s", a.graphURL, containerID, q.Encode())

	err := poll(ctx, a.poll, func(ctx context.Context) (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
		if err != nil {
			return false, err
		}
		var status transfer.ThreadsContainerStatus
		if _, err := sendJSON(a.client, req, "Threads container status failed", &status); err != nil {
			return false, nil
		}
		switch status.Status {
		case "FINISHED":
			return true, nil
		case "ERROR":
			if status.ErrorMessage != "" {
				return false, fmt.Errorf("Threads container processing failed: %s", status.ErrorMessage)
			}
			return false, errors.New("Threads container processing failed")
		}
		return false, nil
	})
	if errors.Is(err, ErrPollTimeout) {
		return fmt.Errorf("Threads container processing %w", ErrPollTimeout)
	}
	return err
}

func (a *ThreadsAdapter) FetchAnalytics(ctx context.Context, req AnalyticsRequest) Analytics {
	q := url.Values{
		"metric":       {"views,likes,replies,reposts"},
		"access_token": {req.AccessToken},
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/%s/insights?%s", a.graphURL, req.NativePostID, q.Encode()), nil)
	if err != nil {
		return Analytics{}
	}

	var resp transfer.InstagramInsightsResponse
	if _, err := sendJSON(a.client, httpReq, "Threads insights failed", &resp); err != nil {
		return Analytics{}
	}

	m := insightValues(resp.Data)
	return Analytics{
		Impressions: m["views"],
		Likes:       m["likes"],
		Comments:    m["replies"],
		Shares:      m["reposts"],
		Engagements: m["likes"] + m["replies"] + m["reposts"],
	}
}
