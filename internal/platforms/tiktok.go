package platforms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/polaritylab/crosspost/internal/models"
	"github.com/polaritylab/crosspost/internal/transfer"
)

type TiktokAdapter struct {
	client *http.Client
	apiURL string
	poll   PollConfig
}

func NewTiktokAdapter(client *http.Client) *TiktokAdapter {
	return &TiktokAdapter{
		client: client,
		apiURL: "https://open.tiktokapis.com/v2",
		poll:   PollConfig{Interval: 3 * time.Second, MaxAttempts: 30, SleepFirst: true},
	}
}

func (a *TiktokAdapter) Platform() models.Platform { return models.PlatformTiktok }

func (a *TiktokAdapter) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	videoURL := firstVideo(req.MediaURLs)
	if videoURL == "" {
		return nil, errors.New("TikTok requires a video to publish")
	}

	initReq, err := newJSONRequest(ctx, http.MethodPost, a.apiURL+"/post/publish/video/init/", transfer.VideoUploadRequest{
		PostInfo: transfer.VideoPostInfo{
			Title:        truncate(req.Content, 150),
			PrivacyLevel: "SELF_ONLY",
		},
		SourceInfo: transfer.VideoSourceInfo{
			Source:   "PULL_FROM_URL",
			VideoURL: videoURL,
		},
	})
	if err != nil {
		return nil, err
	}

	var initResp transfer.TikTokUploadResponse
	if _, err := sendJSON(a.client, withBearer(initReq, req.AccessToken), "TikTok init failed", &initResp); err != nil {
		return nil, err
	}
	publishID := initResp.Data.PublishID
	if publishID == "" {
		return nil, fmt.Errorf("TikTok did not return a publish_id: %s", initResp.Error.Message)
	}

	var postID string
	err = poll(ctx, a.poll, func(ctx context.Context) (bool, error) {
		statusReq, err := newJSONRequest(ctx, http.MethodPost, a.apiURL+"/post/publish/status/fetch/",
			transfer.TiktokStatusRequest{PublishID: publishID})
		if err != nil {
			return false, err
		}
		var status transfer.TiktokStatusResponse
		if _, err := sendJSON(a.client, withBearer(statusReq, req.AccessToken), "TikTok status failed", &status); err != nil {
			return false, nil
		}
		switch status.Data.Status {
		case "PUBLISH_COMPLETE":
			if ids := status.Data.PubliclyAvailablePostID; len(ids) > 0 {
				postID = ids[0].String()
			}
			return true, nil
		case "FAILED":
			reason := status.Data.FailReason
			if reason == "" {
				reason = "unknown"
			}
			return false, fmt.Errorf("TikTok publish failed: %s", reason)
		}
		return false, nil
	})
	if errors.Is(err, ErrPollTimeout) {
		return nil, fmt.Errorf("TikTok publish status polling %w", ErrPollTimeout)
	}
	if err != nil {
		return nil, err
	}

	if postID == "" {
		// Completed but not yet public: keep the publish id for reference.
		return &PublishResult{NativePostID: publishID}, nil
	}
	return &PublishResult{
		NativePostID:  postID,
		NativePostURL: "https://www.tiktok.com/@/video/" + postID,
	}, nil
}

// firstVideo returns the first URL that looks like a video, falling back to
// the first URL.
func firstVideo(urls []string) string {
	for _, u := range urls {
		if isVideoURL(u) {
			return u
		}
	}
	if len(urls) > 0 {
		return urls[0]
	}
	return ""
}
