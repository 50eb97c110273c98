package platforms

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/polaritylab/crosspost/internal/models"
	"github.com/polaritylab/crosspost/internal/transfer"
)

const xChunkSize = 5 * 1024 * 1024

type XAdapter struct {
	client    *http.Client
	apiURL    string
	uploadURL string
	chunkSize int
	poll      PollConfig
}

func NewXAdapter(client *http.Client) *XAdapter {
	return &XAdapter{
		client:    client,
		apiURL:    "https://api.twitter.com/2",
		uploadURL: "https://upload.twitter.com/1.1/media/upload.json",
		chunkSize: xChunkSize,
		poll:      PollConfig{Interval: 2 * time.Second, MaxAttempts: 30},
	}
}

func (a *XAdapter) Platform() models.Platform { return models.PlatformX }

func (a *XAdapter) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	payload := transfer.XTweetRequest{Text: req.Content}
	if len(req.MediaIDs) > 0 {
		payload.Media = &transfer.XTweetMedia{MediaIDs: req.MediaIDs}
	}

	httpReq, err := newJSONRequest(ctx, http.MethodPost, a.apiURL+"/tweets", payload)
	if err != nil {
		return nil, err
	}

	var resp transfer.XTweetResponse
	if _, err := sendJSON(a.client, withBearer(httpReq, req.AccessToken), "X publish failed", &resp); err != nil {
		return nil, err
	}
	if resp.Data.ID == "" {
		return nil, errors.New("X publish failed: response has no tweet id")
	}

	return &PublishResult{
		NativePostID:  resp.Data.ID,
		NativePostURL: "https://x.com/i/status/" + resp.Data.ID,
	}, nil
}

// UploadMedia runs the chunked INIT, APPEND, FINALIZE upload and returns the
// media id to attach to a tweet.
func (a *XAdapter) UploadMedia(ctx context.Context, req MediaUploadRequest) (string, error) {
	data, _, err := download(ctx, a.client, req.URL)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("X media upload failed: media is empty")
	}

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	initReq, err := newFormRequest(ctx, http.MethodPost, a.uploadURL, url.Values{
		"command":     {"INIT"},
		"total_bytes": {strconv.Itoa(len(data))},
		"media_type":  {mimeType},
	})
	if err != nil {
		return "", err
	}
	var initResp transfer.XMediaUploadResponse
	if _, err := sendJSON(a.client, withBearer(initReq, req.AccessToken), "X media init failed", &initResp); err != nil {
		return "", err
	}
	mediaID := initResp.MediaIDString
	if mediaID == "" {
		return "", errors.New("X media init failed: response has no media id")
	}

	for segment, start := 0, 0; start < len(data); segment, start = segment+1, start+a.chunkSize {
		end := min(start+a.chunkSize, len(data))
		if err := a.appendChunk(ctx, req.AccessToken, mediaID, segment, data[start:end]); err != nil {
			return "", err
		}
	}

	finReq, err := newFormRequest(ctx, http.MethodPost, a.uploadURL, url.Values{
		"command":  {"FINALIZE"},
		"media_id": {mediaID},
	})
	if err != nil {
		return "", err
	}
	var finResp transfer.XMediaUploadResponse
	if _, err := sendJSON(a.client, withBearer(finReq, req.AccessToken), "X media finalize failed", &finResp); err != nil {
		return "", err
	}

	if finResp.ProcessingInfo != nil && finResp.ProcessingInfo.State != "succeeded" {
		if err := a.waitForProcessing(ctx, req.AccessToken, mediaID); err != nil {
			return "", err
		}
	}

	return mediaID, nil
}

func (a *XAdapter) appendChunk(ctx context.Context, token, mediaID string, segment int, chunk []byte) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	_ = w.WriteField("command", "APPEND")
	_ = w.WriteField("media_id", mediaID)
	_ = w.WriteField("segment_index", strconv.Itoa(segment))
	part, err := w.CreateFormFile("media", "blob")
	if err != nil {
		return err
	}
	if _, err := part.Write(chunk); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.uploadURL, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	_, _, err = send(a.client, withBearer(req, token), fmt.Sprintf("X media append failed (segment %d)", segment))
	return err
}

// waitForProcessing polls STATUS for media that X processes asynchronously.
func (a *XAdapter) waitForProcessing(ctx context.Context, token, mediaID string) error {
	err := poll(ctx, a.poll, func(ctx context.Context) (bool, error) {
		q := url.Values{"command": {"STATUS"}, "media_id": {mediaID}}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.uploadURL+"?"+q.Encode(), nil)
		if err != nil {
			return false, err
		}
		var resp transfer.XMediaUploadResponse
		if _, err := sendJSON(a.client, withBearer(req, token), "X media status failed", &resp); err != nil {
			return false, nil
		}
		if resp.ProcessingInfo == nil {
			return true, nil
		}
		switch resp.ProcessingInfo.State {
		case "succeeded":
			return true, nil
		case "failed":
			return false, errors.New("X media processing failed")
		}
		return false, nil
	})
	if errors.Is(err, ErrPollTimeout) {
		return fmt.Errorf("X media processing %w", ErrPollTimeout)
	}
	return err
}

func (a *XAdapter) FetchAnalytics(ctx context.Context, req AnalyticsRequest) Analytics {
	q := url.Values{"tweet.fields": {"public_metrics"}}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/tweets/%s?%s", a.apiURL, url.PathEscape(req.NativePostID), q.Encode()), nil)
	if err != nil {
		return Analytics{}
	}

	var resp transfer.XTweetMetricsResponse
	if _, err := sendJSON(a.client, withBearer(httpReq, req.AccessToken), "X analytics failed", &resp); err != nil {
		return Analytics{}
	}

	m := resp.Data.PublicMetrics
	return Analytics{
		Impressions: m.ImpressionCount,
		Engagements: m.LikeCount + m.RetweetCount + m.ReplyCount,
		Likes:       m.LikeCount,
		Shares:      m.RetweetCount,
		Comments:    m.ReplyCount,
	}
}
