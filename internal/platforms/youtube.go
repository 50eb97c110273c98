package platforms

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/polaritylab/crosspost/internal/models"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

type YoutubeAdapter struct {
	client      *http.Client
	apiEndpoint string
}

func NewYoutubeAdapter(client *http.Client) *YoutubeAdapter {
	return &YoutubeAdapter{
		client:      client,
		apiEndpoint: "https://youtube.googleapis.com/",
	}
}

func (a *YoutubeAdapter) Platform() models.Platform { return models.PlatformYoutube }

func (a *YoutubeAdapter) service(ctx context.Context, accessToken string) (*youtube.Service, error) {
	authCtx := context.WithValue(ctx, oauth2.HTTPClient, a.client)
	httpClient := oauth2.NewClient(authCtx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))

	return youtube.NewService(ctx, option.WithHTTPClient(httpClient), option.WithEndpoint(a.apiEndpoint))
}

// Publish uploads the first video of the post.
func (a *YoutubeAdapter) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	videoURL := firstVideo(req.MediaURLs)
	if videoURL == "" {
		return nil, errors.New("YouTube requires a video to publish")
	}

	title := req.Title
	if title == "" {
		title = req.Content
	}

	video, contentType, err := download(ctx, a.client, videoURL)
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = "video/mp4"
	}

	svc, err := a.service(ctx, req.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("YouTube client setup failed: %w", err)
	}

	metadata := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       truncate(title, 100),
			Description: req.Content,
			CategoryId:  "22",
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           "public",
			SelfDeclaredMadeForKids: false,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}

	call := svc.Videos.Insert([]string{"snippet", "status"}, metadata)
	uploaded, err := call.Media(bytes.NewReader(video),
		googleapi.ContentType(contentType),
		googleapi.ChunkSize(googleapi.DefaultUploadChunkSize)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("YouTube upload failed: %w", err)
	}
	if uploaded.Id == "" {
		return nil, errors.New("YouTube upload failed: response has no video id")
	}

	return &PublishResult{
		NativePostID:  uploaded.Id,
		NativePostURL: "https://www.youtube.com/watch?v=" + uploaded.Id,
	}, nil
}

func (a *YoutubeAdapter) FetchAnalytics(ctx context.Context, req AnalyticsRequest) Analytics {
	svc, err := a.service(ctx, req.AccessToken)
	if err != nil {
		return Analytics{}
	}

	resp, err := svc.Videos.List([]string{"statistics"}).Id(req.NativePostID).Context(ctx).Do()
	if err != nil || len(resp.Items) == 0 || resp.Items[0].Statistics == nil {
		return Analytics{}
	}

	s := resp.Items[0].Statistics
	likes := int64(s.LikeCount)
	comments := int64(s.CommentCount)
	return Analytics{
		Impressions: int64(s.ViewCount),
		Likes:       likes,
		Comments:    comments,
		Engagements: likes + comments,
	}
}
