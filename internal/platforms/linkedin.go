package platforms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/polaritylab/crosspost/internal/models"
	"github.com/polaritylab/crosspost/internal/transfer"
)

type LinkedInAdapter struct {
	client *http.Client
	apiURL string
}

func NewLinkedInAdapter(client *http.Client) *LinkedInAdapter {
	return &LinkedInAdapter{client: client, apiURL: "https://api.linkedin.com/v2"}
}

func (a *LinkedInAdapter) Platform() models.Platform { return models.PlatformLinkedIn }

func (a *LinkedInAdapter) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if req.PlatformAccountID == "" {
		return nil, errors.New("LinkedIn publish requires the member id")
	}

	payload := transfer.LinkedInUGCPost{
		Author:         "urn:li:person:" + req.PlatformAccountID,
		LifecycleState: "PUBLISHED",
		SpecificContent: transfer.LinkedInSpecificContent{
			ShareContent: transfer.LinkedInShareContent{
				ShareCommentary:    transfer.LinkedInText{Text: req.Content},
				ShareMediaCategory: "NONE",
			},
		},
		Visibility: map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}

	httpReq, err := newJSONRequest(ctx, http.MethodPost, a.apiURL+"/ugcPosts", payload)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	body, header, err := send(a.client, withBearer(httpReq, req.AccessToken), "LinkedIn publish failed")
	if err != nil {
		return nil, err
	}

	id := header.Get("x-restli-id")
	if id == "" {
		var created transfer.GraphIDResponse
		if json.Unmarshal(body, &created) == nil {
			id = created.ID
		}
	}
	if id == "" {
		return nil, errors.New("LinkedIn publish failed: response has no post id")
	}

	return &PublishResult{
		NativePostID:  id,
		NativePostURL: fmt.Sprintf("https://www.linkedin.com/feed/update/%s/", id),
	}, nil
}

func (a *LinkedInAdapter) FetchAnalytics(ctx context.Context, req AnalyticsRequest) Analytics {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/socialActions/%s", a.apiURL, url.PathEscape(req.NativePostID)), nil)
	if err != nil {
		return Analytics{}
	}
	httpReq.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	var resp transfer.LinkedInSocialActions
	if _, err := sendJSON(a.client, withBearer(httpReq, req.AccessToken), "LinkedIn analytics failed", &resp); err != nil {
		return Analytics{}
	}

	likes := resp.LikesSummary.TotalLikes
	comments := resp.CommentsSummary.TotalFirstLevelComments
	return Analytics{
		Likes:       likes,
		Comments:    comments,
		Engagements: likes + comments,
	}
}
