package platforms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/polaritylab/crosspost/internal/models"
	"github.com/polaritylab/crosspost/internal/transfer"
)

var (
	ErrRedditMissingSubreddit = errors.New("Reddit post missing subreddit")
	ErrRedditMissingTitle     = errors.New("Reddit post missing title")
)

type RedditAdapter struct {
	client    *http.Client
	apiURL    string
	userAgent string
}

func NewRedditAdapter(client *http.Client, userAgent string) *RedditAdapter {
	return &RedditAdapter{client: client, apiURL: "https://oauth.reddit.com", userAgent: userAgent}
}

func (a *RedditAdapter) Platform() models.Platform { return models.PlatformReddit }

// RedditPost is a resolved self-post.
type RedditPost struct {
	Subreddit string
	Title     string
	Body      string
}

// ResolveRedditPost prefers the structured subreddit and title and falls back
// to the content header format:
//
//	subreddit:golang
//	title:Post title
//	---
//	body
func ResolveRedditPost(req PublishRequest) (RedditPost, error) {
	if req.Target != "" {
		post := RedditPost{
			Subreddit: normalizeSubreddit(req.Target),
			Title:     strings.TrimSpace(req.Title),
			Body:      req.Content,
		}
		if post.Title == "" {
			return RedditPost{}, ErrRedditMissingTitle
		}
		return post, nil
	}
	return ParseRedditContent(req.Content)
}

func ParseRedditContent(content string) (RedditPost, error) {
	var post RedditPost
	var body []string
	inBody := false

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSuffix(line, "\r")
		switch {
		case inBody:
			body = append(body, line)
		case strings.HasPrefix(line, "subreddit:"):
			post.Subreddit = normalizeSubreddit(strings.TrimPrefix(line, "subreddit:"))
		case strings.HasPrefix(line, "title:"):
			post.Title = strings.TrimSpace(strings.TrimPrefix(line, "title:"))
		case line == "---":
			inBody = true
		}
	}
	post.Body = strings.Join(body, "\n")

	if post.Subreddit == "" {
		return RedditPost{}, ErrRedditMissingSubreddit
	}
	if post.Title == "" {
		return RedditPost{}, ErrRedditMissingTitle
	}
	return post, nil
}

func normalizeSubreddit(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "/")
	return strings.TrimPrefix(s, "r/")
}

func (a *RedditAdapter) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	post, err := ResolveRedditPost(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := newFormRequest(ctx, http.MethodPost, a.apiURL+"/api/submit", url.Values{
		"sr":       {post.Subreddit},
		"kind":     {"self"},
		"title":    {post.Title},
		"text":     {post.Body},
		"api_type": {"json"},
	})
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("User-Agent", a.userAgent)

	var resp transfer.RedditSubmitResponse
	if _, err := sendJSON(a.client, withBearer(httpReq, req.AccessToken), "Reddit publish failed", &resp); err != nil {
		return nil, err
	}
	if len(resp.JSON.Errors) > 0 {
		errs, _ := json.Marshal(resp.JSON.Errors)
		return nil, fmt.Errorf("Reddit errors: %s", errs)
	}

	data := resp.JSON.Data
	id := data.ID
	if id == "" {
		id = strings.TrimPrefix(data.Name, "t3_")
	}
	if id == "" {
		return nil, errors.New("Reddit publish failed: response has no post id")
	}

	postURL := data.URL
	if postURL == "" {
		postURL = fmt.Sprintf("https://www.reddit.com/r/%s/comments/%s/", post.Subreddit, id)
	}

	return &PublishResult{NativePostID: id, NativePostURL: postURL}, nil
}

func (a *RedditAdapter) FetchAnalytics(ctx context.Context, req AnalyticsRequest) Analytics {
	q := url.Values{"id": {"t3_" + req.NativePostID}}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.apiURL+"/api/info?"+q.Encode(), nil)
	if err != nil {
		return Analytics{}
	}
	httpReq.Header.Set("User-Agent", a.userAgent)

	var resp transfer.RedditInfoResponse
	if _, err := sendJSON(a.client, withBearer(httpReq, req.AccessToken), "Reddit analytics failed", &resp); err != nil {
		return Analytics{}
	}
	if len(resp.Data.Children) == 0 {
		return Analytics{}
	}

	p := resp.Data.Children[0].Data
	var views int64
	if p.ViewCount != nil {
		views = *p.ViewCount
	}
	return Analytics{
		Impressions: views,
		Reach:       views,
		Likes:       p.Ups,
		Comments:    p.NumComments,
		Shares:      p.NumCrossposts,
		Engagements: p.Ups + p.NumComments,
	}
}
