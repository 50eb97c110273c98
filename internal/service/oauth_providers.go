package service

import (
	"encoding/json"
	"fmt"

	config "github.com/polaritylab/crosspost/configs"
	"github.com/polaritylab/crosspost/internal/models"
	"github.com/polaritylab/crosspost/internal/transfer"
	"golang.org/x/oauth2"
)

// OAuthProvider describes how one platform grants and refreshes tokens.
type OAuthProvider struct {
	Platform   models.Platform
	Config     *oauth2.Config
	PKCE       bool
	ProfileURL string
	AuthParams []oauth2.AuthCodeOption
}

// NewOAuthProviders builds the OAuth configuration of every platform. X wants
// client credentials in a Basic header, the others in the form body.
func NewOAuthProviders(cfg config.Config) map[models.Platform]*OAuthProvider {
	redirect := func(p models.Platform) string {
		return fmt.Sprintf("%s/auth/%s/callback", cfg.AppURL, p)
	}

	build := func(p models.Platform, app config.OAuthApp, authURL, tokenURL string, style oauth2.AuthStyle, scopes ...string) *oauth2.Config {
		return &oauth2.Config{
			ClientID:     app.ClientID,
			ClientSecret: app.ClientSecret,
			RedirectURL:  redirect(p),
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: style,
			},
		}
	}

	return map[models.Platform]*OAuthProvider{
		models.PlatformX: {
			Platform: models.PlatformX,
			Config: build(models.PlatformX, cfg.X,
				"https://twitter.com/i/oauth2/authorize",
				"https://api.twitter.com/2/oauth2/token",
				oauth2.AuthStyleInHeader,
				"tweet.read", "tweet.write", "users.read", "offline.access"),
			PKCE:       true,
			ProfileURL: "https://api.twitter.com/2/users/me",
		},
		models.PlatformInstagram: {
			Platform: models.PlatformInstagram,
			Config: build(models.PlatformInstagram, cfg.Meta,
				"https://www.facebook.com/v21.0/dialog/oauth",
				"https://graph.facebook.com/v21.0/oauth/access_token",
				oauth2.AuthStyleInParams,
				"instagram_basic", "instagram_content_publish", "pages_show_list", "pages_read_engagement"),
			ProfileURL: "https://graph.facebook.com/v21.0/me",
		},
		models.PlatformLinkedIn: {
			Platform: models.PlatformLinkedIn,
			Config: build(models.PlatformLinkedIn, cfg.LinkedIn,
				"https://www.linkedin.com/oauth/v2/authorization",
				"https://www.linkedin.com/oauth/v2/accessToken",
				oauth2.AuthStyleInParams,
				"openid", "profile", "w_member_social"),
			ProfileURL: "https://api.linkedin.com/v2/userinfo",
		},
		models.PlatformTiktok: {
			Platform: models.PlatformTiktok,
			Config: build(models.PlatformTiktok, cfg.Tiktok,
				"https://www.tiktok.com/v2/auth/authorize/",
				"https://open.tiktokapis.com/v2/oauth/token/",
				oauth2.AuthStyleInParams,
				"user.info.basic", "video.publish"),
			ProfileURL: "https://open.tiktokapis.com/v2/user/info/?fields=open_id,display_name,username",
			AuthParams: []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("client_key", cfg.Tiktok.ClientID)},
		},
		models.PlatformYoutube: {
			Platform: models.PlatformYoutube,
			Config: build(models.PlatformYoutube, cfg.Google,
				"https://accounts.google.com/o/oauth2/v2/auth",
				"https://oauth2.googleapis.com/token",
				oauth2.AuthStyleInParams,
				"https://www.googleapis.com/auth/youtube.upload", "https://www.googleapis.com/auth/youtube.readonly"),
			ProfileURL: "https://www.googleapis.com/youtube/v3/channels?part=snippet&mine=true",
			AuthParams: []oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")},
		},
		models.PlatformThreads: {
			Platform: models.PlatformThreads,
			Config: build(models.PlatformThreads, cfg.Meta,
				"https://threads.net/oauth/authorize",
				"https://graph.threads.net/oauth/access_token",
				oauth2.AuthStyleInParams,
				"threads_basic", "threads_content_publish"),
			ProfileURL: "https://graph.threads.net/v1.0/me?fields=id,username",
		},
		models.PlatformReddit: {
			Platform: models.PlatformReddit,
			Config: build(models.PlatformReddit, cfg.Reddit,
				"https://www.reddit.com/api/v1/authorize",
				"https://www.reddit.com/api/v1/access_token",
				oauth2.AuthStyleInParams,
				"identity", "submit", "read", "mysubreddits"),
			ProfileURL: "https://oauth.reddit.com/api/v1/me",
			AuthParams: []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("duration", "permanent")},
		},
	}
}

// parseProfile pulls the platform account id and display name out of a
// profile response.
func parseProfile(platform models.Platform, body []byte) (string, string, error) {
	switch platform {
	case models.PlatformX:
		var res transfer.XUserResponse
		if err := json.Unmarshal(body, &res); err != nil {
			return "", "", err
		}
		return res.Data.ID, res.Data.Username, nil

	case models.PlatformLinkedIn:
		var res transfer.LinkedInUserInfo
		if err := json.Unmarshal(body, &res); err != nil {
			return "", "", err
		}
		return res.Sub, res.Name, nil

	case models.PlatformYoutube:
		var res transfer.YoutubeChannelsResponse
		if err := json.Unmarshal(body, &res); err != nil {
			return "", "", err
		}
		if len(res.Items) == 0 {
			return "", "", nil
		}
		return res.Items[0].ID, res.Items[0].Snippet.Title, nil

	case models.PlatformTiktok:
		var res transfer.TiktokUserResponse
		if err := json.Unmarshal(body, &res); err != nil {
			return "", "", err
		}
		name := res.Data.User.Username
		if name == "" {
			name = res.Data.User.DisplayName
		}
		return res.Data.User.OpenID, name, nil

	default:
		var res struct {
			ID       string `json:"id"`
			UserID   string `json:"user_id"`
			Name     string `json:"name"`
			Username string `json:"username"`
		}
		if err := json.Unmarshal(body, &res); err != nil {
			return "", "", err
		}
		id := res.ID
		if id == "" {
			id = res.UserID
		}
		name := res.Name
		if name == "" {
			name = res.Username
		}
		return id, name, nil
	}
}
