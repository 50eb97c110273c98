package transfer

import "encoding/json"

type TikTokUploadResponse struct {
	Data  TiktokPublishData `json:"data"`
	Error TiktokError       `json:"error"`
}

type TiktokPublishData struct {
	PublishID string `json:"publish_id"`
}

type TiktokError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	LogID   string `json:"log_id"`
}

type VideoPostInfo struct {
	Title        string `json:"title"`
	PrivacyLevel string `json:"privacy_level"`
}

type VideoSourceInfo struct {
	Source   string `json:"source"`
	VideoURL string `json:"video_url"`
}

type VideoUploadRequest struct {
	PostInfo   VideoPostInfo   `json:"post_info"`
	SourceInfo VideoSourceInfo `json:"source_info"`
}

type TiktokStatusRequest struct {
	PublishID string `json:"publish_id"`
}

type TiktokStatusResponse struct {
	Data struct {
		Status string `json:"status"`

		// The misspelling matches the TikTok API field name.
		PubliclyAvailablePostID []json.Number `json:"publicaly_available_post_id"`
		FailReason              string        `json:"fail_reason"`
	} `json:"data"`
	Error TiktokError `json:"error"`
}

type TiktokUserResponse struct {
	Data struct {
		User struct {
			OpenID      string `json:"open_id"`
			DisplayName string `json:"display_name"`
			Username    string `json:"username"`
		} `json:"user"`
	} `json:"data"`
}
