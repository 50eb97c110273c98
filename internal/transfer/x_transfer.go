package transfer

type XTweetRequest struct {
	Text  string       `json:"text"`
	Media *XTweetMedia `json:"media,omitempty"`
}

type XTweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type XTweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

type XMediaUploadResponse struct {
	MediaID        int64  `json:"media_id"`
	MediaIDString  string `json:"media_id_string"`
	ProcessingInfo *struct {
		State          string `json:"state"`
		CheckAfterSecs int    `json:"check_after_secs"`
	} `json:"processing_info,omitempty"`
}

type XTweetMetricsResponse struct {
	Data struct {
		ID            string `json:"id"`
		PublicMetrics struct {
			ImpressionCount int64 `json:"impression_count"`
			LikeCount       int64 `json:"like_count"`
			RetweetCount    int64 `json:"retweet_count"`
			ReplyCount      int64 `json:"reply_count"`
			QuoteCount      int64 `json:"quote_count"`
		} `json:"public_metrics"`
	} `json:"data"`
}

type XUserResponse struct {
	Data struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Name     string `json:"name"`
	} `json:"data"`
}
