package transfer

type RedditSubmitResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
		Data   struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"data"`
	} `json:"json"`
}

type RedditInfoResponse struct {
	Data struct {
		Children []struct {
			Data struct {
				Ups           int64  `json:"ups"`
				NumComments   int64  `json:"num_comments"`
				NumCrossposts int64  `json:"num_crossposts"`
				ViewCount     *int64 `json:"view_count"`
				Permalink     string `json:"permalink"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}
