package transfer

type LinkedInUGCPost struct {
	Author          string                  `json:"author"`
	LifecycleState  string                  `json:"lifecycleState"`
	SpecificContent LinkedInSpecificContent `json:"specificContent"`
	Visibility      map[string]string       `json:"visibility"`
}

type LinkedInSpecificContent struct {
	ShareContent LinkedInShareContent `json:"com.linkedin.ugc.ShareContent"`
}

type LinkedInShareContent struct {
	ShareCommentary    LinkedInText `json:"shareCommentary"`
	ShareMediaCategory string       `json:"shareMediaCategory"`
}

type LinkedInText struct {
	Text string `json:"text"`
}

type LinkedInSocialActions struct {
	LikesSummary struct {
		TotalLikes int64 `json:"totalLikes"`
	} `json:"likesSummary"`
	CommentsSummary struct {
		TotalFirstLevelComments int64 `json:"totalFirstLevelComments"`
	} `json:"commentsSummary"`
}

type LinkedInUserInfo struct {
	Sub  string `json:"sub"`
	Name string `json:"name"`
}
