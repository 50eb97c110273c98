package transfer

// GraphIDResponse is returned by container creation and publish calls of the
// Instagram and Threads graph APIs.
type GraphIDResponse struct {
	ID string `json:"id"`
}

type InstagramContainerStatus struct {
	StatusCode string `json:"status_code"`
	Status     string `json:"status"`
}

type InstagramInsightsResponse struct {
	Data []GraphInsight `json:"data"`
}

type GraphInsight struct {
	Name   string `json:"name"`
	Values []struct {
		Value int64 `json:"value"`
	} `json:"values"`
	TotalValue *struct {
		Value int64 `json:"value"`
	} `json:"total_value,omitempty"`
}

type ThreadsContainerStatus struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}
