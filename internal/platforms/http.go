package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// APIError carries the body of a non-2xx platform response.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Op, e.StatusCode, e.Body)
}

// NewHTTPClient returns the client shared by the adapters. Requests time out
// after timeout and are paced per host at rps with the given burst; rps <= 0
// disables pacing.
func NewHTTPClient(timeout time.Duration, rps float64, burst int) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: newPacedTransport(http.DefaultTransport, rps, burst),
	}
}

type pacedTransport struct {
	base  http.RoundTripper
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newPacedTransport(base http.RoundTripper, rps float64, burst int) *pacedTransport {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &pacedTransport{
		base:     base,
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (t *pacedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter(req.URL.Host).Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

func (t *pacedTransport) limiter(host string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.limiters[host]
	if !ok {
		l = rate.NewLimiter(t.limit, t.burst)
		t.limiters[host] = l
	}
	return l
}

func newJSONRequest(ctx context.Context, method, rawURL string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	return req, nil
}

func newFormRequest(ctx context.Context, method, rawURL string, form url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

func withBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// send executes req and returns the response body and headers. Non-2xx
// responses become an *APIError labelled with op.
func send(client *http.Client, req *http.Request, op string) ([]byte, http.Header, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: reading response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.Header, &APIError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return body, resp.Header, nil
}

// sendJSON is send followed by decoding the body into out.
func sendJSON(client *http.Client, req *http.Request, op string, out any) (http.Header, error) {
	body, header, err := send(client, req, op)
	if err != nil {
		return header, err
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return header, fmt.Errorf("%s: decoding response: %w", op, err)
		}
	}
	return header, nil
}

// download fetches a public media URL.
func download(ctx context.Context, client *http.Client, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	body, header, err := send(client, req, "media download failed")
	if err != nil {
		return nil, "", err
	}
	return body, header.Get("Content-Type"), nil
}

var videoExt = regexp.MustCompile(`(?i)\.(mp4|mov|avi)$`)

// isVideoURL reports whether the URL path ends in a video extension.
func isVideoURL(rawURL string) bool {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	return videoExt.MatchString(path.Base(p))
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
