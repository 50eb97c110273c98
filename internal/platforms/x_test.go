package platforms

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestXAdapter(srv *httptest.Server) *XAdapter {
	a := NewXAdapter(srv.Client())
	a.apiURL = srv.URL + "/2"
	a.uploadURL = srv.URL + "/1.1/media/upload.json"
	a.poll = PollConfig{Interval: time.Millisecond, MaxAttempts: 3}
	return a
}

func TestXPublishWithMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/tweets", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["text"])
		assert.Equal(t, []any{"m1", "m2"}, body["media"].(map[string]any)["media_ids"])

		_, _ = w.Write([]byte(`{"data":{"id":"123","text":"hello"}}`))
	}))
	defer srv.Close()

	res, err := newTestXAdapter(srv).Publish(context.Background(), PublishRequest{
		Content:     "hello",
		AccessToken: "tok",
		MediaIDs:    []string{"m1", "m2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "123", res.NativePostID)
	assert.Equal(t, "https://x.com/i/status/123", res.NativePostURL)
}

func TestXPublishWithoutMediaOmitsMediaField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		assert.NotContains(t, string(raw), "media")
		_, _ = w.Write([]byte(`{"data":{"id":"9"}}`))
	}))
	defer srv.Close()

	_, err := newTestXAdapter(srv).Publish(context.Background(), PublishRequest{Content: "plain", AccessToken: "tok"})
	require.NoError(t, err)
}

func TestXPublishErrorCarriesUpstreamBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"detail":"duplicate content"}`))
	}))
	defer srv.Close()

	_, err := newTestXAdapter(srv).Publish(context.Background(), PublishRequest{Content: "x", AccessToken: "tok"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "X publish failed")
	assert.Contains(t, err.Error(), "duplicate content")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}

func TestXUploadMediaChunks(t *testing.T) {
	media := strings.Repeat("a", 25)

	var mu sync.Mutex
	var commands []string
	var segments []string
	var received strings.Builder

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/media/photo.png" {
			_, _ = w.Write([]byte(media))
			return
		}
		assert.Equal(t, "/1.1/media/upload.json", r.URL.Path)

		mu.Lock()
		defer mu.Unlock()

		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			commands = append(commands, r.FormValue("command"))
			segments = append(segments, r.FormValue("segment_index"))
			assert.Equal(t, "777", r.FormValue("media_id"))
			f, _, err := r.FormFile("media")
			require.NoError(t, err)
			chunk, _ := io.ReadAll(f)
			received.Write(chunk)
			w.WriteHeader(http.StatusNoContent)
			return
		}

		require.NoError(t, r.ParseForm())
		cmd := r.PostForm.Get("command")
		commands = append(commands, cmd)
		switch cmd {
		case "INIT":
			assert.Equal(t, "25", r.PostForm.Get("total_bytes"))
			assert.Equal(t, "image/png", r.PostForm.Get("media_type"))
			_, _ = w.Write([]byte(`{"media_id":777,"media_id_string":"777"}`))
		case "FINALIZE":
			_, _ = w.Write([]byte(`{"media_id":777,"media_id_string":"777"}`))
		default:
			t.Fatalf("unexpected command %q", cmd)
		}
	}))
	defer srv.Close()

	a := newTestXAdapter(srv)
	a.chunkSize = 10

	id, err := a.UploadMedia(context.Background(), MediaUploadRequest{
		AccessToken: "tok",
		URL:         srv.URL + "/media/photo.png",
		MimeType:    "image/png",
	})
	require.NoError(t, err)
	assert.Equal(t, "777", id)
	assert.Equal(t, []string{"INIT", "APPEND", "APPEND", "APPEND", "FINALIZE"}, commands)
	assert.Equal(t, []string{"0", "1", "2"}, segments)
	assert.Equal(t, media, received.String())
}

func TestXUploadMediaDefaultsMimeType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte("img"))
			return
		}
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_ = r.ParseForm()
		if r.PostForm.Get("command") == "INIT" {
			assert.Equal(t, "image/jpeg", r.PostForm.Get("media_type"))
		}
		_, _ = w.Write([]byte(`{"media_id_string":"1"}`))
	}))
	defer srv.Close()

	_, err := newTestXAdapter(srv).UploadMedia(context.Background(), MediaUploadRequest{AccessToken: "tok", URL: srv.URL + "/a"})
	require.NoError(t, err)
}

func TestXAnalytics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/tweets/55", r.URL.Path)
		assert.Equal(t, "public_metrics", r.URL.Query().Get("tweet.fields"))
		_, _ = w.Write([]byte(`{"data":{"id":"55","public_metrics":{"impression_count":100,"like_count":7,"retweet_count":2,"reply_count":1}}}`))
	}))
	defer srv.Close()

	got := newTestXAdapter(srv).FetchAnalytics(context.Background(), AnalyticsRequest{AccessToken: "tok", NativePostID: "55"})
	assert.Equal(t, Analytics{Impressions: 100, Engagements: 10, Likes: 7, Shares: 2, Comments: 1}, got)
}

func TestAnalyticsFailureIsZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	req := AnalyticsRequest{AccessToken: "tok", NativePostID: "1"}
	assert.Equal(t, Analytics{}, newTestXAdapter(srv).FetchAnalytics(context.Background(), req))

	li := NewLinkedInAdapter(srv.Client())
	li.apiURL = srv.URL
	assert.Equal(t, Analytics{}, li.FetchAnalytics(context.Background(), req))

	rd := NewRedditAdapter(srv.Client(), "ua")
	rd.apiURL = srv.URL
	assert.Equal(t, Analytics{}, rd.FetchAnalytics(context.Background(), req))

	yt := NewYoutubeAdapter(srv.Client())
	yt.apiEndpoint = srv.URL + "/"
	assert.Equal(t, Analytics{}, yt.FetchAnalytics(context.Background(), req))
}
