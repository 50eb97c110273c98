package platforms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInstagramAdapter(srv *httptest.Server) *InstagramAdapter {
	a := NewInstagramAdapter(srv.Client())
	a.graphURL = srv.URL
	a.poll = PollConfig{Interval: time.Millisecond, MaxAttempts: 10}
	return a
}

func TestInstagramRequiresMediaBeforeAnyCall(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	_, err := newTestInstagramAdapter(srv).Publish(context.Background(), PublishRequest{
		Content:           "caption",
		AccessToken:       "tok",
		PlatformAccountID: "ig1",
	})
	require.EqualError(t, err, "Instagram requires at least one image or video")
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestInstagramSingleImagePublish(t *testing.T) {
	var statusChecks int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/ig1/media":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "https://cdn.example.com/a.jpg", r.PostForm.Get("image_url"))
			assert.Equal(t, "caption", r.PostForm.Get("caption"))
			assert.Equal(t, "tok", r.PostForm.Get("access_token"))
			_, _ = w.Write([]byte(`{"id":"c1"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/c1":
			assert.Equal(t, "status_code", r.URL.Query().Get("fields"))
			if atomic.AddInt32(&statusChecks, 1) < 3 {
				_, _ = w.Write([]byte(`{"status_code":"IN_PROGRESS"}`))
				return
			}
			_, _ = w.Write([]byte(`{"status_code":"FINISHED"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/ig1/media_publish":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "c1", r.PostForm.Get("creation_id"))
			_, _ = w.Write([]byte(`{"id":"p1"}`))
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	res, err := newTestInstagramAdapter(srv).Publish(context.Background(), PublishRequest{
		Content:           "caption",
		AccessToken:       "tok",
		PlatformAccountID: "ig1",
		MediaURLs:         []string{"https://cdn.example.com/a.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", res.NativePostID)
	assert.Equal(t, "https://www.instagram.com/p/p1/", res.NativePostURL)
	assert.Equal(t, int32(3), atomic.LoadInt32(&statusChecks))
}

func TestInstagramCarouselCapsAtTen(t *testing.T) {
	var children int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/ig1/media":
			require.NoError(t, r.ParseForm())
			if r.PostForm.Get("is_carousel_item") == "true" {
				atomic.AddInt32(&children, 1)
				_, _ = w.Write([]byte(`{"id":"child"}`))
				return
			}
			assert.Equal(t, "CAROUSEL", r.PostForm.Get("media_type"))
			assert.Len(t, strings.Split(r.PostForm.Get("children"), ","), 10)
			_, _ = w.Write([]byte(`{"id":"carousel"}`))
		case r.URL.Path == "/carousel":
			_, _ = w.Write([]byte(`{"status_code":"FINISHED"}`))
		case r.URL.Path == "/ig1/media_publish":
			_, _ = w.Write([]byte(`{"id":"p2"}`))
		}
	}))
	defer srv.Close()

	urls := make([]string, 12)
	for i := range urls {
		urls[i] = "https://cdn.example.com/img.png"
	}

	res, err := newTestInstagramAdapter(srv).Publish(context.Background(), PublishRequest{
		Content: "c", AccessToken: "tok", PlatformAccountID: "ig1", MediaURLs: urls,
	})
	require.NoError(t, err)
	assert.Equal(t, "p2", res.NativePostID)
	assert.Equal(t, int32(10), atomic.LoadInt32(&children))
}

func TestInstagramContainerErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"id":"c1"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status_code":"ERROR"}`))
	}))
	defer srv.Close()

	_, err := newTestInstagramAdapter(srv).Publish(context.Background(), PublishRequest{
		AccessToken: "tok", PlatformAccountID: "ig1", MediaURLs: []string{"https://cdn.example.com/v.mp4"},
	})
	assert.EqualError(t, err, "Instagram media container processing failed")
}

func TestInstagramContainerTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			_, _ = w.Write([]byte(`{"id":"c1"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status_code":"IN_PROGRESS"}`))
	}))
	defer srv.Close()

	_, err := newTestInstagramAdapter(srv).Publish(context.Background(), PublishRequest{
		AccessToken: "tok", PlatformAccountID: "ig1", MediaURLs: []string{"https://cdn.example.com/a.jpg"},
	})
	assert.ErrorIs(t, err, ErrPollTimeout)
	assert.Contains(t, err.Error(), "timed out")
}

func TestInstagramContainerCreationFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid image"}}`))
	}))
	defer srv.Close()

	_, err := newTestInstagramAdapter(srv).Publish(context.Background(), PublishRequest{
		AccessToken: "tok", PlatformAccountID: "ig1", MediaURLs: []string{"https://cdn.example.com/a.jpg"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid image")
}

func TestInstagramAnalytics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/p1/insights", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[
			{"name":"impressions","values":[{"value":50}]},
			{"name":"reach","values":[{"value":40}]},
			{"name":"likes","values":[{"value":5}]},
			{"name":"comments","values":[{"value":2}]},
			{"name":"shares","total_value":{"value":1}}
		]}`))
	}))
	defer srv.Close()

	got := newTestInstagramAdapter(srv).FetchAnalytics(context.Background(), AnalyticsRequest{AccessToken: "tok", NativePostID: "p1"})
	assert.Equal(t, Analytics{Impressions: 50, Reach: 40, Likes: 5, Comments: 2, Shares: 1, Engagements: 8}, got)
}
