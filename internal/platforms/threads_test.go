package platforms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreadsTextOnlyPublish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/u1/threads":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "TEXT", r.PostForm.Get("media_type"))
			assert.Equal(t, "hello threads", r.PostForm.Get("text"))
			assert.Empty(t, r.PostForm.Get("image_url"))
			_, _ = w.Write([]byte(`{"id":"c9"}`))
		case "/c9":
			_, _ = w.Write([]byte(`{"status":"FINISHED"}`))
		case "/u1/threads_publish":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "c9", r.PostForm.Get("creation_id"))
			_, _ = w.Write([]byte(`{"id":"t1"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	a := NewThreadsAdapter(srv.Client())
	a.graphURL = srv.URL
	a.poll = PollConfig{Interval: time.Millisecond, MaxAttempts: 3}

	res, err := a.Publish(context.Background(), PublishRequest{Content: "hello threads", AccessToken: "tok", PlatformAccountID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "t1", res.NativePostID)
	assert.Equal(t, "https://www.threads.net/post/t1", res.NativePostURL)
}

func TestThreadsImagePublishAndError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/me/threads":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "IMAGE", r.PostForm.Get("media_type"))
			assert.Equal(t, "https://cdn.example.com/a.png", r.PostForm.Get("image_url"))
			_, _ = w.Write([]byte(`{"id":"c1"}`))
		case "/c1":
			_, _ = w.Write([]byte(`{"status":"ERROR","error_message":"bad media"}`))
		}
	}))
	defer srv.Close()

	a := NewThreadsAdapter(srv.Client())
	a.graphURL = srv.URL
	a.poll = PollConfig{Interval: time.Millisecond, MaxAttempts: 3}

	_, err := a.Publish(context.Background(), PublishRequest{
		Content: "x", AccessToken: "tok", MediaURLs: []string{"https://cdn.example.com/a.png"},
	})
	assert.EqualError(t, err, "Threads container processing failed: bad media")
}
