package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	config "github.com/polaritylab/crosspost/configs"
	"github.com/polaritylab/crosspost/internal/mocks"
	"github.com/polaritylab/crosspost/internal/models"
	"github.com/polaritylab/crosspost/internal/platforms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubTokens struct {
	tokens map[string]string
	err    error
}

func (s *stubTokens) GetValidToken(_ context.Context, connectionID string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.tokens[connectionID], nil
}

func (s *stubTokens) RefreshExpiring(context.Context, time.Duration) (int, error) {
	return 0, nil
}

type publisherFixture struct {
	posts   *mocks.PostRepository
	targets *mocks.PostPlatformRepository
	conns   *mocks.ConnectionRepository
	media   *mocks.MediaRepository
	tokens  *stubTokens
}

func newPublisherFixture() *publisherFixture {
	return &publisherFixture{
		posts:   new(mocks.PostRepository),
		targets: new(mocks.PostPlatformRepository),
		conns:   new(mocks.ConnectionRepository),
		media:   new(mocks.MediaRepository),
		tokens:  &stubTokens{tokens: map[string]string{}},
	}
}

func (f *publisherFixture) service(adapters ...platforms.Adapter) PublisherService {
	cfg := config.Publish{TargetTimeout: time.Minute, StaleAfter: 30 * time.Minute}
	return NewPublisherService(cfg, f.posts, f.targets, f.conns, f.media, f.tokens, platforms.NewRegistry(adapters...))
}

func (f *publisherFixture) connect(platform models.Platform, connID, token string) {
	f.conns.On("GetByUserAndPlatform", mock.Anything, "user-1", platform).Return(&models.PlatformConnection{
		ID:                connID,
		UserID:            "user-1",
		Platform:          platform,
		PlatformAccountID: "acct-" + string(platform),
	}, nil)
	f.tokens.tokens[connID] = token
}

func basePost() *models.Post {
	return &models.Post{ID: "post-1", UserID: "user-1", Content: "hello world", Status: models.PostStatusScheduled}
}

func target(id string, platform models.Platform, pos int) *models.PostPlatform {
	return &models.PostPlatform{ID: id, PostID: "post-1", Platform: platform, Position: pos, Status: models.TargetStatusPending}
}

func TestPublishPostAllSucceed(t *testing.T) {
	f := newPublisherFixture()
	f.posts.On("GetByID", mock.Anything, "post-1").Return(basePost(), nil)
	f.targets.On("ListByPostID", mock.Anything, "post-1").Return([]*models.PostPlatform{
		target("pp-x", models.PlatformX, 0),
		target("pp-li", models.PlatformLinkedIn, 1),
	}, nil)
	f.media.On("ListByPostID", mock.Anything, "post-1").Return(nil, nil)
	f.posts.On("ClaimForPublishing", mock.Anything, "post-1", manualPublishFrom, mock.Anything).Return(true, nil)
	f.connect(models.PlatformX, "conn-x", "tok-x")
	f.connect(models.PlatformLinkedIn, "conn-li", "tok-li")

	x := &mocks.Adapter{Name: models.PlatformX}
	x.On("Publish", mock.Anything, mock.MatchedBy(func(r platforms.PublishRequest) bool {
		return r.AccessToken == "tok-x" && r.Content == "hello world" && r.PlatformAccountID == "acct-x"
	})).Return(&platforms.PublishResult{NativePostID: "111", NativePostURL: "https://x.com/i/status/111"}, nil)

	li := &mocks.Adapter{Name: models.PlatformLinkedIn}
	li.On("Publish", mock.Anything, mock.Anything).Return(&platforms.PublishResult{NativePostID: "urn:li:share:1"}, nil)

	f.targets.On("MarkPublishing", mock.Anything, mock.Anything).Return(nil)
	f.targets.On("MarkPublished", mock.Anything, "pp-x", "conn-x", "111", "https://x.com/i/status/111", mock.Anything).Return(nil).Once()
	f.targets.On("MarkPublished", mock.Anything, "pp-li", "conn-li", "urn:li:share:1", "", mock.Anything).Return(nil).Once()
	f.posts.On("FinishPublishing", mock.Anything, "post-1", models.PostStatusPublished,
		mock.MatchedBy(func(at *time.Time) bool { return at != nil }),
		(*string)(nil)).Return(nil)

	res, err := f.service(x, li).PublishPost(context.Background(), "post-1")
	require.NoError(t, err)

	assert.True(t, res.AllSucceeded)
	assert.True(t, res.AnySucceeded)
	assert.Empty(t, res.Errors)
	f.targets.AssertExpectations(t)
	f.posts.AssertExpectations(t)
	x.AssertExpectations(t)
	li.AssertExpectations(t)
}

func TestPublishPostPartialSuccessMarksPublished(t *testing.T) {
	f := newPublisherFixture()
	f.posts.On("GetByID", mock.Anything, "post-1").Return(basePost(), nil)
	f.targets.On("ListByPostID", mock.Anything, "post-1").Return([]*models.PostPlatform{
		target("pp-x", models.PlatformX, 0),
		target("pp-ig", models.PlatformInstagram, 1),
	}, nil)
	f.media.On("ListByPostID", mock.Anything, "post-1").Return(nil, nil)
	f.posts.On("ClaimForPublishing", mock.Anything, "post-1", manualPublishFrom, mock.Anything).Return(true, nil)
	f.connect(models.PlatformX, "conn-x", "tok-x")
	f.connect(models.PlatformInstagram, "conn-ig", "tok-ig")

	x := &mocks.Adapter{Name: models.PlatformX}
	x.On("Publish", mock.Anything, mock.Anything).Return(&platforms.PublishResult{NativePostID: "111"}, nil)

	const igErr = "Instagram requires at least one image or video"
	f.targets.On("MarkPublishing", mock.Anything, mock.Anything).Return(nil)
	f.targets.On("MarkPublished", mock.Anything, "pp-x", "conn-x", "111", "", mock.Anything).Return(nil)
	f.targets.On("MarkFailed", mock.Anything, "pp-ig", igErr).Return(nil)
	f.posts.On("FinishPublishing", mock.Anything, "post-1", models.PostStatusPublished,
		mock.MatchedBy(func(at *time.Time) bool { return at != nil }),
		mock.MatchedBy(func(msg *string) bool { return msg != nil && *msg == "instagram: "+igErr })).Return(nil)

	svc := f.service(x, platforms.NewInstagramAdapter(http.DefaultClient))
	res, err := svc.PublishPost(context.Background(), "post-1")
	require.NoError(t, err)

	assert.False(t, res.AllSucceeded)
	assert.True(t, res.AnySucceeded)
	assert.Equal(t, []string{"instagram: " + igErr}, res.Errors)
	f.targets.AssertExpectations(t)
	f.posts.AssertExpectations(t)
}

func TestPublishPostAllFail(t *testing.T) {
	f := newPublisherFixture()
	f.posts.On("GetByID", mock.Anything, "post-1").Return(basePost(), nil)
	f.targets.On("ListByPostID", mock.Anything, "post-1").Return([]*models.PostPlatform{
		target("pp-li", models.PlatformLinkedIn, 0),
		target("pp-th", models.PlatformThreads, 1),
	}, nil)
	f.media.On("ListByPostID", mock.Anything, "post-1").Return(nil, nil)
	f.posts.On("ClaimForPublishing", mock.Anything, "post-1", manualPublishFrom, mock.Anything).Return(true, nil)
	f.conns.On("GetByUserAndPlatform", mock.Anything, "user-1", models.PlatformLinkedIn).Return(nil, nil)
	f.connect(models.PlatformThreads, "conn-th", "tok-th")
	f.tokens.err = errors.New("token expired for threads and no refresh token available: please reconnect")

	f.targets.On("MarkPublishing", mock.Anything, mock.Anything).Return(nil)
	f.targets.On("MarkFailed", mock.Anything, "pp-li", "no linkedin connection found").Return(nil)
	f.targets.On("MarkFailed", mock.Anything, "pp-th", f.tokens.err.Error()).Return(nil)
	f.posts.On("FinishPublishing", mock.Anything, "post-1", models.PostStatusFailed, (*time.Time)(nil),
		mock.MatchedBy(func(msg *string) bool {
			return msg != nil && *msg == "linkedin: no linkedin connection found; threads: "+f.tokens.err.Error()
		})).Return(nil)

	res, err := f.service(&mocks.Adapter{Name: models.PlatformLinkedIn}, &mocks.Adapter{Name: models.PlatformThreads}).
		PublishPost(context.Background(), "post-1")
	require.NoError(t, err)

	assert.False(t, res.AllSucceeded)
	assert.False(t, res.AnySucceeded)
	assert.Len(t, res.Errors, 2)
	f.targets.AssertExpectations(t)
	f.posts.AssertExpectations(t)
}

func TestPublishPostUploadsMediaWhenSupported(t *testing.T) {
	f := newPublisherFixture()
	f.posts.On("GetByID", mock.Anything, "post-1").Return(basePost(), nil)
	f.targets.On("ListByPostID", mock.Anything, "post-1").Return([]*models.PostPlatform{
		target("pp-x", models.PlatformX, 0),
		target("pp-ig", models.PlatformInstagram, 1),
	}, nil)
	f.media.On("ListByPostID", mock.Anything, "post-1").Return([]*models.Media{
		{ID: "m-1", URL: "https://cdn.example.com/a.png", MimeType: "image/png"},
		{ID: "m-2", URL: "https://cdn.example.com/b"},
	}, nil)
	f.posts.On("ClaimForPublishing", mock.Anything, "post-1", manualPublishFrom, mock.Anything).Return(true, nil)
	f.connect(models.PlatformX, "conn-x", "tok-x")
	f.connect(models.PlatformInstagram, "conn-ig", "tok-ig")

	x := &mocks.UploadingAdapter{Adapter: mocks.Adapter{Name: models.PlatformX}}
	x.On("UploadMedia", mock.Anything, platforms.MediaUploadRequest{
		AccessToken: "tok-x", PlatformAccountID: "acct-x", URL: "https://cdn.example.com/a.png", MimeType: "image/png",
	}).Return("media-1", nil)
	x.On("UploadMedia", mock.Anything, platforms.MediaUploadRequest{
		AccessToken: "tok-x", PlatformAccountID: "acct-x", URL: "https://cdn.example.com/b", MimeType: "image/jpeg",
	}).Return("media-2", nil)
	x.On("Publish", mock.Anything, mock.MatchedBy(func(r platforms.PublishRequest) bool {
		return assert.ObjectsAreEqual([]string{"media-1", "media-2"}, r.MediaIDs) && len(r.MediaURLs) == 0
	})).Return(&platforms.PublishResult{NativePostID: "1"}, nil)

	ig := &mocks.Adapter{Name: models.PlatformInstagram}
	ig.On("Publish", mock.Anything, mock.MatchedBy(func(r platforms.PublishRequest) bool {
		return assert.ObjectsAreEqual([]string{"https://cdn.example.com/a.png", "https://cdn.example.com/b"}, r.MediaURLs) &&
			len(r.MediaIDs) == 0
	})).Return(&platforms.PublishResult{NativePostID: "2"}, nil)

	f.targets.On("MarkPublishing", mock.Anything, mock.Anything).Return(nil)
	f.targets.On("MarkPublished", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.posts.On("FinishPublishing", mock.Anything, "post-1", models.PostStatusPublished, mock.Anything, (*string)(nil)).Return(nil)

	res, err := f.service(x, ig).PublishPost(context.Background(), "post-1")
	require.NoError(t, err)
	assert.True(t, res.AllSucceeded)
	x.AssertExpectations(t)
	ig.AssertExpectations(t)
}

func TestPublishPostPassesTitleAndTarget(t *testing.T) {
	f := newPublisherFixture()
	post := basePost()
	title := "Launch day"
	post.Title = &title
	sub := "golang"
	reddit := target("pp-r", models.PlatformReddit, 0)
	reddit.Target = &sub

	f.posts.On("GetByID", mock.Anything, "post-1").Return(post, nil)
	f.targets.On("ListByPostID", mock.Anything, "post-1").Return([]*models.PostPlatform{reddit}, nil)
	f.media.On("ListByPostID", mock.Anything, "post-1").Return(nil, nil)
	f.posts.On("ClaimForPublishing", mock.Anything, "post-1", manualPublishFrom, mock.Anything).Return(true, nil)
	f.connect(models.PlatformReddit, "conn-r", "tok-r")

	a := &mocks.Adapter{Name: models.PlatformReddit}
	a.On("Publish", mock.Anything, mock.MatchedBy(func(r platforms.PublishRequest) bool {
		return r.Title == "Launch day" && r.Target == "golang"
	})).Return(&platforms.PublishResult{NativePostID: "t3_abc"}, nil)

	f.targets.On("MarkPublishing", mock.Anything, "pp-r").Return(nil)
	f.targets.On("MarkPublished", mock.Anything, "pp-r", "conn-r", "t3_abc", "", mock.Anything).Return(nil)
	f.posts.On("FinishPublishing", mock.Anything, "post-1", models.PostStatusPublished, mock.Anything, (*string)(nil)).Return(nil)

	_, err := f.service(a).PublishPost(context.Background(), "post-1")
	require.NoError(t, err)
	a.AssertExpectations(t)
}

func TestPublishPostFatalErrors(t *testing.T) {
	t.Run("missing post", func(t *testing.T) {
		f := newPublisherFixture()
		f.posts.On("GetByID", mock.Anything, "post-1").Return(nil, nil)

		_, err := f.service().PublishPost(context.Background(), "post-1")
		assert.ErrorIs(t, err, ErrPostNotFound)
	})

	t.Run("no targets", func(t *testing.T) {
		f := newPublisherFixture()
		f.posts.On("GetByID", mock.Anything, "post-1").Return(basePost(), nil)
		f.targets.On("ListByPostID", mock.Anything, "post-1").Return(nil, nil)

		_, err := f.service().PublishPost(context.Background(), "post-1")
		assert.ErrorIs(t, err, ErrNoTargets)
		f.posts.AssertNotCalled(t, "ClaimForPublishing", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("already publishing", func(t *testing.T) {
		f := newPublisherFixture()
		f.posts.On("GetByID", mock.Anything, "post-1").Return(basePost(), nil)
		f.targets.On("ListByPostID", mock.Anything, "post-1").Return([]*models.PostPlatform{target("pp-x", models.PlatformX, 0)}, nil)
		f.media.On("ListByPostID", mock.Anything, "post-1").Return(nil, nil)
		f.posts.On("ClaimForPublishing", mock.Anything, "post-1", manualPublishFrom, mock.Anything).Return(false, nil)

		_, err := f.service().PublishPost(context.Background(), "post-1")
		assert.ErrorIs(t, err, ErrPublishInProgress)
		f.targets.AssertNotCalled(t, "MarkPublishing", mock.Anything, mock.Anything)
	})
}

func TestPublishDueSkipsPublishedTargets(t *testing.T) {
	f := newPublisherFixture()
	post := basePost()
	post.Status = models.PostStatusPublishing
	done := target("pp-x", models.PlatformX, 0)
	done.Status = models.TargetStatusPublished

	f.posts.On("GetByID", mock.Anything, "post-1").Return(post, nil)
	f.targets.On("ListByPostID", mock.Anything, "post-1").Return([]*models.PostPlatform{
		done,
		target("pp-li", models.PlatformLinkedIn, 1),
	}, nil)
	f.media.On("ListByPostID", mock.Anything, "post-1").Return(nil, nil)
	f.posts.On("ClaimForPublishing", mock.Anything, "post-1", []models.PostStatus{models.PostStatusScheduled}, mock.Anything).
		Return(true, nil)
	f.connect(models.PlatformLinkedIn, "conn-li", "tok-li")

	x := &mocks.Adapter{Name: models.PlatformX}
	li := &mocks.Adapter{Name: models.PlatformLinkedIn}
	li.On("Publish", mock.Anything, mock.Anything).Return(&platforms.PublishResult{NativePostID: "urn:li:share:2"}, nil)

	f.targets.On("MarkPublishing", mock.Anything, "pp-li").Return(nil)
	f.targets.On("MarkPublished", mock.Anything, "pp-li", "conn-li", "urn:li:share:2", "", mock.Anything).Return(nil)
	f.posts.On("FinishPublishing", mock.Anything, "post-1", models.PostStatusPublished, mock.Anything, (*string)(nil)).Return(nil)

	res, err := f.service(x, li).PublishDue(context.Background(), "post-1")
	require.NoError(t, err)

	assert.True(t, res.AllSucceeded)
	x.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	f.targets.AssertNotCalled(t, "MarkPublishing", mock.Anything, "pp-x")
	f.posts.AssertExpectations(t)
}

func TestPublishPostRecordsTargetOutsideTargetTimeout(t *testing.T) {
	f := newPublisherFixture()
	f.posts.On("GetByID", mock.Anything, "post-1").Return(basePost(), nil)
	f.targets.On("ListByPostID", mock.Anything, "post-1").Return([]*models.PostPlatform{target("pp-x", models.PlatformX, 0)}, nil)
	f.media.On("ListByPostID", mock.Anything, "post-1").Return(nil, nil)
	f.posts.On("ClaimForPublishing", mock.Anything, "post-1", manualPublishFrom, mock.Anything).Return(true, nil)
	f.connect(models.PlatformX, "conn-x", "tok-x")

	withDeadline := mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	})
	noDeadline := mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return !ok
	})

	x := &mocks.Adapter{Name: models.PlatformX}
	x.On("Publish", withDeadline, mock.Anything).Return(&platforms.PublishResult{NativePostID: "111"}, nil)

	f.targets.On("MarkPublishing", noDeadline, "pp-x").Return(nil)
	f.targets.On("MarkPublished", noDeadline, "pp-x", "conn-x", "111", "", mock.Anything).Return(nil)
	f.posts.On("FinishPublishing", mock.Anything, "post-1", models.PostStatusPublished, mock.Anything, (*string)(nil)).Return(nil)

	_, err := f.service(x).PublishPost(context.Background(), "post-1")
	require.NoError(t, err)
	x.AssertExpectations(t)
	f.targets.AssertExpectations(t)
}

func TestPublishPostKeepsLiveTargetWhenRecordFails(t *testing.T) {
	f := newPublisherFixture()
	f.posts.On("GetByID", mock.Anything, "post-1").Return(basePost(), nil)
	f.targets.On("ListByPostID", mock.Anything, "post-1").Return([]*models.PostPlatform{target("pp-x", models.PlatformX, 0)}, nil)
	f.media.On("ListByPostID", mock.Anything, "post-1").Return(nil, nil)
	f.posts.On("ClaimForPublishing", mock.Anything, "post-1", manualPublishFrom, mock.Anything).Return(true, nil)
	f.connect(models.PlatformX, "conn-x", "tok-x")

	x := &mocks.Adapter{Name: models.PlatformX}
	x.On("Publish", mock.Anything, mock.Anything).Return(&platforms.PublishResult{NativePostID: "111"}, nil)

	f.targets.On("MarkPublishing", mock.Anything, "pp-x").Return(nil)
	f.targets.On("MarkPublished", mock.Anything, "pp-x", "conn-x", "111", "", mock.Anything).Return(errors.New("conn reset"))
	f.posts.On("FinishPublishing", mock.Anything, "post-1", models.PostStatusPublished, mock.Anything, (*string)(nil)).Return(nil)

	res, err := f.service(x).PublishPost(context.Background(), "post-1")
	require.NoError(t, err)
	assert.True(t, res.AllSucceeded)
	f.targets.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
}

func TestPublishPostSurfacesFinishFailure(t *testing.T) {
	f := newPublisherFixture()
	f.posts.On("GetByID", mock.Anything, "post-1").Return(basePost(), nil)
	f.targets.On("ListByPostID", mock.Anything, "post-1").Return([]*models.PostPlatform{target("pp-x", models.PlatformX, 0)}, nil)
	f.media.On("ListByPostID", mock.Anything, "post-1").Return(nil, nil)
	f.posts.On("ClaimForPublishing", mock.Anything, "post-1", manualPublishFrom, mock.Anything).Return(true, nil)
	f.connect(models.PlatformX, "conn-x", "tok-x")

	x := &mocks.Adapter{Name: models.PlatformX}
	x.On("Publish", mock.Anything, mock.Anything).Return(&platforms.PublishResult{NativePostID: "111"}, nil)

	f.targets.On("MarkPublishing", mock.Anything, "pp-x").Return(nil)
	f.targets.On("MarkPublished", mock.Anything, "pp-x", "conn-x", "111", "", mock.Anything).Return(nil)
	f.posts.On("FinishPublishing", mock.Anything, "post-1", models.PostStatusPublished, mock.Anything, (*string)(nil)).
		Return(errors.New("conn reset"))

	res, err := f.service(x).PublishPost(context.Background(), "post-1")
	assert.ErrorIs(t, err, ErrRecordResult)
	require.NotNil(t, res)
	assert.True(t, res.AnySucceeded)
}
