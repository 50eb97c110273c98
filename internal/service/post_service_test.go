package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/polaritylab/crosspost/internal/mocks"
	"github.com/polaritylab/crosspost/internal/models"
	"github.com/polaritylab/crosspost/internal/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type postFixture struct {
	sql   sqlmock.Sqlmock
	posts *mocks.PostRepository
	pps   *mocks.PostPlatformRepository
	media *mocks.MediaRepository
	svc   PostService
}

func newPostFixture(t *testing.T) *postFixture {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &postFixture{
		sql:   sqlMock,
		posts: new(mocks.PostRepository),
		pps:   new(mocks.PostPlatformRepository),
		media: new(mocks.MediaRepository),
	}
	f.svc = NewPostService(db, f.posts, f.pps, f.media)
	return f
}

func TestCreatePostSchedulesAndKeepsOrder(t *testing.T) {
	f := newPostFixture(t)
	at := time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)

	f.sql.ExpectBegin()
	f.sql.ExpectCommit()

	f.posts.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(p *models.Post) bool {
		return p.Status == models.PostStatusScheduled && p.ScheduledFor.Equal(at) && p.Title != nil && *p.Title == "Hello"
	})).Return("post-1", nil)

	var created []*models.PostPlatform
	f.pps.On("Create", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { created = append(created, args.Get(2).(*models.PostPlatform)) }).
		Return("pp", nil)
	f.media.On("AttachToPost", mock.Anything, mock.Anything, "m-1", "user-1", "post-1").Return(nil)

	f.posts.On("GetByID", mock.Anything, "post-1").Return(&models.Post{ID: "post-1", UserID: "user-1", Status: models.PostStatusScheduled}, nil)
	f.pps.On("ListByPostID", mock.Anything, "post-1").Return([]*models.PostPlatform{}, nil)
	f.media.On("ListByPostID", mock.Anything, "post-1").Return([]*models.Media{}, nil)

	detail, err := f.svc.Create(context.Background(), "user-1", &transfer.PostCreation{
		Title:        "Hello",
		Content:      "Body",
		Platforms:    []string{"reddit", "x", "reddit"},
		ScheduledFor: &at,
		MediaIDs:     []string{"m-1"},
		Subreddit:    "r/golang",
	})
	require.NoError(t, err)
	assert.Equal(t, "post-1", detail.ID)

	require.Len(t, created, 2)
	assert.Equal(t, models.PlatformReddit, created[0].Platform)
	assert.Equal(t, 0, created[0].Position)
	require.NotNil(t, created[0].Target)
	assert.Equal(t, "golang", *created[0].Target)
	assert.Equal(t, models.PlatformX, created[1].Platform)
	assert.Equal(t, 1, created[1].Position)
	assert.Nil(t, created[1].Target)
	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestCreatePostWithoutScheduleIsDraft(t *testing.T) {
	f := newPostFixture(t)
	f.sql.ExpectBegin()
	f.sql.ExpectCommit()

	f.posts.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(p *models.Post) bool {
		return p.Status == models.PostStatusDraft && p.ScheduledFor == nil && p.Title == nil
	})).Return("post-2", nil)
	f.pps.On("Create", mock.Anything, mock.Anything, mock.Anything).Return("pp", nil)
	f.posts.On("GetByID", mock.Anything, "post-2").Return(&models.Post{ID: "post-2", UserID: "user-1"}, nil)
	f.pps.On("ListByPostID", mock.Anything, "post-2").Return(nil, nil)
	f.media.On("ListByPostID", mock.Anything, "post-2").Return(nil, nil)

	_, err := f.svc.Create(context.Background(), "user-1", &transfer.PostCreation{Content: "Body", Platforms: []string{"linkedin"}})
	require.NoError(t, err)
	f.posts.AssertExpectations(t)
}

func TestCreatePostValidation(t *testing.T) {
	f := newPostFixture(t)

	cases := map[string]*transfer.PostCreation{
		"empty content":    {Content: "  ", Platforms: []string{"x"}},
		"no platforms":     {Content: "Body"},
		"unknown platform": {Content: "Body", Platforms: []string{"myspace"}},
	}
	for name, pc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), "user-1", pc)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
	f.posts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetPostOfOtherUser(t *testing.T) {
	f := newPostFixture(t)
	f.posts.On("GetByID", mock.Anything, "post-1").Return(&models.Post{ID: "post-1", UserID: "someone-else"}, nil)

	_, err := f.svc.Get(context.Background(), "user-1", "post-1")
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestUpdatePostRefusedWhilePublishing(t *testing.T) {
	f := newPostFixture(t)
	f.posts.On("GetByID", mock.Anything, "post-1").Return(&models.Post{ID: "post-1", UserID: "user-1", Status: models.PostStatusPublishing}, nil)

	content := "new"
	_, err := f.svc.Update(context.Background(), "user-1", "post-1", &transfer.PostUpdate{Content: &content})
	assert.ErrorIs(t, err, ErrPublishInProgress)
}

func TestUpdatePostDiffsPlatforms(t *testing.T) {
	f := newPostFixture(t)
	f.sql.ExpectBegin()
	f.sql.ExpectCommit()

	failed := "x: boom"
	f.posts.On("GetByID", mock.Anything, "post-1").Return(&models.Post{
		ID: "post-1", UserID: "user-1", Status: models.PostStatusFailed, RetryCount: 3, LastError: &failed,
	}, nil)

	at := time.Now().Add(time.Hour)
	f.posts.On("Update", mock.Anything, mock.Anything, mock.MatchedBy(func(p *models.Post) bool {
		return p.Status == models.PostStatusScheduled && p.RetryCount == 0 && p.LastError == nil
	})).Return(nil)

	f.pps.On("ListByPostID", mock.Anything, "post-1").Return([]*models.PostPlatform{
		{ID: "pp-x", PostID: "post-1", Platform: models.PlatformX, Position: 0},
		{ID: "pp-li", PostID: "post-1", Platform: models.PlatformLinkedIn, Position: 1},
	}, nil)
	f.pps.On("RemoveByPlatform", mock.Anything, mock.Anything, "post-1", models.PlatformX).Return(nil).Once()
	f.pps.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(pp *models.PostPlatform) bool {
		return pp.Platform == models.PlatformReddit && pp.Position == 2 && pp.Target != nil && *pp.Target == "golang"
	})).Return("pp-r", nil).Once()
	f.media.On("ListByPostID", mock.Anything, "post-1").Return(nil, nil)

	sub := "golang"
	_, err := f.svc.Update(context.Background(), "user-1", "post-1", &transfer.PostUpdate{
		Platforms:    []string{"linkedin", "reddit"},
		ScheduledFor: &at,
		Subreddit:    &sub,
	})
	require.NoError(t, err)

	f.pps.AssertExpectations(t)
	f.posts.AssertExpectations(t)
	f.pps.AssertNotCalled(t, "RemoveByPlatform", mock.Anything, mock.Anything, "post-1", models.PlatformLinkedIn)
	assert.NoError(t, f.sql.ExpectationsWereMet())
}

func TestPostStats(t *testing.T) {
	f := newPostFixture(t)
	f.posts.On("CountByStatus", mock.Anything, "user-1").Return(map[string]int{
		"draft": 2, "scheduled": 3, "published": 4, "failed": 1,
	}, nil)

	stats, err := f.svc.Stats(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 2, stats.Draft)
	assert.Equal(t, 3, stats.Scheduled)
	assert.Equal(t, 4, stats.Published)
	assert.Equal(t, 1, stats.Failed)
}
