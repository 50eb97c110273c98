package service

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/polaritylab/crosspost/internal/mocks"
	"github.com/polaritylab/crosspost/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type memStorage struct {
	objects map[string][]byte
	types   map[string]string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStorage) Upload(_ context.Context, key string, file []byte, contentType string) error {
	m.objects[key] = file
	m.types[key] = contentType
	return nil
}

func (m *memStorage) Delete(_ context.Context, key string) error {
	if _, ok := m.objects[key]; !ok {
		return errors.New("no such key")
	}
	delete(m.objects, key)
	return nil
}

func (m *memStorage) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["file"][0]
}

var pngBytes = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 32)...)

func TestMediaUploadStoresSniffedType(t *testing.T) {
	repo := new(mocks.MediaRepository)
	storage := newMemStorage()
	repo.On("Create", mock.Anything, mock.MatchedBy(func(m *models.Media) bool {
		return m.UserID == "user-1" && m.MimeType == "image/png" && m.Filename == "photo.bin"
	})).Return("media-1", nil)

	media, err := NewMediaService(repo, storage).Upload(context.Background(), "user-1", fileHeader(t, "photo.bin", pngBytes))
	require.NoError(t, err)

	assert.Equal(t, "media-1", media.ID)
	assert.True(t, strings.HasPrefix(media.StorageKey, "media/user-1/"))
	assert.True(t, strings.HasSuffix(media.StorageKey, ".png"))
	assert.Equal(t, "https://cdn.example.com/"+media.StorageKey, media.URL)
	assert.Equal(t, int64(len(pngBytes)), media.Size)
	assert.Equal(t, "image/png", storage.types[media.StorageKey])
}

func TestMediaUploadRejectsUnknownType(t *testing.T) {
	repo := new(mocks.MediaRepository)
	storage := newMemStorage()

	_, err := NewMediaService(repo, storage).Upload(context.Background(), "user-1", fileHeader(t, "notes.txt", []byte("plain text")))
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, storage.objects)
}

func TestMediaUploadCleansUpOnDBError(t *testing.T) {
	repo := new(mocks.MediaRepository)
	storage := newMemStorage()
	repo.On("Create", mock.Anything, mock.Anything).Return("", errors.New("db down"))

	_, err := NewMediaService(repo, storage).Upload(context.Background(), "user-1", fileHeader(t, "a.png", pngBytes))
	require.Error(t, err)
	assert.Empty(t, storage.objects)
}

func TestMediaRemove(t *testing.T) {
	repo := new(mocks.MediaRepository)
	storage := newMemStorage()
	storage.objects["media/user-1/abc.png"] = pngBytes

	repo.On("GetByID", mock.Anything, "media-1").Return(&models.Media{ID: "media-1", UserID: "user-1", StorageKey: "media/user-1/abc.png"}, nil)
	repo.On("GetByID", mock.Anything, "media-2").Return(&models.Media{ID: "media-2", UserID: "user-2"}, nil)
	repo.On("Remove", mock.Anything, "media-1").Return(nil)

	svc := NewMediaService(repo, storage)
	require.NoError(t, svc.Remove(context.Background(), "user-1", "media-1"))
	assert.Empty(t, storage.objects)

	err := svc.Remove(context.Background(), "user-1", "media-2")
	assert.ErrorIs(t, err, ErrMediaNotFound)
	repo.AssertNotCalled(t, "Remove", mock.Anything, "media-2")
}
