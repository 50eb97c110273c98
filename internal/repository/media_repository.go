package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/polaritylab/crosspost/internal/models"
)

type MediaRepository interface {
	Create(ctx context.Context, media *models.Media) (string, error)
	GetByID(ctx context.Context, id string) (*models.Media, error)
	ListByPostID(ctx context.Context, postID string) ([]*models.Media, error)
	ListByUserID(ctx context.Context, userID string) ([]*models.Media, error)
	AttachToPost(ctx context.Context, tx *sql.Tx, mediaID, userID, postID string) error
	Remove(ctx context.Context, id string) error
}

type mediaRepository struct {
	db *sql.DB
}

func NewMediaRepository(db *sql.DB) MediaRepository {
	return &mediaRepository{db: db}
}

const mediaColumns = `id, user_id, post_id, url, storage_key, filename, mime_type, size, created_at`

func scanMedia(row rowScanner) (*models.Media, error) {
	var m models.Media
	err := row.Scan(&m.ID, &m.UserID, &m.PostID, &m.URL, &m.StorageKey, &m.Filename, &m.MimeType, &m.Size, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *mediaRepository) Create(ctx context.Context, media *models.Media) (string, error) {
	query := `
		INSERT INTO media (id, user_id, post_id, url, storage_key, filename, mime_type, size)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	id := uuid.New().String()
	_, err := r.db.ExecContext(ctx, query, id, media.UserID, media.PostID, media.URL, media.StorageKey,
		media.Filename, media.MimeType, media.Size)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	return id, nil
}

func (r *mediaRepository) GetByID(ctx context.Context, id string) (*models.Media, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE id = $1`

	m, err := scanMedia(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return m, nil
}

func (r *mediaRepository) ListByPostID(ctx context.Context, postID string) ([]*models.Media, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE post_id = $1 ORDER BY created_at ASC`
	return r.list(ctx, query, postID)
}

func (r *mediaRepository) ListByUserID(ctx context.Context, userID string) ([]*models.Media, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *mediaRepository) list(ctx context.Context, query string, args ...any) ([]*models.Media, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var items []*models.Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// AttachToPost links an uploaded file to a post. Files owned by another user
// are left untouched.
func (r *mediaRepository) AttachToPost(ctx context.Context, tx *sql.Tx, mediaID, userID, postID string) error {
	query := `UPDATE media SET post_id = $1 WHERE id = $2 AND user_id = $3`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, postID, mediaID, userID)
	} else {
		_, err = r.db.ExecContext(ctx, query, postID, mediaID, userID)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *mediaRepository) Remove(ctx context.Context, id string) error {
	query := `DELETE FROM media WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
