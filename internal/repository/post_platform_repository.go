package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/polaritylab/crosspost/internal/models"
)

type PostPlatformRepository interface {
	Create(ctx context.Context, tx *sql.Tx, pp *models.PostPlatform) (string, error)
	ListByPostID(ctx context.Context, postID string) ([]*models.PostPlatform, error)
	ListByPostIDs(ctx context.Context, postIDs []string) (map[string][]*models.PostPlatform, error)
	MarkPublishing(ctx context.Context, id string) error
	MarkPublished(ctx context.Context, id, connectionID, nativeID, nativeURL string, at time.Time) error
	MarkFailed(ctx context.Context, id, message string) error
	RemoveByPlatform(ctx context.Context, tx *sql.Tx, postID string, platform models.Platform) error
	SetTarget(ctx context.Context, tx *sql.Tx, postID string, platform models.Platform, target *string) error
	ListPublishedByUser(ctx context.Context, userID string) ([]*models.PublishedTarget, error)
}

type postPlatformRepository struct {
	db *sql.DB
}

func NewPostPlatformRepository(db *sql.DB) PostPlatformRepository {
	return &postPlatformRepository{db: db}
}

const postPlatformColumns = `id, post_id, platform, position, target, platform_connection_id, native_post_id, native_post_url, status, error, published_at, created_at`

func scanPostPlatform(row rowScanner) (*models.PostPlatform, error) {
	var pp models.PostPlatform
	err := row.Scan(&pp.ID, &pp.PostID, &pp.Platform, &pp.Position, &pp.Target, &pp.PlatformConnectionID,
		&pp.NativePostID, &pp.NativePostURL, &pp.Status, &pp.Error, &pp.PublishedAt, &pp.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &pp, nil
}

func (r *postPlatformRepository) Create(ctx context.Context, tx *sql.Tx, pp *models.PostPlatform) (string, error) {
	query := `
		INSERT INTO post_platforms (id, post_id, platform, position, target, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	id := uuid.New().String()
	status := pp.Status
	if status == "" {
		status = models.TargetStatusPending
	}

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, id, pp.PostID, pp.Platform, pp.Position, pp.Target, status)
	} else {
		_, err = r.db.ExecContext(ctx, query, id, pp.PostID, pp.Platform, pp.Position, pp.Target, status)
	}
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	return id, nil
}

func (r *postPlatformRepository) ListByPostID(ctx context.Context, postID string) ([]*models.PostPlatform, error) {
	query := `SELECT ` + postPlatformColumns + ` FROM post_platforms WHERE post_id = $1 ORDER BY position ASC`

	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var targets []*models.PostPlatform
	for rows.Next() {
		pp, err := scanPostPlatform(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		targets = append(targets, pp)
	}
	return targets, rows.Err()
}

func (r *postPlatformRepository) ListByPostIDs(ctx context.Context, postIDs []string) (map[string][]*models.PostPlatform, error) {
	result := make(map[string][]*models.PostPlatform)
	if len(postIDs) == 0 {
		return result, nil
	}

	query := `SELECT ` + postPlatformColumns + ` FROM post_platforms WHERE post_id = ANY($1) ORDER BY post_id, position ASC`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(postIDs))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		pp, err := scanPostPlatform(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		result[pp.PostID] = append(result[pp.PostID], pp)
	}
	return result, rows.Err()
}

func (r *postPlatformRepository) MarkPublishing(ctx context.Context, id string) error {
	query := `UPDATE post_platforms SET status = 'publishing', error = NULL WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postPlatformRepository) MarkPublished(ctx context.Context, id, connectionID, nativeID, nativeURL string, at time.Time) error {
	query := `
		UPDATE post_platforms
		SET status = 'published',
			platform_connection_id = $2,
			native_post_id = $3,
			native_post_url = NULLIF($4, ''),
			error = NULL,
			published_at = $5
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id, connectionID, nativeID, nativeURL, at)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postPlatformRepository) MarkFailed(ctx context.Context, id, message string) error {
	query := `UPDATE post_platforms SET status = 'failed', error = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, message)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postPlatformRepository) RemoveByPlatform(ctx context.Context, tx *sql.Tx, postID string, platform models.Platform) error {
	query := `DELETE FROM post_platforms WHERE post_id = $1 AND platform = $2`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, postID, platform)
	} else {
		_, err = r.db.ExecContext(ctx, query, postID, platform)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postPlatformRepository) SetTarget(ctx context.Context, tx *sql.Tx, postID string, platform models.Platform, target *string) error {
	query := `UPDATE post_platforms SET target = $3 WHERE post_id = $1 AND platform = $2`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, postID, platform, target)
	} else {
		_, err = r.db.ExecContext(ctx, query, postID, platform, target)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// ListPublishedByUser returns every published target of the user that has a
// native id and a connection to query metrics with. An empty userID lists
// targets of all users.
func (r *postPlatformRepository) ListPublishedByUser(ctx context.Context, userID string) ([]*models.PublishedTarget, error) {
	query := `
		SELECT pp.id, pp.post_id, pp.platform, pp.native_post_id, pp.platform_connection_id
		FROM post_platforms pp
		JOIN posts p ON p.id = pp.post_id
		WHERE pp.status = 'published'
			AND pp.native_post_id IS NOT NULL
			AND pp.platform_connection_id IS NOT NULL
			AND ($1 = '' OR p.user_id::text = $1)
		ORDER BY pp.published_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var targets []*models.PublishedTarget
	for rows.Next() {
		var t models.PublishedTarget
		if err := rows.Scan(&t.PostPlatformID, &t.PostID, &t.Platform, &t.NativePostID, &t.PlatformConnectionID); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		targets = append(targets, &t)
	}
	return targets, rows.Err()
}
