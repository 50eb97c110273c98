package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/polaritylab/crosspost/internal/models"
)

type PostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.Post) (string, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	List(ctx context.Context, userID string, filter models.PostFilter) ([]*models.Post, error)
	CheckByUserID(ctx context.Context, postID, userID string) (bool, error)
	Update(ctx context.Context, tx *sql.Tx, post *models.Post) error
	ClaimForPublishing(ctx context.Context, id string, from []models.PostStatus, staleBefore time.Time) (bool, error)
	FinishPublishing(ctx context.Context, id string, status models.PostStatus, publishedAt *time.Time, lastError *string) error
	ListDue(ctx context.Context, now, staleBefore time.Time, maxRetries, limit int) ([]*models.Post, error)
	RecordRetry(ctx context.Context, id string, retryCount int, status models.PostStatus, lastError string) error
	CountByStatus(ctx context.Context, userID string) (map[string]int, error)
	Remove(ctx context.Context, id string) error
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, user_id, title, content, status, scheduled_for, published_at, retry_count, last_error, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var post models.Post
	err := row.Scan(&post.ID, &post.UserID, &post.Title, &post.Content, &post.Status, &post.ScheduledFor,
		&post.PublishedAt, &post.RetryCount, &post.LastError, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, tx *sql.Tx, post *models.Post) (string, error) {
	query := `
		INSERT INTO posts (id, user_id, title, content, status, scheduled_for)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	id := uuid.New().String()

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, id, post.UserID, post.Title, post.Content, post.Status, post.ScheduledFor)
	} else {
		_, err = r.db.ExecContext(ctx, query, id, post.UserID, post.Title, post.Content, post.Status, post.ScheduledFor)
	}
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}

	return id, nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return post, nil
}

func (r *postRepository) List(ctx context.Context, userID string, filter models.PostFilter) ([]*models.Post, error) {
	conds := []string{"p.user_id = $1"}
	args := []any{userID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("p.status = $%d", len(args)))
	}
	if filter.Platform != "" {
		args = append(args, filter.Platform)
		conds = append(conds, fmt.Sprintf("EXISTS (SELECT 1 FROM post_platforms pp WHERE pp.post_id = p.id AND pp.platform = $%d)", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conds = append(conds, fmt.Sprintf("COALESCE(p.scheduled_for, p.created_at) >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conds = append(conds, fmt.Sprintf("COALESCE(p.scheduled_for, p.created_at) < $%d", len(args)))
	}

	query := `SELECT p.` + strings.ReplaceAll(postColumns, ", ", ", p.") + `
		FROM posts p
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY COALESCE(p.scheduled_for, p.created_at) DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *postRepository) CheckByUserID(ctx context.Context, postID, userID string) (bool, error) {
	query := "SELECT 1 FROM posts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

func (r *postRepository) Update(ctx context.Context, tx *sql.Tx, post *models.Post) error {
	query := `
		UPDATE posts
		SET title = $1,
			content = $2,
			status = $3,
			scheduled_for = $4,
			retry_count = $5,
			last_error = $6,
			updated_at = NOW()
		WHERE id = $7
	`
	args := []any{post.Title, post.Content, post.Status, post.ScheduledFor, post.RetryCount, post.LastError, post.ID}

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// ClaimForPublishing moves the post into publishing when its status is one of
// from. A publishing row last touched before staleBefore is treated as
// abandoned and may be claimed again.
func (r *postRepository) ClaimForPublishing(ctx context.Context, id string, from []models.PostStatus, staleBefore time.Time) (bool, error) {
	query := `
		UPDATE posts
		SET status = 'publishing',
			updated_at = NOW()
		WHERE id = $1
			AND (status = ANY($2) OR (status = 'publishing' AND updated_at < $3))
	`
	statuses := make([]string, len(from))
	for i, st := range from {
		statuses[i] = string(st)
	}

	result, err := r.db.ExecContext(ctx, query, id, pq.Array(statuses), staleBefore)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *postRepository) FinishPublishing(ctx context.Context, id string, status models.PostStatus, publishedAt *time.Time, lastError *string) error {
	query := `
		UPDATE posts
		SET status = $1,
			published_at = COALESCE($2, published_at),
			last_error = $3,
			updated_at = NOW()
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, status, publishedAt, lastError, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// ListDue returns scheduled posts whose time has come together with posts
// left in publishing since before staleBefore by a run that never finished.
func (r *postRepository) ListDue(ctx context.Context, now, staleBefore time.Time, maxRetries, limit int) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + `
		FROM posts
		WHERE (status = 'scheduled'
				AND COALESCE(scheduled_for, updated_at) <= $1
				AND retry_count < $3)
			OR (status = 'publishing' AND updated_at < $2)
		ORDER BY COALESCE(scheduled_for, updated_at) ASC
		LIMIT $4`

	rows, err := r.db.QueryContext(ctx, query, now, staleBefore, maxRetries, limit)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *postRepository) RecordRetry(ctx context.Context, id string, retryCount int, status models.PostStatus, lastError string) error {
	query := `
		UPDATE posts
		SET retry_count = $1,
			status = $2,
			last_error = $3,
			updated_at = NOW()
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, retryCount, status, lastError, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *postRepository) CountByStatus(ctx context.Context, userID string) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM posts WHERE user_id = $1 GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *postRepository) Remove(ctx context.Context, id string) error {
	query := `DELETE FROM posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
