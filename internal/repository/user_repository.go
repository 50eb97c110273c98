package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/polaritylab/crosspost/internal/models"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, tx *sql.Tx, user *models.User) (string, error)
	Update(ctx context.Context, user *models.User) error
	Remove(ctx context.Context, id string) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, google_id, email, name, profile_picture, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.GoogleID, &user.Email, &user.Name, &user.ProfilePicture, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID returns nil when no user has the id.
func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail returns nil when no user has the email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *userRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return user, nil
}

func (r *userRepository) Create(ctx context.Context, tx *sql.Tx, user *models.User) (string, error) {
	query := `
		INSERT INTO users (id, google_id, email, name, profile_picture)
		VALUES ($1, $2, $3, $4, $5)
	`
	id := uuid.New().String()
	args := []any{id, user.GoogleID, user.Email, user.Name, user.ProfilePicture}

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	return id, nil
}

// Update links a Google identity to the user and refreshes the profile fields.
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET google_id = $1,
			name = $2,
			profile_picture = $3,
			updated_at = NOW()
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, user.GoogleID, user.Name, user.ProfilePicture, user.ID)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// Remove deletes the user; posts, connections, media and keys go with it.
func (r *userRepository) Remove(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
