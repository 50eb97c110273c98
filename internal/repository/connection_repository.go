package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/polaritylab/crosspost/internal/models"
)

type ConnectionRepository interface {
	Upsert(ctx context.Context, conn *models.PlatformConnection) (string, error)
	GetByID(ctx context.Context, id string) (*models.PlatformConnection, error)
	GetByUserAndPlatform(ctx context.Context, userID string, platform models.Platform) (*models.PlatformConnection, error)
	ListByUserID(ctx context.Context, userID string) ([]*models.PlatformConnection, error)
	ListExpiring(ctx context.Context, before time.Time) ([]*models.PlatformConnection, error)
	SetToken(ctx context.Context, id, accessToken, refreshToken string, expiresAt *time.Time) error
	CheckByUserID(ctx context.Context, connID, userID string) (bool, error)
	Remove(ctx context.Context, id string) error
}

type connectionRepository struct {
	db *sql.DB
}

func NewConnectionRepository(db *sql.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

const connectionColumns = `id, user_id, platform, platform_account_id, platform_username, access_token, refresh_token, token_expires_at, scopes, connected_at, updated_at`

func scanConnection(row rowScanner) (*models.PlatformConnection, error) {
	var c models.PlatformConnection
	err := row.Scan(&c.ID, &c.UserID, &c.Platform, &c.PlatformAccountID, &c.PlatformUsername, &c.AccessToken,
		&c.RefreshToken, &c.TokenExpiresAt, &c.Scopes, &c.ConnectedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Upsert inserts the connection or, when the account is already linked,
// replaces its credentials and returns the existing id.
func (r *connectionRepository) Upsert(ctx context.Context, conn *models.PlatformConnection) (string, error) {
	query := `
		INSERT INTO platform_connections (id, user_id, platform, platform_account_id, platform_username, access_token, refresh_token, token_expires_at, scopes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, platform, platform_account_id) DO UPDATE
		SET platform_username = EXCLUDED.platform_username,
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(EXCLUDED.refresh_token, platform_connections.refresh_token),
			token_expires_at = EXCLUDED.token_expires_at,
			scopes = EXCLUDED.scopes,
			updated_at = NOW()
		RETURNING id
	`
	var id string
	err := r.db.QueryRowContext(ctx, query, uuid.New().String(), conn.UserID, conn.Platform, conn.PlatformAccountID,
		conn.PlatformUsername, conn.AccessToken, conn.RefreshToken, conn.TokenExpiresAt, conn.Scopes).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return "", err
	}
	return id, nil
}

func (r *connectionRepository) GetByID(ctx context.Context, id string) (*models.PlatformConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM platform_connections WHERE id = $1`

	conn, err := scanConnection(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return conn, nil
}

func (r *connectionRepository) GetByUserAndPlatform(ctx context.Context, userID string, platform models.Platform) (*models.PlatformConnection, error) {
	query := `SELECT ` + connectionColumns + `
		FROM platform_connections
		WHERE user_id = $1 AND platform = $2
		ORDER BY updated_at DESC
		LIMIT 1`

	conn, err := scanConnection(r.db.QueryRowContext(ctx, query, userID, platform))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return conn, nil
}

func (r *connectionRepository) ListByUserID(ctx context.Context, userID string) ([]*models.PlatformConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM platform_connections WHERE user_id = $1 ORDER BY platform, connected_at`
	return r.list(ctx, query, userID)
}

// ListExpiring returns connections holding a refresh token whose access
// token expires before the given instant.
func (r *connectionRepository) ListExpiring(ctx context.Context, before time.Time) ([]*models.PlatformConnection, error) {
	query := `SELECT ` + connectionColumns + `
		FROM platform_connections
		WHERE token_expires_at IS NOT NULL
			AND token_expires_at < $1
			AND refresh_token IS NOT NULL
		ORDER BY token_expires_at ASC`
	return r.list(ctx, query, before)
}

func (r *connectionRepository) list(ctx context.Context, query string, args ...any) ([]*models.PlatformConnection, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var conns []*models.PlatformConnection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		conns = append(conns, conn)
	}
	return conns, rows.Err()
}

// SetToken stores refreshed credentials. An empty refreshToken keeps the
// stored one; a nil expiresAt clears the expiry.
func (r *connectionRepository) SetToken(ctx context.Context, id, accessToken, refreshToken string, expiresAt *time.Time) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE platform_connections
		SET
			access_token = $2,
			refresh_token = COALESCE(NULLIF($3, ''), refresh_token),
			token_expires_at = $4,
			updated_at = NOW()
		WHERE id = $1
	`
	result, err := tx.ExecContext(ctx, query, id, accessToken, refreshToken, expiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		slog.Info("no rows affected; connection may not exist", "connection_id", id)
		return errors.New("no rows affected; connection may not exist")
	}

	if err = tx.Commit(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *connectionRepository) CheckByUserID(ctx context.Context, connID, userID string) (bool, error) {
	query := "SELECT 1 FROM platform_connections WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, connID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}
	return result == 1, nil
}

func (r *connectionRepository) Remove(ctx context.Context, id string) error {
	query := `DELETE FROM platform_connections WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
