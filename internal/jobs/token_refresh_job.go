package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/polaritylab/crosspost/internal/service"
)

const refreshWindow = 30 * time.Minute

type TokenRefreshJob struct {
	ts service.TokenService
}

func NewTokenRefreshJob(ts service.TokenService) *TokenRefreshJob {
	return &TokenRefreshJob{
		ts: ts,
	}
}

// RefreshTokens renews every connection whose access token expires within
// the next half hour.
func (c *TokenRefreshJob) RefreshTokens() {
	n, err := c.ts.RefreshExpiring(context.Background(), refreshWindow)
	if err != nil {
		slog.Info(err.Error())
		return
	}
	if n > 0 {
		slog.Info("tokens refreshed", "count", n)
	}
}
