package job

import (
	"context"
	"log/slog"

	"github.com/polaritylab/crosspost/internal/service"
)

type AnalyticsJob struct {
	as service.AnalyticsService
}

func NewAnalyticsJob(as service.AnalyticsService) *AnalyticsJob {
	return &AnalyticsJob{
		as: as,
	}
}

func (j *AnalyticsJob) FetchAnalytics() {
	if _, err := j.as.Refresh(context.Background(), ""); err != nil {
		slog.Info(err.Error())
	}
}
