package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/leasedesk/leasedesk/internal/jobs"
)

// Expirer marks overdue agreements expired. Satisfied by the agreements
// service.
type Expirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

// ExpiryScanJob flips agreements past their end date to expired and
// fans out reminder mails through the agreements notifier.
type ExpiryScanJob struct {
	expirer Expirer
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewExpiryScanJob initialises the expiry scan handler.
func NewExpiryScanJob(expirer Expirer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ExpiryScanJob {
	return &ExpiryScanJob{expirer: expirer, logger: logger, metrics: metrics}
}

// Handle executes the expiry scan.
func (j *ExpiryScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.expirer == nil {
		return errors.New("expiry scan: handler not configured")
	}
	tracker := j.metrics.Track(TaskTypeExpiryScan)
	count, err := j.expirer.ExpireDue(ctx)
	if err != nil {
		j.logger.Error("expiry scan", slog.Any("error", err))
		return tracker.End(err)
	}
	j.metrics.AddExpired(count)
	if count > 0 {
		j.logger.Info("agreements expired", slog.Int("count", count))
	}
	return tracker.End(nil)
}
