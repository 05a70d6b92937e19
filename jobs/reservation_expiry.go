package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/autosales/internal/jobs"
	"github.com/odyssey-erp/autosales/internal/shared"
)

// ReservationExpirer is implemented by the sales service.
type ReservationExpirer interface {
	ExpireReservation(ctx context.Context, saleID string) (bool, error)
	ExpireStale(ctx context.Context, limit int) (int, error)
}

// ReservationExpiryJob releases vehicles held by unpaid sales.
type ReservationExpiryJob struct {
	Sales   ReservationExpirer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewReservationExpiryJob wires dependencies for the expiry handlers.
func NewReservationExpiryJob(sales ReservationExpirer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReservationExpiryJob {
	return &ReservationExpiryJob{Sales: sales, Logger: logger, Metrics: metrics}
}

// HandleExpire processes TaskReservationExpire tasks.
func (j *ReservationExpiryJob) HandleExpire(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Sales == nil {
		return errors.New("reservation expiry: handler not configured")
	}
	var payload ReservationExpirePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.SaleID == "" {
		return fmt.Errorf("reservation expiry: bad payload: %w", asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskReservationExpire)
	defer func() { err = tracker.End(err) }()

	logger := j.logger().With(slog.String("sale_id", payload.SaleID))
	expired, err := j.Sales.ExpireReservation(ctx, payload.SaleID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		logger.Warn("reservation expiry for unknown sale")
		return nil
	case err != nil:
		logger.Error("expire reservation", slog.Any("error", err))
		return err
	}
	if expired {
		j.Metrics.AddExpired(1)
	} else {
		logger.Debug("sale settled before reservation expired")
	}
	return nil
}

// HandleSweep processes TaskReservationSweep tasks.
func (j *ReservationExpiryJob) HandleSweep(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Sales == nil {
		return errors.New("reservation sweep: handler not configured")
	}
	var payload ReservationSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("reservation sweep: bad payload: %w", asynq.SkipRetry)
	}
	if payload.Limit <= 0 {
		payload.Limit = 100
	}

	tracker := j.Metrics.Track(TaskReservationSweep)
	defer func() { err = tracker.End(err) }()

	n, err := j.Sales.ExpireStale(ctx, payload.Limit)
	j.Metrics.AddExpired(n)
	if err != nil {
		j.logger().Error("sweep reservations", slog.Int("expired", n), slog.Any("error", err))
		return err
	}
	if n > 0 {
		j.logger().Info("stale reservations expired", slog.Int("expired", n))
	}
	return nil
}

func (j *ReservationExpiryJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
