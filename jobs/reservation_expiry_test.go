package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/autosales/internal/jobs"
	"github.com/odyssey-erp/autosales/internal/shared"
)

type stubExpirer struct {
	expired  bool
	err      error
	stale    int
	calls    []string
	sweepArg int
}

func (s *stubExpirer) ExpireReservation(_ context.Context, saleID string) (bool, error) {
	s.calls = append(s.calls, saleID)
	return s.expired, s.err
}

func (s *stubExpirer) ExpireStale(_ context.Context, limit int) (int, error) {
	s.sweepArg = limit
	return s.stale, s.err
}

func expireTask(t *testing.T, saleID string) *asynq.Task {
	t.Helper()
	task, err := NewReservationExpireTask(saleID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	return task
}

func TestNewReservationExpireTaskPayload(t *testing.T) {
	task := expireTask(t, "sale-1")
	assert.Equal(t, TaskReservationExpire, task.Type())

	var payload ReservationExpirePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "sale-1", payload.SaleID)
}

func TestHandleExpireCountsExpiredSales(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	stub := &stubExpirer{expired: true}
	job := NewReservationExpiryJob(stub, nil, metrics)

	require.NoError(t, job.HandleExpire(context.Background(), expireTask(t, "sale-1")))
	assert.Equal(t, []string{"sale-1"}, stub.calls)

	stub.expired = false
	require.NoError(t, job.HandleExpire(context.Background(), expireTask(t, "sale-2")))

	count, err := testutil.GatherAndCount(reg, "autosales_reservations_expired_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "autosales_reservations_expired_total" {
			assert.Equal(t, 1.0, mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
}

func TestHandleExpireUnknownSaleIsDropped(t *testing.T) {
	job := NewReservationExpiryJob(&stubExpirer{err: shared.ErrNotFound}, nil, nil)
	assert.NoError(t, job.HandleExpire(context.Background(), expireTask(t, "gone")))
}

func TestHandleExpireRetriesOnFailure(t *testing.T) {
	boom := errors.New("db down")
	job := NewReservationExpiryJob(&stubExpirer{err: boom}, nil, nil)
	err := job.HandleExpire(context.Background(), expireTask(t, "sale-1"))
	assert.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleExpireBadPayloadSkipsRetry(t *testing.T) {
	job := NewReservationExpiryJob(&stubExpirer{}, nil, nil)
	err := job.HandleExpire(context.Background(), asynq.NewTask(TaskReservationExpire, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = job.HandleExpire(context.Background(), asynq.NewTask(TaskReservationExpire, []byte(`{}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleSweepDefaultsLimit(t *testing.T) {
	stub := &stubExpirer{stale: 3}
	job := NewReservationExpiryJob(stub, nil, nil)
	task, err := NewReservationSweepTask(0)
	require.NoError(t, err)

	require.NoError(t, job.HandleSweep(context.Background(), task))
	assert.Equal(t, 100, stub.sweepArg)
}

func TestUnconfiguredJob(t *testing.T) {
	var job *ReservationExpiryJob
	assert.Error(t, job.HandleExpire(context.Background(), expireTask(t, "x")))
}
