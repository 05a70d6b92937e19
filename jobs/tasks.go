package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReservationExpire cancels one pending sale whose hold ran out.
	TaskReservationExpire = "sales:reservation_expire"
	// TaskReservationSweep expires every pending sale older than the hold,
	// catching reservations whose delayed task was lost.
	TaskReservationSweep = "sales:reservation_sweep"
)

// ReservationExpirePayload identifies the sale to expire.
type ReservationExpirePayload struct {
	SaleID string `json:"sale_id"`
}

// NewReservationExpireTask constructs a task that runs at processAt. The
// task id is derived from the sale so a sale is never scheduled twice.
func NewReservationExpireTask(saleID string, processAt time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ReservationExpirePayload{SaleID: saleID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReservationExpire, body,
		asynq.Queue(QueueDefault),
		asynq.TaskID(TaskReservationExpire+":"+saleID),
		asynq.ProcessAt(processAt),
		asynq.MaxRetry(5),
	), nil
}

// ReservationSweepPayload bounds one sweep run.
type ReservationSweepPayload struct {
	Limit int `json:"limit"`
}

// NewReservationSweepTask constructs the periodic sweep task.
func NewReservationSweepTask(limit int) (*asynq.Task, error) {
	body, err := json.Marshal(ReservationSweepPayload{Limit: limit})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReservationSweep, body, asynq.Queue(QueueDefault)), nil
}
