package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stylo/internal/events"
	"stylo/pkg/clock"
	"stylo/pkg/logger"

	"github.com/hibiken/asynq"
)

const (
	TypeReminderSend = "reminder:send"
	QueueName        = "reminders"

	maxRetry = 3
)

// Enqueuer is the part of asynq.Client the scheduler uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Scheduler plans the reminder for a confirmed appointment.
type Scheduler interface {
	// Schedule reports whether a reminder is pending for the appointment.
	// Reminders whose fire time already passed are skipped.
	Schedule(ctx context.Context, event events.AppointmentConfirmed) (bool, error)
	Close() error
}

type AsynqScheduler struct {
	client   Enqueuer
	clock    clock.Clock
	leadTime time.Duration
	log      *logger.Logger
}

func NewAsynqScheduler(client Enqueuer, clk clock.Clock, leadTime time.Duration, log *logger.Logger) *AsynqScheduler {
	return &AsynqScheduler{
		client:   client,
		clock:    clk,
		leadTime: leadTime,
		log:      log,
	}
}

// NewReminderTask wraps the confirmed appointment in a task that fires at
// fireAt. The task id is derived from the appointment so scheduling twice is
// harmless.
func NewReminderTask(event events.AppointmentConfirmed, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode reminder payload: %w", err)
	}
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.TaskID(TaskID(event.AppointmentID)),
		asynq.Queue(QueueName),
		asynq.MaxRetry(maxRetry),
	}
	return asynq.NewTask(TypeReminderSend, payload), opts, nil
}

func TaskID(appointmentID string) string {
	return "reminder:" + appointmentID
}

func (s *AsynqScheduler) Schedule(ctx context.Context, event events.AppointmentConfirmed) (bool, error) {
	fireAt := event.Start.Add(-s.leadTime)
	if !fireAt.After(s.clock.Now()) {
		s.log.Debug("reminder not scheduled, fire time already passed",
			"appointment_id", event.AppointmentID,
			"fire_at", fireAt,
		)
		return false, nil
	}

	task, opts, err := NewReminderTask(event, fireAt)
	if err != nil {
		return false, err
	}

	info, err := s.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return true, nil
		}
		return false, fmt.Errorf("failed to enqueue reminder: %w", err)
	}

	s.log.Info("reminder scheduled",
		"appointment_id", event.AppointmentID,
		"task_id", info.ID,
		"fire_at", fireAt,
	)
	return true, nil
}

func (s *AsynqScheduler) Close() error {
	return s.client.Close()
}

// NoopScheduler is used when no queue is configured.
type NoopScheduler struct{}

func (NoopScheduler) Schedule(context.Context, events.AppointmentConfirmed) (bool, error) {
	return false, nil
}

func (NoopScheduler) Close() error { return nil }
