package reminders

import (
	"context"
	"encoding/json"
	"fmt"

	"stylo/internal/events"
	"stylo/internal/notifications"
	"stylo/pkg/kafka"
	"stylo/pkg/logger"
	"stylo/pkg/metrics"
	"stylo/pkg/sanitizer"

	"github.com/hibiken/asynq"
)

// TaskHandler delivers reminders when their tasks come due.
type TaskHandler struct {
	sender  notifications.Sender
	metrics *metrics.BookingMetrics
	log     *logger.Logger
}

func NewTaskHandler(sender notifications.Sender, m *metrics.BookingMetrics, log *logger.Logger) *TaskHandler {
	return &TaskHandler{sender: sender, metrics: m, log: log}
}

// ProcessTask sends the reminder. A malformed payload is never retried.
func (h *TaskHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var event events.AppointmentConfirmed
	if err := json.Unmarshal(task.Payload(), &event); err != nil {
		h.log.Error("invalid reminder payload", "error", err)
		return fmt.Errorf("decode reminder payload: %v: %w", err, asynq.SkipRetry)
	}
	if event.Phone == "" {
		h.log.Warn("reminder without phone, skipping", "appointment_id", event.AppointmentID)
		return nil
	}

	msg := notifications.ReminderMessage(event.Details())
	id, err := h.sender.Send(ctx, msg)
	h.metrics.ObserveNotification(string(notifications.KindReminder), err)
	if err != nil {
		h.log.Error("failed to send reminder",
			"appointment_id", event.AppointmentID,
			"to", sanitizer.MaskPhone(event.Phone),
			"error", err,
		)
		return err
	}

	h.log.Info("reminder sent", "appointment_id", event.AppointmentID, "message_id", id)
	return nil
}

// NewServeMux routes reminder tasks to h.
func NewServeMux(h *TaskHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeReminderSend, h.ProcessTask)
	return mux
}

func NewServer(redis asynq.RedisClientOpt, concurrency int, log *logger.Logger) *asynq.Server {
	return asynq.NewServer(redis, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueName: 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error("reminder task failed", "type", task.Type(), "error", err)
		}),
	})
}

// NewEventHandler consumes booking events and schedules a reminder for every
// confirmed appointment. Other event types are acknowledged and ignored.
func NewEventHandler(scheduler Scheduler, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		if msg.EventType() != events.TypeAppointmentConfirmed {
			return nil
		}

		var event events.AppointmentConfirmed
		if err := msg.DecodeValue(&event); err != nil {
			return err
		}

		if _, err := scheduler.Schedule(ctx, event); err != nil {
			log.Warn("failed to schedule reminder from event",
				"appointment_id", event.AppointmentID,
				"event_id", msg.EventID(),
				"error", err,
			)
			return kafka.NewTransientError("schedule reminder", err)
		}
		return nil
	}
}
