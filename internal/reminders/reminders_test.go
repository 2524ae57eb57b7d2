package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"stylo/internal/events"
	"stylo/internal/notifications"
	"stylo/pkg/clock"
	"stylo/pkg/kafka"
	"stylo/pkg/logger"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

func quietLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard})
}

var now = time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC)

func confirmed(start time.Time) events.AppointmentConfirmed {
	return events.AppointmentConfirmed{
		AppointmentID: "appt-1",
		StaffID:       "staff-1",
		ClientName:    "Ana Quispe",
		Phone:         "+51987654321",
		ServiceName:   "Corte",
		BranchName:    "Miraflores",
		TimeZone:      "America/Lima",
		Start:         start,
		End:           start.Add(time.Hour),
	}
}

func TestAsynqScheduler_Schedule(t *testing.T) {
	tests := []struct {
		name      string
		start     time.Time
		enqErr    error
		wantSched bool
		wantErr   bool
		wantTasks int
	}{
		{name: "future appointment", start: now.Add(72 * time.Hour), wantSched: true, wantTasks: 1},
		{name: "fire time passed", start: now.Add(3 * time.Hour), wantSched: false},
		{name: "already scheduled", start: now.Add(72 * time.Hour), enqErr: asynq.ErrTaskIDConflict, wantSched: true},
		{name: "queue down", start: now.Add(72 * time.Hour), enqErr: errors.New("dial tcp: connection refused"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enq := &fakeEnqueuer{err: tt.enqErr}
			s := NewAsynqScheduler(enq, clock.NewFake(now), 24*time.Hour, quietLogger())

			scheduled, err := s.Schedule(context.Background(), confirmed(tt.start))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSched, scheduled)
			assert.Len(t, enq.tasks, tt.wantTasks)
		})
	}
}

func TestNewReminderTask_Payload(t *testing.T) {
	event := confirmed(now.Add(72 * time.Hour))
	task, opts, err := NewReminderTask(event, now.Add(48*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, TypeReminderSend, task.Type())
	assert.Len(t, opts, 4)

	var decoded events.AppointmentConfirmed
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, "appt-1", decoded.AppointmentID)
	assert.Equal(t, "reminder:appt-1", TaskID(decoded.AppointmentID))
}

func TestTaskHandler_SendsReminder(t *testing.T) {
	sender := notifications.NewMockSender(quietLogger())
	h := NewTaskHandler(sender, nil, quietLogger())

	payload, err := json.Marshal(confirmed(now.Add(72 * time.Hour)))
	require.NoError(t, err)

	require.NoError(t, h.ProcessTask(context.Background(), asynq.NewTask(TypeReminderSend, payload)))

	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, notifications.KindReminder, sent[0].Kind)
	assert.Equal(t, "+51987654321", sent[0].To)
	assert.Contains(t, sent[0].Body, "Corte")
}

func TestTaskHandler_BadPayloadSkipsRetry(t *testing.T) {
	h := NewTaskHandler(notifications.NewMockSender(quietLogger()), nil, quietLogger())

	err := h.ProcessTask(context.Background(), asynq.NewTask(TypeReminderSend, []byte("{")))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestEventHandler(t *testing.T) {
	enq := &fakeEnqueuer{}
	handler := NewEventHandler(NewAsynqScheduler(enq, clock.NewFake(now), 24*time.Hour, quietLogger()), quietLogger())

	confirmedMsg, err := kafka.NewMessage().
		WithKey("staff-1").
		WithValue(confirmed(now.Add(72 * time.Hour))).
		WithEventType(events.TypeAppointmentConfirmed).
		Build()
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), confirmedMsg))
	assert.Len(t, enq.tasks, 1)

	expiredMsg, err := kafka.NewMessage().
		WithKey("staff-1").
		WithValue(events.SessionExpired{StaffID: "staff-1"}).
		WithEventType(events.TypeSessionExpired).
		Build()
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), expiredMsg))
	assert.Len(t, enq.tasks, 1)
}

func TestEventHandler_ScheduleFailureIsTransient(t *testing.T) {
	enq := &fakeEnqueuer{err: errors.New("redis down")}
	handler := NewEventHandler(NewAsynqScheduler(enq, clock.NewFake(now), 24*time.Hour, quietLogger()), quietLogger())

	msg, err := kafka.NewMessage().
		WithKey("staff-1").
		WithValue(confirmed(now.Add(72 * time.Hour))).
		WithEventType(events.TypeAppointmentConfirmed).
		Build()
	require.NoError(t, err)

	err = handler(context.Background(), msg)
	require.Error(t, err)
	assert.Equal(t, kafka.ErrorTypeTransient, kafka.ClassifyError(err))
}
