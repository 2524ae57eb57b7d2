package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageBuilder_Build(t *testing.T) {
	msg, err := NewMessage().
		WithKey("staff-1").
		WithEventType("appointment.confirmed").
		WithValue(map[string]string{"appointment_id": "a-1"}).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "staff-1", msg.Key)
	assert.NotEmpty(t, msg.EventID())
	assert.Equal(t, "appointment.confirmed", msg.EventType())
	assert.NotEmpty(t, msg.Headers[HeaderTimestamp])

	var decoded map[string]string
	require.NoError(t, msg.DecodeValue(&decoded))
	assert.Equal(t, "a-1", decoded["appointment_id"])
}

func TestMessageBuilder_EncodeErrorIsPermanent(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	require.Error(t, err)
	assert.Equal(t, ErrorTypePermanent, ClassifyError(err))
}

func TestMessage_RetryCount(t *testing.T) {
	msg := Message{}
	assert.Equal(t, 0, msg.RetryCount())

	for i := 0; i < 12; i++ {
		msg.IncrementRetryCount()
	}
	assert.Equal(t, 12, msg.RetryCount())
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		retries int
		want    bool
	}{
		{"nil error", nil, 0, false},
		{"transient", NewTransientError("write", errors.New("x")), 0, true},
		{"transient exhausted", NewTransientError("write", errors.New("x")), 3, false},
		{"permanent", NewPermanentError("decode", errors.New("x")), 0, false},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), 1, true},
		{"connection refused", errors.New("dial tcp: Connection Refused"), 0, true},
		{"unknown", errors.New("appointment not found"), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldRetry(tt.err, tt.retries, 3))
		})
	}
}
