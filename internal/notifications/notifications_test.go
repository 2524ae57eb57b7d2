package notifications

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stylo/pkg/client"
	"stylo/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logger.Logger {
	return logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard})
}

type funcSender func(ctx context.Context, msg Message) (string, error)

func (f funcSender) Send(ctx context.Context, msg Message) (string, error) { return f(ctx, msg) }

func TestMessages_Localized(t *testing.T) {
	es := OTPMessage("+51987654321", "123456", 5*time.Minute, "ref")
	assert.Contains(t, es.Body, "Tu código de verificación Stylo es: 123456")
	assert.Contains(t, es.Body, "5 minutos")

	en := OTPMessage("+12025550123", "123456", 5*time.Minute, "ref")
	assert.Contains(t, en.Body, "Your Stylo verification code is: 123456")

	lima, err := time.LoadLocation("America/Lima")
	require.NoError(t, err)
	confirmation := ConfirmationMessage(AppointmentDetails{
		AppointmentID: "appt-1",
		ClientName:    "Lucia",
		Phone:         "+51987654321",
		ServiceName:   "Corte",
		StaffName:     "Ana Perez",
		BranchName:    "Miraflores",
		Start:         time.Date(2026, time.May, 12, 15, 30, 0, 0, time.UTC),
		Location:      lima,
	})
	assert.Equal(t, KindConfirmation, confirmation.Kind)
	assert.Contains(t, confirmation.Body, "martes 12 de mayo, 10:30")
	assert.Equal(t, "appt-1", confirmation.Ref)
}

func TestDispatcher_DeliversAndDrains(t *testing.T) {
	var delivered atomic.Int64
	sender := funcSender(func(ctx context.Context, msg Message) (string, error) {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		delivered.Add(1)
		return "id", nil
	})

	d := NewDispatcher(sender, 4, time.Second, nil, quietLogger())
	for i := 0; i < 20; i++ {
		assert.True(t, d.Dispatch(Message{Kind: KindOTP, To: "+51987654321"}))
	}
	d.Stop()

	assert.Equal(t, int64(20), delivered.Load())
	assert.False(t, d.Dispatch(Message{Kind: KindOTP}), "stopped dispatcher rejects messages")
	d.Stop()
}

func TestDispatcher_FailuresDoNotStopWorkers(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	sender := funcSender(func(_ context.Context, msg Message) (string, error) {
		mu.Lock()
		seen = append(seen, msg.Ref)
		mu.Unlock()
		if msg.Ref == "bad" {
			return "", errors.New("provider down")
		}
		return "id", nil
	})

	d := NewDispatcher(sender, 1, time.Second, nil, quietLogger())
	d.Dispatch(Message{Kind: KindOTP, Ref: "bad"})
	d.Dispatch(Message{Kind: KindOTP, Ref: "good"})
	d.Stop()

	assert.Equal(t, []string{"bad", "good"}, seen)
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	sender := funcSender(func(context.Context, Message) (string, error) {
		<-release
		return "id", nil
	})

	d := NewDispatcher(sender, 1, time.Second, nil, quietLogger())
	accepted := 0
	for i := 0; i < queuePerWorker+5; i++ {
		if d.Dispatch(Message{Kind: KindOTP}) {
			accepted++
		}
	}
	assert.Less(t, accepted, queuePerWorker+5)
	close(release)
	d.Stop()
}

func TestMetaSender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/12345/messages", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"to":"51987654321"`)
		assert.Contains(t, string(body), `"messaging_product":"whatsapp"`)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	sender := NewMetaSender(client.NewHttpClient(srv.URL, time.Second).WithBearer("token"), "12345")
	id, err := sender.Send(context.Background(), Message{Kind: KindOTP, To: "+51987654321", Body: "hola"})
	require.NoError(t, err)
	assert.Equal(t, "wamid.1", id)
}

func TestMetaSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid recipient"}}`))
	}))
	defer srv.Close()

	sender := NewMetaSender(client.NewHttpClient(srv.URL, time.Second), "12345")
	_, err := sender.Send(context.Background(), Message{Kind: KindOTP, To: "+51987654321"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recipient")
}

func TestMockSender_RecordsMessages(t *testing.T) {
	sender := NewMockSender(quietLogger())
	_, err := sender.Send(context.Background(), Message{Kind: KindReminder, To: "+51987654321"})
	require.NoError(t, err)
	require.Len(t, sender.Sent(), 1)
	assert.Equal(t, KindReminder, sender.Sent()[0].Kind)
}

func TestWebhookHandler_Status(t *testing.T) {
	router := httprouter.New()
	NewWebhookHandler(nil, quietLogger()).RegisterRoutes(router)

	payload := `{"entry":[{"changes":[{"value":{"statuses":[
		{"id":"wamid.1","status":"delivered"},
		{"id":"wamid.2","status":"failed","errors":[{"code":131026,"title":"Message undeliverable"}]}
	]}}]}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(payload)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"processed":2}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
