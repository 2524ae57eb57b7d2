package notifications

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"stylo/pkg/client"
	"stylo/pkg/logger"
	"stylo/pkg/sanitizer"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("stylo.internal.notifications")

// Sender delivers one message and returns the provider message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// MockSender logs messages instead of delivering them and keeps a copy for
// inspection.
type MockSender struct {
	log *logger.Logger

	mu   sync.Mutex
	sent []Message
}

func NewMockSender(log *logger.Logger) *MockSender {
	return &MockSender{log: log}
}

func (s *MockSender) Send(_ context.Context, msg Message) (string, error) {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()

	id := "mock_" + uuid.NewString()
	s.log.Info("whatsapp message (mock)",
		"kind", msg.Kind,
		"to", sanitizer.MaskPhone(msg.To),
		"ref", msg.Ref,
		"message_id", id,
	)
	return id, nil
}

func (s *MockSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}

type metaTextRequest struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

type metaSendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// MetaSender talks to the WhatsApp Cloud API.
type MetaSender struct {
	client        *client.HttpClient
	phoneNumberID string
}

func NewMetaSender(httpClient *client.HttpClient, phoneNumberID string) *MetaSender {
	return &MetaSender{client: httpClient, phoneNumberID: phoneNumberID}
}

func (s *MetaSender) Send(ctx context.Context, msg Message) (string, error) {
	ctx, span := tracer.Start(ctx, "whatsapp.send")
	defer span.End()
	span.SetAttributes(attribute.String("kind", string(msg.Kind)))

	req := metaTextRequest{
		MessagingProduct: "whatsapp",
		To:               strings.TrimPrefix(msg.To, "+"),
		Type:             "text",
	}
	req.Text.Body = msg.Body

	resp, err := s.client.POST(ctx, "/"+s.phoneNumberID+"/messages", req)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("whatsapp send: %w", err)
	}
	if !resp.OK() {
		err := fmt.Errorf("whatsapp send: status %d: %s", resp.StatusCode, client.ErrorMessage(resp))
		span.RecordError(err)
		return "", err
	}

	var out metaSendResponse
	if err := resp.DecodeJSON(&out); err != nil {
		return "", fmt.Errorf("whatsapp send: decode response: %w", err)
	}
	if len(out.Messages) == 0 {
		return "", nil
	}
	return out.Messages[0].ID, nil
}
