package notifications

import (
	"encoding/json"
	"net/http"

	apperrors "stylo/pkg/errors"
	httputil "stylo/pkg/http"
	"stylo/pkg/logger"
	"stylo/pkg/metrics"

	"github.com/julienschmidt/httprouter"
)

type statusPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Statuses []struct {
					ID        string `json:"id"`
					Status    string `json:"status"`
					Timestamp string `json:"timestamp"`
					Errors    []struct {
						Code  int    `json:"code"`
						Title string `json:"title"`
					} `json:"errors"`
				} `json:"statuses"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// WebhookHandler records WhatsApp delivery receipts. Signature checks are
// done by middleware in front of it.
type WebhookHandler struct {
	metrics *metrics.BookingMetrics
	log     *logger.Logger
}

func NewWebhookHandler(m *metrics.BookingMetrics, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{metrics: m, log: log}
}

func (h *WebhookHandler) Status(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var payload statusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid webhook payload")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Status", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	count := 0
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, st := range change.Value.Statuses {
				count++
				h.metrics.ObserveNotification("status_"+st.Status, nil)
				if st.Status == "failed" {
					for _, e := range st.Errors {
						h.log.Warn("whatsapp delivery failed",
							"message_id", st.ID,
							"code", e.Code,
							"title", e.Title,
						)
					}
				}
			}
		}
	}

	if err := httputil.WriteSuccess(w, map[string]int{"processed": count}); err != nil {
		h.log.Error("failed to write success response", "handler", "Status", "operation", "WriteSuccess", "error", err)
	}
}

func (h *WebhookHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/webhooks/whatsapp", h.Status)
}
