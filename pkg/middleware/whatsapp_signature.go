package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	apperrors "stylo/pkg/errors"
	httputil "stylo/pkg/http"
	"stylo/pkg/logger"
)

const signatureHeader = "X-Hub-Signature-256"

// WhatsAppSignatureVerification checks Meta's HMAC-SHA256 body signature on
// delivery-status webhooks.
func WhatsAppSignatureVerification(appSecret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			signature, found := strings.CutPrefix(r.Header.Get(signatureHeader), "sha256=")
			if !found || signature == "" {
				rejectWebhook(w, log, r, "missing or malformed signature header")
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				rejectWebhook(w, log, r, "failed to read request body")
				return
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))

			if !VerifySignature(body, signature, appSecret) {
				rejectWebhook(w, log, r, "invalid webhook signature")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func VerifySignature(body []byte, receivedSignature, appSecret string) bool {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(receivedSignature)))
}

func rejectWebhook(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	log.Warn("WhatsApp webhook verification failed",
		"request_id", RequestIDFrom(r.Context()),
		"reason", reason,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
	)
	_ = httputil.WriteError(w, apperrors.New("UNAUTHORIZED", "Unauthorized", http.StatusUnauthorized))
}
