package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "stylo/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteError(rec, apperrors.ResendRateLimited(30)))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apperrors.CodeResendRateLimited, body.Code)
}

func TestWriteError_PlainErrorIsGeneric(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteError(rec, errors.New("mongo: no reachable servers")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "mongo")
}

func TestDateQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x?date=2024-06-01&bad=06/01/2024", nil)

	got, err := DateQuery(req, "date", true)
	require.NoError(t, err)
	assert.Equal(t, 2024, got.Year())

	_, err = DateQuery(req, "bad", true)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))

	_, err = DateQuery(req, "missing", true)
	assert.Error(t, err)

	got, err = DateQuery(req, "missing", false)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}
