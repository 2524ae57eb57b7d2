package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"stylo/internal/identity"
	"stylo/internal/photos"
	apperrors "stylo/pkg/errors"
	"stylo/pkg/logger"
	"stylo/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	err error

	lastSend  *model.SendOTPRequest
	lastPhoto *photos.Photo
	photoBody string
	cancelled string
}

func (s *stubService) Start(_ context.Context, req *model.StartBookingRequest) (*model.StartBookingResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.StartBookingResponse{SessionToken: "tok", ExpiresIn: 900}, nil
}

func (s *stubService) SendOTP(_ context.Context, req *model.SendOTPRequest, photo *photos.Photo) (*model.OTPSentResponse, error) {
	s.lastSend = req
	s.lastPhoto = photo
	if photo != nil {
		body, _ := io.ReadAll(photo.Content)
		s.photoBody = string(body)
	}
	if s.err != nil {
		return nil, s.err
	}
	return &model.OTPSentResponse{Message: "sent", ExpiresIn: 300}, nil
}

func (s *stubService) ResendOTP(context.Context, string) (*model.OTPSentResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.OTPSentResponse{Message: "sent", ExpiresIn: 300}, nil
}

func (s *stubService) VerifyOTP(_ context.Context, req *model.VerifyOTPRequest) (*model.ConfirmationResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.ConfirmationResponse{Success: true, Appointment: &model.Appointment{ID: "appt-1"}}, nil
}

func (s *stubService) Cancel(_ context.Context, token string) error {
	s.cancelled = token
	return s.err
}

func (s *stubService) LookupClient(context.Context, *model.LookupClientRequest) (*model.LookupClientResponse, error) {
	return &model.LookupClientResponse{Found: false}, s.err
}

func (s *stubService) LookupIdentity(_ context.Context, dni string) (*identity.Person, error) {
	return &identity.Person{Found: true, DNI: dni, FirstName: "LUCIA"}, s.err
}

func (s *stubService) OnSessionExpired(context.Context, *model.BookingSession) {}

func newRouter(svc *stubService) *httprouter.Router {
	router := httprouter.New()
	log := logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard})
	NewBookingHandler(svc, log).RegisterRoutes(router)
	return router
}

func post(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		path string
		body string
		want int
	}{
		{"/api/v1/booking/start", `{"branch_id":"b"}`, http.StatusCreated},
		{"/api/v1/booking/send-otp", `{"session_token":"tok","phone_number":"+51987654321"}`, http.StatusOK},
		{"/api/v1/booking/resend-otp", `{"session_token":"tok"}`, http.StatusOK},
		{"/api/v1/booking/verify-otp", `{"session_token":"tok","otp_code":"123456"}`, http.StatusCreated},
		{"/api/v1/booking/cancel", `{"session_token":"tok"}`, http.StatusNoContent},
		{"/api/v1/booking/lookup-client", `{"document_type":"dni","document_number":"45678912"}`, http.StatusOK},
		{"/api/v1/booking/lookup-reniec", `{"dni":"45678912"}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := post(newRouter(&stubService{}), tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestMalformedBody(t *testing.T) {
	rec := post(newRouter(&stubService{}), "/api/v1/booking/verify-otp", `{"session_token":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apperrors.CodeInvalidInput, body.Code)
}

func TestDomainErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperrors.SlotUnavailable(), http.StatusConflict},
		{apperrors.SessionNotFound(), http.StatusNotFound},
		{apperrors.SessionExpired(), http.StatusGone},
		{apperrors.OTPMismatch(2), http.StatusBadRequest},
		{apperrors.OTPExhausted(), http.StatusTooManyRequests},
		{apperrors.OTPExpired(), http.StatusGone},
	}

	for _, tt := range tests {
		rec := post(newRouter(&stubService{err: tt.err}), "/api/v1/booking/verify-otp", `{"session_token":"tok","otp_code":"123456"}`)
		assert.Equal(t, tt.want, rec.Code)
	}
}

func TestResendRateLimitedSetsRetryAfter(t *testing.T) {
	rec := post(newRouter(&stubService{err: apperrors.ResendRateLimited(17)}), "/api/v1/booking/resend-otp", `{"session_token":"tok"}`)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "17", rec.Header().Get("Retry-After"))
}

func TestSendOTP_Multipart(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("session_token", "tok"))
	require.NoError(t, mw.WriteField("phone_number", "987654321"))
	require.NoError(t, mw.WriteField("document_type", "dni"))
	require.NoError(t, mw.WriteField("first_name", "Lucia"))

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="photo"; filename="me.jpg"`)
	header.Set("Content-Type", "image/jpeg")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/booking/send-otp", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	svc := &stubService{}
	newRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, svc.lastSend)
	assert.Equal(t, "tok", svc.lastSend.SessionToken)
	assert.Equal(t, "987654321", svc.lastSend.PhoneNumber)
	require.NotNil(t, svc.lastPhoto)
	assert.Equal(t, "image/jpeg", svc.lastPhoto.ContentType)
	assert.Equal(t, int64(len("jpeg-bytes")), svc.lastPhoto.Size)
	assert.Equal(t, "jpeg-bytes", svc.photoBody)
}

func TestSendOTP_MultipartWithoutPhoto(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("session_token", "tok"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/booking/send-otp", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	svc := &stubService{}
	newRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svc.lastPhoto)
}

func TestCancelPassesToken(t *testing.T) {
	svc := &stubService{}
	rec := post(newRouter(svc), "/api/v1/booking/cancel", `{"session_token":"abc"}`)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "abc", svc.cancelled)
}
