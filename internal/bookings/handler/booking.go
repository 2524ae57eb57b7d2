package handler

import (
	"encoding/json"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"

	"stylo/internal/bookings/service"
	"stylo/internal/photos"
	apperrors "stylo/pkg/errors"
	httputil "stylo/pkg/http"
	"stylo/pkg/logger"
	"stylo/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// multipartMemory is what ParseMultipartForm keeps in memory; larger parts
// spill to temporary files.
const multipartMemory = photos.MaxPhotoBytes + 1<<20

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) decode(w http.ResponseWriter, r *http.Request, handler string, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, handler, apperrors.InvalidInput("Invalid request body"))
		return false
	}
	return true
}

func (h *BookingHandler) Start(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.StartBookingRequest
	if !h.decode(w, r, "Start", &req) {
		return
	}

	resp, err := h.service.Start(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Start", err)
		return
	}

	if err := httputil.WriteCreated(w, resp); err != nil {
		h.log.Error("failed to write created response", "handler", "Start", "operation", "WriteCreated", "error", err)
	}
}

// SendOTP accepts either a JSON body or a multipart form whose optional
// "photo" part is the client picture.
func (h *BookingHandler) SendOTP(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var (
		req   model.SendOTPRequest
		photo *photos.Photo
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		var (
			file multipart.File
			err  error
		)
		req, photo, file, err = readMultipartDraft(r)
		if err != nil {
			h.writeError(w, "SendOTP", err)
			return
		}
		if file != nil {
			defer file.Close()
		}
	} else if !h.decode(w, r, "SendOTP", &req) {
		return
	}

	resp, err := h.service.SendOTP(r.Context(), &req, photo)
	if err != nil {
		h.writeError(w, "SendOTP", err)
		return
	}

	if err := httputil.WriteSuccess(w, resp); err != nil {
		h.log.Error("failed to write success response", "handler", "SendOTP", "operation", "WriteSuccess", "error", err)
	}
}

func readMultipartDraft(r *http.Request) (model.SendOTPRequest, *photos.Photo, multipart.File, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return model.SendOTPRequest{}, nil, nil, apperrors.InvalidInput("Invalid multipart form")
	}

	req := model.SendOTPRequest{
		SessionToken: r.FormValue("session_token"),
		ClientDraft: model.ClientDraft{
			PhoneNumber:     r.FormValue("phone_number"),
			DocumentType:    r.FormValue("document_type"),
			DocumentNumber:  r.FormValue("document_number"),
			FirstName:       r.FormValue("first_name"),
			LastNamePaterno: r.FormValue("last_name_paterno"),
			LastNameMaterno: r.FormValue("last_name_materno"),
			Email:           r.FormValue("email"),
			Gender:          r.FormValue("gender"),
			BirthDate:       r.FormValue("birth_date"),
		},
	}

	file, header, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil, nil, nil
	}
	if err != nil {
		return req, nil, nil, apperrors.InvalidInput("Invalid photo upload")
	}

	photo := &photos.Photo{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
	}
	return req, photo, file, nil
}

func (h *BookingHandler) ResendOTP(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.SessionTokenRequest
	if !h.decode(w, r, "ResendOTP", &req) {
		return
	}

	resp, err := h.service.ResendOTP(r.Context(), req.SessionToken)
	if err != nil {
		h.writeError(w, "ResendOTP", err)
		return
	}

	if err := httputil.WriteSuccess(w, resp); err != nil {
		h.log.Error("failed to write success response", "handler", "ResendOTP", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) VerifyOTP(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.VerifyOTPRequest
	if !h.decode(w, r, "VerifyOTP", &req) {
		return
	}

	resp, err := h.service.VerifyOTP(r.Context(), &req)
	if err != nil {
		h.writeError(w, "VerifyOTP", err)
		return
	}

	if err := httputil.WriteCreated(w, resp); err != nil {
		h.log.Error("failed to write created response", "handler", "VerifyOTP", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.SessionTokenRequest
	if !h.decode(w, r, "Cancel", &req) {
		return
	}

	if err := h.service.Cancel(r.Context(), req.SessionToken); err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookingHandler) LookupClient(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.LookupClientRequest
	if !h.decode(w, r, "LookupClient", &req) {
		return
	}

	resp, err := h.service.LookupClient(r.Context(), &req)
	if err != nil {
		h.writeError(w, "LookupClient", err)
		return
	}

	if err := httputil.WriteSuccess(w, resp); err != nil {
		h.log.Error("failed to write success response", "handler", "LookupClient", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) LookupReniec(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.LookupIdentityRequest
	if !h.decode(w, r, "LookupReniec", &req) {
		return
	}

	person, err := h.service.LookupIdentity(r.Context(), req.DNI)
	if err != nil {
		h.writeError(w, "LookupReniec", err)
		return
	}

	if err := httputil.WriteSuccess(w, person); err != nil {
		h.log.Error("failed to write success response", "handler", "LookupReniec", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/booking/start", h.Start)
	router.POST("/api/v1/booking/send-otp", h.SendOTP)
	router.POST("/api/v1/booking/verify-otp", h.VerifyOTP)
	router.POST("/api/v1/booking/resend-otp", h.ResendOTP)
	router.POST("/api/v1/booking/cancel", h.Cancel)
	router.POST("/api/v1/booking/lookup-client", h.LookupClient)
	router.POST("/api/v1/booking/lookup-reniec", h.LookupReniec)
}
