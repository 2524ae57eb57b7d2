package handler

import (
	"net/http"

	"stylo/internal/availability/service"
	httputil "stylo/pkg/http"
	"stylo/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type AvailabilityHandler struct {
	service service.AvailabilityService
	log     *logger.Logger
}

func NewAvailabilityHandler(service service.AvailabilityService, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log,
	}
}

type daysResponse struct {
	Days any `json:"days"`
}

func (h *AvailabilityHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *AvailabilityHandler) slotQuery(r *http.Request, dateParam string) (service.SlotQuery, error) {
	branchID, err := httputil.RequiredQuery(r, "branch_id")
	if err != nil {
		return service.SlotQuery{}, err
	}
	serviceID, err := httputil.RequiredQuery(r, "service_id")
	if err != nil {
		return service.SlotQuery{}, err
	}
	date, err := httputil.DateQuery(r, dateParam, true)
	if err != nil {
		return service.SlotQuery{}, err
	}
	return service.SlotQuery{
		BranchID:  branchID,
		ServiceID: serviceID,
		StaffID:   httputil.OptionalQuery(r, "staff_id"),
		Date:      date,
	}, nil
}

func (h *AvailabilityHandler) Day(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q, err := h.slotQuery(r, "date")
	if err != nil {
		h.writeError(w, "Day", err)
		return
	}

	day, err := h.service.GetDaySlots(r.Context(), q)
	if err != nil {
		h.writeError(w, "Day", err)
		return
	}

	if err := httputil.WriteSuccess(w, day); err != nil {
		h.log.Error("failed to write success response", "handler", "Day", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) Week(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q, err := h.slotQuery(r, "start_date")
	if err != nil {
		h.writeError(w, "Week", err)
		return
	}

	days, err := h.service.GetWeekSlots(r.Context(), q)
	if err != nil {
		h.writeError(w, "Week", err)
		return
	}

	if err := httputil.WriteSuccess(w, daysResponse{Days: days}); err != nil {
		h.log.Error("failed to write success response", "handler", "Week", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) Month(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	branchID, err := httputil.RequiredQuery(r, "branch_id")
	if err != nil {
		h.writeError(w, "Month", err)
		return
	}
	serviceID, err := httputil.RequiredQuery(r, "service_id")
	if err != nil {
		h.writeError(w, "Month", err)
		return
	}

	days, err := h.service.GetMonthSlots(r.Context(), service.MonthQuery{
		BranchID:  branchID,
		ServiceID: serviceID,
		StaffID:   httputil.OptionalQuery(r, "staff_id"),
		Month:     httputil.OptionalQuery(r, "month"),
	})
	if err != nil {
		h.writeError(w, "Month", err)
		return
	}

	if err := httputil.WriteSuccess(w, daysResponse{Days: days}); err != nil {
		h.log.Error("failed to write success response", "handler", "Month", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/availability/day", h.Day)
	router.GET("/api/v1/availability/week", h.Week)
	router.GET("/api/v1/availability/month", h.Month)
}
