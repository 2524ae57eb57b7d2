package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stylo/internal/availability/service"
	apperrors "stylo/pkg/errors"
	"stylo/pkg/logger"
	"stylo/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	lastDay   service.SlotQuery
	lastMonth service.MonthQuery
	err       error
}

func (s *stubService) GetDaySlots(_ context.Context, q service.SlotQuery) (*model.DayAvailability, error) {
	s.lastDay = q
	if s.err != nil {
		return nil, s.err
	}
	return &model.DayAvailability{Date: q.Date.Format(service.DateLayout), Slots: []model.AvailabilitySlot{}}, nil
}

func (s *stubService) GetWeekSlots(_ context.Context, q service.SlotQuery) ([]model.DayAvailability, error) {
	s.lastDay = q
	return make([]model.DayAvailability, 7), s.err
}

func (s *stubService) GetMonthSlots(_ context.Context, q service.MonthQuery) ([]model.DaySummary, error) {
	s.lastMonth = q
	return []model.DaySummary{{Date: "2026-03-02", Available: true, SlotsCount: 4}}, s.err
}

func (s *stubService) CheckSlot(context.Context, string, string, string, time.Time) (*model.ResolvedSlot, error) {
	return nil, nil
}

func newRouter(svc service.AvailabilityService) *httprouter.Router {
	router := httprouter.New()
	log := logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard})
	NewAvailabilityHandler(svc, log).RegisterRoutes(router)
	return router
}

func serve(router http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestDay(t *testing.T) {
	svc := &stubService{}
	rec := serve(newRouter(svc), "/api/v1/availability/day?branch_id=b1&service_id=s1&date=2026-03-03&staff_id=st1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "b1", svc.lastDay.BranchID)
	assert.Equal(t, "st1", svc.lastDay.StaffID)

	var body model.DayAvailability
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2026-03-03", body.Date)
}

func TestDay_RejectsBadQuery(t *testing.T) {
	router := newRouter(&stubService{})

	for _, target := range []string{
		"/api/v1/availability/day?service_id=s1&date=2026-03-03",
		"/api/v1/availability/day?branch_id=b1&date=2026-03-03",
		"/api/v1/availability/day?branch_id=b1&service_id=s1",
		"/api/v1/availability/day?branch_id=b1&service_id=s1&date=03/03/2026",
	} {
		rec := serve(router, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestDay_NotFound(t *testing.T) {
	svc := &stubService{err: apperrors.NotFoundWithID("branch", "b1")}
	rec := serve(newRouter(svc), "/api/v1/availability/day?branch_id=b1&service_id=s1&date=2026-03-03")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWeek(t *testing.T) {
	rec := serve(newRouter(&stubService{}), "/api/v1/availability/week?branch_id=b1&service_id=s1&start_date=2026-03-03")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Days []model.DayAvailability `json:"days"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Days, 7)
}

func TestMonth(t *testing.T) {
	svc := &stubService{}
	rec := serve(newRouter(svc), "/api/v1/availability/month?branch_id=b1&service_id=s1&month=2026-03")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2026-03", svc.lastMonth.Month)

	var body struct {
		Days []model.DaySummary `json:"days"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Days, 1)
	assert.Equal(t, 4, body.Days[0].SlotsCount)
}
