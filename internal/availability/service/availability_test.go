package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"stylo/internal/availability/repository"
	"stylo/pkg/clock"
	apperrors "stylo/pkg/errors"
	"stylo/pkg/logger"
	"stylo/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lima = mustLocation("America/Lima")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func at(day, hour, minute int) time.Time {
	return time.Date(2026, time.March, day, hour, minute, 0, 0, lima)
}

type fakeOccupancy struct {
	mu   sync.Mutex
	busy map[string][]model.Interval
	err  error
}

func (f *fakeOccupancy) BusyIntervals(_ context.Context, staffID string, from, to time.Time) ([]model.Interval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	window := model.Interval{Start: from, End: to}
	var out []model.Interval
	for _, iv := range f.busy[staffID] {
		if iv.Overlaps(window) {
			out = append(out, iv)
		}
	}
	return out, nil
}

func testSeed() *repository.CatalogSeed {
	seed := &repository.CatalogSeed{
		Branches: []model.Branch{{
			ID: "branch-1", Name: "Miraflores", TimeZone: "America/Lima",
			OpeningTime: "09:00", ClosingTime: "18:00", Active: true,
		}},
		Services: []model.Service{{
			ID: "cut", BranchID: "branch-1", Name: "Corte", DurationMinutes: 60, Price: 40, Active: true,
		}},
		Staff: []model.Staff{
			{ID: "staff-b", FirstName: "Bruno", LastName: "Diaz", BranchIDs: []string{"branch-1"},
				Services: []model.StaffService{{ServiceID: "cut", Active: true}}, Active: true},
			{ID: "staff-a", FirstName: "Ana", LastName: "Perez", BranchIDs: []string{"branch-1"},
				Services: []model.StaffService{{ServiceID: "cut", Active: true}}, Active: true},
		},
	}
	for weekday := 0; weekday < 7; weekday++ {
		for _, staffID := range []string{"staff-a", "staff-b"} {
			seed.WorkSchedules = append(seed.WorkSchedules, model.WorkSchedule{
				StaffID: staffID, BranchID: "branch-1", Weekday: weekday,
				Start: "09:00", End: "13:00", IsWorking: true,
			})
		}
	}
	return seed
}

type fixture struct {
	svc       AvailabilityService
	catalog   *repository.MemoryCatalog
	occupancy *fakeOccupancy
	clock     *clock.Fake
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog := repository.NewMemoryCatalog(testSeed())
	occupancy := &fakeOccupancy{busy: map[string][]model.Interval{}}
	clk := clock.NewFake(at(2, 8, 0))
	log := logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard})

	svc := NewAvailabilityService(catalog, occupancy, clk, Settings{
		Granularity:   30 * time.Minute,
		MinLeadTime:   30 * time.Minute,
		HorizonDays:   60,
		MonthViewDays: 30,
	}, nil, log)

	return &fixture{svc: svc, catalog: catalog, occupancy: occupancy, clock: clk}
}

func dayQuery(date string) SlotQuery {
	d, _ := time.Parse(DateLayout, date)
	return SlotQuery{BranchID: "branch-1", ServiceID: "cut", Date: d}
}

func TestGetDaySlots_StepsThroughSchedule(t *testing.T) {
	f := newFixture(t)

	day, err := f.svc.GetDaySlots(context.Background(), dayQuery("2026-03-03"))
	require.NoError(t, err)

	assert.Equal(t, "2026-03-03", day.Date)
	assert.Equal(t, 14, day.AvailableCount)
	require.Len(t, day.Slots, 14)

	first, second := day.Slots[0], day.Slots[1]
	assert.True(t, first.Datetime.Equal(at(3, 9, 0)))
	assert.True(t, first.EndDatetime.Equal(at(3, 10, 0)))
	assert.Equal(t, "Ana Perez", first.StaffName)
	assert.Equal(t, "Bruno Diaz", second.StaffName)
	assert.True(t, day.Slots[13].Datetime.Equal(at(3, 12, 0)))
}

func TestGetDaySlots_SingleStaff(t *testing.T) {
	f := newFixture(t)
	q := dayQuery("2026-03-03")
	q.StaffID = "staff-b"

	day, err := f.svc.GetDaySlots(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 7, day.AvailableCount)
	for _, slot := range day.Slots {
		assert.Equal(t, "staff-b", slot.StaffID)
	}
}

func TestGetDaySlots_ExcludesBusyAndBlocked(t *testing.T) {
	f := newFixture(t)
	f.occupancy.busy["staff-a"] = []model.Interval{{Start: at(3, 10, 0), End: at(3, 11, 0)}}
	f.catalog.AddBlockedTime(model.BlockedTime{
		ID: "lunch", StaffID: "staff-b", Start: at(3, 12, 0), End: at(3, 13, 0),
	})

	day, err := f.svc.GetDaySlots(context.Background(), dayQuery("2026-03-03"))
	require.NoError(t, err)

	counts := map[string]int{}
	for _, slot := range day.Slots {
		counts[slot.StaffID]++
		if slot.StaffID == "staff-a" {
			busy := model.Interval{Start: at(3, 10, 0), End: at(3, 11, 0)}
			assert.False(t, busy.Overlaps(model.Interval{Start: slot.Datetime, End: slot.EndDatetime}))
		}
	}
	// 09:30, 10:00 and 10:30 clash with the appointment
	assert.Equal(t, 4, counts["staff-a"])
	// 11:30 and 12:00 clash with the block
	assert.Equal(t, 5, counts["staff-b"])
}

func TestGetDaySlots_AppliesLeadTime(t *testing.T) {
	f := newFixture(t)
	f.clock.Set(at(2, 10, 10))

	day, err := f.svc.GetDaySlots(context.Background(), dayQuery("2026-03-02"))
	require.NoError(t, err)

	assert.Equal(t, 6, day.AvailableCount)
	for _, slot := range day.Slots {
		assert.False(t, slot.Datetime.Before(at(2, 10, 40)))
	}
}

func TestGetDaySlots_SpecialDates(t *testing.T) {
	tests := []struct {
		name     string
		special  model.SpecialDate
		expected int
	}{
		{
			name:     "closed",
			special:  model.SpecialDate{BranchID: "branch-1", Date: "2026-03-03", Type: model.SpecialDateClosed},
			expected: 0,
		},
		{
			name:     "holiday",
			special:  model.SpecialDate{BranchID: "branch-1", Date: "2026-03-03", Type: model.SpecialDateHoliday},
			expected: 0,
		},
		{
			name: "special hours narrow the day",
			special: model.SpecialDate{BranchID: "branch-1", Date: "2026-03-03", Type: model.SpecialDateSpecialHours,
				Open: "10:00", Close: "12:00"},
			expected: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.catalog.AddSpecialDate(tt.special)

			day, err := f.svc.GetDaySlots(context.Background(), dayQuery("2026-03-03"))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, day.AvailableCount)
			assert.NotNil(t, day.Slots)
		})
	}
}

func TestGetDaySlots_OutsideHorizon(t *testing.T) {
	f := newFixture(t)

	past, err := f.svc.GetDaySlots(context.Background(), dayQuery("2026-03-01"))
	require.NoError(t, err)
	assert.Zero(t, past.AvailableCount)

	far, err := f.svc.GetDaySlots(context.Background(), dayQuery("2026-05-10"))
	require.NoError(t, err)
	assert.Zero(t, far.AvailableCount)
}

func TestGetDaySlots_UnknownCatalogEntries(t *testing.T) {
	f := newFixture(t)

	tests := []SlotQuery{
		{BranchID: "missing", ServiceID: "cut", Date: at(3, 0, 0)},
		{BranchID: "branch-1", ServiceID: "missing", Date: at(3, 0, 0)},
		{BranchID: "branch-1", ServiceID: "cut", StaffID: "missing", Date: at(3, 0, 0)},
	}
	for _, q := range tests {
		_, err := f.svc.GetDaySlots(context.Background(), q)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), "query %+v: %v", q, err)
	}
}

func TestGetWeekSlots(t *testing.T) {
	f := newFixture(t)

	days, err := f.svc.GetWeekSlots(context.Background(), dayQuery("2026-03-03"))
	require.NoError(t, err)
	require.Len(t, days, 7)

	assert.Equal(t, "2026-03-03", days[0].Date)
	assert.Equal(t, "2026-03-09", days[6].Date)
	for _, d := range days {
		assert.Equal(t, 14, d.AvailableCount, d.Date)
	}
}

func TestGetWeekSlots_DegradesFailedDays(t *testing.T) {
	f := newFixture(t)
	f.occupancy.err = errors.New("store down")

	days, err := f.svc.GetWeekSlots(context.Background(), dayQuery("2026-03-03"))
	require.NoError(t, err)
	require.Len(t, days, 7)
	for _, d := range days {
		assert.Zero(t, d.AvailableCount)
	}
}

func TestGetMonthSlots(t *testing.T) {
	f := newFixture(t)
	f.catalog.AddSpecialDate(model.SpecialDate{BranchID: "branch-1", Date: "2026-03-10", Type: model.SpecialDateClosed})

	days, err := f.svc.GetMonthSlots(context.Background(), MonthQuery{
		BranchID: "branch-1", ServiceID: "cut", Month: "2026-03",
	})
	require.NoError(t, err)
	require.Len(t, days, 30)
	assert.Equal(t, "2026-03-02", days[0].Date)
	assert.Equal(t, "2026-03-31", days[29].Date)

	for _, d := range days {
		if d.Date == "2026-03-10" {
			assert.False(t, d.Available)
			assert.Zero(t, d.SlotsCount)
			continue
		}
		assert.True(t, d.Available, d.Date)
	}
}

func TestGetMonthSlots_DefaultWindow(t *testing.T) {
	f := newFixture(t)

	days, err := f.svc.GetMonthSlots(context.Background(), MonthQuery{BranchID: "branch-1", ServiceID: "cut"})
	require.NoError(t, err)
	require.Len(t, days, 30)
	assert.Equal(t, "2026-03-02", days[0].Date)
	assert.Equal(t, "2026-03-31", days[29].Date)
}

func TestGetMonthSlots_InvalidMonth(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetMonthSlots(context.Background(), MonthQuery{BranchID: "branch-1", ServiceID: "cut", Month: "03-2026"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestCheckSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	slot, err := f.svc.CheckSlot(ctx, "branch-1", "cut", "staff-a", at(3, 9, 30))
	require.NoError(t, err)
	assert.Equal(t, "staff-a", slot.Staff.ID)
	assert.Equal(t, time.Hour, slot.Duration)
	assert.Equal(t, 40.0, slot.Price)
	assert.True(t, slot.End.Equal(at(3, 10, 30)))

	_, err = f.svc.CheckSlot(ctx, "branch-1", "cut", "staff-a", at(3, 12, 30))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSlotUnavailable), "slot overruns the schedule")

	_, err = f.svc.CheckSlot(ctx, "branch-1", "cut", "staff-a", at(2, 8, 15))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSlotUnavailable), "slot inside lead time")

	f.occupancy.busy["staff-a"] = []model.Interval{{Start: at(3, 10, 0), End: at(3, 11, 0)}}
	_, err = f.svc.CheckSlot(ctx, "branch-1", "cut", "staff-a", at(3, 9, 30))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeSlotUnavailable), "slot overlaps an appointment")

	_, err = f.svc.CheckSlot(ctx, "branch-1", "cut", "ghost", at(3, 9, 30))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestCheckSlot_CustomPriceAndDuration(t *testing.T) {
	seed := testSeed()
	price, minutes := 55.0, 90
	seed.Staff[1].Services[0].CustomPrice = &price
	seed.Staff[1].Services[0].CustomDuration = &minutes

	svc := NewAvailabilityService(repository.NewMemoryCatalog(seed), &fakeOccupancy{}, clock.NewFake(at(2, 8, 0)),
		Settings{Granularity: 30 * time.Minute, HorizonDays: 60, MonthViewDays: 30}, nil,
		logger.New(logger.Config{Level: logger.ERROR, Output: io.Discard}))

	slot, err := svc.CheckSlot(context.Background(), "branch-1", "cut", "staff-a", at(3, 9, 0))
	require.NoError(t, err)
	assert.Equal(t, 55.0, slot.Price)
	assert.Equal(t, 90*time.Minute, slot.Duration)
}
