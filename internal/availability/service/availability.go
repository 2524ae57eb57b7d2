package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	availabilityerrors "stylo/internal/availability/errors"
	"stylo/internal/availability/repository"
	"stylo/pkg/clock"
	apperrors "stylo/pkg/errors"
	"stylo/pkg/logger"
	"stylo/pkg/metrics"
	"stylo/pkg/model"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"

	weekDays        = 7
	monthWorkers    = 8
	viewDay         = "day"
	viewWeek        = "week"
	viewMonth       = "month"
	viewCheck       = "check"
	tracerComponent = "stylo.internal.availability"
)

var tracer = otel.Tracer(tracerComponent)

// Occupancy reports the intervals a staff member is already committed to:
// blocking appointments plus live session holds.
type Occupancy interface {
	BusyIntervals(ctx context.Context, staffID string, from, to time.Time) ([]model.Interval, error)
}

type Settings struct {
	Granularity   time.Duration // 0 steps by the service duration
	MinLeadTime   time.Duration
	HorizonDays   int
	MonthViewDays int
}

type SlotQuery struct {
	BranchID  string
	ServiceID string
	StaffID   string    // optional
	Date      time.Time // calendar date; only Y/M/D are used
}

type MonthQuery struct {
	BranchID  string
	ServiceID string
	StaffID   string // optional
	Month     string // optional YYYY-MM
}

type AvailabilityService interface {
	GetDaySlots(ctx context.Context, q SlotQuery) (*model.DayAvailability, error)
	GetWeekSlots(ctx context.Context, q SlotQuery) ([]model.DayAvailability, error)
	GetMonthSlots(ctx context.Context, q MonthQuery) ([]model.DaySummary, error)
	CheckSlot(ctx context.Context, branchID, serviceID, staffID string, start time.Time) (*model.ResolvedSlot, error)
}

type availabilityService struct {
	catalog   repository.CatalogRepository
	occupancy Occupancy
	clock     clock.Clock
	settings  Settings
	metrics   *metrics.BookingMetrics
	log       *logger.Logger
}

func NewAvailabilityService(
	catalog repository.CatalogRepository,
	occupancy Occupancy,
	clk clock.Clock,
	settings Settings,
	m *metrics.BookingMetrics,
	log *logger.Logger,
) AvailabilityService {
	return &availabilityService{
		catalog:   catalog,
		occupancy: occupancy,
		clock:     clk,
		settings:  settings,
		metrics:   m,
		log:       log,
	}
}

// scope is the catalog context shared by every day of a view.
type scope struct {
	branch  *model.Branch
	service *model.Service
	staff   []*model.Staff
	loc     *time.Location
}

// window is one staff member's bookable span on one day.
type window struct {
	staff    *model.Staff
	interval model.Interval
	duration time.Duration
}

func (s *availabilityService) GetDaySlots(ctx context.Context, q SlotQuery) (*model.DayAvailability, error) {
	ctx, span := tracer.Start(ctx, "availability.day", trace.WithAttributes(
		attribute.String("branch_id", q.BranchID),
		attribute.String("service_id", q.ServiceID),
	))
	defer span.End()
	defer s.observe(viewDay, time.Now())

	sc, err := s.resolve(ctx, q.BranchID, q.ServiceID, q.StaffID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	day, err := s.daySlots(ctx, sc, q.Date)
	if err != nil {
		span.RecordError(err)
		s.log.Error("failed to compute day slots",
			"branch_id", q.BranchID,
			"service_id", q.ServiceID,
			"date", q.Date.Format(DateLayout),
			"error", err,
		)
		return nil, apperrors.Internal("Failed to compute availability", err)
	}
	return day, nil
}

// GetWeekSlots computes seven consecutive days concurrently. A day that fails
// is reported as having no slots instead of failing the week.
func (s *availabilityService) GetWeekSlots(ctx context.Context, q SlotQuery) ([]model.DayAvailability, error) {
	ctx, span := tracer.Start(ctx, "availability.week")
	defer span.End()
	defer s.observe(viewWeek, time.Now())

	sc, err := s.resolve(ctx, q.BranchID, q.ServiceID, q.StaffID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	dates := make([]time.Time, weekDays)
	for i := range dates {
		dates[i] = q.Date.AddDate(0, 0, i)
	}

	days := s.computeDays(ctx, sc, dates, weekDays)
	return days, nil
}

func (s *availabilityService) GetMonthSlots(ctx context.Context, q MonthQuery) ([]model.DaySummary, error) {
	ctx, span := tracer.Start(ctx, "availability.month")
	defer span.End()
	defer s.observe(viewMonth, time.Now())

	sc, err := s.resolve(ctx, q.BranchID, q.ServiceID, q.StaffID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	dates, err := s.monthDates(sc.loc, q.Month)
	if err != nil {
		return nil, err
	}

	days := s.computeDays(ctx, sc, dates, monthWorkers)
	summaries := make([]model.DaySummary, len(days))
	for i, d := range days {
		summaries[i] = model.DaySummary{
			Date:       d.Date,
			Available:  d.AvailableCount > 0,
			SlotsCount: d.AvailableCount,
		}
	}
	return summaries, nil
}

// CheckSlot validates one candidate start for a specific staff member and
// returns the slot fully resolved against the catalog.
func (s *availabilityService) CheckSlot(ctx context.Context, branchID, serviceID, staffID string, start time.Time) (*model.ResolvedSlot, error) {
	ctx, span := tracer.Start(ctx, "availability.check_slot", trace.WithAttributes(
		attribute.String("staff_id", staffID),
		attribute.String("start", start.UTC().Format(time.RFC3339)),
	))
	defer span.End()
	defer s.observe(viewCheck, time.Now())

	if staffID == "" {
		return nil, apperrors.InvalidInput("staff_id is required")
	}

	sc, err := s.resolve(ctx, branchID, serviceID, staffID)
	if err != nil {
		return nil, err
	}
	staff := sc.staff[0]

	local := start.In(sc.loc)
	if !s.withinHorizon(local, sc.loc) {
		return nil, apperrors.SlotUnavailable()
	}

	windows, err := s.windows(ctx, sc, local)
	if err != nil {
		return nil, apperrors.Internal("Failed to check availability", err)
	}
	if len(windows) == 0 {
		return nil, apperrors.SlotUnavailable()
	}

	w := windows[0]
	candidate := model.Interval{Start: start.UTC(), End: start.UTC().Add(w.duration)}
	if candidate.Start.Before(w.interval.Start) || candidate.End.After(w.interval.End) {
		return nil, apperrors.SlotUnavailable()
	}
	if candidate.Start.Before(s.clock.Now().Add(s.settings.MinLeadTime)) {
		return nil, apperrors.SlotUnavailable()
	}

	busy, err := s.busy(ctx, staff.ID, candidate)
	if err != nil {
		return nil, apperrors.Internal("Failed to check availability", err)
	}
	for _, b := range busy {
		if b.Overlaps(candidate) {
			return nil, apperrors.SlotUnavailable()
		}
	}

	return &model.ResolvedSlot{
		Branch:   sc.branch,
		Service:  sc.service,
		Staff:    staff,
		Start:    candidate.Start,
		End:      candidate.End,
		Duration: w.duration,
		Price:    staff.PriceFor(sc.service),
	}, nil
}

func (s *availabilityService) observe(view string, start time.Time) {
	s.metrics.ObserveAvailability(view, time.Since(start).Seconds())
}

func (s *availabilityService) resolve(ctx context.Context, branchID, serviceID, staffID string) (*scope, error) {
	branch, err := s.catalog.GetBranch(ctx, branchID)
	if err != nil {
		return nil, translateCatalogError(err, "branch", branchID)
	}

	service, err := s.catalog.GetService(ctx, branchID, serviceID)
	if err != nil {
		return nil, translateCatalogError(err, "service", serviceID)
	}

	var staff []*model.Staff
	if staffID != "" {
		member, err := s.catalog.GetStaff(ctx, staffID)
		if err != nil {
			return nil, translateCatalogError(err, "staff", staffID)
		}
		if !member.WorksAt(branchID) {
			return nil, apperrors.NotFoundWithID("staff", staffID)
		}
		if _, ok := member.Offering(serviceID); !ok {
			return nil, apperrors.NotFoundWithID("staff", staffID)
		}
		staff = []*model.Staff{member}
	} else {
		staff, err = s.catalog.ListStaffForService(ctx, branchID, serviceID)
		if err != nil {
			return nil, apperrors.Internal("Failed to load staff", err)
		}
	}

	return &scope{
		branch:  branch,
		service: service,
		staff:   staff,
		loc:     branch.Location(),
	}, nil
}

func translateCatalogError(err error, resource, id string) error {
	switch {
	case errors.Is(err, availabilityerrors.ErrBranchNotFound),
		errors.Is(err, availabilityerrors.ErrServiceNotFound),
		errors.Is(err, availabilityerrors.ErrStaffNotFound):
		return apperrors.NotFoundWithID(resource, id)
	default:
		return apperrors.Internal(fmt.Sprintf("Failed to load %s", resource), err)
	}
}

func (s *availabilityService) computeDays(ctx context.Context, sc *scope, dates []time.Time, workers int) []model.DayAvailability {
	results := make([]model.DayAvailability, len(dates))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, date := range dates {
		wg.Add(1)
		go func(i int, date time.Time) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			day, err := s.daySlots(ctx, sc, date)
			if err != nil {
				s.log.Warn("availability day degraded to empty",
					"branch_id", sc.branch.ID,
					"service_id", sc.service.ID,
					"date", date.Format(DateLayout),
					"error", err,
				)
				day = emptyDay(date)
			}
			results[i] = *day
		}(i, date)
	}

	wg.Wait()
	return results
}

func emptyDay(date time.Time) *model.DayAvailability {
	return &model.DayAvailability{
		Date:  date.Format(DateLayout),
		Slots: []model.AvailabilitySlot{},
	}
}

func (s *availabilityService) daySlots(ctx context.Context, sc *scope, date time.Time) (*model.DayAvailability, error) {
	local := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, sc.loc)
	day := emptyDay(date)

	if !s.withinHorizon(local, sc.loc) {
		return day, nil
	}

	windows, err := s.windows(ctx, sc, local)
	if err != nil {
		return nil, err
	}

	earliest := s.clock.Now().Add(s.settings.MinLeadTime)

	for _, w := range windows {
		busy, err := s.busy(ctx, w.staff.ID, w.interval)
		if err != nil {
			return nil, err
		}

		step := s.settings.Granularity
		if step <= 0 {
			step = w.duration
		}

		for start := w.interval.Start; !start.Add(w.duration).After(w.interval.End); start = start.Add(step) {
			if start.Before(earliest) {
				continue
			}
			candidate := model.Interval{Start: start, End: start.Add(w.duration)}
			if overlapsAny(candidate, busy) {
				continue
			}
			day.Slots = append(day.Slots, model.AvailabilitySlot{
				Datetime:    candidate.Start,
				EndDatetime: candidate.End,
				StaffID:     w.staff.ID,
				StaffName:   w.staff.Name(),
			})
		}
	}

	sort.SliceStable(day.Slots, func(i, j int) bool {
		a, b := day.Slots[i], day.Slots[j]
		if !a.Datetime.Equal(b.Datetime) {
			return a.Datetime.Before(b.Datetime)
		}
		return a.StaffName < b.StaffName
	})
	day.AvailableCount = len(day.Slots)
	return day, nil
}

// withinHorizon reports whether the calendar day of local lies in
// [today, today+HorizonDays] in the branch timezone.
func (s *availabilityService) withinHorizon(local time.Time, loc *time.Location) bool {
	now := s.clock.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	last := today.AddDate(0, 0, s.settings.HorizonDays)
	return !day.Before(today) && !day.After(last)
}

// windows returns, per eligible staff member, the intersection of branch hours
// and the staff work schedule for the calendar day of local.
func (s *availabilityService) windows(ctx context.Context, sc *scope, local time.Time) ([]window, error) {
	open, close, ok, err := s.branchHours(ctx, sc.branch, local)
	if err != nil || !ok {
		return nil, err
	}

	var out []window
	for _, staff := range sc.staff {
		schedule, err := s.catalog.GetWorkSchedule(ctx, staff.ID, sc.branch.ID, local.Weekday())
		if err != nil {
			return nil, fmt.Errorf("work schedule for staff %s: %w", staff.ID, err)
		}
		if schedule == nil || !schedule.IsWorking {
			continue
		}

		start, err := atClock(local, schedule.Start)
		if err != nil {
			return nil, err
		}
		end, err := atClock(local, schedule.End)
		if err != nil {
			return nil, err
		}

		if open.After(start) {
			start = open
		}
		if close.Before(end) {
			end = close
		}
		if !start.Before(end) {
			continue
		}

		out = append(out, window{
			staff:    staff,
			interval: model.Interval{Start: start.UTC(), End: end.UTC()},
			duration: staff.DurationFor(sc.service),
		})
	}
	return out, nil
}

func (s *availabilityService) branchHours(ctx context.Context, branch *model.Branch, local time.Time) (time.Time, time.Time, bool, error) {
	special, err := s.catalog.GetSpecialDate(ctx, branch.ID, local.Format(DateLayout))
	if err != nil {
		return time.Time{}, time.Time{}, false, fmt.Errorf("special date: %w", err)
	}

	var openAt, closeAt model.ClockTime
	switch {
	case special != nil && (special.Type == model.SpecialDateClosed || special.Type == model.SpecialDateHoliday):
		return time.Time{}, time.Time{}, false, nil
	case special != nil && special.Type == model.SpecialDateSpecialHours:
		openAt, closeAt = special.Open, special.Close
	default:
		hours, open := branch.HoursFor(local.Weekday())
		if !open {
			return time.Time{}, time.Time{}, false, nil
		}
		openAt, closeAt = hours.Open, hours.Close
	}

	open, err := atClock(local, openAt)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	close, err := atClock(local, closeAt)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	return open, close, open.Before(close), nil
}

func (s *availabilityService) busy(ctx context.Context, staffID string, within model.Interval) ([]model.Interval, error) {
	occupied, err := s.occupancy.BusyIntervals(ctx, staffID, within.Start, within.End)
	if err != nil {
		return nil, fmt.Errorf("occupancy for staff %s: %w", staffID, err)
	}

	blocked, err := s.catalog.ListBlockedTimes(ctx, staffID, within.Start, within.End)
	if err != nil {
		return nil, fmt.Errorf("blocked times for staff %s: %w", staffID, err)
	}
	for _, b := range blocked {
		occupied = append(occupied, b.Interval())
	}
	return occupied, nil
}

func (s *availabilityService) monthDates(loc *time.Location, month string) ([]time.Time, error) {
	now := s.clock.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var from, to time.Time
	if month == "" {
		from = today
		to = today.AddDate(0, 0, s.settings.MonthViewDays-1)
	} else {
		first, err := time.Parse(MonthLayout, month)
		if err != nil {
			return nil, apperrors.InvalidInput("invalid month parameter, expected YYYY-MM: " + month)
		}
		from = first
		to = first.AddDate(0, 1, -1)
		if from.Before(today) {
			from = today
		}
	}

	var dates []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates, nil
}

// atClock places a "HH:MM" wall-clock time on the calendar day of local.
func atClock(local time.Time, c model.ClockTime) (time.Time, error) {
	offset, err := c.Offset()
	if err != nil {
		return time.Time{}, err
	}
	h := int(offset / time.Hour)
	m := int((offset % time.Hour) / time.Minute)
	return time.Date(local.Year(), local.Month(), local.Day(), h, m, 0, 0, local.Location()), nil
}

func overlapsAny(candidate model.Interval, busy []model.Interval) bool {
	for _, b := range busy {
		if candidate.Overlaps(b) {
			return true
		}
	}
	return false
}
