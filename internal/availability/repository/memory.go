package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	availabilityerrors "stylo/internal/availability/errors"
	"stylo/pkg/model"
)

// CatalogSeed is the JSON layout accepted by LoadCatalogSeed.
type CatalogSeed struct {
	Branches      []model.Branch       `json:"branches"`
	Services      []model.Service      `json:"services"`
	Staff         []model.Staff        `json:"staff"`
	WorkSchedules []model.WorkSchedule `json:"work_schedules"`
	SpecialDates  []model.SpecialDate  `json:"special_dates"`
	BlockedTimes  []model.BlockedTime  `json:"blocked_times"`
}

func LoadCatalogSeed(path string) (*CatalogSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog seed: %w", err)
	}
	var seed CatalogSeed
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse catalog seed: %w", err)
	}
	return &seed, nil
}

type MemoryCatalog struct {
	mu   sync.RWMutex
	seed CatalogSeed
}

func NewMemoryCatalog(seed *CatalogSeed) *MemoryCatalog {
	c := &MemoryCatalog{}
	if seed != nil {
		c.seed = *seed
	}
	return c
}

func (c *MemoryCatalog) AddBlockedTime(b model.BlockedTime) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seed.BlockedTimes = append(c.seed.BlockedTimes, b)
}

func (c *MemoryCatalog) AddSpecialDate(d model.SpecialDate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seed.SpecialDates = append(c.seed.SpecialDates, d)
}

func (c *MemoryCatalog) GetBranch(_ context.Context, branchID string) (*model.Branch, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.seed.Branches {
		if b := c.seed.Branches[i]; b.ID == branchID && b.Active {
			return &b, nil
		}
	}
	return nil, availabilityerrors.ErrBranchNotFound
}

func (c *MemoryCatalog) GetService(_ context.Context, branchID, serviceID string) (*model.Service, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.seed.Services {
		if s := c.seed.Services[i]; s.ID == serviceID && s.BranchID == branchID && s.Active {
			return &s, nil
		}
	}
	return nil, availabilityerrors.ErrServiceNotFound
}

func (c *MemoryCatalog) GetStaff(_ context.Context, staffID string) (*model.Staff, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.seed.Staff {
		if s := c.seed.Staff[i]; s.ID == staffID && s.Active {
			return &s, nil
		}
	}
	return nil, availabilityerrors.ErrStaffNotFound
}

func (c *MemoryCatalog) ListStaffForService(_ context.Context, branchID, serviceID string) ([]*model.Staff, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*model.Staff
	for i := range c.seed.Staff {
		s := c.seed.Staff[i]
		if !s.Active || !s.WorksAt(branchID) {
			continue
		}
		if _, ok := s.Offering(serviceID); ok {
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func (c *MemoryCatalog) GetWorkSchedule(_ context.Context, staffID, branchID string, weekday time.Weekday) (*model.WorkSchedule, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.seed.WorkSchedules {
		ws := c.seed.WorkSchedules[i]
		if ws.StaffID == staffID && ws.BranchID == branchID && ws.Weekday == int(weekday) {
			return &ws, nil
		}
	}
	return nil, nil
}

func (c *MemoryCatalog) GetSpecialDate(_ context.Context, branchID, date string) (*model.SpecialDate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.seed.SpecialDates {
		if d := c.seed.SpecialDates[i]; d.BranchID == branchID && d.Date == date {
			return &d, nil
		}
	}
	return nil, nil
}

func (c *MemoryCatalog) ListBlockedTimes(_ context.Context, staffID string, from, to time.Time) ([]model.BlockedTime, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	window := model.Interval{Start: from, End: to}
	var out []model.BlockedTime
	for _, b := range c.seed.BlockedTimes {
		if b.StaffID == staffID && b.Interval().Overlaps(window) {
			out = append(out, b)
		}
	}
	return out, nil
}
