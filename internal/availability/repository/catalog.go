package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	availabilityerrors "stylo/internal/availability/errors"
	"stylo/pkg/config"
	mongotx "stylo/pkg/db/mongo"
	"stylo/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	BranchesCollection      = "Branches"
	ServicesCollection      = "Services"
	StaffCollection         = "Staff"
	WorkSchedulesCollection = "Work_schedules"
	SpecialDatesCollection  = "Special_dates"
	BlockedTimesCollection  = "Blocked_times"
)

// CatalogRepository is the read-only view of branches, services and staff the
// availability engine works from.
type CatalogRepository interface {
	GetBranch(ctx context.Context, branchID string) (*model.Branch, error)
	GetService(ctx context.Context, branchID, serviceID string) (*model.Service, error)
	GetStaff(ctx context.Context, staffID string) (*model.Staff, error)
	ListStaffForService(ctx context.Context, branchID, serviceID string) ([]*model.Staff, error)
	// GetWorkSchedule returns nil, nil when the staff member has no schedule row
	// for that weekday.
	GetWorkSchedule(ctx context.Context, staffID, branchID string, weekday time.Weekday) (*model.WorkSchedule, error)
	// GetSpecialDate returns nil, nil when date (YYYY-MM-DD) is a regular day.
	GetSpecialDate(ctx context.Context, branchID, date string) (*model.SpecialDate, error)
	ListBlockedTimes(ctx context.Context, staffID string, from, to time.Time) ([]model.BlockedTime, error)
}

type mongoCatalogRepository struct {
	cfg           *config.Config
	branches      *mongo.Collection
	services      *mongo.Collection
	staff         *mongo.Collection
	workSchedules *mongo.Collection
	specialDates  *mongo.Collection
	blockedTimes  *mongo.Collection
}

func NewMongoCatalogRepository(cfg *config.Config) CatalogRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoCatalogRepository{
		cfg:           cfg,
		branches:      db.Collection(BranchesCollection),
		services:      db.Collection(ServicesCollection),
		staff:         db.Collection(StaffCollection),
		workSchedules: db.Collection(WorkSchedulesCollection),
		specialDates:  db.Collection(SpecialDatesCollection),
		blockedTimes:  db.Collection(BlockedTimesCollection),
	}
}

func (r *mongoCatalogRepository) GetBranch(ctx context.Context, branchID string) (*model.Branch, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var branch model.Branch
	err := r.branches.FindOne(ctx, bson.M{"_id": branchID, "is_active": true}).Decode(&branch)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, availabilityerrors.ErrBranchNotFound
		}
		return nil, fmt.Errorf("failed to find branch: %w", err)
	}
	return &branch, nil
}

func (r *mongoCatalogRepository) GetService(ctx context.Context, branchID, serviceID string) (*model.Service, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"_id": serviceID, "branch_id": branchID, "is_active": true}

	var service model.Service
	if err := r.services.FindOne(ctx, filter).Decode(&service); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, availabilityerrors.ErrServiceNotFound
		}
		return nil, fmt.Errorf("failed to find service: %w", err)
	}
	return &service, nil
}

func (r *mongoCatalogRepository) GetStaff(ctx context.Context, staffID string) (*model.Staff, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var staff model.Staff
	if err := r.staff.FindOne(ctx, bson.M{"_id": staffID, "is_active": true}).Decode(&staff); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, availabilityerrors.ErrStaffNotFound
		}
		return nil, fmt.Errorf("failed to find staff: %w", err)
	}
	return &staff, nil
}

func (r *mongoCatalogRepository) ListStaffForService(ctx context.Context, branchID, serviceID string) ([]*model.Staff, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"is_active":  true,
		"branch_ids": branchID,
		"services": bson.M{"$elemMatch": bson.M{
			"service_id": serviceID,
			"is_active":  true,
		}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "first_name", Value: 1}, {Key: "last_name", Value: 1}})

	cursor, err := r.staff.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	defer cursor.Close(ctx)

	var staff []*model.Staff
	if err := cursor.All(ctx, &staff); err != nil {
		return nil, fmt.Errorf("failed to decode staff: %w", err)
	}
	return staff, nil
}

func (r *mongoCatalogRepository) GetWorkSchedule(ctx context.Context, staffID, branchID string, weekday time.Weekday) (*model.WorkSchedule, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"staff_id": staffID, "branch_id": branchID, "weekday": int(weekday)}

	var schedule model.WorkSchedule
	if err := r.workSchedules.FindOne(ctx, filter).Decode(&schedule); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find work schedule: %w", err)
	}
	return &schedule, nil
}

func (r *mongoCatalogRepository) GetSpecialDate(ctx context.Context, branchID, date string) (*model.SpecialDate, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var special model.SpecialDate
	if err := r.specialDates.FindOne(ctx, bson.M{"branch_id": branchID, "date": date}).Decode(&special); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find special date: %w", err)
	}
	return &special, nil
}

func (r *mongoCatalogRepository) ListBlockedTimes(ctx context.Context, staffID string, from, to time.Time) ([]model.BlockedTime, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"staff_id":       staffID,
		"start_datetime": bson.M{"$lt": to},
		"end_datetime":   bson.M{"$gt": from},
	}

	cursor, err := r.blockedTimes.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocked times: %w", err)
	}
	defer cursor.Close(ctx)

	var blocked []model.BlockedTime
	if err := cursor.All(ctx, &blocked); err != nil {
		return nil, fmt.Errorf("failed to decode blocked times: %w", err)
	}
	return blocked, nil
}
