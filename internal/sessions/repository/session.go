package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sessionserrors "stylo/internal/sessions/errors"
	"stylo/pkg/clock"
	"stylo/pkg/config"
	mongotx "stylo/pkg/db/mongo"
	"stylo/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	SessionsCollection     = "Booking_sessions"
	AppointmentsCollection = "Appointments"
)

// SessionRepository persists booking sessions and the appointments they turn
// into. Start and Confirm are linearized per staff member.
type SessionRepository interface {
	// Start inserts a new hold unless the slot overlaps a live hold or a
	// blocking appointment of the same staff member. Stale holds of that
	// staff member are expired first and returned, also when the slot
	// turns out to be taken.
	Start(ctx context.Context, session *model.BookingSession) ([]*model.BookingSession, error)
	Get(ctx context.Context, token string) (*model.BookingSession, error)
	// Save persists a transition, failing with ErrVersionConflict when the
	// stored session changed since it was read.
	Save(ctx context.Context, session *model.BookingSession) error
	// Confirm writes the appointment and the CONFIRMED session together.
	Confirm(ctx context.Context, session *model.BookingSession, appointment *model.Appointment) error
	FindAppointment(ctx context.Context, id string) (*model.Appointment, error)
	BusyIntervals(ctx context.Context, staffID string, from, to time.Time) ([]model.Interval, error)
	// ExpireStale moves every hold past its expiry to EXPIRED and returns
	// the sessions it released.
	ExpireStale(ctx context.Context, now time.Time) ([]*model.BookingSession, error)
}

type mongoSessionRepository struct {
	cfg          *config.Config
	db           *mongo.Database
	sessions     *mongo.Collection
	appointments *mongo.Collection
	txManager    mongotx.TransactionManager
	clock        clock.Clock
}

func NewMongoSessionRepository(cfg *config.Config, clk clock.Clock) SessionRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSessionRepository{
		cfg:          cfg,
		db:           db,
		sessions:     db.Collection(SessionsCollection),
		appointments: db.Collection(AppointmentsCollection),
		txManager:    mongotx.NewTransactionManager(cfg.Client.Mongo),
		clock:        clk,
	}
}

func overlapFilter(staffID string, from, to time.Time) bson.M {
	return bson.M{
		"staff_id":       staffID,
		"start_datetime": bson.M{"$lt": to},
		"end_datetime":   bson.M{"$gt": from},
	}
}

func blockingAppointmentsFilter(staffID string, from, to time.Time) bson.M {
	filter := overlapFilter(staffID, from, to)
	filter["status"] = bson.M{"$in": model.BlockingAppointmentStatuses()}
	return filter
}

func liveHoldsFilter(staffID string, from, to, now time.Time) bson.M {
	filter := overlapFilter(staffID, from, to)
	filter["holds_slot"] = true
	filter["expires_at"] = bson.M{"$gt": now}
	return filter
}

func (r *mongoSessionRepository) Start(ctx context.Context, session *model.BookingSession) ([]*model.BookingSession, error) {
	now := session.CreatedAt

	var released []*model.BookingSession
	err := r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		released = nil
		if err := mongotx.TouchSlotGuard(sessCtx, r.db, session.StaffID, now); err != nil {
			return err
		}

		expired, err := r.expireStaffHolds(sessCtx, session.StaffID, now)
		if err != nil {
			return err
		}
		released = expired

		taken, err := r.slotTaken(sessCtx, session.StaffID, session.Interval(), now, "")
		if err != nil {
			return err
		}
		if taken {
			return sessionserrors.ErrSlotTaken
		}

		if _, err := r.sessions.InsertOne(sessCtx, session); err != nil {
			if mongotx.IsDuplicateKey(err) {
				return sessionserrors.ErrSlotTaken
			}
			return fmt.Errorf("failed to insert booking session: %w", err)
		}
		return nil
	})
	if err != nil {
		// The aborted transaction rolled the expiries back; the sweeper
		// releases those holds later.
		return nil, err
	}
	return released, nil
}

// expireStaffHolds releases holds of one staff member that are already past
// their expiry so they cannot block a new reservation.
func (r *mongoSessionRepository) expireStaffHolds(ctx context.Context, staffID string, now time.Time) ([]*model.BookingSession, error) {
	cursor, err := r.sessions.Find(ctx, bson.M{
		"staff_id":   staffID,
		"holds_slot": true,
		"expires_at": bson.M{"$lte": now},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find stale holds: %w", err)
	}

	var stale []*model.BookingSession
	if err := cursor.All(ctx, &stale); err != nil {
		return nil, fmt.Errorf("failed to decode stale holds: %w", err)
	}

	released := make([]*model.BookingSession, 0, len(stale))
	for _, session := range stale {
		expected := session.Version
		if err := session.Expire(now); err != nil {
			continue
		}
		version, err := r.replace(ctx, session, expected)
		if err != nil {
			return nil, fmt.Errorf("failed to expire stale hold: %w", err)
		}
		session.Version = version
		released = append(released, session)
	}
	return released, nil
}

// slotTaken checks blocking appointments and live holds of the staff member.
// exceptToken excludes the caller's own hold.
func (r *mongoSessionRepository) slotTaken(ctx context.Context, staffID string, slot model.Interval, now time.Time, exceptToken string) (bool, error) {
	booked, err := r.appointments.CountDocuments(ctx, blockingAppointmentsFilter(staffID, slot.Start, slot.End))
	if err != nil {
		return false, fmt.Errorf("failed to count overlapping appointments: %w", err)
	}
	if booked > 0 {
		return true, nil
	}

	holds := liveHoldsFilter(staffID, slot.Start, slot.End, now)
	if exceptToken != "" {
		holds["_id"] = bson.M{"$ne": exceptToken}
	}
	held, err := r.sessions.CountDocuments(ctx, holds)
	if err != nil {
		return false, fmt.Errorf("failed to count overlapping holds: %w", err)
	}
	return held > 0, nil
}

func (r *mongoSessionRepository) Get(ctx context.Context, token string) (*model.BookingSession, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var session model.BookingSession
	err := r.sessions.FindOne(ctx, bson.M{"_id": token}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sessionserrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to find booking session: %w", err)
	}
	return &session, nil
}

func (r *mongoSessionRepository) Save(ctx context.Context, session *model.BookingSession) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	version, err := r.replace(ctx, session, session.Version)
	if err != nil {
		return err
	}
	session.Version = version
	return nil
}

// nextRevision is the document replace writes: a copy of session one version
// past expected. session itself is left untouched.
func nextRevision(session *model.BookingSession, expected int64) *model.BookingSession {
	next := *session
	if session.Draft != nil {
		draft := *session.Draft
		next.Draft = &draft
	}
	next.Version = expected + 1
	return &next
}

// replace writes session over the stored document at version expected and
// returns the new version. It never modifies session, so it is safe inside a
// transaction callback the driver may re-run.
func (r *mongoSessionRepository) replace(ctx context.Context, session *model.BookingSession, expected int64) (int64, error) {
	next := nextRevision(session, expected)

	result, err := r.sessions.ReplaceOne(ctx,
		bson.M{"_id": session.Token, "version": expected},
		next,
	)
	if err != nil {
		if mongotx.IsDuplicateKey(err) {
			return 0, sessionserrors.ErrSlotTaken
		}
		return 0, fmt.Errorf("failed to save booking session: %w", err)
	}

	if result.MatchedCount == 0 {
		count, err := r.sessions.CountDocuments(ctx, bson.M{"_id": session.Token})
		if err != nil {
			return 0, fmt.Errorf("failed to check booking session: %w", err)
		}
		if count == 0 {
			return 0, sessionserrors.ErrSessionNotFound
		}
		return 0, sessionserrors.ErrVersionConflict
	}
	return next.Version, nil
}

// checkConfirmable reports whether the stored session can still be confirmed
// by a caller that read it at version expected.
func checkConfirmable(stored *model.BookingSession, expected int64, now time.Time) error {
	if stored.Version != expected {
		return sessionserrors.ErrVersionConflict
	}
	if !stored.HoldsSlot || !now.Before(stored.ExpiresAt) {
		return sessionserrors.ErrHoldReleased
	}
	return nil
}

func (r *mongoSessionRepository) Confirm(ctx context.Context, session *model.BookingSession, appointment *model.Appointment) error {
	now := session.UpdatedAt
	expected := session.Version

	var committed int64
	err := r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := mongotx.TouchSlotGuard(sessCtx, r.db, session.StaffID, now); err != nil {
			return err
		}

		var stored model.BookingSession
		if err := r.sessions.FindOne(sessCtx, bson.M{"_id": session.Token}).Decode(&stored); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return sessionserrors.ErrSessionNotFound
			}
			return fmt.Errorf("failed to load booking session: %w", err)
		}
		if err := checkConfirmable(&stored, expected, now); err != nil {
			return err
		}

		taken, err := r.slotTaken(sessCtx, session.StaffID, session.Interval(), now, session.Token)
		if err != nil {
			return err
		}
		if taken {
			return sessionserrors.ErrSlotTaken
		}

		if _, err := r.appointments.InsertOne(sessCtx, appointment); err != nil {
			return fmt.Errorf("failed to insert appointment: %w", err)
		}

		version, err := r.replace(sessCtx, session, expected)
		if err != nil {
			return err
		}
		committed = version
		return nil
	})
	if err != nil {
		return err
	}
	session.Version = committed
	return nil
}

func (r *mongoSessionRepository) FindAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var appointment model.Appointment
	err := r.appointments.FindOne(ctx, bson.M{"_id": id}).Decode(&appointment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, sessionserrors.ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("failed to find appointment: %w", err)
	}
	return &appointment, nil
}

func (r *mongoSessionRepository) BusyIntervals(ctx context.Context, staffID string, from, to time.Time) ([]model.Interval, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	projection := options.Find().SetProjection(bson.M{"start_datetime": 1, "end_datetime": 1})

	var intervals []model.Interval
	collect := func(coll *mongo.Collection, filter bson.M) error {
		cursor, err := coll.Find(ctx, filter, projection)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		for cursor.Next(ctx) {
			var doc struct {
				Start time.Time `bson:"start_datetime"`
				End   time.Time `bson:"end_datetime"`
			}
			if err := cursor.Decode(&doc); err != nil {
				return err
			}
			intervals = append(intervals, model.Interval{Start: doc.Start, End: doc.End})
		}
		return cursor.Err()
	}

	if err := collect(r.appointments, blockingAppointmentsFilter(staffID, from, to)); err != nil {
		return nil, fmt.Errorf("failed to load appointments: %w", err)
	}
	if err := collect(r.sessions, liveHoldsFilter(staffID, from, to, r.clock.Now())); err != nil {
		return nil, fmt.Errorf("failed to load session holds: %w", err)
	}
	return intervals, nil
}

func (r *mongoSessionRepository) ExpireStale(ctx context.Context, now time.Time) ([]*model.BookingSession, error) {
	findCtx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.sessions.Find(findCtx, bson.M{
		"holds_slot": true,
		"expires_at": bson.M{"$lte": now},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find stale sessions: %w", err)
	}

	var stale []*model.BookingSession
	if err := cursor.All(findCtx, &stale); err != nil {
		return nil, fmt.Errorf("failed to decode stale sessions: %w", err)
	}

	expired := make([]*model.BookingSession, 0, len(stale))
	for _, session := range stale {
		if err := session.Expire(now); err != nil {
			continue
		}
		// A concurrent transition already moved the session on.
		if err := r.Save(ctx, session); err != nil {
			if errors.Is(err, sessionserrors.ErrVersionConflict) {
				continue
			}
			return expired, err
		}
		expired = append(expired, session)
	}
	return expired, nil
}
