package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	availabilityRepo "stylo/internal/availability/repository"
	clientsRepo "stylo/internal/clients/repository"
	"stylo/internal/migrations/mongo/validators"
	sessionsRepo "stylo/internal/sessions/repository"
	mongotx "stylo/pkg/db/mongo"
	"stylo/pkg/logger"
)

var (
	SessionsIndexes = []mongo.IndexModel{
		// At most one live hold per staff member and start instant.
		{
			Keys: bson.D{{Key: "staff_id", Value: 1}, {Key: "start_datetime", Value: 1}},
			Options: options.Index().
				SetName("uniq_live_hold").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"holds_slot": true}),
		},
		{Keys: bson.D{
			{Key: "staff_id", Value: 1},
			{Key: "holds_slot", Value: 1},
			{Key: "start_datetime", Value: 1},
			{Key: "end_datetime", Value: 1},
		}},
		{Keys: bson.D{{Key: "holds_slot", Value: 1}, {Key: "expires_at", Value: 1}}},
	}

	AppointmentsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "staff_id", Value: 1},
			{Key: "start_datetime", Value: 1},
			{Key: "end_datetime", Value: 1},
			{Key: "status", Value: 1},
		}},
		{Keys: bson.D{{Key: "client_id", Value: 1}, {Key: "start_datetime", Value: -1}}},
	}

	ClientsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "document_type", Value: 1}, {Key: "document_number", Value: 1}},
			Options: options.Index().SetName("uniq_document").SetUnique(true),
		},
		{Keys: bson.D{{Key: "phone", Value: 1}}},
	}

	StaffIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "branch_ids", Value: 1}, {Key: "services.service_id", Value: 1}}},
	}

	ServicesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "branch_id", Value: 1}, {Key: "is_active", Value: 1}}},
	}

	WorkSchedulesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "staff_id", Value: 1}, {Key: "weekday", Value: 1}}},
	}

	SpecialDatesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "branch_id", Value: 1}, {Key: "date", Value: 1}}},
	}

	BlockedTimesIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "staff_id", Value: 1},
			{Key: "start_datetime", Value: 1},
			{Key: "end_datetime", Value: 1},
		}},
	}
)

type collectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

func collections() map[string]collectionDef {
	return map[string]collectionDef{
		sessionsRepo.SessionsCollection: {
			Indexes:   SessionsIndexes,
			Validator: validators.SessionValidator,
		},
		sessionsRepo.AppointmentsCollection: {
			Indexes:   AppointmentsIndexes,
			Validator: validators.AppointmentValidator,
		},
		clientsRepo.CollectionName: {
			Indexes:   ClientsIndexes,
			Validator: validators.ClientValidator,
		},
		mongotx.SlotGuardsCollection: {
			Validator: validators.SlotGuardValidator,
		},
		availabilityRepo.BranchesCollection: {
			Validator: validators.BranchValidator,
		},
		availabilityRepo.ServicesCollection: {
			Indexes:   ServicesIndexes,
			Validator: validators.ServiceValidator,
		},
		availabilityRepo.StaffCollection: {
			Indexes: StaffIndexes,
		},
		availabilityRepo.WorkSchedulesCollection: {
			Indexes: WorkSchedulesIndexes,
		},
		availabilityRepo.SpecialDatesCollection: {
			Indexes: SpecialDatesIndexes,
		},
		availabilityRepo.BlockedTimesCollection: {
			Indexes: BlockedTimesIndexes,
		},
	}
}

// RunMigration creates every collection the booking service uses, applies
// its JSON schema validator and ensures its indexes. It is safe to re-run.
func RunMigration(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	log.Info("Running Mongo migrations", "database", db.Name())

	for name, def := range collections() {
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All migrations applied successfully", "database", db.Name())
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}

	log.Debug("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if len(models) == 0 {
		return nil
	}
	if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
