package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	clientserrors "stylo/internal/clients/errors"
	"stylo/pkg/config"
	mongotx "stylo/pkg/db/mongo"
	"stylo/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "Clients"

type ClientRepository interface {
	FindByDocument(ctx context.Context, documentType, documentNumber string) (*model.Client, error)
	// GetOrCreateFromDraft upserts on the document key, refreshing contact
	// details of a returning client.
	GetOrCreateFromDraft(ctx context.Context, draft model.ClientDraft, now time.Time) (*model.Client, error)
}

type mongoClientRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoClientRepository(cfg *config.Config) ClientRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoClientRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoClientRepository) FindByDocument(ctx context.Context, documentType, documentNumber string) (*model.Client, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var client model.Client
	err := r.collection.FindOne(ctx, bson.M{
		"document_type":   documentType,
		"document_number": documentNumber,
	}).Decode(&client)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, clientserrors.ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to find client: %w", err)
	}
	return &client, nil
}

func (r *mongoClientRepository) GetOrCreateFromDraft(ctx context.Context, draft model.ClientDraft, now time.Time) (*model.Client, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	set := bson.M{
		"first_name":        draft.FirstName,
		"last_name_paterno": draft.LastNamePaterno,
		"phone":             draft.PhoneNumber,
		"updated_at":        now,
	}
	optional := map[string]string{
		"last_name_materno": draft.LastNameMaterno,
		"email":             draft.Email,
		"gender":            draft.Gender,
		"birth_date":        draft.BirthDate,
		"photo_ref":         draft.PhotoRef,
	}
	for field, value := range optional {
		if value != "" {
			set[field] = value
		}
	}

	filter := bson.M{
		"document_type":   draft.DocumentType,
		"document_number": draft.DocumentNumber,
	}
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"_id":        uuid.NewString(),
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var client model.Client
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&client)
	// Two concurrent upserts can race on the unique document index; the
	// loser finds the winner's document on the second attempt.
	if mongotx.IsDuplicateKey(err) {
		err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&client)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert client: %w", err)
	}
	return &client, nil
}

type MemoryClientRepository struct {
	mu      sync.Mutex
	clients map[string]model.Client
}

func NewMemoryClientRepository() *MemoryClientRepository {
	return &MemoryClientRepository{clients: make(map[string]model.Client)}
}

func documentKey(documentType, documentNumber string) string {
	return documentType + ":" + documentNumber
}

func (r *MemoryClientRepository) FindByDocument(_ context.Context, documentType, documentNumber string) (*model.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	client, ok := r.clients[documentKey(documentType, documentNumber)]
	if !ok {
		return nil, clientserrors.ErrClientNotFound
	}
	return &client, nil
}

func (r *MemoryClientRepository) GetOrCreateFromDraft(_ context.Context, draft model.ClientDraft, now time.Time) (*model.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := documentKey(draft.DocumentType, draft.DocumentNumber)
	client, ok := r.clients[key]
	if !ok {
		client = model.Client{
			ID:             uuid.NewString(),
			DocumentType:   draft.DocumentType,
			DocumentNumber: draft.DocumentNumber,
			CreatedAt:      now,
		}
	}
	client.ApplyDraft(draft, now)
	r.clients[key] = client
	return &client, nil
}
