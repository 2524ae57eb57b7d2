package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	clientserrors "stylo/internal/clients/errors"
	"stylo/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClientRepository_GetOrCreate(t *testing.T) {
	repo := NewMemoryClientRepository()
	ctx := context.Background()
	now := time.Date(2026, time.March, 2, 13, 0, 0, 0, time.UTC)

	_, err := repo.FindByDocument(ctx, model.DocumentDNI, "12345678")
	assert.True(t, errors.Is(err, clientserrors.ErrClientNotFound))

	draft := model.ClientDraft{
		PhoneNumber:     "+51987654321",
		DocumentType:    model.DocumentDNI,
		DocumentNumber:  "12345678",
		FirstName:       "Lucia",
		LastNamePaterno: "Quispe",
		Email:           "lucia@example.com",
	}
	created, err := repo.GetOrCreateFromDraft(ctx, draft, now)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Lucia Quispe", created.FullName())

	draft.PhoneNumber = "+51911111111"
	draft.Email = ""
	again, err := repo.GetOrCreateFromDraft(ctx, draft, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "+51911111111", again.Phone)
	assert.Equal(t, "lucia@example.com", again.Email, "empty optional fields keep stored values")
	assert.True(t, again.CreatedAt.Equal(now))

	found, err := repo.FindByDocument(ctx, model.DocumentDNI, "12345678")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}
