package mongo

import (
	"testing"

	sessionsRepo "stylo/internal/sessions/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestCollectionsCoverBookingStore(t *testing.T) {
	defs := collections()

	for _, name := range []string{"Booking_sessions", "Appointments", "Clients", "Slot_guards", "Branches", "Services", "Staff", "Work_schedules", "Special_dates", "Blocked_times"} {
		_, ok := defs[name]
		assert.True(t, ok, name)
	}
}

func TestLiveHoldIndexIsPartialUnique(t *testing.T) {
	def := collections()[sessionsRepo.SessionsCollection]
	require.NotEmpty(t, def.Indexes)

	idx := def.Indexes[0]
	require.NotNil(t, idx.Options)
	require.NotNil(t, idx.Options.Unique)
	assert.True(t, *idx.Options.Unique)
	assert.Equal(t, bson.M{"holds_slot": true}, idx.Options.PartialFilterExpression)
	assert.Equal(t, bson.D{{Key: "staff_id", Value: 1}, {Key: "start_datetime", Value: 1}}, idx.Keys)
}
