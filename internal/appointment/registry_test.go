package appointment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_CreateAssignsIncreasingIDs(t *testing.T) {
	r := NewRegistry()

	first, err := r.Create(at("2024-01-15", "09:00"))
	require.NoError(t, err)
	second, err := r.Create(at("2024-01-15", "09:30"))
	require.NoError(t, err)

	assert.Equal(t, SlotID(1), first.ID)
	assert.Equal(t, SlotID(2), second.ID)
	assert.Equal(t, "2024-01-15", second.Date)
	assert.Equal(t, "09:30", second.Time)
	assert.False(t, second.Booked)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_CreateRejectsDuplicate(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create(at("2024-01-15", "09:00"))
	require.NoError(t, err)
	require.NoError(t, r.SetBooked(1, true))

	_, err = r.Create(at("2024-01-15", "09:00"))
	assert.ErrorIs(t, err, ErrDuplicateSlot)
	assert.Equal(t, 1, r.Len())

	next, err := r.Create(at("2024-01-15", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, SlotID(2), next.ID, "failed create must not consume an id")
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get(7)
	assert.ErrorIs(t, err, ErrUnknownSlot)
	assert.ErrorIs(t, r.SetBooked(7, true), ErrUnknownSlot)
}

func TestRegistry_SetBookedTracksCount(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create(at("2024-01-15", "09:00"))
	require.NoError(t, err)

	require.NoError(t, r.SetBooked(1, true))
	require.NoError(t, r.SetBooked(1, true))
	assert.Equal(t, 1, r.BookedCount())

	slot, err := r.Get(1)
	require.NoError(t, err)
	assert.True(t, slot.Booked)

	require.NoError(t, r.SetBooked(1, false))
	assert.Equal(t, 0, r.BookedCount())
}

func TestRegistry_GetReturnsCopy(t *testing.T) {
	r := NewRegistry()
	_, err := r.Create(at("2024-01-15", "09:00"))
	require.NoError(t, err)

	slot, err := r.Get(1)
	require.NoError(t, err)
	slot.Booked = true

	stored, err := r.Get(1)
	require.NoError(t, err)
	assert.False(t, stored.Booked)
}
