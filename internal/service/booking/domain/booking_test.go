// internal/service/booking/domain/booking_test.go
package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() *BookingRequest {
	return &BookingRequest{
		EventID:        "event-1",
		TicketTypeID:   "vip",
		TicketTypeName: "VIP",
		Quantity:       2,
		PricePerTicket: 200,
		TotalPrice:     400,
		UserID:         "user-1",
	}
}

func TestNewBooking(t *testing.T) {
	b, err := NewBooking("b-1", validRequest())
	require.NoError(t, err)
	assert.Equal(t, StateRequested, b.State)
	assert.Equal(t, "b-1", b.ID)
}

func TestNewBooking_Validation(t *testing.T) {
	req := validRequest()
	req.EventID = ""
	_, err := NewBooking("b-1", req)
	assert.Error(t, err)

	req = validRequest()
	req.Quantity = 0
	_, err = NewBooking("b-1", req)
	assert.Error(t, err)

	req = validRequest()
	req.Quantity = MaxTicketsPerRequest + 1
	_, err = NewBooking("b-1", req)
	assert.Error(t, err)
}

func TestBooking_HappyPath(t *testing.T) {
	b, err := NewBooking("b-1", validRequest())
	require.NoError(t, err)

	require.NoError(t, b.MarkReserved())
	require.NoError(t, b.MarkPersisted())
	require.NoError(t, b.MarkCompleted())
	assert.Equal(t, StateCompleted, b.State)
}

func TestBooking_CompensationPath(t *testing.T) {
	b, err := NewBooking("b-1", validRequest())
	require.NoError(t, err)

	require.NoError(t, b.MarkReserved())
	b.MarkPersistFailed("mysql is down")
	assert.Equal(t, StatePersistFailed, b.State)
	assert.Equal(t, "mysql is down", b.FailureReason)

	require.NoError(t, b.MarkCompensated())
	require.NoError(t, b.MarkFailed())
	assert.Equal(t, StateFailed, b.State)
}

func TestBooking_ReservationFailedIsTerminal(t *testing.T) {
	b, err := NewBooking("b-1", validRequest())
	require.NoError(t, err)

	b.MarkReservationFailed("INSUFFICIENT")
	assert.Equal(t, StateReservationFailed, b.State)
	assert.Error(t, b.MarkReserved())
	assert.Error(t, b.MarkPersisted())
}

// 失败终态只能从已补偿状态进入，保证补偿先于对外上报。
func TestBooking_GuardedTransitions(t *testing.T) {
	b, err := NewBooking("b-1", validRequest())
	require.NoError(t, err)

	assert.Error(t, b.MarkPersisted(), "cannot persist before reserve")
	assert.Error(t, b.MarkCompleted(), "cannot complete before persist")
	assert.Error(t, b.MarkFailed(), "cannot fail before compensation")
	assert.Error(t, b.MarkCompensated(), "cannot compensate before persist failure")
}
