// internal/service/consistency/checker_test.go
package consistency

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tixhub/internal/inventory"
	"tixhub/internal/service/booking/domain"
)

type fakeCounters struct {
	mu       sync.Mutex
	counters map[string]int
}

func (f *fakeCounters) Initialize(ctx context.Context, eventID, ticketTypeID string, total int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := inventory.Key(eventID, ticketTypeID)
	if _, ok := f.counters[key]; ok {
		return false, nil
	}
	f.counters[key] = total
	return true, nil
}

func (f *fakeCounters) Available(ctx context.Context, eventID, ticketTypeID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.counters[inventory.Key(eventID, ticketTypeID)]
	if !ok {
		return 0, inventory.ErrNotInitialized
	}
	return v, nil
}

func (f *fakeCounters) Reserve(ctx context.Context, eventID, ticketTypeID string, quantity int, requesterID string) (inventory.ReservationResult, error) {
	return inventory.ReservationResult{}, nil
}

func (f *fakeCounters) Release(ctx context.Context, eventID, ticketTypeID string, quantity int, reason string) (int, error) {
	return 0, nil
}

func (f *fakeCounters) Reconcile(ctx context.Context, eventID, ticketTypeID string, durableValue int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[inventory.Key(eventID, ticketTypeID)] = durableValue
	return nil
}

type fakeRepo struct {
	event  *domain.Event
	booked map[string]int
}

func (r *fakeRepo) FindEventByID(ctx context.Context, eventID string) (*domain.Event, error) {
	if r.event == nil || r.event.ID != eventID {
		return nil, domain.ErrEventNotFound
	}
	return r.event, nil
}

func (r *fakeRepo) AppendBooking(ctx context.Context, b *domain.Booking) error { return nil }

func (r *fakeRepo) CancelBooking(ctx context.Context, bookingID, userID string) (*domain.Booking, error) {
	return nil, domain.ErrBookingNotFound
}

func (r *fakeRepo) SumActiveQuantity(ctx context.Context, eventID, ticketTypeID string) (int, error) {
	return r.booked[ticketTypeID], nil
}

func TestChecker_CompareInSync(t *testing.T) {
	counters := &fakeCounters{counters: map[string]int{
		inventory.Key("event-1", "vip"):      40,
		inventory.Key("event-1", "standard"): 150,
	}}
	repo := &fakeRepo{
		event: &domain.Event{
			ID: "event-1",
			TicketTypes: []domain.TicketType{
				{TicketID: "vip", Name: "VIP", Total: 50, Remaining: 40},
				{TicketID: "standard", Name: "Standard", Total: 200, Remaining: 150},
			},
		},
		booked: map[string]int{"vip": 10, "standard": 50},
	}

	report, err := NewChecker(counters, repo).Compare(context.Background(), "event-1")
	require.NoError(t, err)
	assert.True(t, report.InSync)
	require.Len(t, report.Tickets, 2)
	for _, ticket := range report.Tickets {
		assert.False(t, ticket.CacheMismatch)
		assert.False(t, ticket.DurableMismatch)
	}
}

// 计数器漂移（例如补偿丢失）必须被报告为 cache mismatch。
func TestChecker_CompareCacheDrift(t *testing.T) {
	counters := &fakeCounters{counters: map[string]int{
		inventory.Key("event-1", "vip"): 37,
	}}
	repo := &fakeRepo{
		event: &domain.Event{
			ID:          "event-1",
			TicketTypes: []domain.TicketType{{TicketID: "vip", Total: 50, Remaining: 40}},
		},
		booked: map[string]int{"vip": 10},
	}

	report, err := NewChecker(counters, repo).Compare(context.Background(), "event-1")
	require.NoError(t, err)
	assert.False(t, report.InSync)
	require.Len(t, report.Tickets, 1)
	ticket := report.Tickets[0]
	assert.True(t, ticket.CacheMismatch)
	assert.False(t, ticket.DurableMismatch)
	require.NotNil(t, ticket.CacheRemaining)
	assert.Equal(t, 37, *ticket.CacheRemaining)
	assert.Equal(t, 40, ticket.DurableRemaining)
}

// 权威记录和按预订重算的期望值不一致是更严重的损坏。
func TestChecker_CompareDurableDrift(t *testing.T) {
	counters := &fakeCounters{counters: map[string]int{
		inventory.Key("event-1", "vip"): 45,
	}}
	repo := &fakeRepo{
		event: &domain.Event{
			ID:          "event-1",
			TicketTypes: []domain.TicketType{{TicketID: "vip", Total: 50, Remaining: 45}},
		},
		booked: map[string]int{"vip": 10},
	}

	report, err := NewChecker(counters, repo).Compare(context.Background(), "event-1")
	require.NoError(t, err)
	assert.False(t, report.InSync)
	ticket := report.Tickets[0]
	assert.False(t, ticket.CacheMismatch)
	assert.True(t, ticket.DurableMismatch)
	assert.Equal(t, 40, ticket.ExpectedRemaining)
}

// 计数器缺失算作不同步，CacheRemaining 保持 nil。
func TestChecker_CompareMissingCounter(t *testing.T) {
	counters := &fakeCounters{counters: map[string]int{}}
	repo := &fakeRepo{
		event: &domain.Event{
			ID:          "event-1",
			TicketTypes: []domain.TicketType{{TicketID: "vip", Total: 50, Remaining: 50}},
		},
		booked: map[string]int{},
	}

	report, err := NewChecker(counters, repo).Compare(context.Background(), "event-1")
	require.NoError(t, err)
	assert.False(t, report.InSync)
	ticket := report.Tickets[0]
	assert.True(t, ticket.CacheMismatch)
	assert.Nil(t, ticket.CacheRemaining)
}

func TestChecker_CompareUnknownEvent(t *testing.T) {
	checker := NewChecker(&fakeCounters{counters: map[string]int{}}, &fakeRepo{})
	_, err := checker.Compare(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

// Reconcile 只允许 权威记录 → 缓存 这一个方向。
func TestChecker_Reconcile(t *testing.T) {
	counters := &fakeCounters{counters: map[string]int{
		inventory.Key("event-1", "vip"): 99,
	}}
	repo := &fakeRepo{
		event: &domain.Event{
			ID: "event-1",
			TicketTypes: []domain.TicketType{
				{TicketID: "vip", Name: "VIP", Total: 50, Remaining: 40},
				{TicketID: "standard", Name: "Standard", Total: 200, Remaining: 150},
			},
		},
		booked: map[string]int{"vip": 10, "standard": 50},
	}
	checker := NewChecker(counters, repo)

	synced, err := checker.Reconcile(context.Background(), "event-1")
	require.NoError(t, err)
	require.Len(t, synced, 2)

	got, err := counters.Available(context.Background(), "event-1", "vip")
	require.NoError(t, err)
	assert.Equal(t, 40, got)
	got, err = counters.Available(context.Background(), "event-1", "standard")
	require.NoError(t, err)
	assert.Equal(t, 150, got)

	// 回写后再对比应当同步
	report, err := checker.Compare(context.Background(), "event-1")
	require.NoError(t, err)
	assert.True(t, report.InSync)
}
