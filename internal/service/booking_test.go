package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/theatre-reservation/internal/database/dbtest"
	"github.com/iliyamo/theatre-reservation/internal/model"
	"github.com/iliyamo/theatre-reservation/internal/queue"
	"github.com/iliyamo/theatre-reservation/internal/repository"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ReservationCreatedEvent
	err    error
}

func (p *recordingPublisher) PublishReservationCreated(_ context.Context, ev queue.ReservationCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type fixture struct {
	db      *sql.DB
	booking *Booking
	pub     *recordingPublisher
	userID  uint64
	perfID  uint64
}

func newFixture(t *testing.T, rows, seats int) fixture {
	t.Helper()
	ctx := context.Background()
	db := dbtest.New(t)

	u := &model.User{Email: "viewer@example.com"}
	require.NoError(t, repository.NewUserRepo(db).Create(ctx, u, "secret", 4))

	play := &model.Play{Title: "Hamlet"}
	require.NoError(t, repository.NewPlayRepo(db).Create(ctx, play, nil, nil))
	hall := &model.TheatreHall{Name: "Blue", Rows: rows, SeatsInRow: seats}
	require.NoError(t, repository.NewHallRepo(db).Create(ctx, hall))
	perfs := repository.NewPerformanceRepo(db)
	pf := &model.Performance{PlayID: play.ID, HallID: hall.ID, ShowTime: time.Date(2024, 6, 2, 14, 0, 0, 0, time.UTC)}
	require.NoError(t, perfs.Create(ctx, pf))

	pub := &recordingPublisher{}
	b := NewBooking(db, repository.NewReservationRepo(db), perfs, pub)
	return fixture{db: db, booking: b, pub: pub, userID: u.ID, perfID: pf.ID}
}

func (f fixture) countRows(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestCreateReservation(t *testing.T) {
	f := newFixture(t, 10, 10)

	res, err := f.booking.Create(context.Background(), f.userID, []TicketRequest{
		{Row: 1, Seat: 1, PerformanceID: f.perfID},
		{Row: 1, Seat: 2, PerformanceID: f.perfID},
	})
	require.NoError(t, err)
	require.Len(t, res.Tickets, 2)
	assert.NotZero(t, res.ID)
	for _, tk := range res.Tickets {
		assert.Equal(t, res.ID, tk.ReservationID)
		assert.NotZero(t, tk.ID)
	}
	assert.Equal(t, 2, f.countRows(t, "tickets"))

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, res.ID, f.pub.events[0].ReservationID)
	assert.Len(t, f.pub.events[0].Tickets, 2)
}

func TestCreateReservationValidation(t *testing.T) {
	f := newFixture(t, 10, 10)

	tests := []struct {
		name string
		reqs []TicketRequest
		msg  string
	}{
		{"empty", nil, repository.MsgTicketsRequired},
		{"row zero", []TicketRequest{{Row: 0, Seat: 1, PerformanceID: f.perfID}}, repository.MsgOutOfRange},
		{"seat above 100", []TicketRequest{{Row: 1, Seat: 101, PerformanceID: f.perfID}}, repository.MsgOutOfRange},
		{"unknown performance", []TicketRequest{{Row: 1, Seat: 1, PerformanceID: 999}}, repository.MsgNoSuchPerformance},
		{"beyond hall rows", []TicketRequest{{Row: 11, Seat: 1, PerformanceID: f.perfID}}, repository.MsgOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.booking.Create(context.Background(), f.userID, tt.reqs)
			var ve *repository.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.msg, ve.Msg)
		})
	}
	assert.Zero(t, f.countRows(t, "reservations"))
	assert.Zero(t, f.countRows(t, "tickets"))
	assert.Empty(t, f.pub.events)
}

func TestHallCapacityCanBeDisabled(t *testing.T) {
	f := newFixture(t, 2, 2)
	f.booking.EnforceHallCapacity = false

	_, err := f.booking.Create(context.Background(), f.userID, []TicketRequest{{Row: 50, Seat: 50, PerformanceID: f.perfID}})
	require.NoError(t, err)
}

func TestDuplicateSeatInRequest(t *testing.T) {
	f := newFixture(t, 10, 10)

	_, err := f.booking.Create(context.Background(), f.userID, []TicketRequest{
		{Row: 3, Seat: 3, PerformanceID: f.perfID},
		{Row: 3, Seat: 3, PerformanceID: f.perfID},
	})
	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.Zero(t, f.countRows(t, "reservations"))
}

func TestSeatAlreadyTakenRollsBackWholeReservation(t *testing.T) {
	f := newFixture(t, 10, 10)
	ctx := context.Background()

	_, err := f.booking.Create(ctx, f.userID, []TicketRequest{{Row: 5, Seat: 5, PerformanceID: f.perfID}})
	require.NoError(t, err)

	_, err = f.booking.Create(ctx, f.userID, []TicketRequest{
		{Row: 5, Seat: 6, PerformanceID: f.perfID},
		{Row: 5, Seat: 5, PerformanceID: f.perfID},
	})
	var ce *repository.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, repository.MsgSeatTaken, ce.Msg)

	assert.Equal(t, 1, f.countRows(t, "reservations"))
	assert.Equal(t, 1, f.countRows(t, "tickets"))
}

// The test database holds a single connection, so these transactions
// queue up rather than overlap.  What is checked is that every later
// claim hits the unique (performance, row, seat) key and comes back as a
// conflict, which is the same path a true overlap takes on MySQL.
func TestConcurrentBookingsOfOneSeat(t *testing.T) {
	f := newFixture(t, 10, 10)
	const n = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.booking.Create(context.Background(), f.userID, []TicketRequest{{Row: 7, Seat: 7, PerformanceID: f.perfID}})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, repository.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
	assert.Equal(t, 1, f.countRows(t, "tickets"))
}

func TestPublishFailureDoesNotFailBooking(t *testing.T) {
	f := newFixture(t, 10, 10)
	f.pub.err = errors.New("broker down")

	res, err := f.booking.Create(context.Background(), f.userID, []TicketRequest{{Row: 1, Seat: 1, PerformanceID: f.perfID}})
	require.NoError(t, err)
	assert.NotZero(t, res.ID)
}

func TestDeletingPerformanceCascadesToTickets(t *testing.T) {
	f := newFixture(t, 10, 10)
	ctx := context.Background()
	_, err := f.booking.Create(ctx, f.userID, []TicketRequest{{Row: 1, Seat: 1, PerformanceID: f.perfID}})
	require.NoError(t, err)

	require.NoError(t, repository.NewPerformanceRepo(f.db).Delete(ctx, f.perfID))
	assert.Zero(t, f.countRows(t, "tickets"))
	assert.Equal(t, 1, f.countRows(t, "reservations"))
}
