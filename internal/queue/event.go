// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

// ReservationCreatedQueue is the durable queue reservations are announced on.
const ReservationCreatedQueue = "reservation.created"

// ReservationCreatedEvent is published after a reservation commits.  It
// carries enough to log or notify without querying the primary database.
type ReservationCreatedEvent struct {
	ReservationID uint64      `json:"reservation_id"`
	UserID        uint64      `json:"user_id"`
	Tickets       []TicketRef `json:"tickets"`
	CreatedAt     string      `json:"created_at"`
}

// TicketRef identifies one booked seat.
type TicketRef struct {
	TicketID      uint64 `json:"ticket_id"`
	PerformanceID uint64 `json:"performance_id"`
	Row           int    `json:"row"`
	Seat          int    `json:"seat"`
}
