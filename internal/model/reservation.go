package model

import "time"

// Reservation groups the tickets a user booked in one request.  A
// reservation always owns at least one ticket.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – user who made the reservation.
//  UserEmail – filled when the query joins users.
//  CreatedAt – creation timestamp.
//  Tickets   – tickets created with the reservation.
//  User      – owner, filled by the detail query.
type Reservation struct {
	ID        uint64    // reservations.id
	UserID    uint64    // reservations.user_id
	UserEmail string    // users.email
	CreatedAt time.Time // reservations.created_at
	Tickets   []Ticket
	User      *User
}

// Ticket is one claimed seat.  (PerformanceID, Row, Seat) is unique
// across all reservations.
//
// Fields:
//  ID            – primary key identifier.
//  Row           – 1-based row number.
//  Seat          – 1-based seat number within the row.
//  PerformanceID – performance the seat belongs to.
//  ReservationID – owning reservation.
//  Performance   – filled when the query joins performances.
type Ticket struct {
	ID            uint64 // tickets.id
	Row           int    // tickets.seat_row
	Seat          int    // tickets.seat_number
	PerformanceID uint64 // tickets.performance_id
	ReservationID uint64 // tickets.reservation_id
	Performance   *Performance
}
