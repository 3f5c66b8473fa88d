// Package view projects domain entities onto the JSON shapes returned
// by the API.  Each entity has one projection per view Kind; the
// mapping is explicit so adding a field to a model never leaks it to a
// response by accident.
package view

import (
	"fmt"
	"time"

	"github.com/iliyamo/theatre-reservation/internal/model"
)

// Kind selects the projection for a request.
type Kind int

const (
	List     Kind = iota // collection GET
	Retrieve             // single-item GET
	Write                // create/update responses
)

// Genre is identical in every view.
type Genre struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// Actor is identical in every view.
type Actor struct {
	ID        uint64  `json:"id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	FullName  string  `json:"full_name"`
	Photo     *string `json:"photo"`
}

type PlayList struct {
	ID     uint64   `json:"id"`
	Title  string   `json:"title"`
	Actors []string `json:"actors"`
	Genres []string `json:"genres"`
}

type PlayDetail struct {
	ID          uint64  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Poster      *string `json:"poster"`
	Actors      []Actor `json:"actors"`
	Genres      []Genre `json:"genres"`
}

type PlayWrite struct {
	ID          uint64   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Actors      []uint64 `json:"actors"`
	Genres      []uint64 `json:"genres"`
}

type HallList struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// HallDetail serves both retrieve and write.
type HallDetail struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	Rows       int    `json:"rows"`
	SeatsInRow int    `json:"seats_in_row"`
}

type PerformanceList struct {
	ID              uint64    `json:"id"`
	PlayTitle       string    `json:"play_title"`
	TheatreHallName string    `json:"theatre_hall_name"`
	ShowTime        time.Time `json:"show_time"`
}

type PerformanceDetail struct {
	ID          uint64     `json:"id"`
	Play        PlayWrite  `json:"play"`
	TheatreHall HallDetail `json:"theatre_hall"`
	ShowTime    time.Time  `json:"show_time"`
}

type PerformanceWrite struct {
	ID          uint64    `json:"id"`
	Play        uint64    `json:"play"`
	TheatreHall uint64    `json:"theatre_hall"`
	ShowTime    time.Time `json:"show_time"`
}

type TicketList struct {
	ID          uint64          `json:"id"`
	Row         int             `json:"row"`
	Seat        int             `json:"seat"`
	Performance PerformanceList `json:"performance"`
	Reservation uint64          `json:"reservation"`
}

type TicketDetail struct {
	ID          uint64            `json:"id"`
	Row         int               `json:"row"`
	Seat        int               `json:"seat"`
	Performance PerformanceDetail `json:"performance"`
	Reservation uint64            `json:"reservation"`
}

type TicketWrite struct {
	ID          uint64 `json:"id"`
	Row         int    `json:"row"`
	Seat        int    `json:"seat"`
	Performance uint64 `json:"performance"`
	Reservation uint64 `json:"reservation"`
}

type ReservationList struct {
	ID        uint64    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserEmail string    `json:"user_email"`
	Tickets   []uint64  `json:"tickets"`
}

type ReservationDetail struct {
	ID        uint64         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	User      User           `json:"user"`
	Tickets   []TicketDetail `json:"tickets"`
}

type ReservationWrite struct {
	ID        uint64        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Tickets   []TicketWrite `json:"tickets"`
}

// User is the account shape; the password hash never appears.
type User struct {
	ID        uint64 `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsStaff   bool   `json:"is_staff"`
}

// ActorImage and PlayImage answer upload-image requests.
type ActorImage struct {
	ID    uint64  `json:"id"`
	Photo *string `json:"photo"`
}

type PlayImage struct {
	ID     uint64  `json:"id"`
	Poster *string `json:"poster"`
}

func NewGenre(g model.Genre) Genre { return Genre{ID: g.ID, Name: g.Name} }

func NewActor(a model.Actor) Actor {
	return Actor{ID: a.ID, FirstName: a.FirstName, LastName: a.LastName, FullName: a.FullName(), Photo: a.Photo}
}

func NewUser(u model.User) User {
	return User{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName, IsStaff: u.IsStaff}
}

// Play projects p for kind.
func Play(p model.Play, k Kind) any {
	switch k {
	case List:
		out := PlayList{ID: p.ID, Title: p.Title, Actors: make([]string, 0, len(p.Actors)), Genres: make([]string, 0, len(p.Genres))}
		for _, a := range p.Actors {
			out.Actors = append(out.Actors, a.FullName())
		}
		for _, g := range p.Genres {
			out.Genres = append(out.Genres, g.Name)
		}
		return out
	case Retrieve:
		out := PlayDetail{ID: p.ID, Title: p.Title, Description: p.Description, Poster: p.Poster,
			Actors: make([]Actor, 0, len(p.Actors)), Genres: make([]Genre, 0, len(p.Genres))}
		for _, a := range p.Actors {
			out.Actors = append(out.Actors, NewActor(a))
		}
		for _, g := range p.Genres {
			out.Genres = append(out.Genres, NewGenre(g))
		}
		return out
	}
	return playWrite(p)
}

func playWrite(p model.Play) PlayWrite {
	out := PlayWrite{ID: p.ID, Title: p.Title, Description: p.Description,
		Actors: make([]uint64, 0, len(p.Actors)), Genres: make([]uint64, 0, len(p.Genres))}
	for _, a := range p.Actors {
		out.Actors = append(out.Actors, a.ID)
	}
	for _, g := range p.Genres {
		out.Genres = append(out.Genres, g.ID)
	}
	return out
}

// Hall projects h for kind.
func Hall(h model.TheatreHall, k Kind) any {
	if k == List {
		return HallList{ID: h.ID, Name: h.Name}
	}
	return hallDetail(h)
}

func hallDetail(h model.TheatreHall) HallDetail {
	return HallDetail{ID: h.ID, Name: h.Name, Rows: h.Rows, SeatsInRow: h.SeatsInRow}
}

// Performance projects pf for kind.  List and Retrieve need pf.Play and
// pf.Hall to be loaded.
func Performance(pf model.Performance, k Kind) any {
	switch k {
	case List:
		return performanceList(pf)
	case Retrieve:
		return performanceDetail(pf)
	}
	return PerformanceWrite{ID: pf.ID, Play: pf.PlayID, TheatreHall: pf.HallID, ShowTime: pf.ShowTime.UTC()}
}

func performanceList(pf model.Performance) PerformanceList {
	out := PerformanceList{ID: pf.ID, ShowTime: pf.ShowTime.UTC()}
	if pf.Play != nil {
		out.PlayTitle = pf.Play.Title
	}
	if pf.Hall != nil {
		out.TheatreHallName = pf.Hall.Name
	}
	return out
}

func performanceDetail(pf model.Performance) PerformanceDetail {
	out := PerformanceDetail{ID: pf.ID, ShowTime: pf.ShowTime.UTC()}
	if pf.Play != nil {
		out.Play = playWrite(*pf.Play)
	}
	if pf.Hall != nil {
		out.TheatreHall = hallDetail(*pf.Hall)
	}
	return out
}

// Ticket projects t for kind.  List and Retrieve need t.Performance.
func Ticket(t model.Ticket, k Kind) any {
	switch k {
	case List:
		out := TicketList{ID: t.ID, Row: t.Row, Seat: t.Seat, Reservation: t.ReservationID}
		if t.Performance != nil {
			out.Performance = performanceList(*t.Performance)
		}
		return out
	case Retrieve:
		return ticketDetail(t)
	}
	return ticketWrite(t)
}

func ticketDetail(t model.Ticket) TicketDetail {
	out := TicketDetail{ID: t.ID, Row: t.Row, Seat: t.Seat, Reservation: t.ReservationID}
	if t.Performance != nil {
		out.Performance = performanceDetail(*t.Performance)
	}
	return out
}

func ticketWrite(t model.Ticket) TicketWrite {
	return TicketWrite{ID: t.ID, Row: t.Row, Seat: t.Seat, Performance: t.PerformanceID, Reservation: t.ReservationID}
}

// Reservation projects r for kind.  Retrieve needs r.User and ticket
// performances.
func Reservation(r model.Reservation, k Kind) any {
	switch k {
	case List:
		out := ReservationList{ID: r.ID, CreatedAt: r.CreatedAt.UTC(), UserEmail: r.UserEmail, Tickets: make([]uint64, 0, len(r.Tickets))}
		for _, t := range r.Tickets {
			out.Tickets = append(out.Tickets, t.ID)
		}
		return out
	case Retrieve:
		out := ReservationDetail{ID: r.ID, CreatedAt: r.CreatedAt.UTC(), Tickets: make([]TicketDetail, 0, len(r.Tickets))}
		if r.User != nil {
			out.User = NewUser(*r.User)
		}
		for _, t := range r.Tickets {
			out.Tickets = append(out.Tickets, ticketDetail(t))
		}
		return out
	}
	out := ReservationWrite{ID: r.ID, CreatedAt: r.CreatedAt.UTC(), Tickets: make([]TicketWrite, 0, len(r.Tickets))}
	for _, t := range r.Tickets {
		out.Tickets = append(out.Tickets, ticketWrite(t))
	}
	return out
}

// Project dispatches on the entity type.  It is the single table of
// (entity, kind) pairs the handlers rely on.
func Project(entity any, k Kind) (any, error) {
	switch e := entity.(type) {
	case model.Genre:
		return NewGenre(e), nil
	case model.Actor:
		return NewActor(e), nil
	case model.Play:
		return Play(e, k), nil
	case model.TheatreHall:
		return Hall(e, k), nil
	case model.Performance:
		return Performance(e, k), nil
	case model.Ticket:
		return Ticket(e, k), nil
	case model.Reservation:
		return Reservation(e, k), nil
	case model.User:
		return NewUser(e), nil
	}
	return nil, fmt.Errorf("view: no projection for %T", entity)
}

// Many projects every element of items.
func Many[T any](items []T, k Kind) ([]any, error) {
	out := make([]any, 0, len(items))
	for _, it := range items {
		v, err := Project(it, k)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
