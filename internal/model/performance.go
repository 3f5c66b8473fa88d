package model

import "time"

// Performance is a scheduled showing of a Play in a TheatreHall.  Play
// and Hall are filled by queries that join them; PlayID and HallID are
// always set.
//
// Fields:
//  ID       – primary key identifier.
//  PlayID   – play being performed.
//  HallID   – hall hosting the performance.
//  ShowTime – start instant, stored in UTC.
type Performance struct {
	ID       uint64    // performances.id
	PlayID   uint64    // performances.play_id
	HallID   uint64    // performances.theatre_hall_id
	ShowTime time.Time // performances.show_time
	Play     *Play
	Hall     *TheatreHall
}
