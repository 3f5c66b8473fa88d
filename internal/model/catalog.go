package model

// Genre is a row in the `genres` table.  Names are unique.
type Genre struct {
	ID   uint64 // genres.id
	Name string // genres.name
}

// Actor is a row in the `actors` table.  Photo holds the public URL of
// the uploaded image, if any.
type Actor struct {
	ID        uint64  // actors.id
	FirstName string  // actors.first_name
	LastName  string  // actors.last_name
	Photo     *string // actors.photo (nullable)
}

// FullName is "first last".
func (a Actor) FullName() string { return a.FirstName + " " + a.LastName }

// Play is a row in the `plays` table together with its many-to-many
// associations.  Actors and Genres are only populated by queries that
// load them.
//
// Fields:
//  ID          – primary key identifier.
//  Title       – play title (not unique).
//  Description – free text, may be empty.
//  Poster      – public URL of the poster image (nil when absent).
//  Actors      – associated actors via play_actors.
//  Genres      – associated genres via play_genres.
type Play struct {
	ID          uint64  // plays.id
	Title       string  // plays.title
	Description string  // plays.description
	Poster      *string // plays.poster (nullable)
	Actors      []Actor
	Genres      []Genre
}

// TheatreHall describes a hall layout.  Rows and SeatsInRow are both
// within 1..100.
type TheatreHall struct {
	ID         uint64 // theatre_halls.id
	Name       string // theatre_halls.name
	Rows       int    // theatre_halls.seat_rows
	SeatsInRow int    // theatre_halls.seats_in_row
}

// Capacity is Rows × SeatsInRow.
func (h TheatreHall) Capacity() int { return h.Rows * h.SeatsInRow }
