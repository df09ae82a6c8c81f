package entity

import "time"

type BookEventType string

const (
	BookCreated BookEventType = "created"
	BookUpdated BookEventType = "updated"
	BookDeleted BookEventType = "deleted"
)

// BookEvent is emitted after a book mutation succeeds.
type BookEvent struct {
	Type BookEventType `json:"type"`
	Book Book          `json:"book"`
	At   time.Time     `json:"at"`
}
