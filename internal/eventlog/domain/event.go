package domain

import "time"

// Event is a diagnostic event raised by a sign-in session, e.g. a failed code delivery.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Fatal       bool      `json:"fatal"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"createdAt"`
}
