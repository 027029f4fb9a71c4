package model

import "time"

// Message is a single direct message between two users. The id and
// timestamp are assigned by the message store at persistence time; clients
// never supply either.
type Message struct {
	ID        int64     `json:"id" db:"id"`
	FromID    int64     `json:"from_id" db:"from_id"`
	ToID      int64     `json:"to_id" db:"to_id"`
	Content   string    `json:"content" db:"content"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}
