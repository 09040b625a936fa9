package domain

import "time"

type MessageID string

// Message is append-only: created once on a successful send, never
// mutated, removed only when its lobby is deleted.
type Message struct {
	ID        MessageID `json:"id"`
	Lobby     LobbyID   `json:"lobby"`
	Author    UserID    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
