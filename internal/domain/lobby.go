package domain

import "time"

type LobbyID string

type Lobby struct {
	ID        LobbyID   `json:"id"`
	Name      string    `json:"name,omitempty"`
	Admin     UserID    `json:"admin"`
	Members   []UserID  `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

// HasMember reports whether uid may act inside the lobby.
// The admin is always treated as a member, listed or not.
func (l *Lobby) HasMember(uid UserID) bool {
	if uid == l.Admin {
		return true
	}
	for _, m := range l.Members {
		if m == uid {
			return true
		}
	}
	return false
}

// AddMember appends uid to the member set, keeping it duplicate-free.
// Returns false when uid was already present.
func (l *Lobby) AddMember(uid UserID) bool {
	for _, m := range l.Members {
		if m == uid {
			return false
		}
	}
	l.Members = append(l.Members, uid)
	return true
}

// RemoveMember drops uid from the member set. Removing an absent
// member is a no-op.
func (l *Lobby) RemoveMember(uid UserID) bool {
	for i, m := range l.Members {
		if m == uid {
			l.Members = append(l.Members[:i], l.Members[i+1:]...)
			return true
		}
	}
	return false
}
