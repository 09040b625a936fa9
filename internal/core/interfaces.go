package core

import "github.com/quentinlc/lobbychat/internal/domain"

type SessionID string

// Conn is a session's transport endpoint as the router sees it.
// Owned by the adapter; the adapter must Close() it.
type Conn interface {
	TrySend([]byte) error
	Close()
}

// Router owns the live subscription table: which sessions currently
// receive broadcasts for which lobbies. Purely in-memory, rebuilt as
// sessions reconnect. Subscription is a transport concern and is
// independent of directory membership.
type Router interface {
	Attach(sid SessionID, conn Conn)
	Subscribe(sid SessionID, lobby domain.LobbyID)
	Unsubscribe(sid SessionID, lobby domain.LobbyID)
	DropSession(sid SessionID)
	Publish(lobby domain.LobbyID, payload []byte) int
	Subscribers(lobby domain.LobbyID) int
}

// LobbyDirectory is the durable authority on lobbies and membership.
type LobbyDirectory interface {
	Create(l *domain.Lobby) error
	Get(id domain.LobbyID) (*domain.Lobby, error)
	Put(l *domain.Lobby) error
	Delete(id domain.LobbyID) error
	List() ([]*domain.Lobby, error)
}

// MessageLog is the durable, append-only record of messages per lobby.
type MessageLog interface {
	Append(m *domain.Message) error
	ListByLobby(lobby domain.LobbyID) ([]*domain.Message, error)
	DeleteByLobby(lobby domain.LobbyID) error
}
