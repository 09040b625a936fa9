package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/quentinlc/lobbychat/internal/domain"
)

// routerImpl is a threadsafe in-memory subscription table.
// It never closes adapter-owned connections.
type routerImpl struct {
	mu        sync.RWMutex
	conns     map[SessionID]Conn
	byLobby   map[domain.LobbyID]map[SessionID]struct{}
	bySession map[SessionID]map[domain.LobbyID]struct{}
}

func NewRouter() Router {
	return &routerImpl{
		conns:     make(map[SessionID]Conn),
		byLobby:   make(map[domain.LobbyID]map[SessionID]struct{}),
		bySession: make(map[SessionID]map[domain.LobbyID]struct{}),
	}
}

func (r *routerImpl) Attach(sid SessionID, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[sid] = conn
	log.Info().Str("module", "core.router").Str("sid", string(sid)).Msg("session attached")
}

func (r *routerImpl) Subscribe(sid SessionID, lobby domain.LobbyID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byLobby[lobby] == nil {
		r.byLobby[lobby] = make(map[SessionID]struct{})
	}
	if r.bySession[sid] == nil {
		r.bySession[sid] = make(map[domain.LobbyID]struct{})
	}
	r.byLobby[lobby][sid] = struct{}{}
	r.bySession[sid][lobby] = struct{}{}
	log.Info().Str("module", "core.router").Str("sid", string(sid)).Str("lobby", string(lobby)).Msg("subscribed")
}

func (r *routerImpl) Unsubscribe(sid SessionID, lobby domain.LobbyID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unsubscribeLocked(sid, lobby)
	log.Info().Str("module", "core.router").Str("sid", string(sid)).Str("lobby", string(lobby)).Msg("unsubscribed")
}

func (r *routerImpl) unsubscribeLocked(sid SessionID, lobby domain.LobbyID) {
	if subs, ok := r.byLobby[lobby]; ok {
		delete(subs, sid)
		if len(subs) == 0 {
			delete(r.byLobby, lobby)
		}
	}
	if lobbies, ok := r.bySession[sid]; ok {
		delete(lobbies, lobby)
		if len(lobbies) == 0 {
			delete(r.bySession, sid)
		}
	}
}

func (r *routerImpl) DropSession(sid SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for lobby := range r.bySession[sid] {
		r.unsubscribeLocked(sid, lobby)
	}
	delete(r.bySession, sid)
	delete(r.conns, sid)
	log.Info().Str("module", "core.router").Str("sid", string(sid)).Msg("session dropped")
}

// Publish fans payload out to every session currently subscribed to
// the lobby. Sends are non-blocking; a slow or dead recipient is
// skipped, never retried, and never stalls the others.
func (r *routerImpl) Publish(lobby domain.LobbyID, payload []byte) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sent := 0
	for sid := range r.byLobby[lobby] {
		conn, ok := r.conns[sid]
		if !ok {
			continue
		}
		if err := conn.TrySend(payload); err != nil {
			log.Warn().Err(err).Str("module", "core.router").Str("sid", string(sid)).Str("lobby", string(lobby)).Msg("delivery dropped")
			continue
		}
		sent++
	}
	log.Debug().Str("module", "core.router").Str("lobby", string(lobby)).Int("sent_to", sent).Msg("publish result")
	return sent
}

func (r *routerImpl) Subscribers(lobby domain.LobbyID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byLobby[lobby])
}
