package app

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/quentinlc/lobbychat/internal/core"
	"github.com/quentinlc/lobbychat/internal/domain"
)

// Pipeline coordinates a send: authorize, validate, persist, fan out.
// A message is never broadcast unless it was durably recorded first,
// so anything seen live can always be fetched from history later.
type Pipeline struct {
	Members  *Membership
	Messages core.MessageLog
	Router   core.Router

	mu    sync.Mutex
	locks map[domain.LobbyID]*sync.Mutex
}

func NewPipeline(members *Membership, messages core.MessageLog, router core.Router) *Pipeline {
	return &Pipeline{
		Members:  members,
		Messages: messages,
		Router:   router,
		locks:    make(map[domain.LobbyID]*sync.Mutex),
	}
}

// lobbyLock serializes persist-then-publish per lobby, which fixes the
// order subscribers observe without a global total order.
func (p *Pipeline) lobbyLock(id domain.LobbyID) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[id]
	if !ok {
		l = &sync.Mutex{}
		p.locks[id] = l
	}
	return l
}

// Forget drops a deleted lobby's send lock so the lock table does not
// accumulate entries for lobbies that no longer exist.
func (p *Pipeline) Forget(id domain.LobbyID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.locks, id)
}

// Send validates and persists the message, then fans it out to the
// lobby's current subscribers. Persistence failure aborts the whole
// send with no partial broadcast; delivery failures to individual
// sessions are swallowed and never reach the sender.
func (p *Pipeline) Send(requester domain.UserID, lobby domain.LobbyID, body string) (*domain.Message, error) {
	if _, err := p.Members.Authorize(requester, lobby); err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("empty message body: %w", domain.ErrInvalidArgument)
	}
	if len(body) > domain.MaxBodyLen {
		return nil, fmt.Errorf("message body too long: %w", domain.ErrInvalidArgument)
	}

	msg := &domain.Message{Lobby: lobby, Author: requester, Body: body}

	l := p.lobbyLock(lobby)
	l.Lock()
	defer l.Unlock()

	if err := p.Messages.Append(msg); err != nil {
		log.Error().Err(err).Str("module", "app.pipeline").Str("lobby", string(lobby)).Msg("persist failed, send aborted")
		return nil, err
	}

	payload, err := json.Marshal(struct {
		Type    string          `json:"type"`
		Message *domain.Message `json:"message"`
	}{Type: "message", Message: msg})
	if err != nil {
		// Persisted but not broadcast; the record is still fetchable.
		log.Error().Err(err).Str("module", "app.pipeline").Msg("marshal broadcast payload")
		return msg, nil
	}
	sent := p.Router.Publish(lobby, payload)
	log.Debug().Str("module", "app.pipeline").Str("lobby", string(lobby)).Str("msg", string(msg.ID)).Int("sent_to", sent).Msg("message fanned out")
	return msg, nil
}

// History returns the lobby's messages oldest first, gated by the same
// authorization as sending.
func (p *Pipeline) History(requester domain.UserID, lobby domain.LobbyID) ([]*domain.Message, error) {
	if _, err := p.Members.Authorize(requester, lobby); err != nil {
		return nil, err
	}
	return p.Messages.ListByLobby(lobby)
}
