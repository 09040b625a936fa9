package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/quentinlc/lobbychat/internal/core"
	"github.com/quentinlc/lobbychat/internal/domain"
)

// Membership validates lobby mutations against the directory and
// enforces who may act inside a lobby. Directory membership ("is
// allowed to be in this lobby") is deliberately independent of live
// subscription ("is currently receiving broadcasts"); the realtime
// adapter reconciles the two.
type Membership struct {
	Lobbies  core.LobbyDirectory
	Messages core.MessageLog
}

func NewMembership(lobbies core.LobbyDirectory, messages core.MessageLog) *Membership {
	return &Membership{Lobbies: lobbies, Messages: messages}
}

// CreateLobby always succeeds for an authenticated requester; the
// requester becomes admin and first member. Names are not unique at
// creation, only renames guard against collisions.
func (m *Membership) CreateLobby(requester domain.UserID, name string) (*domain.Lobby, error) {
	l := &domain.Lobby{
		ID:        domain.LobbyID(uuid.NewString()),
		Name:      strings.TrimSpace(name),
		Admin:     requester,
		Members:   []domain.UserID{requester},
		CreatedAt: time.Now().UTC(),
	}
	if err := m.Lobbies.Create(l); err != nil {
		return nil, err
	}
	log.Info().Str("module", "app.membership").Str("lobby", string(l.ID)).Str("admin", string(requester)).Msg("lobby created")
	return l, nil
}

// JoinLobby adds the requester to the member set. Joining twice is not
// an error; the current state is returned unchanged.
func (m *Membership) JoinLobby(requester domain.UserID, id domain.LobbyID) (*domain.Lobby, error) {
	l, err := m.Lobbies.Get(id)
	if err != nil {
		return nil, err
	}
	if !l.AddMember(requester) {
		return l, nil
	}
	if err := m.Lobbies.Put(l); err != nil {
		return nil, err
	}
	log.Info().Str("module", "app.membership").Str("lobby", string(id)).Str("user", string(requester)).Msg("member joined")
	return l, nil
}

// LeaveLobby removes the requester from the member set. Leaving a
// lobby one is not in is a no-op. The admin stays authorized even
// after leaving the listed set.
func (m *Membership) LeaveLobby(requester domain.UserID, id domain.LobbyID) (*domain.Lobby, error) {
	l, err := m.Lobbies.Get(id)
	if err != nil {
		return nil, err
	}
	if !l.RemoveMember(requester) {
		return l, nil
	}
	if err := m.Lobbies.Put(l); err != nil {
		return nil, err
	}
	log.Info().Str("module", "app.membership").Str("lobby", string(id)).Str("user", string(requester)).Msg("member left")
	return l, nil
}

// RenameLobby sets the lobby name. Only the admin may rename, and the
// target name must not collide with another lobby.
func (m *Membership) RenameLobby(requester domain.UserID, id domain.LobbyID, name string) (*domain.Lobby, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty lobby name: %w", domain.ErrInvalidArgument)
	}
	l, err := m.Lobbies.Get(id)
	if err != nil {
		return nil, err
	}
	if l.Admin != requester {
		return nil, fmt.Errorf("only the admin may rename: %w", domain.ErrForbidden)
	}
	all, err := m.Lobbies.List()
	if err != nil {
		return nil, err
	}
	for _, other := range all {
		if other.ID != id && other.Name == name {
			return nil, fmt.Errorf("lobby name %q taken: %w", name, domain.ErrConflict)
		}
	}
	l.Name = name
	if err := m.Lobbies.Put(l); err != nil {
		return nil, err
	}
	return l, nil
}

// ListFor returns every lobby the requester is a member or the admin of.
func (m *Membership) ListFor(requester domain.UserID) ([]*domain.Lobby, error) {
	all, err := m.Lobbies.List()
	if err != nil {
		return nil, err
	}
	return lo.Filter(all, func(l *domain.Lobby, _ int) bool {
		return l.HasMember(requester)
	}), nil
}

// Authorize returns the lobby iff the requester is a member or the
// admin. Every send and read on a lobby goes through here first.
func (m *Membership) Authorize(requester domain.UserID, id domain.LobbyID) (*domain.Lobby, error) {
	l, err := m.Lobbies.Get(id)
	if err != nil {
		return nil, err
	}
	if !l.HasMember(requester) {
		return nil, fmt.Errorf("user %s is not part of lobby %s: %w", requester, id, domain.ErrForbidden)
	}
	return l, nil
}

// DeleteLobby removes the lobby and cascades over its messages.
// The cascade runs messages-first so that a crash in between leaves a
// re-runnable state: the lobby still resolves and a second delete
// converges. Both halves are idempotent.
func (m *Membership) DeleteLobby(requester domain.UserID, id domain.LobbyID) error {
	l, err := m.Lobbies.Get(id)
	if err != nil {
		return err
	}
	if l.Admin != requester {
		return fmt.Errorf("only the admin may delete lobby %s: %w", id, domain.ErrForbidden)
	}
	if err := m.Messages.DeleteByLobby(id); err != nil {
		return err
	}
	if err := m.Lobbies.Delete(id); err != nil {
		return err
	}
	log.Info().Str("module", "app.membership").Str("lobby", string(id)).Msg("lobby deleted")
	return nil
}
