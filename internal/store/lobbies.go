package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/quentinlc/lobbychat/internal/domain"
)

const lobbyPrefix = "lobby:"

// LobbyStore is the durable authority on lobbies and their member sets.
// One lobby is one document; the backing store gives atomicity per
// single-document update, which is all the membership layer relies on.
type LobbyStore struct {
	db *badger.DB
}

func NewLobbyStore(db *badger.DB) *LobbyStore {
	return &LobbyStore{db: db}
}

func (s *LobbyStore) Create(l *domain.Lobby) error {
	return s.Put(l)
}

func (s *LobbyStore) Put(l *domain.Lobby) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal lobby: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(lobbyPrefix+string(l.ID)), data)
	})
}

func (s *LobbyStore) Get(id domain.LobbyID) (*domain.Lobby, error) {
	var l domain.Lobby
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(lobbyPrefix + string(id)))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &l)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("lobby %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Delete removes the lobby document. Deleting an absent lobby is a
// no-op so the cascade can be re-run after a partial failure.
func (s *LobbyStore) Delete(id domain.LobbyID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(lobbyPrefix + string(id)))
	})
}

func (s *LobbyStore) List() ([]*domain.Lobby, error) {
	var lobbies []*domain.Lobby
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(lobbyPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var l domain.Lobby
				if err := json.Unmarshal(val, &l); err != nil {
					return err
				}
				lobbies = append(lobbies, &l)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lobbies, nil
}
