package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/quentinlc/lobbychat/internal/domain"
)

// MessageStore keeps the append-only message log per lobby.
// The key is "msg:{lobby}:{timestamp_padded}:{uuid}":
//  1. the 19-digit zero-padded UnixNano makes lexicographic order
//     chronological order, so a forward prefix scan returns the log
//     in submission order;
//  2. the uuid disambiguates two messages landing on the same
//     nanosecond.
//
// Messages are always queried by lobby prefix, never through a list
// embedded in the lobby document, so there is no secondary index that
// could drift.
type MessageStore struct {
	db *badger.DB
}

func NewMessageStore(db *badger.DB) *MessageStore {
	return &MessageStore{db: db}
}

func messageKey(m *domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", m.Lobby, m.CreatedAt.UnixNano(), m.ID))
}

func messagePrefix(lobby domain.LobbyID) []byte {
	return []byte(fmt.Sprintf("msg:%s:", lobby))
}

// Append assigns the message its id and timestamp and writes it
// durably. The caller must not fan the message out unless Append
// returned nil.
func (s *MessageStore) Append(m *domain.Message) error {
	m.ID = domain.MessageID(uuid.NewString())
	m.CreatedAt = time.Now().UTC()
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(m), data)
	})
}

// ListByLobby returns the lobby's messages oldest first.
func (s *MessageStore) ListByLobby(lobby domain.LobbyID) ([]*domain.Message, error) {
	var messages []*domain.Message
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(lobby)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var m domain.Message
				if err := json.Unmarshal(val, &m); err != nil {
					return err
				}
				messages = append(messages, &m)
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
	return messages, nil
}

// DeleteByLobby removes every message of the lobby. Idempotent: the
// cascade can be re-run after a partial failure and converges on the
// same end state.
func (s *MessageStore) DeleteByLobby(lobby domain.LobbyID) error {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(lobby)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	return wb.Flush()
}
