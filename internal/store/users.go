package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/quentinlc/lobbychat/internal/domain"
)

const (
	userEmailPrefix = "user:email:"
	userIDPrefix    = "user:id:"
)

type UserStore struct {
	db *badger.DB
}

func NewUserStore(db *badger.DB) *UserStore {
	return &UserStore{db: db}
}

// Create persists a new user under both the email and the id key.
// The email key is the uniqueness guard.
func (s *UserStore) Create(email, username, passwordHash string) (*domain.User, error) {
	u := &domain.User{
		ID:           domain.UserID(uuid.NewString()),
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		Role:         "user",
		CreatedAt:    time.Now().UTC(),
	}
	data, err := json.Marshal(diskUser{User: *u, PasswordHash: passwordHash})
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		emailKey := []byte(userEmailPrefix + email)
		if _, err := txn.Get(emailKey); err == nil {
			return fmt.Errorf("email %s already registered: %w", email, domain.ErrConflict)
		}
		if err := txn.Set(emailKey, data); err != nil {
			return err
		}
		return txn.Set([]byte(userIDPrefix+string(u.ID)), data)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*domain.User, error) {
	return s.get(userEmailPrefix + email)
}

func (s *UserStore) GetByID(id domain.UserID) (*domain.User, error) {
	return s.get(userIDPrefix + string(id))
}

func (s *UserStore) get(key string) (*domain.User, error) {
	var du diskUser
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &du)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("user: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	u := du.User
	u.PasswordHash = du.PasswordHash
	return &u, nil
}

// diskUser keeps the password hash on disk while domain.User hides it
// from every JSON response.
type diskUser struct {
	domain.User
	PasswordHash string `json:"password_hash"`
}
