// Package store persists users, lobbies and messages in BadgerDB.
// Each record type owns its own key prefix; values are JSON documents.
package store

import "github.com/dgraph-io/badger/v4"

func Open(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR)
	return badger.Open(opts)
}
