// Package store provides the durable key-value backends behind the session.
//
// All backends share last-write-wins semantics: there are no transactions
// and concurrent writers (other processes included) are not coordinated.
package store

import "errors"

// Store is a string key-value store.
type Store interface {
	// Get returns the value and whether the key was present.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// ErrEmptyKey is returned when a key is blank.
var ErrEmptyKey = errors.New("store: empty key")

// Change describes a key mutated by another writer.
type Change struct {
	Key      string
	OldValue string
	NewValue string
	Removed  bool
}
