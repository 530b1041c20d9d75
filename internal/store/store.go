// Package store persists domain entities in an embedded Badger database.
// Entities are stored as JSON documents under key prefixes, with secondary
// index keys enforcing uniqueness constraints inside the same transaction.
package store

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/rolodexapp/rolodex-server/internal/domain"
)

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// Generic entities
	Users    *Entity[domain.User]
	Contacts *Entity[domain.Contact]
}

// New creates a new Store instance with the given database path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	store := &Store{
		db:     db,
		logger: logger,
	}

	store.initUsers()
	store.initContacts()

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return store, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// initUsers initializes the Users entity on the store.
// Username and email are unique, case-insensitively.
func (s *Store) initUsers() {
	s.Users = NewEntity[domain.User](s, "user:").
		WithIndexTransform("username",
			func(u *domain.User) []string {
				return []string{normalizeLookup(u.Username)}
			},
			normalizeLookup,
		).
		WithIndexTransform("email",
			func(u *domain.User) []string {
				if u.Email == "" {
					return nil
				}
				return []string{normalizeLookup(u.Email)}
			},
			normalizeLookup,
		)
}

// initContacts initializes the Contacts entity on the store.
// A single index enforces the (owner, name) uniqueness invariant: no user can
// hold two contacts with the same name, compared case-insensitively.
func (s *Store) initContacts() {
	s.Contacts = NewEntity[domain.Contact](s, "contact:").
		WithIndex("owner_name", func(c *domain.Contact) []string {
			return []string{OwnerNameKey(c.OwnerID, c.Name)}
		})
}

// OwnerNameKey builds the composite index value for the (owner, name) constraint.
func OwnerNameKey(ownerID, name string) string {
	return ownerID + "/" + normalizeLookup(name)
}

// normalizeLookup lowercases and trims a value for case-insensitive indexing.
func normalizeLookup(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
