package store

import (
	"context"

	"github.com/rolodexapp/rolodex-server/internal/domain"
)

// Scope is the ownership predicate applied to every contact lookup.
// Admins see every owner's contacts; everyone else sees only their own.
type Scope struct {
	UserID string
	Admin  bool
}

// CanAccess reports whether the scope may see a contact with the given owner.
func (s Scope) CanAccess(ownerID string) bool {
	return s.Admin || s.UserID == ownerID
}

// ContactsByOwner returns every contact owned by ownerID.
func (s *Store) ContactsByOwner(ctx context.Context, ownerID string) ([]*domain.Contact, error) {
	var out []*domain.Contact
	for c, err := range s.Contacts.List(ctx) {
		if err != nil {
			return nil, err
		}
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

// GetContactScoped fetches a contact by ID and applies the ownership
// predicate. A contact outside the scope is indistinguishable from a missing
// one: both return ErrNotFound, so callers never learn another user's
// contact IDs.
func (s *Store) GetContactScoped(ctx context.Context, id string, scope Scope) (*domain.Contact, error) {
	c, err := s.Contacts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.CanAccess(c.OwnerID) {
		return nil, ErrNotFound
	}
	return c, nil
}

// MutateContactScoped applies fn to a contact inside a single transaction,
// after checking the ownership predicate. If the contact is missing or
// invisible, ErrNotFound is returned and fn never runs. If fn returns an
// error, nothing is persisted.
func (s *Store) MutateContactScoped(ctx context.Context, id string, scope Scope, fn func(*domain.Contact) error) (*domain.Contact, error) {
	return s.Contacts.Mutate(ctx, id, func(c *domain.Contact) error {
		if !scope.CanAccess(c.OwnerID) {
			return ErrNotFound
		}
		return fn(c)
	})
}

// DeleteContactScoped removes a contact after checking the ownership
// predicate. Returns ErrNotFound for missing or invisible contacts.
func (s *Store) DeleteContactScoped(ctx context.Context, id string, scope Scope) (*domain.Contact, error) {
	c, err := s.GetContactScoped(ctx, id, scope)
	if err != nil {
		return nil, err
	}
	if err := s.Contacts.Delete(ctx, id); err != nil {
		return nil, err
	}
	return c, nil
}
