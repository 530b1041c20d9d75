package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rolodexapp/rolodex-server/internal/domain"
	"github.com/rolodexapp/rolodex-server/internal/id"
	"github.com/rolodexapp/rolodex-server/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(t.TempDir(), nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

func newContact(ownerID, name string) *domain.Contact {
	c := &domain.Contact{
		OwnerID:  ownerID,
		Name:     name,
		Phone:    "555-0100",
		Address:  "1 Main St",
		Category: domain.CategoryPersonal,
	}
	c.ID = id.MustGenerate(id.PrefixContact)
	c.InitTimestamps()
	return c
}

func TestContacts_CreateAndGet(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	c := newContact("usr-alice", "Ada Lovelace")
	c.Tags = []string{"engineering", "friends"}
	require.NoError(t, s.Contacts.Create(ctx, c.ID, c))

	got, err := s.Contacts.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.Name)
	assert.Equal(t, "usr-alice", got.OwnerID)
	assert.Equal(t, []string{"engineering", "friends"}, got.Tags)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestContacts_DuplicateNamePerOwner(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first := newContact("usr-alice", "Grace Hopper")
	require.NoError(t, s.Contacts.Create(ctx, first.ID, first))

	// Same owner, same name up to case: the composite index rejects it.
	dup := newContact("usr-alice", "  grace HOPPER ")
	err := s.Contacts.Create(ctx, dup.ID, dup)
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	// A different owner may use the same name freely.
	other := newContact("usr-bob", "Grace Hopper")
	assert.NoError(t, s.Contacts.Create(ctx, other.ID, other))
}

func TestContacts_RenameOntoExistingName(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	scope := store.Scope{UserID: "usr-alice"}

	a := newContact("usr-alice", "Alan Turing")
	b := newContact("usr-alice", "Alonzo Church")
	require.NoError(t, s.Contacts.Create(ctx, a.ID, a))
	require.NoError(t, s.Contacts.Create(ctx, b.ID, b))

	_, err := s.MutateContactScoped(ctx, b.ID, scope, func(c *domain.Contact) error {
		c.Name = "alan turing"
		return nil
	})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	// The failed rename must not have been persisted.
	got, err := s.Contacts.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alonzo Church", got.Name)
}

func TestContacts_MutateAbortsOnError(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	c := newContact("usr-alice", "Edsger Dijkstra")
	c.Tags = []string{"cs"}
	require.NoError(t, s.Contacts.Create(ctx, c.ID, c))

	_, err := s.Contacts.Mutate(ctx, c.ID, func(c *domain.Contact) error {
		c.Tags = []string{"cs", "algorithms"}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	got, err := s.Contacts.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"cs"}, got.Tags, "failed mutation must leave the entity untouched")
}

func TestContacts_ScopedVisibility(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	c := newContact("usr-alice", "Barbara Liskov")
	require.NoError(t, s.Contacts.Create(ctx, c.ID, c))

	// Owner sees it.
	got, err := s.GetContactScoped(ctx, c.ID, store.Scope{UserID: "usr-alice"})
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	// Another user gets the same answer as for a contact that never existed.
	_, err = s.GetContactScoped(ctx, c.ID, store.Scope{UserID: "usr-bob"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Admin scope crosses owner boundaries.
	got, err = s.GetContactScoped(ctx, c.ID, store.Scope{UserID: "usr-bob", Admin: true})
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = s.GetContactScoped(ctx, "con-missing", store.Scope{UserID: "usr-alice"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestContacts_MutateScopedInvisible(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	c := newContact("usr-alice", "Donald Knuth")
	require.NoError(t, s.Contacts.Create(ctx, c.ID, c))

	ran := false
	_, err := s.MutateContactScoped(ctx, c.ID, store.Scope{UserID: "usr-bob"}, func(c *domain.Contact) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.False(t, ran, "mutation callback must not run for invisible contacts")
}

func TestContacts_ListByOwner(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"One", "Two", "Three"} {
		c := newContact("usr-alice", name)
		require.NoError(t, s.Contacts.Create(ctx, c.ID, c))
	}
	stray := newContact("usr-bob", "Four")
	require.NoError(t, s.Contacts.Create(ctx, stray.ID, stray))

	mine, err := s.ContactsByOwner(ctx, "usr-alice")
	require.NoError(t, err)
	assert.Len(t, mine, 3)
	for _, c := range mine {
		assert.Equal(t, "usr-alice", c.OwnerID)
	}
}

func TestContacts_DeleteScoped(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	c := newContact("usr-alice", "Katherine Johnson")
	require.NoError(t, s.Contacts.Create(ctx, c.ID, c))

	_, err := s.DeleteContactScoped(ctx, c.ID, store.Scope{UserID: "usr-bob"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	deleted, err := s.DeleteContactScoped(ctx, c.ID, store.Scope{UserID: "usr-alice"})
	require.NoError(t, err)
	assert.Equal(t, "Katherine Johnson", deleted.Name)

	_, err = s.Contacts.Get(ctx, c.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The index value is released with the entity.
	again := newContact("usr-alice", "Katherine Johnson")
	assert.NoError(t, s.Contacts.Create(ctx, again.ID, again))
}

func TestUsers_IndexLookups(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	u := &domain.User{
		Username: "Alice",
		Email:    "Alice@Example.com",
		Role:     domain.RoleUser,
	}
	u.ID = id.MustGenerate(id.PrefixUser)
	u.InitTimestamps()
	require.NoError(t, s.Users.Create(ctx, u.ID, u))

	got, err := s.Users.GetByIndex(ctx, "username", "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = s.Users.GetByIndex(ctx, "email", "ALICE@example.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	// Usernames collide case-insensitively.
	dup := &domain.User{Username: "ALICE", Role: domain.RoleUser}
	dup.ID = id.MustGenerate(id.PrefixUser)
	dup.InitTimestamps()
	err = s.Users.Create(ctx, dup.ID, dup)
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestUsers_EmptyEmailNotIndexed(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	// Two users without an email must not collide on the email index.
	for _, name := range []string{"carol", "dave"} {
		u := &domain.User{Username: name, Role: domain.RoleUser}
		u.ID = id.MustGenerate(id.PrefixUser)
		u.InitTimestamps()
		require.NoError(t, s.Users.Create(ctx, u.ID, u))
	}

	_, err := s.Users.GetByIndex(ctx, "email", "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
