package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rolodexapp/rolodex-server/internal/domain"
	domainerrors "github.com/rolodexapp/rolodex-server/internal/errors"
	"github.com/rolodexapp/rolodex-server/internal/id"
	"github.com/rolodexapp/rolodex-server/internal/search"
	"github.com/rolodexapp/rolodex-server/internal/store"
)

// setupContactTest creates a contact service backed by temporary storage
// and a temporary search index.
func setupContactTest(t *testing.T) (*ContactService, *store.Store) {
	t.Helper()

	tmpDir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	s, err := store.New(filepath.Join(tmpDir, "db"), nil)
	require.NoError(t, err)

	idx, err := search.NewIndex(search.Options{
		DataPath: tmpDir,
		Logger:   logger,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = idx.Close()
		_ = s.Close()
	})

	return NewContactService(s, idx, logger), s
}

// newTestUser stores a user directly, bypassing the auth service.
func newTestUser(t *testing.T, s *store.Store, username string, role domain.Role) *domain.User {
	t.Helper()

	user := &domain.User{
		Username: username,
		Role:     role,
	}
	user.ID = id.MustGenerate(id.PrefixUser)
	user.InitTimestamps()
	require.NoError(t, s.Users.Create(context.Background(), user.ID, user))

	return user
}

func createTestContact(t *testing.T, svc *ContactService, user *domain.User, req CreateContactRequest) *domain.Contact {
	t.Helper()
	c, err := svc.CreateContact(context.Background(), user, req)
	require.NoError(t, err)
	return c
}

func TestContactService_Create(t *testing.T) {
	svc, s := setupContactTest(t)
	ctx := context.Background()
	alice := newTestUser(t, s, "alice", domain.RoleUser)

	c := createTestContact(t, svc, alice, CreateContactRequest{
		Name:     "Ada Lovelace",
		Phone:    "555-0100",
		Category: "work",
		Tags:     []string{"  Engineering ", "engineering", "friends"},
	})

	assert.Equal(t, alice.ID, c.OwnerID)
	assert.Equal(t, domain.CategoryWork, c.Category)
	assert.Equal(t, []string{"engineering", "friends"}, c.Tags, "tags are normalized and deduplicated")

	// Duplicate name for the same owner conflicts.
	_, err := svc.CreateContact(ctx, alice, CreateContactRequest{Name: "ada lovelace"})
	assert.ErrorIs(t, err, domainerrors.ErrConflict)

	// Invalid category is rejected.
	_, err = svc.CreateContact(ctx, alice, CreateContactRequest{Name: "Someone", Category: "enemies"})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestContactService_Create_OwnerOverride(t *testing.T) {
	svc, s := setupContactTest(t)
	ctx := context.Background()
	alice := newTestUser(t, s, "alice", domain.RoleUser)
	admin := newTestUser(t, s, "root", domain.RoleAdmin)

	// Admins may create on behalf of another user.
	c, err := svc.CreateContact(ctx, admin, CreateContactRequest{Name: "For Alice", Owner: alice.ID})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, c.OwnerID)

	// Regular users may not.
	_, err = svc.CreateContact(ctx, alice, CreateContactRequest{Name: "Sneaky", Owner: admin.ID})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}

func TestContactService_OwnerIsolation(t *testing.T) {
	svc, s := setupContactTest(t)
	ctx := context.Background()
	alice := newTestUser(t, s, "alice", domain.RoleUser)
	bob := newTestUser(t, s, "bob", domain.RoleUser)
	admin := newTestUser(t, s, "root", domain.RoleAdmin)

	c := createTestContact(t, svc, alice, CreateContactRequest{Name: "Ada Lovelace"})

	// Bob cannot see, update, or delete Alice's contact; every path says
	// not-found, never forbidden.
	_, err := svc.GetContact(ctx, bob, c.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	_, err = svc.ToggleFavorite(ctx, bob, c.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	err = svc.DeleteContact(ctx, bob, c.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	// Bob's listing is empty.
	list, err := svc.ListContacts(ctx, bob, ListContactsParams{})
	require.NoError(t, err)
	assert.Empty(t, list.Contacts)
	assert.Equal(t, 0, list.Pagination.Total)

	// An admin can target Alice's contacts explicitly.
	adminList, err := svc.ListContacts(ctx, admin, ListContactsParams{Owner: alice.ID})
	require.NoError(t, err)
	require.Len(t, adminList.Contacts, 1)
	assert.Equal(t, c.ID, adminList.Contacts[0].ID)

	// A regular user's owner parameter is ignored.
	bobList, err := svc.ListContacts(ctx, bob, ListContactsParams{Owner: alice.ID})
	require.NoError(t, err)
	assert.Empty(t, bobList.Contacts)
}

func TestContactService_List_Filters(t *testing.T) {
	svc, s := setupContactTest(t)
	ctx := context.Background()
	alice := newTestUser(t, s, "alice", domain.RoleUser)

	createTestContact(t, svc, alice, CreateContactRequest{
		Name: "Grace Hopper", Phone: "555-0101", Address: "Arlington", Category: "work", IsFavorite: true,
	})
	createTestContact(t, svc, alice, CreateContactRequest{
		Name: "Ada Lovelace", Phone: "555-0102", Address: "London", Category: "work",
	})
	createTestContact(t, svc, alice, CreateContactRequest{
		Name: "Margaret Hamilton", Phone: "777-0103", Address: "Boston", Category: "family",
	})

	// Case-insensitive substring on name.
	list, err := svc.ListContacts(ctx, alice, ListContactsParams{Name: "LOVE"})
	require.NoError(t, err)
	require.Len(t, list.Contacts, 1)
	assert.Equal(t, "Ada Lovelace", list.Contacts[0].Name)

	// Phone substring.
	list, err = svc.ListContacts(ctx, alice, ListContactsParams{Phone: "555"})
	require.NoError(t, err)
	assert.Len(t, list.Contacts, 2)

	// Filters are ANDed.
	list, err = svc.ListContacts(ctx, alice, ListContactsParams{Category: "work", Favorite: "true"})
	require.NoError(t, err)
	require.Len(t, list.Contacts, 1)
	assert.Equal(t, "Grace Hopper", list.Contacts[0].Name)

	// Address substring.
	list, err = svc.ListContacts(ctx, alice, ListContactsParams{Address: "bost"})
	require.NoError(t, err)
	require.Len(t, list.Contacts, 1)
	assert.Equal(t, "Margaret Hamilton", list.Contacts[0].Name)
}

func TestContactService_List_InvalidParams(t *testing.T) {
	svc, s := setupContactTest(t)
	ctx := context.Background()
	alice := newTestUser(t, s, "alice", domain.RoleUser)

	tests := []struct {
		name   string
		params ListContactsParams
	}{
		{"bad category", ListContactsParams{Category: "enemies"}},
		{"bad isFavorite", ListContactsParams{Favorite: "yes"}},
		{"bad tagLogic", ListContactsParams{Tags: "work", TagLogic: "XOR"}},
		{"bad sortBy", ListContactsParams{SortBy: "phone"}},
		{"bad sortOrder", ListContactsParams{SortOrder: "sideways"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ListContacts(ctx, alice, tt.params)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)
		})
	}
}

func TestContactService_List_TagLogic(t *testing.T) {
	svc, s := setupContactTest(t)
	ctx := context.Background()
	alice := newTestUser(t, s, "alice", domain.RoleUser)

	createTestContact(t, svc, alice, CreateContactRequest{Name: "Both", Tags: []string{"work", "urgent"}})
	createTestContact(t, svc, alice, CreateContactRequest{Name: "WorkOnly", Tags: []string{"work"}})
	createTestContact(t, svc, alice, CreateContactRequest{Name: "Neither", Tags: []string{"family"}})

	// OR (the default): any requested tag matches.
	list, err := svc.ListContacts(ctx, alice, ListContactsParams{Tags: "work,urgent"})
	require.NoError(t, err)
	assert.Len(t, list.Contacts, 2)

	// AND: the contact's tags must be a superset.
	list, err = svc.ListContacts(ctx, alice, ListContactsParams{Tags: "work,urgent", TagLogic: "AND"})
	require.NoError(t, err)
	require.Len(t, list.Contacts, 1)
	assert.Equal(t, "Both", list.Contacts[0].Name)

	// Requested tags are normalized before matching.
	list, err = svc.ListContacts(ctx, alice, ListContactsParams{Tags: " WORK , Urgent ", TagLogic: "and"})
	require.NoError(t, err)
	require.Len(t, list.Contacts, 1)
	assert.Equal(t, "Both", list.Contacts[0].Name)
}

func TestContactService_List_Pagination(t *testing.T) {
	svc, s := setupContactTest(t)
	ctx := context.Background()
	alice := newTestUser(t, s, "alice", domain.RoleUser)

	for i := range 25 {
		createTestContact(t, svc, alice, CreateContactRequest{Name: "Contact " + string(rune('A'+i))})
	}

	// Defaults: page 1, limit 10.
	list, err := svc.ListContacts(ctx, alice, ListContactsParams{})
	require.NoError(t, err)
	assert.Len(t, list.Contacts, 10)
	assert.Equal(t, Pagination{Total: 25, Page: 1, Limit: 10, Pages: 3}, list.Pagination)

	// Last partial page.
	list, err = svc.ListContacts(ctx, alice, ListContactsParams{Page: 3})
	require.NoError(t, err)
	assert.Len(t, list.Contacts, 5)

	// Past the end: empty window, same math.
	list, err = svc.ListContacts(ctx, alice, ListContactsParams{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, list.Contacts)
	assert.Equal(t, 3, list.Pagination.Pages)

	// Limit is capped at 100, page floors at 1.
	list, err = svc.ListContacts(ctx, alice, ListContactsParams{Page: -3, Limit: 500})
	require.NoError(t, err)
	assert.Len(t, list.Contacts, 25)
	assert.Equal(t, Pagination{Total: 25, Page: 1, Limit: 100, Pages: 1}, list.Pagination)
}

func TestContactService_List_EmptyPagination(t *testing.T) {
	svc, s := setupContactTest(t)
	alice := newTestUser(t, s, "alice", domain.RoleUser)

	// Zero results still report one page.
	list, err := svc.ListContacts(context.Background(), alice, ListContactsParams{})
	require.NoError(t, err)
	assert.NotNil(t, list.Contacts)
	assert.Equal(t, Pagination{Total: 0, Page: 1, Limit: 10, Pages: 1}, list.Pagination)
}

func TestContactService_List_Sorting(t *testing.T) {
	svc, s := setupContactTest(t)
	ctx := context.Background()
	alice := newTestUser(t, s, "alice", domain.RoleUser)

	for _, name := range []string{"Charlie", "alpha", "Bravo"} {
		createTestContact(t, svc, alice, CreateContactRequest{Name: name})
		time.Sleep(2 * time.Millisecond)
	}

	// Default: createdAt descending (newest first).
	list, err := svc.ListContacts(ctx, alice, ListContactsParams{})
	require.NoError(t, err)
	require.Len(t, list.Contacts, 3)
	assert.Equal(t, "Bravo", list.Contacts[0].Name)
	assert.Equal(t, "Charlie", list.Contacts[2].Name)

	// Name ascending, case-insensitive.
	list, err = svc.ListContacts(ctx, alice, ListContactsParams{SortBy: "name", SortOrder: "asc"})
	require.NoError(t, err)
	names := []string{list.Contacts[0].Name, list.Contacts[1].Name, list.Contacts[2].Name}
	assert.Equal(t, []string{"alpha", "Bravo", "Charlie"}, names)

	assert.Equal(t, "name", list.Filters.SortBy)
	assert.Equal(t, "asc", list.Filters.SortOrder)
}

func TestContactService_List_Search(t *testing.T) {
	svc, s := setupContactTest(t)
	ctx := context.Background()
	alice := newTestUser(t, s, "alice", domain.RoleUser)
	bob := newTestUser(t, s, "bob", domain.RoleUser)

	createTestContact(t, svc, alice, CreateContactRequest{
		Name: "Ada Lovelace", Category: "work", Tags: []string{"mentor"},
	})
	createTestContact(t, svc, alice, CreateContactRequest{
		Name: "Charles Babbage", Notes: "collaborates with Ada", Category: "personal",
	})
	createTestContact(t, svc, bob, CreateContactRequest{Name: "Ada Unrelated"})

	// Relevance order: the name match outranks the notes match, and Bob's
	// contact never appears.
	list, err := svc.ListContacts(ctx, alice, ListContactsParams{Search: "ada"})
	require.NoError(t, err)
	require.Len(t, list.Contacts, 2)
	assert.Equal(t, "Ada Lovelace", list.Contacts[0].Name)
	assert.Equal(t, "Charles Babbage", list.Contacts[1].Name)
	require.NotNil(t, list.Filters.Search)
	assert.Equal(t, "ada", *list.Filters.Search)

	// Search is ANDed with structured filters.
	list, err = svc.ListContacts(ctx, alice, ListContactsParams{Search: "ada", Category: "work"})
	require.NoError(t, err)
	require.Len(t, list.Contacts, 1)
	assert.Equal(t, "Ada Lovelace", list.Contacts[0].Name)
}

func TestContactService_List_FilterEcho(t *testing.T) {
	svc, s := setupContactTest(t)
	alice := newTestUser(t, s, "alice", domain.RoleUser)

	list, err := svc.ListContacts(context.Background(), alice, ListContactsParams{
		Tags:     "Work, urgent",
		TagLogic: "AND",
		Category: "work",
		Favorite: "true",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Work", "urgent"}, list.Filters.Tags)
	assert.Equal(t, "AND", list.Filters.TagLogic)
	require.NotNil(t, list.Filters.Category)
	assert.Equal(t, "work", *list.Filters.Category)
	require.NotNil(t, list.Filters.IsFavorite)
	assert.Equal(t, "true", *list.Filters.IsFavorite)
	assert.Nil(t, list.Filters.Search)
	assert.Equal(t, "createdAt", list.Filters.SortBy)
	assert.Equal(t, "desc", list.Filters.SortOrder)
}

func TestContactService_Update(t *testing.T) {
	svc, s := setupContactTest(t)
	ctx := context.Background()
	alice := newTestUser(t, s, "alice", domain.RoleUser)

	c := createTestContact(t, svc, alice, CreateContactRequest{Name: "Ada Lovelace", Phone: "555-0100"})
	createTestContact(t, svc, alice, CreateContactRequest{Name: "Grace Hopper"})

	newName := "Ada King"
	updated, err := svc.UpdateContact(ctx, alice, c.ID, UpdateContactRequest{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "Ada King", updated.Name)
	assert.Equal(t, "555-0100", updated.Phone, "omitted fields are unchanged")

	// Renaming onto another contact's name conflicts.
	taken := "grace hopper"
	_, err = svc.UpdateContact(ctx, alice, c.ID, UpdateContactRequest{Name: &taken})
	assert.ErrorIs(t, err, domainerrors.ErrConflict)

	// The search index follows the rename.
	list, err := svc.ListContacts(ctx, alice, ListContactsParams{Search: "king"})
	require.NoError(t, err)
	require.Len(t, list.Contacts, 1)
	assert.Equal(t, c.ID, list.Contacts[0].ID)
}

func TestContactService_Delete_RemovesFromSearch(t *testing.T) {
	svc, s := setupContactTest(t)
	ctx := context.Background()
	alice := newTestUser(t, s, "alice", domain.RoleUser)

	c := createTestContact(t, svc, alice, CreateContactRequest{Name: "Ada Lovelace"})
	require.NoError(t, svc.DeleteContact(ctx, alice, c.ID))

	list, err := svc.ListContacts(ctx, alice, ListContactsParams{Search: "lovelace"})
	require.NoError(t, err)
	assert.Empty(t, list.Contacts)
}

func TestContactService_ToggleFavorite(t *testing.T) {
	svc, s := setupContactTest(t)
	ctx := context.Background()
	alice := newTestUser(t, s, "alice", domain.RoleUser)

	c := createTestContact(t, svc, alice, CreateContactRequest{Name: "Ada Lovelace"})

	toggled, err := svc.ToggleFavorite(ctx, alice, c.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsFavorite)

	toggled, err = svc.ToggleFavorite(ctx, alice, c.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsFavorite)
}

func TestContactService_UpdateTags(t *testing.T) {
	svc, s := setupContactTest(t)
	ctx := context.Background()
	alice := newTestUser(t, s, "alice", domain.RoleUser)

	c := createTestContact(t, svc, alice, CreateContactRequest{
		Name: "Ada Lovelace", Tags: []string{"work", "urgent"},
	})

	// Remove runs before add; inputs are normalized.
	updated, err := svc.UpdateTags(ctx, alice, c.ID, TagUpdateRequest{
		Add:    []string{"  Mentor ", "WORK"},
		Remove: []string{"URGENT"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"work", "mentor"}, updated.Tags)

	// Removing and re-adding the same tag keeps it.
	updated, err = svc.UpdateTags(ctx, alice, c.ID, TagUpdateRequest{
		Add:    []string{"work"},
		Remove: []string{"work"},
	})
	require.NoError(t, err)
	assert.Contains(t, updated.Tags, "work")
}

func TestContactService_MultiByteTags_RoundTrip(t *testing.T) {
	svc, s := setupContactTest(t)
	ctx := context.Background()
	alice := newTestUser(t, s, "alice", domain.RoleUser)

	// An over-long CJK tag must truncate on a rune boundary so the stored
	// value is still valid UTF-8.
	c := createTestContact(t, svc, alice, CreateContactRequest{
		Name: "Ada Lovelace",
		Tags: []string{strings.Repeat("日本語", 8), "家族"},
	})
	want := strings.Repeat("日本語", 6) + "日本"
	assert.Equal(t, []string{want, "家族"}, c.Tags)

	got, err := svc.GetContact(ctx, alice, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{want, "家族"}, got.Tags)
}

func TestContactService_UpdateTags_CapEnforced(t *testing.T) {
	svc, s := setupContactTest(t)
	ctx := context.Background()
	alice := newTestUser(t, s, "alice", domain.RoleUser)

	c := createTestContact(t, svc, alice, CreateContactRequest{
		Name: "Ada Lovelace",
		Tags: []string{"t1", "t2", "t3", "t4", "t5", "t6", "t7", "t8", "t9"},
	})

	// Pushing past the cap fails and leaves the stored tags untouched.
	_, err := svc.UpdateTags(ctx, alice, c.ID, TagUpdateRequest{Add: []string{"t10", "t11"}})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	got, err := svc.GetContact(ctx, alice, c.ID)
	require.NoError(t, err)
	assert.Len(t, got.Tags, 9, "failed tag update must not be partially persisted")

	// Exactly at the cap is fine.
	updated, err := svc.UpdateTags(ctx, alice, c.ID, TagUpdateRequest{Add: []string{"t10"}})
	require.NoError(t, err)
	assert.Len(t, updated.Tags, 10)
}

func TestContactService_UpdateTags_Invisible(t *testing.T) {
	svc, s := setupContactTest(t)
	ctx := context.Background()
	alice := newTestUser(t, s, "alice", domain.RoleUser)
	bob := newTestUser(t, s, "bob", domain.RoleUser)

	c := createTestContact(t, svc, alice, CreateContactRequest{Name: "Ada Lovelace"})

	_, err := svc.UpdateTags(ctx, bob, c.ID, TagUpdateRequest{Add: []string{"stolen"}})
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestContactService_DistinctTags(t *testing.T) {
	svc, s := setupContactTest(t)
	ctx := context.Background()
	alice := newTestUser(t, s, "alice", domain.RoleUser)
	bob := newTestUser(t, s, "bob", domain.RoleUser)

	createTestContact(t, svc, alice, CreateContactRequest{Name: "One", Tags: []string{"work", "urgent"}})
	createTestContact(t, svc, alice, CreateContactRequest{Name: "Two", Tags: []string{"work", "family"}})
	createTestContact(t, svc, bob, CreateContactRequest{Name: "Three", Tags: []string{"bobs-tag"}})

	tags, err := svc.DistinctTags(ctx, alice, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"family", "urgent", "work"}, tags)

	// No contacts means an empty list, not null.
	none, err := svc.DistinctTags(ctx, newTestUser(t, s, "carol", domain.RoleUser), "")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
