package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/rolodexapp/rolodex-server/internal/domain"
	domainerrors "github.com/rolodexapp/rolodex-server/internal/errors"
	"github.com/rolodexapp/rolodex-server/internal/id"
	"github.com/rolodexapp/rolodex-server/internal/search"
	"github.com/rolodexapp/rolodex-server/internal/store"
)

// ContactService coordinates the contact store and the search index.
// All operations are scoped to the acting user: regular users see only
// their own contacts, admins see everyone's. A contact outside the
// actor's scope behaves exactly like a missing one.
type ContactService struct {
	store  *store.Store
	search *search.Index
	logger *slog.Logger
}

// NewContactService creates a new contact service.
func NewContactService(store *store.Store, searchIndex *search.Index, logger *slog.Logger) *ContactService {
	return &ContactService{
		store:  store,
		search: searchIndex,
		logger: logger,
	}
}

// CreateContactRequest contains the fields for a new contact.
type CreateContactRequest struct {
	Name       string   `json:"name" validate:"required,max=100"`
	Phone      string   `json:"phone" validate:"max=50"`
	Address    string   `json:"address" validate:"max=200"`
	Notes      string   `json:"notes,omitempty" validate:"max=2000"`
	Category   string   `json:"category,omitempty"`
	IsFavorite bool     `json:"isFavorite,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Owner      string   `json:"owner,omitempty"` // Admin only: create on behalf of another user
}

// UpdateContactRequest contains partial updates for a contact.
// Nil fields are left unchanged.
type UpdateContactRequest struct {
	Name       *string   `json:"name,omitempty" validate:"omitempty,max=100"`
	Phone      *string   `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address    *string   `json:"address,omitempty" validate:"omitempty,max=200"`
	Notes      *string   `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Category   *string   `json:"category,omitempty"`
	IsFavorite *bool     `json:"isFavorite,omitempty"`
	Tags       *[]string `json:"tags,omitempty"`
}

// TagUpdateRequest contains tags to add and remove in one atomic step.
type TagUpdateRequest struct {
	Add    []string `json:"add,omitempty"`
	Remove []string `json:"remove,omitempty"`
}

// scopeFor derives the store scope for the acting user.
func scopeFor(user *domain.User) store.Scope {
	return store.Scope{UserID: user.ID, Admin: user.IsAdmin()}
}

// resolveOwner picks the owner whose contacts an operation targets.
// Admins may target any owner; for everyone else the requested owner is
// ignored and the operation applies to their own contacts.
func resolveOwner(user *domain.User, requested string) string {
	if user.IsAdmin() && requested != "" {
		return requested
	}
	return user.ID
}

// CreateContact creates a contact owned by the acting user.
// Admins may set a different owner via the request's owner field.
func (s *ContactService) CreateContact(ctx context.Context, user *domain.User, req CreateContactRequest) (*domain.Contact, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}
	if req.Category != "" && !domain.Category(req.Category).Valid() {
		return nil, domainerrors.Validation("Invalid category")
	}
	if req.Owner != "" && req.Owner != user.ID && !user.IsAdmin() {
		return nil, domainerrors.Forbidden("only admins may set a contact owner")
	}

	tags := domain.NormalizeTags(req.Tags)
	if len(tags) > domain.MaxTags {
		return nil, domainerrors.Validationf("a contact may have at most %d tags", domain.MaxTags)
	}

	contactID, err := id.Generate(id.PrefixContact)
	if err != nil {
		return nil, fmt.Errorf("generate contact ID: %w", err)
	}

	contact := &domain.Contact{
		OwnerID:    resolveOwner(user, req.Owner),
		Name:       req.Name,
		Phone:      req.Phone,
		Address:    req.Address,
		Notes:      req.Notes,
		Category:   domain.Category(req.Category),
		IsFavorite: req.IsFavorite,
		Tags:       tags,
	}
	contact.ID = contactID
	contact.InitTimestamps()

	if err := s.store.Contacts.Create(ctx, contactID, contact); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Conflict("a contact with this name already exists")
		}
		return nil, fmt.Errorf("create contact: %w", err)
	}

	s.indexContact(contact)

	if s.logger != nil {
		s.logger.Info("Contact created",
			"contact_id", contactID,
			"owner_id", contact.OwnerID,
		)
	}

	return contact, nil
}

// GetContact fetches a single contact visible to the acting user.
func (s *ContactService) GetContact(ctx context.Context, user *domain.User, contactID string) (*domain.Contact, error) {
	contact, err := s.store.GetContactScoped(ctx, contactID, scopeFor(user))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("contact not found")
		}
		return nil, fmt.Errorf("get contact: %w", err)
	}
	return contact, nil
}

// UpdateContact applies a partial update to a contact visible to the
// acting user.
func (s *ContactService) UpdateContact(ctx context.Context, user *domain.User, contactID string, req UpdateContactRequest) (*domain.Contact, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}
	if req.Category != nil && *req.Category != "" && !domain.Category(*req.Category).Valid() {
		return nil, domainerrors.Validation("Invalid category")
	}

	var tags []string
	if req.Tags != nil {
		tags = domain.NormalizeTags(*req.Tags)
		if len(tags) > domain.MaxTags {
			return nil, domainerrors.Validationf("a contact may have at most %d tags", domain.MaxTags)
		}
	}

	contact, err := s.store.MutateContactScoped(ctx, contactID, scopeFor(user), func(c *domain.Contact) error {
		if req.Name != nil {
			c.Name = *req.Name
		}
		if req.Phone != nil {
			c.Phone = *req.Phone
		}
		if req.Address != nil {
			c.Address = *req.Address
		}
		if req.Notes != nil {
			c.Notes = *req.Notes
		}
		if req.Category != nil {
			c.Category = domain.Category(*req.Category)
		}
		if req.IsFavorite != nil {
			c.IsFavorite = *req.IsFavorite
		}
		if req.Tags != nil {
			c.Tags = tags
		}
		c.Touch()
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, domainerrors.NotFound("contact not found")
		case errors.Is(err, store.ErrAlreadyExists):
			return nil, domainerrors.Conflict("a contact with this name already exists")
		}
		return nil, fmt.Errorf("update contact: %w", err)
	}

	s.indexContact(contact)

	return contact, nil
}

// DeleteContact removes a contact visible to the acting user.
func (s *ContactService) DeleteContact(ctx context.Context, user *domain.User, contactID string) error {
	contact, err := s.store.DeleteContactScoped(ctx, contactID, scopeFor(user))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainerrors.NotFound("contact not found")
		}
		return fmt.Errorf("delete contact: %w", err)
	}

	if err := s.search.DeleteContact(contact.ID); err != nil && s.logger != nil {
		s.logger.Warn("Failed to remove contact from search index",
			"contact_id", contact.ID,
			"error", err,
		)
	}

	if s.logger != nil {
		s.logger.Info("Contact deleted",
			"contact_id", contact.ID,
			"owner_id", contact.OwnerID,
		)
	}

	return nil
}

// ToggleFavorite flips a contact's favorite flag.
func (s *ContactService) ToggleFavorite(ctx context.Context, user *domain.User, contactID string) (*domain.Contact, error) {
	contact, err := s.store.MutateContactScoped(ctx, contactID, scopeFor(user), func(c *domain.Contact) error {
		c.IsFavorite = !c.IsFavorite
		c.Touch()
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("contact not found")
		}
		return nil, fmt.Errorf("toggle favorite: %w", err)
	}
	return contact, nil
}

// UpdateTags adds and removes tags on a contact in one atomic step.
// Removals run before additions, every tag is normalized, and a result
// exceeding the tag cap fails with no change to the stored contact.
func (s *ContactService) UpdateTags(ctx context.Context, user *domain.User, contactID string, req TagUpdateRequest) (*domain.Contact, error) {
	toAdd := domain.NormalizeTags(req.Add)
	toRemove := domain.NormalizeTags(req.Remove)

	contact, err := s.store.MutateContactScoped(ctx, contactID, scopeFor(user), func(c *domain.Contact) error {
		tags := domain.NormalizeTags(c.Tags)

		tags = slices.DeleteFunc(tags, func(t string) bool {
			return slices.Contains(toRemove, t)
		})
		for _, t := range toAdd {
			if !slices.Contains(tags, t) {
				tags = append(tags, t)
			}
		}

		if len(tags) > domain.MaxTags {
			return domainerrors.Validationf("resulting tags exceed maximum allowed (%d)", domain.MaxTags)
		}

		c.Tags = tags
		c.Touch()
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("contact not found")
		}
		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, fmt.Errorf("update tags: %w", err)
	}

	return contact, nil
}

// DistinctTags returns the sorted unique tags across the targeted owner's
// contacts. Admins may target another owner; the parameter is ignored for
// everyone else.
func (s *ContactService) DistinctTags(ctx context.Context, user *domain.User, requestedOwner string) ([]string, error) {
	owner := resolveOwner(user, requestedOwner)

	contacts, err := s.store.ContactsByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}

	seen := make(map[string]struct{})
	tags := []string{}
	for _, c := range contacts {
		for _, t := range c.Tags {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				tags = append(tags, t)
			}
		}
	}
	slices.Sort(tags)

	return tags, nil
}

// indexContact pushes a contact into the search index.
// Indexing failures are logged, not returned: the store is the source of
// truth and a stale index entry only degrades search results.
func (s *ContactService) indexContact(c *domain.Contact) {
	if err := s.search.IndexContact(c); err != nil && s.logger != nil {
		s.logger.Warn("Failed to index contact",
			"contact_id", c.ID,
			"error", err,
		)
	}
}
