package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/rolodexapp/rolodex-server/internal/domain"
	"github.com/rolodexapp/rolodex-server/internal/service"
)

func (s *Server) registerContactRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listContacts",
		Method:      http.MethodGet,
		Path:        "/api/v1/contacts",
		Summary:     "List contacts",
		Description: "Lists the requester's contacts with filtering, free-text search, sorting, and pagination. Admins may pass ?user= to list another user's contacts.",
		Tags:        []string{"Contacts"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListContacts)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createContact",
		Method:        http.MethodPost,
		Path:          "/api/v1/contacts",
		Summary:       "Create contact",
		Description:   "Creates a contact owned by the requester. Admins may set an explicit owner.",
		Tags:          []string{"Contacts"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateContact)

	huma.Register(s.api, huma.Operation{
		OperationID: "listFavoriteContacts",
		Method:      http.MethodGet,
		Path:        "/api/v1/contacts/favorites",
		Summary:     "List favorite contacts",
		Description: "Lists favorite contacts. Accepts the same filters as the main listing.",
		Tags:        []string{"Contacts"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListFavorites)

	huma.Register(s.api, huma.Operation{
		OperationID: "listContactTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/contacts/tags",
		Summary:     "List distinct tags",
		Description: "Returns every distinct tag across the visible contacts, sorted alphabetically",
		Tags:        []string{"Contacts"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "listContactsByCategory",
		Method:      http.MethodGet,
		Path:        "/api/v1/contacts/categories/{category}",
		Summary:     "List contacts by category",
		Description: "Lists contacts in the given category. Accepts the same filters as the main listing.",
		Tags:        []string{"Contacts"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListByCategory)

	huma.Register(s.api, huma.Operation{
		OperationID: "getContact",
		Method:      http.MethodGet,
		Path:        "/api/v1/contacts/{id}",
		Summary:     "Get contact",
		Tags:        []string{"Contacts"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetContact)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateContact",
		Method:      http.MethodPut,
		Path:        "/api/v1/contacts/{id}",
		Summary:     "Update contact",
		Description: "Applies a partial update; omitted fields are left unchanged",
		Tags:        []string{"Contacts"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateContact)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteContact",
		Method:      http.MethodDelete,
		Path:        "/api/v1/contacts/{id}",
		Summary:     "Delete contact",
		Tags:        []string{"Contacts"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteContact)

	huma.Register(s.api, huma.Operation{
		OperationID: "toggleFavorite",
		Method:      http.MethodPatch,
		Path:        "/api/v1/contacts/{id}/favorite",
		Summary:     "Toggle favorite",
		Description: "Flips the contact's favorite flag",
		Tags:        []string{"Contacts"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleToggleFavorite)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateContactTags",
		Method:      http.MethodPatch,
		Path:        "/api/v1/contacts/{id}/tags",
		Summary:     "Add and remove tags",
		Description: "Applies tag removals then additions in one atomic step. The result may not exceed the per-contact tag limit.",
		Tags:        []string{"Contacts"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateTags)
}

// === DTOs ===

// ContactResponse contains contact information in API responses.
type ContactResponse struct {
	ID         string    `json:"id" doc:"Contact ID"`
	Owner      string    `json:"owner" doc:"Owning user ID"`
	Name       string    `json:"name" doc:"Contact name"`
	Phone      string    `json:"phone" doc:"Phone number"`
	Address    string    `json:"address" doc:"Postal address"`
	Notes      string    `json:"notes,omitempty" doc:"Free-form notes"`
	Category   string    `json:"category" doc:"Category (personal, work, family, business, other)"`
	IsFavorite bool      `json:"isFavorite" doc:"Favorite flag"`
	Tags       []string  `json:"tags" doc:"Normalized tags"`
	CreatedAt  time.Time `json:"createdAt" doc:"Creation timestamp"`
	UpdatedAt  time.Time `json:"updatedAt" doc:"Last update timestamp"`
}

// ContactOutput wraps a single contact for Huma.
type ContactOutput struct {
	Body ContactResponse
}

// ContactListQuery carries the listing query parameters. Page and limit are
// parsed leniently: non-numeric values fall back to defaults rather than
// failing the request.
type ContactListQuery struct {
	Owner     string `query:"user" doc:"Admin only: list this user's contacts"`
	Name      string `query:"name" doc:"Case-insensitive name substring"`
	Phone     string `query:"phone" doc:"Phone substring"`
	Address   string `query:"address" doc:"Case-insensitive address substring"`
	Category  string `query:"category" doc:"Category filter"`
	Favorite  string `query:"isFavorite" doc:"Favorite filter (true or false)"`
	Tags      string `query:"tags" doc:"Comma-separated tag filter"`
	TagLogic  string `query:"tagLogic" doc:"Tag combination: AND or OR (default OR)"`
	Search    string `query:"search" doc:"Free-text relevance search"`
	SortBy    string `query:"sortBy" doc:"Sort field: name, createdAt, or updatedAt"`
	SortOrder string `query:"sortOrder" doc:"Sort direction: asc or desc"`
	Page      string `query:"page" doc:"Page number (1-based)"`
	Limit     string `query:"limit" doc:"Page size (max 100)"`
}

// ContactListInput wraps the listing query for Huma.
type ContactListInput struct {
	ContactListQuery
}

// CategoryListInput is the listing query scoped to one category.
type CategoryListInput struct {
	Category string `path:"category" doc:"Category to list"`
	ContactListQuery
}

// PaginationResponse describes the window a listing returned.
type PaginationResponse struct {
	Total int `json:"total" doc:"Total matching contacts"`
	Page  int `json:"page" doc:"Current page"`
	Limit int `json:"limit" doc:"Page size"`
	Pages int `json:"pages" doc:"Total pages (at least 1)"`
}

// FiltersResponse echoes the filters a listing was executed with.
type FiltersResponse struct {
	Search     *string  `json:"search" doc:"Free-text search, or null"`
	Tags       []string `json:"tags" doc:"Requested tags"`
	TagLogic   string   `json:"tagLogic" doc:"Tag combination used"`
	Category   *string  `json:"category" doc:"Category filter, or null"`
	IsFavorite *string  `json:"isFavorite" doc:"Favorite filter, or null"`
	SortBy     string   `json:"sortBy" doc:"Sort field used"`
	SortOrder  string   `json:"sortOrder" doc:"Sort direction used"`
}

// ContactListResponse is the listing response body.
type ContactListResponse struct {
	Contacts   []ContactResponse  `json:"contacts" doc:"Current page of contacts"`
	Pagination PaginationResponse `json:"pagination" doc:"Pagination state"`
	Filters    FiltersResponse    `json:"filters" doc:"Echo of the applied filters"`
}

// ContactListOutput wraps the listing response for Huma.
type ContactListOutput struct {
	Body ContactListResponse
}

// CreateContactRequest is the request body for contact creation.
type CreateContactRequest struct {
	Name       string   `json:"name" doc:"Contact name, unique per owner"`
	Phone      string   `json:"phone,omitempty" doc:"Phone number"`
	Address    string   `json:"address,omitempty" doc:"Postal address"`
	Notes      string   `json:"notes,omitempty" doc:"Free-form notes"`
	Category   string   `json:"category,omitempty" doc:"Category (default other)"`
	IsFavorite bool     `json:"isFavorite,omitempty" doc:"Favorite flag"`
	Tags       []string `json:"tags,omitempty" doc:"Initial tags"`
	Owner      string   `json:"owner,omitempty" doc:"Admin only: owning user ID"`
}

// CreateContactInput wraps the creation request for Huma.
type CreateContactInput struct {
	Body CreateContactRequest
}

// UpdateContactRequest is the request body for a partial contact update.
type UpdateContactRequest struct {
	Name       *string   `json:"name,omitempty" doc:"New name"`
	Phone      *string   `json:"phone,omitempty" doc:"New phone number"`
	Address    *string   `json:"address,omitempty" doc:"New address"`
	Notes      *string   `json:"notes,omitempty" doc:"New notes"`
	Category   *string   `json:"category,omitempty" doc:"New category"`
	IsFavorite *bool     `json:"isFavorite,omitempty" doc:"New favorite flag"`
	Tags       *[]string `json:"tags,omitempty" doc:"Replacement tag set"`
}

// UpdateContactInput wraps the update request for Huma.
type UpdateContactInput struct {
	ID   string `path:"id" doc:"Contact ID"`
	Body UpdateContactRequest
}

// ContactIDInput identifies a contact by path parameter.
type ContactIDInput struct {
	ID string `path:"id" doc:"Contact ID"`
}

// TagUpdateRequest is the request body for a tag mutation.
type TagUpdateRequest struct {
	Add    []string `json:"add,omitempty" doc:"Tags to add"`
	Remove []string `json:"remove,omitempty" doc:"Tags to remove"`
}

// TagUpdateInput wraps the tag mutation for Huma.
type TagUpdateInput struct {
	ID   string `path:"id" doc:"Contact ID"`
	Body TagUpdateRequest
}

// TagUpdateResponse reports the outcome of a tag mutation.
type TagUpdateResponse struct {
	Message string          `json:"message" doc:"Status message"`
	Tags    []string        `json:"tags" doc:"Resulting tag set"`
	Contact ContactResponse `json:"contact" doc:"Updated contact"`
}

// TagUpdateOutput wraps the tag mutation response for Huma.
type TagUpdateOutput struct {
	Body TagUpdateResponse
}

// FavoriteResponse reports the outcome of a favorite toggle.
type FavoriteResponse struct {
	Message string          `json:"message" doc:"Status message"`
	Contact ContactResponse `json:"contact" doc:"Updated contact"`
}

// FavoriteOutput wraps the favorite toggle response for Huma.
type FavoriteOutput struct {
	Body FavoriteResponse
}

// ListTagsResponse contains the distinct tags across visible contacts.
type ListTagsResponse struct {
	Tags []string `json:"tags" doc:"Distinct tags, sorted alphabetically"`
}

// ListTagsOutput wraps the tag listing for Huma.
type ListTagsOutput struct {
	Body ListTagsResponse
}

// === Handlers ===

func (s *Server) handleListContacts(ctx context.Context, input *ContactListInput) (*ContactListOutput, error) {
	return s.listContacts(ctx, input.ContactListQuery)
}

func (s *Server) handleListFavorites(ctx context.Context, input *ContactListInput) (*ContactListOutput, error) {
	q := input.ContactListQuery
	q.Favorite = "true"
	return s.listContacts(ctx, q)
}

func (s *Server) handleListByCategory(ctx context.Context, input *CategoryListInput) (*ContactListOutput, error) {
	q := input.ContactListQuery
	q.Category = input.Category
	return s.listContacts(ctx, q)
}

func (s *Server) listContacts(ctx context.Context, q ContactListQuery) (*ContactListOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	list, err := s.services.Contact.ListContacts(ctx, user, service.ListContactsParams{
		Owner:     q.Owner,
		Name:      q.Name,
		Phone:     q.Phone,
		Address:   q.Address,
		Category:  q.Category,
		Favorite:  q.Favorite,
		Tags:      q.Tags,
		TagLogic:  q.TagLogic,
		Search:    q.Search,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		Page:      lenientInt(q.Page),
		Limit:     lenientInt(q.Limit),
	})
	if err != nil {
		return nil, err
	}

	return &ContactListOutput{Body: mapContactList(list)}, nil
}

func (s *Server) handleCreateContact(ctx context.Context, input *CreateContactInput) (*ContactOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	contact, err := s.services.Contact.CreateContact(ctx, user, service.CreateContactRequest{
		Name:       input.Body.Name,
		Phone:      input.Body.Phone,
		Address:    input.Body.Address,
		Notes:      input.Body.Notes,
		Category:   input.Body.Category,
		IsFavorite: input.Body.IsFavorite,
		Tags:       input.Body.Tags,
		Owner:      input.Body.Owner,
	})
	if err != nil {
		return nil, err
	}

	return &ContactOutput{Body: mapContactResponse(contact)}, nil
}

func (s *Server) handleGetContact(ctx context.Context, input *ContactIDInput) (*ContactOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	contact, err := s.services.Contact.GetContact(ctx, user, input.ID)
	if err != nil {
		return nil, err
	}

	return &ContactOutput{Body: mapContactResponse(contact)}, nil
}

func (s *Server) handleUpdateContact(ctx context.Context, input *UpdateContactInput) (*ContactOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	contact, err := s.services.Contact.UpdateContact(ctx, user, input.ID, service.UpdateContactRequest{
		Name:       input.Body.Name,
		Phone:      input.Body.Phone,
		Address:    input.Body.Address,
		Notes:      input.Body.Notes,
		Category:   input.Body.Category,
		IsFavorite: input.Body.IsFavorite,
		Tags:       input.Body.Tags,
	})
	if err != nil {
		return nil, err
	}

	return &ContactOutput{Body: mapContactResponse(contact)}, nil
}

func (s *Server) handleDeleteContact(ctx context.Context, input *ContactIDInput) (*MessageOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Contact.DeleteContact(ctx, user, input.ID); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Contact deleted"}}, nil
}

func (s *Server) handleToggleFavorite(ctx context.Context, input *ContactIDInput) (*FavoriteOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	contact, err := s.services.Contact.ToggleFavorite(ctx, user, input.ID)
	if err != nil {
		return nil, err
	}

	return &FavoriteOutput{
		Body: FavoriteResponse{
			Message: "Favorite toggled",
			Contact: mapContactResponse(contact),
		},
	}, nil
}

func (s *Server) handleUpdateTags(ctx context.Context, input *TagUpdateInput) (*TagUpdateOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	contact, err := s.services.Contact.UpdateTags(ctx, user, input.ID, service.TagUpdateRequest{
		Add:    input.Body.Add,
		Remove: input.Body.Remove,
	})
	if err != nil {
		return nil, err
	}

	return &TagUpdateOutput{
		Body: TagUpdateResponse{
			Message: "Tags updated",
			Tags:    contact.Tags,
			Contact: mapContactResponse(contact),
		},
	}, nil
}

func (s *Server) handleListTags(ctx context.Context, input *struct {
	Owner string `query:"user" doc:"Admin only: list this user's tags"`
}) (*ListTagsOutput, error) {
	user, err := RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	tags, err := s.services.Contact.DistinctTags(ctx, user, input.Owner)
	if err != nil {
		return nil, err
	}

	return &ListTagsOutput{Body: ListTagsResponse{Tags: tags}}, nil
}

// === Helpers ===

func mapContactResponse(c *domain.Contact) ContactResponse {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return ContactResponse{
		ID:         c.ID,
		Owner:      c.OwnerID,
		Name:       c.Name,
		Phone:      c.Phone,
		Address:    c.Address,
		Notes:      c.Notes,
		Category:   string(c.Category),
		IsFavorite: c.IsFavorite,
		Tags:       tags,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func mapContactList(list *service.ContactList) ContactListResponse {
	contacts := make([]ContactResponse, 0, len(list.Contacts))
	for _, c := range list.Contacts {
		contacts = append(contacts, mapContactResponse(c))
	}

	return ContactListResponse{
		Contacts: contacts,
		Pagination: PaginationResponse{
			Total: list.Pagination.Total,
			Page:  list.Pagination.Page,
			Limit: list.Pagination.Limit,
			Pages: list.Pagination.Pages,
		},
		Filters: FiltersResponse{
			Search:     list.Filters.Search,
			Tags:       list.Filters.Tags,
			TagLogic:   list.Filters.TagLogic,
			Category:   list.Filters.Category,
			IsFavorite: list.Filters.IsFavorite,
			SortBy:     list.Filters.SortBy,
			SortOrder:  list.Filters.SortOrder,
		},
	}
}

// lenientInt parses a numeric query parameter the forgiving way: anything
// unparseable becomes zero, which the query layer treats as "use the default".
func lenientInt(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
