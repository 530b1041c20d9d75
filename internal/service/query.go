package service

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/rolodexapp/rolodex-server/internal/domain"
	domainerrors "github.com/rolodexapp/rolodex-server/internal/errors"
)

// Pagination and sort bounds for contact listings.
const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// ListContactsParams carries the raw query parameters of a contact
// listing. String fields arrive untrimmed from the request; everything is
// validated here so a bad parameter is rejected before the store or the
// search index is touched.
type ListContactsParams struct {
	Owner string // Admin only: list another user's contacts

	// Field filters, ANDed together
	Name     string
	Phone    string
	Address  string
	Category string
	Favorite string // textual "true" / "false"
	Tags     string // comma-separated
	TagLogic string // "AND" / "OR", default OR

	// Free-text relevance search, ANDed with the filters above
	Search string

	SortBy    string // name | createdAt | updatedAt, default createdAt
	SortOrder string // asc | desc, default desc

	Page  int
	Limit int
}

// ContactList is the result of a contact listing.
type ContactList struct {
	Contacts   []*domain.Contact `json:"contacts"`
	Pagination Pagination        `json:"pagination"`
	Filters    FilterEcho        `json:"filters"`
}

// Pagination describes the window a listing returned.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// FilterEcho mirrors the filters a listing was executed with, so clients
// can render active-filter state without re-parsing their own request.
type FilterEcho struct {
	Search     *string  `json:"search"`
	Tags       []string `json:"tags"`
	TagLogic   string   `json:"tagLogic"`
	Category   *string  `json:"category"`
	IsFavorite *string  `json:"isFavorite"`
	SortBy     string   `json:"sortBy"`
	SortOrder  string   `json:"sortOrder"`
}

// contactQuery is a fully validated listing request.
type contactQuery struct {
	ownerID  string
	name     string
	phone    string
	address  string
	category domain.Category
	favorite *bool
	tags     []string
	tagsAll  bool // true = superset (AND), false = intersect (OR)
	search   string

	sortBy    string
	sortDesc  bool
	relevance map[string]float64 // non-nil when a text search ran

	page  int
	limit int
}

// ListContacts runs the contact query engine: ownership scoping, ANDed
// filters, optional relevance search, sorting, and pagination.
func (s *ContactService) ListContacts(ctx context.Context, user *domain.User, params ListContactsParams) (*ContactList, error) {
	q, err := buildContactQuery(user, params)
	if err != nil {
		return nil, err
	}

	contacts, err := s.store.ContactsByOwner(ctx, q.ownerID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}

	if q.search != "" {
		match, err := s.search.Match(ctx, q.ownerID, q.search)
		if err != nil {
			return nil, fmt.Errorf("search contacts: %w", err)
		}
		q.relevance = match.Scores
	}

	filtered := make([]*domain.Contact, 0, len(contacts))
	for _, c := range contacts {
		if q.matches(c) {
			filtered = append(filtered, c)
		}
	}

	q.sort(filtered)

	total := len(filtered)
	pages := max(1, int(math.Ceil(float64(total)/float64(q.limit))))

	offset := (q.page - 1) * q.limit
	window := []*domain.Contact{}
	if offset < total {
		window = filtered[offset:min(offset+q.limit, total)]
	}

	return &ContactList{
		Contacts: window,
		Pagination: Pagination{
			Total: total,
			Page:  q.page,
			Limit: q.limit,
			Pages: pages,
		},
		Filters: echoFilters(params, q),
	}, nil
}

// buildContactQuery validates raw parameters into an executable query.
func buildContactQuery(user *domain.User, params ListContactsParams) (*contactQuery, error) {
	q := &contactQuery{
		ownerID: resolveOwner(user, params.Owner),
		name:    strings.ToLower(params.Name),
		phone:   strings.ToLower(params.Phone),
		address: strings.ToLower(params.Address),
		search:  strings.TrimSpace(params.Search),
	}

	if params.Category != "" {
		cat := domain.Category(params.Category)
		if !cat.Valid() {
			return nil, domainerrors.Validation("Invalid category")
		}
		q.category = cat
	}

	if params.Favorite != "" {
		switch strings.ToLower(params.Favorite) {
		case "true":
			fav := true
			q.favorite = &fav
		case "false":
			fav := false
			q.favorite = &fav
		default:
			return nil, domainerrors.Validation("isFavorite must be true or false")
		}
	}

	if params.Tags != "" {
		q.tags = domain.NormalizeTags(strings.Split(params.Tags, ","))
		if len(q.tags) > 0 {
			logic := strings.ToUpper(params.TagLogic)
			switch logic {
			case "", "OR":
				q.tagsAll = false
			case "AND":
				q.tagsAll = true
			default:
				return nil, domainerrors.Validation("tagLogic must be AND or OR")
			}
		}
	}

	switch params.SortBy {
	case "", "createdAt":
		q.sortBy = "createdAt"
	case "name", "updatedAt":
		q.sortBy = params.SortBy
	default:
		return nil, domainerrors.Validation("sortBy must be one of name, createdAt, updatedAt")
	}

	switch params.SortOrder {
	case "", "desc":
		q.sortDesc = true
	case "asc":
		q.sortDesc = false
	default:
		return nil, domainerrors.Validation("sortOrder must be asc or desc")
	}

	q.page = max(params.Page, defaultPage)
	q.limit = params.Limit
	if q.limit <= 0 {
		q.limit = defaultLimit
	}
	q.limit = min(q.limit, maxLimit)

	return q, nil
}

// matches applies every active filter to a contact. Filters are ANDed:
// a contact must pass all of them to be listed.
func (q *contactQuery) matches(c *domain.Contact) bool {
	if q.relevance != nil {
		if _, ok := q.relevance[c.ID]; !ok {
			return false
		}
	}
	if q.name != "" && !strings.Contains(strings.ToLower(c.Name), q.name) {
		return false
	}
	if q.phone != "" && !strings.Contains(strings.ToLower(c.Phone), q.phone) {
		return false
	}
	if q.address != "" && !strings.Contains(strings.ToLower(c.Address), q.address) {
		return false
	}
	if q.category != "" && c.Category != q.category {
		return false
	}
	if q.favorite != nil && c.IsFavorite != *q.favorite {
		return false
	}
	if len(q.tags) > 0 {
		if q.tagsAll {
			if !c.HasAllTags(q.tags) {
				return false
			}
		} else if !c.HasAnyTag(q.tags) {
			return false
		}
	}
	return true
}

// sort orders contacts in place. With a text search active, relevance is
// the primary key and the requested field breaks ties; otherwise the
// requested field alone decides, with the contact ID as a final
// deterministic tie-break.
func (q *contactQuery) sort(contacts []*domain.Contact) {
	cmp := func(a, b *domain.Contact) int {
		if q.relevance != nil {
			if d := q.relevance[b.ID] - q.relevance[a.ID]; d != 0 {
				if d > 0 {
					return 1
				}
				return -1
			}
		}

		var c int
		switch q.sortBy {
		case "name":
			c = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case "updatedAt":
			c = a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if q.sortDesc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	}

	slices.SortStableFunc(contacts, cmp)
}

// echoFilters builds the filter echo from the raw request.
func echoFilters(params ListContactsParams, q *contactQuery) FilterEcho {
	echo := FilterEcho{
		Tags:      []string{},
		TagLogic:  "OR",
		SortBy:    q.sortBy,
		SortOrder: "desc",
	}

	if params.Search != "" {
		echo.Search = &params.Search
	}
	if params.Tags != "" {
		for _, t := range strings.Split(params.Tags, ",") {
			echo.Tags = append(echo.Tags, strings.TrimSpace(t))
		}
	}
	if params.TagLogic != "" {
		echo.TagLogic = params.TagLogic
	}
	if params.Category != "" {
		echo.Category = &params.Category
	}
	if params.Favorite != "" {
		echo.IsFavorite = &params.Favorite
	}
	if params.SortOrder != "" {
		echo.SortOrder = params.SortOrder
	}

	return echo
}
