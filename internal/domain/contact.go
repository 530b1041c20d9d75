package domain

import (
	"strings"
	"unicode/utf8"
)

// Category classifies a contact. The set is fixed; anything outside it is
// rejected at validation time.
type Category string

const (
	CategoryPersonal Category = "personal"
	CategoryWork     Category = "work"
	CategoryFamily   Category = "family"
	CategoryBusiness Category = "business"
	CategoryOther    Category = "other"
)

// Categories lists every valid category value.
var Categories = []Category{
	CategoryPersonal,
	CategoryWork,
	CategoryFamily,
	CategoryBusiness,
	CategoryOther,
}

// Valid reports whether c is a member of the fixed category set.
func (c Category) Valid() bool {
	switch c {
	case CategoryPersonal, CategoryWork, CategoryFamily, CategoryBusiness, CategoryOther:
		return true
	}
	return false
}

// Tag limits, enforced before anything reaches the store.
const (
	MaxTags      = 10
	MaxTagLength = 20
)

// Contact is an address-book record owned by exactly one user.
// (owner, name) pairs are unique per owner.
type Contact struct {
	Entity
	OwnerID    string   `json:"owner"`
	Name       string   `json:"name"`
	Phone      string   `json:"phone"`
	Address    string   `json:"address"`
	Notes      string   `json:"notes,omitempty"`
	Category   Category `json:"category"`
	IsFavorite bool     `json:"isFavorite"`
	Tags       []string `json:"tags"`
}

// NormalizeTag canonicalizes a single tag: trimmed, lowercased, truncated to
// MaxTagLength runes. Returns "" for whitespace-only input.
func NormalizeTag(raw string) string {
	tag := strings.ToLower(strings.TrimSpace(raw))
	if utf8.RuneCountInString(tag) > MaxTagLength {
		r := []rune(tag)
		tag = string(r[:MaxTagLength])
	}
	return tag
}

// NormalizeTags canonicalizes a tag list, dropping empties and duplicates.
// Order is preserved; the first occurrence of a duplicate wins.
func NormalizeTags(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		tag := NormalizeTag(r)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// HasTag reports whether the contact carries the given (already normalized) tag.
func (c *Contact) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasAllTags reports whether the contact's tag set is a superset of tags.
func (c *Contact) HasAllTags(tags []string) bool {
	for _, t := range tags {
		if !c.HasTag(t) {
			return false
		}
	}
	return true
}

// HasAnyTag reports whether the contact's tag set intersects tags.
func (c *Contact) HasAnyTag(tags []string) bool {
	for _, t := range tags {
		if c.HasTag(t) {
			return true
		}
	}
	return false
}
