// Package search provides full-text contact search backed by Bleve.
// Every query is scoped to an owner so one user's contacts never surface
// in another user's results.
package search

import "github.com/rolodexapp/rolodex-server/internal/domain"

// ContactDocument is the flattened form of a contact that gets indexed.
// Only the free-text searchable fields are carried; structured filters
// (category, favorite, tags) are applied against the store, not the index.
type ContactDocument struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner"`
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// DocumentFromContact builds the indexable document for a contact.
func DocumentFromContact(c *domain.Contact) *ContactDocument {
	return &ContactDocument{
		ID:      c.ID,
		OwnerID: c.OwnerID,
		Name:    c.Name,
		Phone:   c.Phone,
		Address: c.Address,
		Notes:   c.Notes,
	}
}

// ToMap converts the document to a map with lowercase field names.
// Bleve by default uses Go struct field names (capitalized), but the index
// mapping uses lowercase names; a mismatched field falls back to the default
// mapping and the owner term filter silently stops matching.
func (d *ContactDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":    d.ID,
		"owner": d.OwnerID,
		"name":  d.Name,
	}

	if d.Phone != "" {
		m["phone"] = d.Phone
	}
	if d.Address != "" {
		m["address"] = d.Address
	}
	if d.Notes != "" {
		m["notes"] = d.Notes
	}

	return m
}
