// Package presence tracks which user is editing which contact.
//
// Claims follow a two-state machine per contact: unclaimed, or claimed by
// exactly one connection. A claim is held until the holder stops editing
// or disconnects; there is no expiry. Every transition produces exactly
// one event for the hub to broadcast.
package presence

import (
	"slices"
	"strings"
	"sync"
)

// Claim records who is editing a contact.
type Claim struct {
	ConnID   string `json:"-"`
	Username string `json:"username"`
}

// Event describes a single editing-status transition.
type Event struct {
	ContactID string `json:"contactId"`
	IsEditing bool   `json:"isEditing"`
	Username  string `json:"username,omitempty"`
}

// Tracker is the claim registry. It is owned by the WebSocket hub and
// lives exactly as long as the server; methods are safe for concurrent
// use.
type Tracker struct {
	mu     sync.Mutex
	claims map[string]Claim // contactID -> claim
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		claims: make(map[string]Claim),
	}
}

// StartEditing claims a contact for a connection. An existing claim is
// overwritten: the last writer wins, with no notification to the evicted
// holder beyond the returned event.
func (t *Tracker) StartEditing(contactID, connID, username string) Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.claims[contactID] = Claim{ConnID: connID, Username: username}

	return Event{ContactID: contactID, IsEditing: true, Username: username}
}

// StopEditing releases a contact's claim unconditionally, regardless of
// who holds it. The returned event carries the evicted holder's username,
// or an empty username if the contact was already unclaimed.
func (t *Tracker) StopEditing(contactID string) Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	claim := t.claims[contactID]
	delete(t.claims, contactID)

	return Event{ContactID: contactID, IsEditing: false, Username: claim.Username}
}

// Disconnect reaps every claim held by a connection and returns one event
// per released contact, ordered by contact ID for deterministic delivery.
func (t *Tracker) Disconnect(connID string) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	var events []Event
	for contactID, claim := range t.claims {
		if claim.ConnID == connID {
			delete(t.claims, contactID)
			events = append(events, Event{
				ContactID: contactID,
				IsEditing: false,
				Username:  claim.Username,
			})
		}
	}

	slices.SortFunc(events, func(a, b Event) int {
		return strings.Compare(a.ContactID, b.ContactID)
	})

	return events
}

// Snapshot returns a copy of the current claim table, used to bring a
// newly connected client up to date.
func (t *Tracker) Snapshot() map[string]Claim {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := make(map[string]Claim, len(t.claims))
	for contactID, claim := range t.claims {
		snapshot[contactID] = claim
	}
	return snapshot
}
