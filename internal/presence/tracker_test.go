package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_StartStop(t *testing.T) {
	tracker := NewTracker()

	ev := tracker.StartEditing("con-1", "conn-a", "alice")
	assert.Equal(t, Event{ContactID: "con-1", IsEditing: true, Username: "alice"}, ev)

	snapshot := tracker.Snapshot()
	assert.Equal(t, Claim{ConnID: "conn-a", Username: "alice"}, snapshot["con-1"])

	ev = tracker.StopEditing("con-1")
	assert.Equal(t, Event{ContactID: "con-1", IsEditing: false, Username: "alice"}, ev)
	assert.Empty(t, tracker.Snapshot())
}

func TestTracker_StopUnclaimed(t *testing.T) {
	tracker := NewTracker()

	// Stopping an unclaimed contact still produces a transition event,
	// with no username to report.
	ev := tracker.StopEditing("con-9")
	assert.Equal(t, Event{ContactID: "con-9", IsEditing: false, Username: ""}, ev)
}

func TestTracker_LastWriterWins(t *testing.T) {
	tracker := NewTracker()

	first := tracker.StartEditing("con-1", "conn-a", "alice")
	second := tracker.StartEditing("con-1", "conn-b", "bob")

	// Both transitions produced an event, in claim order.
	assert.Equal(t, "alice", first.Username)
	assert.Equal(t, "bob", second.Username)

	// Only the second claim survives.
	snapshot := tracker.Snapshot()
	assert.Len(t, snapshot, 1)
	assert.Equal(t, Claim{ConnID: "conn-b", Username: "bob"}, snapshot["con-1"])

	// The stop reports the surviving holder.
	ev := tracker.StopEditing("con-1")
	assert.Equal(t, "bob", ev.Username)
}

func TestTracker_Disconnect(t *testing.T) {
	tracker := NewTracker()

	tracker.StartEditing("con-2", "conn-a", "alice")
	tracker.StartEditing("con-1", "conn-a", "alice")
	tracker.StartEditing("con-3", "conn-b", "bob")

	events := tracker.Disconnect("conn-a")
	assert.Equal(t, []Event{
		{ContactID: "con-1", IsEditing: false, Username: "alice"},
		{ContactID: "con-2", IsEditing: false, Username: "alice"},
	}, events, "one event per reaped claim, ordered by contact ID")

	// Bob's claim is untouched.
	snapshot := tracker.Snapshot()
	assert.Len(t, snapshot, 1)
	assert.Equal(t, "bob", snapshot["con-3"].Username)

	// Disconnecting again reaps nothing.
	assert.Empty(t, tracker.Disconnect("conn-a"))
}

func TestTracker_DisconnectDoesNotReapOverwrittenClaims(t *testing.T) {
	tracker := NewTracker()

	tracker.StartEditing("con-1", "conn-a", "alice")
	tracker.StartEditing("con-1", "conn-b", "bob")

	// conn-a lost the claim to conn-b, so its disconnect releases nothing.
	assert.Empty(t, tracker.Disconnect("conn-a"))
	assert.Equal(t, "bob", tracker.Snapshot()["con-1"].Username)
}

func TestTracker_SnapshotIsACopy(t *testing.T) {
	tracker := NewTracker()
	tracker.StartEditing("con-1", "conn-a", "alice")

	snapshot := tracker.Snapshot()
	delete(snapshot, "con-1")

	assert.Len(t, tracker.Snapshot(), 1, "mutating a snapshot must not affect the tracker")
}
