package albion

import (
	"testing"
	"time"
)

func event(id int64, killer string, ts time.Time, participants ...string) KillEvent {
	e := KillEvent{
		EventID:   id,
		TimeStamp: ts,
		Killer:    EventPlayer{Name: killer},
	}
	for _, name := range participants {
		e.Participants = append(e.Participants, EventParticipant{Name: name})
	}
	return e
}

func TestFilterActivityKillsSkipsProcessedEvents(t *testing.T) {
	start := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	events := []KillEvent{
		event(12, "Alice", start.Add(3*time.Minute)),
		event(10, "Alice", start.Add(2*time.Minute)),
		event(9, "Alice", start.Add(time.Minute)),
	}

	got := FilterActivityKills(events, []string{"Alice"}, 10, false, "", start)
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].EventID != 12 {
		t.Fatalf("expected event 12, got %d", got[0].EventID)
	}
}

func TestFilterActivityKillsIncludeAllRelaxesCursorOnly(t *testing.T) {
	start := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	events := []KillEvent{
		event(12, "Alice", start.Add(3*time.Minute)),
		event(10, "Alice", start.Add(2*time.Minute)),
		event(9, "Alice", start.Add(-time.Minute)), // before the activity started
	}

	got := FilterActivityKills(events, []string{"Alice"}, 10, true, "", start)
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].EventID != 12 || got[1].EventID != 10 {
		t.Fatalf("expected events [12 10], got [%d %d]", got[0].EventID, got[1].EventID)
	}
}

func TestFilterActivityKillsMatchesKillerOrParticipant(t *testing.T) {
	start := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	events := []KillEvent{
		event(5, "Alice", start.Add(time.Minute)),
		event(4, "Stranger", start.Add(time.Minute), "Bob"),
		event(3, "Stranger", start.Add(time.Minute), "Nobody"),
	}

	got := FilterActivityKills(events, []string{"Alice", "Bob"}, 0, false, "", start)
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
}

func TestFilterActivityKillsGuildNarrowsMatch(t *testing.T) {
	start := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	matching := event(5, "Alice", start.Add(time.Minute))
	matching.Killer.GuildName = "BLUE"

	wrongGuild := event(4, "Bob", start.Add(time.Minute))
	wrongGuild.Killer.GuildName = "RED"

	// Guild tag alone is not enough: the killer must also be a participant.
	guildOnly := event(3, "Stranger", start.Add(time.Minute))
	guildOnly.Killer.GuildName = "BLUE"

	got := FilterActivityKills([]KillEvent{matching, wrongGuild, guildOnly}, []string{"Alice", "Bob"}, 0, false, "BLUE", start)
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].EventID != 5 {
		t.Fatalf("expected event 5, got %d", got[0].EventID)
	}
}

func TestFilterActivityKillsNoParticipants(t *testing.T) {
	events := []KillEvent{event(1, "Alice", time.Time{})}
	if got := FilterActivityKills(events, nil, 0, true, "", time.Time{}); got != nil {
		t.Fatalf("expected nil, got %d events", len(got))
	}
}

func TestFilterActivityKillsPreservesOrder(t *testing.T) {
	start := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	events := []KillEvent{
		event(30, "Alice", start.Add(3*time.Minute)),
		event(20, "Alice", start.Add(2*time.Minute)),
		event(10, "Alice", start.Add(time.Minute)),
	}

	got := FilterActivityKills(events, []string{"Alice"}, 0, false, "", start)
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	for i, want := range []int64{30, 20, 10} {
		if got[i].EventID != want {
			t.Fatalf("position %d: expected %d, got %d", i, want, got[i].EventID)
		}
	}
}

func TestFilterOtherGuildKills(t *testing.T) {
	start := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	events := []KillEvent{
		event(6, "Carol", start.Add(time.Minute)),  // during the activity, excluded
		event(5, "Carol", start.Add(-time.Minute)), // guild member, not a participant
		event(4, "Alice", start.Add(-time.Minute)), // activity participant, excluded
		event(3, "Stranger", start.Add(-time.Minute)),
	}

	got := FilterOtherGuildKills(events, []string{"Alice", "Bob", "Carol"}, []string{"Alice", "Bob"}, start)
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].EventID != 5 {
		t.Fatalf("expected event 5, got %d", got[0].EventID)
	}
}
