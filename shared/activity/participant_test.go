package activity

import (
	"testing"
	"time"
)

var base = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

func TestActiveTimeExcludesClosedPause(t *testing.T) {
	a := New("test", "", base)
	a.AddParticipant("Alice", base)

	a.PauseParticipant("Alice", base.Add(10*time.Second))
	a.ResumeParticipant("Alice", base.Add(80*time.Second))

	got := a.ActiveTimeOf("Alice", base.Add(100*time.Second))
	if got != 30*time.Second {
		t.Fatalf("expected 30s active, got %s", got)
	}
}

func TestActiveTimeExcludesOpenPause(t *testing.T) {
	a := New("test", "", base)
	a.AddParticipant("Alice", base)

	a.PauseParticipant("Alice", base.Add(40*time.Second))

	got := a.ActiveTimeOf("Alice", base.Add(100*time.Second))
	if got != 40*time.Second {
		t.Fatalf("expected 40s active, got %s", got)
	}
}

func TestActiveTimeFreezesAtLeave(t *testing.T) {
	a := New("test", "", base)
	a.AddParticipant("Alice", base)
	a.RemoveParticipant("Alice", base.Add(time.Minute))

	got := a.ActiveTimeOf("Alice", base.Add(time.Hour))
	if got != time.Minute {
		t.Fatalf("expected 1m active, got %s", got)
	}
	if frozen := a.Participant("Alice").TotalActiveTime; frozen != time.Minute {
		t.Fatalf("expected frozen total 1m, got %s", frozen)
	}
}

func TestLeaveClosesOpenPause(t *testing.T) {
	a := New("test", "", base)
	a.AddParticipant("Alice", base)

	a.PauseParticipant("Alice", base.Add(30*time.Second))
	a.RemoveParticipant("Alice", base.Add(90*time.Second))

	p := a.Participant("Alice")
	if p.IsPaused {
		t.Fatal("expected pause closed at leave")
	}
	if len(p.PauseHistory) != 1 {
		t.Fatalf("expected 1 closed pause, got %d", len(p.PauseHistory))
	}
	if got := a.ActiveTimeOf("Alice", base.Add(time.Hour)); got != 30*time.Second {
		t.Fatalf("expected 30s active, got %s", got)
	}
}

func TestLeaveIsTerminal(t *testing.T) {
	a := New("test", "", base)
	a.AddParticipant("Alice", base)
	a.RemoveParticipant("Alice", base.Add(time.Minute))

	if a.RemoveParticipant("Alice", base.Add(2*time.Minute)) {
		t.Fatal("expected second remove to fail")
	}
	if a.PauseParticipant("Alice", base.Add(2*time.Minute)) {
		t.Fatal("expected pause after leave to fail")
	}
	if a.ResumeParticipant("Alice", base.Add(2*time.Minute)) {
		t.Fatal("expected resume after leave to fail")
	}
}

func TestPauseAndResumeAreIdempotentGuards(t *testing.T) {
	a := New("test", "", base)
	a.AddParticipant("Alice", base)

	if a.ResumeParticipant("Alice", base.Add(time.Second)) {
		t.Fatal("expected resume while not paused to fail")
	}
	if !a.PauseParticipant("Alice", base.Add(time.Second)) {
		t.Fatal("expected pause to succeed")
	}
	if a.PauseParticipant("Alice", base.Add(2*time.Second)) {
		t.Fatal("expected second pause to fail")
	}
}

func TestDuplicateParticipantRejected(t *testing.T) {
	a := New("test", "", base)
	if !a.AddParticipant("Alice", base) {
		t.Fatal("expected first add to succeed")
	}
	if a.AddParticipant("Alice", base.Add(time.Second)) {
		t.Fatal("expected duplicate add to fail")
	}
}

func TestActiveParticipantNamesIncludesPausedExcludesLeft(t *testing.T) {
	a := New("test", "", base)
	a.AddParticipant("Alice", base)
	a.AddParticipant("Bob", base)
	a.AddParticipant("Carol", base)

	a.PauseParticipant("Bob", base.Add(time.Second))
	a.RemoveParticipant("Carol", base.Add(time.Second))

	names := a.ActiveParticipantNames()
	if len(names) != 2 || names[0] != "Alice" || names[1] != "Bob" {
		t.Fatalf("expected [Alice Bob], got %v", names)
	}
}

func TestParticipationPercent(t *testing.T) {
	a := New("test", "", base)
	a.AddParticipant("Alice", base)
	a.PauseParticipant("Alice", base.Add(30*time.Second))
	a.ResumeParticipant("Alice", base.Add(60*time.Second))

	got := a.ParticipationPercent("Alice", base.Add(100*time.Second))
	if got != 70 {
		t.Fatalf("expected 70%%, got %g", got)
	}
}
