package activity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// DefaultCity is the valuation locale used when none is chosen.
const DefaultCity = "Caerleon"

// Activity is the root aggregate for one tracked session. All mutations
// other than Complete and Cancel require StatusActive; violating calls are
// no-ops that report failure rather than panicking, so a poll cycle can
// never be aborted by a stale mutation.
type Activity struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	StartTime    time.Time      `json:"startTime"`
	EndTime      *time.Time     `json:"endTime,omitempty"`
	Status       Status         `json:"status"`
	City         string         `json:"city"`
	Participants []*Participant `json:"participants"`
	Kills        []*KillRecord  `json:"kills"`
	PendingKills []*KillRecord  `json:"pendingKills"`

	// LastEventID is the high-water mark of fully processed external event
	// ids. Monotonically non-decreasing while the activity is active.
	LastEventID int64 `json:"lastEventId"`

	LootChest LootChest `json:"lootChest"`
}

func New(name, city string, now time.Time) *Activity {
	if city == "" {
		city = DefaultCity
	}
	return &Activity{
		ID:        "activity_" + uuid.NewString(),
		Name:      name,
		StartTime: now,
		Status:    StatusActive,
		City:      city,
		LootChest: LootChest{
			Name: "Loot Chest",
			City: city,
		},
	}
}

func (a *Activity) Active() bool {
	return a.Status == StatusActive
}

// Participant returns the membership record for name, or nil.
func (a *Activity) Participant(name string) *Participant {
	for _, p := range a.Participants {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// ActiveParticipantNames lists participants who have not left, in join
// order. Paused participants are still listed: they remain in the roster
// for relevance filtering, they just don't receive kill credit.
func (a *Activity) ActiveParticipantNames() []string {
	var names []string
	for _, p := range a.Participants {
		if p.LeftAt == nil {
			names = append(names, p.Name)
		}
	}
	return names
}

// AddParticipant registers a member, keyed by name. Reports false if the
// activity is not active or the name is already present.
func (a *Activity) AddParticipant(name string, now time.Time) bool {
	if !a.Active() || a.Participant(name) != nil {
		return false
	}
	a.Participants = append(a.Participants, &Participant{
		Name:     name,
		JoinedAt: now,
	})
	return true
}

// RemoveParticipant marks the member as having left and freezes their
// accumulated active time. The record is retained, never deleted.
func (a *Activity) RemoveParticipant(name string, now time.Time) bool {
	p := a.Participant(name)
	if !a.Active() || p == nil || p.LeftAt != nil {
		return false
	}
	p.leave(now)
	return true
}

func (a *Activity) PauseParticipant(name string, now time.Time) bool {
	p := a.Participant(name)
	if !a.Active() || p == nil || p.LeftAt != nil || p.IsPaused {
		return false
	}
	p.pause(now)
	return true
}

func (a *Activity) ResumeParticipant(name string, now time.Time) bool {
	p := a.Participant(name)
	if !a.Active() || p == nil || p.LeftAt != nil || !p.IsPaused {
		return false
	}
	p.resume(now)
	return true
}

// ActiveTimeOf returns the participant's accrued active time, or zero for an
// unknown name.
func (a *Activity) ActiveTimeOf(name string, now time.Time) time.Duration {
	p := a.Participant(name)
	if p == nil {
		return 0
	}
	return p.ActiveTime(now)
}

// ParticipationPercent is active time over activity duration, 0-100.
func (a *Activity) ParticipationPercent(name string, now time.Time) float64 {
	duration := a.Duration(now)
	if duration <= 0 {
		return 0
	}
	return float64(a.ActiveTimeOf(name, now)) / float64(duration) * 100
}

// hasKill reports whether eventID exists in pending or confirmed kills.
// This is the sole deduplication gate.
func (a *Activity) hasKill(eventID int64) bool {
	for _, k := range a.PendingKills {
		if k.EventID == eventID {
			return true
		}
	}
	for _, k := range a.Kills {
		if k.EventID == eventID {
			return true
		}
	}
	return false
}

// AddPendingKill records a detected kill awaiting adjudication. Reports
// false on duplicate eventID or inactive activity.
func (a *Activity) AddPendingKill(kill *KillRecord) bool {
	if !a.Active() || a.hasKill(kill.EventID) {
		return false
	}
	kill.Status = KillPending
	a.PendingKills = append(a.PendingKills, kill)
	return true
}

// RemoveStalePendingKills drops pending records with duplicate event ids
// (first occurrence wins) and pending records predating the activity start.
// Run once on session resume to repair corrupted persisted state.
func (a *Activity) RemoveStalePendingKills() (duplicates, old int) {
	seen := make(map[int64]bool, len(a.PendingKills))
	kept := a.PendingKills[:0]
	for _, kill := range a.PendingKills {
		if seen[kill.EventID] {
			duplicates++
			continue
		}
		if !kill.Timestamp.IsZero() && kill.Timestamp.Before(a.StartTime) {
			old++
			continue
		}
		seen[kill.EventID] = true
		kept = append(kept, kill)
	}
	a.PendingKills = kept
	return duplicates, old
}

// ConfirmKill moves a pending kill to confirmed, sets its confirmed loot,
// applies stat credit and merges the loot into the chest. Returns nil if
// eventID is not pending or the activity is not active.
func (a *Activity) ConfirmKill(eventID int64, confirmedLoot []LootItem, now time.Time) *KillRecord {
	if !a.Active() {
		return nil
	}
	for i, kill := range a.PendingKills {
		if kill.EventID != eventID {
			continue
		}
		kill.LootConfirmed = confirmedLoot
		kill.Status = KillConfirmed
		a.Kills = append(a.Kills, kill)
		a.PendingKills = append(a.PendingKills[:i], a.PendingKills[i+1:]...)

		a.applyKillStats(kill)
		a.LootChest.Add(confirmedLoot, now)
		return kill
	}
	return nil
}

// DiscardKill removes a pending kill entirely; no ledger or chest effect.
func (a *Activity) DiscardKill(eventID int64) bool {
	if !a.Active() {
		return false
	}
	for i, kill := range a.PendingKills {
		if kill.EventID == eventID {
			a.PendingKills = append(a.PendingKills[:i], a.PendingKills[i+1:]...)
			return true
		}
	}
	return false
}

// applyKillStats credits a confirmed kill to the ledger. The killer only
// receives kill credit while still active; contributors who have not left
// always receive damage and healing, and assists unless they are the killer.
// A tracked victim takes a death.
func (a *Activity) applyKillStats(kill *KillRecord) {
	if killer := a.Participant(kill.Killer.Name); killer != nil && killer.Active() {
		killer.Stats.Kills++
		killer.Stats.KillFame += kill.Killer.KillFame
	}

	for _, kp := range kill.Participants {
		p := a.Participant(kp.Name)
		if p == nil || p.LeftAt != nil {
			continue
		}
		if kp.Name != kill.Killer.Name {
			p.Stats.Assists++
		}
		p.Stats.DamageDone += kp.DamageDone
		p.Stats.HealingDone += kp.HealingDone
	}

	if victim := a.Participant(kill.Victim.Name); victim != nil {
		victim.Stats.Deaths++
	}
}

// Duration is elapsed wall-clock time from start to end (or now).
func (a *Activity) Duration(now time.Time) time.Duration {
	end := now
	if a.EndTime != nil {
		end = *a.EndTime
	}
	return end.Sub(a.StartTime)
}

// Summary is the operator-facing rollup of the session.
type Summary struct {
	TotalKills        int           `json:"totalKills"`
	TotalPendingKills int           `json:"totalPendingKills"`
	TotalFame         int64         `json:"totalFame"`
	TotalLoot         int           `json:"totalLoot"`
	Duration          time.Duration `json:"duration"`
	Chest             ChestSummary  `json:"chest"`
}

func (a *Activity) Summarize(now time.Time) Summary {
	s := Summary{
		TotalKills:        len(a.Kills),
		TotalPendingKills: len(a.PendingKills),
		Duration:          a.Duration(now),
		Chest:             a.LootChest.Summary(),
	}
	for _, kill := range a.Kills {
		s.TotalFame += kill.Victim.DeathFame
		s.TotalLoot += len(kill.LootConfirmed)
	}
	return s
}

func (a *Activity) Complete(now time.Time) bool {
	if !a.Active() {
		return false
	}
	a.Status = StatusCompleted
	at := now
	a.EndTime = &at
	return true
}

func (a *Activity) Cancel(now time.Time) bool {
	if !a.Active() {
		return false
	}
	a.Status = StatusCancelled
	at := now
	a.EndTime = &at
	return true
}

func (a *Activity) SetCity(city string) {
	a.City = city
	a.LootChest.City = city
}

// Clone deep-copies the aggregate so snapshots handed to other goroutines
// cannot observe later mutations.
func (a *Activity) Clone() *Activity {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil
	}
	var clone Activity
	if err := json.Unmarshal(raw, &clone); err != nil {
		return nil
	}
	return &clone
}
