// Package tracker implements the activity reconciliation engine: it drives
// the polling cycle against the kill-event feed, maintains the participant
// ledger and kill lifecycle, and keeps the persisted snapshot in sync after
// every mutation.
package tracker

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulbellamy/ratecounter"

	"loottracker/shared/activity"
	"loottracker/shared/albion"
	"loottracker/shared/monitoring"
	"loottracker/shared/prices"
)

var (
	ErrNoConfig           = errors.New("tracker: no guild configured")
	ErrNoActivity         = errors.New("tracker: no active activity")
	ErrActivityActive     = errors.New("tracker: an activity is already active")
	ErrUnknownKill        = errors.New("tracker: unknown pending kill")
	ErrUnknownParticipant = errors.New("tracker: unknown participant")
)

// EventSource fetches pages of kill events, newest first. The source owns
// rate limiting; the engine only sees added latency.
type EventSource interface {
	FetchEvents(ctx context.Context, limit, offset int) ([]albion.KillEvent, error)
	FetchGuildEvents(ctx context.Context, guildID string, limit, offset int) ([]albion.KillEvent, error)
}

// PriceSource resolves best-effort market prices. Implementations must
// degrade to not-found results rather than blocking confirmation.
type PriceSource interface {
	ItemPrices(ctx context.Context, items []activity.LootItem, city string) (map[prices.Key]activity.ItemPrice, error)
}

// Store is the persistence collaborator: whole-value blob load/save/remove.
type Store interface {
	Load(key string, v any) (bool, error)
	Save(key string, v any) error
	Remove(key string) error
}

// Publisher fans confirmed kills out to downstream consumers. Optional and
// best-effort.
type Publisher interface {
	PublishConfirmedKill(ctx context.Context, act *activity.Activity, kill *activity.KillRecord) error
}

// Alerter surfaces non-fatal operator notices. All methods must be safe to
// call from the poll goroutine and must not block it for long.
type Alerter interface {
	GapDetected(gap, lastProcessed, oldestFetched int64)
	PageSaturated(count int)
	KillsDetected(added int, initial bool)
	PollFailed(err error)
}

type noopAlerter struct{}

func (noopAlerter) GapDetected(int64, int64, int64) {}
func (noopAlerter) PageSaturated(int)               {}
func (noopAlerter) KillsDetected(int, bool)         {}
func (noopAlerter) PollFailed(error)                {}

// Storage keys the engine persists under. The whole value under a key is
// replaced on every save.
const (
	keyConfig          = "guild_config"
	keyCurrentActivity = "current_activity"
	keyHistory         = "activity_history"
)

// Options wires an Engine's collaborators. Source, Prices and Store are
// required; the rest default to no-ops.
type Options struct {
	Source    EventSource
	Prices    PriceSource
	Store     Store
	Publisher Publisher
	Alerter   Alerter
	Clock     func() time.Time
}

// Engine is the reconciliation engine. All exported methods are safe for
// concurrent use; polling itself is additionally guarded so at most one
// cycle is in flight and a cycle arriving while one runs is dropped.
type Engine struct {
	source    EventSource
	prices    PriceSource
	store     Store
	publisher Publisher
	alerter   Alerter
	clock     func() time.Time

	killRate *ratecounter.RateCounter

	mu      sync.Mutex
	polling atomic.Bool

	config  *activity.GuildConfig
	current *activity.Activity

	// cursor is the highest fully processed external event id. It survives
	// restarts via the activity snapshot.
	cursor int64

	otherKills       []albion.KillEvent
	otherKillsOffset int
}

func New(opts Options) *Engine {
	alerter := opts.Alerter
	if alerter == nil {
		alerter = noopAlerter{}
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		source:    opts.Source,
		prices:    opts.Prices,
		store:     opts.Store,
		publisher: opts.Publisher,
		alerter:   alerter,
		clock:     clock,
		killRate:  ratecounter.NewRateCounter(time.Hour),
	}
}

// Restore loads persisted state. If an active activity snapshot is found it
// is cleaned up (stale and duplicate pending kills removed) and the cursor
// is restored; the caller should resume polling without an initial full
// load. Reports whether an active activity was resumed.
func (e *Engine) Restore() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var config activity.GuildConfig
	found, err := e.store.Load(keyConfig, &config)
	if err != nil {
		return false, err
	}
	if found {
		e.config = &config
	}

	var current activity.Activity
	found, err = e.store.Load(keyCurrentActivity, &current)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	e.current = &current

	duplicates, old := e.current.RemoveStalePendingKills()
	if duplicates > 0 || old > 0 {
		log.Printf("Cleanup removed %d duplicate and %d stale pending kills", duplicates, old)
		if err := e.saveCurrentLocked(); err != nil {
			log.Printf("Error saving cleaned activity: %s", err)
		}
	}

	e.cursor = e.current.LastEventID
	if e.current.Active() {
		log.Printf("Resume activity %q from event id %d", e.current.Name, e.cursor)
		return true, nil
	}
	return false, nil
}

// SetGuildConfig replaces the guild configuration.
func (e *Engine) SetGuildConfig(config *activity.GuildConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config = config
	return e.store.Save(keyConfig, config)
}

func (e *Engine) GuildConfig() *activity.GuildConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// AddGuildMember adds a name to the configured roster. Idempotent.
func (e *Engine) AddGuildMember(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.config == nil {
		return ErrNoConfig
	}
	if !e.config.AddMember(name, e.clock()) {
		return nil
	}
	return e.store.Save(keyConfig, e.config)
}

// RemoveGuildMember drops a name from the configured roster.
func (e *Engine) RemoveGuildMember(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.config == nil {
		return ErrNoConfig
	}
	if !e.config.RemoveMember(name) {
		return ErrUnknownParticipant
	}
	return e.store.Save(keyConfig, e.config)
}

// SetCity changes the valuation locale of the running activity. Prices
// already resolved keep their original city; only future lookups move.
func (e *Engine) SetCity(city string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil || !e.current.Active() {
		return ErrNoActivity
	}
	e.current.SetCity(city)
	return e.saveCurrentLocked()
}

// StartActivity creates and persists a new active session. Exactly one
// activity may be active at a time.
func (e *Engine) StartActivity(name, city string, participants []string) (*activity.Activity, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.config == nil {
		return nil, ErrNoConfig
	}
	if e.current != nil && e.current.Active() {
		return nil, ErrActivityActive
	}

	now := e.clock()
	act := activity.New(name, city, now)
	for _, p := range participants {
		act.AddParticipant(p, now)
	}

	e.current = act
	// A fresh activity starts with no cursor so the first poll treats the
	// whole available window as unprocessed.
	e.cursor = 0

	if err := e.saveCurrentLocked(); err != nil {
		return nil, err
	}
	return act.Clone(), nil
}

// EndActivity completes the current session, appends it to the history list
// (most recent first) and clears the current-activity key.
func (e *Engine) EndActivity() (*activity.Activity, error) {
	return e.finishActivity((*activity.Activity).Complete)
}

// CancelActivity cancels the current session and archives it like EndActivity.
func (e *Engine) CancelActivity() (*activity.Activity, error) {
	return e.finishActivity((*activity.Activity).Cancel)
}

func (e *Engine) finishActivity(terminate func(*activity.Activity, time.Time) bool) (*activity.Activity, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil || !e.current.Active() {
		return nil, ErrNoActivity
	}

	terminate(e.current, e.clock())

	var history []*activity.Activity
	if _, err := e.store.Load(keyHistory, &history); err != nil {
		log.Printf("Error loading history: %s", err)
	}
	history = append([]*activity.Activity{e.current}, history...)
	if err := e.store.Save(keyHistory, history); err != nil {
		return nil, err
	}
	if err := e.store.Remove(keyCurrentActivity); err != nil {
		return nil, err
	}

	finished := e.current
	e.current = nil
	return finished, nil
}

// CurrentActivity returns a snapshot of the current session, or nil.
func (e *Engine) CurrentActivity() *activity.Activity {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return nil
	}
	return e.current.Clone()
}

// Active reports whether a session is currently active.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil && e.current.Active()
}

// Cursor returns the engine's event-id high-water mark.
func (e *Engine) Cursor() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

func (e *Engine) AddParticipant(name string) error {
	return e.mutateActivity(func(act *activity.Activity, now time.Time) bool {
		return act.AddParticipant(name, now)
	})
}

func (e *Engine) RemoveParticipant(name string) error {
	return e.mutateActivity(func(act *activity.Activity, now time.Time) bool {
		return act.RemoveParticipant(name, now)
	})
}

func (e *Engine) PauseParticipant(name string) error {
	return e.mutateActivity(func(act *activity.Activity, now time.Time) bool {
		return act.PauseParticipant(name, now)
	})
}

func (e *Engine) ResumeParticipant(name string) error {
	return e.mutateActivity(func(act *activity.Activity, now time.Time) bool {
		return act.ResumeParticipant(name, now)
	})
}

func (e *Engine) mutateActivity(mutate func(*activity.Activity, time.Time) bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil || !e.current.Active() {
		return ErrNoActivity
	}
	if !mutate(e.current, e.clock()) {
		return ErrUnknownParticipant
	}
	return e.saveCurrentLocked()
}

// ParticipantReport is the derived view of one participant's contribution.
type ParticipantReport struct {
	Name                 string                    `json:"name"`
	ActiveTime           time.Duration             `json:"activeTime"`
	ParticipationPercent float64                   `json:"participationPercent"`
	Paused               bool                      `json:"paused"`
	Left                 bool                      `json:"left"`
	Stats                activity.ParticipantStats `json:"stats"`
}

// ParticipantReports computes active time and participation share for every
// participant, in join order.
func (e *Engine) ParticipantReports() ([]ParticipantReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil, ErrNoActivity
	}

	now := e.clock()
	reports := make([]ParticipantReport, 0, len(e.current.Participants))
	for _, p := range e.current.Participants {
		reports = append(reports, ParticipantReport{
			Name:                 p.Name,
			ActiveTime:           p.ActiveTime(now),
			ParticipationPercent: e.current.ParticipationPercent(p.Name, now),
			Paused:               p.IsPaused,
			Left:                 p.LeftAt != nil,
			Stats:                p.Stats,
		})
	}
	return reports, nil
}

// ConfirmKill adjudicates a pending kill. selection holds indices into the
// kill's detected inventory; a nil selection confirms everything (the
// one-click path). Selected loot is priced best-effort before the ledger
// and chest are updated; valuation failure never blocks confirmation.
func (e *Engine) ConfirmKill(ctx context.Context, eventID int64, selection []int) (*activity.KillRecord, error) {
	e.mu.Lock()
	if e.current == nil || !e.current.Active() {
		e.mu.Unlock()
		return nil, ErrNoActivity
	}

	var pending *activity.KillRecord
	for _, k := range e.current.PendingKills {
		if k.EventID == eventID {
			pending = k
			break
		}
	}
	if pending == nil {
		e.mu.Unlock()
		return nil, ErrUnknownKill
	}

	loot := selectLoot(pending.VictimInventory, selection)
	city := e.current.City
	e.mu.Unlock()

	// Price outside the lock: the lookup suspends on the adapter's rate
	// limiter and must not stall other operations.
	e.priceLoot(ctx, loot, city)

	e.mu.Lock()
	defer e.mu.Unlock()

	// The activity may have ended while prices were resolving.
	if e.current == nil || !e.current.Active() {
		return nil, ErrNoActivity
	}

	confirmed := e.current.ConfirmKill(eventID, loot, e.clock())
	if confirmed == nil {
		return nil, ErrUnknownKill
	}
	e.killRate.Incr(1)

	if err := e.saveCurrentLocked(); err != nil {
		log.Printf("Error saving activity after confirm: %s", err)
	}

	if e.publisher != nil {
		if err := e.publisher.PublishConfirmedKill(ctx, e.current, confirmed); err != nil {
			log.Printf("Error publishing confirmed kill %d: %s", eventID, err)
		}
	}

	e.updateGaugesLocked()
	return confirmed, nil
}

// DiscardKill drops a pending kill with no ledger or chest effect.
func (e *Engine) DiscardKill(eventID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil || !e.current.Active() {
		return ErrNoActivity
	}
	if !e.current.DiscardKill(eventID) {
		return ErrUnknownKill
	}
	if err := e.saveCurrentLocked(); err != nil {
		log.Printf("Error saving activity after discard: %s", err)
	}
	e.updateGaugesLocked()
	return nil
}

// KillRate returns confirmed kills over the last hour.
func (e *Engine) KillRate() int64 {
	return e.killRate.Rate()
}

// TickDuration refreshes the duration gauge between polls so dashboards see
// a live clock rather than one that jumps every cycle.
func (e *Engine) TickDuration() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil || !e.current.Active() {
		return
	}
	monitoring.ActivityDuration.Set(e.current.Duration(e.clock()).Seconds())
}

func selectLoot(inventory []activity.LootItem, selection []int) []activity.LootItem {
	if selection == nil {
		loot := make([]activity.LootItem, len(inventory))
		copy(loot, inventory)
		return loot
	}
	loot := make([]activity.LootItem, 0, len(selection))
	for _, idx := range selection {
		if idx >= 0 && idx < len(inventory) {
			loot = append(loot, inventory[idx])
		}
	}
	return loot
}

func (e *Engine) priceLoot(ctx context.Context, loot []activity.LootItem, city string) {
	if e.prices == nil || len(loot) == 0 {
		return
	}

	start := time.Now()
	priceMap, err := e.prices.ItemPrices(ctx, loot, city)
	status := "ok"
	if err != nil {
		status = "error"
		log.Printf("Error fetching prices, confirming with zero values: %s", err)
	}
	monitoring.PriceLookupTime.WithLabelValues(status).Observe(float64(time.Since(start).Milliseconds()))

	now := e.clock()
	for i := range loot {
		key := prices.Key{ItemType: loot[i].Type, Quality: loot[i].Quality}
		if info, ok := priceMap[key]; ok && info.Found {
			price := info
			loot[i].Price = &price
		} else {
			loot[i].Price = &activity.ItemPrice{City: city, LastUpdate: now, Found: false}
		}
	}
}

func (e *Engine) saveCurrentLocked() error {
	if e.current == nil {
		return nil
	}
	return e.store.Save(keyCurrentActivity, e.current)
}

func (e *Engine) updateGaugesLocked() {
	if e.current == nil {
		return
	}
	monitoring.PendingKills.Set(float64(len(e.current.PendingKills)))
	monitoring.ConfirmedKills.Set(float64(len(e.current.Kills)))
	monitoring.ChestValue.Set(float64(e.current.LootChest.TotalValue))
}

// History returns the archived sessions, most recent first.
func (e *Engine) History() ([]*activity.Activity, error) {
	var history []*activity.Activity
	if _, err := e.store.Load(keyHistory, &history); err != nil {
		return nil, err
	}
	return history, nil
}
