package tracker

import (
	"context"
	"runtime"
	"time"

	"loottracker/shared/activity"
	"loottracker/shared/albion"
	"loottracker/shared/export"
)

// Export serializes the full tracker state: config, current activity and
// history.
func (e *Engine) Export() ([]byte, error) {
	history, err := e.History()
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return export.Marshal(e.config, e.current, history, e.clock())
}

// ExportActivity serializes only the current activity, for sharing a single
// session without the rest of the instance's state.
func (e *Engine) ExportActivity() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil, ErrNoActivity
	}
	return export.Marshal(nil, e.current, nil, e.clock())
}

// Import restores state from an envelope. Sections missing from the
// envelope leave the corresponding state untouched; an imported current
// activity replaces the running one, so callers should refuse imports while
// a session is active unless the operator explicitly intends the overwrite.
func (e *Engine) Import(data []byte) error {
	env, err := export.Parse(data)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if env.Config != nil {
		e.config = env.Config
		if err := e.store.Save(keyConfig, env.Config); err != nil {
			return err
		}
	}
	if env.History != nil {
		if err := e.store.Save(keyHistory, env.History); err != nil {
			return err
		}
	}
	if env.CurrentActivity != nil {
		e.current = env.CurrentActivity
		e.current.RemoveStalePendingKills()
		e.cursor = e.current.LastEventID
		if err := e.saveCurrentLocked(); err != nil {
			return err
		}
	}
	return nil
}

// Diagnostics is a point-in-time operational snapshot for the status
// endpoint.
type Diagnostics struct {
	Uptime          time.Duration     `json:"uptime"`
	Goroutines      int               `json:"goroutines"`
	PollInFlight    bool              `json:"pollInFlight"`
	Cursor          int64             `json:"cursor"`
	KillsPerHour    int64             `json:"killsPerHour"`
	GuildConfigured bool              `json:"guildConfigured"`
	Activity        *activity.Summary `json:"activity,omitempty"`
	FeedWindow      *FeedWindow       `json:"feedWindow,omitempty"`
	FeedError       string            `json:"feedError,omitempty"`
}

// FeedWindow is a live snapshot of the head of the event feed, with each
// event classified against the current cursor and participant set.
type FeedWindow struct {
	MinEventID int64        `json:"minEventId"`
	MaxEventID int64        `json:"maxEventId"`
	Gap        int64        `json:"gap"`
	Events     []EventClass `json:"events"`
}

// EventClass tags one feed event: processed means the cursor has moved past
// it, relevant means it would survive the activity filter.
type EventClass struct {
	EventID   int64 `json:"eventId"`
	Processed bool  `json:"processed"`
	Relevant  bool  `json:"relevant"`
}

var startTime = time.Now()

// Diagnose assembles the operational snapshot. While an activity is running
// it also fetches one live feed page and classifies every event on it, so an
// operator can see at a glance what the tracker is skipping and why. The
// fetch happens outside the engine lock and never moves the cursor.
func (e *Engine) Diagnose(ctx context.Context) Diagnostics {
	e.mu.Lock()
	diag := Diagnostics{
		Uptime:          time.Since(startTime),
		Goroutines:      runtime.NumGoroutine(),
		PollInFlight:    e.polling.Load(),
		Cursor:          e.cursor,
		KillsPerHour:    e.killRate.Rate(),
		GuildConfigured: e.config != nil,
	}
	var (
		names         []string
		guildName     string
		guildID       string
		activityStart time.Time
		active        bool
	)
	if e.current != nil {
		summary := e.current.Summarize(e.clock())
		diag.Activity = &summary
		names = e.current.ActiveParticipantNames()
		activityStart = e.current.StartTime
		active = e.current.Active()
	}
	if e.config != nil {
		guildName = e.config.GuildName
		guildID = e.config.GuildID
	}
	cursor := e.cursor
	e.mu.Unlock()

	if !active {
		return diag
	}

	var events []albion.KillEvent
	var err error
	if guildID != "" {
		events, err = e.source.FetchGuildEvents(ctx, guildID, albion.MaxPageSize, 0)
	} else {
		events, err = e.source.FetchEvents(ctx, albion.MaxPageSize, 0)
	}
	if err != nil {
		diag.FeedError = err.Error()
		return diag
	}
	if len(events) == 0 {
		return diag
	}

	relevant := make(map[int64]bool)
	for _, ev := range albion.FilterActivityKills(events, names, 0, true, guildName, activityStart) {
		relevant[ev.EventID] = true
	}

	window := &FeedWindow{MinEventID: events[0].EventID, MaxEventID: events[0].EventID}
	for _, ev := range events {
		if ev.EventID < window.MinEventID {
			window.MinEventID = ev.EventID
		}
		if ev.EventID > window.MaxEventID {
			window.MaxEventID = ev.EventID
		}
		window.Events = append(window.Events, EventClass{
			EventID:   ev.EventID,
			Processed: ev.EventID <= cursor,
			Relevant:  relevant[ev.EventID],
		})
	}
	if gap := window.MinEventID - cursor - 1; gap > 0 {
		window.Gap = gap
	}
	diag.FeedWindow = window
	return diag
}
