package tracker

import (
	"context"
	"fmt"
	"log"

	"loottracker/shared/activity"
	"loottracker/shared/albion"
	"loottracker/shared/monitoring"
)

// maxGapPages bounds how many extra pages one cycle fetches while chasing a
// gap. The feed caps offsets at albion.MaxOffset anyway; anything beyond the
// window is logged as missed and given up on.
const maxGapPages = 10

// CheckForKills runs one poll cycle: fetch the unprocessed window, filter it
// against the current activity, stage new kills as pending and advance the
// cursor. includeAll relaxes the cursor skip for the first cycle of a fresh
// activity, where every event since activityStart is fair game.
//
// At most one cycle runs at a time; a cycle arriving while another is in
// flight is dropped, not queued.
func (e *Engine) CheckForKills(ctx context.Context, includeAll bool) error {
	if !e.polling.CompareAndSwap(false, true) {
		log.Println("Check already in progress, skipping")
		monitoring.PollStatus.WithLabelValues("skipped").Inc()
		return nil
	}
	defer e.polling.Store(false)

	e.mu.Lock()
	if e.current == nil || !e.current.Active() {
		e.mu.Unlock()
		return nil
	}
	names := e.current.ActiveParticipantNames()
	guildName, guildID := "", ""
	if e.config != nil {
		guildName = e.config.GuildName
		guildID = e.config.GuildID
	}
	activityStart := e.current.StartTime
	cursor := e.cursor
	e.mu.Unlock()

	events, err := e.fetchWindow(ctx, guildID, cursor)
	if err != nil {
		monitoring.PollStatus.WithLabelValues("error").Inc()
		e.alerter.PollFailed(err)
		return err
	}
	monitoring.EventsFetched.Add(float64(len(events)))

	relevant := albion.FilterActivityKills(events, names, cursor, includeAll, guildName, activityStart)

	e.mu.Lock()

	// The activity may have ended or been cancelled while the fetch was in
	// flight. Its results are abandoned wholesale: no kills staged and no
	// cursor movement, so nothing from this cycle leaks into a later session.
	if e.current == nil || !e.current.Active() {
		e.mu.Unlock()
		log.Println("Activity ended during check, discarding results")
		monitoring.PollStatus.WithLabelValues("abandoned").Inc()
		return nil
	}

	added := 0
	for i := range relevant {
		kill := activity.KillFromEvent(&relevant[i])
		if e.current.AddPendingKill(kill) {
			added++
		}
	}

	// The cursor advances over everything fetched, relevant or not, so the
	// next cycle never re-reads pages this one already saw.
	for i := range events {
		if events[i].EventID > e.cursor {
			e.cursor = events[i].EventID
		}
	}
	e.current.LastEventID = e.cursor
	newCursor := e.cursor

	if err := e.saveCurrentLocked(); err != nil {
		log.Printf("Error saving activity after check: %s", err)
	}

	e.updateGaugesLocked()
	monitoring.ActivityDuration.Set(e.current.Duration(e.clock()).Seconds())
	e.mu.Unlock()

	// Alerts go out after the lock is released so a slow webhook can never
	// stall confirmations or the next cycle.
	if added > 0 {
		e.alerter.KillsDetected(added, includeAll)
		monitoring.KillsDetected.Add(float64(added))
	}
	monitoring.PollStatus.WithLabelValues("ok").Inc()

	log.Printf("Check complete: %d fetched, %d relevant, %d staged, cursor %d", len(events), len(relevant), added, newCursor)
	return nil
}

// fetchWindow fetches the first feed page and, when the hole between the
// cursor and the oldest event on it is deeper than one page, pages deeper
// until the window is rejoined, a page comes back empty, the offset cap is
// hit or the page budget runs out. When a guild id is configured the
// guild-scoped feed is used: it only carries that guild's events, so the
// 51-event window actually covers the activity instead of the whole game.
func (e *Engine) fetchWindow(ctx context.Context, guildID string, cursor int64) ([]albion.KillEvent, error) {
	fetch := func(offset int) ([]albion.KillEvent, error) {
		if guildID != "" {
			return e.source.FetchGuildEvents(ctx, guildID, albion.MaxPageSize, offset)
		}
		return e.source.FetchEvents(ctx, albion.MaxPageSize, offset)
	}

	events, err := fetch(0)
	if err != nil {
		return nil, fmt.Errorf("fetching events: %w", err)
	}
	if len(events) == 0 || cursor == 0 {
		return events, nil
	}

	if len(events) == albion.MaxPageSize {
		e.alerter.PageSaturated(len(events))
	}

	// A contiguous page has min == cursor+1; only ids strictly between the
	// cursor and the page minimum were missed.
	oldest := events[len(events)-1].EventID
	gap := oldest - cursor - 1
	if gap <= 0 {
		return events, nil
	}
	monitoring.GapSize.Observe(float64(gap))
	e.alerter.GapDetected(gap, cursor, oldest)

	if gap >= int64(albion.MaxOffset) {
		// Too far behind to recover through offset paging. Record the hole
		// and carry on from what the first page gives us.
		log.Printf("Gap of %d events exceeds the feed window, logging as missed", gap)
		if err := WriteMissedRange(cursor, oldest); err != nil {
			log.Printf("Error writing missed range: %s", err)
		}
		return events, nil
	}

	// A hole inside one page size is not worth a chase, and an unsaturated
	// first page means there is nothing deeper to fetch.
	if gap <= int64(albion.MaxPageSize) || len(events) < albion.MaxPageSize {
		return events, nil
	}

	log.Printf("Gap of %d events behind cursor %d, paging deeper", gap, cursor)

	offset := len(events)
	for page := 0; page < maxGapPages && offset < albion.MaxOffset; page++ {
		more, err := fetch(offset)
		if err != nil {
			return nil, fmt.Errorf("fetching events at offset %d: %w", offset, err)
		}
		if len(more) == 0 {
			break
		}
		events = append(events, more...)
		offset += len(more)

		reached := more[len(more)-1].EventID
		if reached <= cursor {
			break
		}
	}
	return events, nil
}

// RefreshOtherGuildKills loads the guild's own recent kill feed and keeps
// the events that involve the configured guild but fall outside the current
// activity (pre-start, or by members who are not participants). Purely a
// situational-awareness view; it never touches the ledger or the cursor.
func (e *Engine) RefreshOtherGuildKills(ctx context.Context, loadMore bool) ([]albion.KillEvent, error) {
	e.mu.Lock()
	if e.config == nil || e.config.GuildID == "" {
		e.mu.Unlock()
		return nil, ErrNoConfig
	}
	if e.current == nil {
		e.mu.Unlock()
		return nil, ErrNoActivity
	}
	guildID := e.config.GuildID
	memberNames := e.config.MemberNames()
	participantNames := e.current.ActiveParticipantNames()
	activityStart := e.current.StartTime
	offset := 0
	if loadMore {
		offset = e.otherKillsOffset + albion.MaxPageSize
	}
	e.mu.Unlock()

	events, err := e.source.FetchGuildEvents(ctx, guildID, albion.MaxPageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("fetching guild events: %w", err)
	}
	filtered := albion.FilterOtherGuildKills(events, memberNames, participantNames, activityStart)

	e.mu.Lock()
	defer e.mu.Unlock()
	if loadMore {
		e.otherKills = append(e.otherKills, filtered...)
	} else {
		e.otherKills = filtered
	}
	e.otherKillsOffset = offset
	return e.otherKills, nil
}

// OtherGuildKills returns the last refreshed other-guild-kills view.
func (e *Engine) OtherGuildKills() []albion.KillEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.otherKills
}
