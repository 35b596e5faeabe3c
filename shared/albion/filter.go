package albion

import "time"

// FilterActivityKills returns the events that belong to the current activity.
// An event qualifies when its killer or any of its participants is in
// participantNames. When guildName is non-empty the event must additionally
// carry that guild tag on the killer or a participant; the guild check
// narrows the participant match, it never replaces it.
//
// Events at or below lastEventID are skipped unless includeAll is set (the
// first poll of a new activity). Events before activityStart are always
// skipped when activityStart is non-zero. Input order is preserved.
func FilterActivityKills(events []KillEvent, participantNames []string, lastEventID int64, includeAll bool, guildName string, activityStart time.Time) []KillEvent {
	if len(participantNames) == 0 {
		return nil
	}

	names := nameSet(participantNames)

	var filtered []KillEvent
	for _, event := range events {
		if !includeAll && event.EventID <= lastEventID {
			continue
		}
		if !activityStart.IsZero() && !event.TimeStamp.IsZero() && event.TimeStamp.Before(activityStart) {
			continue
		}

		killerIsParticipant := names[event.Killer.Name]
		hasActivityParticipant := false
		for _, p := range event.Participants {
			if names[p.Name] {
				hasActivityParticipant = true
				break
			}
		}
		if !killerIsParticipant && !hasActivityParticipant {
			continue
		}

		if guildName != "" && !eventMatchesGuild(&event, guildName) {
			continue
		}

		filtered = append(filtered, event)
	}
	return filtered
}

// FilterOtherGuildKills returns guild-involvement events from members who are
// not in the current activity. Events at or after activityStart are excluded:
// those belong to the activity view.
func FilterOtherGuildKills(events []KillEvent, guildMemberNames, activityParticipantNames []string, activityStart time.Time) []KillEvent {
	members := nameSet(guildMemberNames)
	inActivity := nameSet(activityParticipantNames)

	var filtered []KillEvent
	for _, event := range events {
		involved := members[event.Killer.Name]
		for _, p := range event.Participants {
			if members[p.Name] {
				involved = true
				break
			}
		}
		if !involved {
			continue
		}

		if !activityStart.IsZero() && !event.TimeStamp.IsZero() && !event.TimeStamp.Before(activityStart) {
			continue
		}

		if len(inActivity) > 0 {
			skip := inActivity[event.Killer.Name]
			for _, p := range event.Participants {
				if inActivity[p.Name] {
					skip = true
					break
				}
			}
			if skip {
				continue
			}
		}

		filtered = append(filtered, event)
	}
	return filtered
}

func eventMatchesGuild(event *KillEvent, guildName string) bool {
	if event.Killer.GuildName == guildName {
		return true
	}
	for _, p := range event.Participants {
		if p.GuildName == guildName {
			return true
		}
	}
	return false
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
