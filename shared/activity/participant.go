package activity

import "time"

// PauseInterval is one closed pause window. Open pauses live on the
// participant itself until resumed.
type PauseInterval struct {
	PausedAt  time.Time `json:"pausedAt"`
	ResumedAt time.Time `json:"resumedAt"`
}

type ParticipantStats struct {
	Kills       int     `json:"kills"`
	Assists     int     `json:"assists"`
	Deaths      int     `json:"deaths"`
	DamageDone  float64 `json:"damageDone"`
	HealingDone float64 `json:"healingDone"`
	KillFame    int64   `json:"killFame"`
}

// Participant is one member's membership record within an activity. A
// participant with LeftAt set is terminal: no further stat or time mutation.
type Participant struct {
	Name            string           `json:"name"`
	JoinedAt        time.Time        `json:"joinedAt"`
	LeftAt          *time.Time       `json:"leftAt,omitempty"`
	IsPaused        bool             `json:"isPaused"`
	PausedAt        *time.Time       `json:"pausedAt,omitempty"`
	PauseHistory    []PauseInterval  `json:"pauseHistory"`
	TotalActiveTime time.Duration    `json:"totalActiveTime"`
	Stats           ParticipantStats `json:"stats"`
}

// ActiveTime is time in the activity minus time paused:
// (leftAt or now) - joinedAt - closed pauses - the open pause, if any.
func (p *Participant) ActiveTime(now time.Time) time.Duration {
	end := now
	if p.LeftAt != nil {
		end = *p.LeftAt
	}
	total := end.Sub(p.JoinedAt)

	var paused time.Duration
	for _, interval := range p.PauseHistory {
		paused += interval.ResumedAt.Sub(interval.PausedAt)
	}
	if p.IsPaused && p.PausedAt != nil {
		paused += now.Sub(*p.PausedAt)
	}

	return total - paused
}

// Active reports whether the participant is currently accruing time and
// eligible for kill credit.
func (p *Participant) Active() bool {
	return p.LeftAt == nil && !p.IsPaused
}

func (p *Participant) pause(now time.Time) {
	if p.LeftAt != nil || p.IsPaused {
		return
	}
	p.IsPaused = true
	at := now
	p.PausedAt = &at
}

func (p *Participant) resume(now time.Time) {
	if p.LeftAt != nil || !p.IsPaused {
		return
	}
	if p.PausedAt != nil {
		p.PauseHistory = append(p.PauseHistory, PauseInterval{
			PausedAt:  *p.PausedAt,
			ResumedAt: now,
		})
	}
	p.IsPaused = false
	p.PausedAt = nil
}

func (p *Participant) leave(now time.Time) {
	if p.LeftAt != nil {
		return
	}
	// Close an open pause so the frozen total only counts covered intervals.
	p.resume(now)
	at := now
	p.LeftAt = &at
	p.TotalActiveTime = p.ActiveTime(now)
}
