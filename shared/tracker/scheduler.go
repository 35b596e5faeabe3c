package tracker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// DefaultPollInterval is how often the feed is re-checked while an activity
// is active. The feed itself updates roughly once a minute, so anything
// much tighter only burns request budget.
const DefaultPollInterval = 3 * time.Minute

// Poller drives CheckForKills on a fixed cadence while an activity runs.
// The job is registered in singleton mode so a slow gap-chasing cycle can
// never stack up behind itself; the engine's own in-flight guard remains
// the last line of defense. Pause removes the jobs when the activity ends,
// so nothing ticks between sessions.
type Poller struct {
	engine    *Engine
	interval  time.Duration
	scheduler gocron.Scheduler

	mu      sync.Mutex
	running bool
	jobs    []gocron.Job
}

func NewPoller(engine *Engine, interval time.Duration) (*Poller, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Poller{
		engine:    engine,
		interval:  interval,
		scheduler: scheduler,
	}, nil
}

// Start begins polling, registering the recurring jobs if a previous Pause
// removed them. When firstCheckAll is set the first cycle runs immediately
// with the cursor skip relaxed, picking up every event since the activity
// started; resumed activities pass false and wait a full interval instead,
// trusting the restored cursor.
func (p *Poller) Start(ctx context.Context, firstCheckAll bool) error {
	p.mu.Lock()
	if len(p.jobs) == 0 {
		poll, err := p.scheduler.NewJob(
			gocron.DurationJob(p.interval),
			gocron.NewTask(func() {
				if !p.engine.Active() {
					return
				}
				if err := p.engine.CheckForKills(ctx, false); err != nil {
					log.Printf("Error checking for kills: %s", err)
				}
			}),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			p.mu.Unlock()
			return err
		}
		// Lightweight gauge refresh; never touches the feed or the ledger.
		tick, err := p.scheduler.NewJob(
			gocron.DurationJob(time.Second),
			gocron.NewTask(p.engine.TickDuration),
		)
		if err != nil {
			p.mu.Unlock()
			return err
		}
		p.jobs = []gocron.Job{poll, tick}
	}
	if !p.running {
		p.scheduler.Start()
		p.running = true
	}
	p.mu.Unlock()

	if firstCheckAll {
		go func() {
			if err := p.engine.CheckForKills(ctx, true); err != nil {
				log.Printf("Error on initial check: %s", err)
			}
		}()
	}
	return nil
}

// Pause removes the recurring jobs; the next Start re-registers them.
// Called when the tracked activity ends or is cancelled.
func (p *Poller) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, job := range p.jobs {
		if err := p.scheduler.RemoveJob(job.ID()); err != nil {
			log.Printf("Error removing job: %s", err)
		}
	}
	p.jobs = nil
}

// Stop shuts the scheduler down. Safe to call more than once.
func (p *Poller) Stop() error {
	return p.scheduler.Shutdown()
}
