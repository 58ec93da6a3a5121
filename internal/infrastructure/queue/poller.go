package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/ispbilling/console/internal/core/domain"
	"github.com/ispbilling/console/internal/core/ports"
)

const (
	defaultInterval = 30 * time.Second
	defaultLimit    = 5
	pollTimeout     = 10 * time.Second
)

// Poller refreshes the notification bell of every authenticated session on
// a fixed interval. One cron entry is kept per session id.
type Poller struct {
	api      ports.NotificationAPI
	cron     *cron.Cron
	interval time.Duration
	limit    int
	log      zerolog.Logger

	// OnResult, when set, is called after every poll with the outcome
	// ("ok", "unauthorized" or "error").
	OnResult func(outcome string)

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// NewPoller creates a Poller. If interval <= 0, defaultInterval is used.
func NewPoller(api ports.NotificationAPI, interval time.Duration, log zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	log = log.With().Str("component", "notification_poller").Logger()
	cl := cronLogger{log: log}
	return &Poller{
		api:      api,
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		interval: interval,
		limit:    defaultLimit,
		log:      log,
		entries:  make(map[string]cron.EntryID),
	}
}

// Start launches the scheduler. It stops when ctx is cancelled.
func (p *Poller) Start(ctx context.Context) {
	p.cron.Start()
	go func() {
		<-ctx.Done()
		p.Stop()
	}()
}

// Stop halts scheduling and waits for running polls to finish.
func (p *Poller) Stop() {
	<-p.cron.Stop().Done()
}

// Watch schedules polling for t and fetches once right away. Watching an
// id twice replaces the earlier target.
func (p *Poller) Watch(t ports.NotificationTarget) {
	job := cron.NewChain(cron.SkipIfStillRunning(cronLogger{log: p.log})).
		Then(cron.FuncJob(func() { p.poll(t) }))

	p.mu.Lock()
	if old, ok := p.entries[t.ID()]; ok {
		p.cron.Remove(old)
	}
	id := p.cron.Schedule(cron.Every(p.interval), job)
	p.entries[t.ID()] = id
	p.mu.Unlock()

	go p.poll(t)
}

// Unwatch drops the schedule for id. Unknown ids are ignored.
func (p *Poller) Unwatch(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.entries[id]; ok {
		p.cron.Remove(entry)
		delete(p.entries, id)
	}
}

// Len reports how many sessions are being polled.
func (p *Poller) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

func (p *Poller) poll(t ports.NotificationTarget) {
	token, ok := t.Token()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	defer cancel()

	sum, err := p.api.Notifications(ctx, token, p.limit)
	switch {
	case err == nil:
		t.Deliver(*sum)
		p.report("ok")
	case errors.Is(err, domain.ErrUnauthorized):
		if t.Unauthorized(ctx, token) {
			p.log.Info().Str("session", shortID(t.ID())).Msg("credential rejected while polling, session ended")
		}
		p.report("unauthorized")
	default:
		p.log.Warn().Err(err).Str("session", shortID(t.ID())).Msg("notification poll failed")
		p.report("error")
	}
}

func (p *Poller) report(outcome string) {
	if p.OnResult != nil {
		p.OnResult(outcome)
	}
}

// cronLogger routes cron's own logging through zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(fields(keysAndValues)).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(fields(keysAndValues)).Msg(msg)
}

func fields(kv []any) map[string]any {
	out := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
