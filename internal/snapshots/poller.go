package snapshots

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// MinPollInterval is the floor spec.md requires: snapshot status polling
// must not occur more often than once every 5 seconds.
const MinPollInterval = 5 * time.Second

// Poller drives periodic Take calls against a Store using robfig/cron/v3's
// scheduler, so the polling cadence is expressed the same way the rest of
// the codebase expresses scheduled work.
type Poller struct {
	cron *cron.Cron
}

// WorkingTreeFunc captures the current file set and a short description for
// the next Take call.
type WorkingTreeFunc func() (message string, files map[string][]byte, err error)

// NewPoller creates a poller that calls collect and takes a snapshot every
// interval. interval is clamped up to MinPollInterval if given a smaller or
// zero value. onErr, if non-nil, receives errors from collect or Take
// instead of silently dropping them.
func NewPoller(store *Store, interval time.Duration, collect WorkingTreeFunc, onErr func(error)) (*Poller, error) {
	if interval < MinPollInterval {
		interval = MinPollInterval
	}

	c := cron.New(cron.WithParser(cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)))
	spec := fmt.Sprintf("@every %s", interval)

	_, err := c.AddFunc(spec, func() {
		message, files, err := collect()
		if err != nil {
			if onErr != nil {
				onErr(fmt.Errorf("collect working tree: %w", err))
			}
			return
		}
		if _, err := store.Take(message, files); err != nil && onErr != nil {
			onErr(fmt.Errorf("take snapshot: %w", err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule snapshot poller: %w", err)
	}

	return &Poller{cron: c}, nil
}

// Start begins polling in the background.
func (p *Poller) Start() {
	p.cron.Start()
}

// Stop halts polling, waiting for any in-flight run to finish.
func (p *Poller) Stop() {
	ctx := p.cron.Stop()
	<-ctx.Done()
}
