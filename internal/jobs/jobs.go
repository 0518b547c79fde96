// Package jobs runs periodic housekeeping for the API server.
package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// AlertExpirer resolves alerts that stayed active longer than ttl
type AlertExpirer interface {
	ExpireStale(ttl time.Duration) (int, error)
}

// Scheduler owns the cron runner
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler registers the alert expiry job on spec (standard 5-field
// cron or a descriptor such as "@every 10m").
func NewScheduler(spec string, expirer AlertExpirer, ttl time.Duration) (*Scheduler, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, ExpireAlerts(expirer, ttl)); err != nil {
		return nil, fmt.Errorf("invalid alert expiry schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("⏰ Alert expiry job scheduled")
}

// Stop stops scheduling and waits for a running job to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// ExpireAlerts returns the job body
func ExpireAlerts(expirer AlertExpirer, ttl time.Duration) func() {
	return func() {
		n, err := expirer.ExpireStale(ttl)
		if err != nil {
			log.Printf("⚠️  Alert expiry failed: %v", err)
			return
		}
		if n > 0 {
			log.Printf("🧹 Resolved %d stale alerts", n)
		}
	}
}
