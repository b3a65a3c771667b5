package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Purger removes expired cache entries
type Purger interface {
	PurgeExpiredTransients(ctx context.Context) (int64, error)
}

// RefreshReport summarises one refresh run
type RefreshReport struct {
	At     time.Time
	OK     int
	Failed int
	Purged int64
}

// Refresher re-warms the feed cache on a cron schedule so page views rarely
// pay for a fetch.
type Refresher struct {
	agg      *Aggregator
	urls     []string
	purger   Purger
	onReport func(RefreshReport)
	cron     *cron.Cron
}

// NewRefresher returns a refresher for urls. purger and onReport may be nil.
func NewRefresher(agg *Aggregator, urls []string, purger Purger, onReport func(RefreshReport)) *Refresher {
	return &Refresher{
		agg:      agg,
		urls:     append([]string(nil), urls...),
		purger:   purger,
		onReport: onReport,
	}
}

// Start schedules Refresh on spec and runs it once immediately in the
// background
func (r *Refresher) Start(ctx context.Context, spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { r.Refresh(ctx) }); err != nil {
		return fmt.Errorf("schedule feed refresh %q: %w", spec, err)
	}
	r.cron = c
	c.Start()
	go r.Refresh(ctx)

	logrus.WithFields(logrus.Fields{
		"spec":  spec,
		"feeds": len(r.urls),
	}).Info("Feed refresher started")
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish
func (r *Refresher) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
	logrus.Info("Feed refresher stopped")
}

// Refresh re-fetches every feed, then purges expired transients. Feeds
// that fail keep their previous cached copy.
func (r *Refresher) Refresh(ctx context.Context) RefreshReport {
	report := RefreshReport{At: time.Now()}
	for _, url := range r.urls {
		if err := r.agg.Warm(ctx, url); err != nil {
			report.Failed++
			continue
		}
		report.OK++
	}

	if r.purger != nil {
		n, err := r.purger.PurgeExpiredTransients(ctx)
		if err != nil {
			logrus.WithError(err).Warn("Failed to purge expired transients")
		}
		report.Purged = n
	}

	logrus.WithFields(logrus.Fields{
		"ok":     report.OK,
		"failed": report.Failed,
		"purged": report.Purged,
	}).Info("Feed refresh completed")

	if r.onReport != nil {
		r.onReport(report)
	}
	return report
}
