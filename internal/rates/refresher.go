package rates

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule refreshes rates hourly.
const DefaultSchedule = "@every 1h"

// StartRefresher runs m.Refresh on schedule until the returned cron is
// stopped. An empty schedule disables refreshing and returns nil.
func StartRefresher(m *Manager, schedule string) (*cron.Cron, error) {
	if schedule == "" {
		return nil, nil
	}
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := m.Refresh(ctx); err != nil {
			m.log.WithError(err).Warn("scheduled rate refresh failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("scheduling rate refresh %q: %w", schedule, err)
	}
	c.Start()
	m.log.WithField("schedule", schedule).Info("rate refresher started")
	return c, nil
}
