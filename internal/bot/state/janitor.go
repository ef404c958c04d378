package state

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/vladimiradmaev/diabetbot/internal/logger"
)

// StartJanitor schedules PurgeExpired on m with a standard 5-field cron
// expression. Stop the returned cron on shutdown.
func StartJanitor(m *Manager, spec string) (*cron.Cron, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))

	_, err := c.AddFunc(spec, func() {
		if n := m.PurgeExpired(); n > 0 {
			logger.Info("Expired sessions purged", "count", n)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", spec, err)
	}

	c.Start()
	return c, nil
}
