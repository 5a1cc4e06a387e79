package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/platinummonkey/filtros/pkg/catalog"
	"github.com/platinummonkey/filtros/pkg/observability"
)

// Statistics is the part of the catalogue the collector reads.
type Statistics interface {
	FilterStatistics(ctx context.Context) (*catalog.FilterStats, error)
	CategoryStatistics(ctx context.Context) (*catalog.CategoryStats, error)
}

// StatsCollector copies catalogue statistics and pool stats into the metrics gauges.
type StatsCollector struct {
	stats   Statistics
	db      *sql.DB
	metrics *observability.Metrics
}

// NewStatsCollector creates a collector. db may be nil.
func NewStatsCollector(stats Statistics, db *sql.DB, metrics *observability.Metrics) *StatsCollector {
	return &StatsCollector{stats: stats, db: db, metrics: metrics}
}

// Refresh reads the statistics and updates the gauges.
func (c *StatsCollector) Refresh(ctx context.Context) error {
	if c.db != nil {
		c.metrics.RecordDBStats(c.db.Stats())
	}

	fs, err := c.stats.FilterStatistics(ctx)
	if err != nil {
		return fmt.Errorf("filter statistics: %w", err)
	}
	cs, err := c.stats.CategoryStatistics(ctx)
	if err != nil {
		return fmt.Errorf("category statistics: %w", err)
	}

	c.metrics.FiltersActive.Set(float64(fs.Total))
	c.metrics.CategoriesActive.Set(float64(cs.Total))
	// categories that lost their last filter must disappear
	c.metrics.FiltersByCategory.Reset()
	for name, n := range fs.ByCategory {
		c.metrics.FiltersByCategory.WithLabelValues(name).Set(float64(n))
	}
	return nil
}

// Job returns the collector as a scheduled job.
func (c *StatsCollector) Job(schedule string) Job {
	return Job{Name: "stats refresh", Schedule: schedule, Timeout: 30 * time.Second, Run: c.Refresh}
}

// Cleaner drops idle state, such as expired rate limit windows.
type Cleaner interface {
	Cleanup() int
}

// CleanupJob runs c.Cleanup on schedule and logs how many entries went away.
func CleanupJob(name, schedule string, c Cleaner, logger *observability.Logger) Job {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return Job{
		Name:     name,
		Schedule: schedule,
		Timeout:  10 * time.Second,
		Run: func(context.Context) error {
			if n := c.Cleanup(); n > 0 {
				logger.WithFields(map[string]interface{}{"job": name, "removed": n}).Debug("Cleanup finished")
			}
			return nil
		},
	}
}
