// Package jobs schedules the service's background work with robfig/cron.
//
// The server registers two jobs: a stats refresh on STATS_REFRESH_SCHEDULE that
// feeds the filtros_filters_active, filtros_categories_active and
// filtros_filters_by_category gauges, and a rate limiter cleanup every five
// minutes. Runs go through async.Run, so a panicking job is logged and the
// scheduler keeps going.
package jobs
