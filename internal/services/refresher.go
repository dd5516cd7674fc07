package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/gridiron-projections/internal/engine"
)

// refreshTimeout bounds one nightly refresh; a hung upstream must not pin
// the job forever.
const refreshTimeout = 15 * time.Minute

// Refresher schedules the nightly data refresh: re-ingest the prior season
// (stat corrections land for weeks after the games), then revalidate the
// projection season so stored rates and points keep tracking the
// identities, then drop every cache the refresh staled.
type Refresher struct {
	engine  *engine.Engine
	ingest  *IngestService
	cache   *CacheService
	logger  *logrus.Logger
	cron    *cron.Cron
	mu      sync.Mutex
	running bool

	projectionSeason   int
	syncSchedule       string
	revalidateSchedule string
	lastRun            time.Time
	lastError          string
}

// NewRefresher wires the refresh jobs. Schedules are cron expressions; an
// empty sync schedule means nightly at 04:00, an empty revalidate schedule
// registers no standalone revalidation pass.
func NewRefresher(eng *engine.Engine, ingest *IngestService, cache *CacheService, logger *logrus.Logger, projectionSeason int, syncSchedule, revalidateSchedule string) *Refresher {
	if syncSchedule == "" {
		syncSchedule = "0 4 * * *"
	}
	return &Refresher{
		engine:             eng,
		ingest:             ingest,
		cache:              cache,
		logger:             logger,
		cron:               cron.New(),
		projectionSeason:   projectionSeason,
		syncSchedule:       syncSchedule,
		revalidateSchedule: revalidateSchedule,
	}
}

// Start schedules the nightly refresh and, when configured, the standalone
// revalidation pass.
func (r *Refresher) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("refresher is already running")
	}

	if _, err := r.cron.AddFunc(r.syncSchedule, r.runScheduled); err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}
	if r.revalidateSchedule != "" {
		if _, err := r.cron.AddFunc(r.revalidateSchedule, r.runRevalidate); err != nil {
			return fmt.Errorf("failed to schedule revalidation: %w", err)
		}
	}

	r.cron.Start()
	r.running = true
	r.logger.WithFields(logrus.Fields{
		"component":           "refresher",
		"sync_schedule":       r.syncSchedule,
		"revalidate_schedule": r.revalidateSchedule,
		"season":              r.projectionSeason,
	}).Info("Refresher started")
	return nil
}

// Stop halts the schedule and waits for an in-flight run to finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}

	ctx := r.cron.Stop()
	<-ctx.Done()

	r.running = false
	r.logger.Info("Refresher stopped")
}

func (r *Refresher) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	if err := r.RefreshNow(ctx); err != nil {
		r.logger.WithError(err).Error("Scheduled refresh failed")
	}
}

func (r *Refresher) runRevalidate() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	if err := r.RevalidateNow(ctx); err != nil {
		r.logger.WithError(err).Error("Scheduled revalidation failed")
	}
}

// RefreshNow runs the refresh synchronously: ingest, revalidate, invalidate.
// The admin refresh endpoint and the cron job share this path. Without a
// stat provider the ingest step is skipped and only revalidation runs.
func (r *Refresher) RefreshNow(ctx context.Context) error {
	statRows := 0
	if r.ingest != nil {
		priorSeason := r.projectionSeason - 1
		summary, err := r.ingest.SyncSeason(ctx, priorSeason)
		if err != nil {
			r.recordRun(err)
			return fmt.Errorf("sync season %d: %w", priorSeason, err)
		}
		statRows = summary.StatRows
	}

	repaired, err := r.engine.RevalidateSeason(ctx, r.projectionSeason)
	if err != nil {
		r.recordRun(err)
		return fmt.Errorf("revalidate season %d: %w", r.projectionSeason, err)
	}

	r.cache.InvalidateSeason(ctx)
	r.recordRun(nil)

	r.logger.WithFields(logrus.Fields{
		"component": "refresher",
		"synced":    statRows,
		"repaired":  repaired,
	}).Info("Refresh completed")
	return nil
}

// RevalidateNow recomputes derived stats on the projection season and drops
// stale caches, without touching the provider.
func (r *Refresher) RevalidateNow(ctx context.Context) error {
	repaired, err := r.engine.RevalidateSeason(ctx, r.projectionSeason)
	if err != nil {
		r.recordRun(err)
		return fmt.Errorf("revalidate season %d: %w", r.projectionSeason, err)
	}

	if repaired > 0 {
		r.cache.InvalidateSeason(ctx)
	}
	r.recordRun(nil)

	r.logger.WithFields(logrus.Fields{
		"component": "refresher",
		"repaired":  repaired,
	}).Info("Revalidation completed")
	return nil
}

func (r *Refresher) recordRun(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastRun = time.Now()
	if err != nil {
		r.lastError = err.Error()
	} else {
		r.lastError = ""
	}
}

// Status reports scheduler state for the health endpoint.
func (r *Refresher) Status() map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := time.Time{}
	if entries := r.cron.Entries(); len(entries) > 0 {
		next = entries[0].Next
	}

	status := map[string]interface{}{
		"is_running":          r.running,
		"sync_schedule":       r.syncSchedule,
		"revalidate_schedule": r.revalidateSchedule,
		"season":              r.projectionSeason,
		"next_run":            next,
	}
	if !r.lastRun.IsZero() {
		status["last_run"] = r.lastRun
	}
	if r.lastError != "" {
		status["last_error"] = r.lastError
	}
	return status
}
