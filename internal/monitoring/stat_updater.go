package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/isdelr/hackernews-be/internal/models"
	"github.com/isdelr/hackernews-be/internal/resolvers"
	"github.com/isdelr/hackernews-be/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// SubscriberCounter reports live subscriptions per topic.
type SubscriberCounter interface {
	SubscriberCount(topic string) int
}

// Snapshot is a point-in-time view of the service.
type Snapshot struct {
	Stats             models.Stats `json:"stats"`
	LinkSubscribers   int          `json:"linkSubscribers"`
	MemoryUsedPercent float64      `json:"memoryUsedPercent"`
	Load1             float64      `json:"load1"`
	Uptime            string       `json:"uptime"`
	CollectedAt       time.Time    `json:"collectedAt"`
}

// StatUpdater collects snapshots on demand and logs one on a cron schedule.
type StatUpdater struct {
	statsSvc services.StatsServiceProvider
	hub      SubscriberCounter
	cron     *cron.Cron
	started  time.Time

	mu   sync.RWMutex
	last Snapshot
}

// NewStatUpdater creates a StatUpdater that reports on schedule, a standard
// cron expression or descriptor such as "@every 5m".
func NewStatUpdater(statsSvc services.StatsServiceProvider, hub SubscriberCounter, schedule string) (*StatUpdater, error) {
	su := &StatUpdater{
		statsSvc: statsSvc,
		hub:      hub,
		cron:     cron.New(),
		started:  time.Now(),
	}
	if _, err := su.cron.AddFunc(schedule, su.report); err != nil {
		return nil, fmt.Errorf("invalid stats schedule %q: %w", schedule, err)
	}
	return su, nil
}

// Run starts the schedule in the background.
func (su *StatUpdater) Run() {
	log.Info().Msg("Starting background stat reporter...")
	su.cron.Start()
}

// Stop halts the schedule and waits for a running report to finish.
func (su *StatUpdater) Stop() {
	<-su.cron.Stop().Done()
	log.Info().Msg("Stopped background stat reporter.")
}

// Last returns the most recent scheduled snapshot.
func (su *StatUpdater) Last() Snapshot {
	su.mu.RLock()
	defer su.mu.RUnlock()
	return su.last
}

// Snapshot collects current counts and host load. Host metrics that cannot
// be read are left at zero.
func (su *StatUpdater) Snapshot(ctx context.Context) (Snapshot, error) {
	stats, err := su.statsSvc.GetStats(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Stats:           stats,
		LinkSubscribers: su.hub.SubscriberCount(resolvers.TopicNewLink),
		Uptime:          time.Since(su.started).Round(time.Second).String(),
		CollectedAt:     time.Now().UTC(),
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		snap.MemoryUsedPercent = vm.UsedPercent
	} else {
		log.Debug().Err(err).Msg("Failed to read memory stats")
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		snap.Load1 = avg.Load1
	} else {
		log.Debug().Err(err).Msg("Failed to read load average")
	}
	return snap, nil
}

func (su *StatUpdater) report() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snap, err := su.Snapshot(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to collect stats")
		return
	}

	su.mu.Lock()
	su.last = snap
	su.mu.Unlock()

	log.Info().
		Int("links", snap.Stats.Links).
		Int("users", snap.Stats.Users).
		Int("votes", snap.Stats.Votes).
		Int("link_subscribers", snap.LinkSubscribers).
		Float64("mem_used_pct", snap.MemoryUsedPercent).
		Float64("load1", snap.Load1).
		Msg("Service stats")
}
