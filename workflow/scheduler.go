package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/goorm-engineers4/delivery-backend/config"
	"github.com/sirupsen/logrus"
)

// SyncPhase is one step of a family's reconciliation tick. Phases run
// strictly in declared order; each is idempotent and individually
// retryable because the work is driven by persistent PENDING markers.
type SyncPhase struct {
	Name string
	Run  func(ctx context.Context) error
}

// FamilyWorker is a reconciliation job for one aggregate family.
type FamilyWorker interface {
	Family() string
	RunOnce(ctx context.Context)
}

// runPhases executes the phases in order. A failing phase aborts only
// itself for this tick: it is logged and later phases still run, so a
// replica hiccup in delete-sync cannot starve create-sync.
func runPhases(ctx context.Context, logger *logrus.Logger, family string, phases []SyncPhase) {
	for _, phase := range phases {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := phase.Run(ctx); err != nil {
			config.LogError(logger, "workflow", family+"/"+phase.Name, "sync phase failed", nil, err)
		}
	}
}

// RunPeriodic drives a family worker on a fixed interval until ctx is
// cancelled. Each tick is guarded by a redis lock so that only one service
// instance runs a given family cluster-wide; losing the lock skips the tick.
func RunPeriodic(ctx context.Context, worker FamilyWorker, interval time.Duration, logger *logrus.Logger) {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		runGuarded(ctx, worker, interval, logger)
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

func runGuarded(ctx context.Context, worker FamilyWorker, interval time.Duration, logger *logrus.Logger) {
	locker := config.GetRedisLock()
	if locker == nil {
		// no lock client (local dev / tests): run unguarded
		worker.RunOnce(ctx)
		return
	}

	ttl := interval
	if ttl < 30*time.Second {
		ttl = 30 * time.Second
	}
	lock, err := locker.Obtain(ctx, "sync-lock:"+worker.Family(), ttl, nil)
	if err != nil {
		if !errors.Is(err, redislock.ErrNotObtained) {
			config.LogError(logger, "workflow", worker.Family(), "obtain sync lock", nil, err)
		}
		return
	}
	defer lock.Release(context.WithoutCancel(ctx))

	worker.RunOnce(ctx)
}
