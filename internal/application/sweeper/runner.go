package sweeper

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	LeaseKey   = "sweeper:candidatures:lease"
	LastRunKey = "sweeper:candidatures:last_run"
)

// LastRun is what the health endpoint reports for the most recent sweep.
type LastRun struct {
	At      time.Time `json:"at"`
	Expired int       `json:"expired"`
	Error   string    `json:"error,omitempty"`
}

// Sweeper expires overdue candidatures and reports how many moved.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// Runner calls the sweeper on a fixed interval. With Redis set, a SET NX lease
// keeps instances from sweeping at the same instant; the sweep itself stays
// correct without it.
type Runner struct {
	Sweeper  Sweeper
	Redis    *redis.Client
	Interval time.Duration
	LeaseTTL time.Duration

	once     sync.Once
	instance string
}

var releaseLease = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

func (r *Runner) id() string {
	r.once.Do(func() { r.instance = uuid.NewString() })
	return r.instance
}

// Run sweeps once immediately, then every Interval until ctx is done.
func (r *Runner) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	log.Info().Dur("interval", interval).Msg("sweeper started")
	r.tick(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("sweeper stopped")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	if _, _, err := r.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("sweep failed")
	}
}

// RunOnce sweeps if this instance wins the lease. ran is false when another instance holds it.
func (r *Runner) RunOnce(ctx context.Context) (expired int, ran bool, err error) {
	if r.Redis != nil {
		ttl := r.LeaseTTL
		if ttl <= 0 {
			ttl = time.Minute
		}
		ok, err := r.Redis.SetNX(ctx, LeaseKey, r.id(), ttl).Result()
		if err != nil {
			log.Warn().Err(err).Msg("sweeper lease unavailable, sweeping anyway")
		} else if !ok {
			log.Debug().Msg("sweeper lease held elsewhere, skipping")
			return 0, false, nil
		} else {
			defer func() {
				if err := releaseLease.Run(context.Background(), r.Redis, []string{LeaseKey}, r.id()).Err(); err != nil && !errors.Is(err, redis.Nil) {
					log.Warn().Err(err).Msg("sweeper lease release failed")
				}
			}()
		}
	}
	expired, err = r.Sweeper.SweepExpired(ctx)
	r.record(ctx, expired, err)
	return expired, true, err
}

func (r *Runner) record(ctx context.Context, expired int, sweepErr error) {
	if r.Redis == nil {
		return
	}
	last := LastRun{At: time.Now().UTC(), Expired: expired}
	if sweepErr != nil {
		last.Error = sweepErr.Error()
	}
	b, _ := json.Marshal(last)
	if err := r.Redis.Set(ctx, LastRunKey, b, 0).Err(); err != nil {
		log.Warn().Err(err).Msg("sweeper last run not recorded")
	}
}
