package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const revalidateTimeout = 30 * time.Second

// Revalidator re-runs CheckAuth on a cron schedule while the session is
// authenticated, so a token revoked on the server is noticed without waiting
// for the next 401.
type Revalidator struct {
	store  *Store
	cron   *cron.Cron
	logger zerolog.Logger
}

// NewRevalidator parses a standard 5-field cron expression (descriptors such as
// "@every 15m" are accepted too)
func NewRevalidator(store *Store, schedule string, zlog zerolog.Logger) (*Revalidator, error) {
	r := &Revalidator{
		store:  store,
		cron:   cron.New(),
		logger: zlog,
	}

	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return nil, fmt.Errorf("invalid revalidate schedule %q: %w", schedule, err)
	}
	return r, nil
}

func (r *Revalidator) Start() {
	r.cron.Start()
	r.logger.Info().Msg("Session revalidation started")
}

// Stop halts the schedule and waits for a running check to finish
func (r *Revalidator) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Revalidator) run() {
	if !r.store.Snapshot().IsAuthenticated {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), revalidateTimeout)
	defer cancel()

	state := r.store.Revalidate(ctx)
	if !state.IsAuthenticated {
		r.logger.Warn().Msg("Session no longer valid, operator must sign in again")
	}
}
