package database

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// SessionReaper deletes sessions whose refresh token has expired. It plays
// the part of a storage-level TTL index for databases that lack one.
type SessionReaper struct {
	store    *SessionStore
	interval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// StartSessionReaper runs one sweep immediately and then every interval
// until Stop is called or ctx is done.
func StartSessionReaper(ctx context.Context, store *SessionStore, interval time.Duration) *SessionReaper {
	reaperCtx, cancel := context.WithCancel(ctx)
	r := &SessionReaper{
		store:    store,
		interval: interval,
		cancel:   cancel,
	}

	r.wg.Add(1)
	go r.loop(reaperCtx)

	return r
}

func (r *SessionReaper) Stop() {
	r.cancel()
	r.wg.Wait()
}

func (r *SessionReaper) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *SessionReaper) sweep(ctx context.Context) {
	deleted, err := r.store.DeleteExpired(ctx, r.store.now())
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Msg("Session reaper sweep failed")
		}
		return
	}
	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Msg("Reaped expired sessions")
	}
}
