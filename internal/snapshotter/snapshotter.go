// Package snapshotter runs a background worker that periodically persists
// the file-backed entity store, so a crash loses at most one interval of
// appended records instead of everything since startup.
package snapshotter

import (
	"context"
	"time"

	"github.com/patric-chuzhbe/fittrack/internal/logger"
)

type flusher interface {
	Flush(ctx context.Context) error
}

// Snapshotter periodically calls Flush on the underlying store.
type Snapshotter struct {
	db           flusher
	interval     time.Duration
	errorChannel chan error
}

// New creates a Snapshotter flushing db every interval.
func New(db flusher, interval time.Duration) *Snapshotter {
	return &Snapshotter{
		db:           db,
		interval:     interval,
		errorChannel: make(chan error, 1),
	}
}

// ListenErrors invokes callback for every flush failure until the worker stops.
func (s *Snapshotter) ListenErrors(callback func(error)) {
	go func() {
		for err := range s.errorChannel {
			callback(err)
		}
	}()
}

// Run starts the flushing loop. It stops, closes the error channel and
// performs a final flush when ctx is canceled.
func (s *Snapshotter) Run(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		defer close(s.errorChannel)

		for {
			select {
			case <-ctx.Done():
				if err := s.db.Flush(context.Background()); err != nil {
					logger.Log.Errorln("final snapshot failed:", err)
				}
				return
			case <-ticker.C:
				if err := s.db.Flush(ctx); err != nil {
					select {
					case s.errorChannel <- err:
					default:
					}
					continue
				}
				logger.Log.Debugln("snapshot flushed")
			}
		}
	}()
}
