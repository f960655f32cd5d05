package postpilot

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler polls for due draft posts and runs the pipeline on each.
// Posts are processed sequentially; one failing post never blocks the
// rest of the batch.
type Scheduler struct {
	store    *Store
	pipeline *Pipeline
	interval time.Duration
	log      *slog.Logger

	ticker *time.Ticker
	done   chan struct{}
}

// NewScheduler creates a scheduler that ticks at the given interval.
func NewScheduler(store *Store, pipeline *Pipeline, interval time.Duration, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		store:    store,
		pipeline: pipeline,
		interval: interval,
		log:      log,
	}
}

// Start launches the background polling loop.
func (s *Scheduler) Start() {
	s.ticker = time.NewTicker(s.interval)
	s.done = make(chan struct{})
	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.RunTick(context.Background())
			case <-s.done:
				return
			}
		}
	}()
	s.log.Info("scheduler started", "interval", s.interval)
}

// Stop halts the polling loop. Safe to call once after Start.
func (s *Scheduler) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	if s.done != nil {
		close(s.done)
	}
}

// RunTick processes every currently due post once. It is exported so a
// tick can be driven manually, bypassing the ticker.
func (s *Scheduler) RunTick(ctx context.Context) {
	posts, err := s.store.DuePosts(time.Now())
	if err != nil {
		s.log.Error("querying due posts", "error", err)
		return
	}
	if len(posts) == 0 {
		return
	}
	s.log.Info("processing due posts", "count", len(posts))
	for _, post := range posts {
		if err := s.pipeline.Run(ctx, post); err != nil {
			s.log.Error("processing post", "post", post.ID, "error", err)
		}
	}
}
