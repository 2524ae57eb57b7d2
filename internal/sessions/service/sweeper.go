package service

import (
	"context"
	"sync"
	"time"

	"stylo/pkg/logger"
)

// Sweeper periodically releases holds whose sessions expired without being
// confirmed or cancelled.
type Sweeper struct {
	sessions SessionService
	interval time.Duration
	log      *logger.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewSweeper(sessions SessionService, interval time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{
		sessions: sessions,
		interval: interval,
		log:      log,
		stopCh:   make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	s.wg.Add(1)
	go s.run()
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepOnce()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Sweeper) sweepOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	if _, err := s.sessions.SweepExpired(ctx); err != nil {
		s.log.Error("session sweep failed", "error", err)
	}
}

// Stop waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}
