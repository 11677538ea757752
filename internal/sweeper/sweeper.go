package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// IdleSweeper is implemented by the session service.
type IdleSweeper interface {
	SweepIdle() int
}

// Sweeper periodically abandons sessions nobody has touched for too long.
type Sweeper struct {
	target   IdleSweeper
	interval time.Duration
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func New(target IdleSweeper, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{target: target, interval: interval}
}

// Start runs the sweep loop until ctx ends or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)
}

func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()
	log.Info().Dur("interval", s.interval).Msg("Session sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Session sweeper stopped")
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	if n := s.target.SweepIdle(); n > 0 {
		log.Info().Int("abandoned", n).Msg("Sweep: idle sessions abandoned")
		return
	}
	log.Debug().Msg("Sweep: no idle sessions")
}
