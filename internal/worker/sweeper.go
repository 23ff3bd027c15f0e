package worker

import (
	"context"
	"log"
	"time"

	"print-checkout-backend/internal/service"
)

// Sweeper releases holds whose expiry has passed without any provider event
// arriving. Expiry normally comes from the provider's session-expired
// webhook; the sweeper is the backstop for webhooks that never arrive.
type Sweeper struct {
	reservations service.ReservationService
	interval     time.Duration
}

func NewSweeper(reservations service.ReservationService, interval time.Duration) *Sweeper {
	return &Sweeper{
		reservations: reservations,
		interval:     interval,
	}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			released, err := s.reservations.ReleaseExpired(ctx, time.Now())
			if err != nil {
				log.Printf("hold sweep: %v", err)
				continue
			}
			if released > 0 {
				log.Printf("hold sweep released %d expired hold(s)", released)
			}
		}
	}
}
