package cart

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type IdleDeactivator interface {
	DeactivateIdle(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper: loop background yang menonaktifkan cart idle. Jalan di cmd/api,
// berhenti waktu ctx di-cancel.
type Sweeper struct {
	Store    IdleDeactivator
	IdleTTL  time.Duration
	Interval time.Duration
	Log      *zap.Logger
}

func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.Store.DeactivateIdle(ctx, time.Now().Add(-s.IdleTTL))
			if err != nil {
				s.Log.Warn("cart sweep", zap.Error(err))
				continue
			}
			if n > 0 {
				s.Log.Info("cart sweep", zap.Int64("deactivated", n))
			}
		}
	}
}
