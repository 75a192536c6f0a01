package store

import (
	"context"
	"sync/atomic"
	"time"
)

// ingestStats tracks ingestion volume for the status feed.
type ingestStats struct {
	totalPushed int64 // all entries ever pushed
	windowCount int64 // pushes since the last rate tick
	rateMilli   int64 // current rate in entries/sec, scaled by 1000
}

func (st *ingestStats) recordPush() {
	atomic.AddInt64(&st.totalPushed, 1)
	atomic.AddInt64(&st.windowCount, 1)
}

// TotalPushed returns the number of entries pushed over the store's lifetime,
// including entries since evicted.
func (s *Store) TotalPushed() int64 {
	return atomic.LoadInt64(&s.stats.totalPushed)
}

// IngestionRate returns the current ingestion rate in entries per second,
// as computed by the last stats tick.
func (s *Store) IngestionRate() float64 {
	return float64(atomic.LoadInt64(&s.stats.rateMilli)) / 1000
}

// StartStatsTicker recomputes the ingestion rate every interval until ctx is
// cancelled.
func (s *Store) StartStatsTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				count := atomic.SwapInt64(&s.stats.windowCount, 0)
				rate := float64(count) / interval.Seconds()
				atomic.StoreInt64(&s.stats.rateMilli, int64(rate*1000))
			case <-ctx.Done():
				return
			}
		}
	}()
}
