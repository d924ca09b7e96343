package engine

import (
	"sync"
	"time"
)

// scheduler runs the two independent rotation timers: slide advancement and
// background data refresh. Each ticker loop can be torn down and recreated
// on its own so a live interval change takes effect without touching the
// other timer.
type scheduler struct {
	clock     Clock
	onSlide   func()
	onRefresh func()

	mu          sync.Mutex
	slideStop   chan struct{}
	refreshStop chan struct{}
	wg          sync.WaitGroup
}

func newScheduler(clock Clock, onSlide, onRefresh func()) *scheduler {
	return &scheduler{
		clock:     clock,
		onSlide:   onSlide,
		onRefresh: onRefresh,
	}
}

// startSlide (re)creates the slide advancement ticker.
func (s *scheduler) startSlide(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked(&s.slideStop)
	if interval <= 0 {
		return
	}
	s.slideStop = s.spawn(interval, s.onSlide)
}

// startRefresh (re)creates the background refresh ticker.
func (s *scheduler) startRefresh(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked(&s.refreshStop)
	if interval <= 0 {
		return
	}
	s.refreshStop = s.spawn(interval, s.onRefresh)
}

func (s *scheduler) spawn(interval time.Duration, fn func()) chan struct{} {
	stop := make(chan struct{})
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := s.clock.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C():
				fn()
			case <-stop:
				return
			}
		}
	}()
	return stop
}

func (s *scheduler) stopLocked(stop *chan struct{}) {
	if *stop != nil {
		close(*stop)
		*stop = nil
	}
}

// stop tears down both tickers and waits for their loops to exit. Callers
// must not hold locks the tick callbacks take.
func (s *scheduler) stop() {
	s.mu.Lock()
	s.stopLocked(&s.slideStop)
	s.stopLocked(&s.refreshStop)
	s.mu.Unlock()
	s.wg.Wait()
}
