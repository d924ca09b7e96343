package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/marqueehq/marquee/internal/api"
	"github.com/marqueehq/marquee/internal/cache"
	"github.com/marqueehq/marquee/internal/model"
)

var (
	boardA = model.BoardContext{TenantID: "acme", DashboardID: "a"}
	boardB = model.BoardContext{TenantID: "acme", DashboardID: "b"}
)

// fakeAPI is a scriptable DataAPI that counts calls per context key.
type fakeAPI struct {
	mu          sync.Mutex
	data        map[string][]model.DatasetRecord
	fetchCalls  map[string]int
	accessCalls map[string]int
	patchCalls  int
	patchErr    error
	denied      map[string]bool
	failNext    int   // remaining fetches to fail
	failWith    error // error used while failNext > 0
	gate        map[string]chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		data:        make(map[string][]model.DatasetRecord),
		fetchCalls:  make(map[string]int),
		accessCalls: make(map[string]int),
		denied:      make(map[string]bool),
		gate:        make(map[string]chan struct{}),
	}
}

func (f *fakeAPI) FetchDatasets(_ context.Context, bctx model.BoardContext) ([]model.DatasetRecord, error) {
	f.mu.Lock()
	f.fetchCalls[bctx.Key()]++
	gate := f.gate[bctx.Key()]
	shouldFail := f.failNext > 0
	if shouldFail {
		f.failNext--
	}
	failErr := f.failWith
	data := f.data[bctx.Key()]
	f.mu.Unlock()

	if gate != nil {
		// Block until the test releases this fetch; intentionally ignores
		// ctx so a superseded fetch can still "succeed" late.
		<-gate
	}
	if shouldFail {
		if failErr == nil {
			failErr = &api.Error{Kind: api.KindTransient, Op: "fetch datasets", Err: errors.New("connection reset")}
		}
		return nil, failErr
	}
	return data, nil
}

func (f *fakeAPI) PatchChartKind(_ context.Context, _ model.BoardContext, _ string, _ model.ChartKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patchCalls++
	return f.patchErr
}

func (f *fakeAPI) CheckAccess(_ context.Context, bctx model.BoardContext) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accessCalls[bctx.Key()]++
	return !f.denied[bctx.Key()], nil
}

func (f *fakeAPI) fetches(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls[key]
}

// waitUntil polls cond until it holds or the deadline passes.
func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitForPhase(t *testing.T, c *Controller, phase Phase) {
	t.Helper()
	waitUntil(t, fmt.Sprintf("phase %v", phase), func() bool {
		return c.Snapshot().Phase == phase
	})
}

func newTestController(t *testing.T, fa *fakeAPI, snapshots *cache.SnapshotCache, clk *fakeClock) *Controller {
	t.Helper()
	c := New(fa, snapshots, clk, model.DefaultSettings(), nil)
	t.Cleanup(c.Close)
	return c
}

func TestSelectContext_CachedRevisitSkipsNetwork(t *testing.T) {
	t.Parallel()

	fa := newFakeAPI()
	fa.data[boardA.Key()] = datasets(2)
	fa.data[boardB.Key()] = datasets(1)

	snapshots := cache.New(0)
	clk := newFakeClock()
	c := newTestController(t, fa, snapshots, clk)

	c.SelectContext(boardA)
	waitForPhase(t, c, PhaseReady)
	if got := fa.fetches(boardA.Key()); got != 1 {
		t.Fatalf("fetches(A) = %d, want 1", got)
	}

	c.SelectContext(boardB)
	waitUntil(t, "board B ready", func() bool {
		v := c.Snapshot()
		return v.Phase == PhaseReady && v.Context == boardB
	})

	// Revisit A inside the TTL window: served from cache, zero new calls.
	c.SelectContext(boardA)
	waitUntil(t, "board A ready from cache", func() bool {
		v := c.Snapshot()
		return v.Phase == PhaseReady && v.Context == boardA
	})
	if got := fa.fetches(boardA.Key()); got != 1 {
		t.Fatalf("fetches(A) after cached revisit = %d, want 1", got)
	}

	// Past the TTL the revisit refetches.
	c.SelectContext(boardB)
	waitUntil(t, "board B ready again", func() bool {
		return c.Snapshot().Context == boardB && c.Snapshot().Phase == PhaseReady
	})
	clk.advance(model.DefaultCacheTTL + time.Second)
	c.SelectContext(boardA)
	waitUntil(t, "board A refetched", func() bool {
		return fa.fetches(boardA.Key()) == 2
	})
}

func TestRefresh_RetryBackoffThenSuccess(t *testing.T) {
	t.Parallel()

	fa := newFakeAPI()
	fa.data[boardA.Key()] = datasets(3)
	fa.failNext = 2

	clk := newFakeClock()
	c := newTestController(t, fa, cache.New(0), clk)

	c.SelectContext(boardA)

	// First failure schedules a retry after the base delay.
	waitUntil(t, "first retry scheduled", func() bool { return clk.scheduledCount() == 1 })
	first := clk.scheduled(0)
	if first.delay != time.Second {
		t.Fatalf("first retry delay = %v, want 1s", first.delay)
	}
	if got := c.Snapshot().RetryCount; got != 1 {
		t.Fatalf("retry count = %d, want 1", got)
	}
	first.fire()

	// Second failure doubles the delay.
	waitUntil(t, "second retry scheduled", func() bool { return clk.scheduledCount() == 2 })
	second := clk.scheduled(1)
	if second.delay != 2*time.Second {
		t.Fatalf("second retry delay = %v, want 2s", second.delay)
	}
	second.fire()

	// Third attempt succeeds: data visible, counter reset.
	waitForPhase(t, c, PhaseReady)
	v := c.Snapshot()
	if v.RetryCount != 0 {
		t.Fatalf("retry count after success = %d, want 0", v.RetryCount)
	}
	if v.Notice != "" {
		t.Fatalf("notice after success = %q, want empty", v.Notice)
	}
	if got := fa.fetches(boardA.Key()); got != 3 {
		t.Fatalf("total fetches = %d, want 3", got)
	}
}

func TestRefresh_MaxRetriesEntersTerminalError(t *testing.T) {
	t.Parallel()

	fa := newFakeAPI()
	fa.failNext = 100 // never recovers

	clk := newFakeClock()
	c := newTestController(t, fa, cache.New(0), clk)

	c.SelectContext(boardA)

	for i := 0; i < model.DefaultMaxRetries; i++ {
		waitUntil(t, "retry scheduled", func() bool { return clk.scheduledCount() == i+1 })
		clk.scheduled(i).fire()
	}

	waitForPhase(t, c, PhaseError)
	if got := clk.scheduledCount(); got != model.DefaultMaxRetries {
		t.Fatalf("scheduled retries = %d, want %d", got, model.DefaultMaxRetries)
	}
	if got := fa.fetches(boardA.Key()); got != model.DefaultMaxRetries+1 {
		t.Fatalf("fetches = %d, want %d", got, model.DefaultMaxRetries+1)
	}
	if c.Snapshot().ErrMsg == "" {
		t.Fatal("expected blocking error message in terminal state")
	}

	// Manual retry resets the counter and fetches again.
	c.Retry()
	waitUntil(t, "manual retry fetch", func() bool {
		return fa.fetches(boardA.Key()) == model.DefaultMaxRetries+2
	})
	waitUntil(t, "retry counter reset", func() bool {
		return c.Snapshot().RetryCount == 1 // first failure of the new cycle
	})
}

func TestRefresh_TerminalStatusSkipsRetries(t *testing.T) {
	t.Parallel()

	fa := newFakeAPI()
	fa.failNext = 1
	fa.failWith = &api.Error{Kind: api.KindTerminal, Status: 400, Op: "fetch datasets", Err: errors.New("bad request shape")}

	clk := newFakeClock()
	c := newTestController(t, fa, cache.New(0), clk)

	c.SelectContext(boardA)
	waitForPhase(t, c, PhaseError)

	if got := clk.scheduledCount(); got != 0 {
		t.Fatalf("scheduled retries for terminal error = %d, want 0", got)
	}
}

func TestStaleFetch_DiscardedAfterContextSwitch(t *testing.T) {
	t.Parallel()

	fa := newFakeAPI()
	fa.data[boardA.Key()] = []model.DatasetRecord{{ID: "stale-a"}}
	fa.data[boardB.Key()] = []model.DatasetRecord{{ID: "fresh-b"}}
	gate := make(chan struct{})
	fa.gate[boardA.Key()] = gate

	snapshots := cache.New(0)
	clk := newFakeClock()
	c := newTestController(t, fa, snapshots, clk)

	c.SelectContext(boardA) // fetch blocks in the gate
	waitUntil(t, "board A fetch started", func() bool { return fa.fetches(boardA.Key()) == 1 })

	c.SelectContext(boardB)
	waitUntil(t, "board B ready", func() bool {
		v := c.Snapshot()
		return v.Phase == PhaseReady && v.Context == boardB
	})

	// Release A's fetch: it completes "successfully" but carries a stale
	// token, so it must not touch state or cache.
	close(gate)
	time.Sleep(50 * time.Millisecond)

	v := c.Snapshot()
	if v.Context != boardB {
		t.Fatalf("context = %v, want %v", v.Context, boardB)
	}
	if len(v.Slide) != 1 || v.Slide[0].ID != "fresh-b" {
		t.Fatalf("slide = %+v, want fresh-b only", v.Slide)
	}
	if _, ok := snapshots.Get(boardA.Key()); ok {
		t.Fatal("stale fetch wrote to the old context's cache entry")
	}
}

func TestRotation_AdvancesWrapsAndPauses(t *testing.T) {
	t.Parallel()

	fa := newFakeAPI()
	fa.data[boardA.Key()] = datasets(7)

	clk := newFakeClock()
	c := newTestController(t, fa, cache.New(0), clk)

	c.Resize(120, 40) // capacity 3 -> slides of [3,3,1]
	c.SelectContext(boardA)
	waitUntil(t, "three slides ready", func() bool {
		v := c.Snapshot()
		return v.Phase == PhaseReady && v.SlideCount == 3
	})

	slideTicker := clk.tickerAt(model.DefaultSlideDuration)
	refreshTicker := clk.tickerAt(model.DefaultRefreshInterval)
	if slideTicker == nil || refreshTicker == nil {
		t.Fatal("expected both rotation tickers to be running")
	}

	for i, want := range []int{1, 2, 0, 1} {
		slideTicker.fire()
		waitUntil(t, fmt.Sprintf("advance %d", i), func() bool {
			return c.Snapshot().SlideIndex == want
		})
	}

	// Pause halts advancement...
	c.TogglePause()
	slideTicker.fire()
	time.Sleep(30 * time.Millisecond)
	if got := c.Snapshot().SlideIndex; got != 1 {
		t.Fatalf("slide index advanced while paused: %d", got)
	}

	// ...but the refresh timer continues independently.
	before := fa.fetches(boardA.Key())
	refreshTicker.fire()
	waitUntil(t, "refresh while paused", func() bool {
		return fa.fetches(boardA.Key()) == before+1
	})

	// Manual navigation is immediate even while paused.
	c.NextSlide()
	if got := c.Snapshot().SlideIndex; got != 2 {
		t.Fatalf("NextSlide while paused: index = %d, want 2", got)
	}
	c.PreviousSlide()
	if got := c.Snapshot().SlideIndex; got != 1 {
		t.Fatalf("PreviousSlide: index = %d, want 1", got)
	}
}

func TestResize_RepaginatesAndClampsIndex(t *testing.T) {
	t.Parallel()

	fa := newFakeAPI()
	fa.data[boardA.Key()] = datasets(7)

	clk := newFakeClock()
	c := newTestController(t, fa, cache.New(0), clk)

	c.Resize(120, 40)
	c.SelectContext(boardA)
	waitUntil(t, "ready", func() bool { return c.Snapshot().SlideCount == 3 })

	c.NextSlide()
	c.NextSlide()
	if got := c.Snapshot().SlideIndex; got != 2 {
		t.Fatalf("index = %d, want 2", got)
	}

	// Narrow viewport: capacity 1, 7 slides, pointer still valid.
	c.Resize(40, 15)
	v := c.Snapshot()
	if v.SlideCount != 7 || v.SlideIndex != 2 {
		t.Fatalf("after narrow resize: count %d index %d, want 7/2", v.SlideCount, v.SlideIndex)
	}

	// Very wide viewport: capacity 6, 2 slides; index 2 is out of range and
	// resets to the first slide.
	c.Resize(220, 60)
	v = c.Snapshot()
	if v.SlideCount != 2 || v.SlideIndex != 0 {
		t.Fatalf("after wide resize: count %d index %d, want 2/0", v.SlideCount, v.SlideIndex)
	}
}

func TestSetChartKind_RevertsOnRejection(t *testing.T) {
	t.Parallel()

	fa := newFakeAPI()
	fa.data[boardA.Key()] = []model.DatasetRecord{{ID: "d0", ChartKind: model.ChartBar}}
	fa.patchErr = &api.Error{Kind: api.KindTerminal, Status: 422, Op: "patch chart kind", Err: errors.New("kind not allowed")}

	snapshots := cache.New(0)
	clk := newFakeClock()
	c := newTestController(t, fa, snapshots, clk)

	c.SelectContext(boardA)
	waitForPhase(t, c, PhaseReady)

	c.SetChartKind("d0", model.ChartLine)

	// The cache entry is invalidated the moment the local patch lands.
	if _, ok := snapshots.Get(boardA.Key()); ok {
		t.Fatal("cache entry survived a server-side mutation")
	}

	// Rejection reverts the optimistic change and surfaces a notice.
	waitUntil(t, "revert", func() bool {
		v := c.Snapshot()
		return len(v.Slide) == 1 && v.Slide[0].ChartKind == model.ChartBar && v.Notice != ""
	})
}

func TestAccessDenied_IsPermanentAndDistinct(t *testing.T) {
	t.Parallel()

	fa := newFakeAPI()
	fa.denied[boardA.Key()] = true

	clk := newFakeClock()
	c := newTestController(t, fa, cache.New(0), clk)

	c.SelectContext(boardA)
	waitForPhase(t, c, PhaseDenied)

	if got := fa.fetches(boardA.Key()); got != 0 {
		t.Fatalf("datasets fetched despite denied access: %d", got)
	}
	if got := c.Snapshot().ErrMsg; got != "" {
		t.Fatalf("denied state carries error message %q, want none (distinct state)", got)
	}

	// A scheduled refresh does not retry a denied context.
	refreshTicker := clk.tickerAt(model.DefaultRefreshInterval)
	refreshTicker.fire()
	time.Sleep(30 * time.Millisecond)
	if got := fa.fetches(boardA.Key()); got != 0 {
		t.Fatalf("denied context refetched: %d", got)
	}
}

func TestUpdateSettings_RestartsOnlyChangedTimer(t *testing.T) {
	t.Parallel()

	fa := newFakeAPI()
	fa.data[boardA.Key()] = datasets(4)

	clk := newFakeClock()
	c := newTestController(t, fa, cache.New(0), clk)

	c.Resize(80, 25) // capacity 2 -> 2 slides
	c.SelectContext(boardA)
	waitUntil(t, "ready", func() bool { return c.Snapshot().SlideCount == 2 })

	newDuration := 5 * time.Second
	c.UpdateSettings(model.SettingsPatch{SlideDuration: &newDuration})

	var ticker *fakeTicker
	waitUntil(t, "slide ticker recreated with new interval", func() bool {
		ticker = clk.tickerAt(newDuration)
		return ticker != nil
	})
	ticker.fire()
	waitUntil(t, "advance on new interval", func() bool {
		return c.Snapshot().SlideIndex == 1
	})

	if got := c.Snapshot().Settings.RefreshInterval; got != model.DefaultRefreshInterval {
		t.Fatalf("refresh interval changed unexpectedly: %v", got)
	}
}

func TestClose_DropsLateResults(t *testing.T) {
	t.Parallel()

	fa := newFakeAPI()
	fa.data[boardA.Key()] = datasets(1)
	gate := make(chan struct{})
	fa.gate[boardA.Key()] = gate

	clk := newFakeClock()
	snapshots := cache.New(0)
	c := New(fa, snapshots, clk, model.DefaultSettings(), nil)

	c.SelectContext(boardA)
	waitUntil(t, "fetch started", func() bool { return fa.fetches(boardA.Key()) == 1 })

	c.Close()
	close(gate)
	time.Sleep(30 * time.Millisecond)

	if _, ok := snapshots.Get(boardA.Key()); ok {
		t.Fatal("fetch completed after Close still wrote to cache")
	}

	// All controls are no-ops after Close.
	c.SelectContext(boardB)
	c.NextSlide()
	c.ForceRefresh()
	if got := c.Snapshot().Context; got != boardA {
		t.Fatalf("context changed after Close: %v", got)
	}
	c.Close() // idempotent
}

func TestDismissNotice_ClearsInlineNoticeOnly(t *testing.T) {
	t.Parallel()

	fa := newFakeAPI()
	fa.data[boardA.Key()] = datasets(2)
	fa.failNext = 1

	clk := newFakeClock()
	c := newTestController(t, fa, cache.New(0), clk)

	c.SelectContext(boardA)
	waitUntil(t, "transient notice shown", func() bool { return c.Snapshot().Notice != "" })

	c.DismissNotice()
	v := c.Snapshot()
	if v.Notice != "" {
		t.Fatalf("notice after dismiss = %q, want empty", v.Notice)
	}
	if v.RetryCount != 1 {
		t.Fatalf("retry count after dismiss = %d, want 1", v.RetryCount)
	}

	// The scheduled retry still runs and recovers.
	waitUntil(t, "retry scheduled", func() bool { return clk.scheduledCount() == 1 })
	clk.scheduled(0).fire()
	waitForPhase(t, c, PhaseReady)
}
