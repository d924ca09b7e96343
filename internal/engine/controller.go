package engine

import (
	"context"
	"sync"
	"time"

	"github.com/marqueehq/marquee/internal/api"
	"github.com/marqueehq/marquee/internal/cache"
	"github.com/marqueehq/marquee/internal/logger"
	"github.com/marqueehq/marquee/internal/model"
)

// Phase is the controller's per-context presentation state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
	PhaseError  // retries exhausted or terminal failure; manual action to leave
	PhaseDenied // access denied; permanent, never retried
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseError:
		return "error"
	case PhaseDenied:
		return "denied"
	}
	return "unknown"
}

// DataAPI is the data-plane contract the controller consumes. Implemented by
// api.Client in production and by fakes in tests.
type DataAPI interface {
	FetchDatasets(ctx context.Context, bctx model.BoardContext) ([]model.DatasetRecord, error)
	PatchChartKind(ctx context.Context, bctx model.BoardContext, datasetID string, kind model.ChartKind) error
	CheckAccess(ctx context.Context, bctx model.BoardContext) (bool, error)
}

// View is an immutable snapshot of presentation state handed to a surface
// for rendering.
type View struct {
	Context     model.BoardContext
	Phase       Phase
	Slide       []model.DatasetRecord // datasets of the current slide
	SlideIndex  int
	SlideCount  int
	Capacity    int
	Paused      bool
	Notice      string // transient inline notice (retry in progress, patch rejected)
	ErrMsg      string // blocking error text when Phase == PhaseError
	RetryCount  int
	LastFetched time.Time
	Settings    model.Settings
}

// Controller wires the cache, fetch path, paginator, and rotation scheduler
// together for one active board context. It is the single imperative API
// consumed by both presentation surfaces; all methods are safe for
// concurrent use.
type Controller struct {
	log   logger.Logger
	api   DataAPI
	cache *cache.SnapshotCache
	clock Clock
	sched *scheduler

	mu       sync.Mutex
	settings model.Settings
	bctx     model.BoardContext
	active   bool
	closed   bool

	phase       Phase
	datasets    []model.DatasetRecord
	slides      []Slide
	slideIdx    int
	width       int
	height      int
	capacity    int
	paused      bool
	notice      string
	errMsg      string
	lastFetched time.Time

	retryCount  int
	token       uint64 // request generation; stale completions are discarded
	cancelFetch context.CancelFunc
	retryTimer  Timer

	updates chan struct{}
}

// New creates a controller. A nil clock selects the system clock; a nil
// cache gets a private unbounded one.
func New(dataAPI DataAPI, snapshots *cache.SnapshotCache, clock Clock, settings model.Settings, log logger.Logger) *Controller {
	if clock == nil {
		clock = SystemClock()
	}
	if snapshots == nil {
		snapshots = cache.New(0)
	}
	if log == nil {
		log = logger.Nop()
	}

	c := &Controller{
		log:      log,
		api:      dataAPI,
		cache:    snapshots,
		clock:    clock,
		settings: settings,
		phase:    PhaseIdle,
		capacity: 1,
		updates:  make(chan struct{}, 1),
	}
	c.sched = newScheduler(clock, c.slideTick, c.refreshTick)
	return c
}

// Updates returns a coalescing notification channel; a receive means the
// snapshot may have changed and the surface should re-render.
func (c *Controller) Updates() <-chan struct{} { return c.updates }

// Snapshot returns the current presentation state.
func (c *Controller) Snapshot() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Context:     c.bctx,
		Phase:       c.phase,
		SlideIndex:  c.slideIdx,
		SlideCount:  len(c.slides),
		Capacity:    c.capacity,
		Paused:      c.paused,
		Notice:      c.notice,
		ErrMsg:      c.errMsg,
		RetryCount:  c.retryCount,
		LastFetched: c.lastFetched,
		Settings:    c.settings,
	}
	if c.slideIdx < len(c.slides) {
		v.Slide = append([]model.DatasetRecord(nil), c.slides[c.slideIdx].Datasets...)
	}
	return v
}

// SelectContext switches the controller to a new (tenant, dashboard) pair.
// Any in-flight fetch and pending retry for the old context are cancelled
// synchronously before the new context's fetch begins, so stale results can
// never bleed across contexts.
func (c *Controller) SelectContext(bctx model.BoardContext) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || bctx.IsZero() {
		return
	}
	if c.active && bctx == c.bctx {
		return
	}

	c.abortInFlightLocked()
	c.bctx = bctx
	c.active = true
	c.datasets = nil
	c.slides = nil
	c.slideIdx = 0
	c.retryCount = 0
	c.notice = ""
	c.errMsg = ""
	c.phase = PhaseIdle

	c.refreshLocked(false)
	c.sched.startSlide(c.settings.SlideDuration)
	c.sched.startRefresh(c.settings.RefreshInterval)
	c.notifyLocked()
}

// NextSlide advances immediately, wrapping to the first slide.
func (c *Controller) NextSlide() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || len(c.slides) <= 1 {
		return
	}
	c.slideIdx = (c.slideIdx + 1) % len(c.slides)
	c.notifyLocked()
}

// PreviousSlide steps back immediately, wrapping to the last slide.
func (c *Controller) PreviousSlide() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || len(c.slides) <= 1 {
		return
	}
	c.slideIdx = (c.slideIdx - 1 + len(c.slides)) % len(c.slides)
	c.notifyLocked()
}

// TogglePause flips the pause flag. Pausing halts slide advancement; the
// background refresh timer keeps running so the frozen slide stays current,
// and manual navigation stays live.
func (c *Controller) TogglePause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.paused = !c.paused
	c.notifyLocked()
}

// ForceRefresh bypasses the cache and fetches now.
func (c *Controller) ForceRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.refreshLocked(true)
}

// Retry is the manual action that leaves the terminal error state: it resets
// the retry counter and starts a fresh fetch.
func (c *Controller) Retry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.active {
		return
	}
	c.retryCount = 0
	c.errMsg = ""
	c.notice = ""
	if c.phase == PhaseError {
		c.phase = PhaseLoading
	}
	c.refreshLocked(true)
	c.notifyLocked()
}

// Resize recomputes capacity and repaginates for a new viewport.
func (c *Controller) Resize(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || (width == c.width && height == c.height) {
		return
	}
	c.width = width
	c.height = height
	c.repaginateLocked()
	c.notifyLocked()
}

// UpdateSettings applies a partial settings update. Interval changes restart
// only the affected timer so the update takes effect without a context
// switch.
func (c *Controller) UpdateSettings(patch model.SettingsPatch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	old := c.settings
	c.settings = patch.Apply(c.settings)

	if c.active {
		if c.settings.SlideDuration != old.SlideDuration {
			c.sched.startSlide(c.settings.SlideDuration)
		}
		if c.settings.RefreshInterval != old.RefreshInterval {
			c.sched.startRefresh(c.settings.RefreshInterval)
		}
	}
	c.notifyLocked()
}

// SetChartKind changes a dataset's chart type optimistically: the local
// record and cache update first, the server patch runs in the background,
// and a rejection reverts the local change.
func (c *Controller) SetChartKind(datasetID string, kind model.ChartKind) {
	c.mu.Lock()

	idx := -1
	for i := range c.datasets {
		if c.datasets[i].ID == datasetID {
			idx = i
			break
		}
	}
	if c.closed || idx < 0 || c.datasets[idx].ChartKind == kind {
		c.mu.Unlock()
		return
	}

	prev := c.datasets[idx].ChartKind
	c.datasets[idx].ChartKind = kind
	c.cache.Invalidate(c.bctx.Key())
	c.repaginateLocked()

	tok := c.token
	bctx := c.bctx
	c.notifyLocked()
	c.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), model.DefaultRequestTimeout)
		defer cancel()

		err := c.api.PatchChartKind(ctx, bctx, datasetID, kind)
		if err == nil {
			return
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed || tok != c.token {
			return // context moved on; nothing to revert
		}
		for i := range c.datasets {
			if c.datasets[i].ID == datasetID && c.datasets[i].ChartKind == kind {
				c.datasets[i].ChartKind = prev
			}
		}
		c.repaginateLocked()
		c.notice = "chart type change rejected"
		c.log.Warn("chart kind patch rejected",
			"context", bctx.String(), "dataset", datasetID, "kind", kind, "error", err)
		c.notifyLocked()
	}()
}

// Close tears the controller down: cancels in-flight fetches, stops both
// timers and any pending retry, and turns later callbacks into no-ops.
// DismissNotice clears the inline notice. Retry scheduling is unaffected; a
// still-failing refresh will raise it again.
func (c *Controller) DismissNotice() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.notice == "" {
		return
	}
	c.notice = ""
	c.notifyLocked()
}

func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.active = false
	c.abortInFlightLocked()
	c.mu.Unlock()

	// Ticker loops take c.mu in their callbacks; wait without holding it.
	c.sched.stop()
}

// refreshLocked is the single entry point of the fetch path. Callers hold
// c.mu.
func (c *Controller) refreshLocked(bypassCache bool) {
	if c.closed || !c.active || c.phase == PhaseDenied {
		return
	}

	if !bypassCache {
		if entry, ok := c.cache.Get(c.bctx.Key()); ok && entry.Fresh(c.clock.Now(), c.settings.CacheTTL) {
			c.applyDatasetsLocked(entry.Data, entry.FetchedAt)
			return
		}
	}

	c.abortInFlightLocked()
	c.token++
	tok := c.token

	fctx, cancel := context.WithCancel(context.Background())
	c.cancelFetch = cancel
	if len(c.datasets) == 0 {
		c.phase = PhaseLoading
	}
	c.notifyLocked()

	go c.fetch(fctx, tok, c.bctx)
}

// fetch performs the access gate and dataset retrieval off the lock. Results
// are applied through token-guarded appliers.
func (c *Controller) fetch(ctx context.Context, tok uint64, bctx model.BoardContext) {
	allowed, err := c.api.CheckAccess(ctx, bctx)
	if err != nil {
		c.applyError(tok, bctx, err)
		return
	}
	if !allowed {
		c.applyDenied(tok, bctx)
		return
	}

	records, err := c.api.FetchDatasets(ctx, bctx)
	if err != nil {
		c.applyError(tok, bctx, err)
		return
	}
	c.applySuccess(tok, bctx, records)
}

func (c *Controller) applySuccess(tok uint64, bctx model.BoardContext, records []model.DatasetRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || tok != c.token {
		return // superseded; even a successful stale fetch is discarded
	}

	c.cancelFetch = nil
	c.cache.Put(bctx.Key(), records)
	c.retryCount = 0
	c.notice = ""
	c.errMsg = ""
	c.applyDatasetsLocked(records, c.clock.Now())
	c.log.Debug("datasets refreshed", "context", bctx.String(), "count", len(records))
}

func (c *Controller) applyDenied(tok uint64, bctx model.BoardContext) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || tok != c.token {
		return
	}

	c.cancelFetch = nil
	c.datasets = nil
	c.slides = nil
	c.slideIdx = 0
	c.phase = PhaseDenied
	c.log.Warn("dashboard access denied", "context", bctx.String())
	c.notifyLocked()
}

func (c *Controller) applyError(tok uint64, bctx model.BoardContext, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || tok != c.token {
		return
	}
	c.cancelFetch = nil

	switch api.KindOf(err) {
	case api.KindCancelled:
		// Superseded or torn down: no state change, no user-visible error.
		return

	case api.KindDenied:
		c.datasets = nil
		c.slides = nil
		c.slideIdx = 0
		c.phase = PhaseDenied
		c.log.Warn("dashboard access denied", "context", bctx.String(), "error", err)

	case api.KindTerminal:
		c.enterErrorLocked(bctx, err)

	default: // transient: retry with exponential backoff
		c.retryCount++
		if c.retryCount > c.settings.MaxRetries {
			c.enterErrorLocked(bctx, err)
			break
		}

		delay := c.settings.RetryBaseDelay * time.Duration(1<<(c.retryCount-1))
		c.notice = err.Error()
		if len(c.datasets) == 0 {
			c.phase = PhaseLoading
		}

		retryTok := c.token
		c.retryTimer = c.clock.AfterFunc(delay, func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.closed || !c.active || retryTok != c.token {
				return
			}
			c.refreshLocked(true)
		})
		c.log.Warn("dataset fetch failed, retry scheduled",
			"context", bctx.String(), "attempt", c.retryCount, "delay", delay, "error", err)
	}

	c.notifyLocked()
}

func (c *Controller) enterErrorLocked(bctx model.BoardContext, err error) {
	c.phase = PhaseError
	c.errMsg = err.Error()
	c.notice = ""
	c.log.Error("dataset fetch failed permanently",
		"context", bctx.String(), "retries", c.retryCount, "error", err)
}

func (c *Controller) applyDatasetsLocked(records []model.DatasetRecord, fetchedAt time.Time) {
	c.datasets = append([]model.DatasetRecord(nil), records...)
	c.lastFetched = fetchedAt
	c.repaginateLocked()
	c.phase = PhaseReady
	c.notifyLocked()
}

func (c *Controller) repaginateLocked() {
	c.capacity = Capacity(c.width, c.height)
	c.slides = Paginate(c.datasets, c.capacity)
	c.slideIdx = clampSlideIndex(c.slideIdx, len(c.slides))
}

// abortInFlightLocked cancels the outstanding fetch and pending retry timer.
func (c *Controller) abortInFlightLocked() {
	if c.cancelFetch != nil {
		c.cancelFetch()
		c.cancelFetch = nil
	}
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
}

// slideTick fires from the rotation scheduler.
func (c *Controller) slideTick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.paused || len(c.slides) <= 1 {
		return
	}
	c.slideIdx = (c.slideIdx + 1) % len(c.slides)
	c.notifyLocked()
}

// refreshTick fires from the rotation scheduler and always bypasses the
// cache.
func (c *Controller) refreshTick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.active {
		return
	}
	c.refreshLocked(true)
}

func (c *Controller) notifyLocked() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}
