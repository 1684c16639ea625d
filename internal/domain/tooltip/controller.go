package tooltip

import (
	"sync"
	"time"
)

// DefaultGracePeriod is the delay between Close and the target being cleared.
const DefaultGracePeriod = 300 * time.Millisecond

// State of the controller.
type State int

// Controller states.
const (
	StateIdle State = iota
	StateOpen
	StatePendingClose
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpen:
		return "open"
	case StatePendingClose:
		return "pending_close"
	default:
		return "unknown"
	}
}

// Target is the entity preview currently shown.
type Target struct {
	EntityID   string `json:"entityId"`
	EntityType string `json:"type"`
	Position   Point  `json:"position"`
	Pinned     bool   `json:"pinned"`
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c Clock) ControllerOption {
	return func(ctl *Controller) {
		if c != nil {
			ctl.clock = c
		}
	}
}

// WithGracePeriod overrides DefaultGracePeriod. Non-positive values are ignored.
func WithGracePeriod(d time.Duration) ControllerOption {
	return func(ctl *Controller) {
		if d > 0 {
			ctl.grace = d
		}
	}
}

// WithResolver sets the position resolver.
func WithResolver(r Resolver) ControllerOption {
	return func(ctl *Controller) { ctl.resolver = r }
}

// WithOnChange registers a callback fired after the target is set, replaced or cleared.
// It runs outside the controller lock, on the goroutine that caused the change.
func WithOnChange(fn func(t Target, ok bool)) ControllerOption {
	return func(ctl *Controller) { ctl.onChange = fn }
}

// Controller owns the single live preview target and its close timer.
// At most one close timer is armed at a time. Safe for concurrent use.
type Controller struct {
	clock    Clock
	grace    time.Duration
	resolver Resolver
	onChange func(Target, bool)

	mu       sync.Mutex
	target   Target
	active   bool
	timer    Stopper
	gen      uint64
	disposed bool
}

// NewController creates an idle controller.
func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		clock:    RealClock(),
		grace:    DefaultGracePeriod,
		resolver: DefaultResolver(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open makes the entity the current target, replacing any previous one
// and cancelling a pending close.
func (c *Controller) Open(pointer Point, vp Viewport, entityID, entityType string, pinned bool) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.stopTimerLocked()
	c.target = Target{
		EntityID:   entityID,
		EntityType: entityType,
		Position:   c.resolver.Resolve(pointer, vp),
		Pinned:     pinned,
	}
	c.active = true
	t := c.target
	c.mu.Unlock()

	c.notify(t, true)
}

// Close arms the grace timer. Calling it again while a close is pending restarts the grace period.
// No-op when idle.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed || !c.active {
		return
	}
	c.stopTimerLocked()
	gen := c.gen
	c.timer = c.clock.AfterFunc(c.grace, func() { c.expire(gen) })
}

// CancelClose disarms a pending close; the target stays as it was.
func (c *Controller) CancelClose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.stopTimerLocked()
}

// Target returns the current target, if any.
func (c *Controller) Target() (Target, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target, c.active
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case !c.active:
		return StateIdle
	case c.timer != nil:
		return StatePendingClose
	default:
		return StateOpen
	}
}

// Dispose cancels any armed timer and clears the target. Later calls are no-ops.
func (c *Controller) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.stopTimerLocked()
	c.disposed = true
	wasActive := c.active
	c.target = Target{}
	c.active = false
	c.mu.Unlock()

	if wasActive {
		c.notify(Target{}, false)
	}
}

// expire runs on the timer goroutine. A stale generation means the timer was
// cancelled or replaced after it had already started firing.
func (c *Controller) expire(gen uint64) {
	c.mu.Lock()
	if c.disposed || gen != c.gen || c.timer == nil {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.gen++
	c.target = Target{}
	c.active = false
	c.mu.Unlock()

	c.notify(Target{}, false)
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
}

func (c *Controller) notify(t Target, ok bool) {
	if c.onChange != nil {
		c.onChange(t, ok)
	}
}
