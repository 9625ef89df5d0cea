package playback

import (
	"context"
	"sync"
	"time"

	"montage/core/timeline"
	"montage/logger"
)

// State is the playback state machine's current node.
type State string

const (
	StateStopped State = "stopped"
	StatePlaying State = "playing"
	StateSeeking State = "seeking" // transient, visible only mid-seek
	StateEnded   State = "ended"
	StateError   State = "error" // one frame only, next tick retries
)

// defaultTickInterval drives the render loop at ~30 fps. The loop
// re-synchronizes to the wall clock every tick, so jitter here does
// not accumulate.
const defaultTickInterval = 33 * time.Millisecond

// RenderFunc draws the frame at time t. The context is canceled when
// a newer request supersedes this one; implementations must not
// present a result after cancellation.
type RenderFunc func(ctx context.Context, t float64) error

// Callbacks are the controller's outbound notifications. Nil entries
// are skipped. They are invoked outside the controller's lock.
type Callbacks struct {
	OnTimeUpdate func(t float64)
	OnEnded      func()
	OnError      func(err error)
	OnGains      func(gains map[string]float64)
}

// Controller drives a virtual clock over the timeline and triggers a
// render per tick. It never mutates the timeline.
type Controller struct {
	mu sync.Mutex

	tl     *timeline.Timeline
	render RenderFunc
	cb     Callbacks

	state        State
	currentTime  float64
	masterVolume float64
	lastTick     time.Time

	renderCancel context.CancelFunc

	tickInterval time.Duration
	done         chan struct{}
	loopOnce     sync.Once
}

// New creates a stopped controller. Close releases the tick loop.
func New(tl *timeline.Timeline, render RenderFunc, cb Callbacks) *Controller {
	return &Controller{
		tl:           tl,
		render:       render,
		cb:           cb,
		state:        StateStopped,
		masterVolume: 1.0,
		tickInterval: defaultTickInterval,
		done:         make(chan struct{}),
	}
}

// Play starts (or resumes) playback. Playing from the ended state
// restarts at zero; there is no auto-loop.
func (c *Controller) Play() {
	c.mu.Lock()
	if c.state == StatePlaying {
		c.mu.Unlock()
		return
	}
	if c.state == StateEnded {
		c.currentTime = 0
	}
	c.state = StatePlaying
	c.lastTick = time.Now()
	c.mu.Unlock()

	c.loopOnce.Do(func() { go c.loop() })
	logger.Debug("playback started", logger.Float64("time", c.CurrentTime()))
}

// Pause stops the clock without losing the position.
func (c *Controller) Pause() {
	c.mu.Lock()
	if c.state == StatePlaying || c.state == StateError {
		c.state = StateStopped
	}
	c.mu.Unlock()
}

// Seek jumps to t (clamped to [0, duration]), renders that frame
// immediately, and resumes the clock if it was running. Seeking to or
// past the end transitions to ended.
func (c *Controller) Seek(t float64) {
	dur := c.tl.Duration()
	if t < 0 {
		t = 0
	}
	if t > dur {
		t = dur
	}

	c.mu.Lock()
	wasPlaying := c.state == StatePlaying
	c.state = StateSeeking
	c.currentTime = t
	c.mu.Unlock()

	// Force the frame at the new position; any in-flight render for an
	// older position is canceled.
	err := c.renderAt(t)

	c.mu.Lock()
	atEnd := dur > 0 && t >= dur
	switch {
	case atEnd:
		c.state = StateEnded
	case wasPlaying:
		c.state = StatePlaying
		c.lastTick = time.Now() // resume the clock from here, no restart
	default:
		c.state = StateStopped
	}
	c.mu.Unlock()

	if err != nil && c.cb.OnError != nil {
		c.cb.OnError(err)
	}
	if c.cb.OnTimeUpdate != nil {
		c.cb.OnTimeUpdate(t)
	}
	if atEnd && c.cb.OnEnded != nil {
		c.cb.OnEnded()
	}
}

// SetMasterVolume updates the master gain and fans the resulting
// per-clip gains out to the host, without touching playback state.
func (c *Controller) SetMasterVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	c.mu.Lock()
	c.masterVolume = v
	c.mu.Unlock()

	if c.cb.OnGains != nil {
		c.cb.OnGains(c.ActiveGains())
	}
}

// ActiveGains returns the effective gain of every audio-bearing clip
// active at the current time: clip volume times master volume.
func (c *Controller) ActiveGains() map[string]float64 {
	c.mu.Lock()
	t := c.currentTime
	master := c.masterVolume
	c.mu.Unlock()

	gains := make(map[string]float64)
	for _, clip := range c.tl.AudioClipsAt(t) {
		gains[clip.ID] = clip.Volume * master
	}
	return gains
}

// CurrentTime returns the playhead position.
func (c *Controller) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTime
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// MasterVolume returns the current master gain.
func (c *Controller) MasterVolume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.masterVolume
}

// Close stops the tick loop. The controller is unusable afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.renderCancel != nil {
		c.renderCancel()
	}
	c.mu.Unlock()

	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

// loop is the tick goroutine. Time advances by elapsed wall-clock
// time each tick; a render error marks the error state for this frame
// only and the next tick retries.
func (c *Controller) loop() {
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		if c.state == StateError {
			c.state = StatePlaying
			c.lastTick = time.Now()
		}
		if c.state != StatePlaying {
			c.mu.Unlock()
			continue
		}

		now := time.Now()
		c.currentTime += now.Sub(c.lastTick).Seconds()
		c.lastTick = now

		dur := c.tl.Duration()
		ended := dur > 0 && c.currentTime >= dur
		if ended {
			c.currentTime = dur
			c.state = StateEnded
		}
		t := c.currentTime
		c.mu.Unlock()

		if err := c.renderAt(t); err != nil {
			c.mu.Lock()
			if c.state == StatePlaying {
				c.state = StateError
			}
			c.mu.Unlock()
			if c.cb.OnError != nil {
				c.cb.OnError(err)
			}
		}

		if c.cb.OnTimeUpdate != nil {
			c.cb.OnTimeUpdate(t)
		}
		if ended {
			if c.cb.OnEnded != nil {
				c.cb.OnEnded()
			}
		}
	}
}

// renderAt runs the render callback for t, canceling any in-flight
// render so a stale decode can never overwrite a newer frame.
func (c *Controller) renderAt(t float64) error {
	if c.render == nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	if c.renderCancel != nil {
		c.renderCancel()
	}
	c.renderCancel = cancel
	c.mu.Unlock()

	return c.render(ctx, t)
}
