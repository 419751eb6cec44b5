package player

import (
	"sync"
	"sync/atomic"
)

// Controller owns the play/restart/kill signals and the observable playhead.
// It is shared between the editing surface and the scheduler goroutine; the
// scheduler is the only writer of the playhead. Kill is one-shot: once killed
// a fresh Player is required to play again.
type Controller struct {
	mu      sync.Mutex
	cond    *sync.Cond
	playing bool
	restart bool
	killed  bool

	startTick int

	kill chan struct{}

	playhead atomic.Int64 // ticks
	column   atomic.Int64 // coarse display columns
}

func NewController() *Controller {
	c := &Controller{kill: make(chan struct{})}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Play sets the play signal, waking an idle or paused scheduler.
func (c *Controller) Play() {
	c.mu.Lock()
	c.playing = true
	c.mu.Unlock()
	c.cond.Broadcast()
}

// Pause clears the play signal. The scheduler silences active notes and
// blocks at its next wait point.
func (c *Controller) Pause() {
	c.mu.Lock()
	c.playing = false
	c.mu.Unlock()
}

func (c *Controller) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Restart points the scheduler at tick and re-enters playback from there on
// its next loop check.
func (c *Controller) Restart(tick int) {
	if tick < 0 {
		tick = 0
	}
	c.mu.Lock()
	c.startTick = tick
	c.restart = true
	c.playing = true
	c.mu.Unlock()
	c.cond.Broadcast()
}

// SetStart sets where playback begins the next time the scheduler enters
// Playing from Idle, without signaling a restart.
func (c *Controller) SetStart(tick int) {
	if tick < 0 {
		tick = 0
	}
	c.mu.Lock()
	c.startTick = tick
	c.mu.Unlock()
}

func (c *Controller) start() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startTick
}

// Kill permanently stops the scheduler. Checked at every wait point, so
// shutdown is bounded by at most one sleep slice.
func (c *Controller) Kill() {
	c.mu.Lock()
	if !c.killed {
		c.killed = true
		close(c.kill)
	}
	c.mu.Unlock()
	c.cond.Broadcast()
}

func (c *Controller) Killed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.killed
}

// Done is closed once the controller is killed; timed waits select on it.
func (c *Controller) Done() <-chan struct{} {
	return c.kill
}

// Playhead returns the scheduler's current position in ticks.
func (c *Controller) Playhead() int {
	return int(c.playhead.Load())
}

// Column returns the coarse display-column counter.
func (c *Controller) Column() int {
	return int(c.column.Load())
}

func (c *Controller) setPlayhead(tick int) {
	c.playhead.Store(int64(tick))
}

func (c *Controller) setColumn(col int) {
	c.column.Store(int64(col))
}

func (c *Controller) advanceColumn() {
	c.column.Add(1)
}

// awaitPlay blocks until the play signal is set; it returns false once the
// controller is killed.
func (c *Controller) awaitPlay() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for !c.playing && !c.killed {
		c.cond.Wait()
	}
	return !c.killed
}

// takeRestart consumes a pending restart signal.
func (c *Controller) takeRestart() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.restart {
		return false
	}
	c.restart = false
	return true
}

func (c *Controller) restartPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.restart
}
