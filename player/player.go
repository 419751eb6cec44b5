package player

import (
	"time"

	"midiseq/debug"
	"midiseq/synth"
	"midiseq/timeline"
)

// Player is the background playback scheduler. It walks the timeline against
// wall-clock time on its own goroutine and dispatches events to the backend;
// it never raises across the goroutine boundary. Timeline edits while playing
// are picked up through the dirty flag.
type Player struct {
	backend synth.Backend
	ctrl    *Controller

	// Loop replays from the start offset when the end is reached instead of
	// pausing.
	Loop bool
}

func New(backend synth.Backend, ctrl *Controller) *Player {
	return &Player{backend: backend, ctrl: ctrl}
}

// Controller returns the shared playback controller.
func (p *Player) Controller() *Controller {
	return p.ctrl
}

// Run is the scheduler loop. It blocks until the controller is killed, so
// call it on its own goroutine.
func (p *Player) Run(tl *timeline.Timeline) {
	for {
		p.ctrl.takeRestart()

		if !p.ctrl.awaitPlay() {
			return
		}

		// Entering Playing with nothing to play drops straight back to Idle.
		if tl.Len() == 0 {
			p.ctrl.Pause()
			continue
		}

		if !p.playPass(tl) {
			return
		}
		if !p.Loop && !p.ctrl.restartPending() {
			p.ctrl.Pause()
		}
	}
}

// playPass plays from the start offset until the end of the timeline, a
// restart, or a kill. It returns false only on kill, which terminates
// immediately and skips cleanup; the caller must silence the backend if
// needed.
func (p *Player) playPass(tl *timeline.Timeline) bool {
	bpm := tl.BPM()
	tl.ClearDirty()

	playhead := p.ctrl.start()
	p.ctrl.setPlayhead(playhead)

	// A resolution below the column grid would make this 0; the grid just
	// degrades to single ticks then.
	colTicks := tl.ColsToTicks(1)
	if colTicks < 1 {
		colTicks = 1
	}
	p.ctrl.setColumn(playhead / colTicks)
	nextUnit := playhead - playhead%colTicks + colTicks

	index := tl.NextIndex(playhead, timeline.Filter{}, true)
	active := make([]*timeline.Note, 0, 8)

	debug.Log("play", "pass from tick %d, %d events, %.1f bpm", playhead, tl.Len(), bpm)

	for index < tl.Len() {
		next := tl.At(index)
		if next == nil {
			// Events vanished under us; flush and let the outer loop decide.
			break
		}

		target := next.EventTime()
		if nextUnit < target {
			target = nextUnit
		}
		delta := target - playhead
		if delta < 0 {
			// Stale index after an edit behind the playhead.
			delta = 0
		}

		if !p.sleepTicks(delta, tl.TicksPerBeat(), bpm) {
			return false
		}
		playhead += delta
		p.ctrl.setPlayhead(playhead)

		if playhead == nextUnit {
			nextUnit += colTicks
			p.ctrl.advanceColumn()
		}

		if !p.ctrl.Playing() {
			// Silence on pause, but keep the set: a later stop must still
			// find its offs, and resume re-scans from the playhead anyway.
			for _, n := range active {
				p.backend.NoteOff(n.Channel(), n.Number)
			}
			debug.Log("play", "paused at tick %d, silenced %d notes", playhead, len(active))
			if !p.ctrl.awaitPlay() {
				return false
			}
		}
		if p.ctrl.restartPending() {
			break
		}

		if tl.TakeDirty() {
			index = tl.NextIndex(playhead, timeline.Filter{}, true)
			debug.LogEvery(16, "play", "dirty: re-resolved index to %d at tick %d", index, playhead)
		}

		for index < tl.Len() {
			ev := tl.At(index)
			if ev == nil || ev.EventTime() != playhead {
				break
			}
			active = p.dispatch(ev, active, &bpm)
			index++
		}
	}

	for _, n := range active {
		p.backend.NoteOff(n.Channel(), n.Number)
	}
	return true
}

// dispatch plays one event and returns the updated active-note set. Tempo
// changes take effect at the next sleep slice, not retroactively.
func (p *Player) dispatch(ev timeline.Event, active []*timeline.Note, bpm *float64) []*timeline.Note {
	switch ev := ev.(type) {
	case *timeline.Note:
		if ev.On {
			p.backend.NoteOn(ev.Channel(), ev.Number, ev.Velocity)
			return append(active, ev)
		}
		p.backend.NoteOff(ev.Channel(), ev.Number)
		return removeNote(active, ev.Pair)

	case *timeline.MessageEvent:
		var (
			channel, controller, value uint8
			bend                       int16
			bendAbs                    uint16
			tempo                      float64
		)
		switch {
		case ev.Message.GetMetaTempo(&tempo):
			if tempo > 0 {
				*bpm = tempo
			}
		case ev.Message.GetPitchBend(&channel, &bend, &bendAbs):
			p.backend.PitchBend(ev.Track.Channel, bend)
		case ev.Message.GetControlChange(&channel, &controller, &value):
			p.backend.ControlChange(ev.Track.Channel, controller, value)
		}
	}
	return active
}

func removeNote(active []*timeline.Note, n *timeline.Note) []*timeline.Note {
	if n == nil {
		return active
	}
	for i, a := range active {
		if a == n {
			return append(active[:i], active[i+1:]...)
		}
	}
	return active
}

// sleepTicks sleeps for the wall-clock equivalent of ticks at the current
// tempo. It returns false when the controller is killed during the wait.
func (p *Player) sleepTicks(ticks, ticksPerBeat int, bpm float64) bool {
	if ticks <= 0 {
		select {
		case <-p.ctrl.Done():
			return false
		default:
			return true
		}
	}

	d := time.Duration(float64(ticks) / float64(ticksPerBeat) / bpm * 60 * float64(time.Second))
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-p.ctrl.Done():
		return false
	case <-timer.C:
		return true
	}
}
