package timeline

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"midiseq/debug"
)

const (
	DefaultTicksPerBeat    = 480
	DefaultBPM             = 120.0
	DefaultColsPerBeat     = 4
	DefaultBeatsPerMeasure = 4
)

// Timeline is an always-sorted sequence of events plus the track registry.
// One editing goroutine mutates it; the playback scheduler reads it and
// tolerates staleness through the dirty flag. The mutex guards only slice
// mutation and index resolution, never dispatch or sleeping, so the editor
// never blocks on the scheduler.
type Timeline struct {
	mu     sync.Mutex
	events []Event
	tracks []*Track

	ticksPerBeat    int
	colsPerBeat     int
	beatsPerMeasure int
	bpm             atomic.Uint64 // float64 bits; read by the scheduler

	dirty atomic.Bool
}

// New creates an empty timeline with default timing parameters.
func New() *Timeline {
	tl := &Timeline{
		ticksPerBeat:    DefaultTicksPerBeat,
		colsPerBeat:     DefaultColsPerBeat,
		beatsPerMeasure: DefaultBeatsPerMeasure,
	}
	tl.SetBPM(DefaultBPM)
	return tl
}

func (tl *Timeline) TicksPerBeat() int    { return tl.ticksPerBeat }
func (tl *Timeline) ColsPerBeat() int     { return tl.colsPerBeat }
func (tl *Timeline) BeatsPerMeasure() int { return tl.beatsPerMeasure }

// SetTicksPerBeat sets the tick resolution. Only meaningful before events are
// inserted; existing event times are not rescaled.
func (tl *Timeline) SetTicksPerBeat(tpb int) {
	if tpb > 0 {
		tl.ticksPerBeat = tpb
	}
}

func (tl *Timeline) SetColsPerBeat(cols int) {
	if cols > 0 {
		tl.colsPerBeat = cols
	}
}

func (tl *Timeline) SetBeatsPerMeasure(beats int) {
	if beats > 0 {
		tl.beatsPerMeasure = beats
	}
}

func (tl *Timeline) BPM() float64 {
	return math.Float64frombits(tl.bpm.Load())
}

func (tl *Timeline) SetBPM(bpm float64) {
	if bpm > 0 {
		tl.bpm.Store(math.Float64bits(bpm))
	}
}

// TicksToBeats converts whole ticks to whole beats.
func (tl *Timeline) TicksToBeats(ticks int) int {
	return ticks / tl.ticksPerBeat
}

func (tl *Timeline) BeatsToTicks(beats int) int {
	return beats * tl.ticksPerBeat
}

// ColsToTicks converts display columns to ticks; a column is a fixed
// subdivision of a beat used for the coarse playhead grid.
func (tl *Timeline) ColsToTicks(cols int) int {
	return cols * tl.ticksPerBeat / tl.colsPerBeat
}

func (tl *Timeline) TicksToCols(ticks int) int {
	return ticks * tl.colsPerBeat / tl.ticksPerBeat
}

// MarkDirty flags the timeline as mutated since the scheduler's last pass.
func (tl *Timeline) MarkDirty() {
	tl.dirty.Store(true)
}

// TakeDirty consumes the dirty flag.
func (tl *Timeline) TakeDirty() bool {
	return tl.dirty.Swap(false)
}

func (tl *Timeline) ClearDirty() {
	tl.dirty.Store(false)
}

func (tl *Timeline) Len() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return len(tl.events)
}

// At returns the event at index i, or nil when i is out of range (the
// scheduler can race concurrent removals; nil tells it to re-resolve).
func (tl *Timeline) At(i int) Event {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if i < 0 || i >= len(tl.events) {
		return nil
	}
	return tl.events[i]
}

// Events returns a snapshot copy of the event sequence in order.
func (tl *Timeline) Events() []Event {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	out := make([]Event, len(tl.events))
	copy(out, tl.events)
	return out
}

// EventsInTrack returns the track's events in timeline order.
func (tl *Timeline) EventsInTrack(track *Track) []Event {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	var out []Event
	for _, ev := range tl.events {
		if ev.EventTrack() == track {
			out = append(out, ev)
		}
	}
	return out
}

// NotesInTrack returns the track's note edges in timeline order.
func (tl *Timeline) NotesInTrack(track *Track) []*Note {
	var out []*Note
	for _, ev := range tl.EventsInTrack(track) {
		if n, ok := ev.(*Note); ok {
			out = append(out, n)
		}
	}
	return out
}

// Start returns the start tick of the first event, 0 when empty.
func (tl *Timeline) Start() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if len(tl.events) == 0 {
		return 0
	}
	if n, ok := tl.events[0].(*Note); ok {
		return n.Start()
	}
	return tl.events[0].EventTime()
}

// End returns the end tick of the last event, 0 when empty.
func (tl *Timeline) End() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if len(tl.events) == 0 {
		return 0
	}
	last := tl.events[len(tl.events)-1]
	if n, ok := last.(*Note); ok {
		return n.End()
	}
	return last.EventTime()
}

// lowerBound returns the first index whose event time is >= tick.
func (tl *Timeline) lowerBound(tick int) int {
	return sort.Search(len(tl.events), func(i int) bool {
		return tl.events[i].EventTime() >= tick
	})
}

// upperBound returns the first index whose event time is > tick.
func (tl *Timeline) upperBound(tick int) int {
	return sort.Search(len(tl.events), func(i int) bool {
		return tl.events[i].EventTime() > tick
	})
}

// insertionPoint returns the index where ev belongs under the total order.
func (tl *Timeline) insertionPoint(ev Event) int {
	return sort.Search(len(tl.events), func(i int) bool {
		return !eventLess(tl.events[i], ev)
	})
}

// Insert places the event at its sorted position. For a note with withPair
// set, the pair is inserted as well; the two halves are never half-present.
func (tl *Timeline) Insert(ev Event, withPair bool) error {
	note, isNote := ev.(*Note)
	if withPair && isNote && note.Pair == nil {
		return ErrUnpairedNote
	}

	tl.mu.Lock()
	defer tl.mu.Unlock()

	if isNote {
		// Collision: an equal note already at this position, with an equal
		// pair when a paired insert was requested.
		idx := tl.lowerBound(note.Time)
		for j := idx; j < len(tl.events) && tl.events[j].EventTime() == note.Time; j++ {
			other, ok := tl.events[j].(*Note)
			if !ok || !other.EqualKey(note) {
				continue
			}
			if !withPair || pairEqual(other.Pair, note.Pair) {
				return ErrDuplicateEvent
			}
		}
	}

	tl.insertAt(tl.insertionPoint(ev), ev)
	if withPair && isNote {
		tl.insertAt(tl.insertionPoint(note.Pair), note.Pair)
	}
	tl.dirty.Store(true)
	return nil
}

func pairEqual(a, b *Note) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.EqualKey(b)
}

func (tl *Timeline) insertAt(i int, ev Event) {
	tl.events = append(tl.events, nil)
	copy(tl.events[i+1:], tl.events[i:])
	tl.events[i] = ev
}

func (tl *Timeline) deleteAt(i int) {
	tl.events = append(tl.events[:i], tl.events[i+1:]...)
}

// findNote locates a stored note by value equality within its equal-time run.
func (tl *Timeline) findNote(n *Note) int {
	for i := tl.lowerBound(n.Time); i < len(tl.events) && tl.events[i].EventTime() == n.Time; i++ {
		if stored, ok := tl.events[i].(*Note); ok && stored.EqualKey(n) {
			return i
		}
	}
	return -1
}

// findEvent locates a stored event: notes by value equality, message events
// by identity.
func (tl *Timeline) findEvent(ev Event) int {
	if n, ok := ev.(*Note); ok {
		return tl.findNote(n)
	}
	for i := tl.lowerBound(ev.EventTime()); i < len(tl.events) && tl.events[i].EventTime() == ev.EventTime(); i++ {
		if tl.events[i] == ev {
			return i
		}
	}
	return -1
}

// Remove deletes the event, and its pair when withPair is set. With
// byIdentity, the pair removed is the one belonging to the note actually
// stored in the timeline rather than the caller's copy, since edits elsewhere
// may have produced fresh pair objects for an equal-valued note.
func (tl *Timeline) Remove(ev Event, withPair, byIdentity bool) error {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	idx := tl.findEvent(ev)
	if idx < 0 {
		return ErrNotFound
	}

	target := ev
	if byIdentity {
		target = tl.events[idx]
	}

	// Resolve the pair before deleting anything so a failed lookup cannot
	// leave a half-removed note behind.
	pidx := -1
	if withPair {
		n, isNote := target.(*Note)
		if !isNote || n.Pair == nil {
			return ErrUnpairedNote
		}
		pidx = tl.findNote(n.Pair)
		if pidx < 0 {
			return ErrNotFound
		}
	}

	tl.deleteAt(idx)
	if pidx >= 0 {
		if pidx > idx {
			pidx--
		}
		tl.deleteAt(pidx)
	}
	tl.dirty.Store(true)
	return nil
}

// MoveNote shifts a note to a new start tick, keeping its duration. The note
// pair is removed and re-inserted rather than mutated in place so sort order
// holds.
func (tl *Timeline) MoveNote(n *Note, tick int) error {
	if tick < 0 {
		return ErrInvalidTime
	}
	if n.Pair != nil && !n.On && tick-n.Duration() < 0 {
		return ErrInvalidTime
	}
	if err := tl.Remove(n, true, false); err != nil {
		return err
	}
	n.move(tick)
	err := tl.Insert(n, true)
	if err == nil {
		debug.Log("timeline", "moved %s", n)
	}
	return err
}

// SetNoteDuration resizes a note via the same remove/mutate/insert pattern.
// A non-positive duration fails without mutating the timeline.
func (tl *Timeline) SetNoteDuration(n *Note, duration int) error {
	if duration <= 0 {
		return ErrInvalidDuration
	}
	if err := tl.Remove(n, true, false); err != nil {
		return err
	}
	if err := n.setDuration(duration); err != nil {
		return err
	}
	return tl.Insert(n, true)
}

// ReplaceEvents installs a bulk-built event list, sorting it into timeline
// order. Used by the import adapter; editor mutations go through Insert.
func (tl *Timeline) ReplaceEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return eventLess(events[i], events[j])
	})
	tl.mu.Lock()
	tl.events = events
	tl.mu.Unlock()
	tl.dirty.Store(true)
}
