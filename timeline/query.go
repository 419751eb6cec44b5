package timeline

// Filter narrows positional queries to one track and/or note-on events only.
// The zero value matches everything.
type Filter struct {
	Track      *Track
	OnlyNoteOn bool
}

func (f Filter) matches(ev Event) bool {
	if f.Track != nil && ev.EventTrack() != f.Track {
		return false
	}
	if f.OnlyNoteOn {
		n, ok := ev.(*Note)
		if !ok || !n.On {
			return false
		}
	}
	return true
}

// IndexAt returns the index of an event exactly at tick matching the filter.
// It returns Len() when every event is before tick, and -1 when nothing
// matches at tick itself. Queries anchor on binary search and scan only the
// equal-time run, so they stay O(log n + k).
func (tl *Timeline) IndexAt(tick int, f Filter) int {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	i := tl.lowerBound(tick)
	if i >= len(tl.events) {
		return len(tl.events)
	}
	for ; i < len(tl.events) && tl.events[i].EventTime() == tick; i++ {
		if f.matches(tl.events[i]) {
			return i
		}
	}
	return -1
}

// PreviousIndex returns the nearest matching event strictly before tick, or
// -1 when none exists.
func (tl *Timeline) PreviousIndex(tick int, f Filter) int {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	for i := tl.lowerBound(tick) - 1; i >= 0; i-- {
		if f.matches(tl.events[i]) {
			return i
		}
	}
	return -1
}

// NextIndex returns the nearest matching event at-or-after tick (strictly
// after when inclusive is false), or Len() when none exists.
func (tl *Timeline) NextIndex(tick int, f Filter, inclusive bool) int {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	i := tl.upperBound(tick)
	if inclusive {
		i = tl.lowerBound(tick)
	}
	for ; i < len(tl.events); i++ {
		if f.matches(tl.events[i]) {
			return i
		}
	}
	return len(tl.events)
}

// EventAt returns the matching event exactly at tick, or nil.
func (tl *Timeline) EventAt(tick int, f Filter) Event {
	i := tl.IndexAt(tick, f)
	return tl.At(i)
}

// PreviousEvent returns the nearest matching event strictly before tick.
func (tl *Timeline) PreviousEvent(tick int, f Filter) Event {
	return tl.At(tl.PreviousIndex(tick, f))
}

// NextEvent returns the nearest matching event at-or-after tick.
func (tl *Timeline) NextEvent(tick int, f Filter, inclusive bool) Event {
	return tl.At(tl.NextIndex(tick, f, inclusive))
}

// chord collects every note-on sharing the anchor's timestamp (restricted to
// track when given), in pitch order.
func (tl *Timeline) chord(anchor int, track *Track) []*Note {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	if anchor < 0 || anchor >= len(tl.events) {
		return nil
	}
	tick := tl.events[anchor].EventTime()
	f := Filter{Track: track, OnlyNoteOn: true}

	start := anchor
	for start > 0 && tl.events[start-1].EventTime() == tick {
		start--
	}
	var notes []*Note
	for i := start; i < len(tl.events) && tl.events[i].EventTime() == tick; i++ {
		if f.matches(tl.events[i]) {
			notes = append(notes, tl.events[i].(*Note))
		}
	}
	return notes
}

// ChordAt returns all note-ons exactly at tick (on the track, when given),
// treated by editors as one edit unit.
func (tl *Timeline) ChordAt(tick int, track *Track) []*Note {
	return tl.chord(tl.IndexAt(tick, Filter{Track: track, OnlyNoteOn: true}), track)
}

// PreviousChord returns the chord of the nearest note-on strictly before
// tick.
func (tl *Timeline) PreviousChord(tick int, track *Track) []*Note {
	return tl.chord(tl.PreviousIndex(tick, Filter{Track: track, OnlyNoteOn: true}), track)
}

// NextChord returns the chord of the nearest note-on at-or-after tick
// (strictly after when inclusive is false).
func (tl *Timeline) NextChord(tick int, track *Track, inclusive bool) []*Note {
	return tl.chord(tl.NextIndex(tick, Filter{Track: track, OnlyNoteOn: true}, inclusive), track)
}
