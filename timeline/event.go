package timeline

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	MaxPitch = 127

	// Valid velocities are 0..MaxVelocity-1.
	MaxVelocity     uint8 = 127
	DefaultVelocity uint8 = 100
)

// Event is anything placed on the timeline: a note edge or a control message.
// Events are ordered by time ascending; two notes at equal time order by
// pitch ascending so binary search stays deterministic.
type Event interface {
	EventTime() int
	SetEventTime(tick int)
	EventTrack() *Track
}

// eventLess is the total order of the timeline.
func eventLess(a, b Event) bool {
	if a.EventTime() != b.EventTime() {
		return a.EventTime() < b.EventTime()
	}
	an, aok := a.(*Note)
	bn, bok := b.(*Note)
	if aok && bok {
		return an.Number < bn.Number
	}
	return false
}

// Note is one edge (on or off) of a sounding note. A note with a duration
// always has a Pair pointing at the opposite edge, and the pair points back.
// Notes hold a non-owning reference to their Track.
type Note struct {
	On       bool
	Number   uint8
	Time     int
	Velocity uint8
	Track    *Track
	Pair     *Note
}

// NewNote creates a single unpaired note edge.
func NewNote(on bool, number uint8, tick int, velocity uint8, track *Track) (*Note, error) {
	if tick < 0 {
		return nil, ErrInvalidTime
	}
	if velocity >= MaxVelocity {
		return nil, ErrInvalidVelocity
	}
	return &Note{
		On:       on,
		Number:   number,
		Time:     tick,
		Velocity: velocity,
		Track:    track,
	}, nil
}

// NewPairedNote creates a note-on at start with a paired note-off at
// start+duration.
func NewPairedNote(number uint8, start, duration int, velocity uint8, track *Track) (*Note, error) {
	n, err := NewNote(true, number, start, velocity, track)
	if err != nil {
		return nil, err
	}
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}
	if err := n.MakePair(start + duration); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Note) EventTime() int     { return n.Time }
func (n *Note) SetEventTime(t int) { n.Time = t }
func (n *Note) EventTrack() *Track { return n.Track }

// Channel returns the MIDI channel of the owning track.
func (n *Note) Channel() uint8 {
	return n.Track.Channel
}

// MakePair creates the opposite edge of this note at the given tick and links
// the two. An off edge must come strictly after its on edge.
func (n *Note) MakePair(tick int) error {
	if tick < 0 {
		return ErrInvalidTime
	}
	if (n.On && tick <= n.Time) || (!n.On && tick >= n.Time) {
		return ErrInvalidDuration
	}
	n.Pair = &Note{
		On:       !n.On,
		Number:   n.Number,
		Time:     tick,
		Velocity: n.Velocity,
		Track:    n.Track,
	}
	n.Pair.Pair = n
	return nil
}

// OnPair returns the on edge of this note's pair.
func (n *Note) OnPair() *Note {
	if n.On {
		return n
	}
	return n.Pair
}

// OffPair returns the off edge of this note's pair.
func (n *Note) OffPair() *Note {
	if n.On {
		return n.Pair
	}
	return n
}

// Start returns the tick the note begins sounding.
func (n *Note) Start() int {
	return n.OnPair().Time
}

// End returns the tick the note stops sounding.
func (n *Note) End() int {
	return n.OffPair().Time
}

// Duration returns End - Start; always positive for a paired note.
func (n *Note) Duration() int {
	return n.OffPair().Time - n.OnPair().Time
}

// SetVelocity updates the velocity on both halves of the pair.
func (n *Note) SetVelocity(velocity uint8) error {
	if velocity >= MaxVelocity {
		return ErrInvalidVelocity
	}
	n.Velocity = velocity
	if n.Pair != nil {
		n.Pair.Velocity = velocity
	}
	return nil
}

// EqualKey reports value equality on (on, pitch, time, channel), the identity
// used by insert collision checks and lookup removal.
func (n *Note) EqualKey(other *Note) bool {
	return other != nil &&
		n.On == other.On &&
		n.Number == other.Number &&
		n.Time == other.Time &&
		n.Track.Channel == other.Track.Channel
}

// move shifts this edge to tick, shifting the pair to preserve duration. The
// caller validates that the resulting pair time is non-negative; the timeline
// wrapper is responsible for keeping sort order.
func (n *Note) move(tick int) {
	if n.Pair != nil {
		if n.On {
			n.Pair.Time = tick + n.Duration()
		} else {
			n.Pair.Time = tick - n.Duration()
		}
	}
	n.Time = tick
}

// setDuration repositions the off edge, creating the pair if missing.
func (n *Note) setDuration(duration int) error {
	if duration <= 0 {
		return ErrInvalidDuration
	}
	if n.Pair == nil {
		if n.On {
			return n.MakePair(n.Time + duration)
		}
		return n.MakePair(n.Time - duration)
	}
	n.OffPair().Time = n.OnPair().Time + duration
	return nil
}

func (n *Note) String() string {
	edge := "off"
	if n.On {
		edge = "on"
	}
	return fmt.Sprintf("note %d %s @%d vel=%d ch=%d", n.Number, edge, n.Time, n.Velocity, n.Channel())
}

// MessageEvent is a time-stamped, non-paired control event (tempo change,
// pitch bend, continuous controller). The payload is carried verbatim and
// forwarded as-is at playback and export time.
type MessageEvent struct {
	Time    int
	Track   *Track
	Message smf.Message
}

func NewMessageEvent(tick int, track *Track, msg smf.Message) (*MessageEvent, error) {
	if tick < 0 {
		return nil, ErrInvalidTime
	}
	return &MessageEvent{Time: tick, Track: track, Message: msg}, nil
}

func (m *MessageEvent) EventTime() int     { return m.Time }
func (m *MessageEvent) SetEventTime(t int) { m.Time = t }
func (m *MessageEvent) EventTrack() *Track { return m.Track }

func (m *MessageEvent) String() string {
	return fmt.Sprintf("message %s @%d ch=%d", m.Message.String(), m.Time, m.Track.Channel)
}
