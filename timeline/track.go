package timeline

import (
	"fmt"

	"midiseq/debug"
	"midiseq/synth"
)

const (
	// Channel 10 (0-indexed 9) is reserved for percussion per General MIDI.
	PercussionChannel uint8 = 9

	DefaultBank    = 0
	PercussionBank = 128

	DefaultInstrument uint8 = 0

	MaxChannel uint8 = 15
)

// Track identifies a MIDI channel and its current instrument. Tracks are
// owned by the timeline's registry; notes and message events hold non-owning
// references to them.
type Track struct {
	Channel    uint8
	Instrument uint8
}

// IsPercussion reports whether this track is the reserved percussion channel.
func (t *Track) IsPercussion() bool {
	return t.Channel == PercussionChannel
}

// Bank returns the percussion bank on the reserved channel, else the default
// melodic bank.
func (t *Track) Bank() int {
	if t.IsPercussion() {
		return PercussionBank
	}
	return DefaultBank
}

// SetInstrument updates the track's program and, when a backend is attached,
// registers it there.
func (t *Track) SetInstrument(program uint8, backend synth.Backend) {
	t.Instrument = program
	if backend != nil {
		backend.SelectProgram(t.Channel, t.Bank(), program)
	}
}

func (t *Track) String() string {
	return fmt.Sprintf("channel %d: program %d", t.Channel, t.Instrument)
}

// Tracks returns a snapshot of the registry in creation order.
func (tl *Timeline) Tracks() []*Track {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	out := make([]*Track, len(tl.tracks))
	copy(out, tl.tracks)
	return out
}

// HasChannel reports whether a track exists for the channel.
func (tl *Timeline) HasChannel(channel uint8) bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.trackFor(channel) != nil
}

// TrackFor returns the track for a channel, or nil.
func (tl *Timeline) TrackFor(channel uint8) *Track {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.trackFor(channel)
}

func (tl *Timeline) trackFor(channel uint8) *Track {
	for _, t := range tl.tracks {
		if t.Channel == channel {
			return t
		}
	}
	return nil
}

// GetOrCreateTrack returns the track for the channel, allocating one if
// needed. Pass a negative channel to pick the first free non-percussion
// channel. A newly created track registers its instrument with the backend
// when one is attached.
func (tl *Timeline) GetOrCreateTrack(channel int, instrument uint8, backend synth.Backend) (*Track, error) {
	tl.mu.Lock()
	if channel < 0 {
		free := -1
		for ch := 0; ch <= int(MaxChannel); ch++ {
			if uint8(ch) == PercussionChannel {
				continue
			}
			if tl.trackFor(uint8(ch)) == nil {
				free = ch
				break
			}
		}
		if free < 0 {
			tl.mu.Unlock()
			return nil, ErrNoFreeChannel
		}
		channel = free
	}
	if existing := tl.trackFor(uint8(channel)); existing != nil {
		tl.mu.Unlock()
		return existing, nil
	}
	track := &Track{Channel: uint8(channel)}
	tl.tracks = append(tl.tracks, track)
	tl.mu.Unlock()

	debug.Log("timeline", "created track on channel %d", channel)
	track.SetInstrument(instrument, backend)
	return track, nil
}

// DeleteTrack removes every event referencing the track, then drops the
// track from the registry. Whether to create a replacement track is the
// caller's policy.
func (tl *Timeline) DeleteTrack(track *Track) error {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	idx := -1
	for i, t := range tl.tracks {
		if t == track {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}

	kept := tl.events[:0]
	for _, ev := range tl.events {
		if ev.EventTrack() != track {
			kept = append(kept, ev)
		}
	}
	tl.events = kept
	tl.tracks = append(tl.tracks[:idx], tl.tracks[idx+1:]...)
	tl.dirty.Store(true)

	debug.Log("timeline", "deleted track on channel %d", track.Channel)
	return nil
}
