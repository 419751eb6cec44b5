// Package midifile builds a timeline from a decoded standard MIDI file and
// flattens one back, per track, in time order. The byte-level codec itself is
// gitlab.com/gomidi/midi/v2/smf; this package only orchestrates it.
package midifile

import (
	"bytes"
	"os"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"midiseq/debug"
	"midiseq/synth"
	"midiseq/timeline"
)

// ErrMissingCodec is returned when import or export is attempted without a
// decoded file to work from. Report it once at startup; do not retry per
// call.
var ErrMissingCodec = errors.New("no MIDI file data available")

// Load reads and decodes a standard MIDI file. The decoder can panic on
// malformed files, so that is trapped here.
func Load(path string) (s *smf.SMF, err error) {
	defer func() {
		if r, ok := recover().(string); ok {
			err = errors.Errorf("parsing %q: %s", path, r)
		}
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", path)
	}
	s, err = smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %q", path)
	}
	return s, nil
}

// Import builds a timeline from a decoded file. Note-ons pair with the
// earliest open note of the same pitch in the same track chunk; zero-duration
// pairs are discarded. The first tempo message sets the timeline tempo and
// later ones become tempo-change events; the first program change per channel
// sets that track's instrument. Pitch bends and control changes pass through
// as message events. The backend may be nil.
func Import(s *smf.SMF, backend synth.Backend) (*timeline.Timeline, error) {
	if s == nil {
		return nil, ErrMissingCodec
	}

	tl := timeline.New()
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		tl.SetTicksPerBeat(int(mt.Resolution()))
	}

	var events []timeline.Event
	tempoSet := false
	programSet := make(map[uint8]bool)

	// Later tempo changes need a track to hang off, but a tempo map can
	// precede every channel message; they are buffered and attached once the
	// registry is settled.
	type tempoChange struct {
		tick int
		msg  smf.Message
	}
	var tempoChanges []tempoChange

	track := func(channel uint8) *timeline.Track {
		t, _ := tl.GetOrCreateTrack(int(channel), timeline.DefaultInstrument, backend)
		return t
	}

	for _, chunk := range s.Tracks {
		absTicks := 0
		var open []*timeline.Note

		for _, ev := range chunk {
			absTicks += int(ev.Delta)
			msg := ev.Message

			var channel, key, velocity, controller, value, program uint8
			var bend int16
			var bendAbs uint16
			var tempo float64

			switch {
			case msg.GetNoteStart(&channel, &key, &velocity):
				n, err := timeline.NewNote(true, key, absTicks, clampVelocity(velocity), track(channel))
				if err != nil {
					return nil, errors.Wrapf(err, "note %d at tick %d", key, absTicks)
				}
				open = append(open, n)

			case msg.GetNoteEnd(&channel, &key):
				for i, n := range open {
					if n.Number != key {
						continue
					}
					open = append(open[:i], open[i+1:]...)
					if absTicks > n.Time {
						if err := n.MakePair(absTicks); err != nil {
							return nil, errors.Wrapf(err, "note %d at tick %d", key, absTicks)
						}
						events = append(events, n, n.Pair)
					}
					// A zero-duration pair is dropped entirely.
					break
				}

			case msg.GetProgramChange(&channel, &program):
				t := track(channel)
				if !programSet[channel] {
					programSet[channel] = true
					t.SetInstrument(program, backend)
				}

			case msg.GetMetaTempo(&tempo):
				if !tempoSet {
					tempoSet = true
					tl.SetBPM(tempo)
				} else {
					tempoChanges = append(tempoChanges, tempoChange{absTicks, msg})
				}

			case msg.GetPitchBend(&channel, &bend, &bendAbs):
				me, err := timeline.NewMessageEvent(absTicks, track(channel), msg)
				if err != nil {
					return nil, err
				}
				events = append(events, me)

			case msg.GetControlChange(&channel, &controller, &value):
				me, err := timeline.NewMessageEvent(absTicks, track(channel), msg)
				if err != nil {
					return nil, err
				}
				events = append(events, me)
			}
		}
	}

	if len(tempoChanges) > 0 {
		var anchor *timeline.Track
		if tracks := tl.Tracks(); len(tracks) > 0 {
			anchor = tracks[0]
		} else {
			anchor = track(0)
		}
		for _, tc := range tempoChanges {
			me, err := timeline.NewMessageEvent(tc.tick, anchor, tc.msg)
			if err != nil {
				return nil, err
			}
			events = append(events, me)
		}
	}

	tl.ReplaceEvents(events)
	debug.Log("import", "%d events on %d tracks, %d tpb, %.1f bpm",
		tl.Len(), len(tl.Tracks()), tl.TicksPerBeat(), tl.BPM())
	return tl, nil
}

// Velocities at the wire maximum are pulled into the editable range.
func clampVelocity(v uint8) uint8 {
	if v >= timeline.MaxVelocity {
		return timeline.MaxVelocity - 1
	}
	return v
}

// Export flattens a timeline to a standard MIDI file: one track chunk per
// registry track holding that track's events in timeline order, the tempo
// meta message on the first chunk only, and one program change per chunk.
func Export(tl *timeline.Timeline) (*smf.SMF, error) {
	if tl == nil {
		return nil, ErrMissingCodec
	}

	out := smf.New()
	out.TimeFormat = smf.MetricTicks(tl.TicksPerBeat())

	tempoSet := false
	for _, track := range tl.Tracks() {
		events := tl.EventsInTrack(track)
		if len(events) == 0 {
			continue
		}

		var chunk smf.Track
		if !tempoSet {
			chunk.Add(0, smf.MetaTempo(tl.BPM()))
			tempoSet = true
		}
		chunk.Add(0, gomidi.ProgramChange(track.Channel, track.Instrument))

		last := 0
		for _, ev := range events {
			delta := uint32(ev.EventTime() - last)
			last = ev.EventTime()

			switch ev := ev.(type) {
			case *timeline.Note:
				if ev.On {
					chunk.Add(delta, gomidi.NoteOn(track.Channel, ev.Number, ev.Velocity))
				} else {
					chunk.Add(delta, gomidi.NoteOff(track.Channel, ev.Number))
				}
			case *timeline.MessageEvent:
				chunk.Add(delta, ev.Message)
			}
		}
		chunk.Close(0)
		if err := out.Add(chunk); err != nil {
			return nil, errors.Wrapf(err, "adding chunk for channel %d", track.Channel)
		}
	}

	// A timeline with no events still needs one chunk to be a valid file.
	if !tempoSet {
		var chunk smf.Track
		chunk.Add(0, smf.MetaTempo(tl.BPM()))
		chunk.Close(0)
		if err := out.Add(chunk); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Save exports the timeline and writes it to path.
func Save(tl *timeline.Timeline, path string) error {
	s, err := Export(tl)
	if err != nil {
		return err
	}
	if err := s.WriteFile(path); err != nil {
		return errors.Wrapf(err, "writing %q", path)
	}
	debug.Log("import", "exported %d events to %q", tl.Len(), path)
	return nil
}
