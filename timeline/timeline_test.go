package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPaired(t *testing.T, tl *Timeline, track *Track, number uint8, start, duration int) *Note {
	t.Helper()
	n, err := NewPairedNote(number, start, duration, DefaultVelocity, track)
	require.NoError(t, err)
	require.NoError(t, tl.Insert(n, true))
	return n
}

func newTestTimeline(t *testing.T) (*Timeline, *Track) {
	t.Helper()
	tl := New()
	track, err := tl.GetOrCreateTrack(0, DefaultInstrument, nil)
	require.NoError(t, err)
	return tl, track
}

func assertSorted(t *testing.T, tl *Timeline) {
	t.Helper()
	events := tl.Events()
	for i := 1; i < len(events); i++ {
		assert.False(t, eventLess(events[i], events[i-1]),
			"events out of order at %d: %v then %v", i, events[i-1], events[i])
	}
}

func TestInsertDeleteScenario(t *testing.T) {
	tl, track := newTestTimeline(t)
	assert := assert.New(t)

	n := mustPaired(t, tl, track, 60, 0, 480)
	assert.Equal(2, tl.Len())
	assert.Equal(480, tl.End())

	require.NoError(t, tl.Remove(n, true, false))
	assert.Equal(0, tl.Len())
	assert.Equal(0, tl.End())
	assert.Equal(0, tl.Start())
}

func TestPairingSymmetry(t *testing.T) {
	tl, track := newTestTimeline(t)
	mustPaired(t, tl, track, 60, 0, 480)
	mustPaired(t, tl, track, 64, 120, 240)

	for _, ev := range tl.Events() {
		n, ok := ev.(*Note)
		if !ok || n.Pair == nil {
			continue
		}
		assert.Same(t, n, n.Pair.Pair)
		assert.NotEqual(t, n.On, n.Pair.On)
		assert.Positive(t, n.Duration())
	}
}

func TestInsertKeepsSortOrder(t *testing.T) {
	tl, track := newTestTimeline(t)

	mustPaired(t, tl, track, 72, 960, 240)
	mustPaired(t, tl, track, 60, 0, 480)
	mustPaired(t, tl, track, 67, 0, 120)
	mustPaired(t, tl, track, 64, 480, 480)
	assertSorted(t, tl)

	// Equal-time notes order by pitch.
	first := tl.Events()[0].(*Note)
	second := tl.Events()[1].(*Note)
	assert.Equal(t, uint8(60), first.Number)
	assert.Equal(t, uint8(67), second.Number)
}

func TestInsertDuplicateFails(t *testing.T) {
	tl, track := newTestTimeline(t)
	mustPaired(t, tl, track, 60, 0, 480)

	dup, err := NewPairedNote(60, 0, 480, DefaultVelocity, track)
	require.NoError(t, err)
	assert.ErrorIs(t, tl.Insert(dup, true), ErrDuplicateEvent)
	assert.Equal(t, 2, tl.Len())
}

func TestInsertUnpairedFails(t *testing.T) {
	tl, track := newTestTimeline(t)
	n, err := NewNote(true, 60, 0, DefaultVelocity, track)
	require.NoError(t, err)
	assert.ErrorIs(t, tl.Insert(n, true), ErrUnpairedNote)
	assert.Equal(t, 0, tl.Len())
}

func TestRemoveMissingFails(t *testing.T) {
	tl, track := newTestTimeline(t)
	n, err := NewPairedNote(60, 0, 480, DefaultVelocity, track)
	require.NoError(t, err)
	assert.ErrorIs(t, tl.Remove(n, true, false), ErrNotFound)
}

func TestRemoveByIdentityUsesStoredPair(t *testing.T) {
	tl, track := newTestTimeline(t)
	mustPaired(t, tl, track, 60, 0, 480)

	// An externally built copy: same on edge, different pair timing.
	stale, err := NewPairedNote(60, 0, 240, DefaultVelocity, track)
	require.NoError(t, err)

	// Without the lookup the stale pair cannot be found.
	assert.ErrorIs(t, tl.Remove(stale, true, false), ErrNotFound)

	// With it, the stored note and its actual pair are removed.
	require.NoError(t, tl.Remove(stale, true, true))
	assert.Equal(t, 0, tl.Len())
}

func TestMovePreservesDuration(t *testing.T) {
	tl, track := newTestTimeline(t)
	n := mustPaired(t, tl, track, 64, 100, 50)

	require.NoError(t, tl.MoveNote(n, 200))
	assert.Equal(t, 200, n.Start())
	assert.Equal(t, 250, n.End())
	assert.Equal(t, 2, tl.Len())
	assertSorted(t, tl)
}

func TestMoveRejectsNegativeTimes(t *testing.T) {
	tl, track := newTestTimeline(t)
	n := mustPaired(t, tl, track, 64, 100, 50)

	assert.ErrorIs(t, tl.MoveNote(n, -1), ErrInvalidTime)

	// Moving the off edge so the on edge would go negative also fails.
	assert.ErrorIs(t, tl.MoveNote(n.Pair, 20), ErrInvalidTime)

	assert.Equal(t, 100, n.Start())
	assert.Equal(t, 2, tl.Len())
}

func TestSetDurationValidation(t *testing.T) {
	tl, track := newTestTimeline(t)
	n := mustPaired(t, tl, track, 60, 100, 50)

	assert.ErrorIs(t, tl.SetNoteDuration(n, 0), ErrInvalidDuration)
	assert.ErrorIs(t, tl.SetNoteDuration(n, -10), ErrInvalidDuration)
	assert.Equal(t, 50, n.Duration())
	assert.Equal(t, 2, tl.Len())

	require.NoError(t, tl.SetNoteDuration(n, 200))
	assert.Equal(t, 100, n.Start())
	assert.Equal(t, 300, n.End())
	assertSorted(t, tl)
}

func TestSetVelocityMirrorsPair(t *testing.T) {
	tl, track := newTestTimeline(t)
	n := mustPaired(t, tl, track, 60, 0, 480)

	require.NoError(t, n.SetVelocity(80))
	assert.Equal(t, uint8(80), n.Velocity)
	assert.Equal(t, uint8(80), n.Pair.Velocity)

	assert.ErrorIs(t, n.SetVelocity(MaxVelocity), ErrInvalidVelocity)
}

func TestIndexAtSentinels(t *testing.T) {
	tl, track := newTestTimeline(t)
	assert := assert.New(t)

	// Empty: everything is past the end.
	assert.Equal(0, tl.IndexAt(0, Filter{}))

	mustPaired(t, tl, track, 60, 10, 10)

	// Before an existing event but not at it.
	assert.Equal(-1, tl.IndexAt(5, Filter{}))
	// Past the last event.
	assert.Equal(tl.Len(), tl.IndexAt(100, Filter{}))
	// Exact hit.
	assert.Equal(0, tl.IndexAt(10, Filter{}))
	// Exact time, but the filter rejects everything there.
	assert.Equal(-1, tl.IndexAt(20, Filter{OnlyNoteOn: true}))
}

func TestPreviousAndNextIndex(t *testing.T) {
	tl, track := newTestTimeline(t)
	assert := assert.New(t)

	other, err := tl.GetOrCreateTrack(1, DefaultInstrument, nil)
	require.NoError(t, err)

	a := mustPaired(t, tl, track, 60, 0, 10)
	b := mustPaired(t, tl, other, 64, 20, 10)

	assert.Equal(-1, tl.PreviousIndex(0, Filter{}))
	assert.Equal(a, tl.PreviousEvent(20, Filter{OnlyNoteOn: true}))
	assert.Equal(b, tl.NextEvent(20, Filter{OnlyNoteOn: true}, true))

	// Non-inclusive skips the anchor time.
	next := tl.NextIndex(20, Filter{Track: other}, false)
	assert.Equal(b.Pair, tl.At(next))

	// Track filter skips foreign events.
	assert.Equal(b, tl.NextEvent(0, Filter{Track: other, OnlyNoteOn: true}, true))
	assert.Equal(tl.Len(), tl.NextIndex(100, Filter{}, true))
}

func TestChordGrouping(t *testing.T) {
	tl, track := newTestTimeline(t)

	mustPaired(t, tl, track, 67, 0, 10)
	mustPaired(t, tl, track, 60, 0, 10)
	mustPaired(t, tl, track, 64, 0, 10)
	mustPaired(t, tl, track, 72, 480, 10)

	chord := tl.ChordAt(0, track)
	require.Len(t, chord, 3)
	assert.Equal(t, uint8(60), chord[0].Number)
	assert.Equal(t, uint8(64), chord[1].Number)
	assert.Equal(t, uint8(67), chord[2].Number)

	next := tl.NextChord(0, track, false)
	require.Len(t, next, 1)
	assert.Equal(t, uint8(72), next[0].Number)

	prev := tl.PreviousChord(480, track)
	require.Len(t, prev, 3)

	assert.Empty(t, tl.ChordAt(5, track))
}

func TestChordTrackFilter(t *testing.T) {
	tl, track := newTestTimeline(t)
	other, err := tl.GetOrCreateTrack(1, DefaultInstrument, nil)
	require.NoError(t, err)

	mustPaired(t, tl, track, 60, 0, 10)
	mustPaired(t, tl, other, 64, 0, 10)

	chord := tl.ChordAt(0, track)
	require.Len(t, chord, 1)
	assert.Equal(t, uint8(60), chord[0].Number)

	both := tl.ChordAt(0, nil)
	assert.Len(t, both, 2)
}

func TestDirtyFlag(t *testing.T) {
	tl, track := newTestTimeline(t)
	tl.ClearDirty()

	mustPaired(t, tl, track, 60, 0, 480)
	assert.True(t, tl.TakeDirty())
	assert.False(t, tl.TakeDirty())
}

func TestTickConversions(t *testing.T) {
	tl := New()
	tl.SetTicksPerBeat(480)
	tl.SetColsPerBeat(4)

	assert := assert.New(t)
	assert.Equal(120, tl.ColsToTicks(1))
	assert.Equal(8, tl.TicksToCols(960))
	assert.Equal(2, tl.TicksToBeats(1100))
	assert.Equal(960, tl.BeatsToTicks(2))
}

func TestGetOrCreateTrackPicksFreeChannel(t *testing.T) {
	tl := New()
	assert := assert.New(t)

	for ch := 0; ch <= 8; ch++ {
		_, err := tl.GetOrCreateTrack(ch, DefaultInstrument, nil)
		require.NoError(t, err)
	}

	// The next free channel skips the reserved percussion channel.
	track, err := tl.GetOrCreateTrack(-1, DefaultInstrument, nil)
	require.NoError(t, err)
	assert.Equal(uint8(10), track.Channel)

	// Addressing an existing channel returns the same track.
	again, err := tl.GetOrCreateTrack(10, DefaultInstrument, nil)
	require.NoError(t, err)
	assert.Same(track, again)
}

func TestGetOrCreateTrackExhaustion(t *testing.T) {
	tl := New()
	for ch := 0; ch <= int(MaxChannel); ch++ {
		_, err := tl.GetOrCreateTrack(ch, DefaultInstrument, nil)
		require.NoError(t, err)
	}
	_, err := tl.GetOrCreateTrack(-1, DefaultInstrument, nil)
	assert.ErrorIs(t, err, ErrNoFreeChannel)
}

func TestPercussionBank(t *testing.T) {
	tl := New()
	drums, err := tl.GetOrCreateTrack(int(PercussionChannel), DefaultInstrument, nil)
	require.NoError(t, err)
	melodic, err := tl.GetOrCreateTrack(0, DefaultInstrument, nil)
	require.NoError(t, err)

	assert.True(t, drums.IsPercussion())
	assert.Equal(t, PercussionBank, drums.Bank())
	assert.False(t, melodic.IsPercussion())
	assert.Equal(t, DefaultBank, melodic.Bank())
}

func TestDeleteTrackRemovesItsEvents(t *testing.T) {
	tl, track := newTestTimeline(t)
	other, err := tl.GetOrCreateTrack(1, DefaultInstrument, nil)
	require.NoError(t, err)

	mustPaired(t, tl, track, 60, 0, 480)
	kept := mustPaired(t, tl, other, 64, 0, 480)

	require.NoError(t, tl.DeleteTrack(track))
	assert.Equal(t, 2, tl.Len())
	assert.Len(t, tl.Tracks(), 1)
	assert.Equal(t, []*Note{kept, kept.Pair}, tl.NotesInTrack(other))

	assert.ErrorIs(t, tl.DeleteTrack(track), ErrNotFound)
}

func TestNoteConstructorValidation(t *testing.T) {
	track := &Track{Channel: 0}
	assert := assert.New(t)

	_, err := NewNote(true, 60, -1, DefaultVelocity, track)
	assert.ErrorIs(err, ErrInvalidTime)

	_, err = NewNote(true, 60, 0, MaxVelocity, track)
	assert.ErrorIs(err, ErrInvalidVelocity)

	_, err = NewPairedNote(60, 0, 0, DefaultVelocity, track)
	assert.ErrorIs(err, ErrInvalidDuration)

	n, err := NewNote(true, 60, 10, DefaultVelocity, track)
	assert.NoError(err)
	assert.ErrorIs(n.MakePair(10), ErrInvalidDuration)
	assert.ErrorIs(n.MakePair(-1), ErrInvalidTime)
}
