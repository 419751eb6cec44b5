package synth

// Backend is the audio-producing surface the sequencer drives. Implementations
// must be safe to call from the playback goroutine. Failures are not
// recoverable mid-song, so the methods report nothing; a backend that cannot
// be initialized should fail at open time instead.
type Backend interface {
	NoteOn(channel, key, velocity uint8)
	NoteOff(channel, key uint8)
	SelectProgram(channel uint8, bank int, program uint8)
	ControlChange(channel, controller, value uint8)
	PitchBend(channel uint8, value int16)
}
