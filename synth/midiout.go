package synth

import (
	"sync"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"

	"midiseq/debug"
)

// ErrNoBackend is returned when no usable MIDI output port exists. Callers
// should report it once at startup and disable playback rather than retry.
var ErrNoBackend = errors.New("no MIDI output port available")

// GM percussion kits live in their own bank; melodic banks are selected with
// bank-select controllers, percussion channels need no select at all.
const (
	ccBankSelectMSB uint8 = 0
	ccBankSelectLSB uint8 = 32
	ccAllNotesOff   uint8 = 123

	percussionBank = 128
)

// MIDIOut sends backend calls to a MIDI output port.
type MIDIOut struct {
	portName string
	send     func(gomidi.Message) error
	mu       sync.Mutex
}

// OpenMIDIOut opens the named MIDI output port, or the first available port
// when name is empty.
func OpenMIDIOut(name string) (*MIDIOut, error) {
	ports := gomidi.GetOutPorts()
	if len(ports) == 0 {
		return nil, ErrNoBackend
	}

	port := ports[0]
	if name != "" {
		found := false
		for _, p := range ports {
			if p.String() == name {
				port = p
				found = true
				break
			}
		}
		if !found {
			return nil, errors.Wrapf(ErrNoBackend, "port %q not found", name)
		}
	}

	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, errors.Wrapf(err, "opening port %q", port.String())
	}

	debug.Log("synth", "opened output port %q", port.String())
	return &MIDIOut{portName: port.String(), send: send}, nil
}

// PortName returns the name of the open output port.
func (m *MIDIOut) PortName() string {
	return m.portName
}

func (m *MIDIOut) emit(msg gomidi.Message) {
	m.mu.Lock()
	err := m.send(msg)
	m.mu.Unlock()
	if err != nil {
		debug.Log("synth", "send failed: %v", err)
	}
}

func (m *MIDIOut) NoteOn(channel, key, velocity uint8) {
	m.emit(gomidi.NoteOn(channel, key, velocity))
}

func (m *MIDIOut) NoteOff(channel, key uint8) {
	m.emit(gomidi.NoteOff(channel, key))
}

// SelectProgram assigns an instrument to a channel. Melodic banks are
// selected via bank-select MSB/LSB; the percussion bank is implicit in the
// channel, so only the program change is sent for it.
func (m *MIDIOut) SelectProgram(channel uint8, bank int, program uint8) {
	if bank >= 0 && bank < percussionBank {
		m.emit(gomidi.ControlChange(channel, ccBankSelectMSB, uint8(bank>>7)))
		m.emit(gomidi.ControlChange(channel, ccBankSelectLSB, uint8(bank&0x7f)))
	}
	m.emit(gomidi.ProgramChange(channel, program))
}

func (m *MIDIOut) ControlChange(channel, controller, value uint8) {
	m.emit(gomidi.ControlChange(channel, controller, value))
}

func (m *MIDIOut) PitchBend(channel uint8, value int16) {
	m.emit(gomidi.Pitchbend(channel, value))
}

// Silence sends all-notes-off on every channel. Call before shutdown so a
// killed scheduler cannot leave notes ringing.
func (m *MIDIOut) Silence() {
	for ch := 0; ch < 16; ch++ {
		m.emit(gomidi.ControlChange(uint8(ch), ccAllNotesOff, 0))
	}
}
