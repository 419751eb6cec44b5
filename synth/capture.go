package synth

import (
	"sync"
	"time"
)

// Call is one recorded backend invocation.
type Call struct {
	At         time.Time
	Kind       string // "noteOn", "noteOff", "program", "cc", "bend"
	Channel    uint8
	Key        uint8
	Velocity   uint8
	Bank       int
	Program    uint8
	Controller uint8
	Value      uint8
	Bend       int16
}

// Capture is a Backend that records every call with a timestamp. It exists
// for tests and for the dry-run mode of the CLI.
type Capture struct {
	mu    sync.Mutex
	calls []Call
}

func NewCapture() *Capture {
	return &Capture{}
}

func (c *Capture) record(call Call) {
	call.At = time.Now()
	c.mu.Lock()
	c.calls = append(c.calls, call)
	c.mu.Unlock()
}

func (c *Capture) NoteOn(channel, key, velocity uint8) {
	c.record(Call{Kind: "noteOn", Channel: channel, Key: key, Velocity: velocity})
}

func (c *Capture) NoteOff(channel, key uint8) {
	c.record(Call{Kind: "noteOff", Channel: channel, Key: key})
}

func (c *Capture) SelectProgram(channel uint8, bank int, program uint8) {
	c.record(Call{Kind: "program", Channel: channel, Bank: bank, Program: program})
}

func (c *Capture) ControlChange(channel, controller, value uint8) {
	c.record(Call{Kind: "cc", Channel: channel, Controller: controller, Value: value})
}

func (c *Capture) PitchBend(channel uint8, value int16) {
	c.record(Call{Kind: "bend", Channel: channel, Bend: value})
}

// Calls returns a snapshot of the recorded calls.
func (c *Capture) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// Notes returns only the noteOn/noteOff calls.
func (c *Capture) Notes() []Call {
	var out []Call
	for _, call := range c.Calls() {
		if call.Kind == "noteOn" || call.Kind == "noteOff" {
			out = append(out, call)
		}
	}
	return out
}
