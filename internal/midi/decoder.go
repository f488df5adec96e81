// Package midi implements the byte-level MIDI decoder (C6): a state
// machine honoring running status and real-time interleaving, driving
// a bound voice allocator.
package midi

import "math"

// Command identifies a channel-voice status's upper nibble.
type Command uint8

const (
	NoteOff         Command = 0x8
	NoteOn          Command = 0x9
	PolyAftertouch  Command = 0xA
	ControlChange   Command = 0xB
	ProgramChange   Command = 0xC
	ChannelPressure Command = 0xD
	PitchBend       Command = 0xE
)

// Voice is the subset of voice behavior the decoder and the
// application's hooks invoke. It is wider than what the decoder itself
// needs (Trigger/Release/SetPitchBend) because CC and program-change
// hooks broadcast parameter changes across the same allocator the
// decoder borrows.
type Voice interface {
	Trigger(freqHz, volume float64)
	Release()
	SetPitchBend(bend float64)
	SetWaveShape(shape float64)
	SetBaseCutoff(cutoffHz float64)
	SetFilterQ(q float64)
	SetFilterMode(mode int)
	SetFilterEnvAmount(amount float64)
	SetFilterEnvAttack(attackSec float64)
	SetFilterEnvDecay(decaySec float64)
	SetFilterEnvSustain(sustainLvl float64)
	SetFilterEnvRelease(releaseSec float64)
}

// Allocator is the subset of the voice allocator the decoder drives.
// The decoder only borrows it during Process; it never owns it.
type Allocator interface {
	Allocate(note uint8) Voice
	// FindAllocated returns nil if no slot holds note.
	FindAllocated(note uint8) Voice
	ForEach(f func(Voice))
}

// Hooks are the application-supplied translations for messages the
// MIDI standard does not assign fixed meaning to. A nil hook is a
// no-op.
type Hooks struct {
	CC              func(channel, cc, value uint8, all Allocator)
	PolyAftertouch  func(channel, note, pressure uint8, v Voice)
	ProgramChange   func(channel, program uint8, all Allocator)
	ChannelPressure func(channel, pressure uint8)
}

type runningStatus struct {
	set     bool
	command Command
	channel uint8
}

// Decoder is a stateful byte processor bound to one voice allocator.
type Decoder struct {
	listenChannel uint8
	allocator     Allocator
	hooks         Hooks

	running   runningStatus
	data0     uint8
	haveData0 bool
}

// New creates a decoder that only acts on channel-voice messages for
// listenChannel, driving allocator and calling hooks for messages with
// no fixed MIDI meaning.
func New(listenChannel uint8, allocator Allocator, hooks Hooks) *Decoder {
	return &Decoder{listenChannel: listenChannel, allocator: allocator, hooks: hooks}
}

func dataByteCount(cmd Command) int {
	switch cmd {
	case ProgramChange, ChannelPressure:
		return 1
	default:
		return 2
	}
}

// Process feeds one MIDI byte into the decoder.
func (d *Decoder) Process(b uint8) {
	if b&0x80 != 0 {
		d.processStatus(b)
		return
	}
	d.processData(b)
}

func (d *Decoder) processStatus(b uint8) {
	switch {
	case b >= 0xF8:
		// System real-time: passes through without altering state.
		return
	case b >= 0xF0:
		// System common/exclusive: clears running status, discards any
		// in-progress message.
		d.running = runningStatus{}
		d.haveData0 = false
		return
	default:
		cmd := Command(b >> 4)
		channel := b & 0x0F
		// A new status byte always discards any in-progress message.
		d.haveData0 = false
		if channel != d.listenChannel {
			d.running = runningStatus{}
			return
		}
		d.running = runningStatus{set: true, command: cmd, channel: channel}
	}
}

func (d *Decoder) processData(b uint8) {
	if !d.running.set {
		// Unexpected data byte before any applicable status: ignored.
		return
	}
	need := dataByteCount(d.running.command)
	if !d.haveData0 && need == 2 {
		d.data0 = b
		d.haveData0 = true
		return
	}
	if need == 2 {
		d.dispatch(d.running.command, d.data0, b)
	} else {
		d.dispatch(d.running.command, b, 0)
	}
	// Running status persists; ready for another data byte of the same
	// command.
	d.haveData0 = false
}

func (d *Decoder) dispatch(cmd Command, d0, d1 uint8) {
	switch cmd {
	case NoteOn:
		if d1 == 0 {
			d.noteOff(d0, 0)
		} else {
			d.noteOn(d0, d1)
		}
	case NoteOff:
		d.noteOff(d0, d1)
	case PolyAftertouch:
		if d.hooks.PolyAftertouch != nil {
			if v := d.allocator.FindAllocated(d0); v != nil {
				d.hooks.PolyAftertouch(d.running.channel, d0, d1, v)
			}
		}
	case ControlChange:
		if d0 >= 120 {
			// Channel-mode messages: accepted, not acted on by default.
			return
		}
		if d.hooks.CC != nil {
			d.hooks.CC(d.running.channel, d0, d1, d.allocator)
		}
	case ProgramChange:
		if d.hooks.ProgramChange != nil {
			d.hooks.ProgramChange(d.running.channel, d0, d.allocator)
		}
	case ChannelPressure:
		if d.hooks.ChannelPressure != nil {
			d.hooks.ChannelPressure(d.running.channel, d0)
		}
	case PitchBend:
		value := (int(d1) << 7) | int(d0)
		normalized := float64(value-8192) / 8192.0
		d.allocator.ForEach(func(v Voice) { v.SetPitchBend(normalized) })
	}
}

func (d *Decoder) noteOn(note, velocity uint8) {
	v := d.allocator.Allocate(note)
	freq := midiToFreq(note)
	v.Trigger(freq, float64(velocity)/127.0)
}

func (d *Decoder) noteOff(note, _ uint8) {
	if v := d.allocator.FindAllocated(note); v != nil {
		v.Release()
	}
}

func midiToFreq(note uint8) float64 {
	return 440 * math.Pow(2, float64(int(note)-69)/12)
}
