// Package polysynth wires the MIDI decoder, voice allocator, and output
// stage into one engine: feed it raw MIDI bytes and pull rendered
// stereo blocks.
package polysynth

import (
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/cbegin/polysynth/internal/envelope"
	"github.com/cbegin/polysynth/internal/filter"
	"github.com/cbegin/polysynth/internal/midi"
	"github.com/cbegin/polysynth/internal/output"
	"github.com/cbegin/polysynth/internal/program"
	"github.com/cbegin/polysynth/internal/voice"
)

// defaultRingSize is generous for typical note-dense MIDI streams; Push
// fails silently (dropping the byte) if a producer ever outruns it.
const defaultRingSize = 4096

// voiceAdapter narrows *voice.Voice down to the midi.Voice interface.
// Go requires exact method signatures for interface satisfaction, and
// *voice.Voice.SetFilterMode takes a filter.Mode rather than an int, so
// it cannot satisfy midi.Voice directly.
type voiceAdapter struct{ v *voice.Voice }

func (a voiceAdapter) Trigger(freqHz, volume float64)    { a.v.Trigger(freqHz, volume) }
func (a voiceAdapter) Release()                          { a.v.Release() }
func (a voiceAdapter) SetPitchBend(bend float64)         { a.v.SetPitchBend(bend) }
func (a voiceAdapter) SetWaveShape(shape float64)        { a.v.SetWaveShape(shape) }
func (a voiceAdapter) SetBaseCutoff(cutoffHz float64)    { a.v.SetBaseCutoff(cutoffHz) }
func (a voiceAdapter) SetFilterQ(q float64)              { a.v.SetFilterQ(q) }
func (a voiceAdapter) SetFilterMode(mode int)            { a.v.SetFilterMode(filter.Mode(mode)) }
func (a voiceAdapter) SetFilterEnvAmount(amount float64) { a.v.SetFilterEnvAmount(amount) }
func (a voiceAdapter) SetFilterEnvAttack(s float64)      { a.v.SetFilterEnvAttack(s) }
func (a voiceAdapter) SetFilterEnvDecay(s float64)       { a.v.SetFilterEnvDecay(s) }
func (a voiceAdapter) SetFilterEnvSustain(s float64)     { a.v.SetFilterEnvSustain(s) }
func (a voiceAdapter) SetFilterEnvRelease(s float64)     { a.v.SetFilterEnvRelease(s) }

// midiAllocator narrows *voice.Allocator down to midi.Allocator.
type midiAllocator struct{ a *voice.Allocator }

func (m midiAllocator) Allocate(note uint8) midi.Voice {
	return voiceAdapter{m.a.Allocate(note)}
}

func (m midiAllocator) FindAllocated(note uint8) midi.Voice {
	v := m.a.FindAllocated(note)
	if v == nil {
		return nil
	}
	return voiceAdapter{v}
}

func (m midiAllocator) ForEach(f func(midi.Voice)) {
	m.a.ForEach(func(v *voice.Voice) { f(voiceAdapter{v}) })
}

// outputAllocator narrows *voice.Allocator down to output.Allocator.
// *voice.Voice already satisfies output.Voice (NextSample() float64)
// directly, so only the ForEach signature needs bridging.
type outputAllocator struct{ a *voice.Allocator }

func (o outputAllocator) ForEach(f func(output.Voice)) {
	o.a.ForEach(func(v *voice.Voice) { f(v) })
}

// EventKind identifies what a Watch event reports.
type EventKind int

const (
	EventVoiceStolen EventKind = iota
	EventAmpEnvPhaseChanged
	EventFilterEnvPhaseChanged
	EventProgramChanged
	// EventProgramChangeRequested reports an incoming MIDI ProgramChange
	// message. The core only surfaces the request; it never loads the
	// program itself, since loading touches storage I/O and must stay
	// off the audio thread. The embedder's own goroutine should call
	// LoadProgram(ev.ProgramNumber) in response.
	EventProgramChangeRequested
)

// Event carries telemetry surfaced by Engine.Watch. Fields unused by a
// given Kind are left at their zero value.
type Event struct {
	Kind          EventKind
	VoiceSlot     int
	StolenNote    uint8
	NewNote       uint8
	Phase         envelope.Phase
	ProgramNumber int
}

// ADSRSettings bundles the amplitude envelope parameters applied to
// every voice at construction. Times are in seconds, sustain is a
// level in [0,1].
type ADSRSettings struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

// defaultAmpEnvelope is a plain gated shape: fast attack, light decay
// into a high sustain, short release tail.
var defaultAmpEnvelope = ADSRSettings{Attack: 0.005, Decay: 0.05, Sustain: 0.8, Release: 0.2}

// EngineConfig configures a new Engine. MaxVoices bounds the fixed-size
// voice pool, allocated once at construction and never resized.
type EngineConfig struct {
	SampleRate     float64
	MaxVoices      int
	ListenChannel  uint8
	InitialProgram voice.Program
	AmpEnvelope    ADSRSettings
}

// DefaultEngineConfig returns a reasonable EngineConfig for sampleRate:
// 16 voices, channel 0, factory-default program and amplitude envelope.
func DefaultEngineConfig(sampleRate float64) EngineConfig {
	return EngineConfig{
		SampleRate:     sampleRate,
		MaxVoices:      16,
		ListenChannel:  0,
		InitialProgram: voice.DefaultProgram(),
		AmpEnvelope:    defaultAmpEnvelope,
	}
}

// Engine is the complete real-time signal path: a MIDI byte queue feeds
// a decoder, which drives a fixed voice pool, which an output stage
// mixes down to interleaved stereo float32. Process is the only method
// meant to run on the audio callback thread; everything else (EnqueueMIDI,
// LoadProgram, SaveProgram, Watch) is safe to call from any goroutine.
type Engine struct {
	sampleRate float64
	allocator  *voice.Allocator
	decoder    *midi.Decoder
	stage      *output.Stage
	cc         *program.DefaultCC
	ring       *midi.Ring
	storage    program.Storage
	logger     *log.Logger

	mono []float64

	ampPhase    []envelope.Phase
	filterPhase []envelope.Phase

	// eventCh holds the current Watch channel. An atomic pointer swap
	// keeps sendEvent lock-free: Process runs on the audio thread and
	// must never block or take a mutex.
	eventCh atomic.Pointer[chan Event]
}

// NewEngine builds a complete engine: allocates the voice pool once,
// applies cfg.InitialProgram to every voice, and wires the decoder's
// default CC hooks to the output stage.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.MaxVoices <= 0 {
		cfg.MaxVoices = 16
	}
	if cfg.AmpEnvelope == (ADSRSettings{}) {
		cfg.AmpEnvelope = defaultAmpEnvelope
	}

	allocator := voice.NewAllocator(cfg.MaxVoices, func() *voice.Voice {
		return voice.New(cfg.SampleRate)
	})
	allocator.ForEach(func(v *voice.Voice) {
		cfg.InitialProgram.Apply(v)
		v.SetAmpEnvParams(cfg.AmpEnvelope.Attack, cfg.AmpEnvelope.Decay, cfg.AmpEnvelope.Sustain, cfg.AmpEnvelope.Release)
	})

	stage := output.New(cfg.SampleRate)
	cc := program.NewDefaultCC(stage)

	e := &Engine{
		sampleRate:  cfg.SampleRate,
		allocator:   allocator,
		stage:       stage,
		cc:          cc,
		ring:        midi.NewRing(defaultRingSize),
		logger:      log.Default(),
		ampPhase:    make([]envelope.Phase, cfg.MaxVoices),
		filterPhase: make([]envelope.Phase, cfg.MaxVoices),
	}

	allocator.OnSteal = func(slotIndex int, stolenNote, newNote uint8) {
		e.sendEvent(Event{Kind: EventVoiceStolen, VoiceSlot: slotIndex, StolenNote: stolenNote, NewNote: newNote})
	}

	e.decoder = midi.New(cfg.ListenChannel, midiAllocator{allocator}, midi.Hooks{
		CC: cc.HandleCC,
		// ProgramChange only surfaces the request; loading touches
		// storage and must never run on the audio thread. The embedder
		// picks this up via Watch() and calls LoadProgram from its own
		// goroutine.
		ProgramChange: func(_ uint8, programNumber uint8, _ midi.Allocator) {
			e.sendEvent(Event{Kind: EventProgramChangeRequested, ProgramNumber: int(programNumber)})
		},
	})

	return e
}

// SetStorage binds a program.Storage backend for LoadProgram/SaveProgram.
// It is optional; an engine with no storage bound simply fails both
// calls.
func (e *Engine) SetStorage(storage program.Storage) {
	e.storage = storage
}

// EnqueueMIDI pushes one raw MIDI byte onto the engine's cross-thread
// ring buffer. It never blocks; it returns false if the ring is full.
func (e *Engine) EnqueueMIDI(b byte) bool {
	return e.ring.Push(b)
}

// Process drains any queued MIDI bytes through the decoder, then renders
// one block of interleaved stereo float32 samples into dst
// (len(dst) must be even). It implements internal/audio's SampleSource,
// so an *Engine can be handed straight to audio.NewPlayer.
func (e *Engine) Process(dst []float32) {
	frames := len(dst) / 2
	if cap(e.mono) < frames {
		e.mono = make([]float64, frames)
	}
	e.mono = e.mono[:frames]

	e.ring.DrainInto(e.decoder.Process)
	e.stage.RenderBlock(outputAllocator{e.allocator}, e.mono, dst)

	e.pollEnvelopePhases()
}

func (e *Engine) pollEnvelopePhases() {
	e.allocator.ForEachIndexed(func(i int, v *voice.Voice) {
		if p := v.AmpPhase(); p != e.ampPhase[i] {
			e.ampPhase[i] = p
			e.sendEvent(Event{Kind: EventAmpEnvPhaseChanged, VoiceSlot: i, Phase: p})
		}
		if p := v.FilterEnvPhase(); p != e.filterPhase[i] {
			e.filterPhase[i] = p
			e.sendEvent(Event{Kind: EventFilterEnvPhaseChanged, VoiceSlot: i, Phase: p})
		}
	})
}

// LoadProgram loads programNumber from the bound storage and applies it
// to every voice. It reports false (and leaves voice state untouched)
// if no storage is bound or the load fails.
func (e *Engine) LoadProgram(programNumber int) bool {
	if e.storage == nil {
		return false
	}
	p, ok := e.storage.Load(programNumber)
	if !ok {
		return false
	}
	e.allocator.ForEach(func(v *voice.Voice) { p.Apply(v) })
	e.sendEvent(Event{Kind: EventProgramChanged, ProgramNumber: programNumber})
	e.logger.Info("program loaded", "program", programNumber)
	return true
}

// SaveProgram saves p under programNumber via the bound storage. It
// reports false if no storage is bound or the save fails.
func (e *Engine) SaveProgram(programNumber int, p voice.Program) bool {
	if e.storage == nil {
		return false
	}
	return e.storage.Save(programNumber, p)
}

// Watch returns a channel of telemetry events (voice steals and
// envelope phase transitions). The channel is buffered (cap 32) and
// best-effort: a full channel silently drops events rather than
// blocking Process. Only the most recently returned channel receives
// events.
func (e *Engine) Watch() <-chan Event {
	ch := make(chan Event, 32)
	e.eventCh.Store(&ch)
	return ch
}

func (e *Engine) sendEvent(ev Event) {
	ch := e.eventCh.Load()
	if ch == nil {
		return
	}
	select {
	case *ch <- ev:
	default:
	}
}

// SetPitchBendRange sets the pitch-bend range (semitones) for every
// voice in the pool.
func (e *Engine) SetPitchBendRange(semitones float64) {
	e.allocator.ForEach(func(v *voice.Voice) { v.SetPitchBendRange(semitones) })
}

// SetPostFilterParams reconfigures the output stage's post low-pass
// filter.
func (e *Engine) SetPostFilterParams(mode filter.Mode, cutoffHz, q float64) {
	e.stage.SetPostFilterParams(mode, cutoffHz, q)
}

// SetWaveshaper switches the output stage's nonlinear shaper.
func (e *Engine) SetWaveshaper(shaper output.Waveshaper) {
	e.stage.SetWaveshaper(shaper)
}

// SetDrive sets the output stage's waveshaper drive in [0,1].
func (e *Engine) SetDrive(drive float64) {
	e.stage.SetDrive(drive)
}
