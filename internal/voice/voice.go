// Package voice implements the monophonic playable voice (C4) and the
// fixed-size voice allocator with stealing (C5).
package voice

import (
	"math"

	"github.com/cbegin/polysynth/internal/envelope"
	"github.com/cbegin/polysynth/internal/filter"
	"github.com/cbegin/polysynth/internal/oscillator"
)

const defaultPitchBendRangeSemitones = 2.0

// filterEnvHeadroom bounds the upward-only cutoff modulation: a fully
// open filter envelope scales the base cutoff by up to 10x (1 + 1*9).
const filterEnvHeadroom = 9.0

// Voice composes an oscillator, a per-voice biquad filter, and two
// independent ADSR envelopes (amplitude and filter) into one
// monophonic synthesis unit.
type Voice struct {
	osc    *oscillator.Oscillator
	biquad *filter.Biquad
	amp    *envelope.ADSR
	fenv   *envelope.ADSR

	baseFrequency    float64
	volume           float64
	pitchBend        float64 // [-1, +1]
	pitchBendRangeSt float64 // semitones
	baseCutoff       float64
	filterEnvAmount  float64 // [0,1]
}

// New creates a voice at the given sample rate with default pitch-bend
// range and an identity (0) filter envelope amount.
func New(sampleRate float64) *Voice {
	return &Voice{
		osc:              oscillator.New(sampleRate),
		biquad:           filter.New(sampleRate),
		amp:              envelope.New(sampleRate),
		fenv:             envelope.New(sampleRate),
		pitchBendRangeSt: defaultPitchBendRangeSemitones,
		baseCutoff:       sampleRate / 4,
	}
}

// Trigger starts a new note: sets base frequency and volume, resets
// oscillator phase and filter state, and triggers both envelopes.
func (v *Voice) Trigger(freqHz, volume float64) {
	v.baseFrequency = freqHz
	v.volume = volume
	v.osc.Reset()
	v.biquad.Reset()
	v.amp.Trigger()
	v.fenv.Trigger()
}

// Release releases both envelopes.
func (v *Voice) Release() {
	v.amp.Release()
	v.fenv.Release()
}

// IsActive reports whether the amplitude envelope is non-idle.
func (v *Voice) IsActive() bool {
	return v.amp.IsActive()
}

// AmpPhase returns the amplitude envelope's current phase, for host
// telemetry (see Engine.Watch).
func (v *Voice) AmpPhase() envelope.Phase {
	return v.amp.CurrentPhase()
}

// FilterEnvPhase returns the filter envelope's current phase, for host
// telemetry (see Engine.Watch).
func (v *Voice) FilterEnvPhase() envelope.Phase {
	return v.fenv.CurrentPhase()
}

// BaseCutoff returns the voice's unmodulated filter cutoff in Hz.
func (v *Voice) BaseCutoff() float64 {
	return v.baseCutoff
}

// SetFrequency sets the base (unbent) playing frequency.
func (v *Voice) SetFrequency(freqHz float64) {
	v.baseFrequency = freqHz
}

// SetVolume sets the voice's linear volume multiplier.
func (v *Voice) SetVolume(volume float64) {
	v.volume = volume
}

// SetPitchBend sets the normalized pitch bend in [-1, +1]; out-of-range
// values are clamped.
func (v *Voice) SetPitchBend(bend float64) {
	if bend < -1 {
		bend = -1
	}
	if bend > 1 {
		bend = 1
	}
	v.pitchBend = bend
}

// SetPitchBendRange sets the pitch-bend range in semitones.
func (v *Voice) SetPitchBendRange(semitones float64) {
	v.pitchBendRangeSt = semitones
}

// SetWaveShape regenerates the oscillator's wavetable (shape in [0,1]).
func (v *Voice) SetWaveShape(shape float64) {
	v.osc.UpdateWavetable(shape)
}

// SetFilterMode sets the per-voice biquad's response shape.
func (v *Voice) SetFilterMode(mode filter.Mode) {
	v.biquad.SetMode(mode)
}

// SetBaseCutoff sets the unmodulated filter cutoff in Hz.
func (v *Voice) SetBaseCutoff(cutoffHz float64) {
	v.baseCutoff = cutoffHz
}

// SetFilterQ sets the per-voice biquad's resonance.
func (v *Voice) SetFilterQ(q float64) {
	v.biquad.SetQ(q)
}

// SetFilterEnvAmount sets how strongly the filter envelope modulates
// cutoff, in [0,1].
func (v *Voice) SetFilterEnvAmount(amount float64) {
	if amount < 0 {
		amount = 0
	}
	if amount > 1 {
		amount = 1
	}
	v.filterEnvAmount = amount
}

// SetAmpEnvParams sets the amplitude envelope's ADSR.
func (v *Voice) SetAmpEnvParams(attack, decay, sustain, release float64) {
	v.amp.SetParams(attack, decay, sustain, release)
}

// SetFilterEnvParams sets the filter envelope's full ADSR at once.
func (v *Voice) SetFilterEnvParams(attack, decay, sustain, release float64) {
	v.fenv.SetParams(attack, decay, sustain, release)
}

// SetFilterEnvAttack sets only the filter envelope's attack time.
func (v *Voice) SetFilterEnvAttack(attackSec float64) { v.fenv.SetAttack(attackSec) }

// SetFilterEnvDecay sets only the filter envelope's decay time.
func (v *Voice) SetFilterEnvDecay(decaySec float64) { v.fenv.SetDecay(decaySec) }

// SetFilterEnvSustain sets only the filter envelope's sustain level.
func (v *Voice) SetFilterEnvSustain(sustainLvl float64) { v.fenv.SetSustain(sustainLvl) }

// SetFilterEnvRelease sets only the filter envelope's release time.
func (v *Voice) SetFilterEnvRelease(releaseSec float64) { v.fenv.SetRelease(releaseSec) }

// NextSample renders one sample: pitch-bent oscillator ->
// filter-envelope-modulated biquad -> amp envelope -> volume.
func (v *Voice) NextSample() float64 {
	if !v.amp.IsActive() {
		return 0
	}

	semitoneShift := v.pitchBend * v.pitchBendRangeSt
	frequency := v.baseFrequency * math.Pow(2, semitoneShift/12)

	x := v.osc.NextSample(frequency)

	filterEnvLevel := v.fenv.NextSample()
	modulatedCutoff := v.baseCutoff * (1 + filterEnvLevel*v.filterEnvAmount*filterEnvHeadroom)
	v.biquad.SetCutoff(modulatedCutoff)
	y := v.biquad.ProcessSample(x)

	ampLevel := v.amp.NextSample()
	return y * ampLevel * v.volume
}
