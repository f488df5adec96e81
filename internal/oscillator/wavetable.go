// Package oscillator implements the morphable wavetable oscillator (C1).
package oscillator

// tableLen is the fixed wavetable size, a compile-time constant so the
// regeneration loop bound is always known statically.
const tableLen = 256

// Oscillator advances a phase accumulator through a precomputed,
// linearly-interpolated wavetable. The table holds one cycle of the
// current blended waveform.
type Oscillator struct {
	sampleRate float64
	table      [tableLen]float64
	phase      float64 // [0,1)
}

// New creates an oscillator for the given sample rate, seeded with a
// sawtooth table (shape=0).
func New(sampleRate float64) *Oscillator {
	o := &Oscillator{sampleRate: sampleRate}
	o.UpdateWavetable(0)
	return o
}

// UpdateWavetable regenerates the table by blending sawtooth, triangle
// and square waveforms according to shape, clamped to [0,1]:
//   - shape<0.5: interpolate saw->triangle, alpha = 2*shape
//   - shape>=0.5: interpolate triangle->square, alpha = 2*(shape-0.5)
func (o *Oscillator) UpdateWavetable(shape float64) {
	if shape < 0 {
		shape = 0
	}
	if shape > 1 {
		shape = 1
	}
	for i := 0; i < tableLen; i++ {
		t := float64(i) / float64(tableLen)
		saw := 2*t - 1
		var tri float64
		if t < 0.5 {
			tri = 4*t - 1
		} else {
			tri = 3 - 4*t
		}
		var sq float64
		if t < 0.5 {
			sq = 1
		} else {
			sq = -1
		}
		if shape < 0.5 {
			alpha := 2 * shape
			o.table[i] = saw*(1-alpha) + tri*alpha
		} else {
			alpha := 2 * (shape - 0.5)
			o.table[i] = tri*(1-alpha) + sq*alpha
		}
	}
}

// Reset sets the phase to 0. Call on note trigger.
func (o *Oscillator) Reset() {
	o.phase = 0
}

// NextSample advances the phase by freq/sampleRate (wrapping modulo 1)
// and returns the linearly-interpolated table value at the new phase.
func (o *Oscillator) NextSample(freqHz float64) float64 {
	idxF := o.phase * float64(tableLen)
	i0 := int(idxF)
	frac := idxF - float64(i0)
	i1 := (i0 + 1) % tableLen
	sample := o.table[i0]*(1-frac) + o.table[i1]*frac

	o.phase += freqHz / o.sampleRate
	for o.phase >= 1 {
		o.phase -= 1
	}
	for o.phase < 0 {
		o.phase += 1
	}
	return sample
}
