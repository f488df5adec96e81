package voice

import "github.com/cbegin/polysynth/internal/filter"

// Program bundles the parameters applied to every voice on program
// change or load.
type Program struct {
	WaveformShape float64
	BaseCutoff    float64
	FilterQ       float64
	FilterMode    filter.Mode

	FilterEnvAmount  float64
	FilterEnvAttack  float64
	FilterEnvDecay   float64
	FilterEnvSustain float64
	FilterEnvRelease float64
}

// DefaultProgram returns the factory-default program.
func DefaultProgram() Program {
	return Program{
		WaveformShape:    0.0,
		BaseCutoff:       2000,
		FilterQ:          0.707,
		FilterMode:       filter.Lowpass,
		FilterEnvAmount:  0.3,
		FilterEnvAttack:  0.01,
		FilterEnvDecay:   0.2,
		FilterEnvSustain: 0.3,
		FilterEnvRelease: 0.3,
	}
}

// Apply pushes the program's parameters onto a voice. A Program covers
// the oscillator, filter, and filter envelope only; the amplitude ADSR
// is managed separately by the embedder.
func (p Program) Apply(v *Voice) {
	v.SetWaveShape(p.WaveformShape)
	v.SetBaseCutoff(p.BaseCutoff)
	v.SetFilterQ(p.FilterQ)
	v.SetFilterMode(p.FilterMode)
	v.SetFilterEnvAmount(p.FilterEnvAmount)
	v.SetFilterEnvParams(p.FilterEnvAttack, p.FilterEnvDecay, p.FilterEnvSustain, p.FilterEnvRelease)
}
