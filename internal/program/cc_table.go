package program

import (
	"math"

	"github.com/cbegin/polysynth/internal/filter"
	"github.com/cbegin/polysynth/internal/midi"
	"github.com/cbegin/polysynth/internal/output"
)

// CC numbers recognized by the default mapping.
const (
	ccWaveformShape    = 1
	ccFilterCutoff     = 20
	ccFilterQ          = 21
	ccFilterEnvSustain = 25
	ccFilterEnvAttack  = 71
	ccFilterEnvDecay   = 72
	ccFilterEnvRelease = 73
	ccOutputDrive      = 74
	ccCycleFilterMode  = 96
	ccCycleWaveshaper  = 102
)

// DefaultCC holds the rising-edge state the cycle-mode/cycle-waveshaper
// CCs need, plus the output stage they and the drive CC address. It is
// constructed once per engine and never allocates in HandleCC; the
// mapping is a fixed switch rather than a table since the recognized CC
// numbers are sparse (1, 20-25, 71-74, 96, 102).
type DefaultCC struct {
	stage *output.Stage

	lastFilterModeCC uint8
	lastShaperCC     uint8
	filterModeCycle  filter.Mode
	shaperCycle      output.Waveshaper
}

// NewDefaultCC binds the default CC mapping to an output stage (for the
// drive and waveshaper-cycling CCs; per-voice CCs broadcast through the
// allocator argument HandleCC receives).
func NewDefaultCC(stage *output.Stage) *DefaultCC {
	return &DefaultCC{stage: stage}
}

// HandleCC implements midi.Hooks.CC.
func (d *DefaultCC) HandleCC(channel, cc, value uint8, all midi.Allocator) {
	switch cc {
	case ccWaveformShape:
		shape := linear01(value)
		all.ForEach(func(v midi.Voice) { v.SetWaveShape(shape) })
	case ccFilterCutoff:
		cutoff := expRange(value, 100, 10000)
		all.ForEach(func(v midi.Voice) { v.SetBaseCutoff(cutoff) })
	case ccFilterQ:
		q := linearRange(value, 0.1, 20)
		all.ForEach(func(v midi.Voice) { v.SetFilterQ(q) })
	case ccFilterEnvSustain:
		sustain := linear01(value)
		all.ForEach(func(v midi.Voice) { v.SetFilterEnvSustain(sustain) })
	case ccFilterEnvAttack:
		attack := linearRange(value, 0.001, 2.0)
		all.ForEach(func(v midi.Voice) { v.SetFilterEnvAttack(attack) })
	case ccFilterEnvDecay:
		decay := linearRange(value, 0.01, 5.0)
		all.ForEach(func(v midi.Voice) { v.SetFilterEnvDecay(decay) })
	case ccFilterEnvRelease:
		release := linearRange(value, 0.01, 5.0)
		all.ForEach(func(v midi.Voice) { v.SetFilterEnvRelease(release) })
	case ccOutputDrive:
		d.stage.SetDrive(linear01(value))
	case ccCycleFilterMode:
		if risingEdge(&d.lastFilterModeCC, value) {
			d.filterModeCycle = (d.filterModeCycle + 1) % (filter.Allpass + 1)
			mode := d.filterModeCycle
			all.ForEach(func(v midi.Voice) { v.SetFilterMode(int(mode)) })
		}
	case ccCycleWaveshaper:
		if risingEdge(&d.lastShaperCC, value) {
			d.shaperCycle = (d.shaperCycle + 1) % (output.SoftWaveFolder + 1)
			d.stage.SetWaveshaper(d.shaperCycle)
		}
	}
}

func linear01(value uint8) float64 {
	return float64(value) / 127.0
}

func linearRange(value uint8, lo, hi float64) float64 {
	return lo + linear01(value)*(hi-lo)
}

func expRange(value uint8, lo, hi float64) float64 {
	t := linear01(value)
	return lo * math.Pow(hi/lo, t)
}

func risingEdge(last *uint8, value uint8) bool {
	wasLow := *last <= 63
	*last = value
	return wasLow && value > 63
}
