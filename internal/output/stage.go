// Package output implements the mix/output stage (C7): summing active
// voices, a switchable waveshaper, and a post low-pass filter, then
// duplicating mono to interleaved stereo.
package output

import (
	"math"

	"github.com/cbegin/polysynth/internal/filter"
)

// Waveshaper selects the nonlinear stage applied after summing voices.
type Waveshaper int

const (
	TanhSoftClip Waveshaper = iota
	HardWaveFolder
	SoftWaveFolder
)

const foldSoftness = 3.0

// Voice is the subset of voice behavior the output stage needs to sum.
type Voice interface {
	NextSample() float64
}

// Allocator is the subset of the voice allocator the output stage
// drives to render one block.
type Allocator interface {
	ForEach(f func(Voice))
}

// Stage owns the post-filter state and waveshaper selection. It has no
// knowledge of voices beyond the Allocator/Voice interfaces above.
type Stage struct {
	shaper Waveshaper
	drive  float64 // [0,1], maps to gain via 0.1 * 100^drive

	post *filter.Biquad
}

// New creates an output stage at the given sample rate with a default
// low-pass post-filter at 10kHz, Q=0.707, and unity drive (0.5).
func New(sampleRate float64) *Stage {
	s := &Stage{drive: 0.5}
	s.post = filter.New(sampleRate)
	s.post.SetParams(filter.Lowpass, 10000, 0.707)
	return s
}

// SetWaveshaper switches the nonlinear stage. Switching resets the
// post-filter delay lines, since the filter's stored state may not
// make sense for the newly selected shaper's output range.
func (s *Stage) SetWaveshaper(shaper Waveshaper) {
	if s.shaper != shaper {
		s.shaper = shaper
		s.post.Reset()
	}
}

// SetDrive sets the waveshaper's drive parameter in [0,1].
func (s *Stage) SetDrive(drive float64) {
	if drive < 0 {
		drive = 0
	}
	if drive > 1 {
		drive = 1
	}
	s.drive = drive
}

// SetPostFilterParams reconfigures the post-filter.
func (s *Stage) SetPostFilterParams(mode filter.Mode, cutoffHz, q float64) {
	s.post.SetParams(mode, cutoffHz, q)
}

func (s *Stage) gain() float64 {
	return 0.1 * math.Pow(100, s.drive)
}

func (s *Stage) shape(x float64) float64 {
	g := s.gain()
	switch s.shaper {
	case HardWaveFolder:
		return fold(x * g)
	case SoftWaveFolder:
		folded := fold(x * g)
		return math.Tanh(foldSoftness*folded) / math.Tanh(foldSoftness)
	default: // TanhSoftClip
		return math.Tanh(x * g)
	}
}

// fold maps x onto a triangle wave over +/-1, wrapping at +/-1 instead
// of clipping.
func fold(x float64) float64 {
	u := x/2 + 0.5
	u -= math.Floor(u)
	if u > 0.5 {
		u = 1 - u
	}
	return 2*u - 1
}

// RenderBlock sums every active voice via allocator.ForEach into mono,
// applies the waveshaper and post-filter in place, then duplicates
// mono into interleaved stereo out (len(out) == 2*len(mono)).
func (s *Stage) RenderBlock(allocator Allocator, mono []float64, out []float32) {
	for i := range mono {
		mono[i] = 0
	}
	allocator.ForEach(func(v Voice) {
		for i := range mono {
			mono[i] += v.NextSample()
		}
	})

	for i := range mono {
		mono[i] = s.shape(mono[i])
		mono[i] = s.post.ProcessSample(mono[i])
	}

	for i, m := range mono {
		c := clampF32(m)
		out[2*i] = c
		out[2*i+1] = c
	}
}

func clampF32(v float64) float32 {
	if v < -1 {
		v = -1
	}
	if v > 1 {
		v = 1
	}
	return float32(v)
}
