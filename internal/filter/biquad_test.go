package filter

import (
	"math"
	"testing"
)

func TestCutoffClamped(t *testing.T) {
	f := New(44100)
	f.SetCutoff(1)
	f.ProcessSample(0)
	if f.cutoff != minCutoffHz {
		t.Fatalf("cutoff should clamp to %f, got %f", minCutoffHz, f.cutoff)
	}
	f.SetCutoff(1e9)
	f.ProcessSample(0)
	if f.cutoff != 0.99*(44100.0/2) {
		t.Fatalf("cutoff should clamp to 0.99*nyquist, got %f", f.cutoff)
	}
}

func TestQClamped(t *testing.T) {
	f := New(44100)
	f.SetQ(0)
	f.ProcessSample(0)
	if f.q != minQ {
		t.Fatalf("Q should clamp to %f, got %f", minQ, f.q)
	}
	f.SetQ(100)
	f.ProcessSample(0)
	if f.q != maxQ {
		t.Fatalf("Q should clamp to %f, got %f", maxQ, f.q)
	}
}

func TestDirtyFlagRecomputesOnce(t *testing.T) {
	f := New(44100)
	f.SetCutoff(1000)
	if !f.dirty {
		t.Fatal("param change should set dirty")
	}
	f.ProcessSample(1)
	if f.dirty {
		t.Fatal("dirty should clear after processing a sample")
	}
	b0 := f.b0
	f.ProcessSample(1)
	if f.b0 != b0 {
		t.Fatal("coefficients should not change without a param write")
	}
}

func TestResetZeroesState(t *testing.T) {
	f := New(44100)
	f.SetParams(Lowpass, 500, 2)
	for i := 0; i < 100; i++ {
		f.ProcessSample(1)
	}
	if f.z1 == 0 && f.z2 == 0 {
		t.Fatal("expected nonzero state before reset")
	}
	f.Reset()
	if f.z1 != 0 || f.z2 != 0 {
		t.Fatal("reset should zero the delay line")
	}
}

func TestOutputFiniteAcrossModesAndParams(t *testing.T) {
	modes := []Mode{Lowpass, Highpass, Bandpass, Notch, Allpass}
	qs := []float64{0.1, 0.707, 5, 20}
	cutoffs := []float64{20, 100, 1000, 10000, 20000}
	for _, m := range modes {
		for _, q := range qs {
			for _, c := range cutoffs {
				f := New(44100)
				f.SetParams(m, c, q)
				for i := 0; i < 2000; i++ {
					x := math.Sin(float64(i) * 0.3)
					y := f.ProcessSample(x)
					if math.IsNaN(y) || math.IsInf(y, 0) {
						t.Fatalf("mode=%v q=%f cutoff=%f produced non-finite output at sample %d: %f", m, q, c, i, y)
					}
				}
			}
		}
	}
}

func TestLowpassAttenuatesHighFrequency(t *testing.T) {
	f := New(44100)
	f.SetParams(Lowpass, 200, 0.707)
	var maxOut float64
	for i := 0; i < 4410; i++ {
		x := math.Sin(2 * math.Pi * 10000 * float64(i) / 44100)
		y := f.ProcessSample(x)
		if math.Abs(y) > maxOut {
			maxOut = math.Abs(y)
		}
	}
	if maxOut > 0.3 {
		t.Fatalf("expected strong attenuation of 10kHz through 200Hz lowpass, got peak %f", maxOut)
	}
}
