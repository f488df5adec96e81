// Package envelope implements the piecewise-linear ADSR amplitude and
// modulation envelope used by every voice.
package envelope

// Phase identifies where an ADSR envelope is within a trigger cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAttack
	PhaseDecay
	PhaseSustain
	PhaseRelease
)

// ADSR holds attack/decay/sustain/release parameters (seconds, except
// sustain which is a level in [0,1]) and the per-sample rates derived
// from them. Rates are recomputed whenever the parameters change, never
// per sample.
type ADSR struct {
	sampleRate float64

	attackSec  float64
	decaySec   float64
	sustainLvl float64
	releaseSec float64

	attackRate  float64
	decayRate   float64
	releaseRate float64

	level float64
	phase Phase
}

// New creates an ADSR envelope for the given sample rate with all times
// at zero (instantaneous) and full sustain.
func New(sampleRate float64) *ADSR {
	e := &ADSR{sampleRate: sampleRate, sustainLvl: 1}
	e.recompute()
	return e
}

// SetParams sets attack/decay/release in seconds and sustain as a level
// in [0,1], then recomputes the per-sample rates.
func (e *ADSR) SetParams(attackSec, decaySec, sustainLvl, releaseSec float64) {
	if sustainLvl < 0 {
		sustainLvl = 0
	}
	if sustainLvl > 1 {
		sustainLvl = 1
	}
	e.attackSec = attackSec
	e.decaySec = decaySec
	e.sustainLvl = sustainLvl
	e.releaseSec = releaseSec
	e.recompute()
}

// SetAttack sets the attack time in seconds, leaving decay/sustain/
// release untouched.
func (e *ADSR) SetAttack(attackSec float64) {
	e.attackSec = attackSec
	e.recompute()
}

// SetDecay sets the decay time in seconds, leaving the other
// parameters untouched.
func (e *ADSR) SetDecay(decaySec float64) {
	e.decaySec = decaySec
	e.recompute()
}

// SetSustain sets the sustain level in [0,1], leaving the other
// parameters untouched.
func (e *ADSR) SetSustain(sustainLvl float64) {
	if sustainLvl < 0 {
		sustainLvl = 0
	}
	if sustainLvl > 1 {
		sustainLvl = 1
	}
	e.sustainLvl = sustainLvl
	e.recompute()
}

// SetRelease sets the release time in seconds, leaving the other
// parameters untouched.
func (e *ADSR) SetRelease(releaseSec float64) {
	e.releaseSec = releaseSec
	e.recompute()
}

func (e *ADSR) recompute() {
	e.attackRate = rateFor(e.attackSec, 1.0, e.sampleRate)
	e.decayRate = rateFor(e.decaySec, 1.0-e.sustainLvl, e.sampleRate)
	e.releaseRate = rateFor(e.releaseSec, e.sustainLvl, e.sampleRate)
}

// rateFor returns the per-sample increment that covers `span` over
// `seconds`. A zero or negative duration means an instantaneous jump.
func rateFor(seconds, span, sampleRate float64) float64 {
	if seconds <= 0 {
		return 1.0
	}
	return span / (seconds * sampleRate)
}

// Trigger forces a hard restart: phase=Attack, level=0.
func (e *ADSR) Trigger() {
	e.phase = PhaseAttack
	e.level = 0
}

// Release snaps to the Release phase from any non-Idle phase. It is a
// no-op from Idle.
func (e *ADSR) Release() {
	if e.phase != PhaseIdle {
		e.phase = PhaseRelease
	}
}

// IsActive reports whether the envelope is anywhere but Idle.
func (e *ADSR) IsActive() bool {
	return e.phase != PhaseIdle
}

// Phase returns the current envelope phase.
func (e *ADSR) CurrentPhase() Phase {
	return e.phase
}

// NextSample advances the envelope by one sample and returns its level,
// always in [0,1].
func (e *ADSR) NextSample() float64 {
	switch e.phase {
	case PhaseIdle:
		e.level = 0
	case PhaseAttack:
		e.level += e.attackRate
		if e.level >= 1 {
			e.level = 1
			e.phase = PhaseDecay
		}
	case PhaseDecay:
		e.level -= e.decayRate
		if e.level <= e.sustainLvl {
			e.level = e.sustainLvl
			e.phase = PhaseSustain
		}
	case PhaseSustain:
		e.level = e.sustainLvl
	case PhaseRelease:
		e.level -= e.releaseRate
		if e.level <= 0 {
			e.level = 0
			e.phase = PhaseIdle
		}
	}
	return e.level
}
