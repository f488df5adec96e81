package polysynth

import (
	"math"
	"testing"

	"github.com/cbegin/polysynth/internal/filter"
	"github.com/cbegin/polysynth/internal/voice"
)

func newTestEngine(maxVoices int) *Engine {
	cfg := DefaultEngineConfig(48000)
	cfg.MaxVoices = maxVoices
	return NewEngine(cfg)
}

func feed(e *Engine, bytes ...byte) {
	for _, b := range bytes {
		e.EnqueueMIDI(b)
	}
}

func TestNoteOnNoteOffProducesThenSilencesSound(t *testing.T) {
	e := newTestEngine(8)
	feed(e, 0x90, 60, 100)

	block := make([]float32, 2*64)
	e.Process(block)
	sounding := false
	for _, s := range block {
		if s != 0 {
			sounding = true
			break
		}
	}
	if !sounding {
		t.Fatal("expected nonzero output after note-on")
	}

	feed(e, 0x80, 60, 0)
	// Drain the release tail; the default amplitude release is 0.2s.
	for i := 0; i < 1000; i++ {
		e.Process(block)
	}
	for _, s := range block {
		if s != 0 {
			t.Fatal("expected silence once release has fully decayed")
		}
	}
}

func TestThreeNotesAcrossEightVoicesAllSound(t *testing.T) {
	e := newTestEngine(8)
	feed(e, 0x90, 60, 100, 0x90, 64, 100, 0x90, 67, 100)

	block := make([]float32, 2*8)
	e.Process(block)

	active := 0
	e.allocator.ForEach(func(v *voice.Voice) {
		if v.IsActive() {
			active++
		}
	})
	if active != 3 {
		t.Fatalf("expected 3 active voices, got %d", active)
	}
}

func TestChannelFilterIgnoresOtherChannelMessages(t *testing.T) {
	e := newTestEngine(4)
	// Engine listens on channel 0; send a note-on on channel 1 (status 0x91).
	feed(e, 0x91, 60, 100)

	block := make([]float32, 2*8)
	e.Process(block)
	for _, s := range block {
		if s != 0 {
			t.Fatal("note on a non-listened channel should not sound")
		}
	}
}

func TestPitchBendCenterIsIdentity(t *testing.T) {
	e := newTestEngine(4)
	feed(e, 0x90, 69, 100) // A4, 440Hz
	// Center pitch bend: LSB=0, MSB=64.
	feed(e, 0xE0, 0, 64)

	block := make([]float32, 2*256)
	e.Process(block)
	for _, s := range block {
		if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
			t.Fatal("pitch bend center should not corrupt output")
		}
	}
}

func TestCCFilterCutoffReachesTenKilohertzAtMaxValue(t *testing.T) {
	e := newTestEngine(4)
	feed(e, 0x90, 60, 100)
	// CC20 (filter cutoff), value 127.
	feed(e, 0xB0, 20, 127)

	block := make([]float32, 2*32)
	e.Process(block)

	e.allocator.ForEach(func(v *voice.Voice) {
		if math.Abs(v.BaseCutoff()-10000) > 1 {
			t.Fatalf("CC20=127 should drive base cutoff to ~10000Hz, got %f", v.BaseCutoff())
		}
	})
}

func TestVoiceStealingWhenAllSlotsBusy(t *testing.T) {
	e := newTestEngine(2)
	feed(e, 0x90, 60, 100, 0x90, 64, 100)
	block := make([]float32, 2*8)
	e.Process(block)

	feed(e, 0x90, 67, 100) // third note forces a steal
	e.Process(block)

	if e.allocator.FindAllocated(67) == nil {
		t.Fatal("third note should have stolen a voice and be tracked")
	}
}

func TestProgramChangeSurfacesRequestWithoutTouchingStorage(t *testing.T) {
	e := newTestEngine(4)
	ch := e.Watch()
	feed(e, 0xC0, 5)
	block := make([]float32, 2*8)
	e.Process(block) // must not call storage.Load from the audio thread

	select {
	case ev := <-ch:
		if ev.Kind != EventProgramChangeRequested || ev.ProgramNumber != 5 {
			t.Fatalf("expected EventProgramChangeRequested(5), got %+v", ev)
		}
	default:
		t.Fatal("expected a program-change-requested event")
	}
}

func TestSetPostFilterParamsAppliesToStage(t *testing.T) {
	e := newTestEngine(4)
	e.SetPostFilterParams(filter.Highpass, 500, 1.0)
	feed(e, 0x90, 60, 100)
	block := make([]float32, 2*32)
	e.Process(block)
	for _, s := range block {
		if math.IsNaN(float64(s)) {
			t.Fatal("output should remain finite after reconfiguring post filter")
		}
	}
}

func TestRenderMIDIScriptAppliesEventsInTime(t *testing.T) {
	cfg := DefaultEngineConfig(48000)
	cfg.MaxVoices = 8
	script := []ScriptEvent{
		{AtSeconds: 0, Bytes: []byte{0x90, 60, 100}},
		{AtSeconds: 0.5, Bytes: []byte{0x80, 60, 0}},
	}
	out := RenderMIDIScript(cfg, script, 1.0)
	if len(out) != 2*48000 {
		t.Fatalf("expected 1s of stereo frames, got %d samples", len(out))
	}

	// The note is held through the first half second.
	var peak float64
	for _, s := range out[:2*24000] {
		if v := math.Abs(float64(s)); v > peak {
			peak = v
		}
	}
	if peak == 0 {
		t.Fatal("held note should be audible before its note-off")
	}

	// Note-off at 0.5s plus the default 0.2s release: the final block
	// must be silent again.
	for _, s := range out[len(out)-2*renderBlockFrames:] {
		if s != 0 {
			t.Fatal("expected silence after the release tail has decayed")
		}
	}
}

func TestWatchReceivesVoiceStolenEvent(t *testing.T) {
	e := newTestEngine(1)
	ch := e.Watch()
	feed(e, 0x90, 60, 100)
	block := make([]float32, 2*8)
	e.Process(block)
	feed(e, 0x90, 64, 100) // only one voice: this steals it
	e.Process(block)

	sawSteal := false
drain:
	for {
		select {
		case ev := <-ch:
			if ev.Kind == EventVoiceStolen {
				sawSteal = true
			}
		default:
			break drain
		}
	}
	if !sawSteal {
		t.Fatal("expected a voice-stolen event")
	}
}
