// Command polysynth-wav renders a fixed demo MIDI script to a WAV file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/cbegin/polysynth"
)

// demoScript arpeggiates a C major triad, opens the filter, and
// releases the chord with half a second of tail left in the default 2s
// render: a short regression/demo fixture, not meant to be musically
// interesting.
var demoScript = []polysynth.ScriptEvent{
	{AtSeconds: 0.00, Bytes: []byte{0x90, 60, 100}}, // C4 on
	{AtSeconds: 0.25, Bytes: []byte{0x90, 64, 100}}, // E4 on
	{AtSeconds: 0.50, Bytes: []byte{0x90, 67, 100}}, // G4 on
	{AtSeconds: 0.75, Bytes: []byte{0xB0, 20, 90}},  // CC20: open the filter up
	{AtSeconds: 1.50, Bytes: []byte{0x80, 60, 0, 0x80, 64, 0, 0x80, 67, 0}},
}

func main() {
	var (
		sampleRate = pflag.Int("sample-rate", 48000, "output sample rate")
		seconds    = pflag.Float64("seconds", 2.0, "render duration in seconds")
		voices     = pflag.Int("voices", 8, "max simultaneous voices")
		out        = pflag.String("out", "polysynth-demo.wav", "output WAV path")
	)
	pflag.Parse()

	cfg := polysynth.DefaultEngineConfig(float64(*sampleRate))
	cfg.MaxVoices = *voices

	samples := polysynth.RenderMIDIScript(cfg, demoScript, *seconds)
	wav := polysynth.EncodeWAVFloat32LE(samples, *sampleRate, 2)

	if err := os.WriteFile(*out, wav, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "write wav:", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s (%d frames)\n", *out, len(samples)/2)
}
