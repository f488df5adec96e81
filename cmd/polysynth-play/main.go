// Command polysynth-play drives the engine live from a raw MIDI byte
// stream on stdin: the audio callback pulls rendered blocks while this
// process queues incoming bytes.
package main

import (
	"bufio"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/cbegin/polysynth"
	"github.com/cbegin/polysynth/internal/audio"
	"github.com/cbegin/polysynth/internal/program"
)

func main() {
	var (
		sampleRate = pflag.Int("sample-rate", 48000, "output sample rate")
		channel    = pflag.Uint8("channel", 0, "MIDI channel to listen on (0-15)")
		voices     = pflag.Int("voices", 16, "max simultaneous voices")
		programDir = pflag.String("program-dir", "", "directory of saved programs (enables program-change loading)")
		programNum = pflag.Int("program", -1, "program number to load at startup (requires -program-dir)")
	)
	pflag.Parse()

	logger := log.Default()

	cfg := polysynth.DefaultEngineConfig(float64(*sampleRate))
	cfg.MaxVoices = *voices
	cfg.ListenChannel = *channel
	engine := polysynth.NewEngine(cfg)

	if *programDir != "" {
		engine.SetStorage(program.NewFSStorage(*programDir))
		if *programNum >= 0 {
			if !engine.LoadProgram(*programNum) {
				logger.Warn("startup program load failed", "program", *programNum)
			}
		}

		// Incoming MIDI ProgramChange only ever surfaces as an event (the
		// core never touches storage from the audio thread); load it here,
		// off the audio thread.
		events := engine.Watch()
		go func() {
			for ev := range events {
				if ev.Kind == polysynth.EventProgramChangeRequested {
					if !engine.LoadProgram(ev.ProgramNumber) {
						logger.Warn("program change load failed", "program", ev.ProgramNumber)
					}
				}
			}
		}()
	}

	backend, err := audio.NewPlayer(*sampleRate, engine)
	if err != nil {
		logger.Fatal("audio player init failed", "err", err)
	}
	backend.Play()

	logger.Info("listening for MIDI bytes on stdin", "channel", *channel, "voices", *voices)
	reader := bufio.NewReaderSize(os.Stdin, 4096)
	for {
		b, err := reader.ReadByte()
		if err != nil {
			break
		}
		for !engine.EnqueueMIDI(b) {
			// Ring full: back off the producer side, never the audio thread.
			time.Sleep(time.Millisecond)
		}
	}
}
