package polysynth

import (
	"encoding/binary"
	"math"
)

// renderBlockFrames is the block size offline rendering advances by
// between script event checks.
const renderBlockFrames = 256

// ScriptEvent is a batch of raw MIDI bytes applied at a point in time
// within an offline render.
type ScriptEvent struct {
	AtSeconds float64
	Bytes     []byte
}

// RenderMIDIScript builds a fresh engine from cfg and renders seconds
// worth of audio, feeding each script event's bytes to the engine once
// the render reaches its timestamp. Events land at block granularity,
// matching the real-time path's once-per-block MIDI drain. Returns
// interleaved stereo float32 samples. It is meant for offline
// regression/demo rendering (cmd/polysynth-wav), not the real-time
// path.
func RenderMIDIScript(cfg EngineConfig, script []ScriptEvent, seconds float64) []float32 {
	e := NewEngine(cfg)
	totalFrames := int(cfg.SampleRate * seconds)
	out := make([]float32, totalFrames*2)

	next := 0
	for frame := 0; frame < totalFrames; frame += renderBlockFrames {
		now := float64(frame) / cfg.SampleRate
		for next < len(script) && script[next].AtSeconds <= now {
			for _, b := range script[next].Bytes {
				e.EnqueueMIDI(b)
			}
			next++
		}
		n := renderBlockFrames
		if frame+n > totalFrames {
			n = totalFrames - frame
		}
		e.Process(out[frame*2 : (frame+n)*2])
	}
	return out
}

// EncodeWAVFloat32LE wraps samples (interleaved, channels-per-frame) in
// a minimal 44-byte canonical WAV header for 32-bit IEEE float PCM.
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
