// Package program implements the persisted program format, the default
// CC-to-parameter mapping table, and the filesystem-backed program
// storage the application (never the audio thread) calls.
package program

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/cbegin/polysynth/internal/filter"
	"github.com/cbegin/polysynth/internal/voice"
)

// diskProgram is the on-disk key/value representation of a Program.
// Missing keys default to DefaultProgram()'s values (via the pointer
// fields and the defaulting pass in fromDisk); extra keys are ignored
// by yaml.v3 already, keeping old files forward compatible.
type diskProgram struct {
	WaveformShape    *float64 `yaml:"waveformShape"`
	BaseCutoff       *float64 `yaml:"baseCutoff"`
	FilterQ          *float64 `yaml:"filterQ"`
	FilterMode       *int     `yaml:"filterMode"`
	FilterEnvAmount  *float64 `yaml:"filterEnvAmount"`
	FilterEnvAttack  *float64 `yaml:"filterEnvAttack"`
	FilterEnvDecay   *float64 `yaml:"filterEnvDecay"`
	FilterEnvSustain *float64 `yaml:"filterEnvSustain"`
	FilterEnvRelease *float64 `yaml:"filterEnvRelease"`
}

func toDisk(p voice.Program) diskProgram {
	mode := int(p.FilterMode)
	return diskProgram{
		WaveformShape:    &p.WaveformShape,
		BaseCutoff:       &p.BaseCutoff,
		FilterQ:          &p.FilterQ,
		FilterMode:       &mode,
		FilterEnvAmount:  &p.FilterEnvAmount,
		FilterEnvAttack:  &p.FilterEnvAttack,
		FilterEnvDecay:   &p.FilterEnvDecay,
		FilterEnvSustain: &p.FilterEnvSustain,
		FilterEnvRelease: &p.FilterEnvRelease,
	}
}

func fromDisk(d diskProgram) voice.Program {
	p := voice.DefaultProgram()
	if d.WaveformShape != nil {
		p.WaveformShape = *d.WaveformShape
	}
	if d.BaseCutoff != nil {
		p.BaseCutoff = *d.BaseCutoff
	}
	if d.FilterQ != nil {
		p.FilterQ = *d.FilterQ
	}
	if d.FilterMode != nil && *d.FilterMode >= 0 && *d.FilterMode <= int(filter.Allpass) {
		p.FilterMode = filter.Mode(*d.FilterMode)
	}
	if d.FilterEnvAmount != nil {
		p.FilterEnvAmount = *d.FilterEnvAmount
	}
	if d.FilterEnvAttack != nil {
		p.FilterEnvAttack = *d.FilterEnvAttack
	}
	if d.FilterEnvDecay != nil {
		p.FilterEnvDecay = *d.FilterEnvDecay
	}
	if d.FilterEnvSustain != nil {
		p.FilterEnvSustain = *d.FilterEnvSustain
	}
	if d.FilterEnvRelease != nil {
		p.FilterEnvRelease = *d.FilterEnvRelease
	}
	return p
}

// Storage is the narrow persistence interface the core consumes:
// load/save by program number, reporting success/failure. The core
// never calls this from the audio thread.
type Storage interface {
	Load(programNumber int) (voice.Program, bool)
	Save(programNumber int, p voice.Program) bool
}

// FSStorage stores one YAML file per program number under a root
// directory.
type FSStorage struct {
	dir    string
	logger *log.Logger
}

// NewFSStorage creates filesystem-backed storage rooted at dir.
func NewFSStorage(dir string) *FSStorage {
	return &FSStorage{dir: dir, logger: log.Default()}
}

func (s *FSStorage) path(programNumber int) string {
	return filepath.Join(s.dir, fmt.Sprintf("program-%03d.yaml", programNumber))
}

// Load reads and decodes a program. A missing file or decode error is
// reported as failure (ok=false); the caller keeps whatever voice state
// was already in place.
func (s *FSStorage) Load(programNumber int) (voice.Program, bool) {
	data, err := os.ReadFile(s.path(programNumber))
	if err != nil {
		s.logger.Warn("program load failed", "program", programNumber, "err", err)
		return voice.Program{}, false
	}
	var d diskProgram
	if err := yaml.Unmarshal(data, &d); err != nil {
		s.logger.Warn("program decode failed", "program", programNumber, "err", err)
		return voice.Program{}, false
	}
	return fromDisk(d), true
}

// Save encodes and writes a program, creating the root directory if
// needed.
func (s *FSStorage) Save(programNumber int, p voice.Program) bool {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		s.logger.Error("program storage directory unavailable", "dir", s.dir, "err", err)
		return false
	}
	out, err := yaml.Marshal(toDisk(p))
	if err != nil {
		s.logger.Error("program encode failed", "program", programNumber, "err", err)
		return false
	}
	if err := os.WriteFile(s.path(programNumber), out, 0o644); err != nil {
		s.logger.Error("program save failed", "program", programNumber, "err", err)
		return false
	}
	return true
}
