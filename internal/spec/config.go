package spec

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// Config holds every tunable of the bitfield analyser and tree builder,
// plus a handful of knobs the core itself ignores but the emitter/CLI
// driver consume. It is a plain value, never a singleton, and is
// serialised as a flat JSON object whose keys are exactly these
// property names; unknown keys are ignored and missing keys keep the
// defaults below (DefaultConfig).
type Config struct {
	AllowSwitch                 bool    `json:"AllowSwitch"`
	AllowSequence                bool    `json:"AllowSequence"`
	NoOptimiseIfConditionNodes   bool    `json:"NoOptimiseIfConditionNodes"`
	BitFlagCoef                  float64 `json:"BitFlagCoef"`
	BitfieldLengthDeltaPower     float64 `json:"BitfieldLengthDeltaPower"`
	BitfieldSetLengthDeltaPower  float64 `json:"BitfieldSetLengthDeltaPower"`
	BitfieldSetCoef              float64 `json:"BitfieldSetCoef"`
	MinSwitchRules               int     `json:"MinSwitchRules"`
	MinSwitchBits                int     `json:"MinSwitchBits"`
	MaxSwitchBits                int     `json:"MaxSwitchBits"`
	MaxSwitchNestingDepth         int     `json:"MaxSwitchNestingDepth"`
	MaxTotalSwitchBits            int     `json:"MaxTotalSwitchBits"`
	MaxSwitchSplits               int     `json:"MaxSwitchSplits"`

	// emitter-only knobs; the core ignores these.
	InsertReturns    bool `json:"InsertReturns"`
	NoPrettyOutput   bool `json:"NoPrettyOutput"`
	NoBreakAfterRule bool `json:"NoBreakAfterRule"`

	// driver-level knobs: the driver sets Verbose from --verbose and the
	// builder reads it to enable its log output; Timings is not read.
	Verbose bool `json:"Verbose"`
	Timings bool `json:"Timings"`
}

// DefaultConfig returns the built-in defaults listed in spec.md §6.
func DefaultConfig() Config {
	return Config{
		AllowSwitch:                true,
		AllowSequence:               true,
		NoOptimiseIfConditionNodes: false,
		BitFlagCoef:                 1.0,
		BitfieldLengthDeltaPower:    0.5,
		BitfieldSetLengthDeltaPower: 0.5,
		BitfieldSetCoef:             1.0,
		MinSwitchRules:              4,
		MinSwitchBits:               2,
		MaxSwitchBits:               8,
		MaxSwitchNestingDepth:       3,
		MaxTotalSwitchBits:          15,
		MaxSwitchSplits:             1,
		InsertReturns:               false,
		NoPrettyOutput:              false,
		NoBreakAfterRule:            true,
	}
}

// LoadConfig reads a flat JSON config object from r, starting from
// DefaultConfig so that any key missing from the JSON keeps its
// built-in default. Unknown keys are silently ignored, matching
// encoding/json's default unmarshal behaviour into a known struct.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := json.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, errors.Wrap(err, "decoding config")
	}
	return cfg, nil
}

// SaveConfig writes cfg as a flat, indented JSON object.
func SaveConfig(w io.Writer, cfg Config) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		return errors.Wrap(err, "encoding config")
	}
	return nil
}
