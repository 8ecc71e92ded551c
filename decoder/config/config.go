/*
NAME
  config.go

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config contains the configuration settings for a decoder and the
// vadump tool that drives it.
package config

import "github.com/ausocean/utils/logging"

// Enums to define input types.
const (
	// Indicates no option has been set.
	NothingDefined = iota

	// Inputs.
	InputAnnexB // H.264 Annex B byte stream.
	InputMPEGTS // MPEG-TS carrying H.264.
)

// Profile is a decoder profile as requested by the client.
type Profile uint8

// Decoder profiles. Only the H.264 profiles can be decoded.
const (
	ProfileNone Profile = iota
	ProfileMPEG1
	ProfileMPEG2Simple
	ProfileMPEG2Main
	ProfileH264ConstrainedBaseline
	ProfileH264Baseline
	ProfileH264Main
	ProfileH264High
	ProfileVC1Simple
	ProfileMPEG4Part2SP
)

var profileNames = map[Profile]string{
	ProfileNone:                    "none",
	ProfileMPEG1:                   "mpeg1",
	ProfileMPEG2Simple:             "mpeg2simple",
	ProfileMPEG2Main:               "mpeg2main",
	ProfileH264ConstrainedBaseline: "h264constrainedbaseline",
	ProfileH264Baseline:            "h264baseline",
	ProfileH264Main:                "h264main",
	ProfileH264High:                "h264high",
	ProfileVC1Simple:               "vc1simple",
	ProfileMPEG4Part2SP:            "mpeg4part2sp",
}

func (p Profile) String() string {
	if n, ok := profileNames[p]; ok {
		return n
	}
	return "unknown"
}

// IsH264 returns true for the H.264 profiles.
func (p Profile) IsH264() bool {
	return p >= ProfileH264ConstrainedBaseline && p <= ProfileH264High
}

// ProfileForIDC returns the H.264 profile for a profile_idc and
// constraint_set1_flag as found in a sequence parameter set. Profiles above
// High are decoded as High.
func ProfileForIDC(idc int, constrained bool) Profile {
	switch {
	case idc == 66 && constrained:
		return ProfileH264ConstrainedBaseline
	case idc == 66:
		return ProfileH264Baseline
	case idc == 77:
		return ProfileH264Main
	default:
		return ProfileH264High
	}
}

// Config provides parameters relevant to a decoder instance and the vadump
// tool. Default values for these fields are defined in variables.go.
type Config struct {
	// Height and Width give the dimensions of decoded pictures. A value of
	// zero means the dimensions are taken from the first sequence parameter
	// set of the input.
	Height uint
	Width  uint

	// Input defines the type of data found at InputPath.
	//
	// Valid values are defined by enums:
	// InputAnnexB:
	//		H.264 byte stream with start code prefixes.
	// InputMPEGTS:
	//		MPEG-TS with a single program carrying an H.264 stream.
	// If unset, the type is derived from the InputPath extension.
	Input uint8

	// InputPath defines the input file location. This must be defined.
	InputPath string

	// Logger holds an implementation of the Logger interface.
	// This must be set for the decoder to work correctly.
	Logger logging.Logger

	// LogLevel is the logging verbosity level.
	// Valid values are defined by enums from the logger package: logging.Debug,
	// logging.Info, logging.Warning logging.Error, logging.Fatal.
	LogLevel int8

	// LogPath is the directory the log file is written to.
	LogPath string

	// MaxReferences limits the number of reference frames considered when
	// building reference picture lists. It must be in [1, 16].
	MaxReferences uint

	// PoolSize is the number of hardware decode surfaces held by a decoder.
	// It must be greater than MaxReferences.
	PoolSize uint

	// Profile is the requested decoder profile. If unset it is taken from
	// the first sequence parameter set of the input.
	Profile Profile

	// StartPTS and EndPTS restrict MPEG-TS input to frames with presentation
	// timestamps in [StartPTS, EndPTS). The range is unused when EndPTS is 0.
	StartPTS uint64
	EndPTS   uint64

	// Watch causes the input to be decoded again each time it is written.
	Watch bool
}

// Validate checks for any errors in the config fields and defaults settings
// if particular parameters have not been defined.
func (c *Config) Validate() error {
	for _, v := range Variables {
		if v.Validate != nil {
			v.Validate(c)
		}
	}
	return nil
}

// Update takes a map of configuration variable names and their corresponding
// values, parses the string values and converting into correct type, and then
// sets the config struct fields as appropriate.
func (c *Config) Update(vars map[string]string) {
	for _, value := range Variables {
		if v, ok := vars[value.Name]; ok && value.Update != nil {
			value.Update(c, v)
		}
	}
}

// LogInvalidField logs that the named field was bad or unset and is being set
// to def.
func (c *Config) LogInvalidField(name string, def interface{}) {
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}
