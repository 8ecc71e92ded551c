/*
DESCRIPTION
  variables.go contains a list of structs that provide a variable Name, type in
  a string format, a function for updating the variable in the Config struct
  from a string, and finally, a validation function to check the validity of the
  corresponding field value in the Config.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ausocean/utils/logging"
)

// Config map Keys.
const (
	KeyEndPTS        = "EndPTS"
	KeyHeight        = "Height"
	KeyInput         = "Input"
	KeyInputPath     = "InputPath"
	KeyLogging       = "logging"
	KeyLogPath       = "LogPath"
	KeyMaxReferences = "MaxReferences"
	KeyPoolSize      = "PoolSize"
	KeyProfile       = "Profile"
	KeyStartPTS      = "StartPTS"
	KeyWatch         = "Watch"
	KeyWidth         = "Width"
)

// Config map parameter types.
const (
	typeString = "string"
	typeUint   = "uint"
	typeBool   = "bool"
)

// Default variable values.
const (
	defaultInput         = InputAnnexB
	defaultVerbosity     = logging.Error
	defaultLogPath       = "/var/log/vadump"
	defaultMaxReferences = 16
	defaultPoolSize      = 21
	maxDimension         = 2048
	maxReferences        = 16
)

// Variables describes the variables that can be used for decoder control.
// These structs provide the name and type of variable, a function for updating
// this variable in a Config, and a function for validating the value of the variable.
var Variables = []struct {
	Name     string
	Type     string
	Update   func(*Config, string)
	Validate func(*Config)
}{
	{
		Name:   KeyEndPTS,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.EndPTS = uint64(parseUint(KeyEndPTS, v, c)) },
		Validate: func(c *Config) {
			if c.EndPTS != 0 && c.EndPTS <= c.StartPTS {
				c.LogInvalidField(KeyEndPTS, 0)
				c.StartPTS, c.EndPTS = 0, 0
			}
		},
	},
	{
		Name:     KeyHeight,
		Type:     typeUint,
		Update:   func(c *Config, v string) { c.Height = parseUint(KeyHeight, v, c) },
		Validate: func(c *Config) { c.Height = greaterThan(KeyHeight, c.Height, maxDimension, c, 0) },
	},
	{
		Name: KeyInput,
		Type: "enum:h264,ts",
		Update: func(c *Config, v string) {
			c.Input = parseEnum(
				KeyInput,
				v,
				map[string]uint8{
					"h264": InputAnnexB,
					"ts":   InputMPEGTS,
				},
				c,
			)
		},
		Validate: func(c *Config) {
			switch c.Input {
			case InputAnnexB, InputMPEGTS:
			case NothingDefined:
				c.Input = inputFromPath(c.InputPath)
			default:
				c.LogInvalidField(KeyInput, defaultInput)
				c.Input = defaultInput
			}
		},
	},
	{
		Name:   KeyInputPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.InputPath = v },
	},
	{
		Name: KeyLogging,
		Type: "enum:Debug,Info,Warning,Error,Fatal",
		Update: func(c *Config, v string) {
			switch v {
			case "Debug":
				c.LogLevel = logging.Debug
			case "Info":
				c.LogLevel = logging.Info
			case "Warning":
				c.LogLevel = logging.Warning
			case "Error":
				c.LogLevel = logging.Error
			case "Fatal":
				c.LogLevel = logging.Fatal
			default:
				c.Logger.Warning("invalid Logging param", "value", v)
			}
		},
		Validate: func(c *Config) {
			switch c.LogLevel {
			case logging.Debug, logging.Info, logging.Warning, logging.Error, logging.Fatal:
			default:
				c.LogInvalidField("LogLevel", defaultVerbosity)
				c.LogLevel = defaultVerbosity
			}
		},
	},
	{
		Name:   KeyLogPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.LogPath = v },
		Validate: func(c *Config) {
			if c.LogPath == "" {
				c.LogInvalidField(KeyLogPath, defaultLogPath)
				c.LogPath = defaultLogPath
			}
		},
	},
	{
		Name:   KeyMaxReferences,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.MaxReferences = parseUint(KeyMaxReferences, v, c) },
		Validate: func(c *Config) {
			if c.MaxReferences == 0 || c.MaxReferences > maxReferences {
				c.LogInvalidField(KeyMaxReferences, defaultMaxReferences)
				c.MaxReferences = defaultMaxReferences
			}
		},
	},
	{
		Name:   KeyPoolSize,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.PoolSize = parseUint(KeyPoolSize, v, c) },
		Validate: func(c *Config) {
			c.PoolSize = lessThanOrEqual(KeyPoolSize, c.PoolSize, c.MaxReferences, c, defaultPoolSize)
		},
	},
	{
		Name: KeyProfile,
		Type: "enum:h264constrainedbaseline,h264baseline,h264main,h264high",
		Update: func(c *Config, v string) {
			c.Profile = Profile(parseEnum(
				KeyProfile,
				v,
				map[string]uint8{
					"h264constrainedbaseline": uint8(ProfileH264ConstrainedBaseline),
					"h264baseline":            uint8(ProfileH264Baseline),
					"h264main":                uint8(ProfileH264Main),
					"h264high":                uint8(ProfileH264High),
				},
				c,
			))
		},
		Validate: func(c *Config) {
			if c.Profile != ProfileNone && !c.Profile.IsH264() {
				c.LogInvalidField(KeyProfile, ProfileNone)
				c.Profile = ProfileNone
			}
		},
	},
	{
		Name:   KeyStartPTS,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.StartPTS = uint64(parseUint(KeyStartPTS, v, c)) },
	},
	{
		Name:   KeyWatch,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.Watch = parseBool(KeyWatch, v, c) },
	},
	{
		Name:     KeyWidth,
		Type:     typeUint,
		Update:   func(c *Config, v string) { c.Width = parseUint(KeyWidth, v, c) },
		Validate: func(c *Config) { c.Width = greaterThan(KeyWidth, c.Width, maxDimension, c, 0) },
	},
}

// inputFromPath returns the input type suggested by the extension of path.
func inputFromPath(path string) uint8 {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".mts":
		return InputMPEGTS
	default:
		return defaultInput
	}
}

func parseUint(n, v string, c *Config) uint {
	_v, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected unsigned int for param %s", n), "value", v)
	}
	return uint(_v)
}

func parseBool(n, v string, c *Config) (b bool) {
	switch strings.ToLower(v) {
	case "true":
		b = true
	case "false":
		b = false
	default:
		c.Logger.Warning(fmt.Sprintf("expect bool for param %s", n), "value", v)
	}
	return
}

func parseEnum(n, v string, enums map[string]uint8, c *Config) uint8 {
	_v, ok := enums[strings.ToLower(v)]
	if !ok {
		c.Logger.Warning(fmt.Sprintf("invalid value for %s param", n), "value", v)
	}
	return _v
}

func lessThanOrEqual(n string, v, cmp uint, c *Config, def uint) uint {
	if v <= cmp {
		c.LogInvalidField(n, def)
		return def
	}
	return v
}

func greaterThan(n string, v, cmp uint, c *Config, def uint) uint {
	if v > cmp {
		c.LogInvalidField(n, def)
		return def
	}
	return v
}
