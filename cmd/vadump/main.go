/*
DESCRIPTION
  vadump renders an H.264 stream, read from an Annex B or MPEG-TS file,
  through a decoder backed by a recording accelerator, and prints the picture
  and slice parameter records the hardware would be given.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package vadump prints the decode records produced for an H.264 stream.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"
	"github.com/ausocean/vdpva/decoder/config"
)

// Current software version.
const version = "v0.1.0"

// Logging configuration.
const (
	logFile      = "vadump.log"
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

// flagKeys maps command line flag names to config variable names.
var flagKeys = map[string]string{
	"path":    config.KeyInputPath,
	"input":   config.KeyInput,
	"profile": config.KeyProfile,
	"width":   config.KeyWidth,
	"height":  config.KeyHeight,
	"maxrefs": config.KeyMaxReferences,
	"pool":    config.KeyPoolSize,
	"start":   config.KeyStartPTS,
	"end":     config.KeyEndPTS,
	"watch":   config.KeyWatch,
	"log":     config.KeyLogging,
	"logpath": config.KeyLogPath,
}

func main() {
	showVersion := flag.Bool("version", false, "show version")
	flag.String("path", "", "input file path")
	flag.String("input", "", "input type, h264 or ts; derived from the path extension if unset")
	flag.String("profile", "", "decoder profile; taken from the stream if unset")
	flag.Uint("width", 0, "picture width; taken from the stream if unset")
	flag.Uint("height", 0, "picture height; taken from the stream if unset")
	flag.Uint("maxrefs", 16, "maximum reference frames used in list construction")
	flag.Uint("pool", 21, "number of decode surfaces")
	flag.Uint64("start", 0, "first PTS of MPEG-TS input to dump")
	flag.Uint64("end", 0, "PTS of MPEG-TS input to stop dumping at, 0 for no limit")
	flag.Bool("watch", false, "dump again each time the input is written")
	flag.String("log", "Info", "log verbosity: Debug, Info, Warning, Error or Fatal")
	flag.String("logpath", "", "directory for the log file, /var/log/vadump if unset")
	flag.Parse()
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	// The log file location comes from the config, so the config is
	// validated with a logger writing to stderr only.
	cfg := config.Config{Logger: logging.New(logVerbosity, os.Stderr, logSuppress)}
	cfg.Update(flagVars(flag.CommandLine))
	err := cfg.Validate()
	if err != nil {
		cfg.Logger.Fatal("invalid config", "error", err.Error())
	}

	// Create lumberjack logger to handle logging to file.
	fileLog := &lumberjack.Logger{
		Filename:   logFilePath(cfg),
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(cfg.LogLevel, io.MultiWriter(os.Stderr, fileLog), logSuppress)
	cfg.Logger = log

	if cfg.InputPath == "" {
		log.Fatal("no input path given")
	}
	log.Info("starting vadump", "version", version, "path", cfg.InputPath)

	err = dump(cfg, os.Stdout)
	if err != nil {
		log.Error("could not dump input", "error", err.Error())
	}
	if !cfg.Watch {
		if err != nil {
			os.Exit(1)
		}
		return
	}

	err = watch(cfg, os.Stdout)
	if err != nil {
		log.Fatal("could not watch input", "error", err.Error())
	}
}

// logFilePath returns the path of the log file in the configured log
// directory.
func logFilePath(c config.Config) string {
	return filepath.Join(c.LogPath, logFile)
}

// flagVars returns the config variables given by the flags set on the
// command line.
func flagVars(fs *flag.FlagSet) map[string]string {
	vars := make(map[string]string)
	fs.Visit(func(f *flag.Flag) {
		k, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		vars[k] = f.Value.String()
	})
	return vars
}

// watch dumps the input again each time it is written.
func watch(c config.Config, out io.Writer) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	err = w.Add(c.InputPath)
	if err != nil {
		return err
	}
	c.Logger.Info("watching input", "path", c.InputPath)

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) {
				continue
			}
			c.Logger.Debug("input written", "path", ev.Name)
			err := dump(c, out)
			if err != nil {
				c.Logger.Error("could not dump input", "error", err.Error())
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.Logger.Warning("watcher error", "error", err.Error())
		}
	}
}
