/*
DESCRIPTION
  main_test.go provides testing for command line handling in main.go.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"flag"
	"testing"

	"github.com/ausocean/utils/logging"
	"github.com/google/go-cmp/cmp"

	"github.com/ausocean/vdpva/decoder/config"
)

func TestFlagVars(t *testing.T) {
	fs := flag.NewFlagSet("vadump", flag.ContinueOnError)
	fs.Bool("version", false, "")
	fs.String("path", "", "")
	fs.Uint("maxrefs", 16, "")
	fs.Uint("pool", 21, "")
	fs.Bool("watch", false, "")
	fs.String("log", "Info", "")

	err := fs.Parse([]string{"-path", "in.ts", "-maxrefs", "4", "-watch", "-version"})
	if err != nil {
		t.Fatalf("unexpected error parsing flags: %v", err)
	}

	want := map[string]string{
		"InputPath":     "in.ts",
		"MaxReferences": "4",
		"Watch":         "true",
	}
	got := flagVars(fs)
	if !cmp.Equal(got, want) {
		t.Errorf("did not get expected result\nGot: %v\nWant: %v\n", got, want)
	}
}

func TestLogFilePath(t *testing.T) {
	tests := []struct {
		vars map[string]string
		want string
	}{
		{
			vars: map[string]string{config.KeyInputPath: "in.h264"},
			want: "/var/log/vadump/vadump.log",
		},
		{
			vars: map[string]string{config.KeyInputPath: "in.h264", config.KeyLogPath: "/tmp/logs"},
			want: "/tmp/logs/vadump.log",
		},
	}

	for i, test := range tests {
		c := config.Config{Logger: (*logging.TestLogger)(t)}
		c.Update(test.vars)
		err := c.Validate()
		if err != nil {
			t.Fatalf("unexpected error for test %d: %v", i, err)
		}
		got := logFilePath(c)
		if got != test.want {
			t.Errorf("did not get expected result for test %d\nGot: %v\nWant: %v\n", i, got, test.want)
		}
	}
}
