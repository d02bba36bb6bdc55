package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestRequiredFlagsErrors(t *testing.T) {
	tests := []struct {
		name    string
		cmd     func() *cobra.Command
		args    []string
		wantErr string
	}{
		{
			name:    "decode missing input",
			cmd:     newDecodeCmd,
			args:    nil,
			wantErr: "required flag --input not set (see \"decode --help\")",
		},
		{
			name:    "send missing id",
			cmd:     func() *cobra.Command { return newSendCmd(&globalFlags{}) },
			args:    nil,
			wantErr: "required flag --id not set (or use --interactive)",
		},
		{
			name:    "send bad count",
			cmd:     func() *cobra.Command { return newSendCmd(&globalFlags{}) },
			args:    []string{"--id", "123", "--count", "0"},
			wantErr: "--count must be >= 1",
		},
		{
			name:    "monitor negative duration",
			cmd:     func() *cobra.Command { return newMonitorCmd(&globalFlags{}) },
			args:    []string{"--duration", "-1"},
			wantErr: "--duration must be >= 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := tt.cmd()
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)
			cmd.SetArgs(tt.args)
			err := cmd.Execute()
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error: got %q want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestHelpArgument(t *testing.T) {
	for _, arg := range []string{"help", "HELP", "?"} {
		t.Run(arg, func(t *testing.T) {
			cmd := newSendCmd(&globalFlags{})
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetErr(io.Discard)
			cmd.SetArgs([]string{arg})
			if err := cmd.Execute(); err != nil {
				t.Fatalf("send %s: %v", arg, err)
			}
			if !strings.Contains(out.String(), "--interactive") {
				t.Fatalf("help not printed:\n%s", out.String())
			}
		})
	}
}

func TestDecodeCommandStdin(t *testing.T) {
	cmd := newDecodeCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader("t1232AABB\r\a"))
	cmd.SetArgs([]string{"--input", "-", "--summary"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("decode: %v", err)
	}
	text := out.String()
	for _, want := range []string{"CAN_STD", "AA BB", "ERROR_RESPONSE", "Total Events: 2"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
}

func TestConfigInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"config", "init", "--config", path})

	if err := root.Execute(); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
}

func TestRootHelpListsCommands(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--help"})

	if err := root.Execute(); err != nil {
		t.Fatalf("help: %v", err)
	}
	for _, name := range []string{"monitor", "send", "ports", "decode", "tui", "config", "--bitrate"} {
		if !strings.Contains(out.String(), name) {
			t.Fatalf("help missing %q:\n%s", name, out.String())
		}
	}
}
