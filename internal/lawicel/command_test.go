package lawicel

import (
	"errors"
	"strings"
	"testing"
)

func TestNewSendCommand(t *testing.T) {
	tests := []struct {
		name      string
		id        string
		dlc       int
		data      string
		extended  bool
		wantErr   string
		wantField string
		wantText  string
	}{
		{name: "valid standard", id: "1A2", dlc: 2, data: "AABB", wantText: "t1A22AABB"},
		{name: "valid lowercase", id: "1a2", dlc: 1, data: "ff", wantText: "t1A21FF"},
		{name: "valid empty", id: "000", dlc: 0, data: "", wantText: "t0000"},
		{name: "valid extended", id: "18DAF110", dlc: 2, data: "0201", extended: true, wantText: "T18DAF11020201"},
		{name: "short id", id: "12", dlc: 2, data: "AABB", wantField: "ID", wantErr: "Must be 3 hex characters."},
		{name: "non hex id", id: "12G", dlc: 0, wantField: "ID", wantErr: "Must be 3 hex characters."},
		{name: "standard id on extended", id: "123", dlc: 0, extended: true, wantField: "ID", wantErr: "Must be 8 hex characters."},
		{name: "dlc too large", id: "123", dlc: 9, data: "", wantField: "DLC", wantErr: "Must be a number 0-8."},
		{name: "negative dlc", id: "123", dlc: -1, wantField: "DLC", wantErr: "Must be a number 0-8."},
		{name: "data too short", id: "123", dlc: 2, data: "AAB", wantField: "Data", wantErr: "Must be 4 hex characters for DLC 2."},
		{name: "data too long", id: "123", dlc: 1, data: "AABB", wantField: "Data", wantErr: "Must be 2 hex characters for DLC 1."},
		{name: "data not hex", id: "123", dlc: 1, data: "ZZ", wantField: "Data", wantErr: "Must be 2 hex characters for DLC 1."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := NewSendCommand(tt.id, tt.dlc, tt.data, tt.extended)
			if tt.wantErr != "" {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("error = %v, want ValidationError", err)
				}
				if verr.Field != tt.wantField {
					t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error = %q, want substring %q", err.Error(), tt.wantErr)
				}
				if cmd != (SendCommand{}) {
					t.Errorf("rejected request produced command %+v", cmd)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := Encode(cmd); got != tt.wantText {
				t.Fatalf("Encode = %q, want %q", got, tt.wantText)
			}
		})
	}
}

func TestParseSendCommand(t *testing.T) {
	cmd, err := ParseSendCommand(" 1a2 ", "2", "AA BB", false)
	if err != nil {
		t.Fatalf("ParseSendCommand: %v", err)
	}
	if got := Encode(cmd); got != "t1A22AABB" {
		t.Fatalf("Encode = %q, want t1A22AABB", got)
	}

	_, err = ParseSendCommand("123", "x", "", false)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "DLC" {
		t.Fatalf("non numeric dlc: err = %v, want DLC validation error", err)
	}

	_, err = ParseSendCommand("12", "x", "", false)
	if !errors.As(err, &verr) || verr.Field != "ID" {
		t.Fatalf("bad id and dlc: err = %v, want ID reported first", err)
	}
}

func TestNewRemoteCommand(t *testing.T) {
	cmd, err := NewRemoteCommand("7df", 8, false)
	if err != nil {
		t.Fatalf("NewRemoteCommand: %v", err)
	}
	if got := Encode(cmd); got != "r7DF8" {
		t.Fatalf("Encode = %q, want r7DF8", got)
	}
	if _, err := NewRemoteCommand("7df", 9, false); err == nil {
		t.Fatal("expected dlc error")
	}
}

func TestIsValidHex(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want bool
	}{
		{"", 0, true},
		{"0aF9", 4, true},
		{"0aF9", 3, false},
		{"0g", 2, false},
		{" 1", 2, false},
	}
	for _, tt := range tests {
		if got := IsValidHex(tt.in, tt.n); got != tt.want {
			t.Errorf("IsValidHex(%q, %d) = %v, want %v", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestBitrateCommand(t *testing.T) {
	if cmd, err := BitrateCommand(500); err != nil || cmd != "S6" {
		t.Fatalf("BitrateCommand(500) = %q, %v; want S6", cmd, err)
	}
	if cmd, err := BitrateCommand(1000); err != nil || cmd != "S8" {
		t.Fatalf("BitrateCommand(1000) = %q, %v; want S8", cmd, err)
	}
	if _, err := BitrateCommand(333); err == nil {
		t.Fatal("expected error for unsupported bitrate")
	}
	if got := string(Terminate(CmdOpen)); got != "O\r" {
		t.Fatalf("Terminate(O) = %q", got)
	}
	if got := string(Terminate(CmdFlush)); got != "\r" {
		t.Fatalf("Terminate(flush) = %q", got)
	}
}

func TestParseRemoteCommand(t *testing.T) {
	cmd, err := ParseRemoteCommand(" 7ff ", "2", false)
	if err != nil {
		t.Fatalf("ParseRemoteCommand: %v", err)
	}
	if got := Encode(cmd); got != "r7FF2" {
		t.Fatalf("Encode = %q, want r7FF2", got)
	}

	_, err = ParseRemoteCommand("12", "x", false)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "ID" {
		t.Fatalf("expected ID error first, got %v", err)
	}
}
