package lawicel

import (
	"reflect"
	"testing"
)

func TestFramerChunking(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   []string
	}{
		{name: "frame and version", stream: "t1238AABBCCDD\rV1234\r", want: []string{"t1238AABBCCDD", "V1234"}},
		{name: "bell before ack", stream: "t1232AABB\r\aZ\r", want: []string{"t1232AABB", Bell, "Z"}},
		{name: "bell before version", stream: "\aV1013\r", want: []string{Bell, "V1013"}},
		{name: "bell inside frame", stream: "t12\a3\r", want: []string{Bell, "t123"}},
		{name: "bell between ok and frame", stream: "\r\a\at1230\r", want: []string{"", Bell, Bell, "t1230"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var whole Framer
			if got := whole.Feed([]byte(tt.stream)); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("single chunk: got %q, want %q", got, tt.want)
			}

			for split := 0; split <= len(tt.stream); split++ {
				var f Framer
				var got []string
				got = append(got, f.Feed([]byte(tt.stream[:split]))...)
				got = append(got, f.Feed([]byte(tt.stream[split:]))...)
				if !reflect.DeepEqual(got, tt.want) {
					t.Fatalf("split at %d: got %q, want %q", split, got, tt.want)
				}
				if f.Pending() != "" {
					t.Fatalf("split at %d: pending %q, want empty", split, f.Pending())
				}
			}

			var f Framer
			var got []string
			for i := 0; i < len(tt.stream); i++ {
				got = append(got, f.Feed([]byte{tt.stream[i]})...)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("byte at a time: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFramerRetainsPartialLine(t *testing.T) {
	var f Framer
	if got := f.Feed([]byte("t12")); len(got) != 0 {
		t.Fatalf("Feed partial = %q, want no lines", got)
	}
	if got := f.Feed([]byte("32AA")); len(got) != 0 {
		t.Fatalf("Feed partial = %q, want no lines", got)
	}
	if f.Pending() != "t1232AA" {
		t.Fatalf("Pending = %q, want t1232AA", f.Pending())
	}
	got := f.Feed([]byte("BB\rt00"))
	if !reflect.DeepEqual(got, []string{"t1232AABB"}) {
		t.Fatalf("Feed = %q", got)
	}
	if f.Pending() != "t00" {
		t.Fatalf("Pending = %q, want t00", f.Pending())
	}
}

func TestFramerEmptyLines(t *testing.T) {
	var f Framer
	got := f.Feed([]byte("\r\rz\r"))
	want := []string{"", "", "z"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Feed = %q, want %q", got, want)
	}
	if ev := Decode(got[0]); ev.Kind != KindOkSignal {
		t.Fatalf("empty segment decodes to %v, want ok_response", ev.Kind)
	}
}

func TestFramerBell(t *testing.T) {
	tests := []struct {
		name        string
		chunks      []string
		want        []string
		wantPending string
	}{
		{
			name:   "bare bell",
			chunks: []string{"\x07"},
			want:   []string{Bell},
		},
		{
			name:   "bell after complete line",
			chunks: []string{"z\r\x07"},
			want:   []string{"z", Bell},
		},
		{
			name:        "bell inside partial line",
			chunks:      []string{"t12\x073"},
			want:        []string{Bell},
			wantPending: "t123",
		},
		{
			name:   "two bells",
			chunks: []string{"\x07\x07"},
			want:   []string{Bell, Bell},
		},
		{
			name:   "bell then empty line",
			chunks: []string{"\x07\r"},
			want:   []string{Bell, ""},
		},
		{
			name:   "bell before response in one chunk",
			chunks: []string{"\x07Z\r"},
			want:   []string{Bell, "Z"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f Framer
			var got []string
			for _, c := range tt.chunks {
				got = append(got, f.Feed([]byte(c))...)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("lines = %q, want %q", got, tt.want)
			}
			if f.Pending() != tt.wantPending {
				t.Fatalf("Pending = %q, want %q", f.Pending(), tt.wantPending)
			}
			for _, line := range got {
				if line == Bell && Decode(line).Kind != KindErrorSignal {
					t.Fatalf("bell segment does not decode to error_response")
				}
			}
		})
	}
}

func TestFramerReset(t *testing.T) {
	var f Framer
	f.Feed([]byte("t123"))
	f.Reset()
	if got := f.Feed([]byte("V1\r")); !reflect.DeepEqual(got, []string{"V1"}) {
		t.Fatalf("Feed after Reset = %q", got)
	}
}
