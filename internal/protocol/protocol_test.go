package protocol

import (
	"errors"
	"testing"
)

func TestEncodeCommands(t *testing.T) {
	cases := []struct {
		name  string
		build func() (Command, error)
		wire  string
		shape ReplyShape
	}{
		{name: "on", build: func() (Command, error) { return ZoneOn(1) }, wire: "*Z01ON\r", shape: ReplyStatus},
		{name: "off", build: func() (Command, error) { return ZoneOff(12) }, wire: "*Z12OFF\r", shape: ReplyStatus},
		{name: "mute", build: func() (Command, error) { return MuteOn(3) }, wire: "*Z03MTON\r", shape: ReplyStatus},
		{name: "unmute", build: func() (Command, error) { return MuteOff(3) }, wire: "*Z03MTOFF\r", shape: ReplyStatus},
		{name: "volume", build: func() (Command, error) { return SetVolume(2, 50) }, wire: "*Z02VOL50\r", shape: ReplyStatus},
		{name: "volume-zero", build: func() (Command, error) { return SetVolume(2, 0) }, wire: "*Z02VOL0\r", shape: ReplyStatus},
		{name: "bass-negative", build: func() (Command, error) { return SetBass(4, -3) }, wire: "*Z04BASS-3\r", shape: ReplyTone},
		{name: "treble", build: func() (Command, error) { return SetTreble(4, 8) }, wire: "*Z04TREB8\r", shape: ReplyTone},
		{name: "source", build: func() (Command, error) { return SetSource(10, 6) }, wire: "*Z10SRC6\r", shape: ReplyStatus},
		{name: "status", build: func() (Command, error) { return StatusQuery(5) }, wire: "*Z05CONSR\r", shape: ReplyStatus},
		{name: "tone-status", build: func() (Command, error) { return ToneQuery(6) }, wire: "*Z06SETSR\r", shape: ReplyTone},
	}
	for _, tc := range cases {
		cmd, err := tc.build()
		if err != nil {
			t.Fatalf("%s: encode failed: %v", tc.name, err)
		}
		if cmd.Wire != tc.wire {
			t.Fatalf("%s: wire=%q want %q", tc.name, cmd.Wire, tc.wire)
		}
		if cmd.Reply != tc.shape {
			t.Fatalf("%s: reply shape=%v want %v", tc.name, cmd.Reply, tc.shape)
		}
	}
}

func TestEncodeRejectsOutOfRange(t *testing.T) {
	cases := []func() (Command, error){
		func() (Command, error) { return ZoneOn(0) },
		func() (Command, error) { return ZoneOn(13) },
		func() (Command, error) { return SetVolume(1, 80) },
		func() (Command, error) { return SetVolume(1, -1) },
		func() (Command, error) { return SetBass(1, 9) },
		func() (Command, error) { return SetTreble(1, -9) },
		func() (Command, error) { return SetSource(1, 0) },
		func() (Command, error) { return Encode(1, Verb("PLAY"), nil) },
		func() (Command, error) { return Encode(1, VerbVolume, nil) },
	}
	for i, build := range cases {
		if _, err := build(); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("case %d: expected ErrInvalidArgument, got %v", i, err)
		}
	}
	one := 1
	if _, err := Encode(1, VerbOn, &one); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for unexpected argument, got %v", err)
	}
}

func TestDecodeStatus(t *testing.T) {
	status, err := DecodeStatus("#Z01PWRON,SRC1,GRP1,VOL-45")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Zone != 1 {
		t.Fatalf("zone=%d want 1", status.Zone)
	}
	if status.Power != PowerOn || !status.On() {
		t.Fatalf("power=%q want ON", status.Power)
	}
	if status.Source != 1 || status.Group != 1 {
		t.Fatalf("source/group=%d/%d want 1/1", status.Source, status.Group)
	}
	if status.Volume.Level != 45 || status.Volume.Raw != "45" || status.Volume.Muted {
		t.Fatalf("unexpected volume: %+v", status.Volume)
	}

	off, err := DecodeStatus("#Z12PWROFF,SRC6,GRP0,VOL-00\r")
	if err != nil {
		t.Fatalf("decode off: %v", err)
	}
	if off.Zone != 12 || off.Power != PowerOff || off.Source != 6 || off.Volume.Level != 0 {
		t.Fatalf("unexpected off status: %+v", off)
	}
}

func TestDecodeStatusVolumeSentinels(t *testing.T) {
	muted, err := DecodeStatus("#Z02PWRON,SRC3,GRP0,VOL-MT")
	if err != nil {
		t.Fatalf("decode MT: %v", err)
	}
	if !muted.Volume.Muted || muted.Volume.ExternalMute {
		t.Fatalf("expected muted: %+v", muted.Volume)
	}

	ext, err := DecodeStatus("#Z02PWRON,SRC3,GRP0,VOL-XT")
	if err != nil {
		t.Fatalf("decode XT: %v", err)
	}
	if !ext.Volume.ExternalMute || ext.Volume.Muted {
		t.Fatalf("expected external mute: %+v", ext.Volume)
	}
}

func TestDecodeStatusShapeErrors(t *testing.T) {
	cases := []struct {
		line    string
		kind    ParseErrorKind
		segment int
	}{
		{line: "", kind: ParseSegmentCount},
		{line: "#Z01PWRON,SRC1,GRP1", kind: ParseSegmentCount},
		{line: "Z01,PWR ON,SRC1,GRP1,VOL45", kind: ParseSegmentShort, segment: 1},
		{line: "#Z01PWR,SRC1,GRP1,VOL-45", kind: ParseSegmentShort, segment: 1},
		{line: "#Z01PWRON,SR,GRP1,VOL-45", kind: ParseSegmentShort, segment: 2},
		{line: "#Z01PWRON,SRC1,GRP1,VOL", kind: ParseSegmentShort, segment: 4},
		{line: "#Z01PWRUP,SRC1,GRP1,VOL-45", kind: ParseInvalidField, segment: 1},
		{line: "#ZXXPWRON,SRC1,GRP1,VOL-45", kind: ParseInvalidField, segment: 1},
		{line: "#Z99PWRON,SRC1,GRP1,VOL-45", kind: ParseInvalidField, segment: 1},
		{line: "#Z01PWRON,SRCx,GRP1,VOL-45", kind: ParseInvalidField, segment: 2},
		{line: "#Z01PWRON,SRC1,GRP1,VOL-95", kind: ParseInvalidField, segment: 4},
		{line: "#Z01PWRON,SRC1,GRP1,VOL-ZZ", kind: ParseInvalidField, segment: 4},
	}
	for _, tc := range cases {
		_, err := DecodeStatus(tc.line)
		if !errors.Is(err, ErrParse) {
			t.Fatalf("%q: expected ErrParse, got %v", tc.line, err)
		}
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("%q: expected *ParseError, got %T", tc.line, err)
		}
		if perr.Kind != tc.kind || perr.Segment != tc.segment {
			t.Fatalf("%q: kind=%s segment=%d want %s/%d", tc.line, perr.Kind, perr.Segment, tc.kind, tc.segment)
		}
	}
}

func TestDecodeTone(t *testing.T) {
	tone, err := DecodeTone("#Z03OR0,TRB2-4,SRC5")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tone.Zone != 3 || tone.Treble != 2 || !tone.TrebleKnown || tone.Bass != -4 || tone.Source != 5 {
		t.Fatalf("unexpected tone: %+v", tone)
	}

	plus, err := DecodeTone("#Z11OR0,TRB0+8,SRC1,GRP0")
	if err != nil {
		t.Fatalf("decode plus: %v", err)
	}
	if plus.Zone != 11 || plus.Bass != 8 || plus.Treble != 0 {
		t.Fatalf("unexpected tone: %+v", plus)
	}
}

func TestDecodeToneSignedTreble(t *testing.T) {
	cases := []struct {
		line   string
		treble int
		known  bool
		raw    string
		bass   int
	}{
		{"#Z01OR0,TRB-+2,SRC1", 0, false, "-", 2},
		{"#Z01OR0,TRB+-4,SRC1", 0, false, "+", -4},
		{"#Z01OR0,TRB-2-4,SRC1", -2, true, "-2", -4},
		{"#Z01OR0,TRB+3+0,SRC1", 3, true, "+3", 0},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			tone, err := DecodeTone(tc.line)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if tone.TrebleKnown != tc.known || tone.TrebleRaw != tc.raw || tone.Bass != tc.bass || tone.Source != 1 {
				t.Fatalf("unexpected tone: %+v", tone)
			}
			if tc.known && tone.Treble != tc.treble {
				t.Fatalf("expected treble %d, got %d", tc.treble, tone.Treble)
			}
		})
	}
}

func TestDecodeToneShapeErrors(t *testing.T) {
	cases := []string{
		"#Z03OR0,TRB2-4",
		"#Z03OR0,TRB,SRC5",
		"#Z03OR0,TRB2,SRC5",
		"#Z03OR0,TRB2-9,SRC5",
		"#Z03OR0,TRBx-4,SRC5",
		"#Z03OR0,TRB9-4,SRC5",
		"#Z03OR0,TRB-9-4,SRC5",
		"#Z03OR0,TRB-,SRC5",
		"#Z03OR0,TRB2-4,SR",
	}
	for _, line := range cases {
		if _, err := DecodeTone(line); !errors.Is(err, ErrParse) {
			t.Fatalf("%q: expected ErrParse, got %v", line, err)
		}
	}
}

func TestParseVolume(t *testing.T) {
	if v, ok := ParseVolume("45"); !ok || v.Level != 45 {
		t.Fatalf("unexpected: %+v %v", v, ok)
	}
	if v, ok := ParseVolume("MT"); !ok || !v.Muted {
		t.Fatalf("unexpected: %+v %v", v, ok)
	}
	if v, ok := ParseVolume("XT"); !ok || !v.ExternalMute {
		t.Fatalf("unexpected: %+v %v", v, ok)
	}
	for _, raw := range []string{"", "80", "123", "-5", "M"} {
		if _, ok := ParseVolume(raw); ok {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}
