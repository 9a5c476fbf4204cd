package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/danmuck/essentiactl/internal/protocol"
	"github.com/danmuck/essentiactl/internal/queue"
	"github.com/danmuck/essentiactl/internal/testutil/testlog"
)

type stubController struct {
	calls   []string
	failFor map[int]error
}

func (c *stubController) record(format string, args ...any) {
	c.calls = append(c.calls, fmt.Sprintf(format, args...))
}

func (c *stubController) ZoneStatus(_ context.Context, zone int) (protocol.ZoneStatus, error) {
	c.record("status %d", zone)
	return protocol.ZoneStatus{Zone: zone, Power: protocol.PowerOn, Source: 2, Group: 1, Volume: protocol.Volume{Muted: true, Raw: "MT"}}, nil
}

func (c *stubController) ZoneTone(_ context.Context, zone int) (protocol.ZoneToneStatus, error) {
	c.record("tone %d", zone)
	if err := c.failFor[zone]; err != nil {
		return protocol.ZoneToneStatus{}, err
	}
	return protocol.ZoneToneStatus{Zone: zone, Bass: -2, Treble: 3, TrebleKnown: true, Source: zone}, nil
}

func (c *stubController) TurnOnZone(_ context.Context, zone int) (bool, error) {
	c.record("on %d", zone)
	return true, nil
}

func (c *stubController) TurnOffZone(_ context.Context, zone int) (bool, error) {
	c.record("off %d", zone)
	return true, nil
}

func (c *stubController) MuteZone(_ context.Context, zone int) (bool, error) {
	c.record("mute %d", zone)
	return true, nil
}

func (c *stubController) UnmuteZone(_ context.Context, zone int) (bool, error) {
	c.record("unmute %d", zone)
	return false, nil
}

func (c *stubController) SetVolume(_ context.Context, zone, level int) (bool, error) {
	c.record("vol %d %d", zone, level)
	return true, nil
}

func (c *stubController) SetBass(_ context.Context, zone, bass int) (bool, error) {
	c.record("bass %d %d", zone, bass)
	return true, nil
}

func (c *stubController) SetTreble(_ context.Context, zone, treble int) (bool, error) {
	c.record("treble %d %d", zone, treble)
	return true, nil
}

func (c *stubController) SetSource(_ context.Context, zone, source int) (bool, error) {
	c.record("src %d %d", zone, source)
	return true, nil
}

func TestShellDispatchesCommands(t *testing.T) {
	testlog.Start(t)
	amp := &stubController{}
	var out bytes.Buffer
	sh := newShell(amp, &out, 0)

	lines := []string{"on 1", "VOL 1 45", "bass 2 -3", "treble 2 4", "src 3 5", "mute 4", "unmute 4", "off 1", ""}
	for _, l := range lines {
		quit, err := sh.Exec(context.Background(), l)
		if err != nil || quit {
			t.Fatalf("Exec(%q): quit=%v err=%v", l, quit, err)
		}
	}
	want := []string{"on 1", "vol 1 45", "bass 2 -3", "treble 2 4", "src 3 5", "mute 4", "unmute 4", "off 1"}
	if strings.Join(amp.calls, ";") != strings.Join(want, ";") {
		t.Fatalf("unexpected calls: %v", amp.calls)
	}
	if !strings.Contains(out.String(), "zone 04: not confirmed by reply") {
		t.Fatalf("expected unconfirmed unmute in output:\n%s", out.String())
	}
}

func TestShellPrintsStatusAndTone(t *testing.T) {
	testlog.Start(t)
	var out bytes.Buffer
	sh := newShell(&stubController{}, &out, 0)

	if _, err := sh.Exec(context.Background(), "status 7"); err != nil {
		t.Fatalf("status: %v", err)
	}
	if _, err := sh.Exec(context.Background(), "tone 3"); err != nil {
		t.Fatalf("tone: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "zone 07: power=ON source=2 group=1 volume=muted") {
		t.Fatalf("unexpected status output:\n%s", got)
	}
	if !strings.Contains(got, "zone 03: bass=-2 treble=3 source=3") {
		t.Fatalf("unexpected tone output:\n%s", got)
	}
}

func TestShellRejectsBadInput(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		line string
		want error
	}{
		{"vol 1", errUsage},
		{"vol one 40", errUsage},
		{"on 1 2", errUsage},
		{"sweep 3", errUsage},
		{"sweep 6 1", errUsage},
		{"sweep 0 13", errUsage},
		{"reboot 1", errUnknownCommand},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			amp := &stubController{}
			sh := newShell(amp, io.Discard, 0)
			_, err := sh.Exec(context.Background(), tc.line)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if len(amp.calls) != 0 {
				t.Fatalf("bad input reached the amplifier: %v", amp.calls)
			}
		})
	}
}

func TestShellSweepContinuesPastFailedZone(t *testing.T) {
	testlog.Start(t)
	amp := &stubController{failFor: map[int]error{3: queue.ErrStalled}}
	var out bytes.Buffer
	sh := newShell(amp, &out, 0)

	_, err := sh.Exec(context.Background(), "sweep")
	if !errors.Is(err, queue.ErrStalled) {
		t.Fatalf("expected stalled zone in sweep error, got %v", err)
	}
	if len(amp.calls) != 6 || amp.calls[0] != "tone 1" || amp.calls[5] != "tone 6" {
		t.Fatalf("unexpected sweep calls: %v", amp.calls)
	}
	if !strings.Contains(out.String(), "zone 06: bass=-2") {
		t.Fatalf("sweep stopped early:\n%s", out.String())
	}

	amp.calls = nil
	if _, err := sh.Exec(context.Background(), "sweep 8 9"); err != nil {
		t.Fatalf("sweep 8 9: %v", err)
	}
	if strings.Join(amp.calls, ";") != "tone 8;tone 9" {
		t.Fatalf("unexpected ranged sweep calls: %v", amp.calls)
	}
}

type scriptedInput struct {
	lines []string
}

func (s *scriptedInput) ReadLine(string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	l := s.lines[0]
	s.lines = s.lines[1:]
	return l, nil
}

func TestReplStopsOnQuitAndReportsErrors(t *testing.T) {
	testlog.Start(t)
	amp := &stubController{}
	var out bytes.Buffer
	sh := newShell(amp, &out, 0)
	in := &scriptedInput{lines: []string{"bogus", "on 2", "quit", "off 2"}}

	if err := repl(context.Background(), in, sh, nil); err != nil {
		t.Fatalf("repl: %v", err)
	}
	if strings.Join(amp.calls, ";") != "on 2" {
		t.Fatalf("commands after quit ran: %v", amp.calls)
	}
	if !strings.Contains(out.String(), "error: console: unknown command") {
		t.Fatalf("expected error line:\n%s", out.String())
	}
}

func TestReplStopsWhenDeviceLost(t *testing.T) {
	testlog.Start(t)
	lost := make(chan struct{})
	close(lost)
	sh := newShell(&stubController{}, io.Discard, 0)
	if err := repl(context.Background(), &scriptedInput{lines: []string{"on 1"}}, sh, lost); err == nil {
		t.Fatalf("expected lost device error")
	}
}
