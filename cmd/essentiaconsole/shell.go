package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/essentiactl/internal/protocol"
	"github.com/rs/zerolog/log"
)

var (
	errUsage          = errors.New("console: usage")
	errUnknownCommand = errors.New("console: unknown command")
)

// Controller is the amplifier surface the console drives.
type Controller interface {
	ZoneStatus(ctx context.Context, zone int) (protocol.ZoneStatus, error)
	ZoneTone(ctx context.Context, zone int) (protocol.ZoneToneStatus, error)
	TurnOnZone(ctx context.Context, zone int) (bool, error)
	TurnOffZone(ctx context.Context, zone int) (bool, error)
	MuteZone(ctx context.Context, zone int) (bool, error)
	UnmuteZone(ctx context.Context, zone int) (bool, error)
	SetVolume(ctx context.Context, zone, level int) (bool, error)
	SetBass(ctx context.Context, zone, bass int) (bool, error)
	SetTreble(ctx context.Context, zone, treble int) (bool, error)
	SetSource(ctx context.Context, zone, source int) (bool, error)
}

type command struct {
	args  string
	about string
	nargs int
	run   func(ctx context.Context, s *shell, n []int) error
}

var commands = map[string]command{
	"status": {"ZONE", "power, source, group and volume", 1, func(ctx context.Context, s *shell, n []int) error {
		st, err := s.amp.ZoneStatus(ctx, n[0])
		if err != nil {
			return err
		}
		s.printStatus(st)
		return nil
	}},
	"tone": {"ZONE", "bass, treble and source", 1, func(ctx context.Context, s *shell, n []int) error {
		st, err := s.amp.ZoneTone(ctx, n[0])
		if err != nil {
			return err
		}
		s.printTone(st)
		return nil
	}},
	"on":     {"ZONE", "power the zone on", 1, confirmed(func(c Controller) func(context.Context, int) (bool, error) { return c.TurnOnZone })},
	"off":    {"ZONE", "power the zone off", 1, confirmed(func(c Controller) func(context.Context, int) (bool, error) { return c.TurnOffZone })},
	"mute":   {"ZONE", "mute the zone", 1, confirmed(func(c Controller) func(context.Context, int) (bool, error) { return c.MuteZone })},
	"unmute": {"ZONE", "unmute the zone", 1, confirmed(func(c Controller) func(context.Context, int) (bool, error) { return c.UnmuteZone })},
	"vol":    {"ZONE LEVEL", "attenuation 0-79, 0 is loudest", 2, confirmedArg(func(c Controller) func(context.Context, int, int) (bool, error) { return c.SetVolume })},
	"bass":   {"ZONE VALUE", "bass -8..8", 2, confirmedArg(func(c Controller) func(context.Context, int, int) (bool, error) { return c.SetBass })},
	"treble": {"ZONE VALUE", "treble -8..8", 2, confirmedArg(func(c Controller) func(context.Context, int, int) (bool, error) { return c.SetTreble })},
	"src":    {"ZONE SOURCE", "select input 1-9", 2, confirmedArg(func(c Controller) func(context.Context, int, int) (bool, error) { return c.SetSource })},
}

func confirmed(pick func(Controller) func(context.Context, int) (bool, error)) func(context.Context, *shell, []int) error {
	return func(ctx context.Context, s *shell, n []int) error {
		ok, err := pick(s.amp)(ctx, n[0])
		if err != nil {
			return err
		}
		s.printConfirm(n[0], ok)
		return nil
	}
}

func confirmedArg(pick func(Controller) func(context.Context, int, int) (bool, error)) func(context.Context, *shell, []int) error {
	return func(ctx context.Context, s *shell, n []int) error {
		ok, err := pick(s.amp)(ctx, n[0], n[1])
		if err != nil {
			return err
		}
		s.printConfirm(n[0], ok)
		return nil
	}
}

// shell executes one console line at a time against a Controller.
type shell struct {
	amp     Controller
	out     io.Writer
	timeout time.Duration
	// sweepFrom and sweepTo bound the zones visited by a bare "sweep".
	sweepFrom int
	sweepTo   int
}

func newShell(amp Controller, out io.Writer, timeout time.Duration) *shell {
	return &shell{amp: amp, out: out, timeout: timeout, sweepFrom: 1, sweepTo: 6}
}

// Exec runs line and reports whether the console should exit.
func (s *shell) Exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	name := strings.ToLower(fields[0])
	args := fields[1:]
	switch name {
	case "quit", "exit":
		return true, nil
	case "help", "?":
		s.printHelp()
		return false, nil
	case "sweep":
		return false, s.sweep(ctx, args)
	}

	cmd, ok := commands[name]
	if !ok {
		return false, fmt.Errorf("%w: %q (try help)", errUnknownCommand, name)
	}
	n, err := parseInts(args, cmd.nargs)
	if err != nil {
		return false, fmt.Errorf("%w: %s %s: %w", errUsage, name, cmd.args, err)
	}
	ctx, cancel := s.commandContext(ctx)
	defer cancel()
	log.Debug().Str("cmd", name).Ints("args", n).Msg("essentiaconsole.shell.Exec")
	return false, cmd.run(ctx, s, n)
}

// sweep queries tone status for a zone range, continuing past failed zones.
func (s *shell) sweep(ctx context.Context, args []string) error {
	from, to := s.sweepFrom, s.sweepTo
	switch len(args) {
	case 0:
	case 2:
		n, err := parseInts(args, 2)
		if err != nil {
			return fmt.Errorf("%w: sweep [FROM TO]: %w", errUsage, err)
		}
		from, to = n[0], n[1]
	default:
		return fmt.Errorf("%w: sweep [FROM TO]", errUsage)
	}
	if from < protocol.MinZone || to > protocol.MaxZone || from > to {
		return fmt.Errorf("%w: sweep range %d-%d outside %d-%d", errUsage, from, to, protocol.MinZone, protocol.MaxZone)
	}

	var errs []error
	for zone := from; zone <= to; zone++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		cctx, cancel := s.commandContext(ctx)
		st, err := s.amp.ZoneTone(cctx, zone)
		cancel()
		if err != nil {
			fmt.Fprintf(s.out, "zone %02d: %v\n", zone, err)
			errs = append(errs, fmt.Errorf("zone %d: %w", zone, err))
			continue
		}
		s.printTone(st)
	}
	return errors.Join(errs...)
}

func (s *shell) commandContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func parseInts(args []string, want int) ([]int, error) {
	if len(args) != want {
		return nil, fmt.Errorf("expected %d arguments, got %d", want, len(args))
	}
	out := make([]int, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("argument %q is not a number", a)
		}
		out[i] = v
	}
	return out, nil
}

func (s *shell) printStatus(st protocol.ZoneStatus) {
	vol := strconv.Itoa(st.Volume.Level)
	switch {
	case st.Volume.Muted:
		vol = "muted"
	case st.Volume.ExternalMute:
		vol = "external mute"
	}
	fmt.Fprintf(s.out, "zone %02d: power=%s source=%d group=%d volume=%s\n", st.Zone, st.Power, st.Source, st.Group, vol)
}

func (s *shell) printTone(st protocol.ZoneToneStatus) {
	treble := strconv.Itoa(st.Treble)
	if !st.TrebleKnown {
		treble = st.TrebleRaw + "?"
	}
	fmt.Fprintf(s.out, "zone %02d: bass=%d treble=%s source=%d\n", st.Zone, st.Bass, treble, st.Source)
}

func (s *shell) printConfirm(zone int, ok bool) {
	if ok {
		fmt.Fprintf(s.out, "zone %02d: ok\n", zone)
		return
	}
	fmt.Fprintf(s.out, "zone %02d: not confirmed by reply\n", zone)
}

func (s *shell) printHelp() {
	names := []string{"status", "tone", "on", "off", "mute", "unmute", "vol", "bass", "treble", "src"}
	for _, name := range names {
		c := commands[name]
		fmt.Fprintf(s.out, "  %-7s %-12s %s\n", name, c.args, c.about)
	}
	fmt.Fprintf(s.out, "  %-7s %-12s %s\n", "sweep", "[FROM TO]", "tone status for each zone")
	fmt.Fprintf(s.out, "  %-7s %-12s %s\n", "quit", "", "close the port and exit")
}
