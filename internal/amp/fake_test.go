package amp

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/danmuck/essentiactl/internal/protocol"
)

type zoneState struct {
	power  bool
	muted  bool
	volume int
	bass   int
	treble int
	source int
}

// fakeAmp answers commands the way the amplifier would, from in-memory state.
type fakeAmp struct {
	mu    sync.Mutex
	wires []string
	zones map[int]*zoneState
	// override, when set, replaces the reply for every command.
	override func(cmd protocol.Command) (string, error)
}

func newFakeAmp() *fakeAmp {
	return &fakeAmp{zones: make(map[int]*zoneState)}
}

func (f *fakeAmp) Do(_ context.Context, cmd protocol.Command) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wires = append(f.wires, strings.TrimSuffix(cmd.Wire, "\r"))
	if f.override != nil {
		return f.override(cmd)
	}
	return f.applyLocked(cmd), nil
}

func (f *fakeAmp) applyLocked(cmd protocol.Command) string {
	z := f.zones[cmd.Zone]
	if z == nil {
		z = &zoneState{source: 1, volume: 40}
		f.zones[cmd.Zone] = z
	}
	arg := commandArg(cmd)
	switch cmd.Verb {
	case protocol.VerbOn:
		z.power = true
	case protocol.VerbOff:
		z.power = false
	case protocol.VerbMuteOn:
		z.muted = true
	case protocol.VerbMuteOff:
		z.muted = false
	case protocol.VerbVolume:
		z.volume = arg
		z.muted = false
	case protocol.VerbBass:
		z.bass = arg
	case protocol.VerbTreble:
		z.treble = arg
	case protocol.VerbSource:
		z.source = arg
	}
	if cmd.Reply == protocol.ReplyTone {
		return toneLine(cmd.Zone, z)
	}
	return statusLine(cmd.Zone, z)
}

func (f *fakeAmp) Wires() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.wires...)
}

func (f *fakeAmp) reset() {
	f.mu.Lock()
	f.wires = nil
	f.mu.Unlock()
}

func commandArg(cmd protocol.Command) int {
	raw := strings.TrimSuffix(cmd.Wire, "\r")
	raw = strings.TrimPrefix(raw[4:], string(cmd.Verb))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		panic(fmt.Sprintf("bad command argument in %q", cmd.Wire))
	}
	return n
}

func statusLine(zone int, z *zoneState) string {
	power := "OFF"
	if z.power {
		power = "ON"
	}
	volume := fmt.Sprintf("%02d", z.volume)
	if z.muted {
		volume = protocol.VolumeMuted
	}
	return fmt.Sprintf("#Z%02dPWR%s,SRC%d,GRP0,VOL-%s", zone, power, z.source, volume)
}

func toneLine(zone int, z *zoneState) string {
	return fmt.Sprintf("#Z%02dOR0,TRB%d%+d,SRC%d", zone, z.treble, z.bass, z.source)
}
