package protocol

import (
	"fmt"
	"strconv"
)

// Encode builds `*Z<zz><verb>[<arg>]\r` after validating zone and argument ranges.
func Encode(zone int, verb Verb, arg *int) (Command, error) {
	if zone < MinZone || zone > MaxZone {
		return Command{}, fmt.Errorf("%w: zone %d out of range %d..%d", ErrInvalidArgument, zone, MinZone, MaxZone)
	}
	shape, needsArg, err := verbShape(verb)
	if err != nil {
		return Command{}, err
	}
	wire := fmt.Sprintf("*Z%02d%s", zone, verb)
	if needsArg {
		if arg == nil {
			return Command{}, fmt.Errorf("%w: %s requires an argument", ErrInvalidArgument, verb)
		}
		if err := checkArg(verb, *arg); err != nil {
			return Command{}, err
		}
		wire += strconv.Itoa(*arg)
	} else if arg != nil {
		return Command{}, fmt.Errorf("%w: %s takes no argument", ErrInvalidArgument, verb)
	}
	return Command{
		Zone:  zone,
		Verb:  verb,
		Reply: shape,
		Wire:  wire + string(Terminator),
	}, nil
}

func ZoneOn(zone int) (Command, error)  { return Encode(zone, VerbOn, nil) }
func ZoneOff(zone int) (Command, error) { return Encode(zone, VerbOff, nil) }
func MuteOn(zone int) (Command, error)  { return Encode(zone, VerbMuteOn, nil) }
func MuteOff(zone int) (Command, error) { return Encode(zone, VerbMuteOff, nil) }

func StatusQuery(zone int) (Command, error) { return Encode(zone, VerbStatus, nil) }
func ToneQuery(zone int) (Command, error)   { return Encode(zone, VerbToneStatus, nil) }

func SetVolume(zone, level int) (Command, error)  { return Encode(zone, VerbVolume, &level) }
func SetBass(zone, bass int) (Command, error)     { return Encode(zone, VerbBass, &bass) }
func SetTreble(zone, treble int) (Command, error) { return Encode(zone, VerbTreble, &treble) }
func SetSource(zone, source int) (Command, error) { return Encode(zone, VerbSource, &source) }

func verbShape(verb Verb) (ReplyShape, bool, error) {
	switch verb {
	case VerbOn, VerbOff, VerbMuteOn, VerbMuteOff, VerbStatus:
		return ReplyStatus, false, nil
	case VerbVolume, VerbSource:
		return ReplyStatus, true, nil
	case VerbToneStatus:
		return ReplyTone, false, nil
	case VerbBass, VerbTreble:
		return ReplyTone, true, nil
	default:
		return 0, false, fmt.Errorf("%w: unknown verb %q", ErrInvalidArgument, verb)
	}
}

func checkArg(verb Verb, v int) error {
	lo, hi := 0, 0
	switch verb {
	case VerbVolume:
		lo, hi = MinVolume, MaxVolume
	case VerbBass, VerbTreble:
		lo, hi = MinTone, MaxTone
	case VerbSource:
		lo, hi = MinSource, MaxSource
	}
	if v < lo || v > hi {
		return fmt.Errorf("%w: %s %d out of range %d..%d", ErrInvalidArgument, verb, v, lo, hi)
	}
	return nil
}
