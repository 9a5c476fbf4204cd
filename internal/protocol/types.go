package protocol

import "fmt"

const (
	MinZone   = 1
	MaxZone   = 12
	MinSource = 1
	MaxSource = 9

	MinVolume = 0
	MaxVolume = 79
	MinTone   = -8
	MaxTone   = 8

	Terminator byte = '\r'
)

// Verb is the operation token following the zone prefix.
type Verb string

const (
	VerbOn         Verb = "ON"
	VerbOff        Verb = "OFF"
	VerbMuteOn     Verb = "MTON"
	VerbMuteOff    Verb = "MTOFF"
	VerbVolume     Verb = "VOL"
	VerbBass       Verb = "BASS"
	VerbTreble     Verb = "TREB"
	VerbSource     Verb = "SRC"
	VerbStatus     Verb = "CONSR"
	VerbToneStatus Verb = "SETSR"
)

// ReplyShape names the decoder a command's reply must be read with.
type ReplyShape int

const (
	ReplyStatus ReplyShape = iota
	ReplyTone
)

// Command is one encoded wire command. ID is assigned by the queue on submit.
type Command struct {
	ID    uint64
	Zone  int
	Verb  Verb
	Reply ReplyShape
	Wire  string
}

func (c Command) Bytes() []byte {
	return []byte(c.Wire)
}

func (c Command) String() string {
	return fmt.Sprintf("%s zone=%02d id=%d", c.Verb, c.Zone, c.ID)
}

type Power string

const (
	PowerOn  Power = "ON"
	PowerOff Power = "OFF"
)

// Volume is the decoded volume field: a level or a mute sentinel.
type Volume struct {
	Level        int
	Muted        bool
	ExternalMute bool
	Raw          string
}

// ZoneStatus is the decoded CONSR reply.
type ZoneStatus struct {
	Zone   int
	Power  Power
	Source int
	Group  int
	Volume Volume
}

func (s ZoneStatus) On() bool {
	return s.Power == PowerOn
}

// ZoneToneStatus is the decoded SETSR / tone-set reply.
type ZoneToneStatus struct {
	Zone int
	Bass int
	// Treble is meaningful only when TrebleKnown. TrebleRaw is the treble
	// text as received.
	Treble      int
	TrebleKnown bool
	TrebleRaw   string
	Source      int
}
