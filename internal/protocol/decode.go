package protocol

import (
	"strconv"
	"strings"
)

const (
	VolumeMuted        = "MT"
	VolumeExternalMute = "XT"

	statusSegments = 4
	toneSegments   = 3
)

// DecodeStatus parses a CONSR-shaped reply, e.g. `#Z01PWRON,SRC1,GRP0,VOL-45`.
//
//	seg1[2:5) zone   seg1[7:] power   seg2[3] source
//	seg3[3]   group  seg4[4:9) volume
func DecodeStatus(line string) (ZoneStatus, error) {
	r, err := tokenize(line, statusSegments)
	if err != nil {
		return ZoneStatus{}, err
	}
	zone, err := r.zone()
	if err != nil {
		return ZoneStatus{}, err
	}

	rawPower, err := r.tail(1, 7, 0, "power")
	if err != nil {
		return ZoneStatus{}, err
	}
	var power Power
	switch strings.TrimSpace(rawPower) {
	case string(PowerOn):
		power = PowerOn
	case string(PowerOff):
		power = PowerOff
	default:
		return ZoneStatus{}, r.invalid(1, "power")
	}

	source, err := r.digit(2, 3, "source")
	if err != nil {
		return ZoneStatus{}, err
	}
	group, err := r.digit(3, 3, "group")
	if err != nil {
		return ZoneStatus{}, err
	}

	rawVolume, err := r.tail(4, 4, 9, "volume")
	if err != nil {
		return ZoneStatus{}, err
	}
	volume, ok := ParseVolume(rawVolume)
	if !ok {
		return ZoneStatus{}, r.invalid(4, "volume")
	}

	return ZoneStatus{
		Zone:   zone,
		Power:  power,
		Source: source,
		Group:  group,
		Volume: volume,
	}, nil
}

// DecodeTone parses a SETSR / tone-set reply.
//
//	seg1[2:5) zone   seg2[3] treble   seg2[4:9) bass   seg3[3] source
//
// A negative treble arrives as a sign at seg2[3]. When a digit and another
// sign follow, the treble is that signed digit and bass starts one byte later.
// A lone sign leaves the treble magnitude unknown: TrebleKnown is false and
// the rest of the reply still decodes.
func DecodeTone(line string) (ZoneToneStatus, error) {
	r, err := tokenize(line, toneSegments)
	if err != nil {
		return ZoneToneStatus{}, err
	}
	zone, err := r.zone()
	if err != nil {
		return ZoneToneStatus{}, err
	}
	ts := ZoneToneStatus{Zone: zone}

	seg := r.seg(2)
	if len(seg) <= 3 {
		return ZoneToneStatus{}, r.short(2, "treble")
	}
	bassAt := 4
	switch c := seg[3]; {
	case isDigit(c):
		ts.Treble, ts.TrebleKnown = int(c-'0'), true
		ts.TrebleRaw = seg[3:4]
	case isSign(c):
		ts.TrebleRaw = seg[3:4]
		if len(seg) > 5 && isDigit(seg[4]) && isSign(seg[5]) {
			ts.Treble, ts.TrebleKnown = int(seg[4]-'0'), true
			if c == '-' {
				ts.Treble = -ts.Treble
			}
			ts.TrebleRaw = seg[3:5]
			bassAt = 5
		}
	default:
		return ZoneToneStatus{}, r.invalid(2, "treble")
	}
	if ts.TrebleKnown && (ts.Treble < MinTone || ts.Treble > MaxTone) {
		return ZoneToneStatus{}, r.invalid(2, "treble")
	}

	rawBass, err := r.tail(2, bassAt, bassAt+5, "bass")
	if err != nil {
		return ZoneToneStatus{}, err
	}
	ts.Bass, err = strconv.Atoi(strings.TrimSpace(rawBass))
	if err != nil || ts.Bass < MinTone || ts.Bass > MaxTone {
		return ZoneToneStatus{}, r.invalid(2, "bass")
	}

	ts.Source, err = r.digit(3, 3, "source")
	if err != nil {
		return ZoneToneStatus{}, err
	}
	return ts, nil
}

// ParseVolume interprets a trimmed volume field: "00".."79", "MT" or "XT".
func ParseVolume(raw string) (Volume, bool) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case VolumeMuted:
		return Volume{Muted: true, Raw: raw}, true
	case VolumeExternalMute:
		return Volume{ExternalMute: true, Raw: raw}, true
	}
	if len(raw) == 0 || len(raw) > 2 || !allDigits(raw) {
		return Volume{}, false
	}
	level, err := strconv.Atoi(raw)
	if err != nil || level < MinVolume || level > MaxVolume {
		return Volume{}, false
	}
	return Volume{Level: level, Raw: raw}, true
}

type reply struct {
	line string
	segs []string
}

func tokenize(line string, minSegments int) (reply, error) {
	line = strings.TrimRight(line, "\r\n")
	segs := strings.Split(line, ",")
	if line == "" || len(segs) < minSegments {
		return reply{}, &ParseError{Kind: ParseSegmentCount, Line: line}
	}
	return reply{line: line, segs: segs}, nil
}

// seg is 1-based to match the reply layout comments.
func (r reply) seg(n int) string {
	return r.segs[n-1]
}

func (r reply) zone() (int, error) {
	s := r.seg(1)
	if len(s) < 5 {
		return 0, r.short(1, "zone")
	}
	field := s[2:5]
	end := 0
	for end < len(field) && isDigit(field[end]) {
		end++
	}
	if end == 0 {
		return 0, r.invalid(1, "zone")
	}
	zone, err := strconv.Atoi(field[:end])
	if err != nil || zone < MinZone || zone > MaxZone {
		return 0, r.invalid(1, "zone")
	}
	return zone, nil
}

// tail returns seg[start:end), clipped at the segment end. end <= 0 means to
// the end of the segment. The segment must reach past start.
func (r reply) tail(n, start, end int, field string) (string, error) {
	s := r.seg(n)
	if len(s) <= start {
		return "", r.short(n, field)
	}
	if end <= 0 || end > len(s) {
		end = len(s)
	}
	return s[start:end], nil
}

func (r reply) digit(n, idx int, field string) (int, error) {
	s := r.seg(n)
	if len(s) <= idx {
		return 0, r.short(n, field)
	}
	if !isDigit(s[idx]) {
		return 0, r.invalid(n, field)
	}
	return int(s[idx] - '0'), nil
}

func (r reply) short(n int, field string) error {
	return &ParseError{Kind: ParseSegmentShort, Segment: n, Field: field, Line: r.line}
}

func (r reply) invalid(n int, field string) error {
	return &ParseError{Kind: ParseInvalidField, Segment: n, Field: field, Line: r.line}
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isSign(b byte) bool {
	return b == '+' || b == '-'
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}
