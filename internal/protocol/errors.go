package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument = errors.New("protocol: invalid argument")
	ErrParse           = errors.New("protocol: reply parse failed")
)

// ParseErrorKind categorizes reply shape mismatches.
type ParseErrorKind int

const (
	ParseSegmentCount ParseErrorKind = iota
	ParseSegmentShort
	ParseInvalidField
)

func (k ParseErrorKind) String() string {
	switch k {
	case ParseSegmentCount:
		return "segment_count"
	case ParseSegmentShort:
		return "segment_short"
	case ParseInvalidField:
		return "invalid_field"
	default:
		return "unknown"
	}
}

// ParseError reports a reply that does not match the expected comma/offset shape.
type ParseError struct {
	Kind    ParseErrorKind
	Segment int // 1-based; 0 when the whole line is at fault
	Field   string
	Line    string
}

func (e *ParseError) Error() string {
	if e.Segment == 0 {
		return fmt.Sprintf("protocol: parse %s in %q", e.Kind, e.Line)
	}
	if e.Field != "" {
		return fmt.Sprintf("protocol: parse %s segment=%d field=%s in %q", e.Kind, e.Segment, e.Field, e.Line)
	}
	return fmt.Sprintf("protocol: parse %s segment=%d in %q", e.Kind, e.Segment, e.Line)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}
