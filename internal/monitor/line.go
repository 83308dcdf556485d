package monitor

import (
	"fmt"
	"strconv"
	"strings"
)

// EventKind identifies the call-monitor event types the router reports.
type EventKind string

const (
	KindRing       EventKind = "RING"
	KindCall       EventKind = "CALL"
	KindConnect    EventKind = "CONNECT"
	KindDisconnect EventKind = "DISCONNECT"
)

// UnknownKindError is returned for event types this codec does not know.
// The stream reader drops the line and keeps reading.
type UnknownKindError struct {
	Kind string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown call monitor event kind %q", e.Kind)
}

// Line is one parsed call-monitor event. Fields are `;` separated on the
// wire; which fields are present depends on the kind. Timestamp keeps the
// router's own format (DD.MM.YY HH:MM:SS) verbatim.
type Line struct {
	Timestamp string
	Date      string
	Time      string
	Kind      EventKind
	ConnID    string

	ExtID    string // CALL, CONNECT
	Caller   string // RING, CALL, CONNECT; empty means suppressed caller ID
	Callee   string // RING, CALL
	Device   string // RING, CALL
	Duration int    // DISCONNECT, seconds
}

// minimum total field count per kind, timestamp/kind/connID included
var minFields = map[EventKind]int{
	KindRing:       6,
	KindCall:       7,
	KindConnect:    5,
	KindDisconnect: 4,
}

// ParseLine parses one raw call-monitor line. Trailing extra fields are
// tolerated, missing ones are not.
func ParseLine(raw string) (*Line, error) {
	parts := strings.SplitN(strings.TrimRight(raw, "\r\n"), ";", 8)
	if len(parts) < 3 {
		return nil, fmt.Errorf("call monitor line has %d fields, need at least 3", len(parts))
	}
	l := &Line{
		Timestamp: parts[0],
		Kind:      EventKind(parts[1]),
		ConnID:    parts[2],
	}
	if d, t, ok := strings.Cut(l.Timestamp, " "); ok {
		l.Date, l.Time = d, t
	} else {
		l.Date = l.Timestamp
	}
	min, ok := minFields[l.Kind]
	if !ok {
		return nil, &UnknownKindError{Kind: parts[1]}
	}
	if len(parts) < min {
		return nil, fmt.Errorf("%s line has %d fields, need %d", l.Kind, len(parts), min)
	}
	more := parts[3:]
	switch l.Kind {
	case KindRing:
		l.Caller, l.Callee, l.Device = more[0], more[1], more[2]
	case KindCall:
		l.ExtID, l.Caller, l.Callee, l.Device = more[0], more[1], more[2], more[3]
	case KindConnect:
		l.ExtID, l.Caller = more[0], more[1]
	case KindDisconnect:
		d, err := strconv.Atoi(more[0])
		if err != nil {
			return nil, fmt.Errorf("%s duration %q: %w", l.Kind, more[0], err)
		}
		l.Duration = d
	}
	return l, nil
}

// Raw serializes the canonical fields back into wire format, newline
// terminated. Only meaningful for lines built from ParseLine or with the
// per-kind fields filled in.
func (l *Line) Raw() string {
	parts := []string{l.Timestamp, string(l.Kind), l.ConnID}
	switch l.Kind {
	case KindRing:
		parts = append(parts, l.Caller, l.Callee, l.Device)
	case KindCall:
		parts = append(parts, l.ExtID, l.Caller, l.Callee, l.Device)
	case KindConnect:
		parts = append(parts, l.ExtID, l.Caller)
	case KindDisconnect:
		parts = append(parts, strconv.Itoa(l.Duration))
	}
	return strings.Join(parts, ";") + ";\n"
}

func (l *Line) String() string {
	start := fmt.Sprintf("date:%s time:%s type:%s", l.Date, l.Time, l.Kind)
	switch l.Kind {
	case KindRing, KindCall:
		return fmt.Sprintf("%s caller:%s callee:%s", start, l.Caller, l.Callee)
	case KindConnect:
		return fmt.Sprintf("%s caller:%s", start, l.Caller)
	case KindDisconnect:
		return fmt.Sprintf("%s duration:%d", start, l.Duration)
	}
	return start
}

// AnonymizeLine masks the trailing digits of every number-bearing field of a
// raw line. Disconnect lines carry no numbers and pass through unchanged, as
// do lines of unknown shape.
func AnonymizeLine(raw string) string {
	trimmed := strings.TrimRight(raw, "\r\n")
	parts := strings.SplitN(trimmed, ";", 8)
	if len(parts) < 2 {
		return raw
	}
	switch EventKind(parts[1]) {
	case KindDisconnect:
		return raw
	case KindConnect:
		if len(parts) > 4 {
			parts[4] = AnonymizeNumber(parts[4])
		}
	case KindRing:
		if len(parts) > 4 {
			parts[3] = AnonymizeNumber(parts[3])
			parts[4] = AnonymizeNumber(parts[4])
		}
	case KindCall:
		if len(parts) > 5 {
			parts[4] = AnonymizeNumber(parts[4])
			parts[5] = AnonymizeNumber(parts[5])
		}
	default:
		return raw
	}
	return strings.Join(parts, ";") + "\n"
}

// AnonymizeNumber replaces the last 3 digits of a purely numeric string with
// "xxx". Anything else (an already-masked number, a CLIR marker) is returned
// as is, which makes the transform idempotent.
func AnonymizeNumber(number string) string {
	if len(number) < 3 || !isDigits(number) {
		return number
	}
	return number[:len(number)-3] + "xxx"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
