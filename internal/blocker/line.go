package blocker

import (
	"fmt"
	"strconv"
	"strings"

	"callscreen/internal/monitor"
	"callscreen/internal/reputation"
)

// Rate is the blocker's verdict for one RING or CALL event.
type Rate string

const (
	RateWhitelist Rate = "WHITELIST"
	RateBlacklist Rate = "BLACKLIST"
	RateBlock     Rate = "BLOCK"
	RatePass      Rate = "PASS"
)

// method flags in the decision log line
const (
	methodNone    = 0 // verdict came from a list hit, no external lookup
	methodCascade = 1 // reputation cascade was consulted
)

// Decision is the outcome of classifying one event. Reputation is nil when
// the verdict came from a list or the anonymous short-circuit.
type Decision struct {
	Timestamp  string // event timestamp, router format, verbatim
	Rate       Rate
	Number     string // full (qualified) number, empty for anonymous callers
	Name       string
	Reputation *reputation.Info
}

// Line serializes the decision in the blocker log schema:
// timestamp;rate;method;number;"name";[score;comments;searches;]
func (d *Decision) Line() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s;%s;%d;%s;%q;", d.Timestamp, d.Rate, d.methodFlag(), d.Number, d.Name)
	if d.Reputation != nil {
		b.WriteString(optInt(d.Reputation.Score) + ";")
		b.WriteString(optInt(d.Reputation.Comments) + ";")
		b.WriteString(optInt(d.Reputation.Searches) + ";")
	}
	return b.String() + "\n"
}

func (d *Decision) methodFlag() int {
	if d.Reputation != nil {
		return methodCascade
	}
	return methodNone
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// ParseDecisionLine parses a blocker log line back into a Decision. It is
// the inverse of Line for canonical fields, so old logs can be replayed and
// inspected.
func ParseDecisionLine(raw string) (*Decision, error) {
	parts := strings.Split(strings.TrimRight(raw, "\r\n"), ";")
	if len(parts) < 5 {
		return nil, fmt.Errorf("decision line has %d fields, need at least 5", len(parts))
	}
	method, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, fmt.Errorf("decision line method: %w", err)
	}
	d := &Decision{
		Timestamp: parts[0],
		Rate:      Rate(parts[1]),
		Number:    parts[3],
		Name:      unquoteName(parts[4]),
	}
	switch d.Rate {
	case RateWhitelist, RateBlacklist, RateBlock, RatePass:
	default:
		return nil, fmt.Errorf("unknown decision rate %q", parts[1])
	}
	if method == methodCascade {
		if len(parts) < 8 {
			return nil, fmt.Errorf("cascade decision line has %d fields, need 8", len(parts))
		}
		info := &reputation.Info{
			Number: d.Number,
			Name:   d.Name,
			Method: reputation.MethodCombined,
		}
		info.Score = parseOptInt(parts[5])
		info.Comments = parseOptInt(parts[6])
		info.Searches = parseOptInt(parts[7])
		d.Reputation = info
	}
	return d, nil
}

// unquoteName reverses the %q rendering of the name field, including
// escaped embedded quotes. Bare names from hand-edited logs pass through.
func unquoteName(s string) string {
	if name, err := strconv.Unquote(s); err == nil {
		return name
	}
	return strings.Trim(s, `"`)
}

func parseOptInt(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// AnonymizeDecisionLine masks the number and blanks the name of a raw
// blocker log line.
func AnonymizeDecisionLine(raw string) string {
	parts := strings.Split(strings.TrimRight(raw, "\r\n"), ";")
	if len(parts) < 5 {
		return raw
	}
	parts[3] = monitor.AnonymizeNumber(parts[3])
	parts[4] = `"Anonymized"`
	return strings.Join(parts, ";") + "\n"
}
