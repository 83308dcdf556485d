package prefix

import "strings"

// Kind classifies a dialing prefix.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindLandline
	KindLandlineInactive
	KindMobile
	KindSpecial
	KindFreephone
	KindPayphone
	KindReserve
	KindCountry
)

func (k Kind) String() string {
	switch k {
	case KindLandline:
		return "landline"
	case KindLandlineInactive:
		return "landline_inactive"
	case KindMobile:
		return "mobile"
	case KindSpecial:
		return "special"
	case KindFreephone:
		return "freephone"
	case KindPayphone:
		return "payphone"
	case KindReserve:
		return "reserve"
	case KindCountry:
		return "country"
	default:
		return "unknown"
	}
}

// Entry is one resolved prefix.
type Entry struct {
	Code string
	Name string
	Kind Kind
}

// Names returned by Name when no table entry matches.
const (
	NameAbroad  = "ABROAD"
	NameUnknown = "UNKNOWN"
)

// Table maps dialing prefixes to entries. It is built once at startup and
// read-only afterwards.
type Table struct {
	entries     map[string]Entry
	countryCode string // e.g. "0049"
}

// NewTable builds an empty table for the given own country code.
func NewTable(countryCode string) *Table {
	return &Table{entries: make(map[string]Entry), countryCode: countryCode}
}

func (t *Table) add(code, name string, kind Kind) {
	t.entries[code] = Entry{Code: code, Name: name, Kind: kind}
}

// Len reports the number of loaded prefixes.
func (t *Table) Len() int { return len(t.entries) }

// CountryCode returns the own country code the table was built for.
func (t *Table) CountryCode() string { return t.countryCode }

// Resolve finds the longest known prefix of number. A number qualified with
// the own country code is first folded back to its domestic form ("00497191"
// matches like "07191"). Landline area codes run 3 to 5 digits, mobile
// ranges up to 6, country codes 3 ("001") to 8 ("00441534"), so the probe
// order longest-first keeps a short country code from shadowing a longer
// domestic prefix.
func (t *Table) Resolve(number string) *Entry {
	if strings.HasPrefix(number, t.countryCode) && len(number) > len(t.countryCode) {
		number = "0" + number[len(t.countryCode):]
	}
	for n := 8; n >= 3; n-- {
		if len(number) < n {
			continue
		}
		if e, ok := t.entries[number[:n]]; ok {
			return &e
		}
	}
	return nil
}

// Name returns the display name for a number's prefix, or ABROAD/UNKNOWN
// when the table has no entry.
func (t *Table) Name(number string) string {
	if e := t.Resolve(number); e != nil {
		return e.Name
	}
	if strings.HasPrefix(number, "00") {
		return NameAbroad
	}
	return NameUnknown
}
