package blocker

import (
	"strings"
	"testing"

	"callscreen/internal/reputation"
)

func intp(v int) *int { return &v }

func TestDecisionLineRoundTrip(t *testing.T) {
	cases := []*Decision{
		{
			Timestamp: "30.08.26 11:22:33",
			Rate:      RateWhitelist,
			Number:    "07191952011",
			Name:      "Oma",
		},
		{
			Timestamp: "30.08.26 11:22:34",
			Rate:      RateBlock,
			Number:    "030666777",
			Name:      "Spamfirma, Berlin",
			Reputation: &reputation.Info{
				Number:   "030666777",
				Name:     "Spamfirma, Berlin",
				Score:    intp(8),
				Comments: intp(5),
				Searches: intp(231),
				Method:   reputation.MethodCombined,
			},
		},
		{
			// cascade consulted but the score service was down
			Timestamp:  "30.08.26 11:22:35",
			Rate:       RatePass,
			Number:     "07191808080",
			Name:       "Backnang",
			Reputation: &reputation.Info{Number: "07191808080", Name: "Backnang", Method: reputation.MethodCombined},
		},
	}
	for _, d := range cases {
		raw := d.Line()
		if !strings.HasSuffix(raw, "\n") {
			t.Fatalf("line not newline terminated: %q", raw)
		}
		parsed, err := ParseDecisionLine(raw)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if got := parsed.Line(); got != raw {
			t.Errorf("round trip changed the line:\n in: %q\nout: %q", raw, got)
		}
	}
}

func TestDecisionLineNameWithQuotes(t *testing.T) {
	d := &Decision{
		Timestamp: "30.08.26 11:22:36",
		Rate:      RatePass,
		Number:    "07191952011",
		Name:      `Feinkost "Adria" GmbH, Backnang`,
	}
	raw := d.Line()
	parsed, err := ParseDecisionLine(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	if parsed.Name != d.Name {
		t.Fatalf("name = %q, want %q", parsed.Name, d.Name)
	}
	if got := parsed.Line(); got != raw {
		t.Fatalf("round trip changed the line:\n in: %q\nout: %q", raw, got)
	}
}

func TestDecisionLineMethodFlag(t *testing.T) {
	listHit := &Decision{Timestamp: "t", Rate: RateBlacklist, Number: "030111", Name: "Spammer"}
	if !strings.Contains(listHit.Line(), ";BLACKLIST;0;") {
		t.Fatalf("list hit should carry method 0: %q", listHit.Line())
	}
	rated := &Decision{Timestamp: "t", Rate: RatePass, Number: "030111", Name: "X",
		Reputation: &reputation.Info{Score: intp(2), Comments: intp(1), Searches: intp(9)}}
	if !strings.Contains(rated.Line(), ";PASS;1;") {
		t.Fatalf("cascade decision should carry method 1: %q", rated.Line())
	}
}

func TestParseDecisionLineRejectsGarbage(t *testing.T) {
	for _, raw := range []string{
		"too;short\n",
		`t;MAYBE;0;030111;"X";` + "\n",      // unknown rate
		`t;BLOCK;1;030111;"X";` + "\n",      // method 1 without rating fields
		`t;BLOCK;zero;030111;"X";` + "\n",   // non-numeric method
	} {
		if _, err := ParseDecisionLine(raw); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

func TestAnonymizeDecisionLine(t *testing.T) {
	raw := `30.08.26 11:22:34;BLOCK;1;030666777;"Spamfirma, Berlin";8;5;231;` + "\n"
	got := AnonymizeDecisionLine(raw)
	want := `30.08.26 11:22:34;BLOCK;1;030666xxx;"Anonymized";8;5;231;` + "\n"
	if got != want {
		t.Fatalf("anonymize:\n got: %q\nwant: %q", got, want)
	}
	// already masked lines stay stable
	if again := AnonymizeDecisionLine(got); again != want {
		t.Fatalf("not idempotent: %q", again)
	}
}
