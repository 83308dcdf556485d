// Package blocker classifies call-monitor events against phonebooks, the
// prefix table, and the reputation cascade, and blocks callers by writing
// them into the router's block phonebook.
package blocker

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"callscreen/internal/config"
	"callscreen/internal/directory"
	"callscreen/internal/logfile"
	"callscreen/internal/metrics"
	"callscreen/internal/monitor"
	"callscreen/internal/prefix"
	"callscreen/internal/reputation"
)

// Name used when the prefix of a domestic-looking number resolves to
// nothing. Such prefixes do not exist in the numbering plan and mark an
// obviously fabricated caller ID.
const fakePrefixName = "FAKE_PREFIX"

// Name logged for suppressed caller IDs.
const anonName = "ANON"

// Assessor is the reputation collaborator consumed by the blocker.
type Assessor interface {
	Assess(number string) reputation.Info
}

// ConflictError reports a number present in both the allow and the deny
// lists. That is a phonebook configuration problem a human has to fix; the
// event it surfaced on is dropped, the stream continues.
type ConflictError struct {
	Number        string
	WhitelistName string
	BlacklistName string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("number %s is on both lists: whitelist %q vs blacklist %q - fix your phonebooks",
		e.Number, e.WhitelistName, e.BlacklistName)
}

// Sink receives every emitted decision.
type Sink func(*Decision)

// Blocker is the event classifier and blocking decision engine. HandleLine
// is the single entry point and must only ever be called from one
// goroutine: decisions are evaluated strictly in arrival order and the list
// snapshots are reloaded without locking against classification.
type Blocker struct {
	dir    *directory.Directory
	table  *prefix.Table
	assess Assessor

	whitelistIDs []int
	blacklistIDs []int
	blocklistID  int

	areaCode    string
	countryCode string

	refreshInterval time.Duration

	policyMu sync.RWMutex
	policy   config.Policy

	decisionLog logfile.LineLogger
	sink        Sink

	now func() time.Time
}

// New wires a blocker. decisionLog and sink may be nil.
func New(cfg config.Config, dir *directory.Directory, table *prefix.Table, assess Assessor,
	areaCode string, decisionLog logfile.LineLogger, sink Sink) *Blocker {
	return &Blocker{
		dir:             dir,
		table:           table,
		assess:          assess,
		whitelistIDs:    cfg.WhitelistIDs,
		blacklistIDs:    cfg.BlacklistIDs,
		blocklistID:     cfg.BlocklistID,
		areaCode:        areaCode,
		countryCode:     table.CountryCode(),
		refreshInterval: cfg.RefreshInterval,
		policy:          cfg.Policy,
		decisionLog:     decisionLog,
		sink:            sink,
		now:             time.Now,
	}
}

// Policy returns the active blocking policy.
func (b *Blocker) Policy() config.Policy {
	b.policyMu.RLock()
	defer b.policyMu.RUnlock()
	return b.policy
}

// SetPolicy swaps the blocking policy. Safe to call while the stream runs;
// the next event sees the new thresholds.
func (b *Blocker) SetPolicy(p config.Policy) {
	b.policyMu.Lock()
	b.policy = p
	b.policyMu.Unlock()
	log.Printf("blocking policy updated: min_score=%d min_comments=%d block_abroad=%t block_illegal_prefix=%t",
		p.MinScore, p.MinComments, p.BlockAbroad, p.BlockIllegalPrefix)
}

// listIDs returns every list the blocker reloads together.
func (b *Blocker) listIDs() []int {
	return append(append([]int{}, b.whitelistIDs...), b.blacklistIDs...)
}

// Reload forces a fresh snapshot of the allow and deny lists.
func (b *Blocker) Reload() error {
	return b.dir.Reload(b.listIDs()...)
}

// HandleLine consumes one raw call-monitor line: parse, classify, emit.
// It satisfies monitor.Handler. All error paths keep the stream alive.
func (b *Blocker) HandleLine(raw string) {
	// Staleness check first so every event in a burst after expiry sees
	// consistent lists.
	if b.now().Sub(b.dir.LoadedAt()) >= b.refreshInterval {
		if err := b.Reload(); err != nil {
			log.Printf("phonebook refresh failed, keeping stale lists: %v", err)
		}
	}

	line, err := monitor.ParseLine(raw)
	if err != nil {
		metrics.IncParseErrors()
		log.Printf("dropping line: %v", err)
		return
	}
	log.Printf("%s", line)

	if line.Kind != monitor.KindRing && line.Kind != monitor.KindCall {
		return // connect/disconnect are logged verbatim upstream, never classified
	}

	decision, err := b.Examine(line)
	if err != nil {
		// Configuration integrity problem. Loud, but one broken
		// phonebook entry must not kill a running blocker.
		log.Printf("ERROR: %v", err)
		return
	}
	b.emit(decision)
}

func (b *Blocker) emit(d *Decision) {
	metrics.IncDecisions()
	if b.decisionLog != nil {
		b.decisionLog.LogLine(d.Line())
	}
	if b.sink != nil {
		b.sink(d)
	}
}

// Examine classifies one RING or CALL event and performs the blocking
// write when the policy demands it. Exposed for tests and offline replay.
func (b *Blocker) Examine(line *monitor.Line) (*Decision, error) {
	policy := b.Policy()

	// inbound events are judged by the caller, outbound by the callee
	number := line.Caller
	if line.Kind == monitor.KindCall {
		number = line.Callee
	}

	// Suppressed caller ID: nothing to look up, nothing to block.
	if number == "" {
		return &Decision{Timestamp: line.Timestamp, Rate: RatePass, Name: anonName}, nil
	}

	isAbroad := strings.HasPrefix(number, "00") && !strings.HasPrefix(number, b.countryCode)

	fullNumber := number
	if !strings.HasPrefix(number, "0") {
		// a short local number belongs to our own area network
		fullNumber = b.areaCode + number
	}

	whiteName := directory.Lookup(number, b.dir.Merged(b.whitelistIDs...), b.areaCode, b.countryCode)
	blackName := directory.Lookup(number, b.dir.Merged(b.blacklistIDs...), b.areaCode, b.countryCode)

	if whiteName != "" && blackName != "" {
		return nil, &ConflictError{Number: fullNumber, WhitelistName: whiteName, BlacklistName: blackName}
	}
	if whiteName != "" || blackName != "" {
		rate, name := RateWhitelist, whiteName
		if blackName != "" {
			rate, name = RateBlacklist, blackName
		}
		return &Decision{Timestamp: line.Timestamp, Rate: rate, Number: fullNumber, Name: name}, nil
	}

	// Unknown number: consult the reputation cascade.
	info := b.assess.Assess(fullNumber)

	// A domestic-looking number whose prefix is not in the numbering plan
	// is fabricated. Genuine international numbers are not rated here,
	// their prefixes may legitimately be missing from the table.
	fakePrefix := false
	prefixName := b.table.Name(fullNumber)
	if b.table.Resolve(fullNumber) == nil && !strings.HasPrefix(number, "00") {
		fakePrefix = true
		prefixName = fakePrefixName
	}

	// Last-resort label: at least name the area or country.
	if info.Name == reputation.Unknown {
		info.Name = prefixName
	}

	blockable := (policy.BlockIllegalPrefix && fakePrefix) ||
		(policy.BlockAbroad && isAbroad) ||
		(info.Scored() && *info.Score >= policy.MinScore && *info.Comments >= policy.MinComments)

	rate := RatePass
	if blockable && line.Kind == monitor.KindRing {
		rate = RateBlock
		b.block(policy, info.Name, fullNumber)
	}

	return &Decision{Timestamp: line.Timestamp, Rate: rate, Number: fullNumber, Name: info.Name, Reputation: &info}, nil
}

// block writes the number into the block phonebook and forces a list
// reload so the next RING from the same caller does not re-add it. A write
// failure downgrades nothing: the caller was judged blockable either way.
func (b *Blocker) block(policy config.Policy, name, fullNumber string) {
	outcome, err := b.dir.Add(b.blocklistID, policy.BlocknamePrefix+name, fullNumber)
	if err != nil {
		log.Printf("adding %s to blocklist failed: %v", fullNumber, err)
		return
	}
	if outcome == directory.Added {
		metrics.IncBlocksWritten()
	}
	if err := b.Reload(); err != nil {
		log.Printf("reload after block failed: %v", err)
	}
}
