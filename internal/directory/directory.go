package directory

import (
	"fmt"
	"sync"
	"time"
)

// Client is the narrow vendor phonebook surface the directory needs. The
// real implementation speaks the router's control protocol; tests supply
// fakes.
type Client interface {
	// ListExists reports whether a phonebook with the given id exists.
	ListExists(id int) (bool, error)
	// Numbers returns the number -> display name mapping of one phonebook.
	// Numbers are returned with spaces stripped.
	Numbers(id int) (map[string]string, error)
	// AddEntry appends a contact. Implementations must not dedup; the
	// directory handles that.
	AddEntry(id int, name, number string) error
}

// AddOutcome reports what Add actually did.
type AddOutcome int

const (
	AddFailed AddOutcome = iota
	Added
	AlreadyExists
)

// MissingListError signals a configured phonebook id that does not exist on
// the router. This is a total misconfiguration; callers treat it as fatal.
type MissingListError struct {
	ID int
}

func (e *MissingListError) Error() string {
	return fmt.Sprintf("phonebook id %d does not exist on the router", e.ID)
}

// List is a number -> display name snapshot of one or more phonebooks.
type List map[string]string

// Directory wraps a vendor phonebook client with merged-list snapshots,
// variant-aware lookup, and idempotent writes. It is used from a single
// goroutine (the classifier); the mutex only guards the ops/status readers.
type Directory struct {
	client Client

	mu       sync.RWMutex
	snapshot map[int]List
	loadedAt time.Time
}

func New(client Client) *Directory {
	return &Directory{client: client, snapshot: make(map[int]List)}
}

// EnsureListsExist verifies every configured phonebook id up front.
func (d *Directory) EnsureListsExist(ids []int) error {
	for _, id := range ids {
		ok, err := d.client.ListExists(id)
		if err != nil {
			return fmt.Errorf("check phonebook %d: %w", id, err)
		}
		if !ok {
			return &MissingListError{ID: id}
		}
	}
	return nil
}

// Reload fetches fresh snapshots for the given phonebook ids and records the
// load time for staleness checks.
func (d *Directory) Reload(ids ...int) error {
	fresh := make(map[int]List, len(ids))
	for _, id := range ids {
		numbers, err := d.client.Numbers(id)
		if err != nil {
			return fmt.Errorf("reload phonebook %d: %w", id, err)
		}
		fresh[id] = numbers
	}
	d.mu.Lock()
	for id, list := range fresh {
		d.snapshot[id] = list
	}
	d.loadedAt = time.Now()
	d.mu.Unlock()
	return nil
}

// LoadedAt returns when the snapshots were last reloaded.
func (d *Directory) LoadedAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loadedAt
}

// Merged returns the union of the snapshots for the given ids.
func (d *Directory) Merged(ids ...int) List {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := List{}
	for _, id := range ids {
		for nr, name := range d.snapshot[id] {
			out[nr] = name
		}
	}
	return out
}

// Size reports how many numbers the merged snapshot for ids holds.
func (d *Directory) Size(ids ...int) int { return len(d.Merged(ids...)) }

// Lookup returns the first name found for the number in the list, trying the
// number as received plus its country-code and area-code qualified and
// unqualified variants. Returns "" when nothing matches.
func Lookup(number string, list List, areaCode, countryCode string) string {
	for _, candidate := range variants(number, areaCode, countryCode) {
		if name, ok := list[candidate]; ok {
			return name
		}
	}
	return ""
}

func variants(number, areaCode, countryCode string) []string {
	out := []string{number}
	if countryCode != "" {
		if hasPrefix(number, countryCode) {
			out = append(out, "0"+number[len(countryCode):])
		} else {
			out = append(out, countryCode+number)
		}
	}
	if areaCode != "" {
		nr := number
		if countryCode != "" && hasPrefix(number, countryCode) {
			nr = "0" + number[len(countryCode):]
		}
		if hasPrefix(nr, areaCode) {
			out = append(out, nr[len(areaCode):])
		} else {
			out = append(out, areaCode+nr)
		}
	}
	return out
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// Add writes a contact to the target phonebook. A number already present is
// a no-op success so repeated RING events before a reload cannot create
// duplicate entries.
func (d *Directory) Add(id int, name, number string) (AddOutcome, error) {
	existing, err := d.client.Numbers(id)
	if err != nil {
		return AddFailed, fmt.Errorf("read phonebook %d before add: %w", id, err)
	}
	if _, ok := existing[number]; ok {
		return AlreadyExists, nil
	}
	if err := d.client.AddEntry(id, name, number); err != nil {
		return AddFailed, fmt.Errorf("add %s to phonebook %d: %w", number, id, err)
	}
	return Added, nil
}
