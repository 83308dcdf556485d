// Package reputation enriches unknown phone numbers with a display name and
// a spam score from external web services. Everything here is best effort:
// a failing source degrades to defaults and is only logged.
package reputation

import "log"

// Placeholder used until a source produces a real name or location.
const Unknown = "UNKNOWN"

// Method records which sources contributed to an Info.
type Method uint8

const (
	MethodNone Method = iota
	MethodReverseSearch
	MethodScoreService
	MethodCombined
)

func (m Method) String() string {
	switch m {
	case MethodReverseSearch:
		return "reverse_search"
	case MethodScoreService:
		return "score_service"
	case MethodCombined:
		return "combined"
	default:
		return "none"
	}
}

// Info is the enrichment result for one number. Score, Comments and
// Searches stay nil when the score service produced nothing.
type Info struct {
	Number   string
	Name     string
	Location string
	Score    *int
	Comments *int
	Searches *int
	Method   Method
}

// Scored reports whether the score service delivered a usable rating.
func (i Info) Scored() bool { return i.Score != nil && i.Comments != nil }

// ReverseLookup resolves a number to a subscriber name ("name, city").
type ReverseLookup interface {
	Lookup(number string) (string, error)
}

// ScoreLookup rates a number.
type ScoreLookup interface {
	Score(number string) (ScoreResult, error)
}

// ScoreResult is the raw outcome of one score-service call.
type ScoreResult struct {
	Name     string // may be empty
	Location string
	Score    int
	Comments int
	Searches int
}

// Cascade combines a reverse search and a score service with a fixed
// policy: reverse first, score second, and the strictly longer of the two
// candidate names wins (ties go to the score service, longer names tend to
// be the more complete ones).
type Cascade struct {
	Reverse ReverseLookup
	Scorer  ScoreLookup
}

func (c *Cascade) Assess(number string) Info {
	info := Info{Number: number, Name: Unknown, Location: Unknown, Method: MethodCombined}

	revName := ""
	if c.Reverse != nil {
		name, err := c.Reverse.Lookup(number)
		if err != nil {
			log.Printf("reverse search for %s failed: %v", number, err)
		} else {
			revName = name
		}
	}
	if revName != "" {
		info.Name = revName
	}

	if c.Scorer != nil {
		res, err := c.Scorer.Score(number)
		if err != nil {
			log.Printf("score lookup for %s failed: %v", number, err)
		} else {
			score, comments, searches := res.Score, res.Comments, res.Searches
			info.Score, info.Comments, info.Searches = &score, &comments, &searches
			if res.Location != "" {
				info.Location = res.Location
			}
			if res.Name != "" && !(len(revName) > len(res.Name)) {
				info.Name = res.Name
			}
		}
	}
	return info
}
