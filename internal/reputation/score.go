package reputation

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ScoreSource rates numbers via a community spam-score API that returns
// JSON. Score and comment counts arrive as strings or numbers depending on
// the endpoint mood, so everything numeric is decoded via json.Number.
type ScoreSource struct {
	BaseURL string
	Partner string
	APIKey  string
	client  *http.Client
	cache   *lru.Cache[string, ScoreResult]
}

func NewScoreSource(baseURL, partner, apiKey string) *ScoreSource {
	cache, _ := lru.New[string, ScoreResult](256)
	return &ScoreSource{
		BaseURL: baseURL,
		Partner: partner,
		APIKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		cache:   cache,
	}
}

type scoreResponse struct {
	Tellows struct {
		Score         json.Number `json:"score"`
		Comments      json.Number `json:"comments"`
		Searches      json.Number `json:"searches"`
		Location      string      `json:"location"`
		NumberDetails struct {
			Name string `json:"name"`
		} `json:"numberDetails"`
		CallerNames struct {
			Caller []string `json:"caller"`
		} `json:"callerNames"`
		CallerTypes struct {
			Caller []struct {
				Name  string      `json:"name"`
				Count json.Number `json:"count"`
			} `json:"caller"`
		} `json:"callerTypes"`
	} `json:"tellows"`
}

func (s *ScoreSource) Score(number string) (ScoreResult, error) {
	if res, ok := s.cache.Get(number); ok {
		return res, nil
	}
	u := fmt.Sprintf("%s/basic/num/%s?json=1&partner=%s&apikey=%s", s.BaseURL, number, s.Partner, s.APIKey)
	resp, err := s.client.Get(u)
	if err != nil {
		return ScoreResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ScoreResult{}, fmt.Errorf("score service status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return ScoreResult{}, err
	}
	var decoded scoreResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return ScoreResult{}, fmt.Errorf("score service response: %w", err)
	}
	t := decoded.Tellows

	res := ScoreResult{Location: t.Location}
	res.Score = toInt(t.Score)
	res.Comments = toInt(t.Comments)
	res.Searches = toInt(t.Searches)

	callerName := t.NumberDetails.Name
	if len(t.CallerNames.Caller) > 0 {
		callerName = t.CallerNames.Caller[0]
	}
	if callerName == "" {
		// fall back to the first meaningful caller type, the service
		// reports "Unbekannt" for the rest
		for _, ct := range t.CallerTypes.Caller {
			if ct.Name == "Unbekannt" {
				continue
			}
			callerName = ct.Name
			break
		}
	}
	// the service puts carrier names into location, so a bare location is
	// never promoted to a name here
	if callerName != "" {
		res.Name = callerName + ", " + t.Location
	}
	s.cache.Add(number, res)
	return res, nil
}

func toInt(n json.Number) int {
	i, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return 0
		}
		return int(f)
	}
	return int(i)
}
