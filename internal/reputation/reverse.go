package reputation

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ReverseSource does a reverse subscriber search against a public directory
// site. The result page embeds a javascript object literal
// `generic: { name: '...', city: '...', ... }` which is scraped tolerantly;
// any drift in the page layout just means an empty result.
type ReverseSource struct {
	BaseURL string
	client  *http.Client
	cache   *lru.Cache[string, string]
}

func NewReverseSource(baseURL string) *ReverseSource {
	cache, _ := lru.New[string, string](256)
	return &ReverseSource{
		BaseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		cache:   cache,
	}
}

func (s *ReverseSource) Lookup(number string) (string, error) {
	if name, ok := s.cache.Get(number); ok {
		return name, nil
	}
	u := fmt.Sprintf("%s/rueckwaertssuche/?ph=%s&pa=&address=", s.BaseURL, url.QueryEscape(number))
	resp, err := s.client.Get(u)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reverse search status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	name := extractGeneric(string(body))
	s.cache.Add(number, name)
	return name, nil
}

// extractGeneric pulls name and city out of the page's `generic: {...}`
// block and joins them as "name, city". Returns "" if either is missing.
func extractGeneric(content string) string {
	i := strings.Index(content, "generic: {")
	if i < 0 {
		return ""
	}
	block := content[i+len("generic: {"):]
	if j := strings.IndexByte(block, '}'); j >= 0 {
		block = block[:j]
	}
	name := literalValue(block, "name")
	city := literalValue(block, "city")
	if name == "" || city == "" {
		return ""
	}
	return name + ", " + city
}

// literalValue finds `key: 'value'` or `key: "value"` inside a javascript
// object literal body.
func literalValue(block, key string) string {
	i := strings.Index(block, key+":")
	if i < 0 {
		return ""
	}
	rest := strings.TrimLeft(block[i+len(key)+1:], " \t\r\n")
	if rest == "" {
		return ""
	}
	quote := rest[0]
	if quote != '\'' && quote != '"' {
		return ""
	}
	rest = rest[1:]
	if j := strings.IndexByte(rest, quote); j >= 0 {
		return rest[:j]
	}
	return ""
}
