package dedup

import (
	"net/url"
	"sort"
	"strings"
	"sync"
)

// VisitedSet holds the normalized URLs fetched during one run.
type VisitedSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewVisitedSet() *VisitedSet {
	return &VisitedSet{seen: make(map[string]struct{})}
}

func (v *VisitedSet) Seen(rawURL string) bool {
	key := NormalizeURL(rawURL)
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.seen[key]
	return ok
}

func (v *VisitedSet) Mark(rawURL string) {
	key := NormalizeURL(rawURL)
	v.mu.Lock()
	defer v.mu.Unlock()
	v.seen[key] = struct{}{}
}

// MarkIfNew marks the URL and reports whether it was not seen before.
func (v *VisitedSet) MarkIfNew(rawURL string) bool {
	key := NormalizeURL(rawURL)
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.seen[key]; ok {
		return false
	}
	v.seen[key] = struct{}{}
	return true
}

func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.seen)
}

// NormalizeURL makes cosmetically different URLs for the same document
// compare equal: lowercase scheme and host, no default port, no fragment,
// query parameters sorted by key and value.
func NormalizeURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return trimmed
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host = host + ":" + port
	}
	u.Host = host

	if u.Path == "" {
		u.Path = "/"
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.ForceQuery = false

	query := u.Query()
	for key := range query {
		sort.Strings(query[key])
	}
	u.RawQuery = query.Encode()

	return u.String()
}
