// Package geolocation resolves IP addresses to coarse locations for session
// metadata. Lookups are best effort: callers treat a failure as an unknown
// location, never as a reason to abort.
package geolocation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultTimeout = 5 * time.Second

// Location is the subset of geolocation data recorded on sessions.
type Location struct {
	City        string `json:"city"`
	Region      string `json:"region"`
	CountryCode string `json:"country_code"`
	Timezone    string `json:"timezone"`
}

// Resolver looks an IP address up.
type Resolver interface {
	Lookup(ctx context.Context, ip string) (*Location, error)
}

// HTTPResolver queries an ip-api style endpoint and caches answers in an
// expiring LRU, since the same office IP shows up on every login.
type HTTPResolver struct {
	BaseURL    string
	HTTPClient *http.Client

	cache *lru.LRU[string, *Location]
}

// NewHTTPResolver returns a resolver for baseURL caching up to cacheSize
// answers for ttl.
func NewHTTPResolver(baseURL string, cacheSize int, ttl time.Duration) *HTTPResolver {
	if cacheSize <= 0 {
		cacheSize = 1000
	}
	return &HTTPResolver{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		cache:      lru.NewLRU[string, *Location](cacheSize, nil, ttl),
	}
}

var _ Resolver = (*HTTPResolver)(nil)

// Lookup resolves ip, serving repeated lookups from cache.
func (r *HTTPResolver) Lookup(ctx context.Context, ip string) (*Location, error) {
	if loc, ok := r.cache.Get(ip); ok {
		return loc, nil
	}
	if r.BaseURL == "" {
		return nil, fmt.Errorf("geolocation: endpoint not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.BaseURL+"/"+ip, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geolocation: request failed status=%d", resp.StatusCode)
	}
	var loc Location
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		return nil, err
	}
	r.cache.Add(ip, &loc)
	return &loc, nil
}

// NoopResolver reports every IP as an unknown location.
type NoopResolver struct{}

func (NoopResolver) Lookup(context.Context, string) (*Location, error) {
	return &Location{}, nil
}
