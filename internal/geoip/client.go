// Copyright (c) 2026 ProjectBase. All rights reserved.
// Author: dev@projectbase.uz

/*
Package geoip resolves client IP addresses to coarse locations via ipapi.co.

# Best Effort

Every failure mode (provider outage, malformed payload, rate limit, timeout)
returns a nil result instead of an error surfacing to the login flow. Session
creation must never block on, or fail because of, geolocation.

# Caching

Successful lookups are cached in Redis for 24 hours under the
"geoip:location:" prefix. IP-to-location mappings change rarely and the free
provider tier is heavily rate-limited, so the cache does most of the work in
steady state. A nil Redis client disables caching without disabling lookups.
*/
package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/projectbase/idm/internal/auth"
	"github.com/projectbase/idm/internal/platform/constants"
	"github.com/projectbase/idm/internal/platform/ctxutil"
)

// cacheTTL is how long a resolved location stays in Redis.
const cacheTTL = 24 * time.Hour

// Client implements [auth.GeolocationLookup] against the ipapi.co JSON API.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *redis.Client
}

// NewClient creates a geolocation [Client].
//
// # Parameters
//   - baseURL: Provider root, e.g. "https://ipapi.co".
//   - timeout: Per-request HTTP timeout.
//   - cache: Optional Redis client; nil disables caching.
func NewClient(baseURL string, timeout time.Duration, cache *redis.Client) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		cache:   cache,
	}
}

// apiResponse is the subset of the ipapi.co payload we consume.
type apiResponse struct {
	IP          string `json:"ip"`
	City        string `json:"city"`
	Region      string `json:"region"`
	CountryName string `json:"country_name"`
	CountryCode string `json:"country_code"`
	Timezone    string `json:"timezone"`

	// Error/Reason are set by the provider for invalid or rate-limited
	// queries; HTTP status is still 200 in that case.
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

/*
Lookup resolves an IP address to a [auth.LocationInfo].

Private, loopback, and link-local addresses short-circuit to a synthetic
"Local Network" result without touching the provider. A nil result with nil
error means the lookup failed softly and the caller should proceed without
location data.
*/
func (client *Client) Lookup(ctx context.Context, ipAddress string) (*auth.LocationInfo, error) {
	if ipAddress == "" {
		return nil, nil
	}

	if isPrivateOrLocal(ipAddress) {
		return &auth.LocationInfo{
			IP:          ipAddress,
			City:        "Local",
			Region:      "Local",
			CountryName: "Local Network",
			IsLocal:     true,
		}, nil
	}

	if cached := client.fromCache(ctx, ipAddress); cached != nil {
		return cached, nil
	}

	location, err := client.fetch(ctx, ipAddress)
	if err != nil {
		return nil, err
	}
	if location != nil {
		client.toCache(ctx, ipAddress, location)
	}

	return location, nil
}

// fetch performs the provider round trip.
func (client *Client) fetch(ctx context.Context, ipAddress string) (*auth.LocationInfo, error) {
	url := fmt.Sprintf("%s/%s/json/", client.baseURL, ipAddress)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("geoip: failed to build request: %w", err)
	}

	response, err := client.http.Do(request)
	if err != nil {
		return nil, fmt.Errorf("geoip: provider request failed: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geoip: provider returned status %d", response.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(response.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("geoip: failed to decode payload: %w", err)
	}

	if payload.Error {
		return nil, fmt.Errorf("geoip: provider rejected %s: %s", ipAddress, payload.Reason)
	}

	return &auth.LocationInfo{
		IP:          payload.IP,
		City:        payload.City,
		Region:      payload.Region,
		CountryName: payload.CountryName,
		CountryCode: payload.CountryCode,
		Timezone:    payload.Timezone,
	}, nil
}

// # Cache

func (client *Client) cacheKey(ipAddress string) string {
	return constants.RedisPrefixGeoIP + ipAddress
}

func (client *Client) fromCache(ctx context.Context, ipAddress string) *auth.LocationInfo {
	if client.cache == nil {
		return nil
	}

	raw, err := client.cache.Get(ctx, client.cacheKey(ipAddress)).Bytes()
	if err != nil {
		// Cache miss or Redis outage; either way, fall through to the provider.
		return nil
	}

	location := &auth.LocationInfo{}
	if err := json.Unmarshal(raw, location); err != nil {
		return nil
	}
	return location
}

func (client *Client) toCache(ctx context.Context, ipAddress string, location *auth.LocationInfo) {
	if client.cache == nil {
		return
	}

	raw, err := json.Marshal(location)
	if err != nil {
		return
	}

	if err := client.cache.Set(ctx, client.cacheKey(ipAddress), raw, cacheTTL).Err(); err != nil {
		ctxutil.GetLogger(ctx).Debug("geoip cache write failed", "ip", ipAddress, "error", err)
	}
}

// # Address Classification

// isPrivateOrLocal reports whether the address must never be sent to the
// external provider.
func isPrivateOrLocal(ipAddress string) bool {
	ip := net.ParseIP(ipAddress)
	if ip == nil {
		// Unparseable input is treated as local; better to skip the provider
		// than to ship garbage to it.
		return true
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}
