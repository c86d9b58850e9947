// Copyright (c) 2026 ProjectBase. All rights reserved.
// Author: dev@projectbase.uz

package geoip_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectbase/idm/internal/geoip"
)

/*
TestClient_PrivateAddressesShortCircuit verifies that private, loopback, and
otherwise non-routable addresses resolve to a synthetic "Local Network" result
without any provider round trip.
*/
func TestClient_PrivateAddressesShortCircuit(t *testing.T) {
	// 1. Stand up a provider that fails the test if it is ever contacted.
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("provider must not be called for %s", r.URL.Path)
	}))
	defer provider.Close()

	client := geoip.NewClient(provider.URL, time.Second, nil)

	tests := []struct {
		name string
		ip   string
	}{
		{name: "loopback", ip: "127.0.0.1"},
		{name: "private class A", ip: "10.0.0.4"},
		{name: "private class C", ip: "192.168.1.20"},
		{name: "link local", ip: "169.254.10.10"},
		{name: "unspecified", ip: "0.0.0.0"},
		{name: "ipv6 loopback", ip: "::1"},
		{name: "unparseable", ip: "not-an-ip"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			location, err := client.Lookup(context.Background(), tc.ip)

			require.NoError(t, err)
			require.NotNil(t, location)
			assert.True(t, location.IsLocal)
			assert.Equal(t, "Local Network", location.FormattedLocation())
		})
	}
}

/*
TestClient_Lookup verifies the happy path against a stubbed provider.
*/
func TestClient_Lookup(t *testing.T) {
	// 1. Serve a canned ipapi.co payload and capture the requested path.
	var requestedPath string
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"ip": "8.8.8.8",
			"city": "Mountain View",
			"region": "California",
			"country_name": "United States",
			"country_code": "US",
			"timezone": "America/Los_Angeles"
		}`))
	}))
	defer provider.Close()

	client := geoip.NewClient(provider.URL, time.Second, nil)

	// 2. Resolve a public address.
	location, err := client.Lookup(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	require.NotNil(t, location)

	// 3. The path must match the provider's /<ip>/json/ contract.
	assert.Equal(t, "/8.8.8.8/json/", requestedPath)
	assert.Equal(t, "Mountain View", location.City)
	assert.Equal(t, "US", location.CountryCode)
	assert.False(t, location.IsLocal)
	assert.Equal(t, "Mountain View, United States", location.FormattedLocation())
}

/*
TestClient_LookupFailures verifies that provider failures surface as errors so
the caller can decide to swallow them.
*/
func TestClient_LookupFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "rate limited status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
		},
		{
			name: "provider error payload",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"error": true, "reason": "Reserved IP Address"}`))
			},
		},
		{
			name: "malformed payload",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"city": `))
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			provider := httptest.NewServer(tc.handler)
			defer provider.Close()

			client := geoip.NewClient(provider.URL, time.Second, nil)

			location, err := client.Lookup(context.Background(), "8.8.8.8")
			assert.Error(t, err)
			assert.Nil(t, location)
		})
	}
}

/*
TestClient_EmptyAddress verifies that a missing client IP resolves to nothing
rather than an error.
*/
func TestClient_EmptyAddress(t *testing.T) {
	client := geoip.NewClient("http://unreachable.invalid", time.Second, nil)

	location, err := client.Lookup(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, location)
}
