package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetectLocale(t *testing.T) {
	indonesia := func(string) (string, error) { return "id", nil }
	tests := []struct {
		name    string
		headers map[string]string
		lookup  CountryLookup
		want    string
	}{
		{"x-locale wins", map[string]string{"X-Locale": "ID", "Accept-Language": "en-US"}, nil, "id"},
		{"unknown x-locale is english", map[string]string{"X-Locale": "fr"}, indonesia, "en"},
		{"accept-language", map[string]string{"Accept-Language": "id-ID,id;q=0.9,en;q=0.8"}, nil, "id"},
		{"accept-language beats country", map[string]string{"Accept-Language": "en-GB"}, indonesia, "en"},
		{"cdn country header", map[string]string{"CF-IPCountry": "id"}, nil, "id"},
		{"malformed country header ignored", map[string]string{"CF-IPCountry": "XX1"}, indonesia, "id"},
		{"geoip country", nil, indonesia, "id"},
		{"foreign country", map[string]string{"X-Country-Code": "US"}, indonesia, "en"},
		{"fallback", nil, nil, "id"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "203.0.113.4:443"
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			if got := detectLocale(req, "id", tc.lookup); got != tc.want {
				t.Fatalf("detectLocale() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolveCountrySkipsLookupWithoutIP(t *testing.T) {
	called := false
	lookup := func(string) (string, error) {
		called = true
		return "ID", nil
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "not-an-ip"
	if got := resolveCountry(req, lookup); got != "" || called {
		t.Fatalf("resolveCountry() = %q (lookup called %v), want no lookup", got, called)
	}

	req.RemoteAddr = "203.0.113.4:80"
	failing := func(string) (string, error) { return "", errors.New("boom") }
	if got := resolveCountry(req, failing); got != "" {
		t.Fatalf("resolveCountry() with failing lookup = %q, want empty", got)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"198.51.100.10:1234", "198.51.100.10"},
		{"[2001:db8::2]:443", "2001:db8::2"},
		{"[fe80::1%eth0]:80", "fe80::1"},
		{"203.0.113.1", "203.0.113.1"},
		{"garbage", ""},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tc.remote
		if got := clientIP(req); got != tc.want {
			t.Fatalf("clientIP(%q) = %q, want %q", tc.remote, got, tc.want)
		}
	}
}

func TestLocaleFromContext(t *testing.T) {
	if got := LocaleFromContext(context.Background()); got != "en" {
		t.Fatalf("LocaleFromContext() default = %q, want %q", got, "en")
	}
	var seen string
	h := I18N("en", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = LocaleFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Locale", "id")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "id" || rec.Header().Get("Content-Language") != "id" {
		t.Fatalf("locale = %q, Content-Language = %q, want id", seen, rec.Header().Get("Content-Language"))
	}
}
