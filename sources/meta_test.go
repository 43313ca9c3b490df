package sources

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"cfupdater/config"
)

func metaSource(t *testing.T, url string, options map[string]any) Interface {
	t.Helper()

	s, err := New(context.Background(), config.Discovery{
		Type:   "meta",
		Source: url,
		Config: options,
	})
	if err != nil {
		t.Fatalf("failed creating source: %v", err)
	}
	return s
}

func TestMetaLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"clientIp":"203.0.113.7","asn":13335,"country":"US"}`)
	}))
	defer srv.Close()

	s := metaSource(t, srv.URL, map[string]any{"timeout": "10s"})

	ip, err := s.Lookup(context.Background())
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if expected := netip.MustParseAddr("203.0.113.7"); ip != expected {
		t.Errorf("expected %s, got %s", expected, ip)
	}
}

func TestMetaLookupBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	s := metaSource(t, srv.URL, nil)

	if _, err := s.Lookup(context.Background()); err == nil {
		t.Error("expected error on non-200 status")
	}
}

func TestMetaLookupMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "definitely not json")
	}))
	defer srv.Close()

	s := metaSource(t, srv.URL, nil)

	if _, err := s.Lookup(context.Background()); err == nil {
		t.Error("expected error on malformed body")
	}
}

func TestMetaLookupMissingIP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"asn":13335}`)
	}))
	defer srv.Close()

	s := metaSource(t, srv.URL, nil)

	if _, err := s.Lookup(context.Background()); err == nil {
		t.Error("expected error when clientIp is absent")
	}
}

func TestMetaLookupRejectsIPv6(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"clientIp":"2001:db8::1"}`)
	}))
	defer srv.Close()

	s := metaSource(t, srv.URL, nil)

	if _, err := s.Lookup(context.Background()); err == nil {
		t.Error("expected error for IPv6 result")
	}
}

func TestMetaLookupUnmaps4In6(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"clientIp":"::ffff:203.0.113.7"}`)
	}))
	defer srv.Close()

	s := metaSource(t, srv.URL, nil)

	ip, err := s.Lookup(context.Background())
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if expected := netip.MustParseAddr("203.0.113.7"); ip != expected {
		t.Errorf("expected %s, got %s", expected, ip)
	}
}

func TestNewUnknownSourceType(t *testing.T) {
	_, err := New(context.Background(), config.Discovery{Type: "carrier-pigeon"})
	if err == nil {
		t.Error("expected error for unknown source type")
	}
}
