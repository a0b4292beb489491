package rdap

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestIsIPLiteral(t *testing.T) {
	cases := []struct {
		host string
		want bool
	}{
		{"192.168.1.1", true},
		{"8.8.8.8", true},
		{"2606:4700:4700::1111", true},
		{"::1", true},
		{"example.com", false},
		{"a.b.example.co.uk", false},
		{"deadbeef", false},
	}

	for _, tc := range cases {
		t.Run(tc.host, func(t *testing.T) {
			if got := IsIPLiteral(tc.host); got != tc.want {
				t.Errorf("IsIPLiteral(%q) = %v, want %v", tc.host, got, tc.want)
			}
		})
	}
}

func TestCandidates(t *testing.T) {
	cases := []struct {
		host string
		want []string
	}{
		{"example.com", []string{"example.com"}},
		{"a.b.example.com", []string{"example.com", "b.example.com", "a.b.example.com"}},
		{"www.example.co.uk", []string{"co.uk", "example.co.uk", "www.example.co.uk"}},
		{"localhost", []string{"localhost"}},
		{"", nil},
	}

	for _, tc := range cases {
		t.Run(tc.host, func(t *testing.T) {
			got := Candidates(tc.host)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Candidates(%q) = %v, want %v", tc.host, got, tc.want)
			}
		})
	}
}

func TestLookupDomainCandidateOrder(t *testing.T) {
	// The registrable-domain candidate fails, the next one succeeds and the
	// walk must stop there rather than fall through to the full hostname.
	var requested []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		cand := strings.TrimPrefix(r.URL.Path, "/domain/")
		requested = append(requested, cand)

		switch cand {
		case "example.com":
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"errorCode":404}`)
		case "b.example.com":
			fmt.Fprint(w, `{"ldhName":"b.example.com","handle":"H1"}`)
		default:
			t.Errorf("unexpected candidate requested: %s", cand)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL))

	result := c.Lookup(context.Background(), "a.b.example.com")

	if !result.OK {
		t.Fatalf("expected success, got error %q", result.Error)
	}

	if result.Target != "b.example.com" {
		t.Fatalf("expected target b.example.com, got %s", result.Target)
	}

	if result.Endpoint != EndpointDomain {
		t.Fatalf("expected domain endpoint, got %s", result.Endpoint)
	}

	want := []string{"example.com", "b.example.com"}
	if !reflect.DeepEqual(requested, want) {
		t.Fatalf("candidate order = %v, want %v", requested, want)
	}
}

func TestLookupDomainImplausiblePayloadSkipped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		cand := strings.TrimPrefix(r.URL.Path, "/domain/")

		if cand == "example.com" {
			// HTTP success but structurally empty: must not be accepted
			fmt.Fprint(w, `{"rdapConformance":["rdap_level_0"]}`)
			return
		}

		fmt.Fprint(w, `{"events":[{"eventAction":"registration","eventDate":"2020-01-01T00:00:00Z"}]}`)
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL))

	result := c.Lookup(context.Background(), "shop.example.com")

	if !result.OK {
		t.Fatalf("expected success, got error %q", result.Error)
	}

	if result.Target != "shop.example.com" {
		t.Fatalf("expected fallthrough to shop.example.com, got %s", result.Target)
	}
}

func TestLookupDomainAllCandidatesFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"errorCode":404}`)
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL))

	result := c.Lookup(context.Background(), "nope.invalid")

	if result.OK {
		t.Fatal("expected failure when every candidate is rejected")
	}

	if result.Target != "nope.invalid" {
		t.Fatalf("failure should target the original host, got %s", result.Target)
	}

	if result.Error == "" {
		t.Fatal("expected diagnostic on failure")
	}
}

func TestLookupIP(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")

			if !strings.HasPrefix(r.URL.Path, "/ip/") {
				t.Errorf("expected IP endpoint, got %s", r.URL.Path)
			}

			fmt.Fprint(w, `{"handle":"NET-8-8-8-0-1"}`)
		}))
		defer server.Close()

		c := NewClient(WithBaseURL(server.URL))

		result := c.Lookup(context.Background(), "8.8.8.8")

		if !result.OK {
			t.Fatalf("expected success, got error %q", result.Error)
		}

		if result.Endpoint != EndpointIP {
			t.Fatalf("expected ip endpoint, got %s", result.Endpoint)
		}
	})

	t.Run("non-2xx is terminal", func(t *testing.T) {
		var hits atomic.Int64

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			hits.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{}`)
		}))
		defer server.Close()

		c := NewClient(WithBaseURL(server.URL))

		result := c.Lookup(context.Background(), "8.8.8.8")

		if result.OK {
			t.Fatal("expected failure")
		}

		if hits.Load() != 1 {
			t.Fatalf("IP lookups must not retry, got %d requests", hits.Load())
		}
	})
}

func TestLookupCachesFinalOutcome(t *testing.T) {
	var hits atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		hits.Add(1)
		fmt.Fprint(w, `{"ldhName":"example.com"}`)
	}))
	defer server.Close()

	t.Run("hit within TTL", func(t *testing.T) {
		c := NewClient(WithBaseURL(server.URL))

		first := c.Lookup(context.Background(), "www.example.com")
		second := c.Lookup(context.Background(), "www.example.com")

		if hits.Load() != 1 {
			t.Fatalf("expected 1 outbound request, got %d", hits.Load())
		}

		if first.Target != second.Target {
			t.Fatalf("cached result differs: %s vs %s", first.Target, second.Target)
		}
	})

	t.Run("expired entry refetches", func(t *testing.T) {
		hits.Store(0)
		c := NewClient(WithBaseURL(server.URL), WithCacheTTL(10*time.Millisecond))

		c.Lookup(context.Background(), "www.example.com")
		time.Sleep(25 * time.Millisecond)
		c.Lookup(context.Background(), "www.example.com")

		if hits.Load() != 2 {
			t.Fatalf("expected 2 outbound requests after expiry, got %d", hits.Load())
		}
	})
}
