package rollout

import (
	"fmt"
	"testing"
)

// TestIsEnabledBoundaries tests the 0% and 100% edges for many hostnames
func TestIsEnabledBoundaries(t *testing.T) {
	for i := 0; i < 200; i++ {
		hostname := fmt.Sprintf("host-%03d", i)

		if !IsEnabled(hostname, 100) {
			t.Errorf("IsEnabled(%q, 100) = false, want true", hostname)
		}
		if IsEnabled(hostname, 0) {
			t.Errorf("IsEnabled(%q, 0) = true, want false", hostname)
		}
	}
}

// TestIsEnabledDeterministic tests that repeated evaluations agree
func TestIsEnabledDeterministic(t *testing.T) {
	hosts := []string{"web-01", "web-02", "db-primary", "cache-7", "edge-node-199"}

	for _, h := range hosts {
		for pct := 0; pct <= 100; pct += 10 {
			first := IsEnabled(h, pct)
			for i := 0; i < 5; i++ {
				if got := IsEnabled(h, pct); got != first {
					t.Fatalf("IsEnabled(%q, %d) flapped: got %v after %v", h, pct, got, first)
				}
			}
		}
	}
}

// TestIsEnabledMonotonic tests that raising the percentage never disables
// a host that was already enabled
func TestIsEnabledMonotonic(t *testing.T) {
	for i := 0; i < 100; i++ {
		hostname := fmt.Sprintf("node-%02d.example", i)

		enabled := false
		for pct := 0; pct <= 100; pct++ {
			got := IsEnabled(hostname, pct)
			if enabled && !got {
				t.Fatalf("IsEnabled(%q, %d) = false after being enabled at a lower percentage", hostname, pct)
			}
			if got {
				enabled = true
			}
		}
	}
}

// TestBucketRange tests that buckets stay in [0,100)
func TestBucketRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		hostname := fmt.Sprintf("h%d", i)
		b := Bucket(hostname)
		if b < 0 || b >= 100 {
			t.Errorf("Bucket(%q) = %d, want 0 <= bucket < 100", hostname, b)
		}
	}
}

// TestBucketMatchesDecision tests that the decision is exactly
// bucket < percentage
func TestBucketMatchesDecision(t *testing.T) {
	hosts := []string{"web-01", "api-3", "worker-z"}

	for _, h := range hosts {
		b := Bucket(h)
		if !IsEnabled(h, b+1) {
			t.Errorf("IsEnabled(%q, %d) = false with bucket %d", h, b+1, b)
		}
		if IsEnabled(h, b) {
			t.Errorf("IsEnabled(%q, %d) = true with bucket %d", h, b, b)
		}
	}
}
