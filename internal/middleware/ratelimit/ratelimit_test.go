package ratelimit

import (
	"fmt"
	"testing"
	"time"
)

func TestAllowWithinBudget(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 3, CleanupInterval: time.Hour})
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d denied within budget", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("request over budget allowed")
	}

	// Another client has its own window.
	if !rl.Allow("10.0.0.2") {
		t.Fatal("independent client denied")
	}

	m := rl.GetMetrics()
	if m.TotalHits != 1 {
		t.Fatalf("TotalHits = %d, want 1", m.TotalHits)
	}
	if m.ClientCount != 2 {
		t.Fatalf("ClientCount = %d, want 2", m.ClientCount)
	}
}

func TestActiveClients(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 10, CleanupInterval: time.Hour})
	defer rl.Stop()

	for i := 0; i < 5; i++ {
		rl.Allow(fmt.Sprintf("192.168.1.%d", i))
	}
	if got := rl.ActiveClients(); got != 5 {
		t.Fatalf("ActiveClients = %d, want 5", got)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	rl.Stop()
	rl.Stop()
}
