package remote_test

import (
	"testing"
	"time"

	"github.com/raysh454/shiro/internal/remote"
)

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := remote.NewBreaker(3, time.Minute)

	if b.State() != remote.StateClosed {
		t.Fatalf("new breaker should be closed, got %s", b.State())
	}

	b.RecordFailure()
	b.RecordFailure()
	if b.State() != remote.StateClosed {
		t.Fatalf("breaker opened before threshold, state=%s", b.State())
	}

	b.RecordFailure()
	if b.State() != remote.StateOpen {
		t.Fatalf("breaker should open at threshold, state=%s", b.State())
	}
	if b.Allow() {
		t.Fatalf("open breaker must reject requests")
	}
}

func TestBreaker_HalfOpenAfterRetryInterval(t *testing.T) {
	b := remote.NewBreaker(1, 10*time.Millisecond)

	b.RecordFailure()
	if b.Allow() {
		t.Fatalf("open breaker must reject before retry interval")
	}

	time.Sleep(20 * time.Millisecond)

	if !b.Allow() {
		t.Fatalf("breaker should admit a probe after the retry interval")
	}
	if b.State() != remote.StateHalfOpen {
		t.Fatalf("expected half-open, got %s", b.State())
	}
	if b.Allow() {
		t.Fatalf("half-open breaker must admit exactly one probe")
	}
}

func TestBreaker_ProbeOutcomeDecidesState(t *testing.T) {
	b := remote.NewBreaker(1, 5*time.Millisecond)

	b.RecordFailure()
	time.Sleep(10 * time.Millisecond)
	if !b.Allow() {
		t.Fatalf("expected probe admission")
	}
	b.RecordSuccess()
	if b.State() != remote.StateClosed {
		t.Fatalf("probe success should close the breaker, got %s", b.State())
	}

	b.RecordFailure()
	time.Sleep(10 * time.Millisecond)
	if !b.Allow() {
		t.Fatalf("expected second probe admission")
	}
	b.RecordFailure()
	if b.State() != remote.StateOpen {
		t.Fatalf("probe failure should reopen the breaker, got %s", b.State())
	}
}
