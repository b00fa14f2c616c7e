package internal

import (
	"testing"
	"time"
)

func TestSendThrottleLimitsPerConversation(t *testing.T) {
	throttle := NewSendThrottle(3, time.Minute)
	alice := ContactRef("u-alice")
	bob := ContactRef("u-bob")

	for i := 0; i < 3; i++ {
		if !throttle.Allow(alice) {
			t.Fatalf("send %d should be allowed", i)
		}
	}
	if throttle.Allow(alice) {
		t.Fatal("fourth send inside the window should be blocked")
	}

	// the limit is per conversation
	if !throttle.Allow(bob) {
		t.Fatal("a different conversation must not be throttled")
	}
}

func TestSendThrottleWindowSlides(t *testing.T) {
	throttle := NewSendThrottle(2, 50*time.Millisecond)
	ref := ChannelRef("ch-1")

	throttle.Allow(ref)
	throttle.Allow(ref)
	if throttle.Allow(ref) {
		t.Fatal("expected block inside the window")
	}

	time.Sleep(60 * time.Millisecond)
	if !throttle.Allow(ref) {
		t.Fatal("expected the window to have slid past the old sends")
	}
}
