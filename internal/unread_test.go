package internal

import "testing"

func TestUnreadTracker(t *testing.T) {
	unread := NewUnreadTracker()
	alice := ContactRef("u-alice")
	channel := ChannelRef("ch-1")

	if unread.Count(alice) != 0 {
		t.Fatal("fresh tracker should report zero")
	}
	unread.Increment(alice)
	unread.Increment(alice)
	unread.Increment(channel)
	if got := unread.Count(alice); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := unread.Total(); got != 3 {
		t.Fatalf("expected total 3, got %d", got)
	}

	unread.Clear(alice)
	if unread.Count(alice) != 0 {
		t.Fatal("clear did not drop the count")
	}
	if got := unread.Total(); got != 1 {
		t.Fatalf("expected total 1 after clear, got %d", got)
	}
}

func TestUnreadTrackerIgnoresZeroRef(t *testing.T) {
	unread := NewUnreadTracker()
	if got := unread.Increment(ConversationRef{}); got != 0 {
		t.Fatalf("zero ref must not be tracked, got %d", got)
	}
	if unread.Total() != 0 {
		t.Fatal("zero ref leaked into totals")
	}
}
