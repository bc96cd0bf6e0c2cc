//go:build !integration

package usecase

import "testing"

func TestIsApproved(t *testing.T) {
	cases := []struct {
		status string
		want   bool
	}{
		{"approved", true},
		{"APPROVED", true},
		{"approve", true},
		{"order-approved-by-manager", true},
		{"Approval pending review", true},
		{"pending", false},
		{"cancelled", false},
		{"", false},
		{"new", false},
	}
	for _, c := range cases {
		if got := IsApproved(c.status); got != c.want {
			t.Errorf("IsApproved(%q) = %v, want %v", c.status, got, c.want)
		}
	}
}

func TestGateWebhookDedup(t *testing.T) {
	g := NewApprovalGate(newTestLogger())

	if !g.ShouldNotify(501, "approved") {
		t.Fatal("first event must notify")
	}
	if g.ShouldNotify(501, "approved") {
		t.Fatal("identical (id,status) must be suppressed")
	}
	if !g.ShouldNotify(501, "approved-final") {
		t.Fatal("a different status for the same order is a new event")
	}
	if !g.ShouldNotify(502, "approved") {
		t.Fatal("a different order is a new event")
	}
}

func TestGatePollingTransitions(t *testing.T) {
	g := NewApprovalGate(newTestLogger())

	t.Run("first observation never notifies even if approved", func(t *testing.T) {
		if tr := g.ObserveTransition(1, "approved"); tr != TransitionRecorded {
			t.Fatalf("got %v, want TransitionRecorded", tr)
		}
	})

	t.Run("unchanged status is a no-op", func(t *testing.T) {
		if tr := g.ObserveTransition(1, "approved"); tr != TransitionNone {
			t.Fatalf("got %v, want TransitionNone", tr)
		}
	})

	t.Run("away and back produces exactly one notify", func(t *testing.T) {
		if tr := g.ObserveTransition(1, "on-hold"); tr != TransitionRecorded {
			t.Fatalf("transition away: got %v, want TransitionRecorded", tr)
		}
		if tr := g.ObserveTransition(1, "approved"); tr != TransitionNotify {
			t.Fatalf("transition back: got %v, want TransitionNotify", tr)
		}
		if tr := g.ObserveTransition(1, "approved"); tr != TransitionNone {
			t.Fatalf("repeat poll: got %v, want TransitionNone", tr)
		}
	})

	t.Run("change to non-approved updates silently", func(t *testing.T) {
		g.ObserveTransition(2, "new")
		if tr := g.ObserveTransition(2, "cancelled"); tr != TransitionRecorded {
			t.Fatalf("got %v, want TransitionRecorded", tr)
		}
	})
}

func TestGateSnapshotAndReset(t *testing.T) {
	g := NewApprovalGate(newTestLogger())
	g.ObserveTransition(10, "new")
	g.ObserveTransition(11, "approved")
	g.ShouldNotify(12, "approved")

	snap := g.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 tracked orders, got %d", len(snap))
	}
	if snap[10].LastKnownStatus != "new" {
		t.Fatalf("unexpected state: %+v", snap[10])
	}

	g.Reset()
	if len(g.Snapshot()) != 0 {
		t.Fatal("reset must clear tracked orders")
	}
	// After reset the webhook set is clear too: the same event notifies again.
	if !g.ShouldNotify(12, "approved") {
		t.Fatal("reset must clear the processed-event set")
	}
	// And a pre-existing approval recorded after reset is not re-notified.
	if tr := g.ObserveTransition(11, "approved"); tr != TransitionRecorded {
		t.Fatalf("got %v, want TransitionRecorded", tr)
	}
}
