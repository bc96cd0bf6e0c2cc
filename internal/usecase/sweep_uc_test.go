//go:build !integration

package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/domain/model"
)

// scriptedCRM serves a mutable order list per account fragment.
type scriptedCRM struct {
	mockCRM
	mu     sync.Mutex
	orders map[string][]model.ResolvedOrder
}

func newScriptedCRM() *scriptedCRM {
	s := &scriptedCRM{orders: map[string][]model.ResolvedOrder{}}
	s.ListOrdersFunc = func(acc *model.Account, status string, limit int) ([]model.ResolvedOrder, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.orders[acc.URLFragment], nil
	}
	return s
}

func (s *scriptedCRM) set(fragment string, orders ...model.ResolvedOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[fragment] = orders
}

func TestSweepRestartSemantics(t *testing.T) {
	crm := newScriptedCRM()
	notifier := &mockNotifier{}
	registry := testRegistry()
	gate := NewApprovalGate(newTestLogger())
	sweep := NewSweepUseCase(crm, registry, gate, notifier, 100, newTestLogger())
	ctx := context.Background()

	// An order already approved on the very first poll: zero notifications.
	crm.set("shop-one", model.ResolvedOrder{"id": float64(1), "number": "A-1", "status": "approved"})
	checked, notified := sweep.Sweep(ctx)
	if checked != 1 || notified != 0 {
		t.Fatalf("first sweep: checked=%d notified=%d", checked, notified)
	}

	// Unchanged on the next poll: still nothing.
	if _, notified = sweep.Sweep(ctx); notified != 0 {
		t.Fatalf("unchanged sweep sent %d", notified)
	}

	// Away and back: exactly one notification for the second transition.
	crm.set("shop-one", model.ResolvedOrder{"id": float64(1), "number": "A-1", "status": "on-hold"})
	if _, notified = sweep.Sweep(ctx); notified != 0 {
		t.Fatalf("transition away sent %d", notified)
	}
	crm.set("shop-one", model.ResolvedOrder{"id": float64(1), "number": "A-1", "status": "approved"})
	if _, notified = sweep.Sweep(ctx); notified != 1 {
		t.Fatalf("transition back sent %d, want 1", notified)
	}
	if notifier.count() != 1 {
		t.Fatalf("total sends = %d, want 1", notifier.count())
	}
}

func TestSweepRoutesPerAccount(t *testing.T) {
	crm := newScriptedCRM()
	notifier := &mockNotifier{}
	registry := testRegistry()
	gate := NewApprovalGate(newTestLogger())
	sweep := NewSweepUseCase(crm, registry, gate, notifier, 100, newTestLogger())
	ctx := context.Background()

	// Seed both accounts with a new order, then approve both.
	crm.set("shop-one", model.ResolvedOrder{"id": float64(1), "status": "new"})
	crm.set("shop-two", model.ResolvedOrder{"id": float64(2), "status": "new"})
	sweep.Sweep(ctx)

	crm.set("shop-one", model.ResolvedOrder{"id": float64(1), "status": "approved"})
	crm.set("shop-two", model.ResolvedOrder{"id": float64(2), "status": "approved"})
	_, notified := sweep.Sweep(ctx)
	if notified != 2 {
		t.Fatalf("notified = %d, want 2", notified)
	}

	channels := map[string]bool{}
	for _, m := range notifier.sent {
		channels[m.Channel] = true
	}
	if !channels["-1001"] || !channels["-1002"] {
		t.Fatalf("messages not routed per account: %+v", notifier.sent)
	}
}

func TestSweepFetchErrorIsSkipped(t *testing.T) {
	crm := newScriptedCRM()
	crm.ListOrdersFunc = func(acc *model.Account, status string, limit int) ([]model.ResolvedOrder, error) {
		if acc.URLFragment == "shop-one" {
			return nil, context.DeadlineExceeded
		}
		return []model.ResolvedOrder{{"id": float64(3), "status": "new"}}, nil
	}
	notifier := &mockNotifier{}
	gate := NewApprovalGate(newTestLogger())
	sweep := NewSweepUseCase(crm, testRegistry(), gate, notifier, 100, newTestLogger())

	// The failing account must not prevent the healthy one from being swept.
	checked, _ := sweep.Sweep(context.Background())
	if checked != 1 {
		t.Fatalf("checked = %d, want 1", checked)
	}
}
