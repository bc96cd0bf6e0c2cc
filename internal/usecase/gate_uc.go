package usecase

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// IsApproved matches "approved", "approve", and any localized/variant
// status label containing "approv", case-insensitively.
func IsApproved(status string) bool {
	return strings.Contains(strings.ToLower(status), "approv")
}

// Transition is the polling gate's verdict for one observed order status.
type Transition int

const (
	// TransitionNone: status unchanged, nothing to do.
	TransitionNone Transition = iota
	// TransitionRecorded: first observation or a non-approval change;
	// state updated silently.
	TransitionRecorded
	// TransitionNotify: status changed into an approved state.
	TransitionNotify
)

// OrderState is one tracked order in polling mode.
type OrderState struct {
	LastKnownStatus string    `json:"last_known_status"`
	LastUpdate      time.Time `json:"last_update"`
}

// Compile-time check
var _ ApprovalGate = (*approvalGate)(nil)

// ApprovalGate owns all dedup state. State is process-lifetime only and is
// reached exclusively through this interface; a restart resets it by design.
type ApprovalGate interface {
	// ShouldNotify (webhook mode) checks and records the (orderID, status)
	// composite key; false means this exact event was already delivered.
	ShouldNotify(orderID int, status string) bool
	// ObserveTransition (polling mode) folds one polled status into the
	// per-order state map and reports what to do about it. The first
	// observation of an order never notifies, even if already approved:
	// it is assumed pre-existing.
	ObserveTransition(orderID int, status string) Transition
	// Snapshot dumps the tracked polling state for the operational endpoint.
	Snapshot() map[int]OrderState
	// Reset clears all dedup memory (operational trigger).
	Reset()
}

type approvalGate struct {
	mu        sync.Mutex
	processed map[string]struct{}
	statuses  map[int]OrderState
	log       *zerolog.Logger
}

func NewApprovalGate(logger *zerolog.Logger) *approvalGate {
	return &approvalGate{
		processed: make(map[string]struct{}),
		statuses:  make(map[int]OrderState),
		log:       logger,
	}
}

func (g *approvalGate) ShouldNotify(orderID int, status string) bool {
	key := fmt.Sprintf("%d:%s", orderID, strings.ToLower(status))
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, seen := g.processed[key]; seen {
		g.log.Debug().Int("order_id", orderID).Str("status", status).Msg("duplicate event suppressed")
		return false
	}
	g.processed[key] = struct{}{}
	return true
}

func (g *approvalGate) ObserveTransition(orderID int, status string) Transition {
	g.mu.Lock()
	defer g.mu.Unlock()

	prev, seen := g.statuses[orderID]
	if seen && prev.LastKnownStatus == status {
		return TransitionNone
	}
	g.statuses[orderID] = OrderState{LastKnownStatus: status, LastUpdate: time.Now()}

	if !seen {
		// Pre-existing order on first sweep after startup: record only,
		// so restarts do not re-notify old approvals.
		return TransitionRecorded
	}
	if IsApproved(status) {
		g.log.Info().Int("order_id", orderID).
			Str("from", prev.LastKnownStatus).Str("to", status).
			Msg("order transitioned to approved")
		return TransitionNotify
	}
	return TransitionRecorded
}

func (g *approvalGate) Snapshot() map[int]OrderState {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[int]OrderState, len(g.statuses))
	for id, st := range g.statuses {
		out[id] = st
	}
	return out
}

func (g *approvalGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := len(g.processed) + len(g.statuses)
	g.processed = make(map[string]struct{})
	g.statuses = make(map[int]OrderState)
	g.log.Info().Int("cleared", n).Msg("dedup memory reset")
}
