package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/domain/model"
	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/infra/metrics"
)

// Compile-time check
var _ SweepUseCase = (*sweepUC)(nil)

// SweepUseCase is the polling-mode pipeline: fetch recent orders per
// account, fold each status into the gate, notify on transitions into
// an approved state.
type SweepUseCase interface {
	// Sweep returns how many orders were checked and how many
	// notifications were sent.
	Sweep(ctx context.Context) (checked, notified int)
}

type sweepUC struct {
	gw       CRMGateway
	registry *model.Registry
	gate     ApprovalGate
	notifier Notifier
	limit    int
	log      *zerolog.Logger
}

func NewSweepUseCase(gw CRMGateway, registry *model.Registry, gate ApprovalGate, notifier Notifier, limit int, logger *zerolog.Logger) *sweepUC {
	if limit <= 0 {
		limit = 100
	}
	return &sweepUC{gw: gw, registry: registry, gate: gate, notifier: notifier, limit: limit, log: logger}
}

func (s *sweepUC) Sweep(ctx context.Context) (checked, notified int) {
	metrics.IncEvent("poll")
	for _, acc := range s.registry.All() {
		// No status filter: the gate needs to see every status to detect
		// transitions away from and back into approved.
		orders, err := s.gw.ListOrders(ctx, acc, "", s.limit)
		if err != nil {
			s.log.Warn().Str("account", acc.URLFragment).Err(err).Msg("poll fetch failed; will retry next tick")
			continue
		}
		for _, order := range orders {
			id := order.ID()
			if id == 0 {
				continue
			}
			checked++
			switch s.gate.ObserveTransition(id, order.Status()) {
			case TransitionNotify:
				if s.send(ctx, acc, order) {
					notified++
				}
			case TransitionNone, TransitionRecorded:
			}
		}
	}
	return checked, notified
}

func (s *sweepUC) send(ctx context.Context, acc *model.Account, order model.ResolvedOrder) bool {
	if acc.TelegramChannelID == "" {
		s.log.Error().Str("account", acc.URLFragment).Msg("telegram channel not configured for account")
		metrics.IncNotification("failed")
		return false
	}
	text := FormatOrderMessage(order, acc.Currency)
	if !s.notifier.Send(ctx, acc.TelegramChannelID, text) {
		metrics.IncNotification("failed")
		return false
	}
	metrics.IncNotification("sent")
	s.log.Info().Int("order_id", order.ID()).Str("account", acc.URLFragment).Msg("approval notification sent")
	return true
}
