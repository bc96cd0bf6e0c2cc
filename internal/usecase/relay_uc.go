package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/domain/model"
	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/infra/metrics"
)

// Notifier delivers one formatted message to a Telegram channel.
// Single attempt; false on any failure. No retries here: duplicate
// avoidance is the gate's job, delivery retries are nobody's.
type Notifier interface {
	Send(ctx context.Context, channelID, text string) bool
}

// Result is what the webhook boundary reports back. The HTTP status is
// always 200; Success false just tells the operator what happened.
type Result struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	OrderID   int    `json:"order_id,omitempty"`
	Number    string `json:"number,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// Compile-time check
var _ RelayUseCase = (*relayUC)(nil)

// RelayUseCase runs the webhook-mode pipeline end to end:
// extract -> resolve -> gate -> format -> notify.
type RelayUseCase interface {
	Process(ctx context.Context, ev InboundEvent) Result
}

type relayUC struct {
	extractor ExtractorUseCase
	resolver  ResolverUseCase
	gate      ApprovalGate
	registry  *model.Registry
	notifier  Notifier
	log       *zerolog.Logger
}

func NewRelayUseCase(
	extractor ExtractorUseCase,
	resolver ResolverUseCase,
	gate ApprovalGate,
	registry *model.Registry,
	notifier Notifier,
	logger *zerolog.Logger,
) *relayUC {
	return &relayUC{
		extractor: extractor,
		resolver:  resolver,
		gate:      gate,
		registry:  registry,
		notifier:  notifier,
		log:       logger,
	}
}

func (r *relayUC) Process(ctx context.Context, ev InboundEvent) Result {
	metrics.IncEvent("webhook")

	ref := r.extractor.Extract(ev)
	if ref == nil {
		return Result{Success: false, Message: "no order reference found; event ignored"}
	}

	acc, matched := r.registry.Match(ref.AccountURL)
	if acc == nil {
		r.log.Error().Str("account_url", ref.AccountURL).Msg("no account configured")
		return Result{Success: false, Message: "no account configured", OrderID: ref.ID, Number: ref.Number}
	}
	if !matched && ref.AccountURL != "" {
		r.log.Warn().Str("account_url", ref.AccountURL).
			Str("assumed", acc.URLFragment).Msg("account url did not match any tenant; using default")
	}

	order := r.resolver.Resolve(ctx, ref, acc)
	if order == nil {
		return Result{Success: false, Message: "order could not be resolved", OrderID: ref.ID, Number: ref.Number}
	}

	orderID := order.ID()
	if orderID == 0 {
		orderID = ref.ID
	}
	status := order.Status()

	if !IsApproved(status) {
		r.log.Debug().Int("order_id", orderID).Str("status", status).Msg("status not approved; ignoring")
		return Result{Success: true, Message: "status not approved; ignored", OrderID: orderID, Number: order.Number()}
	}

	if !r.gate.ShouldNotify(orderID, status) {
		metrics.IncDuplicate("webhook")
		return Result{Success: true, Message: "duplicate approval event; already notified", OrderID: orderID, Number: order.Number(), Duplicate: true}
	}

	if acc.TelegramChannelID == "" {
		r.log.Error().Str("account", acc.URLFragment).Msg("telegram channel not configured for account")
		metrics.IncNotification("failed")
		return Result{Success: false, Message: "telegram channel not configured", OrderID: orderID, Number: order.Number()}
	}

	text := FormatOrderMessage(order, acc.Currency)
	if !r.notifier.Send(ctx, acc.TelegramChannelID, text) {
		metrics.IncNotification("failed")
		return Result{Success: false, Message: "notification failed", OrderID: orderID, Number: order.Number()}
	}
	metrics.IncNotification("sent")
	r.log.Info().Int("order_id", orderID).Str("account", acc.URLFragment).Msg("approval notification sent")
	return Result{Success: true, Message: "notification sent", OrderID: orderID, Number: order.Number()}
}
