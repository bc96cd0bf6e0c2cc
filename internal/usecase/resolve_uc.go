package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/domain"
	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/domain/model"
	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/infra/metrics"
)

// CRMGateway is the slice of the RetailCRM API the resolver needs.
type CRMGateway interface {
	ListOrders(ctx context.Context, acc *model.Account, status string, limit int) ([]model.ResolvedOrder, error)
	SearchByNumber(ctx context.Context, acc *model.Account, number, site string) (model.ResolvedOrder, error)
	GetOrder(ctx context.Context, acc *model.Account, id int, site string) (model.ResolvedOrder, error)
	Sites(ctx context.Context, acc *model.Account) ([]string, error)
	GetUser(ctx context.Context, acc *model.Account, id int) (model.ResolvedOrder, error)
}

// Compile-time check
var _ ResolverUseCase = (*resolverUC)(nil)

type ResolverUseCase interface {
	// Resolve turns a candidate reference into the authoritative CRM
	// record, or nil when every lookup strategy is exhausted. It never
	// returns an error: the webhook boundary always acknowledges receipt.
	Resolve(ctx context.Context, ref *model.OrderReference, acc *model.Account) model.ResolvedOrder
}

type resolverUC struct {
	gw           CRMGateway
	registry     *model.Registry
	defaultSites []string

	// lagRetries extra attempts absorb CRM read-after-write lag.
	lagRetries int
	retryDelay time.Duration

	log *zerolog.Logger
}

func NewResolverUseCase(gw CRMGateway, registry *model.Registry, defaultSites []string, logger *zerolog.Logger) *resolverUC {
	return &resolverUC{
		gw:           gw,
		registry:     registry,
		defaultSites: defaultSites,
		lagRetries:   3,
		retryDelay:   3 * time.Second,
		log:          logger,
	}
}

// lookupStep is one entry of the ordered resolution strategy list. The
// driver runs steps in order; continueOn decides whether a failed step
// hands over to the next one.
type lookupStep struct {
	name       string
	run        func(ctx context.Context) (model.ResolvedOrder, error)
	continueOn func(err error) bool
}

func (r *resolverUC) Resolve(ctx context.Context, ref *model.OrderReference, acc *model.Account) model.ResolvedOrder {
	if !ref.HasIdentity() {
		return nil
	}

	// The event already carried a full order shape: no CRM round-trip.
	if ref.Complete() {
		metrics.IncResolution("local", "ok")
		return ref.Payload
	}

	var steps []lookupStep
	if ref.Number != "" {
		// Number takes strict priority. A present-but-wrong number must
		// not be silently reinterpreted via a possibly-unrelated id, so
		// there is no continuation past this step.
		steps = []lookupStep{{
			name:       "number:" + acc.URLFragment,
			run:        func(ctx context.Context) (model.ResolvedOrder, error) { return r.searchByNumber(ctx, acc, ref.Number) },
			continueOn: func(error) bool { return false },
		}}
	} else {
		// Id lookup on the guessed account, then cross-tenant fallback:
		// the guess may simply be wrong.
		next := func(err error) bool { return errors.Is(err, domain.ErrOrderNotFound) }
		steps = []lookupStep{{
			name:       "id:" + acc.URLFragment,
			run:        func(ctx context.Context) (model.ResolvedOrder, error) { return r.getByID(ctx, acc, ref.ID) },
			continueOn: next,
		}}
		for _, other := range r.registry.Others(acc) {
			other := other
			steps = append(steps, lookupStep{
				name:       "id:" + other.URLFragment,
				run:        func(ctx context.Context) (model.ResolvedOrder, error) { return r.getByID(ctx, other, ref.ID) },
				continueOn: next,
			})
		}
	}

	order := r.runSteps(ctx, steps)
	if order == nil {
		method := "id"
		if ref.Number != "" {
			method = "number"
		}
		metrics.IncResolution(method, "failed")
		r.log.Warn().Int("order_id", ref.ID).Str("number", ref.Number).
			Str("account", acc.URLFragment).Msg("resolution exhausted all strategies")
		return nil
	}
	r.enrichManager(ctx, acc, order)
	if ref.Number != "" {
		metrics.IncResolution("number", "ok")
	} else {
		metrics.IncResolution("id", "ok")
	}
	return order
}

// runSteps is the driver loop over the ordered strategy list.
func (r *resolverUC) runSteps(ctx context.Context, steps []lookupStep) model.ResolvedOrder {
	for _, st := range steps {
		order, err := st.run(ctx)
		if err == nil {
			return order
		}
		r.log.Debug().Str("step", st.name).Err(err).Msg("lookup step failed")
		if !st.continueOn(err) {
			return nil
		}
	}
	return nil
}

// searchByNumber queries the orders-search endpoint, retrying on empty
// results and falling back over site codes when the CRM demands one.
func (r *resolverUC) searchByNumber(ctx context.Context, acc *model.Account, number string) (model.ResolvedOrder, error) {
	return r.withLagRetry(ctx, func(ctx context.Context) (model.ResolvedOrder, error) {
		order, err := r.gw.SearchByNumber(ctx, acc, number, "")
		if errors.Is(err, domain.ErrMissingSite) {
			return r.withSiteFallback(ctx, acc, func(ctx context.Context, site string) (model.ResolvedOrder, error) {
				return r.gw.SearchByNumber(ctx, acc, number, site)
			})
		}
		return order, err
	})
}

// getByID fetches an order directly, with the same lag-retry and site
// fallback policy as the number search.
func (r *resolverUC) getByID(ctx context.Context, acc *model.Account, id int) (model.ResolvedOrder, error) {
	return r.withLagRetry(ctx, func(ctx context.Context) (model.ResolvedOrder, error) {
		order, err := r.gw.GetOrder(ctx, acc, id, "")
		if errors.Is(err, domain.ErrMissingSite) {
			return r.withSiteFallback(ctx, acc, func(ctx context.Context, site string) (model.ResolvedOrder, error) {
				return r.gw.GetOrder(ctx, acc, id, site)
			})
		}
		return order, err
	})
}

// withLagRetry runs fn up to 1+lagRetries times with a fixed delay,
// absorbing CRM read-after-write lag and transient transport errors.
// A missing-site error is final here: fn already applied site fallback.
func (r *resolverUC) withLagRetry(ctx context.Context, fn func(context.Context) (model.ResolvedOrder, error)) (model.ResolvedOrder, error) {
	var lastErr error
	for attempt := 0; attempt <= r.lagRetries; attempt++ {
		if attempt > 0 && !sleepCtx(ctx, r.retryDelay) {
			return nil, ctx.Err()
		}
		order, err := fn(ctx)
		if err == nil {
			return order, nil
		}
		lastErr = err
		if errors.Is(err, domain.ErrMissingSite) {
			break
		}
	}
	return nil, lastErr
}

// withSiteFallback discovers site codes via the reference endpoint, then
// walks the configured default list, until one search succeeds.
func (r *resolverUC) withSiteFallback(ctx context.Context, acc *model.Account, fn func(ctx context.Context, site string) (model.ResolvedOrder, error)) (model.ResolvedOrder, error) {
	sites, err := r.gw.Sites(ctx, acc)
	if err != nil {
		r.log.Debug().Err(err).Str("account", acc.URLFragment).Msg("site discovery failed; using defaults")
	}
	sites = append(sites, r.defaultSites...)
	if len(sites) == 0 {
		return nil, domain.ErrMissingSite
	}
	var lastErr error = domain.ErrMissingSite
	for _, site := range sites {
		order, err := fn(ctx, site)
		if err == nil {
			return order, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// enrichManager attaches the manager user record when the order only
// carries a manager id. Best effort; formatter handles absence.
func (r *resolverUC) enrichManager(ctx context.Context, acc *model.Account, order model.ResolvedOrder) {
	if order.At("manager") != nil {
		return
	}
	managerID := order.IntAt("managerId")
	if managerID == 0 {
		return
	}
	user, err := r.gw.GetUser(ctx, acc, managerID)
	if err != nil {
		r.log.Debug().Int("manager_id", managerID).Err(err).Msg("manager lookup failed")
		return
	}
	order["manager"] = map[string]any(user)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
