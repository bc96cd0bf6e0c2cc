package usecase

import (
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/domain/model"
	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/infra/metrics"
)

// InboundEvent is one raw inbound signal: a webhook body (JSON,
// form-encoded, or malformed text) plus query values and headers.
type InboundEvent struct {
	Body   []byte
	Query  url.Values
	Header http.Header
}

// Compile-time check
var _ ExtractorUseCase = (*extractorUC)(nil)

type ExtractorUseCase interface {
	// Extract produces a candidate order reference from the event, or nil
	// when no strategy finds an order id or number.
	Extract(ev InboundEvent) *model.OrderReference
}

type extractorUC struct {
	registry *model.Registry
	log      *zerolog.Logger
}

func NewExtractorUseCase(registry *model.Registry, logger *zerolog.Logger) *extractorUC {
	return &extractorUC{registry: registry, log: logger}
}

// Alternate key spellings seen in real webhook traffic.
var (
	idKeys      = []string{"order_id", "orderId", "id"}
	numberKeys  = []string{"order_number", "orderNumber", "number"}
	statusKeys  = []string{"order_status", "orderStatus", "status"}
	accountKeys = []string{"account_url", "accountUrl", "crm_url", "crmUrl"}

	// Sub-records worth carrying into the partial order shape.
	payloadKeys = []string{"customer", "delivery", "items", "manager",
		"phone", "firstName", "lastName", "totalSumm", "summ"}
)

// rawOrderRe is the last-resort heuristic: a 4+ digit run near an
// "order"/"id" token anywhere in the raw payload. Explicitly lossy.
var rawOrderRe = regexp.MustCompile(`(?i)(?:order|id)[^0-9]{0,16}([0-9]{4,})`)

type extractStrategy struct {
	name string
	fn   func(ev InboundEvent, body map[string]any, form url.Values) *model.OrderReference
}

func (e *extractorUC) strategies() []extractStrategy {
	return []extractStrategy{
		{"body-object", e.fromBodyObject},
		{"body-flat", e.fromFlatFields},
		{"query", e.fromQuery},
		{"raw-regex", e.fromRawScan},
	}
}

func (e *extractorUC) Extract(ev InboundEvent) *model.OrderReference {
	var body map[string]any
	var form url.Values
	if len(ev.Body) > 0 {
		if err := json.Unmarshal(ev.Body, &body); err != nil {
			// Not JSON; the trigger also sends form-encoded bodies.
			if v, err := url.ParseQuery(string(ev.Body)); err == nil {
				form = v
			}
		}
	}

	for _, st := range e.strategies() {
		ref := st.fn(ev, body, form)
		if !ref.HasIdentity() {
			continue
		}
		if ref.AccountURL == "" {
			ref.AccountURL = e.guessAccountURL(ev, body)
		}
		if ref.AccountURL == "" {
			e.log.Warn().Str("strategy", st.name).
				Msg("no account url in event; assuming default account (low confidence)")
		}
		metrics.IncExtraction(st.name)
		e.log.Debug().Str("strategy", st.name).Int("order_id", ref.ID).
			Str("number", ref.Number).Msg("order reference extracted")
		return ref
	}

	metrics.IncExtraction("none")
	e.log.Info().Int("body_len", len(ev.Body)).Msg("no order reference found in event")
	return nil
}

// fromBodyObject: a structured order object under a known body key.
func (e *extractorUC) fromBodyObject(_ InboundEvent, body map[string]any, _ url.Values) *model.OrderReference {
	if body == nil {
		return nil
	}
	for _, key := range []string{"order", "Order", "data"} {
		obj, ok := body[key].(map[string]any)
		if !ok {
			continue
		}
		payload := model.ResolvedOrder(obj)
		if payload.ID() == 0 && payload.Number() == "" {
			continue
		}
		return &model.OrderReference{
			ID:         payload.ID(),
			Number:     payload.Number(),
			StatusHint: payload.Status(),
			AccountURL: payload.FirstString(accountKeys...),
			Payload:    payload,
		}
	}
	return nil
}

// fromFlatFields: alternate id/number/status spellings at the top level of
// the body; assembles a partial order shape from whatever is present.
func (e *extractorUC) fromFlatFields(_ InboundEvent, body map[string]any, _ url.Values) *model.OrderReference {
	if body == nil {
		return nil
	}
	whole := model.ResolvedOrder(body)
	id := firstInt(whole, idKeys)
	number := whole.FirstString(numberKeys...)
	if id == 0 && number == "" {
		return nil
	}

	payload := model.ResolvedOrder{}
	for _, k := range payloadKeys {
		if v, ok := body[k]; ok {
			payload[k] = v
		}
	}
	status := whole.FirstString(statusKeys...)
	if id != 0 {
		payload["id"] = id
	}
	if number != "" {
		payload["number"] = number
	}
	if status != "" {
		payload["status"] = status
	}
	return &model.OrderReference{
		ID:         id,
		Number:     number,
		StatusHint: status,
		AccountURL: whole.FirstString(accountKeys...),
		Payload:    payload,
	}
}

// fromQuery: query-string parameters (and form-encoded bodies), after
// stripping the stray quoting the broken trigger is known to add.
func (e *extractorUC) fromQuery(ev InboundEvent, _ map[string]any, form url.Values) *model.OrderReference {
	values := cleanValues(ev.Query)
	if values == nil {
		values = url.Values{}
	}
	for k, vs := range cleanValues(form) {
		if _, exists := values[k]; !exists {
			values[k] = vs
		}
	}
	if len(values) == 0 {
		return nil
	}

	ref := &model.OrderReference{}
	for _, k := range idKeys {
		if v := values.Get(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				ref.ID = n
				break
			}
		}
	}
	for _, k := range numberKeys {
		if v := values.Get(k); v != "" {
			ref.Number = v
			break
		}
	}
	for _, k := range statusKeys {
		if v := values.Get(k); v != "" {
			ref.StatusHint = v
			break
		}
	}
	for _, k := range accountKeys {
		if v := values.Get(k); v != "" {
			ref.AccountURL = v
			break
		}
	}
	if !ref.HasIdentity() {
		return nil
	}
	return ref
}

// fromRawScan: regex over the raw, possibly invalid payload.
func (e *extractorUC) fromRawScan(ev InboundEvent, _ map[string]any, _ url.Values) *model.OrderReference {
	m := rawOrderRe.FindSubmatch(ev.Body)
	if m == nil {
		return nil
	}
	id, err := strconv.Atoi(string(m[1]))
	if err != nil || id == 0 {
		return nil
	}
	e.log.Warn().Int("order_id", id).Msg("order id recovered by raw payload scan")
	return &model.OrderReference{ID: id}
}

// guessAccountURL finds the tenant base URL from body/query fields, the
// custom header, or the referer.
func (e *extractorUC) guessAccountURL(ev InboundEvent, body map[string]any) string {
	if body != nil {
		if u := (model.ResolvedOrder(body)).FirstString(accountKeys...); u != "" {
			return u
		}
	}
	values := cleanValues(ev.Query)
	for _, k := range accountKeys {
		if v := values.Get(k); v != "" {
			return v
		}
	}
	if ev.Header != nil {
		if v := ev.Header.Get("X-Account-Url"); v != "" {
			return v
		}
		if ref := ev.Header.Get("Referer"); ref != "" {
			if u, err := url.Parse(ref); err == nil && strings.Contains(u.Host, "retailcrm") {
				return u.Scheme + "://" + u.Host
			}
		}
	}
	return ""
}

// cleanValues strips stray quoting/backtick characters the trigger wraps
// around keys and values.
func cleanValues(in url.Values) url.Values {
	if in == nil {
		return nil
	}
	out := url.Values{}
	for k, vs := range in {
		ck := strings.Trim(k, "\"'` ")
		for _, v := range vs {
			out.Add(ck, strings.Trim(v, "\"'` "))
		}
	}
	return out
}

func firstInt(o model.ResolvedOrder, keys []string) int {
	for _, k := range keys {
		if n := o.IntAt(k); n != 0 {
			return n
		}
	}
	return 0
}
