package model

import (
	"fmt"
	"strconv"
	"strings"
)

// OrderReference is the candidate identity extracted from one inbound
// event. At least one of ID/Number must be set for resolution to proceed.
type OrderReference struct {
	ID         int
	Number     string
	AccountURL string
	StatusHint string

	// Payload carries whatever partial order shape extraction could
	// assemble directly from the event body.
	Payload ResolvedOrder
}

// HasIdentity reports whether the reference is resolvable at all.
func (r *OrderReference) HasIdentity() bool {
	return r != nil && (r.ID != 0 || r.Number != "")
}

// Complete reports whether the event already carried a usable order shape
// (identity plus a status), so resolution can skip the CRM round-trip.
func (r *OrderReference) Complete() bool {
	return r.HasIdentity() && r.StatusHint != "" && r.Payload != nil
}

// ResolvedOrder is an order record as the CRM returned it. The field
// layout varies by account and CRM version, so it stays a generic mapping
// read through typed accessors instead of a fixed schema.
type ResolvedOrder map[string]any

// At walks a dot-separated path ("delivery.address.text") and returns the
// raw value, or nil when any segment is absent.
func (o ResolvedOrder) At(path string) any {
	var cur any = map[string]any(o)
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[seg]
		if !ok {
			return nil
		}
	}
	return cur
}

// StringAt returns the value at path rendered as a string, "" if absent.
func (o ResolvedOrder) StringAt(path string) string {
	switch v := o.At(path).(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// IntAt returns the value at path as an int, 0 if absent or non-numeric.
func (o ResolvedOrder) IntAt(path string) int {
	switch v := o.At(path).(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	default:
		return 0
	}
}

// FloatAt returns the value at path as a float64, 0 if absent.
func (o ResolvedOrder) FloatAt(path string) float64 {
	switch v := o.At(path).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f
	default:
		return 0
	}
}

// ListAt returns the value at path as a slice, nil if absent.
func (o ResolvedOrder) ListAt(path string) []any {
	v, _ := o.At(path).([]any)
	return v
}

// FirstString returns the first non-empty string among the given paths.
func (o ResolvedOrder) FirstString(paths ...string) string {
	for _, p := range paths {
		if s := o.StringAt(p); s != "" {
			return s
		}
	}
	return ""
}

// FirstFloat returns the first non-zero numeric value among the paths.
func (o ResolvedOrder) FirstFloat(paths ...string) float64 {
	for _, p := range paths {
		if f := o.FloatAt(p); f != 0 {
			return f
		}
	}
	return 0
}

// Set stores a value under a top-level key, allocating if needed, and
// returns the (possibly new) map. Used while assembling partial shapes.
func (o ResolvedOrder) Set(key string, v any) ResolvedOrder {
	if o == nil {
		o = ResolvedOrder{}
	}
	o[key] = v
	return o
}

// ID returns the CRM order id, trying the known spellings.
func (o ResolvedOrder) ID() int {
	for _, p := range []string{"id", "orderId", "order_id"} {
		if n := o.IntAt(p); n != 0 {
			return n
		}
	}
	return 0
}

// Number returns the human order number.
func (o ResolvedOrder) Number() string {
	return o.FirstString("number", "orderNumber", "order_number")
}

// Status returns the order status string.
func (o ResolvedOrder) Status() string {
	return o.FirstString("status", "orderStatus", "order_status")
}
