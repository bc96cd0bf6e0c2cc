//go:build !integration

package model

import "testing"

func TestRegistryMatch(t *testing.T) {
	accounts := []*Account{
		{URLFragment: "shop-one", TelegramChannelID: "-1001"},
		{URLFragment: "shop-two", TelegramChannelID: "-1002"},
	}
	r := NewRegistry(accounts, "shop-two")

	t.Run("substring match, first wins", func(t *testing.T) {
		acc, exact := r.Match("https://shop-one.retailcrm.example/api")
		if !exact || acc.URLFragment != "shop-one" {
			t.Fatalf("got %+v exact=%v", acc, exact)
		}
	})

	t.Run("case-insensitive", func(t *testing.T) {
		acc, exact := r.Match("https://SHOP-TWO.retailcrm.example")
		if !exact || acc.URLFragment != "shop-two" {
			t.Fatalf("got %+v exact=%v", acc, exact)
		}
	})

	t.Run("no match falls back to default", func(t *testing.T) {
		acc, exact := r.Match("https://unknown.example")
		if exact || acc.URLFragment != "shop-two" {
			t.Fatalf("got %+v exact=%v", acc, exact)
		}
	})

	t.Run("empty candidate uses default", func(t *testing.T) {
		acc, exact := r.Match("")
		if exact || acc.URLFragment != "shop-two" {
			t.Fatalf("got %+v exact=%v", acc, exact)
		}
	})

	t.Run("others excludes the given account", func(t *testing.T) {
		others := r.Others(accounts[0])
		if len(others) != 1 || others[0].URLFragment != "shop-two" {
			t.Fatalf("got %+v", others)
		}
	})
}

func TestRegistryDefaultFallsBackToFirst(t *testing.T) {
	accounts := []*Account{{URLFragment: "only"}}
	r := NewRegistry(accounts, "nonexistent")
	if r.Default() != accounts[0] {
		t.Fatal("unknown default fragment should fall back to the first account")
	}
}

func TestResolvedOrderAccessors(t *testing.T) {
	o := ResolvedOrder{
		"id":     float64(42),
		"number": "A-42",
		"status": "approved",
		"customer": map[string]any{
			"firstName": "Ama",
			"address":   map[string]any{"city": "Accra"},
		},
		"items":     []any{map[string]any{"name": "x"}},
		"totalSumm": 19.5,
	}

	if o.ID() != 42 {
		t.Fatalf("ID() = %d", o.ID())
	}
	if o.Number() != "A-42" || o.Status() != "approved" {
		t.Fatalf("Number/Status = %q/%q", o.Number(), o.Status())
	}
	if got := o.StringAt("customer.address.city"); got != "Accra" {
		t.Fatalf("StringAt nested = %q", got)
	}
	if got := o.StringAt("customer.missing.deep"); got != "" {
		t.Fatalf("missing path should be empty, got %q", got)
	}
	if got := o.FirstString("nope", "customer.firstName"); got != "Ama" {
		t.Fatalf("FirstString = %q", got)
	}
	if got := o.FloatAt("totalSumm"); got != 19.5 {
		t.Fatalf("FloatAt = %v", got)
	}
	if got := len(o.ListAt("items")); got != 1 {
		t.Fatalf("ListAt = %d entries", got)
	}
}

func TestResolvedOrderAlternateSpellings(t *testing.T) {
	if got := (ResolvedOrder{"orderId": "77"}).ID(); got != 77 {
		t.Fatalf("string orderId: got %d", got)
	}
	if got := (ResolvedOrder{"order_number": "B-1"}).Number(); got != "B-1" {
		t.Fatalf("snake number: got %q", got)
	}
	if got := (ResolvedOrder{"orderStatus": "new"}).Status(); got != "new" {
		t.Fatalf("camel status: got %q", got)
	}
}

func TestOrderReference(t *testing.T) {
	var nilRef *OrderReference
	if nilRef.HasIdentity() {
		t.Fatal("nil reference has no identity")
	}
	if (&OrderReference{}).HasIdentity() {
		t.Fatal("empty reference has no identity")
	}
	if !(&OrderReference{Number: "A-1"}).HasIdentity() {
		t.Fatal("number alone is an identity")
	}
	if (&OrderReference{ID: 1, StatusHint: "approved"}).Complete() {
		t.Fatal("complete requires a payload")
	}
	ref := &OrderReference{ID: 1, StatusHint: "approved", Payload: ResolvedOrder{"id": 1}}
	if !ref.Complete() {
		t.Fatal("id + status + payload is complete")
	}
}
