package usecase

import (
	"fmt"
	"html"
	"strings"

	"github.com/garikmergelyan-ops/retailcrm-telegram-integration-sub000/internal/domain/model"
)

const notSpecified = "Not specified"

// FormatOrderMessage renders the fixed notification template for one
// resolved order. Pure and total: whatever fields the CRM did or did not
// return, it produces a complete message, substituting "Not specified"
// for anything missing. The result is Telegram HTML (only the title is
// marked up, values are escaped).
func FormatOrderMessage(order model.ResolvedOrder, currency string) string {
	var b strings.Builder
	b.WriteString("✅ <b>Order approved!</b>\n\n")

	writeLine(&b, "Order Number", orderNumber(order))
	writeLine(&b, "Customer", customerName(order))
	writeLine(&b, "Phone", order.FirstString(
		"phone", "customer.phone", "customer.contact.phone", "delivery.address.phone"))
	writeLine(&b, "Additional Phone", order.FirstString(
		"additionalPhone", "additional_phone", "customer.additionalPhone"))
	writeLine(&b, "Delivery Address", order.FirstString(
		"delivery.address.text", "delivery.address.address", "customer.address.text", "address"))
	writeLine(&b, "City", order.FirstString(
		"delivery.address.city", "customer.address.city", "city"))
	writeLine(&b, "Delivery Date", order.FirstString(
		"delivery.date", "deliveryDate", "delivery_date"))
	writeLine(&b, "Manager", managerName(order))

	b.WriteString("\nItems:\n")
	writeItems(&b, order)

	total := order.FirstFloat("totalSumm", "summ", "total", "totalSum")
	b.WriteString(fmt.Sprintf("\nTotal: %s %s\n", trimFloat(total), html.EscapeString(currency)))
	return b.String()
}

func writeLine(b *strings.Builder, label, value string) {
	if value == "" {
		value = notSpecified
	}
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(html.EscapeString(value))
	b.WriteString("\n")
}

func orderNumber(order model.ResolvedOrder) string {
	if n := order.Number(); n != "" {
		return n
	}
	if id := order.ID(); id != 0 {
		return fmt.Sprintf("%d", id)
	}
	return ""
}

// customerName joins first/last name from whichever sub-record carries them.
func customerName(order model.ResolvedOrder) string {
	for _, prefix := range []string{"customer.", "customer.contact.", ""} {
		first := order.StringAt(prefix + "firstName")
		last := order.StringAt(prefix + "lastName")
		if name := strings.TrimSpace(first + " " + last); name != "" {
			return name
		}
	}
	return order.FirstString("customer.name", "customerName", "customer_name")
}

func managerName(order model.ResolvedOrder) string {
	first := order.StringAt("manager.firstName")
	last := order.StringAt("manager.lastName")
	if name := strings.TrimSpace(first + " " + last); name != "" {
		return name
	}
	if s, ok := order.At("manager").(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func writeItems(b *strings.Builder, order model.ResolvedOrder) {
	items := order.ListAt("items")
	if len(items) == 0 {
		b.WriteString("• No items\n")
		return
	}
	for _, raw := range items {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		item := model.ResolvedOrder(m)
		name := item.FirstString("offer.displayName", "offer.name", "productName", "name")
		if name == "" {
			name = notSpecified
		}
		qty := item.IntAt("quantity")
		if qty == 0 {
			qty = 1
		}
		b.WriteString(fmt.Sprintf("• %s - %d pcs\n", html.EscapeString(name), qty))
	}
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%.2f", f)
}
