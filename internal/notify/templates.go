package notify

import (
	"fmt"
	"strings"

	"github.com/shoplite/shoplite-api/internal/utils"
	"github.com/shoplite/shoplite-api/pkg/events"
)

func otpEmail(code string, ttlMinutes int) (subject, text, html string) {
	subject = "Your verification code"
	text = fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, ttlMinutes)
	html = fmt.Sprintf(`<div style="font-family:Arial,sans-serif;max-width:480px;margin:0 auto">
<h2>Email verification</h2>
<p>Use this code to finish creating your account:</p>
<p style="font-size:32px;letter-spacing:8px;font-weight:bold">%s</p>
<p>The code expires in %d minutes. If you did not request it, ignore this email.</p>
</div>`, code, ttlMinutes)
	return subject, text, html
}

func orderItemsTable(items []events.OrderEmailItem) string {
	var b strings.Builder
	b.WriteString(`<table style="width:100%;border-collapse:collapse">
<tr><th align="left">Item</th><th align="right">Qty</th><th align="right">Price</th></tr>`)
	for _, it := range items {
		fmt.Fprintf(&b, `<tr><td>%s</td><td align="right">%d</td><td align="right">%s</td></tr>`,
			it.Name, it.Quantity, utils.FormatMoney(it.Price))
	}
	b.WriteString(`</table>`)
	return b.String()
}

func formatAddress(a events.AddressEmail) string {
	parts := []string{a.Street, a.City, a.State, a.ZipCode, a.Country}
	nonEmpty := parts[:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, ", ")
}

func orderConfirmationEmail(name string, o *events.OrderEmail) (subject, text, html string) {
	subject = fmt.Sprintf("Order #%d confirmed", o.ID)
	text = fmt.Sprintf("Hi %s, your order #%d has been placed. Total: %s.",
		name, o.ID, utils.FormatMoney(o.TotalAmount))
	html = fmt.Sprintf(`<div style="font-family:Arial,sans-serif;max-width:560px;margin:0 auto">
<h2>Thanks for your order, %s!</h2>
<p>Order <strong>#%d</strong> has been placed and is now <strong>%s</strong>.</p>
%s
<p style="font-size:18px"><strong>Total: %s</strong></p>
<p>Shipping to: %s</p>
</div>`, name, o.ID, o.Status, orderItemsTable(o.Items), utils.FormatMoney(o.TotalAmount), formatAddress(o.ShippingAddress))
	return subject, text, html
}

func adminOrderAlertEmail(o *events.OrderEmail, c *events.CustomerEmail) (subject, text, html string) {
	subject = fmt.Sprintf("New order #%d received", o.ID)

	customerName, customerLine := "unknown", "unknown"
	if c != nil {
		customerName = c.Name
		customerLine = fmt.Sprintf("%s &lt;%s&gt; %s", c.Name, c.Email, c.Phone)
	}

	text = fmt.Sprintf("New order #%d from %s. Total: %s.", o.ID, customerName, utils.FormatMoney(o.TotalAmount))
	html = fmt.Sprintf(`<div style="font-family:Arial,sans-serif;max-width:560px;margin:0 auto">
<h2>New order #%d</h2>
<p>Customer: %s</p>
%s
<p style="font-size:18px"><strong>Total: %s</strong></p>
<p>Shipping to: %s</p>
</div>`, o.ID, customerLine, orderItemsTable(o.Items), utils.FormatMoney(o.TotalAmount), formatAddress(o.ShippingAddress))
	return subject, text, html
}
