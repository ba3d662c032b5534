// Package templates renders the HTML bodies of billing notifications.
package templates

import (
	"bytes"
	"fmt"
	htmpl "html/template"
	"strings"
)

const receiptTmpl = `<html>
<body style="font-family: sans-serif; color: #333;">
  <h2>Payment receipt</h2>
  <p>Hi {{.Name}},</p>
  <p>We charged {{formatAmount .Amount .Currency}} to your card ending in {{.Last4}}.</p>
  <p>Reference: <code>{{.Reference}}</code></p>
  <p>Thank you.</p>
</body>
</html>`

const cardSavedTmpl = `<html>
<body style="font-family: sans-serif; color: #333;">
  <h2>Card saved</h2>
  <p>Hi {{.Name}},</p>
  <p>Your {{.Brand}} card ending in {{.Last4}} was saved as the default payment method.</p>
  <p>If this wasn't you, contact support immediately.</p>
</body>
</html>`

var funcs = htmpl.FuncMap{
	"formatAmount": FormatAmount,
}

var registry = map[string]*htmpl.Template{
	"receipt":    htmpl.Must(htmpl.New("receipt").Funcs(funcs).Parse(receiptTmpl)),
	"card_saved": htmpl.Must(htmpl.New("card_saved").Funcs(funcs).Parse(cardSavedTmpl)),
}

// RenderHTML renders the named template with data.
func RenderHTML(name string, data map[string]any) (string, error) {
	t, ok := registry[name]
	if !ok {
		return "", fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Subject returns the email subject for a template name.
func Subject(name string) string {
	switch name {
	case "receipt":
		return "Your payment receipt"
	case "card_saved":
		return "A card was saved to your account"
	default:
		return "Notification"
	}
}

// FormatAmount renders provider minor units for display, e.g. 1099 usd ->
// "10.99 USD". Amounts are pass-through; no locale handling.
func FormatAmount(amount any, currency any) string {
	var minor int64
	switch v := amount.(type) {
	case int64:
		minor = v
	case float64: // JSON numbers decode as float64
		minor = int64(v)
	case int:
		minor = int64(v)
	}
	cur := strings.ToUpper(fmt.Sprintf("%v", currency))
	return fmt.Sprintf("%d.%02d %s", minor/100, minor%100, cur)
}
