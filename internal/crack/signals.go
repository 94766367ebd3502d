package crack

import (
	"regexp"
	"strings"
)

var (
	reDate    = regexp.MustCompile(`\b(19|20)\d{2}[-/.]\d{1,2}[-/.]\d{1,2}\b|\b\d{1,2}[-/.]\d{1,2}[-/.](19|20)?\d{2}\b`)
	reCurr    = regexp.MustCompile(`\b(usd|eur|gbp|cad|aud|inr|jpy|chf)\b|[$£€¥]`)
	reAmount  = regexp.MustCompile(`\b\d{1,3}(,\d{3})*\.\d{2}\b|\b\d+\.\d{2}\b`)
	reInvoice = regexp.MustCompile(`\b(invoice|bill to|due date|subtotal|vat|tax)\b`)
)

// InvoiceScore is a rough 0..1 signal of how invoice-like cracked text looks.
// It is logged next to each crack and never gates a run.
func InvoiceScore(text string) float32 {
	t := strings.ToLower(text)
	score := float32(0.1)
	if reDate.MatchString(t) {
		score += 0.2
	}
	if reCurr.MatchString(t) {
		score += 0.15
	}
	if reAmount.MatchString(t) {
		score += 0.2
	}
	if reInvoice.MatchString(t) {
		score += 0.25
	}
	if len(text) > 120 {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}
