package matching

import (
	"regexp"
	"strings"

	"statement-reconciliation-backend/internal/models"
)

// ReferenceRule pulls a document number out of a payment description.
type ReferenceRule struct {
	Name    string
	Type    models.MatchType
	Pattern *regexp.Regexp
}

// Extract returns the first capture group, or the whole match when the pattern has none.
func (r ReferenceRule) Extract(description string) (string, bool) {
	m := r.Pattern.FindStringSubmatch(description)
	if m == nil {
		return "", false
	}
	if len(m) > 1 {
		return m[1], true
	}
	return m[0], true
}

// Reference is a document number found in a description.
type Reference struct {
	Rule   string           `json:"rule"`
	Type   models.MatchType `json:"type"`
	Number string           `json:"number"`
}

// DefaultReferenceRules covers the numbering schemes seen on Romanian payment orders.
// Specific prefixes come before the loose "factura nr" forms.
var DefaultReferenceRules = []ReferenceRule{
	{Name: "invoice-prefixed", Type: models.MatchTypeInvoice, Pattern: regexp.MustCompile(`(?i)\b(INV-?\d{4,})\b`)},
	{Name: "proforma-prefixed", Type: models.MatchTypeProforma, Pattern: regexp.MustCompile(`(?i)\b(PF-?\d{3,})\b`)},
	{Name: "order-prefixed", Type: models.MatchTypeOrder, Pattern: regexp.MustCompile(`(?i)\b((?:CMD|ORD)-?\d{3,})\b`)},
	{Name: "invoice-word", Type: models.MatchTypeInvoice, Pattern: regexp.MustCompile(`(?i)\bfact(?:ura)?\.?\s*(?:nr\.?|numarul)?\s*:?\s*([A-Z]{0,5}\d{3,})\b`)},
	{Name: "proforma-word", Type: models.MatchTypeProforma, Pattern: regexp.MustCompile(`(?i)\bproforma\s*(?:nr\.?)?\s*:?\s*([A-Z]{0,5}\d{3,})\b`)},
	{Name: "order-word", Type: models.MatchTypeOrder, Pattern: regexp.MustCompile(`(?i)\bcomanda\s*(?:nr\.?)?\s*:?\s*([A-Z]{0,5}\d{3,})\b`)},
}

// ExtractReference applies rules in order; the first match wins.
func ExtractReference(rules []ReferenceRule, texts ...string) (Reference, bool) {
	for _, rule := range rules {
		for _, text := range texts {
			if text == "" {
				continue
			}
			if number, ok := rule.Extract(text); ok {
				return Reference{Rule: rule.Name, Type: rule.Type, Number: number}, true
			}
		}
	}
	return Reference{}, false
}

// NormalizeDocumentNumber makes "inv 2024-001" and "INV2024001" compare equal.
func NormalizeDocumentNumber(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
