package matching

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Signal weights. They add up to MaxSuggestedScore so a suggestion never reaches the
// confidence of a human confirmation.
const (
	WeightAmountExact    = 35
	WeightDateProximate  = 20
	WeightReferenceMatch = 40

	MaxSuggestedScore = WeightAmountExact + WeightDateProximate + WeightReferenceMatch
)

// Signals are the three heuristics a suggestion is scored on.
type Signals struct {
	AmountExact    bool `json:"amount_exact"`
	DateProximate  bool `json:"date_proximate"`
	ReferenceMatch bool `json:"reference_match"`
}

// Score combines the signals into a 0-95 confidence.
func Score(s Signals) int {
	score := 0
	if s.AmountExact {
		score += WeightAmountExact
	}
	if s.DateProximate {
		score += WeightDateProximate
	}
	if s.ReferenceMatch {
		score += WeightReferenceMatch
	}
	return score
}

// EvaluateSignals compares a transaction with one candidate.
func EvaluateSignals(amount decimal.Decimal, valueDate time.Time, ref *Reference, c MatchCandidate, proximityDays int) Signals {
	return Signals{
		AmountExact:    amount.Equal(c.TotalAmount),
		DateProximate:  daysApart(valueDate, c.DocumentDate) <= proximityDays,
		ReferenceMatch: ref != nil && NormalizeDocumentNumber(ref.Number) != "" && NormalizeDocumentNumber(ref.Number) == NormalizeDocumentNumber(c.DocumentNumber),
	}
}

func daysApart(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	d := int(a.Sub(b).Hours() / 24)
	if d < 0 {
		return -d
	}
	return d
}

// NameSimilarity is the levenshtein ratio (0..1) of two party names after normalization.
func NameSimilarity(a, b string) float64 {
	a, b = normalizeName(a), normalizeName(b)
	if a == "" || b == "" {
		return 0
	}
	return levenshtein.RatioForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
}

func normalizeName(s string) string {
	s = strings.ToUpper(s)
	s = strings.NewReplacer(".", "", ",", "", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
