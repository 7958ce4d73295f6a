// Package fingerprint derives the deduplication key of a bank transaction.
//
// Two transactions with the same fingerprint are treated as the same real-world event, no matter
// which statement file they arrived in.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DescriptionPrefixLen is how many characters of the description take part in the key.
const DescriptionPrefixLen = 100

const separator = "|"

// Fields are the economically meaningful parts of a transaction.
type Fields struct {
	Date             time.Time
	Amount           decimal.Decimal
	Currency         string
	Description      string
	Reference        string
	CounterpartyIBAN string
}

// Compute returns the hex sha256 of the canonical concatenation of f.
func Compute(f Fields) string {
	parts := []string{
		f.Date.Format("2006-01-02"),
		f.Amount.StringFixed(2),
		strings.ToUpper(strings.TrimSpace(f.Currency)),
		prefix(strings.TrimSpace(f.Description), DescriptionPrefixLen),
		strings.TrimSpace(f.Reference),
		strings.ToUpper(strings.ReplaceAll(f.CounterpartyIBAN, " ", "")),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, separator)))
	return hex.EncodeToString(sum[:])
}

// prefix truncates on rune boundaries so diacritics in descriptions are never split.
func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
