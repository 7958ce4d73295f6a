// Package statement turns bank statement text into raw transactions.
//
// Each supported bank has its own layout, number locale and date format. Parsers are purely
// syntactic: they never touch storage and never fail as a whole. A line that cannot be understood
// is reported in ParseResult.Errors and parsing continues with the next one.
package statement

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankCode identifies a supported statement layout.
type BankCode string

const (
	// BankBT is the Banca Transilvania semicolon-separated text export.
	BankBT BankCode = "bt"
	// BankING is the ING Bank Romania statement as produced by PDF-to-text conversion.
	BankING BankCode = "ing"
)

var ErrUnsupportedBank = errors.New("unsupported bank")

// RawTransaction is a statement line before persistence.
type RawTransaction struct {
	BankAccountID    uuid.UUID
	Line             int
	ValueDate        time.Time
	Amount           decimal.Decimal
	Currency         string
	Description      string
	Reference        string
	CounterpartyName string
	CounterpartyIBAN string
	RawText          string
}

// AccountInfo is header data found in the statement itself.
type AccountInfo struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
}

type ParseResult struct {
	Transactions []RawTransaction
	Errors       []string
	AccountInfo  *AccountInfo
}

func (r *ParseResult) addError(line int, format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf("line %d: %s", line, fmt.Sprintf(format, args...)))
}

// StatementParser extracts transactions from one bank's statement text.
type StatementParser interface {
	Bank() BankCode
	ParseText(rawText string, bankAccountID uuid.UUID) ParseResult
}

// NewParser returns the parser for code.
func NewParser(code BankCode) (StatementParser, error) {
	switch code {
	case BankBT:
		return NewBTParser(), nil
	case BankING:
		return NewINGParser(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedBank, code)
}

// ParseBankCode normalizes user input such as " BT " into a BankCode.
func ParseBankCode(s string) (BankCode, error) {
	code := BankCode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range SupportedBanks() {
		if code == known {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedBank, s)
}

// SupportedBanks lists every bank code NewParser accepts.
func SupportedBanks() []BankCode {
	codes := []BankCode{BankBT, BankING}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Parse runs p and turns an unexpected panic into a parse error so callers always get a result.
func Parse(p StatementParser, rawText string, bankAccountID uuid.UUID) (result ParseResult) {
	defer func() {
		if r := recover(); r != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("parser %s aborted: %v", p.Bank(), r))
		}
	}()
	return p.ParseText(rawText, bankAccountID)
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}
