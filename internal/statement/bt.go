package statement

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const btDateLayout = "02/01/2006"

// Column order of a BT export row.
const (
	btColDate = iota
	btColDescription
	btColReference
	btColDebit
	btColCredit
	btColCounterparty
	btColCounterpartyIBAN
	btColumns
)

var (
	btPeriodPattern   = regexp.MustCompile(`(?i)^perioada:\s*(\d{2}/\d{2}/\d{4})\s*-\s*(\d{2}/\d{2}/\d{4})\s*$`)
	btCurrencyPattern = regexp.MustCompile(`(?i)^moneda:\s*([a-z]{3})\s*$`)

	btPreamble = []string{"extras de cont", "cont:", "titular:", "data;", "sold initial", "sold final"}
)

// BTParser reads Banca Transilvania exports:
//
//	Perioada: 01/01/2024 - 31/01/2024
//	Moneda: RON
//	Data;Descriere;Referinta;Debit;Credit;Contrapartida;IBAN contrapartida
//	08/01/2024;Factura INV-2024001 plata;OP123;;4.500,00;SC ACME SRL;RO49AAAA1B31007593840000
type BTParser struct {
	locale NumberLocale
}

func NewBTParser() *BTParser {
	return &BTParser{locale: RomanianLocale}
}

func (p *BTParser) Bank() BankCode {
	return BankBT
}

func (p *BTParser) ParseText(rawText string, bankAccountID uuid.UUID) ParseResult {
	var result ParseResult
	currency := ""

	for i, line := range splitLines(rawText) {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if m := btPeriodPattern.FindStringSubmatch(trimmed); m != nil {
			info, err := parsePeriod(m[1], m[2], btDateLayout)
			if err != nil {
				result.addError(lineNo, "%v", err)
				continue
			}
			result.AccountInfo = info
			continue
		}
		if m := btCurrencyPattern.FindStringSubmatch(trimmed); m != nil {
			currency = strings.ToUpper(m[1])
			continue
		}
		if hasPrefixFold(trimmed, btPreamble) {
			continue
		}

		tx, err := p.parseRow(trimmed)
		if err != nil {
			result.addError(lineNo, "%v", err)
			continue
		}
		tx.BankAccountID = bankAccountID
		tx.Line = lineNo
		tx.Currency = currency
		tx.RawText = line
		result.Transactions = append(result.Transactions, tx)
	}
	return result
}

func (p *BTParser) parseRow(row string) (RawTransaction, error) {
	fields := strings.Split(row, ";")
	if len(fields) != btColumns {
		return RawTransaction{}, fmt.Errorf("expected %d fields, got %d", btColumns, len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	date, err := ParseDate(fields[btColDate], btDateLayout)
	if err != nil {
		return RawTransaction{}, err
	}

	debit, credit := fields[btColDebit], fields[btColCredit]
	if (debit == "") == (credit == "") {
		return RawTransaction{}, fmt.Errorf("exactly one of debit or credit must be set")
	}

	var tx RawTransaction
	if credit != "" {
		tx.Amount, err = ParseAmount(credit, p.locale)
	} else {
		tx.Amount, err = ParseAmount(debit, p.locale)
		tx.Amount = tx.Amount.Abs().Neg()
	}
	if err != nil {
		return RawTransaction{}, err
	}
	if tx.Amount.IsZero() {
		return RawTransaction{}, fmt.Errorf("zero amount")
	}
	if fields[btColDescription] == "" {
		return RawTransaction{}, fmt.Errorf("missing description")
	}

	tx.ValueDate = date
	tx.Description = fields[btColDescription]
	tx.Reference = fields[btColReference]
	tx.CounterpartyName = fields[btColCounterparty]
	tx.CounterpartyIBAN = normalizeIBAN(fields[btColCounterpartyIBAN])
	return tx, nil
}
