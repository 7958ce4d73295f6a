package statement

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const ingDateLayout = "02.01.2006"

var (
	ingPeriodPattern = regexp.MustCompile(`(?i)^(?:extras\s+de\s+cont\s+pentru\s+)?perioada:?\s*(\d{2}\.\d{2}\.\d{4})\s*-\s*(\d{2}\.\d{2}\.\d{4})`)

	// Record start: "08.01.2024  Incasare Factura INV-2024001  +4,500.00 RON"
	ingRecordPattern = regexp.MustCompile(`^(\d{2}\.\d{2}\.\d{4})\s+(.+?)\s+([+-]?[\d,]*\d(?:\.\d{1,2})?)\s+([A-Z]{3})\s*$`)
	ingDatePrefix    = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}\b`)

	ingDetailPattern    = regexp.MustCompile(`(?i)^(ordonator|beneficiar|iban|referinta)\s*:\s*(.*)$`)
	ingValueDatePattern = regexp.MustCompile(`(?i)^data\s+valuta\b`)

	// Matched against the whitespace-collapsed line.
	ingHeaders = []string{"ing bank", "extras de cont", "data detalii", "sold initial", "sold final", "pagina "}
)

// INGParser reads ING Bank Romania statements after PDF-to-text conversion. A record starts with a
// dated line and owns every following line up to the next dated line or page header. PDF extraction
// drops the indentation, so detail lines are recognised by keyword and position rather than by
// leading whitespace:
//
//	08.01.2024  Incasare Factura INV-2024001 plata  +4,500.00 RON
//	            Ordonator: SC ACME SRL
//	            IBAN: RO49AAAA1B31007593840000
//	            Referinta: OP123
type INGParser struct {
	locale NumberLocale
}

func NewINGParser() *INGParser {
	return &INGParser{locale: EnglishLocale}
}

func (p *INGParser) Bank() BankCode {
	return BankING
}

func (p *INGParser) ParseText(rawText string, bankAccountID uuid.UUID) ParseResult {
	var result ParseResult
	var current *RawTransaction

	flush := func() {
		if current != nil {
			result.Transactions = append(result.Transactions, *current)
			current = nil
		}
	}

	for i, line := range splitLines(rawText) {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if m := ingPeriodPattern.FindStringSubmatch(trimmed); m != nil {
			flush()
			info, err := parsePeriod(m[1], m[2], ingDateLayout)
			if err != nil {
				result.addError(lineNo, "%v", err)
				continue
			}
			result.AccountInfo = info
			continue
		}
		indented := line[0] == ' ' || line[0] == '\t'
		if !indented && hasPrefixFold(strings.Join(strings.Fields(trimmed), " "), ingHeaders) {
			flush()
			continue
		}

		if !ingDatePrefix.MatchString(trimmed) {
			if current == nil {
				if indented || ingDetailPattern.MatchString(trimmed) || ingValueDatePattern.MatchString(trimmed) {
					result.addError(lineNo, "detail line without a transaction")
				} else {
					result.addError(lineNo, "unrecognized line")
				}
				continue
			}
			p.applyDetail(current, trimmed)
			current.RawText += "\n" + line
			continue
		}

		flush()
		tx, err := p.parseRecord(trimmed)
		if err != nil {
			result.addError(lineNo, "%v", err)
			continue
		}
		tx.BankAccountID = bankAccountID
		tx.Line = lineNo
		tx.RawText = line
		current = &tx
	}
	flush()
	return result
}

func (p *INGParser) parseRecord(line string) (RawTransaction, error) {
	m := ingRecordPattern.FindStringSubmatch(line)
	if m == nil {
		return RawTransaction{}, fmt.Errorf("malformed transaction line")
	}

	date, err := ParseDate(m[1], ingDateLayout)
	if err != nil {
		return RawTransaction{}, err
	}
	amount, err := ParseAmount(m[3], p.locale)
	if err != nil {
		return RawTransaction{}, err
	}
	if amount.IsZero() {
		return RawTransaction{}, fmt.Errorf("zero amount")
	}

	return RawTransaction{
		ValueDate:   date,
		Amount:      amount,
		Currency:    m[4],
		Description: strings.TrimSpace(m[2]),
	}, nil
}

func (p *INGParser) applyDetail(tx *RawTransaction, detail string) {
	if ingValueDatePattern.MatchString(detail) {
		return
	}
	m := ingDetailPattern.FindStringSubmatch(detail)
	if m == nil {
		tx.Description = strings.TrimSpace(tx.Description + " " + detail)
		return
	}

	value := strings.TrimSpace(m[2])
	switch strings.ToLower(m[1]) {
	case "ordonator", "beneficiar":
		tx.CounterpartyName = value
	case "iban":
		tx.CounterpartyIBAN = normalizeIBAN(value)
	case "referinta":
		tx.Reference = value
	}
}
