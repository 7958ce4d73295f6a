package statement

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NumberLocale describes how a bank writes amounts.
type NumberLocale struct {
	Thousands rune
	Decimal   rune
}

var (
	// RomanianLocale writes 4.500,00
	RomanianLocale = NumberLocale{Thousands: '.', Decimal: ','}
	// EnglishLocale writes 4,500.00
	EnglishLocale = NumberLocale{Thousands: ',', Decimal: '.'}
)

// pattern accepts either ungrouped digits or groups of exactly three after the first, plus an optional fraction.
func (l NumberLocale) pattern() *regexp.Regexp {
	t := regexp.QuoteMeta(string(l.Thousands))
	d := regexp.QuoteMeta(string(l.Decimal))
	return regexp.MustCompile(`^(\d{1,3}(` + t + `\d{3})+|\d+)(` + d + `\d+)?$`)
}

var (
	romanianPattern = RomanianLocale.pattern()
	englishPattern  = EnglishLocale.pattern()
)

func (l NumberLocale) compiled() *regexp.Regexp {
	switch l {
	case RomanianLocale:
		return romanianPattern
	case EnglishLocale:
		return englishPattern
	}
	return l.pattern()
}

// ParseAmount parses a signed amount written in locale. A leading '+'/'-' or a trailing '-' sets the sign.
// Thousands separators are only accepted between groups of three digits, so an amount written in the
// other locale is rejected instead of being read a hundred times too large.
func ParseAmount(s string, locale NumberLocale) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	clean = strings.ReplaceAll(clean, " ", "")
	clean = strings.ReplaceAll(clean, "\u00a0", "")
	if clean == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	negative := false
	switch {
	case strings.HasPrefix(clean, "-"):
		negative = true
		clean = clean[1:]
	case strings.HasPrefix(clean, "+"):
		clean = clean[1:]
	case strings.HasSuffix(clean, "-"):
		negative = true
		clean = clean[:len(clean)-1]
	}

	if !locale.compiled().MatchString(clean) {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	clean = strings.ReplaceAll(clean, string(locale.Thousands), "")
	clean = strings.ReplaceAll(clean, string(locale.Decimal), ".")

	amount, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

// ParseDate parses a calendar date. The result is midnight UTC so dates compare without time-of-day noise.
func ParseDate(s, layout string) (time.Time, error) {
	t, err := time.ParseInLocation(layout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}
