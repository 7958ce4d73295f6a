package statement

import (
	"fmt"
	"strings"
)

func hasPrefixFold(s string, prefixes []string) bool {
	lower := strings.ToLower(s)
	for _, p := range prefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

func normalizeIBAN(s string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}

func parsePeriod(start, end, layout string) (*AccountInfo, error) {
	from, err := ParseDate(start, layout)
	if err != nil {
		return nil, err
	}
	to, err := ParseDate(end, layout)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("statement period ends before it starts")
	}
	return &AccountInfo{PeriodStart: from, PeriodEnd: to}, nil
}
