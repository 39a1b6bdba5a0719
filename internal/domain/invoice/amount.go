package invoice

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a provider-reported amount. Portals are inconsistent:
// some return plain JSON numbers, others localized strings such as
// "€ 45,30" or "1.234,56".
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "€")
	s = strings.TrimSuffix(s, "€")
	s = strings.ReplaceAll(s, " ", "")

	// Italian format uses '.' for thousands and ',' for decimals
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unparseable amount %q: %w", raw, err)
	}
	return amount, nil
}
