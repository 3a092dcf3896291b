package signal

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	profitLevPrefixRe = regexp.MustCompile(`x\s*(\d+)`)
	profitLevSuffixRe = regexp.MustCompile(`(\d+)\s*x`)
	profitPriceRe     = regexp.MustCompile(`price\s*[-:]\s*(\d+\.?\d*)`)
	profitDecimalRe   = regexp.MustCompile(`(\d+\.\d+)`)
	profitPctRe       = regexp.MustCompile(`profit\s*[-:]\s*(\d+)%?`)
	profitAnyPctRe    = regexp.MustCompile(`(\d+)\s*%`)
)

// parseProfit recognizes profit-target updates:
//
//	#PLUME/USDT (Short📉, x20)
//	✅ Price - 0.1724
//	🔝 Profit - 60%
func parseProfit(text string) (*Signal, bool) {
	lines := splitLines(text)
	if len(lines) < 3 {
		return nil, false
	}

	first := lines[0]
	pair := pairRe.FindStringSubmatch(first)
	if pair == nil {
		return nil, false
	}

	lower := strings.ToLower(first)
	var position PositionType
	switch {
	case strings.Contains(lower, "short") || strings.Contains(first, "📉"):
		position = Short
	case strings.Contains(lower, "long") || strings.Contains(first, "📈"):
		position = Long
	default:
		return nil, false
	}

	m := profitLevPrefixRe.FindStringSubmatch(first)
	if m == nil {
		m = profitLevSuffixRe.FindStringSubmatch(first)
	}
	if m == nil {
		return nil, false
	}
	leverage, err := strconv.Atoi(m[1])
	if err != nil || leverage <= 0 {
		return nil, false
	}

	price, ok := profitPrice(lines)
	if !ok {
		return nil, false
	}

	target, ok := profitTarget(lines)
	if !ok || target <= 0 {
		return nil, false
	}

	symbol := pair[1] + "/" + pair[2]
	return &Signal{
		Symbol:          symbol,
		ExchangeSymbol:  ExchangeSymbol(symbol),
		Position:        position,
		Leverage:        leverage,
		EntryPrice:      price,
		ProfitTarget:    target,
		IsProfitMessage: true,
	}, true
}

func profitPrice(lines []string) (decimal.Decimal, bool) {
	for _, line := range lines {
		lower := strings.ToLower(line)
		if m := profitPriceRe.FindStringSubmatch(lower); m != nil {
			if d, err := decimal.NewFromString(m[1]); err == nil {
				return d, true
			}
		}
		if strings.Contains(lower, "price") {
			if m := profitDecimalRe.FindStringSubmatch(line); m != nil {
				if d, err := decimal.NewFromString(m[1]); err == nil {
					return d, true
				}
			}
		}
	}
	return decimal.Zero, false
}

func profitTarget(lines []string) (int, bool) {
	for _, line := range lines {
		lower := strings.ToLower(line)
		if m := profitPctRe.FindStringSubmatch(lower); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n, true
			}
		}
		if strings.Contains(lower, "profit") {
			if m := profitAnyPctRe.FindStringSubmatch(line); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil {
					return n, true
				}
			}
		}
	}
	return 0, false
}
