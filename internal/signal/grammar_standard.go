package signal

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	sideWordRe   = regexp.MustCompile(`(?i)\b(long|short)\b`)
	parenPctRe   = regexp.MustCompile(`\((\d+(?:\.\d+)?)\s*%`)
	stopKeywords = []string{"Stop Loss", "Stop-Loss", "SL"}
)

const maxStandardTargets = 4

// parseStandard is the fallback format:
//
//	BTC/USDT Long 10x
//	Entry - 50000
//	Stop Loss - 49000
//	TP1: 51000 (50%)
//	TP2: 52000 (50%)
func parseStandard(text string) (*Signal, bool) {
	lines := splitLines(text)
	if len(lines) < 3 {
		return nil, false
	}

	first := lines[0]
	words := strings.Fields(first)

	var symbol string
	for _, w := range words {
		if strings.Contains(w, "/") {
			symbol, _ = displayPair(w)
			break
		}
	}
	if symbol == "" {
		return nil, false
	}

	side := sideWordRe.FindStringSubmatch(first)
	if side == nil {
		return nil, false
	}
	position := Long
	if strings.EqualFold(side[1], "short") {
		position = Short
	}

	leverage := 0
	for _, w := range words {
		if strings.Contains(w, "/") || !strings.ContainsAny(w, "xX") {
			continue
		}
		if n, err := strconv.Atoi(digitsOnly(w)); err == nil && n > 0 {
			leverage = n
			break
		}
	}
	if leverage == 0 {
		return nil, false
	}

	entry, ok := entryAfterDash(lines[1])
	if !ok {
		return nil, false
	}

	sig := &Signal{
		Symbol:         symbol,
		ExchangeSymbol: ExchangeSymbol(symbol),
		Position:       position,
		Leverage:       leverage,
		EntryPrice:     entry,
	}

	for _, line := range lines[2:] {
		if rest, ok := after(line, stopKeywords...); ok {
			if sl, ok := firstNumber(rest); ok && !sig.StopLoss.Valid {
				sig.StopLoss = decimal.NewNullDecimal(sl)
			}
			continue
		}
		if len(sig.TakeProfitLevels) == maxStandardTargets {
			continue
		}
		if tp, ok := targetLine(line); ok {
			sig.TakeProfitLevels = append(sig.TakeProfitLevels, tp)
		}
	}
	if len(sig.TakeProfitLevels) == 0 {
		return nil, false
	}

	return sig, true
}

// entryAfterDash reads the numeric remainder after the first '-'.
func entryAfterDash(line string) (decimal.Decimal, bool) {
	parts := strings.SplitN(line, "-", 3)
	if len(parts) < 2 {
		return decimal.Zero, false
	}
	var b strings.Builder
	for _, r := range parts[1] {
		if unicode.IsDigit(r) || r == '.' {
			b.WriteRune(r)
		}
	}
	d, err := decimal.NewFromString(b.String())
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// targetLine extracts (first standalone number, first parenthesized percentage).
func targetLine(line string) (TakeProfitLevel, bool) {
	pct := parenPctRe.FindStringSubmatchIndex(line)
	if pct == nil {
		return TakeProfitLevel{}, false
	}
	price, ok := firstNumber(line[:pct[0]])
	if !ok {
		return TakeProfitLevel{}, false
	}
	share, err := decimal.NewFromString(line[pct[2]:pct[3]])
	if err != nil {
		return TakeProfitLevel{}, false
	}
	return TakeProfitLevel{Price: price, Percentage: share}, true
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
