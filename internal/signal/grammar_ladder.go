package signal

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var ladderLevRe = regexp.MustCompile(`(\d+)[Xx]`)

var two = decimal.NewFromInt(2)

// parseLadder recognizes range entries with equally weighted targets:
//
//	#NEAR/USDT ( LONG )
//	Leverage 20X to 25X
//	Entry 2.019 - 2.024
//	Targets :- 2.043 | 2.065 | 2.083
//	Stoploss = 1.90
func parseLadder(text string) (*Signal, bool) {
	lines := splitLines(text)
	if len(lines) < 4 {
		return nil, false
	}

	first := lines[0]
	pair := pairRe.FindStringSubmatch(first)
	if pair == nil {
		return nil, false
	}

	var position PositionType
	switch {
	case strings.Contains(first, "LONG"):
		position = Long
	case strings.Contains(first, "SHORT"):
		position = Short
	default:
		return nil, false
	}

	levLine, ok := findLine(lines, "Leverage", "leverage")
	if !ok {
		return nil, false
	}
	// Lower bound of "20X to 25X".
	m := ladderLevRe.FindStringSubmatch(levLine)
	if m == nil {
		return nil, false
	}
	leverage, err := strconv.Atoi(m[1])
	if err != nil || leverage <= 0 {
		return nil, false
	}

	entryLine, ok := findLine(lines, "Entry")
	if !ok {
		return nil, false
	}
	rest, _ := after(entryLine, "Entry")
	entries := numbers(rest)
	if len(entries) == 0 {
		return nil, false
	}
	low, high := entries[0], entries[0]
	if len(entries) >= 2 {
		high = entries[1]
	}

	targetLine, ok := findLine(lines, "Targets", "targets", "Target")
	if !ok {
		return nil, false
	}
	rest, _ = after(targetLine, "Targets", "targets", "Target")
	targets := numbers(rest)
	if len(targets) == 0 {
		return nil, false
	}

	symbol := pair[1] + "/" + pair[2]
	sig := &Signal{
		Symbol:           symbol,
		ExchangeSymbol:   ExchangeSymbol(symbol),
		Position:         position,
		Leverage:         leverage,
		EntryPriceLow:    low,
		EntryPriceHigh:   high,
		EntryPrice:       low.Add(high).Div(two),
		TakeProfitLevels: evenSplit(targets),
		IsEntryRange:     true,
	}

	if slLine, ok := findLine(lines, "Stoploss", "stoploss", "SL"); ok {
		rest, _ := after(slLine, "Stoploss", "stoploss", "SL")
		if sl, ok := firstNumber(rest); ok {
			sig.StopLoss = decimal.NewNullDecimal(sl)
		}
	}

	return sig, true
}

func findLine(lines []string, keywords ...string) (string, bool) {
	for _, line := range lines {
		if containsAny(line, keywords...) {
			return line, true
		}
	}
	return "", false
}
