package signal

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hashPairRe     = regexp.MustCompile(`#([A-Z0-9]+/[A-Z0-9]+)`)
	localizedLevRe = regexp.MustCompile(`(\d+)[xх]`)
)

// Size share for "LIMIT ORDER" scout entries.
var limitOrderShare = decimal.RequireFromString("0.5")

// parseLocalized recognizes the Russian channel format:
//
//	🪙 МОНЕТА: #ADA/USDT
//	📉📈ПОКУПКА: SHORT
//	ПЛЕЧО: 20х
//	· Вход: 0.686$
//	· Фиксируем прибыль на: 0.6774$, 0.6688$, 0.6517$
//	· Стоп: 0.734$
func parseLocalized(text string) (*Signal, bool) {
	lines := splitLines(text)
	if len(lines) < 4 {
		return nil, false
	}

	var symbol string
	for _, line := range lines {
		if m := hashPairRe.FindStringSubmatch(line); m != nil {
			symbol = m[1]
			break
		}
	}
	if symbol == "" {
		return nil, false
	}

	var (
		position  PositionType
		limitOnly bool
	)
	for _, line := range lines {
		if !containsAny(line, "ПОКУПКА", "КУПИТЬ") {
			continue
		}
		limitOnly = strings.Contains(strings.ToUpper(line), "LIMIT ORDER")
		switch {
		case containsAny(line, "SHORT", "ШОРТ"):
			position = Short
		case containsAny(line, "LONG", "ЛОНГ"):
			position = Long
		}
		break
	}
	if position == "" {
		return nil, false
	}

	leverage := 0
	for _, line := range lines {
		if !strings.Contains(line, "ПЛЕЧО") {
			continue
		}
		if m := localizedLevRe.FindStringSubmatch(line); m != nil {
			leverage, _ = strconv.Atoi(m[1])
			break
		}
	}
	if leverage <= 0 {
		return nil, false
	}

	entry, ok := keywordNumber(lines, "Вход")
	if !ok || !entry.IsPositive() {
		return nil, false
	}

	sig := &Signal{
		Symbol:             symbol,
		ExchangeSymbol:     ExchangeSymbol(symbol),
		Position:           position,
		Leverage:           leverage,
		EntryPrice:         entry,
		IsRussianFormat:    true,
		IsLimitOrderSignal: limitOnly,
	}
	if stop, ok := keywordNumber(lines, "Стоп"); ok {
		sig.StopLoss = decimal.NewNullDecimal(stop)
	}

	for _, line := range lines {
		if !containsAny(line, "прибыль", "Фиксируем") {
			continue
		}
		prices := numbers(line)
		if len(prices) == 0 {
			continue
		}
		if limitOnly {
			sig.TakeProfitLevels = []TakeProfitLevel{{Price: prices[0], Percentage: limitOrderShare}}
		} else {
			sig.TakeProfitLevels = evenSplit(prices)
		}
		break
	}
	if len(sig.TakeProfitLevels) == 0 {
		return nil, false
	}

	return sig, true
}

// keywordNumber returns the first number after keyword on the first line containing it.
func keywordNumber(lines []string, keyword string) (decimal.Decimal, bool) {
	for _, line := range lines {
		rest, ok := after(line, keyword)
		if !ok {
			continue
		}
		if n, ok := firstNumber(rest); ok {
			return n, true
		}
	}
	return decimal.Zero, false
}
