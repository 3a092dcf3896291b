package signal

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	starsRe  = regexp.MustCompile(`\*+`)
	markupRe = regexp.MustCompile(`__|\||~~`)
	pairRe   = regexp.MustCompile(`([A-Z0-9]+)/([A-Z0-9]+)`)

	// Standalone number: digits glued to letters ("TP1") are skipped.
	numberRe = regexp.MustCompile(`(?:^|[^\p{L}0-9_.])(\d+(?:\.\d+)?)`)
)

// clean strips markdown noise (bold, underline, table and strike markers).
func clean(text string) string {
	out := starsRe.ReplaceAllString(text, "")
	return markupRe.ReplaceAllString(out, "")
}

// splitLines returns trimmed non-empty lines.
func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// ExchangeSymbol keeps letters and digits only: "BTC/USDT" -> "BTCUSDT".
func ExchangeSymbol(symbol string) string {
	var b strings.Builder
	for _, r := range symbol {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// displayPair normalizes a token such as "#btc/usdt," to "BTC/USDT".
func displayPair(token string) (string, bool) {
	parts := strings.SplitN(token, "/", 2)
	if len(parts) != 2 {
		return "", false
	}
	base, quote := ExchangeSymbol(parts[0]), ExchangeSymbol(parts[1])
	if base == "" || quote == "" {
		return "", false
	}
	return base + "/" + quote, true
}

func numbers(s string) []decimal.Decimal {
	matches := numberRe.FindAllStringSubmatch(s, -1)
	out := make([]decimal.Decimal, 0, len(matches))
	for _, m := range matches {
		d, err := decimal.NewFromString(m[1])
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	return out
}

func firstNumber(s string) (decimal.Decimal, bool) {
	nums := numbers(s)
	if len(nums) == 0 {
		return decimal.Zero, false
	}
	return nums[0], true
}

// after returns the part of line following the first occurrence of any keyword.
func after(line string, keywords ...string) (string, bool) {
	for _, kw := range keywords {
		if idx := strings.Index(line, kw); idx >= 0 {
			return line[idx+len(kw):], true
		}
	}
	return "", false
}

func containsAny(line string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(line, kw) {
			return true
		}
	}
	return false
}

// evenSplit assigns every price an equal share of 100%.
func evenSplit(prices []decimal.Decimal) []TakeProfitLevel {
	if len(prices) == 0 {
		return nil
	}
	share := decimal.NewFromInt(100).Div(decimal.NewFromInt(int64(len(prices))))
	levels := make([]TakeProfitLevel, len(prices))
	for i, p := range prices {
		levels[i] = TakeProfitLevel{Price: p, Percentage: share}
	}
	return levels
}
