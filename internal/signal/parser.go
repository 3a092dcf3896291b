package signal

import (
	"go.uber.org/zap"
)

type grammar struct {
	name  string
	parse func(text string) (*Signal, bool)
}

// Parser tries every known message format in a fixed order; the first
// grammar that yields a valid Signal wins.
type Parser struct {
	log      *zap.Logger
	grammars []grammar
}

func NewParser(log *zap.Logger) *Parser {
	return &Parser{
		log: log.Named("SignalParser"),
		grammars: []grammar{
			{name: "profit", parse: parseProfit},
			{name: "localized", parse: parseLocalized},
			{name: "ladder", parse: parseLadder},
			{name: "standard", parse: parseStandard},
		},
	}
}

// Parse never fails: an unrecognized message returns (nil, false).
func (p *Parser) Parse(text string) (*Signal, bool) {
	cleaned := clean(text)

	for _, g := range p.grammars {
		sig, ok := p.try(g, cleaned)
		if !ok {
			continue
		}
		if err := sig.Validate(); err != nil {
			p.log.Warn("grammar produced an invalid signal", zap.String("grammar", g.name), zap.Error(err))
			continue
		}

		sig.Grammar = g.name
		sig.OriginalMessage = text
		p.log.Info("signal parsed",
			zap.String("grammar", g.name),
			zap.String("symbol", sig.Symbol),
			zap.String("position", string(sig.Position)),
			zap.Int("leverage", sig.Leverage),
			zap.Bool("profit_update", sig.IsProfitMessage))
		return sig, true
	}

	p.log.Info("message does not match any signal format", zap.Int("length", len(text)))
	return nil, false
}

// try isolates a grammar so a panic in one format never blocks the next.
func (p *Parser) try(g grammar, text string) (sig *Signal, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("grammar panicked", zap.String("grammar", g.name), zap.Any("panic", r))
			sig, ok = nil, false
		}
	}()
	return g.parse(text)
}
