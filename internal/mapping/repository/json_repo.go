package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// Entry is one row of the symbol mapping file. The file accepts both the
// legacy bare-string form and the {symbol, rate} record:
//
//	{"PEPEUSDT": "1000PEPEUSDT", "SHIBUSDT": {"symbol": "1000SHIBUSDT", "rate": 1000}}
type Entry struct {
	Symbol string          `json:"symbol"`
	Rate   decimal.Decimal `json:"rate"`
}

func (e *Entry) UnmarshalJSON(b []byte) error {
	var legacy string
	if err := json.Unmarshal(b, &legacy); err == nil {
		e.Symbol = strings.TrimSpace(legacy)
		e.Rate = decimal.NewFromInt(1)
		return e.validate()
	}

	var rec struct {
		Symbol string           `json:"symbol"`
		Rate   *decimal.Decimal `json:"rate"`
	}
	if err := json.Unmarshal(b, &rec); err != nil {
		return fmt.Errorf("mapping entry must be a string or {symbol, rate}: %w", err)
	}
	e.Symbol = strings.TrimSpace(rec.Symbol)
	e.Rate = decimal.NewFromInt(1)
	if rec.Rate != nil {
		e.Rate = *rec.Rate
	}
	return e.validate()
}

func (e *Entry) validate() error {
	if e.Symbol == "" {
		return errors.New("mapping entry has empty symbol")
	}
	if !e.Rate.IsPositive() {
		return fmt.Errorf("mapping entry %s has non-positive rate %s", e.Symbol, e.Rate)
	}
	return nil
}

// JSONRepository reads the externally edited mapping file.
type JSONRepository struct {
	Path string
}

func NewJSONRepository(path string) *JSONRepository {
	return &JSONRepository{Path: path}
}

// Load returns the mapping table. A missing file is an empty table.
func (r *JSONRepository) Load() (map[string]Entry, error) {
	data, err := os.ReadFile(r.Path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file %s: %w", r.Path, err)
	}

	table := make(map[string]Entry)
	if len(strings.TrimSpace(string(data))) == 0 {
		return table, nil
	}
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to decode mapping file %s: %w", r.Path, err)
	}
	return table, nil
}

// Exists reports whether the mapping file is present on disk.
func (r *JSONRepository) Exists() bool {
	_, err := os.Stat(r.Path)
	return err == nil
}
