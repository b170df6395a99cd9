package parser

import (
	"fmt"
	"strings"

	"github.com/OAT7963/mae-pdf-processing/internal/models"
	"github.com/shopspring/decimal"
)

// fields are the values extracted from one closed draft.
type fields struct {
	amount      decimal.Decimal
	direction   models.Direction
	balance     decimal.NullDecimal
	typ         string
	description string
	beneficiary string
}

// extract normalizes a draft's raw tokens. Drafts without an amount return
// ok=false and must be discarded.
func extract(d *Draft, cfg *FormatConfig) (fields, bool, error) {
	if !d.hasAmount() {
		return fields{}, false, nil
	}

	amount, dir, err := ParseAmount(*d.AmountToken)
	if err != nil {
		return fields{}, false, err
	}

	f := fields{
		amount:    amount,
		direction: dir,
		typ:       d.TypeToken,
	}

	if d.BalanceToken != nil {
		bal, err := parseBalance(*d.BalanceToken)
		if err != nil {
			return fields{}, false, fmt.Errorf("balance on line %d: %w", d.Line, err)
		}
		f.balance = decimal.NewNullDecimal(bal)
	}

	f.description = joinDescription(d.DescriptionLines, cfg.Separator)
	if cfg.Grammar == GrammarLeadingOpening && len(d.DescriptionLines) > 0 {
		f.beneficiary = d.DescriptionLines[0]
	}
	if label, ok := overrideFor(d, cfg); ok {
		f.description = label
	}

	if d.Opening {
		f.description = "Opening Balance"
		f.direction = models.DirectionUnknown
		return f, true, nil
	}

	if f.direction == models.DirectionUnknown {
		f.direction = classifyByKeywords(f.typ+" "+f.description, cfg)
	}
	return f, true, nil
}

// joinDescription joins description lines and trims trailing separators.
func joinDescription(lines []string, sep string) string {
	if sep == "" {
		sep = " "
	}
	joined := strings.Join(lines, sep)
	for {
		switch {
		case strings.HasSuffix(joined, sep):
			joined = strings.TrimSuffix(joined, sep)
		case strings.HasSuffix(joined, " "):
			joined = strings.TrimRight(joined, " ")
		default:
			return joined
		}
	}
}

// overrideFor looks the transaction type (or the first description line when
// the format prints no type) up in the canonical description table.
func overrideFor(d *Draft, cfg *FormatConfig) (string, bool) {
	if len(cfg.Overrides) == 0 {
		return "", false
	}
	key := d.TypeToken
	if key == "" && len(d.DescriptionLines) > 0 {
		key = d.DescriptionLines[0]
	}
	label, ok := cfg.Overrides[strings.TrimSpace(key)]
	return label, ok
}

// classifyByKeywords resolves an unmarked amount from the transaction text.
// Outflow keywords are checked first; without a match the format default
// applies.
func classifyByKeywords(text string, cfg *FormatConfig) models.Direction {
	upper := strings.ToUpper(text)
	for _, kw := range cfg.OutflowKeywords {
		if strings.Contains(upper, strings.ToUpper(kw)) {
			return models.DirectionOutflow
		}
	}
	for _, kw := range cfg.InflowKeywords {
		if strings.Contains(upper, strings.ToUpper(kw)) {
			return models.DirectionInflow
		}
	}
	if cfg.DefaultDirection == "" {
		return models.DirectionUnknown
	}
	return cfg.DefaultDirection
}
