package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/OAT7963/mae-pdf-processing/internal/models"
	"github.com/shopspring/decimal"
)

// amountPattern matches a whole line holding one monetary amount: optional
// leading minus, optional thousands separators, exactly two decimals and an
// optional trailing direction marker (+, -, CR or DR in any case).
var amountPattern = regexp.MustCompile(`^(-)?\s*(?:RM\s?)?((?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2})\s*([+-]|(?i:cr|dr))?$`)

// isAmount reports whether a line is an amount candidate.
func isAmount(line string) bool {
	return amountPattern.MatchString(strings.TrimSpace(line))
}

// ParseAmount normalizes an amount token into a non-negative magnitude and the
// direction its sign marker implies. "1,234.56CR" is 1234.56 inflow,
// "1,234.56-" is 1234.56 outflow and an unmarked value has unknown direction.
func ParseAmount(token string) (decimal.Decimal, models.Direction, error) {
	m := amountPattern.FindStringSubmatch(strings.TrimSpace(token))
	if m == nil {
		return decimal.Zero, models.DirectionUnknown, fmt.Errorf("not an amount: %q", token)
	}

	value, err := decimal.NewFromString(strings.ReplaceAll(m[2], ",", ""))
	if err != nil {
		return decimal.Zero, models.DirectionUnknown, fmt.Errorf("parse amount %q: %w", token, err)
	}

	dir := models.DirectionUnknown
	switch strings.ToUpper(m[3]) {
	case "CR", "+":
		dir = models.DirectionInflow
	case "-", "DR":
		dir = models.DirectionOutflow
	}
	if m[1] == "-" && dir == models.DirectionUnknown {
		dir = models.DirectionOutflow
	}

	return value.Abs(), dir, nil
}

// parseBalance reads a running balance. An outflow marker on a balance
// (trailing DR or minus) means the account is overdrawn.
func parseBalance(token string) (decimal.Decimal, error) {
	value, dir, err := ParseAmount(token)
	if err != nil {
		return decimal.Zero, err
	}
	if dir == models.DirectionOutflow {
		value = value.Neg()
	}
	return value, nil
}
