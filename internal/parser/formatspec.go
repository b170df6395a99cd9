package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/OAT7963/mae-pdf-processing/internal/models"
)

// FormatSpec is the declarative form of a FormatConfig, as written in a
// format definition file.
type FormatSpec struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Grammar     string `yaml:"grammar" json:"grammar"`
	DatePattern string `yaml:"date_pattern" json:"datePattern"`
	DateLayout  string `yaml:"date_layout" json:"dateLayout"`

	Markers         []SectionMarker   `yaml:"markers" json:"markers,omitempty"`
	Denylist        []string          `yaml:"denylist" json:"denylist,omitempty"`
	Rewrites        map[string]string `yaml:"rewrites" json:"rewrites,omitempty"`
	DropPureNumbers bool              `yaml:"drop_pure_numbers" json:"dropPureNumbers,omitempty"`
	AnchorCooldown  int               `yaml:"anchor_cooldown" json:"anchorCooldown,omitempty"`
	OpeningLabel    string            `yaml:"opening_label" json:"openingLabel,omitempty"`

	Overrides        map[string]string `yaml:"overrides" json:"overrides,omitempty"`
	InflowKeywords   []string          `yaml:"inflow_keywords" json:"inflowKeywords,omitempty"`
	OutflowKeywords  []string          `yaml:"outflow_keywords" json:"outflowKeywords,omitempty"`
	DefaultDirection string            `yaml:"default_direction" json:"defaultDirection,omitempty"`

	TypeLine            bool   `yaml:"type_line" json:"typeLine,omitempty"`
	HasBalance          bool   `yaml:"has_balance" json:"hasBalance,omitempty"`
	TrailingDescription bool   `yaml:"trailing_description" json:"trailingDescription,omitempty"`
	Separator           string `yaml:"separator" json:"separator,omitempty"`

	NeedsYear          bool   `yaml:"needs_year" json:"needsYear,omitempty"`
	FilenameDate       string `yaml:"filename_date" json:"filenameDate,omitempty"`
	StatementDateLabel string `yaml:"statement_date_label" json:"statementDateLabel,omitempty"`
	AccountPattern     string `yaml:"account_pattern" json:"accountPattern,omitempty"`

	Signatures []string   `yaml:"signatures" json:"signatures"`
	Flow       FlowLabels `yaml:"flow" json:"flow"`
	Schema     string     `yaml:"schema" json:"schema"`
	Reconcile  bool       `yaml:"reconcile" json:"reconcile,omitempty"`
}

// Compile validates the spec and builds the FormatConfig the engine runs on.
func (s FormatSpec) Compile() (*FormatConfig, error) {
	id := strings.ToLower(strings.TrimSpace(s.ID))
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidFormatSpec)
	}
	if s.DatePattern == "" || s.DateLayout == "" {
		return nil, fmt.Errorf("%w: %s: date_pattern and date_layout are required", ErrInvalidFormatSpec, id)
	}

	grammar, err := ParseGrammar(s.Grammar)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}

	dir, err := parseDirection(s.DefaultDirection)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}

	cfg := &FormatConfig{
		ID:                  models.FormatID(id),
		Name:                s.Name,
		Grammar:             grammar,
		DateLayout:          s.DateLayout,
		Markers:             s.Markers,
		Denylist:            s.Denylist,
		Rewrites:            s.Rewrites,
		DropPureNumbers:     s.DropPureNumbers,
		AnchorCooldown:      s.AnchorCooldown,
		OpeningLabel:        s.OpeningLabel,
		Overrides:           s.Overrides,
		InflowKeywords:      s.InflowKeywords,
		OutflowKeywords:     s.OutflowKeywords,
		DefaultDirection:    dir,
		TypeLine:            s.TypeLine,
		HasBalance:          s.HasBalance,
		TrailingDescription: s.TrailingDescription,
		Separator:           s.Separator,
		NeedsYear:           s.NeedsYear,
		Flow:                s.Flow,
		Schema:              models.ParseSchema(s.Schema),
		Reconcile:           s.Reconcile,
	}
	if cfg.Name == "" {
		cfg.Name = id
	}
	if cfg.Separator == "" {
		cfg.Separator = ", "
	}
	if cfg.Flow == (FlowLabels{}) {
		cfg.Flow = FlowLabels{Inflow: "inflow", Outflow: "outflow", Unknown: "unknown"}
	}
	if grammar == GrammarLeadingOpening && cfg.OpeningLabel == "" {
		cfg.OpeningLabel = "OPENING BALANCE"
	}

	patterns := []struct {
		field string
		src   string
		dst   **regexp.Regexp
	}{
		{"date_pattern", s.DatePattern, &cfg.DatePattern},
		{"filename_date", s.FilenameDate, &cfg.FilenameDate},
		{"statement_date_label", s.StatementDateLabel, &cfg.StatementDateLabel},
		{"account_pattern", s.AccountPattern, &cfg.AccountPattern},
	}
	for _, p := range patterns {
		if p.src == "" {
			continue
		}
		re, err := regexp.Compile(p.src)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %s: %v", ErrInvalidFormatSpec, id, p.field, err)
		}
		*p.dst = re
	}
	if cfg.NeedsYear && cfg.FilenameDate == nil {
		cfg.FilenameDate = filenameDatePattern
	}

	for _, sig := range s.Signatures {
		re, err := regexp.Compile(sig)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: signature %q: %v", ErrInvalidFormatSpec, id, sig, err)
		}
		cfg.Signatures = append(cfg.Signatures, re)
	}

	return cfg, nil
}

func parseDirection(s string) (models.Direction, error) {
	switch models.Direction(strings.ToLower(strings.TrimSpace(s))) {
	case "", models.DirectionUnknown:
		return models.DirectionUnknown, nil
	case models.DirectionInflow, "credit":
		return models.DirectionInflow, nil
	case models.DirectionOutflow, "debit":
		return models.DirectionOutflow, nil
	}
	return "", fmt.Errorf("%w: unknown direction %q", ErrInvalidFormatSpec, s)
}
