package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/OAT7963/mae-pdf-processing/internal/models"
)

// Grammar selects how transaction anchors are recognised.
type Grammar int

const (
	// GrammarPaired opens a transaction on two consecutive DD/MM tokens
	// (posting date followed by transaction date). Used by card statements.
	GrammarPaired Grammar = iota + 1
	// GrammarLeading opens a transaction on a line starting with a date.
	GrammarLeading
	// GrammarLeadingOpening is GrammarLeading plus a synthetic undated
	// opening balance row.
	GrammarLeadingOpening
)

func (g Grammar) String() string {
	switch g {
	case GrammarPaired:
		return "paired"
	case GrammarLeading:
		return "leading"
	case GrammarLeadingOpening:
		return "leading-opening"
	default:
		return "unknown"
	}
}

// ParseGrammar accepts the grammar name or its letter (A, B, C).
func ParseGrammar(s string) (Grammar, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paired", "a":
		return GrammarPaired, nil
	case "leading", "b":
		return GrammarLeading, nil
	case "leading-opening", "opening", "c":
		return GrammarLeadingOpening, nil
	}
	return 0, fmt.Errorf("%w: unknown grammar %q", ErrInvalidFormatSpec, s)
}

// FlowLabels are the human-readable names written for each direction.
type FlowLabels struct {
	Inflow  string `yaml:"inflow" json:"inflow"`
	Outflow string `yaml:"outflow" json:"outflow"`
	Unknown string `yaml:"unknown" json:"unknown"`
}

// For returns the label for a direction.
func (l FlowLabels) For(d models.Direction) string {
	switch d {
	case models.DirectionInflow:
		return l.Inflow
	case models.DirectionOutflow:
		return l.Outflow
	default:
		return l.Unknown
	}
}

// FormatConfig is everything the engine needs to know about one statement
// format. One generic segmentation and extraction pass is driven by it.
type FormatConfig struct {
	ID      models.FormatID
	Name    string
	Grammar Grammar

	// DatePattern must match at the start of an anchor line; its first
	// submatch is the date token, parsed with DateLayout.
	DatePattern *regexp.Regexp
	DateLayout  string

	Markers         []SectionMarker
	Denylist        []string
	Rewrites        map[string]string
	DropPureNumbers bool
	AnchorCooldown  int
	OpeningLabel    string

	// Overrides replace the description when the transaction type (or the
	// first description line) equals a key.
	Overrides        map[string]string
	InflowKeywords   []string
	OutflowKeywords  []string
	DefaultDirection models.Direction

	TypeLine            bool // first pre-amount line is the transaction type
	HasBalance          bool // an amount candidate after the amount is the balance
	TrailingDescription bool // lines after amount/balance extend the description
	Separator           string

	// NeedsYear is set when date tokens carry no year.
	NeedsYear          bool
	FilenameDate       *regexp.Regexp
	StatementDateLabel *regexp.Regexp
	AccountPattern     *regexp.Regexp

	Signatures []*regexp.Regexp
	Flow       FlowLabels
	Schema     models.Schema
	Reconcile  bool
}

// matchDate returns the date token when the line is an anchor for this format.
func (c *FormatConfig) matchDate(line string) (string, bool) {
	m := c.DatePattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	if len(m) > 1 {
		return m[1], true
	}
	return m[0], true
}

// Detects reports whether every signature matches the document text.
func (c *FormatConfig) Detects(text string) bool {
	if len(c.Signatures) == 0 {
		return false
	}
	for _, sig := range c.Signatures {
		if !sig.MatchString(text) {
			return false
		}
	}
	return true
}

// maybankDenylist holds the bilingual column labels repeated on every page.
var maybankDenylist = []string{
	"URUSNIAGA AKAUN/ 戶口進支項 /ACCOUNT TRANSACTIONS",
	"TARIKH MASUK",
	"BUTIR URUSNIAGA",
	"JUMLAH URUSNIAGA",
	"BAKI PENYATA",
	"進支日期",
	"進支項說明",
	"银碼",
	"結單存餘",
}

var maybankMarkers = []SectionMarker{
	{Start: "Maybank Islamic Berhad", End: "Please notify us of any change of address in writing."},
	{Start: "15th Floor, Tower A, Dataran Maybank, 1, Jalan Maarof, 59000 Kuala Lumpur", End: "請通知本行在何地址更换。"},
	{Start: "ENTRY DATE", End: "STATEMENT BALANCE"},
	{Start: "ENDING BALANCE :", End: "TOTAL DEBIT :"},
}

var maybankOverrides = map[string]string{
	"CASH WITHDRAWAL": "CASH WITHDRAWAL",
	"DEBIT ADVICE":    "Card Annual Fee",
	"PROFIT PAID":     "PROFIT PAID",
}

var (
	filenameDatePattern   = regexp.MustCompile(`_(\d{4})(\d{2})(\d{2})`)
	maybankStatementLabel = regexp.MustCompile(`(?i)TARIKH PENYATA|STATEMENT DATE`)
	maybankAccountPattern = regexp.MustCompile(`\b(\d{12})\b`)
)

func maybankCASA() *FormatConfig {
	return &FormatConfig{
		ID:                  models.FormatMaybankCASA,
		Name:                "Maybank Debit Card Statement",
		Grammar:             GrammarLeading,
		DatePattern:         regexp.MustCompile(`^(\d{2}/\d{2}/\d{2})\b`),
		DateLayout:          "02/01/06",
		Markers:             maybankMarkers,
		Denylist:            maybankDenylist,
		Overrides:           maybankOverrides,
		InflowKeywords:      []string{"PROFIT PAID", "CASH DEPOSIT", "TRANSFER FR A/C", "FUND TRANSFER FR"},
		OutflowKeywords:     []string{"CASH WITHDRAWAL", "DEBIT ADVICE", "TRANSFER TO A/C", "PAYMENT VIA"},
		DefaultDirection:    models.DirectionUnknown,
		TypeLine:            true,
		HasBalance:          true,
		TrailingDescription: true,
		Separator:           ", ",
		StatementDateLabel:  maybankStatementLabel,
		AccountPattern:      maybankAccountPattern,
		Signatures:          []*regexp.Regexp{regexp.MustCompile(`(?i)maybank`)},
		Flow:                FlowLabels{Inflow: "Deposit", Outflow: "Withdrawal", Unknown: "unknown"},
		Schema:              models.SchemaCurrentAccount,
	}
}

func maybankMAE() *FormatConfig {
	cfg := maybankCASA()
	cfg.ID = models.FormatMaybankMAE
	cfg.Name = "Maybank MAE Statement"
	cfg.DatePattern = regexp.MustCompile(`^(\d{2}/\d{2})\b`)
	cfg.DateLayout = "02/01"
	cfg.Markers = append(append([]SectionMarker(nil), maybankMarkers...),
		SectionMarker{Start: "TARIKH PENYATA", End: "TARIKH NILAI"},
		SectionMarker{Start: "TOTAL CREDIT :"},
	)
	cfg.NeedsYear = true
	cfg.FilenameDate = filenameDatePattern
	cfg.Signatures = []*regexp.Regexp{regexp.MustCompile(`(?i)maybank`), regexp.MustCompile(`\bMAE\b`)}
	return cfg
}

func maybankCC() *FormatConfig {
	return &FormatConfig{
		ID:                 models.FormatMaybankCC,
		Name:               "Maybank Credit Card Statement",
		Grammar:            GrammarPaired,
		DatePattern:        regexp.MustCompile(`^(\d{2}/\d{2})$`),
		DateLayout:         "02/01",
		Denylist:           maybankDenylist,
		DefaultDirection:   models.DirectionOutflow,
		Separator:          ", ",
		NeedsYear:          true,
		FilenameDate:       filenameDatePattern,
		StatementDateLabel: maybankStatementLabel,
		Signatures: []*regexp.Regexp{
			regexp.MustCompile(`(?i)maybank`),
			regexp.MustCompile(`(?i)credit card|kad kredit`),
		},
		Flow:   FlowLabels{Inflow: "Credit", Outflow: "Debit", Unknown: "unknown"},
		Schema: models.SchemaCreditCard,
	}
}

func cimbDebit() *FormatConfig {
	return &FormatConfig{
		ID:              models.FormatCIMBDebit,
		Name:            "CIMB Debit Statement",
		Grammar:         GrammarLeadingOpening,
		DatePattern:     regexp.MustCompile(`^(\d{2}/\d{2}/\d{4})\b`),
		DateLayout:      "02/01/2006",
		Markers:         []SectionMarker{{Start: "Page / Halaman", End: "ISLAMIC BBB-PPPP"}},
		Denylist:        maybankDenylist,
		Rewrites:        map[string]string{"99 SPEEDMART-2133": "ninetynine speed mart"},
		DropPureNumbers: true,
		AnchorCooldown:  3,
		OpeningLabel:    "OPENING BALANCE",
		InflowKeywords: []string{
			"DUITNOW CREDIT", "TRANSFER FROM", "RECEIVED", "DEPOSIT",
			"REFUND", "INTEREST", "PROFIT", "SALARY",
		},
		DefaultDirection: models.DirectionOutflow,
		HasBalance:       true,
		Separator:        ", ",
		Signatures:       []*regexp.Regexp{regexp.MustCompile(`(?i)\bCIMB\b`)},
		Flow:             FlowLabels{Inflow: "deposit", Outflow: "withdrawal", Unknown: "unknown"},
		Schema:           models.SchemaTransfer,
		Reconcile:        true,
	}
}

// Registry maps format identifiers to their configuration. Detection walks
// formats in registration order, so more specific formats register first.
type Registry struct {
	formats map[models.FormatID]*FormatConfig
	order   []models.FormatID
}

// NewRegistry returns a registry holding the built-in formats.
func NewRegistry() *Registry {
	r := &Registry{formats: make(map[models.FormatID]*FormatConfig)}
	for _, cfg := range []*FormatConfig{cimbDebit(), maybankCC(), maybankMAE(), maybankCASA()} {
		r.formats[cfg.ID] = cfg
		r.order = append(r.order, cfg.ID)
	}
	return r
}

// Register adds or replaces a format. A new format is tried before the
// existing ones during detection so user definitions win over built-ins.
func (r *Registry) Register(cfg *FormatConfig) {
	if _, exists := r.formats[cfg.ID]; !exists {
		r.order = append([]models.FormatID{cfg.ID}, r.order...)
	}
	r.formats[cfg.ID] = cfg
}

// Lookup returns the format registered under id.
func (r *Registry) Lookup(id models.FormatID) (*FormatConfig, error) {
	cfg, ok := r.formats[models.FormatID(strings.ToLower(string(id)))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, id)
	}
	return cfg, nil
}

// Formats lists formats in detection order.
func (r *Registry) Formats() []*FormatConfig {
	out := make([]*FormatConfig, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.formats[id])
	}
	return out
}
