package parser

import (
	"fmt"
	"strings"

	"github.com/OAT7963/mae-pdf-processing/internal/models"
)

// Parser reconstructs transactions for one statement format.
type Parser interface {
	// Parse takes the extracted document lines and returns structured statement data.
	Parse(lines []string, opts Options) (*models.StatementInfo, error)
	// FormatName returns the human-readable format name.
	FormatName() string
}

// Options carries the per-document inputs the engine may not derive from the
// lines themselves.
type Options struct {
	// SourceName is the document file name, searched for a _YYYYMMDD date.
	SourceName string
	// MetadataYear is the document creation year, the last year fallback.
	MetadataYear int
	// MaxReconcileIterations caps the reconciliation loop. Zero uses the default.
	MaxReconcileIterations int
	// Debug records how every line was classified.
	Debug bool
}

type formatParser struct {
	cfg *FormatConfig
}

func (p *formatParser) Parse(lines []string, opts Options) (*models.StatementInfo, error) {
	return Reconstruct(lines, p.cfg, opts)
}

func (p *formatParser) FormatName() string {
	return p.cfg.Name
}

// New returns the parser for the given format.
func (r *Registry) New(id models.FormatID) (Parser, error) {
	cfg, err := r.Lookup(id)
	if err != nil {
		return nil, err
	}
	return &formatParser{cfg: cfg}, nil
}

// AutoDetect identifies the format from the document text. Formats are tried
// in registry order and the first whose signatures all match wins.
func (r *Registry) AutoDetect(lines []string) (*FormatConfig, error) {
	text := strings.Join(lines, "\n")
	for _, cfg := range r.Formats() {
		if cfg.Detects(text) {
			return cfg, nil
		}
	}
	return nil, fmt.Errorf("%w; please specify --format", ErrFormatNotDetected)
}

// Reconstruct converts one document's lines into transactions:
// strip boilerplate, filter noise, segment into drafts, extract fields,
// reconcile balances when the format asks for it, then assemble records.
//
// A document without anchors yields an empty result, not an error. A format
// that needs a synthesized year fails with ErrMissingYear when transactions
// exist but no year source does.
func Reconstruct(lines []string, cfg *FormatConfig, opts Options) (*models.StatementInfo, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: no format given", ErrUnknownFormat)
	}

	info := &models.StatementInfo{
		Format:        cfg.ID,
		Schema:        cfg.Schema,
		Source:        opts.SourceName,
		AccountNumber: findAccountNumber(lines, cfg),
	}

	src, haveYear := resolveYear(lines, cfg, opts)
	if haveYear {
		info.Year = src.year
		info.StatementDate = src.date
	}

	cleaned := StripSections(lines, cfg.Markers)
	cleaned = FilterNoise(cleaned, cfg.Denylist)
	cleaned = Preprocess(cleaned, cfg)

	drafts, debug := Segment(cleaned, cfg)
	if opts.Debug {
		info.DebugLines = debug
	}

	if cfg.NeedsYear && !haveYear && hasDatedDraft(drafts) {
		return nil, fmt.Errorf("%s: %w", cfg.ID, ErrMissingYear)
	}

	for _, d := range drafts {
		f, ok, err := extract(d, cfg)
		if err != nil {
			info.Discarded++
			info.Warnings = append(info.Warnings, models.Warning{
				Message: fmt.Sprintf("line %d: %v", d.Line, err),
			})
			continue
		}
		if !ok {
			info.Discarded++
			continue
		}

		txn, err := assemble(d, f, cfg, src)
		if err != nil {
			info.Discarded++
			info.Warnings = append(info.Warnings, models.Warning{
				Message: fmt.Sprintf("line %d: %v", d.Line, err),
			})
			continue
		}
		txn.Source = opts.SourceName
		txn.Sequence = len(info.Transactions) + 1
		info.Transactions = append(info.Transactions, txn)
	}

	if cfg.Reconcile && len(info.Transactions) > 0 {
		info.Reconcile = Reconcile(info.Transactions, opts.MaxReconcileIterations)
		for _, seq := range info.Reconcile.Unresolved {
			info.Warnings = append(info.Warnings, models.Warning{
				Row:     seq,
				Message: "balance does not reconcile with amount; direction left as classified",
			})
		}
	}

	labelFlows(info.Transactions, cfg.Flow)
	return info, nil
}

func hasDatedDraft(drafts []*Draft) bool {
	for _, d := range drafts {
		if !d.Opening && d.hasAmount() {
			return true
		}
	}
	return false
}
