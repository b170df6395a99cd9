package parser

import "strings"

// DraftState is the position of an open draft in the segmentation state machine.
type DraftState int

const (
	StateNoOpenDraft DraftState = iota
	StateAccumulatingDescription
	StateAmountSeen
	StateBalanceSeen
)

func (s DraftState) String() string {
	switch s {
	case StateAccumulatingDescription:
		return "accumulating-description"
	case StateAmountSeen:
		return "amount-seen"
	case StateBalanceSeen:
		return "balance-seen"
	default:
		return "no-open-draft"
	}
}

// Line classification results, also reported in debug output.
const (
	resultAnchor      = "anchor"
	resultAmount      = "amount"
	resultBalance     = "balance"
	resultType        = "type"
	resultDescription = "description"
	resultSkipped     = "skipped"
	resultDropped     = "dropped"
)

// Draft accumulates the raw lines of one transaction between two anchors.
type Draft struct {
	EntryToken       string
	SecondToken      string // transaction date of a paired anchor
	TypeToken        string
	DescriptionLines []string
	AmountToken      *string
	BalanceToken     *string
	Opening          bool
	State            DraftState
	Line             int // 1-based line number of the anchor
}

func newDraft(token string, line int) *Draft {
	return &Draft{EntryToken: token, Line: line, State: StateAccumulatingDescription}
}

// accept routes one non-anchor line into the draft and returns how it was
// classified. The first amount candidate is the amount; the next one is the
// running balance when the format prints one.
func (d *Draft) accept(line string, cfg *FormatConfig) string {
	text := strings.TrimSpace(line)
	if text == "" {
		return resultSkipped
	}

	switch d.State {
	case StateAccumulatingDescription:
		if isAmount(text) {
			d.AmountToken = &text
			d.State = StateAmountSeen
			if d.Opening {
				d.BalanceToken = &text
				d.State = StateBalanceSeen
			}
			return resultAmount
		}
		if cfg.TypeLine && d.TypeToken == "" && len(d.DescriptionLines) == 0 {
			d.TypeToken = text
			return resultType
		}
		d.DescriptionLines = append(d.DescriptionLines, text)
		return resultDescription

	case StateAmountSeen:
		if cfg.HasBalance && isAmount(text) {
			d.BalanceToken = &text
			d.State = StateBalanceSeen
			return resultBalance
		}
		return d.trailing(text, cfg)

	case StateBalanceSeen:
		return d.trailing(text, cfg)
	}
	return resultDropped
}

func (d *Draft) trailing(text string, cfg *FormatConfig) string {
	if !cfg.TrailingDescription {
		return resultDropped
	}
	d.DescriptionLines = append(d.DescriptionLines, text)
	return resultDescription
}

// hasAmount reports whether the draft resolved an amount.
func (d *Draft) hasAmount() bool {
	return d.AmountToken != nil
}
