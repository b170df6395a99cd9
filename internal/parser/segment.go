package parser

import (
	"strings"

	"github.com/OAT7963/mae-pdf-processing/internal/models"
)

// segmenter walks the filtered lines and cuts them into drafts.
type segmenter struct {
	cfg     *FormatConfig
	current *Draft
	drafts  []*Draft
	debug   []models.DebugLine
}

// Segment partitions lines into drafts using the format's anchor grammar.
// Exactly one draft is produced per anchor occurrence; lines before the first
// anchor are discarded.
func Segment(lines []string, cfg *FormatConfig) ([]*Draft, []models.DebugLine) {
	s := &segmenter{cfg: cfg}
	switch cfg.Grammar {
	case GrammarPaired:
		s.runPaired(lines)
	default:
		s.runLeading(lines)
	}
	s.close()
	return s.drafts, s.debug
}

func (s *segmenter) open(d *Draft) {
	s.close()
	s.current = d
}

func (s *segmenter) close() {
	if s.current != nil {
		s.drafts = append(s.drafts, s.current)
		s.current = nil
	}
}

func (s *segmenter) note(i int, line string, hasDate bool, result string) {
	s.debug = append(s.debug, models.DebugLine{
		LineNum: i + 1,
		Text:    truncate(line, 120),
		HasDate: hasDate,
		Result:  result,
	})
}

func (s *segmenter) route(i int, line string) {
	if s.current == nil {
		s.note(i, line, false, resultSkipped)
		return
	}
	s.note(i, line, false, s.current.accept(line, s.cfg))
}

// runPaired implements the card grammar: a posting date token immediately
// followed by a transaction date token opens a draft. A lone date token ends
// the open draft and everything up to the next pair is ignored.
func (s *segmenter) runPaired(lines []string) {
	for i := 0; i < len(lines); i++ {
		first, ok := s.cfg.matchDate(lines[i])
		if !ok {
			s.route(i, lines[i])
			continue
		}
		if i+1 < len(lines) {
			if second, ok := s.cfg.matchDate(lines[i+1]); ok {
				d := newDraft(first, i+1)
				d.SecondToken = second
				s.open(d)
				s.note(i, lines[i], true, resultAnchor)
				s.note(i+1, lines[i+1], true, resultAnchor)
				i++
				continue
			}
		}
		s.close()
		s.note(i, lines[i], true, resultSkipped)
	}
}

// runLeading implements the account grammars: a line starting with a date
// opens a draft. Text following the date on the anchor line is the
// transaction type for the opening-balance grammar and is routed like any
// other line otherwise.
func (s *segmenter) runLeading(lines []string) {
	for i, line := range lines {
		if s.cfg.Grammar == GrammarLeadingOpening && s.isOpening(line) {
			d := newDraft("", i+1)
			d.Opening = true
			s.open(d)
			s.note(i, line, false, resultAnchor)
			continue
		}

		token, ok := s.cfg.matchDate(line)
		if !ok {
			s.route(i, line)
			continue
		}

		d := newDraft(token, i+1)
		s.open(d)
		s.note(i, line, true, resultAnchor)

		rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), token))
		if rest == "" {
			continue
		}
		if s.cfg.Grammar == GrammarLeadingOpening {
			d.TypeToken = rest
		} else {
			d.accept(rest, s.cfg)
		}
	}
}

func (s *segmenter) isOpening(line string) bool {
	return s.cfg.OpeningLabel != "" && strings.EqualFold(strings.TrimSpace(line), s.cfg.OpeningLabel)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
