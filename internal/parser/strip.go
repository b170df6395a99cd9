package parser

import "strings"

// SectionMarker delimits a boilerplate span. Lines from one containing Start
// up to and including the next one containing End are removed. An empty End
// removes everything from Start to the end of the document.
type SectionMarker struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end,omitempty" json:"end,omitempty"`
}

// StripSections applies each marker in order, every pass consuming the output
// of the previous one. The input slice is not modified.
func StripSections(lines []string, markers []SectionMarker) []string {
	out := lines
	for _, m := range markers {
		out = stripSection(out, m)
	}
	if len(markers) == 0 {
		out = append([]string(nil), lines...)
	}
	return out
}

func stripSection(lines []string, m SectionMarker) []string {
	kept := make([]string, 0, len(lines))
	skipping := false
	for _, line := range lines {
		if m.Start != "" && strings.Contains(line, m.Start) {
			skipping = true
			continue
		}
		if skipping && m.End != "" && strings.Contains(line, m.End) {
			skipping = false
			continue
		}
		if !skipping {
			kept = append(kept, line)
		}
	}
	return kept
}
