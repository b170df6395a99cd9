package parser

import (
	"strings"
	"unicode"
)

// FilterNoise drops every line containing any of the denylisted substrings.
func FilterNoise(lines []string, denylist []string) []string {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if containsAnySubstring(line, denylist) {
			continue
		}
		kept = append(kept, line)
	}
	return kept
}

func containsAnySubstring(line string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(line, n) {
			return true
		}
	}
	return false
}

// Preprocess runs the format's line-level clean-ups after noise filtering:
// duplicate date suppression, reference number removal and exact rewrites.
func Preprocess(lines []string, cfg *FormatConfig) []string {
	if cfg.AnchorCooldown > 0 {
		lines = suppressCloseDates(lines, cfg)
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if cfg.DropPureNumbers && isPureNumber(line) {
			continue
		}
		if r, ok := cfg.Rewrites[strings.TrimSpace(line)]; ok {
			line = r
		}
		out = append(out, line)
	}
	return out
}

// suppressCloseDates drops date lines that follow an accepted date anchor
// within cfg.AnchorCooldown lines, while no amount has been seen since the
// anchor. Value-date columns print a second date right after the entry date;
// once an amount appears the next date belongs to a new transaction.
func suppressCloseDates(lines []string, cfg *FormatConfig) []string {
	out := make([]string, 0, len(lines))
	cooldown := 0
	for _, line := range lines {
		isDate := cfg.DatePattern.MatchString(strings.TrimSpace(line))
		switch {
		case isDate && cooldown == 0:
			out = append(out, line)
			cooldown = cfg.AnchorCooldown
		case isDate:
			cooldown--
		default:
			out = append(out, line)
			switch {
			case isAmount(line):
				cooldown = 0
			case cooldown > 0:
				cooldown--
			}
		}
	}
	return out
}

func isPureNumber(s string) bool {
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
