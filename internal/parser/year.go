package parser

import (
	"regexp"
	"strconv"
	"time"
)

// statementDatePattern finds a DD/MM/YY or DD/MM/YYYY date near a statement
// date label.
var statementDatePattern = regexp.MustCompile(`\b(\d{2})/(\d{2})/(\d{4}|\d{2})\b`)

// statementDateLookahead is how many lines after the label are searched when
// the date is printed on its own line.
const statementDateLookahead = 3

// yearSource records where the statement year came from.
type yearSource struct {
	year   int
	month  time.Month // zero when only the year is known
	date   *time.Time
	origin string
}

// resolveYear applies the fallbacks in order: file name, statement date line,
// then document metadata. raw must be the unstripped document lines since the
// statement date header is usually inside a stripped section.
func resolveYear(raw []string, cfg *FormatConfig, opts Options) (yearSource, bool) {
	if src, ok := yearFromFilename(opts.SourceName, cfg); ok {
		return src, true
	}
	if d, ok := findStatementDate(raw, cfg); ok {
		return yearSource{year: d.Year(), month: d.Month(), date: &d, origin: "statement date"}, true
	}
	if opts.MetadataYear > 0 {
		return yearSource{year: opts.MetadataYear, origin: "document metadata"}, true
	}
	return yearSource{}, false
}

func yearFromFilename(name string, cfg *FormatConfig) (yearSource, bool) {
	if name == "" || cfg.FilenameDate == nil {
		return yearSource{}, false
	}
	m := cfg.FilenameDate.FindStringSubmatch(name)
	if m == nil {
		return yearSource{}, false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil || year == 0 {
		return yearSource{}, false
	}
	src := yearSource{year: year, origin: "file name"}
	if len(m) > 3 {
		if d, err := time.Parse("20060102", m[1]+m[2]+m[3]); err == nil {
			src.month = d.Month()
			src.date = &d
		}
	}
	return src, true
}

// findStatementDate looks for the statement date label and returns the first
// date printed on the same line or within the following lines.
func findStatementDate(raw []string, cfg *FormatConfig) (time.Time, bool) {
	if cfg.StatementDateLabel == nil {
		return time.Time{}, false
	}
	for i, line := range raw {
		if !cfg.StatementDateLabel.MatchString(line) {
			continue
		}
		for j := i; j < len(raw) && j <= i+statementDateLookahead; j++ {
			if d, ok := parseStatementDate(raw[j]); ok {
				return d, true
			}
		}
	}
	return time.Time{}, false
}

func parseStatementDate(line string) (time.Time, bool) {
	m := statementDatePattern.FindStringSubmatch(line)
	if m == nil {
		return time.Time{}, false
	}
	layout := "02/01/2006"
	if len(m[3]) == 2 {
		layout = "02/01/06"
	}
	d, err := time.Parse(layout, m[0])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// rollYear places a year-less date in the statement period. A row month later
// than the reference month belongs to the previous year (December rows on a
// January statement).
func rollYear(month time.Month, src yearSource) int {
	if src.month != 0 && month > src.month {
		return src.year - 1
	}
	return src.year
}
