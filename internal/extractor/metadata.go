package extractor

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Metadata is what the PDF info dictionary tells us about a statement.
type Metadata struct {
	PageCount   int
	CreatedYear int
}

// pdfDateYear reads the year of a PDF date string such as D:20240131093000+08'00'.
var pdfDateYear = regexp.MustCompile(`^(?:D:)?(\d{4})`)

// ReadMetadata reads page count and creation year with pdfcpu.
func ReadMetadata(path string) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}, err
	}
	defer f.Close()

	ctx, err := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if err != nil {
		return Metadata{}, fmt.Errorf("pdfcpu read: %w", err)
	}

	return Metadata{
		PageCount:   ctx.PageCount,
		CreatedYear: parsePDFYear(ctx.CreationDate),
	}, nil
}

func parsePDFYear(s string) int {
	m := pdfDateYear.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	year, err := strconv.Atoi(m[1])
	if err != nil || year < 1970 {
		return 0
	}
	return year
}
