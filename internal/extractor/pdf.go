package extractor

import (
	"context"
	"fmt"
	"io"
	"math"
	"os/exec"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// columnGap is the horizontal distance, in points, that separates two
// columns of a statement row. Each column cell becomes its own line, which
// is the shape the reconstruction engine segments on.
const columnGap = 15.0

// extractPDF tries the structured PDF library first and falls back to the
// external pdftotext command (poppler-utils). Garbage text is never returned.
func (e *Extractor) extractPDF(ctx context.Context, filePath string) ([]string, string, error) {
	pages, method, libErr := extractWithLibrary(filePath)
	if libErr == nil && isReadableText(pages) {
		return pages, method, nil
	}

	if !e.DisablePdftotext {
		popplerPages, popplerErr := extractWithPdftotext(ctx, filePath)
		if popplerErr == nil && isReadableText(popplerPages) {
			return popplerPages, "pdftotext", nil
		}
	}

	if libErr != nil {
		return nil, "", fmt.Errorf("pdf library: %v; the file may be image-based or use fonts that cannot be decoded", libErr)
	}
	return nil, "", fmt.Errorf("no readable text could be extracted; the file may be image-based or scanned")
}

// textQuality returns the ratio of readable characters to total characters.
// Bilingual statements carry CJK column labels, so CJK ideographs count as
// readable alongside ASCII letters, digits and punctuation.
func textQuality(pages []string) float64 {
	total := 0
	readable := 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
				(r >= '0' && r <= '9') || unicode.IsSpace(r) ||
				unicode.Is(unicode.Han, r) ||
				strings.ContainsRune(".,-/:;()'\"$%&@#!?+=*", r) {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

// commonWords appear in virtually every Malaysian statement, in English or Malay.
var commonWords = []string{
	"bank", "account", "akaun", "balance", "baki", "date", "tarikh",
	"statement", "penyata", "total", "jumlah", "amount", "credit", "debit",
	"transaction", "urusniaga", "transfer", "payment", "page", "halaman",
}

func containsCommonWords(pages []string) bool {
	combined := strings.ToLower(strings.Join(pages, " "))
	for _, word := range commonWords {
		if strings.Contains(combined, word) {
			return true
		}
	}
	return false
}

// isReadableText requires more than 50 characters, over 60% readable
// characters and at least one statement word.
func isReadableText(pages []string) bool {
	if totalTextLen(pages) <= 50 {
		return false
	}
	if textQuality(pages) <= 0.6 {
		return false
	}
	return containsCommonWords(pages)
}

// extractWithPdftotext shells out to poppler's pdftotext for PDFs the Go
// library cannot decode. Pages are separated by form feeds in its output.
func extractWithPdftotext(ctx context.Context, filePath string) ([]string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return nil, fmt.Errorf("pdftotext not available: %v", err)
	}

	out, err := exec.CommandContext(ctx, "pdftotext", "-enc", "UTF-8", filePath, "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %v", err)
	}

	var pages []string
	for _, page := range strings.Split(string(out), "\f") {
		if text := strings.TrimSpace(page); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("pdftotext produced no output")
	}
	return pages, nil
}

// extractWithLibrary uses the ledongthuc/pdf library with several methods and
// returns the first readable result along with the method name.
func extractWithLibrary(filePath string) (pages []string, method string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("PDF library crashed: %v", r)
		}
	}()

	f, r, openErr := pdf.Open(filePath)
	if openErr != nil {
		return nil, "", openErr
	}
	defer f.Close()

	numPages := r.NumPage()
	if numPages == 0 {
		return nil, "", fmt.Errorf("PDF has no pages")
	}

	pages = extractByRow(r, numPages)
	if isReadableText(pages) {
		return pages, "rows", nil
	}

	pages = extractByContent(r, numPages)
	if isReadableText(pages) {
		return pages, "content", nil
	}

	pages = extractByPagePlainText(r, numPages)
	if isReadableText(pages) {
		return pages, "page-text", nil
	}

	plainText := extractByReaderPlainText(r)
	if isReadableText([]string{plainText}) {
		return []string{plainText}, "document-text", nil
	}

	return pages, "page-text", nil
}

// positioned is one text run with its horizontal position.
type positioned struct {
	x float64
	s string
}

// splitCells joins the runs of one row left to right and cuts the row into
// cells wherever the gap between runs exceeds columnGap.
func splitCells(items []positioned) []string {
	sort.Slice(items, func(a, b int) bool {
		return items[a].x < items[b].x
	})

	var cells []string
	var cur strings.Builder
	var prevX float64
	for j, item := range items {
		if j > 0 && item.x-prevX > columnGap {
			if cell := strings.TrimSpace(cur.String()); cell != "" {
				cells = append(cells, cell)
			}
			cur.Reset()
		}
		cur.WriteString(item.s)
		prevX = item.x
	}
	if cell := strings.TrimSpace(cur.String()); cell != "" {
		cells = append(cells, cell)
	}
	return cells
}

// extractByRow uses GetTextByRow and emits every column cell as a line.
func extractByRow(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			items := make([]positioned, 0, len(row.Content))
			for _, word := range row.Content {
				items = append(items, positioned{x: word.X, s: word.S})
			}
			lines = append(lines, splitCells(items)...)
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// extractByContent groups raw text objects by Y coordinate to rebuild rows,
// then splits each row into cells.
func extractByContent(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()
		if len(content.Text) == 0 {
			continue
		}

		rowMap := make(map[int][]positioned)
		for _, t := range content.Text {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			yKey := int(math.Round(t.Y))
			rowMap[yKey] = append(rowMap[yKey], positioned{x: t.X, s: t.S})
		}

		// PDF Y grows bottom to top.
		yKeys := make([]int, 0, len(rowMap))
		for y := range rowMap {
			yKeys = append(yKeys, y)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(yKeys)))

		var lines []string
		for _, y := range yKeys {
			lines = append(lines, splitCells(rowMap[y])...)
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

func extractByPagePlainText(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		fontNames := page.Fonts()
		fonts := make(map[string]*pdf.Font)
		for _, name := range fontNames {
			f := page.Font(name)
			fonts[name] = &f
		}

		text, err := page.GetPlainText(fonts)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text != "" {
			pages = append(pages, text)
		}
	}
	return pages
}

func extractByReaderPlainText(r *pdf.Reader) string {
	reader, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func totalTextLen(pages []string) int {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	return n
}
