package batch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OAT7963/mae-pdf-processing/internal/extractor"
	"github.com/OAT7963/mae-pdf-processing/internal/models"
	"github.com/OAT7963/mae-pdf-processing/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves documents from memory.
type fakeSource struct {
	docs map[string][]string
}

func (f *fakeSource) Extract(_ context.Context, path string) (*extractor.Document, error) {
	lines, ok := f.docs[path]
	if !ok {
		return nil, extractor.ErrExtraction
	}
	if len(lines) == 1 && lines[0] == "PANIC" {
		panic("corrupt document")
	}
	return &extractor.Document{Path: path, Pages: []string{strings.Join(lines, "\n")}}, nil
}

var casaLines = []string{
	"Malayan Banking Berhad (MAYBANK)",
	"01/02/24", "15,000.00+", "14,500.00", "SALARY CREDIT",
	"02/02/24", "TRANSFER TO A/C", "500.00-", "14,000.00",
}

func newProcessor(docs map[string][]string) *Processor {
	return &Processor{
		Registry: parser.NewRegistry(),
		Source:   &fakeSource{docs: docs},
		Workers:  3,
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	docs := map[string][]string{
		"a/SA_20240229.pdf": casaLines,
		"b/MAE_nodate.pdf":  {"Maybank MAE", "01/02", "TRANSFER FR A/C", "100.00+", "1,100.00"},
		"c/unknown.pdf":     {"Some Other Bank", "statement"},
		"d/empty.pdf":       {"Maybank", "no transactions"},
		"e/crash.pdf":       {"PANIC"},
		"f/SA_20240331.pdf": casaLines,
	}
	paths := []string{
		"a/SA_20240229.pdf", "b/MAE_nodate.pdf", "c/unknown.pdf",
		"missing.pdf", "d/empty.pdf", "e/crash.pdf", "f/SA_20240331.pdf",
	}

	report, err := newProcessor(docs).Run(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, report.Results, len(paths))

	for i, res := range report.Results {
		assert.Equal(t, paths[i], res.Path, "results must keep input order")
	}

	succeeded, failed, empty := report.Counts()
	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 4, failed)
	assert.Equal(t, 1, empty)
	assert.Equal(t, 4, report.Transactions())
	assert.Len(t, report.RunID, 36)

	var docErr *DocumentError
	require.True(t, errors.As(report.Results[1].Err, &docErr))
	assert.Equal(t, StageParse, docErr.Stage)
	assert.True(t, errors.Is(report.Results[1].Err, parser.ErrMissingYear))

	require.True(t, errors.As(report.Results[2].Err, &docErr))
	assert.Equal(t, StageDetect, docErr.Stage)
	assert.True(t, errors.Is(report.Results[2].Err, parser.ErrFormatNotDetected))

	require.True(t, errors.As(report.Results[3].Err, &docErr))
	assert.Equal(t, StageExtract, docErr.Stage)

	require.True(t, errors.As(report.Results[5].Err, &docErr))
	assert.Equal(t, StagePanic, docErr.Stage)

	statements := report.Statements()
	require.Len(t, statements, 3)
	assert.Equal(t, "SA_20240229.pdf", statements[0].Source)
	assert.Equal(t, "SA_20240331.pdf", statements[2].Source)
}

func TestRunForcedFormat(t *testing.T) {
	p := newProcessor(map[string][]string{"x.pdf": casaLines[1:]})
	p.Format = models.FormatMaybankCASA

	report, err := p.Run(context.Background(), []string{"x.pdf"})
	require.NoError(t, err)
	require.NoError(t, report.Results[0].Err)
	assert.Len(t, report.Results[0].Statement.Transactions, 2)
}

func TestRunUnknownForcedFormat(t *testing.T) {
	p := newProcessor(map[string][]string{"x.pdf": casaLines})
	p.Format = "hsbc"

	report, err := p.Run(context.Background(), []string{"x.pdf"})
	require.NoError(t, err)
	assert.True(t, errors.Is(report.Results[0].Err, parser.ErrUnknownFormat))
}

func TestRunProgress(t *testing.T) {
	var buf bytes.Buffer
	p := newProcessor(map[string][]string{"x.pdf": casaLines})
	p.Progress = &buf

	_, err := p.Run(context.Background(), []string{"x.pdf"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Converting statements")
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newProcessor(map[string][]string{"x.pdf": casaLines})
	report, err := p.Run(ctx, []string{"x.pdf", "x.pdf"})
	assert.ErrorIs(t, err, context.Canceled)
	for _, res := range report.Results {
		assert.Error(t, res.Err)
		assert.Equal(t, "x.pdf", res.Path)
	}
}

func TestRunEmpty(t *testing.T) {
	report, err := newProcessor(nil).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Results)
}

func TestCollectInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.PDF", "notes.txt", "image.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.pdf"), 0o755))
	single := filepath.Join(t.TempDir(), "single.pdf")
	require.NoError(t, os.WriteFile(single, nil, 0o644))

	paths, err := CollectInputs([]string{single, dir})
	require.NoError(t, err)
	assert.Equal(t, []string{
		single,
		filepath.Join(dir, "a.PDF"),
		filepath.Join(dir, "b.pdf"),
		filepath.Join(dir, "notes.txt"),
	}, paths)
}

func TestCollectInputsErrors(t *testing.T) {
	_, err := CollectInputs([]string{t.TempDir()})
	assert.ErrorIs(t, err, ErrNoInputs)

	_, err = CollectInputs([]string{filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}
