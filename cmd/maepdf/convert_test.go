package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/OAT7963/mae-pdf-processing/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const casaText = `Malayan Banking Berhad (MAYBANK)
SAVINGS ACCOUNT
01/02/24
15,000.00+
14,500.00
SALARY CREDIT
02/02/24
TRANSFER TO A/C
JOHN
500.00
14,000.00`

func writeInputs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func testOptions(output string) convertOptions {
	return convertOptions{output: output, workers: 2, header: true}
}

func TestRunConvertWritesCSV(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		"a_casa.txt":    casaText,
		"b_unknown.txt": "Some Unknown Bank\nStatement",
		"notes.md":      "ignored",
	})
	output := filepath.Join(t.TempDir(), "out.csv")

	var stdout, stderr bytes.Buffer
	err := runConvert(context.Background(), testOptions(output), []string{dir}, &stdout, &stderr)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "SALARY CREDIT")
	assert.Contains(t, string(data), "# Format,maybank-casa")

	summary := stdout.String()
	assert.Contains(t, summary, "a_casa.txt")
	assert.Contains(t, summary, "b_unknown.txt")
	assert.Contains(t, summary, "Wrote 2 transaction(s) from 1 document(s)")
	assert.Contains(t, summary, "1 failed, 0 without transactions")
	assert.NotContains(t, summary, "notes.md")
}

func TestRunConvertNoData(t *testing.T) {
	dir := writeInputs(t, map[string]string{
		"empty.txt": "Malayan Banking Berhad (MAYBANK)\nno transactions this period",
	})
	output := filepath.Join(t.TempDir(), "out.csv")

	var stdout, stderr bytes.Buffer
	err := runConvert(context.Background(), testOptions(output), []string{dir}, &stdout, &stderr)
	require.Error(t, err)

	assert.Contains(t, stdout.String(), "no transactions found")
	assert.Contains(t, stdout.String(), "No data")
	assert.NoFileExists(t, output)
}

func TestRunConvertRejectsUnknownFormat(t *testing.T) {
	dir := writeInputs(t, map[string]string{"a.txt": casaText})
	opts := testOptions(filepath.Join(t.TempDir(), "out.csv"))
	opts.format = "hsbc"

	err := runConvert(context.Background(), opts, []string{dir}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.ErrorIs(t, err, parser.ErrUnknownFormat)
}

func TestRunConvertRejectsUnknownOutput(t *testing.T) {
	dir := writeInputs(t, map[string]string{"a.txt": casaText})
	err := runConvert(context.Background(), testOptions("out.pdf"), []string{dir}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunConvertDebug(t *testing.T) {
	dir := writeInputs(t, map[string]string{"a.txt": casaText})
	opts := testOptions(filepath.Join(t.TempDir(), "out.xlsx"))
	opts.debug = true

	var stdout bytes.Buffer
	require.NoError(t, runConvert(context.Background(), opts, []string{dir}, &stdout, &bytes.Buffer{}))
	assert.Contains(t, stdout.String(), "anchor")
	assert.FileExists(t, opts.output)
}

func TestPrintFormats(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printFormats(&out, parser.NewRegistry()))

	text := out.String()
	assert.Contains(t, text, "maybank-mae")
	assert.Contains(t, text, "needs year")
	assert.Contains(t, text, "cimb-debit")
	assert.Contains(t, text, "reconciles")
}
