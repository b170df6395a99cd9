// Package batch runs the reconstruction engine over many statement documents.
// Every document is processed in isolation: an extraction failure, a missing
// year or even a panic affects only that document's result.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/OAT7963/mae-pdf-processing/internal/extractor"
	"github.com/OAT7963/mae-pdf-processing/internal/logger"
	"github.com/OAT7963/mae-pdf-processing/internal/models"
	"github.com/OAT7963/mae-pdf-processing/internal/parser"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
)

// Processing stages reported in DocumentError.
const (
	StageExtract = "extract"
	StageDetect  = "detect"
	StageParse   = "parse"
	StagePanic   = "panic"
	// StageCancelled marks documents never started because the batch was cancelled.
	StageCancelled = "cancelled"
)

// DocumentError is the failure of one document. It never aborts the batch.
type DocumentError struct {
	Path  string
	Stage string
	Err   error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s: %s: %v", filepath.Base(e.Path), e.Stage, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one document.
type Result struct {
	Path      string
	Statement *models.StatementInfo
	Err       error
}

// Empty reports whether the document parsed but produced no transactions.
func (r Result) Empty() bool {
	return r.Err == nil && (r.Statement == nil || len(r.Statement.Transactions) == 0)
}

// Report is the outcome of a batch. Results are in input order.
type Report struct {
	RunID   string
	Results []Result
}

// Statements returns the successfully parsed statements in input order.
func (r *Report) Statements() []*models.StatementInfo {
	var out []*models.StatementInfo
	for _, res := range r.Results {
		if res.Err == nil && res.Statement != nil {
			out = append(out, res.Statement)
		}
	}
	return out
}

// Counts returns how many documents succeeded with data, failed and parsed empty.
func (r *Report) Counts() (succeeded, failed, empty int) {
	for _, res := range r.Results {
		switch {
		case res.Err != nil:
			failed++
		case res.Empty():
			empty++
		default:
			succeeded++
		}
	}
	return succeeded, failed, empty
}

// Transactions returns the total number of transactions across the batch.
func (r *Report) Transactions() int {
	n := 0
	for _, s := range r.Statements() {
		n += len(s.Transactions)
	}
	return n
}

// Warnings returns the number of data-quality warnings across the batch.
func (r *Report) Warnings() int {
	n := 0
	for _, s := range r.Statements() {
		n += len(s.Warnings)
	}
	return n
}

// Processor converts documents with a bounded worker pool.
type Processor struct {
	Registry *parser.Registry
	Source   extractor.Source
	// Format forces a format; empty means detect per document.
	Format                 models.FormatID
	Workers                int
	MaxReconcileIterations int
	Debug                  bool
	// Progress receives a progress bar when set.
	Progress io.Writer
}

// Run processes every path. The returned error is only the context's error
// when the batch was cancelled; document failures are in the report.
func (p *Processor) Run(ctx context.Context, paths []string) (*Report, error) {
	log := logger.FromContext(ctx)
	report := &Report{RunID: uuid.NewString(), Results: make([]Result, len(paths))}

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	var bar *progressbar.ProgressBar
	if p.Progress != nil && len(paths) > 0 {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetWriter(p.Progress),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("Converting statements"),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(p.Progress) }),
		)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res := p.processOne(ctx, paths[i])
				report.Results[i] = res

				docLog := logger.WithDocument(log, paths[i])
				if res.Err != nil {
					docLog.Error().Err(res.Err).Msg("document failed")
				} else {
					docLog.Info().
						Str("format", string(res.Statement.Format)).
						Int("transactions", len(res.Statement.Transactions)).
						Int("warnings", len(res.Statement.Warnings)).
						Msg("document converted")
				}

				if bar != nil {
					mu.Lock()
					if err := bar.Add(1); err != nil {
						log.Debug().Err(err).Msg("progress bar update failed")
					}
					mu.Unlock()
				}
			}
		}()
	}

	var cancelled error
dispatch:
	for i := range paths {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		select {
		case <-ctx.Done():
			cancelled = ctx.Err()
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if cancelled != nil {
		for i := range report.Results {
			if report.Results[i].Path == "" {
				report.Results[i] = Result{
					Path: paths[i],
					Err:  &DocumentError{Path: paths[i], Stage: StageCancelled, Err: cancelled},
				}
			}
		}
	}
	return report, cancelled
}

// processOne runs one document through extraction, detection and parsing.
func (p *Processor) processOne(ctx context.Context, path string) (res Result) {
	res.Path = path
	defer func() {
		if r := recover(); r != nil {
			res.Statement = nil
			res.Err = &DocumentError{Path: path, Stage: StagePanic, Err: fmt.Errorf("%v", r)}
		}
	}()

	doc, err := p.Source.Extract(ctx, path)
	if err != nil {
		res.Err = &DocumentError{Path: path, Stage: StageExtract, Err: err}
		return res
	}
	lines := doc.Lines()

	var cfg *parser.FormatConfig
	if p.Format != "" {
		cfg, err = p.Registry.Lookup(p.Format)
	} else {
		cfg, err = p.Registry.AutoDetect(lines)
	}
	if err != nil {
		res.Err = &DocumentError{Path: path, Stage: StageDetect, Err: err}
		return res
	}

	info, err := parser.Reconstruct(lines, cfg, parser.Options{
		SourceName:             filepath.Base(path),
		MetadataYear:           doc.CreatedYear,
		MaxReconcileIterations: p.MaxReconcileIterations,
		Debug:                  p.Debug,
	})
	if err != nil {
		res.Err = &DocumentError{Path: path, Stage: StageParse, Err: err}
		return res
	}
	res.Statement = info
	return res
}

// ErrNoInputs is returned when the arguments name no supported documents.
var ErrNoInputs = errors.New("no PDF or text statements found")

// CollectInputs expands the arguments into document paths. Directories
// contribute their supported files (not recursively) in name order; files
// are kept in argument order.
func CollectInputs(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		fi, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, e := range entries {
			if !e.IsDir() && extractor.Supported(e.Name()) {
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		return nil, ErrNoInputs
	}
	return paths, nil
}
