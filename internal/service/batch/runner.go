// Package batch runs the single-file conversion pipeline over many inputs,
// sequentially or with one goroutine per file.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mekedron/coordextract/internal/domain"
	"github.com/mekedron/coordextract/internal/service/output"
)

var (
	// ErrNoDestination is returned when Run has nowhere to write outputs.
	ErrNoDestination = errors.New("batch needs an output directory or output file")
	// ErrOutputCollision is returned when two inputs map to the same output path.
	ErrOutputCollision = errors.New("output path collision")
)

// TrackParser reads raw GPX points from a file.
type TrackParser interface {
	ParseFile(ctx context.Context, path string) (domain.Track, error)
}

// PointAssembler builds ordered points from a parsed track.
type PointAssembler interface {
	Assemble(ctx context.Context, track domain.Track) ([]domain.Point, error)
}

// Options control serialization of one file.
type Options struct {
	Format output.Format
	Indent int
}

// Request describes one batch.
type Request struct {
	Inputs []string
	// OutputDir receives <stem><ext> per input.
	OutputDir string
	// OutputFile is the exact destination when there is a single input.
	OutputFile string
	Options    Options
	Concurrent bool
	// MaxInFlight bounds concurrent jobs; 0 starts every job at once.
	MaxInFlight int
}

// Report holds every job outcome in input order.
type Report struct {
	Jobs []Job
}

// Failed returns jobs that ended in StatusFailed.
func (r Report) Failed() []Job {
	return r.filter(StatusFailed)
}

// Succeeded returns jobs that ended in StatusSucceeded.
func (r Report) Succeeded() []Job {
	return r.filter(StatusSucceeded)
}

func (r Report) filter(status Status) []Job {
	jobs := make([]Job, 0, len(r.Jobs))
	for _, job := range r.Jobs {
		if job.Status == status {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

// Runner executes conversions.
type Runner struct {
	parser    TrackParser
	assembler PointAssembler
	logger    *slog.Logger
}

// NewRunner wires a runner from its collaborators.
func NewRunner(parser TrackParser, assembler PointAssembler, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{parser: parser, assembler: assembler, logger: logger}
}

// Convert runs parse, assemble and render for input and returns the text.
func (r *Runner) Convert(ctx context.Context, input string, opts Options) (string, error) {
	text, _, err := r.convert(ctx, input, opts)
	return text, err
}

// ConvertFile converts input and writes the result to outputPath. It returns
// the number of points written.
func (r *Runner) ConvertFile(ctx context.Context, input, outputPath string, opts Options) (int, error) {
	text, count, err := r.convert(ctx, input, opts)
	if err != nil {
		return 0, err
	}
	if err := output.WriteFile(outputPath, text); err != nil {
		return 0, fmt.Errorf("%s: %w", outputPath, err)
	}
	return count, nil
}

func (r *Runner) convert(ctx context.Context, input string, opts Options) (string, int, error) {
	track, err := r.parser.ParseFile(ctx, input)
	if err != nil {
		return "", 0, err
	}
	points, err := r.assembler.Assemble(ctx, track)
	if err != nil {
		return "", 0, fmt.Errorf("%s: %w", input, err)
	}
	text, err := output.RenderPoints(points, opts.Format, opts.Indent)
	if err != nil {
		return "", 0, fmt.Errorf("%s: %w", input, err)
	}
	return text, len(points), nil
}

// OutputPath returns the file written for input inside dir.
func OutputPath(dir, input string, format output.Format) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+format.Extension())
}

// Run converts every input and writes one output per input. All jobs run to
// completion regardless of sibling failures; when any job failed the returned
// error is a *Error and the report still lists every outcome.
func (r *Runner) Run(ctx context.Context, req Request) (Report, error) {
	jobs, err := planJobs(req)
	if err != nil {
		return Report{}, err
	}
	if req.OutputDir != "" {
		if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
			return Report{}, fmt.Errorf("create output directory: %w", err)
		}
	}

	r.logger.DebugContext(ctx, "Batch started.", "files", len(jobs), "concurrent", req.Concurrent)
	if req.Concurrent {
		var g errgroup.Group
		if req.MaxInFlight > 0 {
			g.SetLimit(req.MaxInFlight)
		}
		// Jobs record their own failures and never fail the group, so siblings
		// keep running. The group only bounds how many are in flight.
		for i := range jobs {
			job := &jobs[i]
			g.Go(func() error {
				r.runJob(ctx, job, req.Options)
				return nil
			})
		}
		_ = g.Wait() // always nil
	} else {
		for i := range jobs {
			r.runJob(ctx, &jobs[i], req.Options)
		}
	}

	report := Report{Jobs: jobs}
	failed := report.Failed()
	r.logger.InfoContext(ctx, "Batch finished.", "files", len(jobs), "failed", len(failed))
	if len(failed) > 0 {
		return report, &Error{Total: len(jobs), Failed: failed}
	}
	return report, nil
}

func (r *Runner) runJob(ctx context.Context, job *Job, opts Options) {
	logger := r.logger.With("job", job.ID.String(), "source", job.Source)
	if err := job.start(); err != nil {
		logger.ErrorContext(ctx, "Job could not start.", "error", err)
		return
	}
	logger.DebugContext(ctx, "Job running.", "output", job.Output)

	count, err := r.ConvertFile(ctx, job.Source, job.Output, opts)
	if ferr := job.finish(count, err); ferr != nil {
		logger.ErrorContext(ctx, "Job could not finish.", "error", ferr)
		return
	}
	if err != nil {
		logger.ErrorContext(ctx, "File conversion failed.", "error", err)
		return
	}
	logger.InfoContext(ctx, "File converted.", "output", job.Output, "points", count)
}

func planJobs(req Request) ([]Job, error) {
	if req.OutputFile != "" {
		if len(req.Inputs) != 1 {
			return nil, fmt.Errorf("output file %q requires exactly one input, got %d", req.OutputFile, len(req.Inputs))
		}
		return []Job{newJob(req.Inputs[0], req.OutputFile)}, nil
	}
	if req.OutputDir == "" {
		return nil, ErrNoDestination
	}

	jobs := make([]Job, 0, len(req.Inputs))
	seen := make(map[string]string, len(req.Inputs))
	for _, input := range req.Inputs {
		out := OutputPath(req.OutputDir, input, req.Options.Format)
		if prev, ok := seen[out]; ok {
			return nil, fmt.Errorf("%w: %s and %s both write %s", ErrOutputCollision, prev, input, out)
		}
		seen[out] = input
		jobs = append(jobs, newJob(input, out))
	}
	return jobs, nil
}
